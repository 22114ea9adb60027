package utils

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

/*
 * ============================================================================
 * 配置管理
 * ============================================================================
 *
 * 提供类似 Redis 的配置方式
 * 从环境变量和 .env 文件读取配置，可选再叠加一份 YAML 配置文件
 */

// ServerConfig 服务器配置
type ServerConfig struct {
	// 服务器地址
	Addr string `env:"REDIS_ADDR" yaml:"addr"`

	// 数据库数量
	DbNum int `env:"REDIS_DB_NUM" yaml:"dbnum"`

	// RDB 文件路径
	RdbFilename string `env:"REDIS_RDB_FILENAME" yaml:"rdb_filename"`

	// AOF 文件路径
	AofFilename string `env:"REDIS_AOF_FILENAME" yaml:"aof_filename"`

	// 是否启用 AOF
	AofEnabled bool `env:"REDIS_AOF_ENABLED" yaml:"aof_enabled"`

	// 是否启用 RDB
	RdbEnabled bool `env:"REDIS_RDB_ENABLED" yaml:"rdb_enabled"`

	// 日志级别
	LogLevel string `env:"REDIS_LOG_LEVEL" yaml:"log_level"`

	// 最大客户端连接数
	MaxClients int `env:"REDIS_MAX_CLIENTS" yaml:"max_clients"`

	// 慢查询日志阈值（毫秒）
	SlowLogThreshold int64 `env:"REDIS_SLOWLOG_THRESHOLD" yaml:"slowlog_threshold"`

	// 是否启用集群模式
	ClusterEnabled bool `env:"REDIS_CLUSTER_ENABLED" yaml:"cluster_enabled"`

	// 集群端口
	ClusterPort int `env:"REDIS_CLUSTER_PORT" yaml:"cluster_port"`

	// 集群节点 ID
	ClusterNodeID string `env:"REDIS_CLUSTER_NODE_ID" yaml:"cluster_node_id"`

	// SYNCSLOTS 迁移通道监听端口
	ClusterMigrationSyncPort int `env:"REDIS_CLUSTER_MIGRATION_SYNC_PORT" yaml:"cluster_migration_sync_port"`

	// SYNCSLOTS AUTH 密码（为空表示不启用鉴权）
	ClusterMigrationAuth string `env:"REDIS_CLUSTER_MIGRATION_AUTH" yaml:"cluster_migration_auth"`

	// 迁移任务终止态日志每角色容量
	ClusterSlotMigrationLogMaxLen int `env:"REDIS_CLUSTER_SLOT_MIGRATION_LOG_MAX_LEN" yaml:"cluster_slot_migration_log_max_len"`

	// 迁移任务 HTTP 管理接口监听地址（为空表示不启用）
	ClusterMigrationHTTPAddr string `env:"REDIS_CLUSTER_MIGRATION_HTTP_ADDR" yaml:"cluster_migration_http_addr"`
}

// LoadServerConfig 加载服务器配置
func LoadServerConfig() *ServerConfig {
	config := &ServerConfig{
		Addr:             GetEnvWithDefault("REDIS_ADDR", ":6379"),
		DbNum:            int(GetIntEnvWithDefault("REDIS_DB_NUM", 16)),
		RdbFilename:      GetEnvWithDefault("REDIS_RDB_FILENAME", "dump.rdb"),
		AofFilename:      GetEnvWithDefault("REDIS_AOF_FILENAME", "appendonly.aof"),
		AofEnabled:       GetBoolEnvWithDefault("REDIS_AOF_ENABLED", true),
		RdbEnabled:       GetBoolEnvWithDefault("REDIS_RDB_ENABLED", true),
		LogLevel:         GetEnvWithDefault("REDIS_LOG_LEVEL", "info"),
		MaxClients:       int(GetIntEnvWithDefault("REDIS_MAX_CLIENTS", 10000)),
		SlowLogThreshold: GetIntEnvWithDefault("REDIS_SLOWLOG_THRESHOLD", 10000),
		ClusterEnabled:   GetBoolEnvWithDefault("REDIS_CLUSTER_ENABLED", false),
		ClusterPort:      int(GetIntEnvWithDefault("REDIS_CLUSTER_PORT", 7000)),
		ClusterNodeID:    GetEnvWithDefault("REDIS_CLUSTER_NODE_ID", ""),
		ClusterMigrationSyncPort:      int(GetIntEnvWithDefault("REDIS_CLUSTER_MIGRATION_SYNC_PORT", 17000)),
		ClusterMigrationAuth:          GetEnvWithDefault("REDIS_CLUSTER_MIGRATION_AUTH", ""),
		ClusterSlotMigrationLogMaxLen: int(GetIntEnvWithDefault("REDIS_CLUSTER_SLOT_MIGRATION_LOG_MAX_LEN", 128)),
		ClusterMigrationHTTPAddr:      GetEnvWithDefault("REDIS_CLUSTER_MIGRATION_HTTP_ADDR", ""),
	}

	return config
}

// LoadConfigFileOverlay reads a YAML config file at path and overlays its
// fields onto base (zero-valued fields in the YAML document leave base's
// env/flag-derived value untouched, since yaml.Unmarshal only sets fields
// it actually finds keys for). A key present in the YAML therefore
// replaces the value base got from .env or the environment.
func LoadConfigFileOverlay(path string, base *ServerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, base)
}

// GetConfigValue 获取配置值（字符串）
func GetConfigValue(key string, defaultValue string) string {
	return GetEnvWithDefault(key, defaultValue)
}

// GetConfigInt 获取配置值（整数）
func GetConfigInt(key string, defaultValue int) int {
	return int(GetIntEnvWithDefault(key, int64(defaultValue)))
}

// GetConfigBool 获取配置值（布尔）
func GetConfigBool(key string, defaultValue bool) bool {
	return GetBoolEnvWithDefault(key, defaultValue)
}

// GetConfigFloat 获取配置值（浮点数）
func GetConfigFloat(key string, defaultValue float64) float64 {
	return GetFloatEnvWithDefault(key, defaultValue)
}

// ParseConfigInt 解析配置字符串为整数
func ParseConfigInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	val, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return int(val)
}

// ParseConfigBool 解析配置字符串为布尔值
func ParseConfigBool(value string, defaultValue bool) bool {
	if value == "" {
		return defaultValue
	}

	val, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		return defaultValue
	}

	return val
}
