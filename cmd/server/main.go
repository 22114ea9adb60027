package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/lingdb/lingdb/server"
	"github.com/lingdb/lingdb/utils"
)

func main() {
	// 加载 .env 文件
	env := os.Getenv("ENV")
	if env == "" {
		env = "dev"
	}

	if err := utils.LoadEnv(env); err != nil {
		fmt.Printf("Warning: Failed to load .env file: %v\n", err)
	}

	// 加载配置
	config := utils.LoadServerConfig()

	// 命令行参数（优先级高于 .env）
	configFile := pflag.String("config", "", "Path to a YAML config file; its keys override .env/environment variables, explicit flags override it")
	addr := pflag.String("addr", config.Addr, "Server address")
	dbnum := pflag.Int("dbnum", config.DbNum, "Number of databases")
	pflag.Parse()

	if *configFile != "" {
		if err := utils.LoadConfigFileOverlay(*configFile, config); err != nil {
			fmt.Printf("Warning: Failed to load config file %s: %v\n", *configFile, err)
		} else {
			if !pflag.CommandLine.Changed("addr") {
				*addr = config.Addr
			}
			if !pflag.CommandLine.Changed("dbnum") {
				*dbnum = config.DbNum
			}
		}
	}

	// 创建服务器
	srv := server.NewServer(*addr, *dbnum)

	// 初始化集群（如果启用）— 必须先于 AOF 初始化，这样 AOF 回放
	// CLUSTER SYNCSLOTS-STATE 伪命令时 cluster 已经就绪
	if config.ClusterEnabled {
		clusterAddr := fmt.Sprintf("%s", *addr)
		if config.ClusterPort > 0 {
			clusterAddr = fmt.Sprintf(":%d", config.ClusterPort)
		}
		if err := srv.InitCluster(config.ClusterNodeID, clusterAddr, config.ClusterPort, config.ClusterMigrationSyncPort, config.ClusterMigrationAuth); err != nil {
			fmt.Printf("Warning: Failed to initialize cluster: %v\n", err)
		} else {
			srv.SetSlotMigrationLogMaxLen(config.ClusterSlotMigrationLogMaxLen)
		}
	}

	// 初始化 AOF（如果启用）
	if err := srv.InitAOF(config.AofEnabled, config.AofFilename); err != nil {
		fmt.Printf("Warning: Failed to initialize AOF: %v\n", err)
	}

	// 迁移任务 HTTP 管理接口（如果配置了监听地址）
	if config.ClusterEnabled && config.ClusterMigrationHTTPAddr != "" {
		go func() {
			if err := srv.StartHTTPAdmin(config.ClusterMigrationHTTPAddr); err != nil {
				fmt.Printf("Warning: migration HTTP admin server stopped: %v\n", err)
			}
		}()
	}

	// 处理信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 启动服务器（在 goroutine 中）
	go func() {
		if err := srv.Start(); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	fmt.Printf("LingCache server started on %s\n", *addr)
	fmt.Printf("Database number: %d\n", *dbnum)
	fmt.Printf("RDB enabled: %v\n", config.RdbEnabled)
	fmt.Printf("AOF enabled: %v\n", config.AofEnabled)
	if config.ClusterEnabled {
		fmt.Printf("Cluster mode: enabled (port: %d)\n", config.ClusterPort)
	}

	// 等待信号
	<-sigChan
	fmt.Println("\nShutting down server...")
	srv.Stop()
	fmt.Println("Server stopped")
}
