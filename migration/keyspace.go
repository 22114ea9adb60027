package migration

import (
	"sync"
	"time"
)

/*
 * ============================================================================
 * KeyspaceView 契约 - 导入缓冲区与可见性隔离
 * ============================================================================
 *
 * ImportBuffer 是目标节点上每个 ImportJob 私有的暂存区：它按 key 建索引，但
 * 不属于公开 keyspace 的任何一部分 —— DBSIZE/KEYS/SCAN/RANDOMKEY、淘汰策略、
 * 主动过期循环都必须看不到它。只有 SyncChannel 的 applier 和迁移内部路径可以
 * 写入和读取它。
 *
 * storage.RedisDb 是实现这份契约的一方：它把每个 importing 槽映射到这里定义
 * 的 ImportBuffer，并在 Keys/Scan/RandomKey/Size/eviction 路径里把它们过滤掉。
 */

// BufferedValue is a staged write: an encoded value (in the same wire
// format persistence/rdb.go uses for RDB bodies) plus its optional absolute
// TTL (Unix seconds, 0 meaning no expiry) plus, for hash values, per-field
// TTLs.
type BufferedValue struct {
	Value    []byte
	ExpireAt int64
	FieldTTL map[string]int64 // hash field -> absolute expiry, optional
	DBIndex  int
}

// ImportBuffer is per-importing-slot staging storage owned by an ImportJob.
// It is deliberately a separate map from the public keyspace so masking is
// structural rather than a per-call-site filter that could be forgotten.
type ImportBuffer struct {
	mu     sync.RWMutex
	JobName JobName
	data   map[string]BufferedValue
}

// NewImportBuffer creates an empty staging buffer for job.
func NewImportBuffer(job JobName) *ImportBuffer {
	return &ImportBuffer{JobName: job, data: make(map[string]BufferedValue)}
}

// Stage lands a single write (from the snapshot or the incremental stream)
// into the buffer, preserving ordering relative to other writes to the same
// key because callers apply the stream in commit order.
func (b *ImportBuffer) Stage(key string, v BufferedValue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = v
}

// Delete removes key from the buffer (a delete arriving over incremental).
func (b *ImportBuffer) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
}

// ApplyWrite implements WriteApplier: stages a snapshot/incremental item.
func (b *ImportBuffer) ApplyWrite(dbIndex int, key string, item SnapshotItem) {
	b.Stage(key, BufferedValue{
		Value:    item.Value,
		ExpireAt: item.ExpireAt,
		FieldTTL: item.FieldTTL,
		DBIndex:  dbIndex,
	})
}

// ApplyDelete implements WriteApplier: removes a key the incremental stream
// reports as deleted.
func (b *ImportBuffer) ApplyDelete(dbIndex int, key string) {
	b.Delete(key)
}

// Len reports how many keys are currently staged.
func (b *ImportBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Drain returns every staged key/value pair, for promotion into the public
// keyspace on success, or for discarding on failure/cancellation.
func (b *ImportBuffer) Drain() map[string]BufferedValue {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.data
	b.data = make(map[string]BufferedValue)
	return out
}

// KeyspaceView is the contract the storage engine and command dispatcher
// consume to keep importing keys invisible to clients (spec.md §4.3).
type KeyspaceView interface {
	// IsImporting reports whether slot has a non-terminal ImportJob at this
	// node, i.e. whether keys in it must be masked from client-facing reads.
	IsImporting(slot Slot) bool

	// BufferFor returns the ImportBuffer for slot's active import job, or
	// (nil, false) if the slot is not currently importing.
	BufferFor(slot Slot) (*ImportBuffer, bool)

	// PromoteSlot atomically moves an ImportBuffer's contents into the
	// visible keyspace once the owning job reaches success.
	PromoteSlot(slot Slot) int

	// DiscardSlot drops an ImportBuffer's contents without making them
	// visible, on failure or cancellation.
	DiscardSlot(slot Slot) int

	// NotifyFlush is called whenever FLUSHDB/FLUSHALL executes locally so
	// observers (FailureHandler) can fail any job watching this database.
	NotifyFlush(dbIndex int)
}

// StagedBytesCounter tracks bytes written to a SyncChannel's outbound
// buffer but not yet flushed to the OS socket. This is the one bucket
// excluded from maxmemory accounting (spec.md §9's accounting Open
// Question, resolved here): it is distinct from the replication backlog,
// which is accounted normally once bytes leave the process.
type StagedBytesCounter struct {
	mu    sync.Mutex
	bytes int64
}

func (c *StagedBytesCounter) Add(n int) {
	c.mu.Lock()
	c.bytes += int64(n)
	c.mu.Unlock()
}

func (c *StagedBytesCounter) Sub(n int) {
	c.mu.Lock()
	c.bytes -= int64(n)
	if c.bytes < 0 {
		c.bytes = 0
	}
	c.mu.Unlock()
}

func (c *StagedBytesCounter) Get() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// now is the single time.Now() call site used for liveness bookkeeping in
// this package's non-Job types, so tests can reason about it uniformly.
func now() time.Time { return time.Now() }
