package migration

import (
	"encoding/gob"
	"bytes"
	"errors"
	"io"
)

/*
 * ============================================================================
 * SnapshotProducer / SnapshotConsumer
 * ============================================================================
 *
 * 生产者枚举源节点拥有的、落在 job.SlotRanges 内的键空间，编码成一段有限、
 * 可重放的字节序列；消费者把这段字节流写进目标节点的 ImportBuffer。
 *
 * 为了不和具体存储引擎耦合（spec.md §9 的"动态分发"设计笔记），生产者只依赖
 * 一个 SnapshotSource 接口；真正的遍历逻辑由 storage 包提供的适配器实现，
 * migration 包本身对 RedisDb 一无所知。
 */

// SnapshotItem is one key's full state as captured in a snapshot or
// replicated by an incremental write. Value is a storage-engine-encoded
// payload, not a live object: the storage adapter serializes a RedisObject
// the same way persistence/rdb.go does for RDB bodies, so the migration
// package never needs to know about structure package's concrete value
// types (and gob never has to cross an interface{} holding them, which
// would silently drop unexported fields instead of failing loudly).
type SnapshotItem struct {
	Value    []byte
	ExpireAt int64            // 0 = no expiry
	FieldTTL map[string]int64 // optional, hash values with per-field expiry
}

// SnapshotSource is the capability a storage engine exposes to produce a
// point-in-time image restricted to a slot set. Scripts/functions and
// pubsub subscriptions are never visited — only the keyspace.
type SnapshotSource interface {
	// IterateSlots calls fn once per (dbIndex, key, item) for every key
	// whose slot is in slots, across every database. Iteration stops early
	// if fn returns false. Implementations must exclude keys outside slots
	// even when those keys share a partially-migrating range.
	IterateSlots(slots *SlotSet, fn func(dbIndex int, key string, item SnapshotItem) bool) error
}

// WriteApplier is the capability something accepts a replicated write
// through — concretely, an ImportBuffer.
type WriteApplier interface {
	ApplyWrite(dbIndex int, key string, item SnapshotItem)
	ApplyDelete(dbIndex int, key string)
}

// wire encodes one staged entry for the snapshot byte stream.
type wireEntry struct {
	DBIndex int
	Key     string
	Item    SnapshotItem
}

// SnapshotProducer streams job.SlotRanges from source in bounded chunks.
type SnapshotProducer struct {
	source    SnapshotSource
	slots     *SlotSet
	chunkSize int
	pending   []wireEntry
	done      bool
	err       error
	started   bool
}

// NewSnapshotProducer prepares a producer for slots, chunking encoded bytes
// chunkSize entries at a time.
func NewSnapshotProducer(source SnapshotSource, slots *SlotSet, chunkSize int) *SnapshotProducer {
	if chunkSize <= 0 {
		chunkSize = 256
	}
	return &SnapshotProducer{source: source, slots: slots, chunkSize: chunkSize}
}

// start performs the (synchronous, in-memory) enumeration once, buffering
// entries for chunked emission. A real storage engine with a true streaming
// cursor would instead pull lazily; this keeps the producer decoupled from
// cursor-shaped backends while still respecting the chunk-at-a-time
// contract SnapshotProducer.Next exposes to callers.
func (p *SnapshotProducer) start() {
	if p.started {
		return
	}
	p.started = true
	p.err = p.source.IterateSlots(p.slots, func(dbIndex int, key string, item SnapshotItem) bool {
		p.pending = append(p.pending, wireEntry{DBIndex: dbIndex, Key: key, Item: item})
		return true
	})
}

// Next encodes up to chunkSize entries and returns them, along with whether
// the snapshot is now exhausted. Each call is a bounded unit of work,
// suitable for driving via Chunker from the event loop's tick.
func (p *SnapshotProducer) Next() (chunk []byte, done bool, err error) {
	p.start()
	if p.err != nil {
		return nil, true, p.err
	}
	if len(p.pending) == 0 {
		return nil, true, nil
	}

	n := p.chunkSize
	if n > len(p.pending) {
		n = len(p.pending)
	}
	batch := p.pending[:n]
	p.pending = p.pending[n:]

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(batch); err != nil {
		return nil, true, err
	}
	return buf.Bytes(), len(p.pending) == 0, nil
}

// AsChunker adapts Next into the generic yielding-iterator shape so the
// event loop can drive it uniformly with incremental application.
func (p *SnapshotProducer) AsChunker(emit func([]byte) error) *Chunker {
	return NewChunker(func() (bool, error) {
		chunk, done, err := p.Next()
		if err != nil {
			return true, err
		}
		if len(chunk) > 0 {
			if err := emit(chunk); err != nil {
				return true, err
			}
		}
		return done, nil
	})
}

// SnapshotConsumer decodes chunks produced by SnapshotProducer and applies
// them to a WriteApplier (concretely, an ImportBuffer). On a decode error
// the import must fail fatally with no partial application visible to
// clients — because the consumer only ever writes into the ImportBuffer,
// which is itself invisible until promotion, "no partial application
// observable" holds for free.
type SnapshotConsumer struct {
	applier WriteApplier
}

func NewSnapshotConsumer(applier WriteApplier) *SnapshotConsumer {
	return &SnapshotConsumer{applier: applier}
}

var ErrSnapshotDecode = errors.New("snapshot decode error")

// Apply decodes one chunk and stages every entry into the ImportBuffer.
func (c *SnapshotConsumer) Apply(chunk []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(chunk))
	var batch []wireEntry
	if err := dec.Decode(&batch); err != nil {
		if err == io.EOF {
			return ErrSnapshotDecode
		}
		return ErrSnapshotDecode
	}
	for _, e := range batch {
		c.applier.ApplyWrite(e.DBIndex, e.Key, e.Item)
	}
	return nil
}
