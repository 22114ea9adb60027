package storage

import (
	"sync"
	"time"

	"github.com/lingdb/lingdb/migration"
)

func nowUnix() int64 { return time.Now().Unix() }

/*
 * ============================================================================
 * migration.KeyspaceView / migration.SnapshotSource adapter
 * ============================================================================
 *
 * Writes staged for an import already live in the ImportBuffer's own map,
 * apart from RedisDb's db.keys — a key only ever becomes visible to
 * GET/KEYS/SCAN/DBSIZE once PromoteSlot copies it into db.keys. That gives
 * masking "for free"; what RedisServer needs to add is the index from slot
 * to (dbIndex, *ImportBuffer) so the migration package's target-side FSM has
 * somewhere to stage into, and a SnapshotSource so the source side can
 * enumerate a slot-restricted keyspace without migration importing storage.
 *
 * The slot function itself is supplied by the cluster package at startup
 * (SetSlotFunc) rather than imported here, so storage never depends on
 * cluster and the dependency arrow stays one-way: cluster, persistence and
 * replication import storage and migration; migration imports neither.
 */

type slotImport struct {
	dbIndex int
	buffer  *migration.ImportBuffer
}

// ImportIndex tracks, per slot, which ImportBuffer is currently staging
// writes for it and which database it targets. One instance is shared by a
// RedisServer and every RedisDb it owns.
type ImportIndex struct {
	mu      sync.RWMutex
	slotFn  func(key string) migration.Slot
	buffers map[migration.Slot]*slotImport
}

func newImportIndex() *ImportIndex {
	return &ImportIndex{buffers: make(map[migration.Slot]*slotImport)}
}

// SetSlotFunc installs the key->slot hash used by snapshot enumeration and
// incremental observation. Until it is set, migration features are inert:
// IterateSlots visits nothing and Observe never matches a job's slot set.
func (idx *ImportIndex) SetSlotFunc(fn func(key string) migration.Slot) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.slotFn = fn
}

func (idx *ImportIndex) slotOf(key string) (migration.Slot, bool) {
	idx.mu.RLock()
	fn := idx.slotFn
	idx.mu.RUnlock()
	if fn == nil {
		return 0, false
	}
	return fn(key), true
}

// BeginImport registers buf as the staging area for slot's incoming writes.
func (idx *ImportIndex) BeginImport(slot migration.Slot, dbIndex int, buf *migration.ImportBuffer) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.buffers[slot] = &slotImport{dbIndex: dbIndex, buffer: buf}
}

func (idx *ImportIndex) end(slot migration.Slot) (*slotImport, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	si, ok := idx.buffers[slot]
	if ok {
		delete(idx.buffers, slot)
	}
	return si, ok
}

// IsImporting implements migration.KeyspaceView.
func (idx *ImportIndex) IsImporting(slot migration.Slot) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.buffers[slot]
	return ok
}

// BufferFor implements migration.KeyspaceView.
func (idx *ImportIndex) BufferFor(slot migration.Slot) (*migration.ImportBuffer, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	si, ok := idx.buffers[slot]
	if !ok {
		return nil, false
	}
	return si.buffer, true
}

// KeyspaceView is the RedisServer-scoped implementation of
// migration.KeyspaceView, built once by cluster.NewMigrationController.
type KeyspaceView struct {
	server *RedisServer
	index  *ImportIndex
}

// NewKeyspaceView wires server's ImportIndex to the migration package.
// Flush notifications are forwarded through server.NotifyFlush, so the
// FailureHandler itself is wired separately via server.SetFailureHandler.
func NewKeyspaceView(server *RedisServer) *KeyspaceView {
	return &KeyspaceView{server: server, index: server.importIndex}
}

func (v *KeyspaceView) IsImporting(slot migration.Slot) bool { return v.index.IsImporting(slot) }

func (v *KeyspaceView) BufferFor(slot migration.Slot) (*migration.ImportBuffer, bool) {
	return v.index.BufferFor(slot)
}

// PromoteSlot decodes every staged entry with storage.DecodeObject and
// installs it into the public keyspace of the buffer's target database,
// then forgets the slot's import-buffer association. The decode error is
// not propagated to a caller who has already committed to success at the
// FSM layer (the epoch has already been published); instead the entry is
// skipped and is not counted in the returned total.
func (v *KeyspaceView) PromoteSlot(slot migration.Slot) int {
	si, ok := v.index.end(slot)
	if !ok {
		return 0
	}
	db, err := v.server.GetDb(si.dbIndex)
	if err != nil {
		return 0
	}
	staged := si.buffer.Drain()
	n := 0
	for key, bv := range staged {
		obj, err := DecodeObject(bv.Value)
		if err != nil {
			continue
		}
		db.Set(key, obj)
		if bv.ExpireAt > 0 {
			db.ExpireAt(key, bv.ExpireAt)
		}
		n++
	}
	return n
}

// DiscardSlot drops a slot's staged writes without installing them.
func (v *KeyspaceView) DiscardSlot(slot migration.Slot) int {
	si, ok := v.index.end(slot)
	if !ok {
		return 0
	}
	return len(si.buffer.Drain())
}

// NotifyFlush forwards a local FLUSHDB/FLUSHALL to the FailureHandler, which
// fails any migration job touching dbIndex.
func (v *KeyspaceView) NotifyFlush(dbIndex int) {
	v.server.NotifyFlush(dbIndex)
}

// SnapshotSource adapts a RedisServer into migration.SnapshotSource: it
// enumerates every database's keys, restricted to the slots requested, and
// encodes each value with EncodeObject so the wire payload never carries a
// live *RedisObject across the SyncChannel.
type SnapshotSource struct {
	server *RedisServer
}

func NewSnapshotSource(server *RedisServer) *SnapshotSource {
	return &SnapshotSource{server: server}
}

func (s *SnapshotSource) IterateSlots(slots *migration.SlotSet, fn func(dbIndex int, key string, item migration.SnapshotItem) bool) error {
	for dbIndex := 0; dbIndex < s.server.GetDbNum(); dbIndex++ {
		db, err := s.server.GetDb(dbIndex)
		if err != nil {
			continue
		}
		for _, key := range db.Keys("*") {
			slot, ok := s.server.importIndex.slotOf(key)
			if !ok || !slots.ContainsSlot(slot) {
				continue
			}
			obj, err := db.Get(key)
			if err != nil {
				continue
			}
			payload, err := EncodeObject(obj)
			if err != nil {
				return err
			}
			ttl, _ := db.TTL(key)
			var expireAt int64
			if ttl > 0 {
				expireAt = nowUnix() + ttl
			}
			item := migration.SnapshotItem{Value: payload, ExpireAt: expireAt}
			if !fn(dbIndex, key, item) {
				return nil
			}
		}
	}
	return nil
}
