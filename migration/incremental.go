package migration

import (
	"bytes"
	"encoding/gob"
	"sync"
)

/*
 * ============================================================================
 * IncrementalReplicator - SNAPSHOT-EOF 之后的增量流
 * ============================================================================
 *
 * 快照截止之后，源节点把每一条命中 job.SlotRanges 的已提交写入按提交顺序转发
 * 给目标节点。多语句事务作为连续批次到达；对同一个 key 的多次更新之间的顺序
 * 必须保持（P5）。这里用一个有序队列建模"提交顺序"，而不是依赖网络层的到达
 * 顺序——它本身就是从源节点的提交日志里按顺序出队的。
 */

// WrittenCommand is one committed write (or delete) observed by the source
// that touches a migrating slot.
type WrittenCommand struct {
	DBIndex int
	Key     string
	Item    SnapshotItem
	Deleted bool
	TxnID   uint64 // groups a MULTI/EXEC batch; 0 means "not part of a transaction"
}

// IncrementalReplicator is the source-side ordered queue of writes pending
// transfer to the target for one migration (C6).
type IncrementalReplicator struct {
	mu      sync.Mutex
	slots   *SlotSet
	pending []WrittenCommand
	tail    uint64 // monotonically increasing sequence of enqueued commands
}

func NewIncrementalReplicator(slots *SlotSet) *IncrementalReplicator {
	return &IncrementalReplicator{slots: slots}
}

// Observe is the hook the storage engine's write path calls for every
// committed write, regardless of slot; the replicator itself applies the
// slot filter so call sites don't need to know about migrations at all.
func (r *IncrementalReplicator) Observe(cmd WrittenCommand, slot Slot) {
	if !r.slots.ContainsSlot(slot) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, cmd)
	r.tail++
}

// Tail returns the sequence number of the most recently enqueued command,
// used by the export FSM to decide when the target's incremental position
// has caught up to the source's tail before requesting pause.
func (r *IncrementalReplicator) Tail() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tail
}

// Pending reports how many commands are queued and not yet drained.
func (r *IncrementalReplicator) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Drain removes and encodes up to n pending commands, preserving order. A
// transaction's commands are never split across two Drain calls: if the
// batch boundary would fall inside a non-zero TxnID run, Drain extends the
// batch to include the whole transaction.
func (r *IncrementalReplicator) Drain(n int) ([]byte, int, error) {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.mu.Unlock()
		return nil, 0, nil
	}
	if n > len(r.pending) {
		n = len(r.pending)
	}
	end := n
	if end < len(r.pending) && r.pending[end-1].TxnID != 0 {
		txn := r.pending[end-1].TxnID
		for end < len(r.pending) && r.pending[end].TxnID == txn {
			end++
		}
	}
	batch := append([]WrittenCommand(nil), r.pending[:end]...)
	r.pending = r.pending[end:]
	r.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(batch); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(batch), nil
}

// AsChunker drains the queue in bounded slices, emitting each encoded batch
// via emit, and reports "done" once nothing is pending. Writes captured
// after that are not drained by the same chunker.
func (r *IncrementalReplicator) AsChunker(batchSize int, emit func([]byte) error) *Chunker {
	return NewChunker(func() (bool, error) {
		if r.Pending() == 0 {
			return true, nil
		}
		chunk, _, err := r.Drain(batchSize)
		if err != nil {
			return true, err
		}
		if len(chunk) > 0 {
			if err := emit(chunk); err != nil {
				return true, err
			}
		}
		return r.Pending() == 0, nil
	})
}

// IncrementalApplier is the target-side counterpart: it decodes batches
// IncrementalReplicator produced and applies them to a WriteApplier (the
// ImportBuffer), in the same order they were encoded.
type IncrementalApplier struct {
	applier  WriteApplier
	position uint64
}

func NewIncrementalApplier(applier WriteApplier) *IncrementalApplier {
	return &IncrementalApplier{applier: applier}
}

// Apply decodes and applies one batch, advancing the applier's position by
// the number of commands applied.
func (a *IncrementalApplier) Apply(chunk []byte) (int, error) {
	dec := gob.NewDecoder(bytes.NewReader(chunk))
	var batch []WrittenCommand
	if err := dec.Decode(&batch); err != nil {
		return 0, ErrSnapshotDecode
	}
	for _, cmd := range batch {
		if cmd.Deleted {
			a.applier.ApplyDelete(cmd.DBIndex, cmd.Key)
		} else {
			a.applier.ApplyWrite(cmd.DBIndex, cmd.Key, cmd.Item)
		}
	}
	a.position += uint64(len(batch))
	return len(batch), nil
}

// Position reports how many commands have been applied so far.
func (a *IncrementalApplier) Position() uint64 { return a.position }
