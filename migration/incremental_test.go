package migration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustSlotSet(t *testing.T, start, end Slot) *SlotSet {
	t.Helper()
	s, err := NewSlotSet(SlotRange{Start: start, End: end})
	require.NoError(t, err)
	return s
}

func TestIncrementalReplicatorObserveFiltersBySlot(t *testing.T) {
	slots := mustSlotSet(t, 0, 10)
	r := NewIncrementalReplicator(slots)

	r.Observe(WrittenCommand{Key: "in-range"}, 5)
	r.Observe(WrittenCommand{Key: "out-of-range"}, 500)

	require.Equal(t, 1, r.Pending())
	require.Equal(t, uint64(1), r.Tail())
}

func TestIncrementalReplicatorDrainRoundTripsThroughApplier(t *testing.T) {
	slots := mustSlotSet(t, 0, 10)
	r := NewIncrementalReplicator(slots)

	r.Observe(WrittenCommand{DBIndex: 0, Key: "a", Item: SnapshotItem{Value: []byte("1")}}, 1)
	r.Observe(WrittenCommand{DBIndex: 0, Key: "b", Deleted: true}, 2)

	chunk, n, err := r.Drain(10)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 0, r.Pending())

	applier := &fakeApplier{}
	ia := NewIncrementalApplier(applier)
	applied, err := ia.Apply(chunk)
	require.NoError(t, err)
	require.Equal(t, 2, applied)
	require.Equal(t, uint64(2), ia.Position())
	require.Equal(t, []wireEntry{{DBIndex: 0, Key: "a", Item: SnapshotItem{Value: []byte("1")}}}, applier.writes)
	require.Equal(t, []string{"b"}, applier.deletes)
}

func TestIncrementalReplicatorDrainKeepsTransactionBatchesTogether(t *testing.T) {
	slots := mustSlotSet(t, 0, 10)
	r := NewIncrementalReplicator(slots)

	r.Observe(WrittenCommand{Key: "a", TxnID: 7}, 1)
	r.Observe(WrittenCommand{Key: "b", TxnID: 7}, 2)
	r.Observe(WrittenCommand{Key: "c", TxnID: 7}, 3)
	r.Observe(WrittenCommand{Key: "d"}, 4)

	// Ask for 2 commands, which would otherwise split the TxnID=7 batch
	// across two Drain calls; Drain must extend to the whole transaction.
	chunk, n, err := r.Drain(2)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 1, r.Pending())

	applier := &fakeApplier{}
	ia := NewIncrementalApplier(applier)
	_, err = ia.Apply(chunk)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, keysOf(applier.writes))
}

func TestIncrementalReplicatorDrainOnEmptyQueueIsNoop(t *testing.T) {
	slots := mustSlotSet(t, 0, 10)
	r := NewIncrementalReplicator(slots)

	chunk, n, err := r.Drain(10)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Nil(t, chunk)
}

func TestIncrementalApplierApplyRejectsGarbage(t *testing.T) {
	ia := NewIncrementalApplier(&fakeApplier{})
	_, err := ia.Apply([]byte("not a gob stream"))
	require.ErrorIs(t, err, ErrSnapshotDecode)
}

func TestIncrementalReplicatorAsChunkerDrainsUntilEmpty(t *testing.T) {
	slots := mustSlotSet(t, 0, 10)
	r := NewIncrementalReplicator(slots)
	for i := 0; i < 5; i++ {
		r.Observe(WrittenCommand{Key: "k"}, 1)
	}

	applier := &fakeApplier{}
	ia := NewIncrementalApplier(applier)
	emitCalls := 0
	chunker := r.AsChunker(2, func(chunk []byte) error {
		emitCalls++
		_, err := ia.Apply(chunk)
		return err
	})
	require.NoError(t, RunToCompletion(chunker, nil))
	require.Equal(t, 3, emitCalls) // 2 + 2 + 1
	require.Equal(t, 5, len(applier.writes))
	require.Equal(t, 0, r.Pending())
}

func keysOf(entries []wireEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}
