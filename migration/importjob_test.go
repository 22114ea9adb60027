package migration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEpochStore struct {
	epochs map[Slot]Epoch
}

func newFakeEpochStore() *fakeEpochStore {
	return &fakeEpochStore{epochs: make(map[Slot]Epoch)}
}

func (f *fakeEpochStore) EpochFor(s Slot) Epoch { return f.epochs[s] }

func (f *fakeEpochStore) set(s Slot, e Epoch) { f.epochs[s] = e }

func newImportJobForTest(t *testing.T) (*ImportJob, *fakeEpochStore) {
	t.Helper()
	slots := mustSlots(t, 0, 10)
	epochs := newFakeEpochStore()
	job := NewImportJob(NewJobName(), slots, "src", "dst", 0, epochs)
	return job, epochs
}

func TestImportJobHappyPath(t *testing.T) {
	job, epochs := newImportJobForTest(t)
	require.Equal(t, StateWaitingForEstablish, job.State())

	job.OnEstablishAccepted()
	require.Equal(t, StateReceivingSnapshot, job.State())

	job.OnSnapshotEOF()
	require.Equal(t, StateReceivingIncremental, job.State())
	require.True(t, job.SnapshotDone)

	for _, s := range job.SlotRanges.Slots() {
		epochs.set(s, 5)
	}
	var promoted *ImportBuffer
	ok := job.OnEpochObserved(5, func(buf *ImportBuffer) { promoted = buf })
	require.True(t, ok)
	require.Equal(t, StateSuccess, job.State())
	require.Same(t, job.Buffer, promoted)
}

func TestImportJobOnEpochObservedWaitsForEverySlot(t *testing.T) {
	job, epochs := newImportJobForTest(t)
	job.OnEstablishAccepted()
	job.OnSnapshotEOF()

	epochs.set(0, 5)
	// slot 1..10 still behind
	ok := job.OnEpochObserved(5, func(*ImportBuffer) {})
	require.False(t, ok)
	require.Equal(t, StateReceivingIncremental, job.State())
}

func TestImportJobOnRequestPauseRequiresDrainedAndRightState(t *testing.T) {
	job, _ := newImportJobForTest(t)
	require.False(t, job.OnRequestPause(true), "wrong state should refuse")

	job.OnEstablishAccepted()
	job.OnSnapshotEOF()
	require.False(t, job.OnRequestPause(false), "not drained should refuse")
	require.True(t, job.OnRequestPause(true))
}

func TestImportJobFailureTransitionsAreTerminalAndSticky(t *testing.T) {
	job, _ := newImportJobForTest(t)
	job.OnFlush()
	require.Equal(t, StateFailed, job.State())
	require.Equal(t, MsgDataFlushed, job.Message())

	// terminal: a later event must not override it
	job.OnConnectionLost()
	require.Equal(t, MsgDataFlushed, job.Message())
}

func TestImportJobReplayAsOccurringOnPrimary(t *testing.T) {
	job, _ := newImportJobForTest(t)
	job.OnEstablishAccepted()
	job.ReplayAsOccurringOnPrimary()
	require.Equal(t, StateOccurringOnPrimary, job.State())

	job.Finish(StateSuccess, "")
	job2, _ := newImportJobForTest(t)
	job2.Finish(StateFailed, "boom")
	job2.ReplayAsOccurringOnPrimary()
	require.Equal(t, StateFailed, job2.State(), "terminal state must not be overwritten by replay")
}
