package migration

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeGate struct {
	paused   bool
	pauseErr error
}

func (g *fakeGate) Pause(reason string, deadline time.Duration) error {
	if g.pauseErr != nil {
		return g.pauseErr
	}
	g.paused = true
	return nil
}

func (g *fakeGate) Resume() error {
	g.paused = false
	return nil
}

type fakeVoter struct {
	epoch Epoch
	err   error
}

func (v *fakeVoter) RequestTakeover(slots *SlotSet, newOwner NodeID, force, takeover bool) (Epoch, error) {
	if v.err != nil {
		return 0, v.err
	}
	v.epoch++
	return v.epoch, nil
}

type fakePublisher struct {
	published bool
	epoch     Epoch
}

func (p *fakePublisher) PublishOwnership(slots *SlotSet, newOwner NodeID, epoch Epoch) error {
	p.published = true
	p.epoch = epoch
	return nil
}

func newExportJobForTest(t *testing.T) (*ExportJob, *fakeGate, *fakeVoter, *fakePublisher, *fakeEpochStore) {
	t.Helper()
	slots := mustSlots(t, 0, 10)
	gate := &fakeGate{}
	voter := &fakeVoter{}
	pub := &fakePublisher{}
	ownership := NewOwnershipTransfer(gate, voter, pub)
	epochs := newFakeEpochStore()
	job := NewExportJob(NewJobName(), slots, "src", "dst", 0, ownership, epochs, false, time.Second)
	return job, gate, voter, pub, epochs
}

func TestExportJobRequestPauseWithoutDebugHold(t *testing.T) {
	job, _, _, _, _ := newExportJobForTest(t)
	ok := job.RequestPause()
	require.True(t, ok)
	require.Equal(t, StateWaitingToPause, job.State())
}

func TestExportJobDebugHoldBlocksPauseTransitionSignal(t *testing.T) {
	slots := mustSlots(t, 0, 10)
	gate := &fakeGate{}
	ownership := NewOwnershipTransfer(gate, &fakeVoter{}, &fakePublisher{})
	job := NewExportJob(NewJobName(), slots, "src", "dst", 0, ownership, newFakeEpochStore(), true, time.Second)

	require.True(t, job.DebugHeld())
	ok := job.RequestPause()
	require.False(t, ok, "debug hold signals caller to wait even though the transition happens")
	require.Equal(t, StateWaitingToPause, job.State())

	job.ReleaseDebugHold()
	require.False(t, job.DebugHeld())
}

func TestExportJobEnterWaitingForPausedAcquiresGate(t *testing.T) {
	job, gate, _, _, _ := newExportJobForTest(t)
	var sent bool
	err := job.EnterWaitingForPaused(func() error { sent = true; return nil })
	require.NoError(t, err)
	require.True(t, sent)
	require.True(t, gate.paused)
	require.True(t, job.OwnsPause)
	require.Equal(t, StateWaitingForPaused, job.State())
}

func TestExportJobEnterWaitingForPausedFailsOnGateError(t *testing.T) {
	job, gate, _, _, _ := newExportJobForTest(t)
	gate.pauseErr = errors.New("busy")
	err := job.EnterWaitingForPaused(func() error { return nil })
	require.Error(t, err)
	require.Equal(t, StateFailed, job.State())
	require.Equal(t, MsgUnpausedBeforeDone, job.Message())
}

func TestExportJobFullHandoffSequence(t *testing.T) {
	job, gate, _, pub, epochs := newExportJobForTest(t)
	require.NoError(t, job.EnterWaitingForPaused(func() error { return nil }))
	require.NoError(t, job.OnPausedAck(func() error { return nil }))
	job.OnFailoverGranted()
	require.Equal(t, StateFailoverGranted, job.State())

	epoch, err := job.PublishEpoch("dst")
	require.NoError(t, err)
	require.True(t, pub.published)
	require.Equal(t, StateWritingEpoch, job.State())

	purged := false
	for _, s := range job.SlotRanges.Slots() {
		epochs.set(s, epoch)
	}
	ok := job.OnEpochObservedLocally(epoch, func() { purged = true })
	require.True(t, ok)
	require.True(t, purged)
	require.False(t, gate.paused, "write pause must be released on completion")
	require.Equal(t, StateSuccess, job.State())
}

func TestExportJobCancelIsIdempotentAndReleasesPause(t *testing.T) {
	job, gate, _, _, _ := newExportJobForTest(t)
	require.NoError(t, job.EnterWaitingForPaused(func() error { return nil }))
	require.True(t, gate.paused)

	job.Cancel("operator requested")
	require.Equal(t, StateCancelled, job.State())
	require.False(t, gate.paused)

	job.Cancel("second call should be a no-op")
	require.Equal(t, StateCancelled, job.State())
	require.Equal(t, "operator requested", job.Message())
}

func TestExportJobOnPauseDeadlineExceeded(t *testing.T) {
	job, gate, _, _, _ := newExportJobForTest(t)
	require.NoError(t, job.EnterWaitingForPaused(func() error { return nil }))

	job.OnPauseDeadlineExceeded()
	require.Equal(t, StateFailed, job.State())
	require.Equal(t, MsgUnpausedBeforeDone, job.Message())
	require.False(t, gate.paused)
}

func TestExportJobFailurePathsReleasePause(t *testing.T) {
	t.Run("flush", func(t *testing.T) {
		job, gate, _, _, _ := newExportJobForTest(t)
		require.NoError(t, job.EnterWaitingForPaused(func() error { return nil }))
		job.OnFlush()
		require.Equal(t, StateFailed, job.State())
		require.False(t, gate.paused)
	})
	t.Run("demoted", func(t *testing.T) {
		job, gate, _, _, _ := newExportJobForTest(t)
		require.NoError(t, job.EnterWaitingForPaused(func() error { return nil }))
		job.OnDemoted()
		require.Equal(t, StateFailed, job.State())
		require.False(t, gate.paused)
	})
	t.Run("slots reassigned", func(t *testing.T) {
		job, gate, _, _, _ := newExportJobForTest(t)
		require.NoError(t, job.EnterWaitingForPaused(func() error { return nil }))
		job.OnSlotsReassigned()
		require.Equal(t, StateFailed, job.State())
		require.False(t, gate.paused)
	})
}

func TestExportJobReadyForPause(t *testing.T) {
	job, _, _, _, _ := newExportJobForTest(t)
	require.True(t, job.ReadyForPause(0))
}
