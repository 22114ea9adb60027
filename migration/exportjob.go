package migration

import "time"

/*
 * ============================================================================
 * ExportJob FSM (C8) - 源侧状态机
 * ============================================================================
 *
 * States: receiving-snapshot(initial, implicit via the Job) -> waiting-to-pause
 *         -> waiting-for-paused -> failover-granted -> writing-epoch -> success
 *         | failed | cancelled
 *
 * ExportJob 编排 OwnershipTransfer（写暂停 + 投票接管 + 发布）并驱动
 * IncrementalReplicator 何时认为"目标已追上"。
 */

// ExportJob is the source-side state machine for one migration.
type ExportJob struct {
	*Job
	Incremental *IncrementalReplicator
	Ownership   *OwnershipTransfer
	epochs      EpochStore

	debugHoldBeforePause bool
	pauseDeadline        time.Duration
}

// NewExportJob constructs an ExportJob. debugHold, when true, keeps the job
// parked in waiting-to-pause until ReleaseDebugHold is called — the debug
// hook named in spec.md §4.8, used by cancel-mid-snapshot style tests.
func NewExportJob(name JobName, slots *SlotSet, source, target NodeID, dbIndex int, ownership *OwnershipTransfer, epochs EpochStore, debugHold bool, pauseDeadline time.Duration) *ExportJob {
	job := NewJob(name, RoleExport, slots, source, target, dbIndex)
	return &ExportJob{
		Job:                  job,
		Incremental:          NewIncrementalReplicator(slots),
		Ownership:            ownership,
		epochs:               epochs,
		debugHoldBeforePause: debugHold,
		pauseDeadline:        pauseDeadline,
	}
}

// ReadyForPause reports whether there are no pending client writes to
// migrating slots (the incremental queue is drained) and the target's
// reported incremental position equals the source's tail.
func (j *ExportJob) ReadyForPause(targetPosition uint64) bool {
	return j.Incremental.Pending() == 0 && targetPosition == j.Incremental.Tail()
}

// RequestPause moves the job to waiting-to-pause once snapshot+incremental
// are flowing, honoring the debug hold if it is still engaged.
func (j *ExportJob) RequestPause() bool {
	if j.debugHoldBeforePause {
		j.Transition(StateWaitingToPause)
		return false
	}
	return j.Transition(StateWaitingToPause)
}

// ReleaseDebugHold clears the debug hook so the FSM can proceed past
// waiting-to-pause.
func (j *ExportJob) ReleaseDebugHold() { j.debugHoldBeforePause = false }

// DebugHeld reports whether the debug hook is still engaged.
func (j *ExportJob) DebugHeld() bool { return j.debugHoldBeforePause }

// EnterWaitingForPaused acquires the cluster write-pause and sends
// REQUEST-PAUSE, moving to waiting-for-paused.
func (j *ExportJob) EnterWaitingForPaused(sendRequestPause func() error) error {
	if err := j.Ownership.PauseWrites(j.pauseDeadline); err != nil {
		j.Finish(StateFailed, MsgUnpausedBeforeDone)
		return err
	}
	j.mu.Lock()
	j.OwnsPause = true
	j.mu.Unlock()
	if err := sendRequestPause(); err != nil {
		return err
	}
	j.Transition(StateWaitingForPaused)
	return nil
}

// OnPausedAck handles the target's PAUSED reply by sending REQUEST-FAILOVER.
// It does not change state; OnFailoverGranted moves the job to
// failover-granted once the target grants it.
func (j *ExportJob) OnPausedAck(sendRequestFailover func() error) error {
	if j.State() != StateWaitingForPaused {
		return nil
	}
	return sendRequestFailover()
}

// OnFailoverGranted moves the job to failover-granted.
func (j *ExportJob) OnFailoverGranted() {
	j.Transition(StateFailoverGranted)
}

// PublishEpoch publishes the new ownership at a bumped epoch and moves to
// writing-epoch.
func (j *ExportJob) PublishEpoch(newOwner NodeID) (Epoch, error) {
	epoch, err := j.Ownership.RequestTakeover(j.SlotRanges, newOwner, false, false)
	if err != nil {
		return 0, err
	}
	if err := j.Ownership.PublishOwnership(j.SlotRanges, newOwner, epoch); err != nil {
		return 0, err
	}
	j.Transition(StateWritingEpoch)
	return epoch, nil
}

// OnEpochObservedLocally completes the job once this node's own view shows
// the new epoch for every migrated slot, and purges the migrated keys.
func (j *ExportJob) OnEpochObservedLocally(target Epoch, purge func()) bool {
	if j.epochs == nil {
		return false
	}
	for _, s := range j.SlotRanges.Slots() {
		if j.epochs.EpochFor(s) < target {
			return false
		}
	}
	purge()
	j.Ownership.ResumeWrites()
	j.Finish(StateSuccess, "")
	return true
}

// OnPauseDeadlineExceeded fails the job when write-pause outlives its
// deadline without completing the handoff.
func (j *ExportJob) OnPauseDeadlineExceeded() {
	j.Ownership.ResumeWrites()
	j.Finish(StateFailed, MsgUnpausedBeforeDone)
}

// Cancel releases the pause immediately (if held) and cancels the job. Safe
// to call more than once: the second call observes a terminal state and
// does nothing (RT2 idempotence).
func (j *ExportJob) Cancel(reason string) {
	if j.State().IsTerminal() {
		return
	}
	j.mu.RLock()
	ownsPause := j.OwnsPause
	j.mu.RUnlock()
	if ownsPause {
		j.Ownership.ResumeWrites()
	}
	j.Finish(StateCancelled, reason)
}

// OnFlush fails the job when FLUSHDB/FLUSHALL runs locally on the source.
func (j *ExportJob) OnFlush() {
	j.Ownership.ResumeWrites()
	j.Finish(StateFailed, MsgDataFlushed)
}

// OnDemoted fails the job when this source becomes a replica mid-flight.
func (j *ExportJob) OnDemoted() {
	j.Ownership.ResumeWrites()
	j.Finish(StateFailed, MsgDemotedToReplica)
}

// OnSlotsReassigned fails the job when another node takes the slots
// mid-flight (a topology update observed independent of this migration).
func (j *ExportJob) OnSlotsReassigned() {
	j.Ownership.ResumeWrites()
	j.Finish(StateFailed, MsgSlotsNoLongerOwnedSelf)
}
