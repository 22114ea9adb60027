package migration

import "time"

/*
 * ============================================================================
 * ImportJob FSM (C7) - 目标侧状态机
 * ============================================================================
 *
 * States: waiting-for-establish -> receiving-snapshot -> receiving-incremental
 *         -> success | failed | cancelled
 * (occurring-on-primary is a replica-only informational state set by
 * ReplayAsOccurringOnPrimary. No replay path calls it: AOF replay
 * (server.cmdClusterReplaySyncSlotsState) restores terminal entries only.)
 *
 * ImportJob 方法都是事件驱动的转移：每个公开方法对应 spec.md §4.7 里的一条
 * transition。调用方（cluster 包里读取 SyncChannel 的 goroutine）负责在收到
 * 对应的 wire 事件时调用它们；FSM 本身不拥有网络连接。
 */

// ImportJob is the target-side state machine for one migration.
type ImportJob struct {
	*Job
	Buffer *ImportBuffer
	epochs EpochStore
}

// NewImportJob constructs an ImportJob for an accepted ESTABLISH. Its
// caller, cluster.MigrationController.acceptEstablish, parses the ESTABLISH
// arguments and registers the job (RegisterImport rejects slot overlap); it
// does not check slot ownership, the primary role, or whether the source is
// a known node.
func NewImportJob(name JobName, slots *SlotSet, source, target NodeID, dbIndex int, epochs EpochStore) *ImportJob {
	job := NewJob(name, RoleImport, slots, source, target, dbIndex)
	return &ImportJob{
		Job:    job,
		Buffer: NewImportBuffer(name),
		epochs: epochs,
	}
}

// OnEstablishAccepted transitions from waiting-for-establish to
// receiving-snapshot once ESTABLISH validation at the registry succeeds.
func (j *ImportJob) OnEstablishAccepted() {
	j.Transition(StateReceivingSnapshot)
}

// OnSnapshotEOF transitions to receiving-incremental.
func (j *ImportJob) OnSnapshotEOF() {
	j.mu.Lock()
	j.SnapshotDone = true
	j.mu.Unlock()
	j.Transition(StateReceivingIncremental)
}

// OnRequestPause responds to the source's REQUEST-PAUSE. The caller must
// have already confirmed every byte sent under the source's pre-pause
// commit order has been drained (applied to the ImportBuffer) before
// calling this; ImportJob stays in receiving-incremental regardless —
// it only moves on FAILOVER-GRANTED being sent by it, per spec.md §4.7.
func (j *ImportJob) OnRequestPause(drained bool) bool {
	return drained && j.State() == StateReceivingIncremental
}

// OnEpochObserved promotes the ImportBuffer into the visible keyspace and
// completes the job once this node's own epoch view reaches target for
// every migrated slot.
func (j *ImportJob) OnEpochObserved(target Epoch, promote func(*ImportBuffer)) bool {
	for _, s := range j.SlotRanges.Slots() {
		if j.epochs == nil || j.epochs.EpochFor(s) < target {
			return false
		}
	}
	promote(j.Buffer)
	j.Finish(StateSuccess, "")
	return true
}

// OnFlush fails the job when FLUSHDB/FLUSHALL runs locally during import.
func (j *ImportJob) OnFlush() {
	j.Finish(StateFailed, MsgDataFlushed)
}

// OnTargetFailover fails the job when this primary (or one of its
// replicas) undergoes a failover mid-import; partial ImportBuffer contents
// are dropped by the caller via Buffer.Drain().
func (j *ImportJob) OnTargetFailover() {
	j.Finish(StateFailed, MsgFailoverDuringImport)
}

// OnOOM fails the job when maxmemory is exceeded by actual applied data
// during incremental apply.
func (j *ImportJob) OnOOM() {
	j.Finish(StateFailed, MsgOOM)
}

// OnSourceLostSlots fails the job when gossip reports the source no longer
// owns the slots being imported.
func (j *ImportJob) OnSourceLostSlots() {
	j.Finish(StateFailed, MsgSlotsNoLongerOwnedHere)
}

// OnConnectionLost fails the job when the SyncChannel drops.
func (j *ImportJob) OnConnectionLost() {
	j.Finish(StateFailed, MsgConnLostToSource)
}

// ReplayAsOccurringOnPrimary moves a non-terminal import into the
// replica-only informational state (spec.md §6): a replica never executes
// the import itself, only mirrors that one is in progress on its primary.
// Terminal jobs are left as they are. Nothing outside the tests calls it.
func (j *ImportJob) ReplayAsOccurringOnPrimary() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.IsTerminal() {
		return
	}
	j.state = StateOccurringOnPrimary
	j.LastStateChangeAt = time.Now()
}
