package migration

import (
	"sync"
	"time"
)

// FailureKind classifies why a migration job terminated, per the taxonomy
// in the error handling design: protocol, pre-condition, transient infra,
// policy, topology, user cancellation, auth, connect.
type FailureKind int

const (
	FailureProtocol FailureKind = iota
	FailurePrecondition
	FailureTransient
	FailurePolicy
	FailureTopology
	FailureCancelled
	FailureAuth
	FailureConnect
)

// Failure is the explicit result type that replaces exceptions: every fatal
// condition in the migration subsystem is represented as a Failure carrying
// a kind and a human-readable reason suitable for Job.message.
type Failure struct {
	Kind    FailureKind
	Reason  string
}

func (f *Failure) Error() string { return f.Reason }

func NewFailure(kind FailureKind, reason string) *Failure {
	return &Failure{Kind: kind, Reason: reason}
}

// Canonical terminal messages named by the spec. Kept as constants so every
// call site spells them identically (CLUSTER GETSLOTMIGRATIONS and the test
// suite both depend on exact text).
const (
	MsgDataFlushed             = "Data was flushed"
	MsgFailoverDuringImport    = "A failover occurred during slot import"
	MsgOOM                     = "OOM"
	MsgSlotsNoLongerOwnedHere  = "Slots are no longer owned by source node"
	MsgConnLostToSource        = "Connection lost to source"
	MsgConnLostToTarget        = "Connection lost to target"
	MsgTimedOut                = "Timed out after too long with no interaction"
	MsgUnpausedBeforeDone      = "Unpaused before migration completed"
	MsgDemotedToReplica        = "I was demoted to a replica"
	MsgSlotsNoLongerOwnedSelf  = "Slots are no longer owned by myself"
	MsgSlotsReassigned         = "Slots are no longer owned by myself (reassigned by a topology update)"
	MsgAuthFailed              = "Failed to AUTH to target node"
)

// IsSlotsNoLongerOwnedBySelf accepts either of the two spec-sanctioned
// messages for the "source demotes or loses ownership" path (spec.md §9,
// Open Question: the exact reset-epoch message is described only by
// example).
func IsSlotsNoLongerOwnedBySelf(message string) bool {
	return message == MsgSlotsNoLongerOwnedSelf || message == MsgSlotsReassigned
}

// FailureHandler (C10) watches external events — connection loss, peer
// liveness, topology updates, local flush/failover, buffer overflow — and
// maps each one to a terminal job transition. Failures are never retried at
// this layer; the operator must re-issue the migration.
type FailureHandler struct {
	mu           sync.Mutex
	registry     *Registry
	livenessEvery time.Duration
}

// NewFailureHandler wires a handler to the registry whose jobs it watches.
func NewFailureHandler(registry *Registry) *FailureHandler {
	return &FailureHandler{registry: registry, livenessEvery: time.Second}
}

// CheckLiveness fails any non-terminal job whose SyncChannel has been silent
// longer than timeout. Called once per tick from
// cluster.MigrationController.maintenanceLoop, one goroutine for all jobs.
func (h *FailureHandler) CheckLiveness(timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, job := range h.registry.List() {
		if job.State().IsTerminal() {
			continue
		}
		if job.Silence() > timeout {
			job.Finish(StateFailed, MsgTimedOut)
			h.registry.promoteToLog(job)
		}
	}
}

// OnConnectionLost fails the job owning name with the appropriate
// connection-loss message for this node's role in the migration.
func (h *FailureHandler) OnConnectionLost(name JobName) {
	job, ok := h.registry.GetByName(name)
	if !ok || job.State().IsTerminal() {
		return
	}
	if job.Role == RoleImport {
		job.Finish(StateFailed, MsgConnLostToSource)
	} else {
		job.Finish(StateFailed, MsgConnLostToTarget)
	}
	h.registry.promoteToLog(job)
}

// OnFlush is invoked by the storage engine whenever FLUSHDB/FLUSHALL
// executes locally (any variant). Every non-terminal job of either role
// whose DBIndex is the flushed database moves to failed with "Data was
// flushed", an externally observable outcome distinct from a
// FailureHandler-initiated timeout.
func (h *FailureHandler) OnFlush(dbIndex int) {
	for _, job := range h.registry.List() {
		if job.DBIndex != dbIndex || job.State().IsTerminal() {
			continue
		}
		job.Finish(StateFailed, MsgDataFlushed)
		h.registry.promoteToLog(job)
	}
}

// OnTargetFailover fails every import job on this node (a target primary or
// one of its replicas) when a failover occurs mid-import.
func (h *FailureHandler) OnTargetFailover() {
	for _, job := range h.registry.List() {
		if job.Role != RoleImport || job.State().IsTerminal() {
			continue
		}
		job.Finish(StateFailed, MsgFailoverDuringImport)
		h.registry.promoteToLog(job)
	}
}

// OnSourceDemoted fails every export job when this node is demoted from
// primary to replica mid-migration.
func (h *FailureHandler) OnSourceDemoted() {
	for _, job := range h.registry.List() {
		if job.Role != RoleExport || job.State().IsTerminal() {
			continue
		}
		job.Finish(StateFailed, MsgDemotedToReplica)
		h.registry.promoteToLog(job)
	}
}

// OnTopologyChange fails an export job whose source no longer owns its
// slots, or an import job whose source no longer owns the slots it was
// importing, per an observed gossip update.
func (h *FailureHandler) OnTopologyChange(name JobName, sourceStillOwns bool) {
	job, ok := h.registry.GetByName(name)
	if !ok || job.State().IsTerminal() {
		return
	}
	if sourceStillOwns {
		return
	}
	if job.Role == RoleExport {
		job.Finish(StateFailed, MsgSlotsNoLongerOwnedSelf)
	} else {
		job.Finish(StateFailed, MsgSlotsNoLongerOwnedHere)
	}
	h.registry.promoteToLog(job)
}

// OnOOM fails a target-side import job when maxmemory is exceeded by actual
// data growth during incremental apply. Client/sync-channel buffers must
// never be the trigger; callers are responsible for only invoking this once
// they've confirmed the growth came from applied keys.
func (h *FailureHandler) OnOOM(name JobName) {
	job, ok := h.registry.GetByName(name)
	if !ok || job.State().IsTerminal() {
		return
	}
	job.Finish(StateFailed, MsgOOM)
	h.registry.promoteToLog(job)
}

// OnBufferOverflow fails a source-side export job whose staged outbound
// bytes to the target exceeded the configured replica-class client output
// buffer limit.
func (h *FailureHandler) OnBufferOverflow(name JobName) {
	job, ok := h.registry.GetByName(name)
	if !ok || job.State().IsTerminal() {
		return
	}
	job.Finish(StateFailed, MsgConnLostToTarget)
	h.registry.promoteToLog(job)
}

// CancelAll moves every non-terminal job on this node to cancelled. Idempotent:
// a second call observes only already-terminal jobs and does nothing.
func (h *FailureHandler) CancelAll(reason string) int {
	n := 0
	for _, job := range h.registry.List() {
		if job.State().IsTerminal() {
			continue
		}
		job.Finish(StateCancelled, reason)
		h.registry.promoteToLog(job)
		n++
	}
	return n
}
