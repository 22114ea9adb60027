package migration

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NodeID is the 40-byte opaque identifier of a cluster member, unchanged
// across the system's lifetime.
type NodeID string

// Epoch is a monotonically nondecreasing counter carried by gossip. Only
// monotonic comparison is meaningful; the absolute value carries no
// semantics of its own.
type Epoch uint64

// JobName globally and permanently identifies a migration job. Names are
// never reused, so a terminal job's name can be safely logged forever.
type JobName string

// NewJobName mints a fresh, globally unique job name: 40 hex characters,
// the same shape as the teacher's node ids, taken from the random bytes of
// two uuids (all 16 of the first, 4 of the second).
func NewJobName() JobName {
	a, b := uuid.New(), uuid.New()
	return JobName(hex.EncodeToString(a[:]) + hex.EncodeToString(b[:4]))
}

// Role distinguishes which side of a migration this job represents.
type Role int

const (
	RoleImport Role = iota
	RoleExport
)

func (r Role) String() string {
	if r == RoleImport {
		return "IMPORT"
	}
	return "EXPORT"
}

// ParseRole is String's inverse, used when reconstructing a job's role from
// its AOF/GETSLOTMIGRATIONS textual form.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "IMPORT":
		return RoleImport, true
	case "EXPORT":
		return RoleExport, true
	default:
		return 0, false
	}
}

// State is a FSM state shared by the import and export state machines.
// Not every state is reachable by every role; see importjob.go/exportjob.go.
type State int

const (
	StateWaitingForEstablish State = iota
	StateReceivingSnapshot
	StateWaitingForPaused
	StateReceivingIncremental
	StateOccurringOnPrimary
	StateWaitingToPause
	StateFailoverGranted
	StateWritingEpoch
	StateSuccess
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateWaitingForEstablish:
		return "waiting-for-establish"
	case StateReceivingSnapshot:
		return "receiving-snapshot"
	case StateWaitingForPaused:
		return "waiting-for-paused"
	case StateReceivingIncremental:
		return "receiving-incremental"
	case StateOccurringOnPrimary:
		return "occurring-on-primary"
	case StateWaitingToPause:
		return "waiting-to-pause"
	case StateFailoverGranted:
		return "failover-granted"
	case StateWritingEpoch:
		return "writing-epoch"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseState is String's inverse, used when reconstructing a job's state
// from its AOF textual form. Only terminal states round-trip meaningfully;
// see Registry.ReplayTerminalEntry.
func ParseState(s string) (State, bool) {
	switch s {
	case "success":
		return StateSuccess, true
	case "failed":
		return StateFailed, true
	case "cancelled":
		return StateCancelled, true
	default:
		return 0, false
	}
}

// IsTerminal reports whether s is one of success/failed/cancelled. Terminal
// states are append-only: no FSM transition ever leaves one.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFailed || s == StateCancelled
}

// Job is the MigrationJob entity from the spec: one per (source, target,
// slot set), shared in shape by ImportJob and ExportJob.
type Job struct {
	mu sync.RWMutex

	Name       JobName
	Role       Role
	SlotRanges *SlotSet
	SourceNode NodeID
	TargetNode NodeID

	state             State
	CreatedAt         time.Time
	LastStateChangeAt time.Time
	lastAckAt         time.Time

	message string

	OwnsPause    bool
	SnapshotDone bool
	DBIndex      int
}

// NewJob constructs a job in its initial state for its role.
func NewJob(name JobName, role Role, slots *SlotSet, source, target NodeID, dbIndex int) *Job {
	now := time.Now()
	initial := StateWaitingForEstablish
	if role == RoleExport {
		initial = StateReceivingSnapshot
	}
	return &Job{
		Name:              name,
		Role:              role,
		SlotRanges:        slots,
		SourceNode:        source,
		TargetNode:        target,
		state:             initial,
		CreatedAt:         now,
		LastStateChangeAt: now,
		lastAckAt:         now,
		DBIndex:           dbIndex,
	}
}

// State returns the job's current FSM state.
func (j *Job) State() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// Message returns the human-readable terminal reason, if any.
func (j *Job) Message() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.message
}

// Transition moves the job to a new state. Transitioning out of a terminal
// state is a programming error in the caller; Transition refuses it rather
// than silently corrupting the append-only guarantee.
func (j *Job) Transition(next State) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.IsTerminal() {
		return false
	}
	j.state = next
	j.LastStateChangeAt = time.Now()
	return true
}

// Finish transitions the job to a terminal state with a message. Calling it
// twice is a no-op on the second call (terminal states are append-only).
func (j *Job) Finish(final State, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.IsTerminal() {
		return
	}
	j.state = final
	j.message = message
	j.LastStateChangeAt = time.Now()
}

// Touch records peer activity, resetting the liveness timer.
func (j *Job) Touch() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastAckAt = time.Now()
}

// LastAck returns the last time peer activity was observed.
func (j *Job) LastAck() time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastAckAt
}

// Silence returns how long it has been since the last observed activity.
func (j *Job) Silence() time.Duration {
	return time.Since(j.LastAck())
}

// Snapshot is an immutable, race-free view of a job's public fields, used
// for CLUSTER GETSLOTMIGRATIONS and for structured logging.
type Snapshot struct {
	Name             JobName
	Operation        string
	SlotRanges       string
	SourceNode       NodeID
	TargetNode       NodeID
	State            string
	Message          string
	CreateTime       int64
	LastUpdateTime   int64
	LastAckTime      int64
}

// Snapshot captures a point-in-time view of the job.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Snapshot{
		Name:           j.Name,
		Operation:      j.Role.String(),
		SlotRanges:     j.SlotRanges.String(),
		SourceNode:     j.SourceNode,
		TargetNode:     j.TargetNode,
		State:          j.state.String(),
		Message:        j.message,
		CreateTime:     j.CreatedAt.Unix(),
		LastUpdateTime: j.LastStateChangeAt.Unix(),
		LastAckTime:    j.lastAckAt.Unix(),
	}
}
