package migration

import (
	"errors"
	"fmt"
	"sync"
)

/*
 * ============================================================================
 * MigrationRegistry - 进程级迁移任务表
 * ============================================================================
 *
 * 每个节点维护一张从 JobName 到 Job 的映射，外加两张快速索引：
 * slot -> ExportJob 和 slot -> ImportJob。索引的存在是为了在 O(1)/O(range)
 * 时间内判断"这个槽是否已经在迁移"，避免每次校验都线性扫描所有任务。
 *
 * 终止态任务（success/failed/cancelled）不会立刻从表里消失：它们被移入一个
 * 按角色分桶、容量有限的 FIFO 日志，供 CLUSTER GETSLOTMIGRATIONS 查询最近的
 * 迁移历史。容量由 cluster-slot-migration-log-max-len 控制。
 */

var (
	ErrAlreadyMigratingExport = errors.New("I am already migrating slot")
	ErrAlreadyImporting       = errors.New("Slot is already being imported on the target by a different migration")
	ErrJobNotFound            = errors.New("no such migration job")
)

// Registry is the process-wide table of active and recently-terminal
// migration jobs (C2).
type Registry struct {
	mu sync.RWMutex

	jobs map[JobName]*Job

	exportBySlot map[Slot]JobName
	importBySlot map[Slot]JobName

	logMaxLen int
	importLog []JobName // oldest first
	exportLog []JobName // oldest first

	onChange func(*Job) // persistence hook; nil-safe
}

// NewRegistry constructs an empty registry with the given terminal-log
// capacity per role.
func NewRegistry(logMaxLen int) *Registry {
	return &Registry{
		jobs:         make(map[JobName]*Job),
		exportBySlot: make(map[Slot]JobName),
		importBySlot: make(map[Slot]JobName),
		logMaxLen:    logMaxLen,
	}
}

// OnChange installs a hook invoked on every registration and terminal
// transition, used to append AOF entries (see
// cluster.MigrationController.EnableAOF).
func (r *Registry) OnChange(fn func(*Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

func (r *Registry) notify(job *Job) {
	if r.onChange != nil {
		r.onChange(job)
	}
}

// RegisterExport adds a new export job, failing if any of its slots are
// already being exported by another non-terminal job on this node.
func (r *Registry) RegisterExport(job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, slot := range job.SlotRanges.Slots() {
		if existing, ok := r.exportBySlot[slot]; ok {
			if j, ok := r.jobs[existing]; ok && !j.State().IsTerminal() {
				return fmt.Errorf("%w %d", ErrAlreadyMigratingExport, slot)
			}
		}
	}

	r.jobs[job.Name] = job
	for _, slot := range job.SlotRanges.Slots() {
		r.exportBySlot[slot] = job.Name
	}
	r.notify(job)
	return nil
}

// RegisterImport adds a new import job, failing if any of its slots
// overlap another non-terminal import job on this node.
func (r *Registry) RegisterImport(job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, slot := range job.SlotRanges.Slots() {
		if existing, ok := r.importBySlot[slot]; ok {
			if j, ok := r.jobs[existing]; ok && !j.State().IsTerminal() {
				return ErrAlreadyImporting
			}
		}
	}

	r.jobs[job.Name] = job
	for _, slot := range job.SlotRanges.Slots() {
		r.importBySlot[slot] = job.Name
	}
	r.notify(job)
	return nil
}

// List returns every job currently tracked, active and logged alike.
func (r *Registry) List() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	return out
}

// GetByName looks a job up by its immutable name.
func (r *Registry) GetByName(name JobName) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[name]
	return j, ok
}

// ExportJobForSlot returns the non-terminal export job owning slot, if any.
func (r *Registry) ExportJobForSlot(slot Slot) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.exportBySlot[slot]
	if !ok {
		return nil, false
	}
	j, ok := r.jobs[name]
	if !ok || j.State().IsTerminal() {
		return nil, false
	}
	return j, true
}

// ImportJobForSlot returns the non-terminal import job owning slot, if any.
func (r *Registry) ImportJobForSlot(slot Slot) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.importBySlot[slot]
	if !ok {
		return nil, false
	}
	j, ok := r.jobs[name]
	if !ok || j.State().IsTerminal() {
		return nil, false
	}
	return j, true
}

// CancelAllLocal atomically moves every local non-terminal migration to
// cancelled. Returns the number of jobs cancelled ("No migrations ongoing"
// is the caller's responsibility to report when this returns 0).
func (r *Registry) CancelAllLocal() int {
	r.mu.Lock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	r.mu.Unlock()

	n := 0
	for _, j := range jobs {
		if j.State().IsTerminal() {
			continue
		}
		j.Finish(StateCancelled, "")
		r.promoteToLog(j)
		n++
	}
	return n
}

// promoteToLog is called once a job reaches a terminal state: it clears the
// job from the fast slot indices (so new migrations can claim those slots)
// and appends it to the bounded per-role FIFO log, trimming the oldest
// entry if the log is over capacity.
func (r *Registry) promoteToLog(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, slot := range job.SlotRanges.Slots() {
		if job.Role == RoleExport {
			if r.exportBySlot[slot] == job.Name {
				delete(r.exportBySlot, slot)
			}
		} else {
			if r.importBySlot[slot] == job.Name {
				delete(r.importBySlot, slot)
			}
		}
	}

	if job.Role == RoleExport {
		r.exportLog = append(r.exportLog, job.Name)
	} else {
		r.importLog = append(r.importLog, job.Name)
	}
	r.notify(job)
}

// SweepTerminal promotes every job that reached a terminal state through a
// path other than CancelAllLocal (the FSMs' own Finish calls in
// exportjob.go/importjob.go don't have registry access) into the bounded
// per-role log, freeing its slots for a new migration. Safe to call
// periodically; a no-op once nothing has finished since the last sweep.
func (r *Registry) SweepTerminal() {
	r.mu.RLock()
	var pending []*Job
	for _, j := range r.jobs {
		if !j.State().IsTerminal() {
			continue
		}
		for _, s := range j.SlotRanges.Slots() {
			var indexed bool
			if j.Role == RoleExport {
				indexed = r.exportBySlot[s] == j.Name
			} else {
				indexed = r.importBySlot[s] == j.Name
			}
			if indexed {
				pending = append(pending, j)
				break
			}
		}
	}
	r.mu.RUnlock()

	for _, j := range pending {
		r.promoteToLog(j)
	}
}

// ReplayTerminalEntry reconstructs a single bounded-log entry from its AOF
// snapshot at startup. It bypasses RegisterExport/RegisterImport's overlap
// checks (a historical log entry holds no live slot claim) and inserts
// straight into the per-role log. Non-terminal snapshots are rejected: a
// SYNCSLOTS session itself is not durable across a restart, only the jobs
// that already reached success/failed/cancelled before the crash (see
// DESIGN.md).
func (r *Registry) ReplayTerminalEntry(name JobName, role Role, slots *SlotSet, source, target NodeID, state State, message string) error {
	if !state.IsTerminal() {
		return fmt.Errorf("refusing to replay non-terminal state %q for job %s", state, name)
	}

	job := NewJob(name, role, slots, source, target, 0)
	job.Finish(state, message)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.Name] = job
	if role == RoleExport {
		r.exportLog = append(r.exportLog, job.Name)
	} else {
		r.importLog = append(r.importLog, job.Name)
	}
	return nil
}

// Trim enforces logMaxLen on both per-role logs, deleting the oldest
// entries first. Intended to run on a low-frequency maintenance tick, not
// on every mutation. Setting logMaxLen to zero empties both logs on the
// next call.
func (r *Registry) Trim() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.exportLog = trimLog(r.exportLog, r.logMaxLen, r.jobs)
	r.importLog = trimLog(r.importLog, r.logMaxLen, r.jobs)
}

func trimLog(log []JobName, maxLen int, jobs map[JobName]*Job) []JobName {
	for len(log) > maxLen {
		oldest := log[0]
		log = log[1:]
		delete(jobs, oldest)
	}
	return log
}

// SetLogMaxLen updates the bounded-log capacity; the next Trim() call will
// apply it.
func (r *Registry) SetLogMaxLen(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logMaxLen = n
}
