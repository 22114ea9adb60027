package migration

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func mustSlots(t *testing.T, start, end int) *SlotSet {
	t.Helper()
	s, err := NewSlotSet(SlotRange{Start: Slot(start), End: Slot(end)})
	require.NoError(t, err)
	return s
}

func TestRegistryRegisterExportRejectsOverlap(t *testing.T) {
	r := NewRegistry(128)
	slots := mustSlots(t, 0, 100)

	job1 := NewJob(NewJobName(), RoleExport, slots, "a", "b", 0)
	require.NoError(t, r.RegisterExport(job1))

	overlap := mustSlots(t, 50, 150)
	job2 := NewJob(NewJobName(), RoleExport, overlap, "a", "c", 0)
	err := r.RegisterExport(job2)
	require.ErrorIs(t, err, ErrAlreadyMigratingExport)
}

func TestRegistryRegisterExportAllowsAfterTerminal(t *testing.T) {
	r := NewRegistry(128)
	slots := mustSlots(t, 0, 100)

	job1 := NewJob(NewJobName(), RoleExport, slots, "a", "b", 0)
	require.NoError(t, r.RegisterExport(job1))
	job1.Finish(StateSuccess, "")

	job2 := NewJob(NewJobName(), RoleExport, slots, "a", "c", 0)
	require.NoError(t, r.RegisterExport(job2))
}

func TestRegistryRegisterImportRejectsOverlap(t *testing.T) {
	r := NewRegistry(128)
	slots := mustSlots(t, 0, 100)

	job1 := NewJob(NewJobName(), RoleImport, slots, "a", "b", 0)
	require.NoError(t, r.RegisterImport(job1))

	job2 := NewJob(NewJobName(), RoleImport, slots, "c", "b", 0)
	err := r.RegisterImport(job2)
	require.ErrorIs(t, err, ErrAlreadyImporting)
}

func TestRegistryExportJobForSlotIgnoresTerminal(t *testing.T) {
	r := NewRegistry(128)
	slots := mustSlots(t, 0, 10)
	job := NewJob(NewJobName(), RoleExport, slots, "a", "b", 0)
	require.NoError(t, r.RegisterExport(job))

	got, ok := r.ExportJobForSlot(5)
	require.True(t, ok)
	require.Equal(t, job.Name, got.Name)

	job.Finish(StateFailed, "boom")
	_, ok = r.ExportJobForSlot(5)
	require.False(t, ok)
}

func TestRegistryCancelAllLocal(t *testing.T) {
	r := NewRegistry(128)
	slots := mustSlots(t, 0, 10)
	job := NewJob(NewJobName(), RoleExport, slots, "a", "b", 0)
	require.NoError(t, r.RegisterExport(job))

	require.Equal(t, 1, r.CancelAllLocal())
	// the export job is cancelled now; the import job registered next is the
	// only non-terminal job the second call finds
	job2 := NewJob(NewJobName(), RoleImport, mustSlots(t, 20, 30), "a", "b", 0)
	require.NoError(t, r.RegisterImport(job2))

	n := r.CancelAllLocal()
	require.Equal(t, 1, n)
	require.Equal(t, StateCancelled, job.State())
	require.Equal(t, StateCancelled, job2.State())

	require.Equal(t, 0, r.CancelAllLocal())
}

func TestRegistrySweepTerminalFreesSlotsForReuse(t *testing.T) {
	r := NewRegistry(128)
	slots := mustSlots(t, 0, 10)
	job := NewJob(NewJobName(), RoleExport, slots, "a", "b", 0)
	require.NoError(t, r.RegisterExport(job))
	job.Finish(StateSuccess, "")

	r.SweepTerminal()

	job2 := NewJob(NewJobName(), RoleExport, slots, "a", "c", 0)
	require.NoError(t, r.RegisterExport(job2))
}

func TestRegistryReplayTerminalEntryRejectsNonTerminal(t *testing.T) {
	r := NewRegistry(128)
	slots := mustSlots(t, 0, 10)
	err := r.ReplayTerminalEntry("job-1", RoleExport, slots, "a", "b", StateReceivingSnapshot, "")
	require.Error(t, err)
}

func TestRegistryReplayTerminalEntryReconstructsJob(t *testing.T) {
	r := NewRegistry(128)
	slots := mustSlots(t, 0, 10)
	err := r.ReplayTerminalEntry("job-1", RoleImport, slots, "a", "b", StateSuccess, "done")
	require.NoError(t, err)

	job, ok := r.GetByName("job-1")
	require.True(t, ok)
	require.Equal(t, StateSuccess, job.State())
	require.Equal(t, "done", job.Message())
}

func TestRegistryTrimEnforcesLogMaxLen(t *testing.T) {
	r := NewRegistry(1)
	for i := 0; i < 3; i++ {
		name := JobName(string(rune('a' + i)))
		slots := mustSlots(t, i*10, i*10+5)
		job := NewJob(name, RoleExport, slots, "a", "b", 0)
		require.NoError(t, r.RegisterExport(job))
		job.Finish(StateSuccess, "")
	}
	r.SweepTerminal()
	r.Trim()

	require.Len(t, r.List(), 1)
}

func TestRegistryReplayTerminalEntryPreservesSnapshotShape(t *testing.T) {
	r := NewRegistry(128)
	slots := mustSlots(t, 0, 10)
	require.NoError(t, r.ReplayTerminalEntry("job-1", RoleImport, slots, "a", "b", StateFailed, "boom"))

	replayed, ok := r.GetByName("job-1")
	require.True(t, ok)

	direct := NewJob("job-1", RoleImport, slots, "a", "b", 0)
	direct.Finish(StateFailed, "boom")

	// Timestamps are the only fields that legitimately differ between a
	// freshly-constructed job and one reconstructed by replay; everything
	// else describing the job's identity and outcome must match exactly.
	diff := cmp.Diff(direct.Snapshot(), replayed.Snapshot(), cmpopts.IgnoreFields(Snapshot{},
		"CreateTime", "LastUpdateTime", "LastAckTime"))
	require.Empty(t, diff)
}

func TestRegistryOnChangeFiresOnRegisterAndTerminal(t *testing.T) {
	r := NewRegistry(128)
	var seen []State
	r.OnChange(func(j *Job) {
		seen = append(seen, j.State())
	})

	slots := mustSlots(t, 0, 10)
	job := NewJob(NewJobName(), RoleExport, slots, "a", "b", 0)
	require.NoError(t, r.RegisterExport(job))
	job.Finish(StateSuccess, "")
	r.SweepTerminal()

	require.Len(t, seen, 2)
	require.Equal(t, StateSuccess, seen[1])
}
