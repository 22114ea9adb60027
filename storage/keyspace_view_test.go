package storage

import (
	"testing"

	"github.com/lingdb/lingdb/migration"
	"github.com/stretchr/testify/require"
)

func fixedSlotFunc(slot migration.Slot) func(string) migration.Slot {
	return func(string) migration.Slot { return slot }
}

func TestImportIndexMasksUntilBegin(t *testing.T) {
	idx := newImportIndex()
	require.False(t, idx.IsImporting(5))
	_, ok := idx.BufferFor(5)
	require.False(t, ok)

	buf := migration.NewImportBuffer("job-1")
	idx.BeginImport(5, 0, buf)
	require.True(t, idx.IsImporting(5))
	got, ok := idx.BufferFor(5)
	require.True(t, ok)
	require.Same(t, buf, got)
}

func TestKeyspaceViewPromoteSlotInstallsStagedWrites(t *testing.T) {
	server := NewRedisServer(4)
	view := NewKeyspaceView(server)
	server.SetSlotFunc(fixedSlotFunc(7))

	buf := migration.NewImportBuffer("job-1")
	server.BeginImport(7, 0, buf)
	require.True(t, view.IsImporting(7))

	payload, err := EncodeObject(NewStringObject([]byte("bar")))
	require.NoError(t, err)
	buf.ApplyWrite(0, "foo", migration.SnapshotItem{Value: payload})

	n := view.PromoteSlot(7)
	require.Equal(t, 1, n)
	require.False(t, view.IsImporting(7), "slot association is consumed by promotion")

	db, err := server.GetDb(0)
	require.NoError(t, err)
	obj, err := db.Get("foo")
	require.NoError(t, err)
	val, err := obj.GetStringValue()
	require.NoError(t, err)
	require.Equal(t, []byte("bar"), val)
}

func TestKeyspaceViewPromoteSlotSkipsUndecodableEntries(t *testing.T) {
	server := NewRedisServer(4)
	view := NewKeyspaceView(server)
	server.SetSlotFunc(fixedSlotFunc(1))

	buf := migration.NewImportBuffer("job-1")
	server.BeginImport(1, 0, buf)
	buf.ApplyWrite(0, "garbage", migration.SnapshotItem{Value: []byte("not a valid encoding")})

	n := view.PromoteSlot(1)
	require.Equal(t, 0, n)

	db, err := server.GetDb(0)
	require.NoError(t, err)
	_, err = db.Get("garbage")
	require.Error(t, err, "undecodable staged entries must never become visible")
}

func TestKeyspaceViewDiscardSlotDropsWithoutInstalling(t *testing.T) {
	server := NewRedisServer(4)
	view := NewKeyspaceView(server)
	server.SetSlotFunc(fixedSlotFunc(3))

	buf := migration.NewImportBuffer("job-1")
	server.BeginImport(3, 0, buf)
	payload, err := EncodeObject(NewStringObject([]byte("v")))
	require.NoError(t, err)
	buf.ApplyWrite(0, "k", migration.SnapshotItem{Value: payload})

	n := view.DiscardSlot(3)
	require.Equal(t, 1, n)
	require.False(t, view.IsImporting(3))

	db, err := server.GetDb(0)
	require.NoError(t, err)
	_, err = db.Get("k")
	require.Error(t, err)
}

func TestKeyspaceViewPromoteUnknownSlotIsNoop(t *testing.T) {
	server := NewRedisServer(4)
	view := NewKeyspaceView(server)
	require.Equal(t, 0, view.PromoteSlot(99))
	require.Equal(t, 0, view.DiscardSlot(99))
}

func TestSnapshotSourceIterateSlotsRestrictsToRequestedSlots(t *testing.T) {
	server := NewRedisServer(1)
	server.SetSlotFunc(func(key string) migration.Slot {
		if key == "in" {
			return 10
		}
		return 20
	})
	db, err := server.GetDb(0)
	require.NoError(t, err)
	db.Set("in", NewStringObject([]byte("yes")))
	db.Set("out", NewStringObject([]byte("no")))

	source := NewSnapshotSource(server)
	slots, err := migration.NewSlotSet(migration.SlotRange{Start: 10, End: 10})
	require.NoError(t, err)

	var seen []string
	err = source.IterateSlots(slots, func(dbIndex int, key string, item migration.SnapshotItem) bool {
		seen = append(seen, key)
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"in"}, seen)
}

func TestSnapshotSourceIterateSlotsStopsEarlyWhenFnReturnsFalse(t *testing.T) {
	server := NewRedisServer(1)
	server.SetSlotFunc(func(string) migration.Slot { return 1 })
	db, err := server.GetDb(0)
	require.NoError(t, err)
	db.Set("a", NewStringObject([]byte("1")))
	db.Set("b", NewStringObject([]byte("2")))

	source := NewSnapshotSource(server)
	slots, err := migration.NewSlotSet(migration.SlotRange{Start: 1, End: 1})
	require.NoError(t, err)

	count := 0
	err = source.IterateSlots(slots, func(dbIndex int, key string, item migration.SnapshotItem) bool {
		count++
		return false
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
