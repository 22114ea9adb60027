package migration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSlotsRangeArgs(t *testing.T) {
	t.Run("single range", func(t *testing.T) {
		s, err := ParseSlotsRangeArgs([]string{"0", "100"})
		require.NoError(t, err)
		require.Equal(t, []SlotRange{{Start: 0, End: 100}}, s.Ranges())
	})

	t.Run("multiple disjoint ranges get sorted", func(t *testing.T) {
		s, err := ParseSlotsRangeArgs([]string{"200", "300", "0", "100"})
		require.NoError(t, err)
		require.Equal(t, []SlotRange{{Start: 0, End: 100}, {Start: 200, End: 300}}, s.Ranges())
	})

	t.Run("odd arg count has no end slot", func(t *testing.T) {
		_, err := ParseSlotsRangeArgs([]string{"0"})
		require.ErrorIs(t, err, ErrNoEndSlot)
	})

	t.Run("empty args is a syntax error", func(t *testing.T) {
		_, err := ParseSlotsRangeArgs(nil)
		require.ErrorIs(t, err, ErrSyntax)
	})

	t.Run("non-numeric is a syntax error", func(t *testing.T) {
		_, err := ParseSlotsRangeArgs([]string{"a", "b"})
		require.ErrorIs(t, err, ErrSyntax)
	})

	t.Run("out of range slot rejected", func(t *testing.T) {
		_, err := ParseSlotsRangeArgs([]string{"0", "16384"})
		require.ErrorIs(t, err, ErrOutOfRange)

		_, err = ParseSlotsRangeArgs([]string{"-1", "10"})
		require.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("start greater than end rejected", func(t *testing.T) {
		_, err := ParseSlotsRangeArgs([]string{"10", "5"})
		require.Error(t, err)
	})

	t.Run("overlapping ranges in the same request are rejected", func(t *testing.T) {
		_, err := ParseSlotsRangeArgs([]string{"0", "100", "50", "150"})
		require.ErrorIs(t, err, ErrRangesOverlap)
	})
}

func TestSlotSetContainsAndSlots(t *testing.T) {
	s, err := NewSlotSet(SlotRange{Start: 0, End: 2}, SlotRange{Start: 10, End: 10})
	require.NoError(t, err)

	require.True(t, s.ContainsSlot(0))
	require.True(t, s.ContainsSlot(2))
	require.True(t, s.ContainsSlot(10))
	require.False(t, s.ContainsSlot(3))
	require.False(t, s.ContainsSlot(11))

	require.Equal(t, []Slot{0, 1, 2, 10}, s.Slots())
	require.Equal(t, "0-2 10-10", s.String())
}

func TestSlotSetOverlapsAny(t *testing.T) {
	a, err := NewSlotSet(SlotRange{Start: 0, End: 100})
	require.NoError(t, err)
	b, err := NewSlotSet(SlotRange{Start: 100, End: 200})
	require.NoError(t, err)
	c, err := NewSlotSet(SlotRange{Start: 101, End: 200})
	require.NoError(t, err)

	require.True(t, a.OverlapsAny(b))
	require.False(t, a.OverlapsAny(c))
}

func TestSlotSetUnionRejectsOverlap(t *testing.T) {
	a, err := NewSlotSet(SlotRange{Start: 0, End: 100})
	require.NoError(t, err)
	b, err := NewSlotSet(SlotRange{Start: 50, End: 150})
	require.NoError(t, err)

	_, err = a.Union(b)
	require.ErrorIs(t, err, ErrRangesOverlap)

	c, err := NewSlotSet(SlotRange{Start: 101, End: 150})
	require.NoError(t, err)
	union, err := a.Union(c)
	require.NoError(t, err)
	require.Equal(t, []SlotRange{{Start: 0, End: 100}, {Start: 101, End: 150}}, union.Ranges())
}

func TestSlotSetIntersectCoalescesAdjacentSlots(t *testing.T) {
	a, err := NewSlotSet(SlotRange{Start: 0, End: 10})
	require.NoError(t, err)
	b, err := NewSlotSet(SlotRange{Start: 5, End: 20})
	require.NoError(t, err)

	inter := a.Intersect(b)
	require.Equal(t, []SlotRange{{Start: 5, End: 10}}, inter.Ranges())
}

func TestSlotSetIsEmpty(t *testing.T) {
	var nilSet *SlotSet
	require.True(t, nilSet.IsEmpty())

	empty, err := NewSlotSet()
	require.NoError(t, err)
	require.True(t, empty.IsEmpty())

	nonEmpty, err := NewSlotSet(SlotRange{Start: 0, End: 0})
	require.NoError(t, err)
	require.False(t, nonEmpty.IsEmpty())
}
