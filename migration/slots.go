package migration

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

/*
 * ============================================================================
 * 槽集合算法 - SlotSet
 * ============================================================================
 *
 * 集群的键空间被切分为 16384 个哈希槽（CLUSTER_SLOTS）。一次迁移请求携带一个或
 * 多个区间 [start,end]，SlotSet 负责把这些区间规整成升序、互不重叠的集合，并
 * 提供 union/intersect/contains 等代数运算，供 MigrationRegistry 判断重叠。
 */

// SlotCount is the fixed number of hash slots in the keyspace.
const SlotCount = 16384

// Slot is a single hash slot in [0, SlotCount).
type Slot int

// SlotRange is an inclusive range [Start, End] with Start <= End.
type SlotRange struct {
	Start Slot
	End   Slot
}

func (r SlotRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Overlaps reports whether r and o share at least one slot.
func (r SlotRange) Overlaps(o SlotRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

// Contains reports whether r fully contains slot s.
func (r SlotRange) Contains(s Slot) bool {
	return s >= r.Start && s <= r.End
}

// SlotSet is a sorted, non-overlapping collection of slot ranges.
type SlotSet struct {
	ranges []SlotRange
}

var (
	ErrSyntax            = errors.New("syntax error")
	ErrOutOfRange        = errors.New("Invalid or out of range slot")
	ErrNoEndSlot         = errors.New("No end slot for final slot range")
	ErrStartGreaterEnd   = errors.New("start slot number is greater than end slot number")
	ErrRangesOverlap     = errors.New("Slot ranges in migrations overlap")
	ErrMultipleShards    = errors.New("Requested slots span multiple shards")
	ErrSlotHasNoNode     = errors.New("has no node served")
)

// ParseSlotsRangeArgs parses the repeated "s e" pairs following SLOTSRANGE in
// `CLUSTER MIGRATESLOTS SLOTSRANGE s1 e1 [s2 e2 ...]`. It never silently
// merges overlapping input ranges: any overlap, even within the same
// request, is rejected.
func ParseSlotsRangeArgs(args []string) (*SlotSet, error) {
	if len(args) == 0 {
		return nil, ErrSyntax
	}
	if len(args)%2 != 0 {
		return nil, ErrNoEndSlot
	}

	ranges := make([]SlotRange, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		start, err := strconv.Atoi(args[i])
		if err != nil {
			return nil, ErrSyntax
		}
		end, err := strconv.Atoi(args[i+1])
		if err != nil {
			return nil, ErrSyntax
		}
		if start < 0 || start >= SlotCount || end < 0 || end >= SlotCount {
			return nil, ErrOutOfRange
		}
		if start > end {
			return nil, fmt.Errorf("Start slot number %d is greater than end slot number %d", start, end)
		}
		ranges = append(ranges, SlotRange{Start: Slot(start), End: Slot(end)})
	}

	return newSlotSet(ranges)
}

// newSlotSet sorts ranges and rejects any pairwise overlap. It never merges
// adjacent or overlapping ranges; overlap is always a hard error.
func newSlotSet(ranges []SlotRange) (*SlotSet, error) {
	sorted := append([]SlotRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Overlaps(sorted[i]) {
			return nil, ErrRangesOverlap
		}
	}

	return &SlotSet{ranges: sorted}, nil
}

// NewSlotSet builds a SlotSet directly from already-validated ranges.
func NewSlotSet(ranges ...SlotRange) (*SlotSet, error) {
	return newSlotSet(ranges)
}

// Ranges returns the canonical, ascending-sorted ranges.
func (s *SlotSet) Ranges() []SlotRange {
	if s == nil {
		return nil
	}
	return append([]SlotRange(nil), s.ranges...)
}

// String renders the set as "a-b c-d", the textual form used by
// CLUSTER GETSLOTMIGRATIONS.
func (s *SlotSet) String() string {
	if s == nil || len(s.ranges) == 0 {
		return ""
	}
	out := ""
	for i, r := range s.ranges {
		if i > 0 {
			out += " "
		}
		out += r.String()
	}
	return out
}

// ContainsSlot reports whether slot is a member of the set.
func (s *SlotSet) ContainsSlot(slot Slot) bool {
	if s == nil {
		return false
	}
	for _, r := range s.ranges {
		if r.Contains(slot) {
			return true
		}
	}
	return false
}

// OverlapsAny reports whether any range in s overlaps any range in o.
func (s *SlotSet) OverlapsAny(o *SlotSet) bool {
	if s == nil || o == nil {
		return false
	}
	for _, a := range s.ranges {
		for _, b := range o.ranges {
			if a.Overlaps(b) {
				return true
			}
		}
	}
	return false
}

// Union returns the union of s and o as a new SlotSet. Overlapping inputs
// are an error, consistent with the "never silently merge" rule.
func (s *SlotSet) Union(o *SlotSet) (*SlotSet, error) {
	combined := append(s.Ranges(), o.Ranges()...)
	return newSlotSet(combined)
}

// Intersect returns the slots present in both s and o.
func (s *SlotSet) Intersect(o *SlotSet) *SlotSet {
	var out []SlotRange
	for _, a := range s.Ranges() {
		for slot := a.Start; slot <= a.End; slot++ {
			if o.ContainsSlot(slot) {
				out = append(out, SlotRange{Start: slot, End: slot})
			}
		}
	}
	merged, _ := newSlotSet(coalesce(out))
	return merged
}

// coalesce merges adjacent single-slot ranges produced by Intersect into
// contiguous runs; this is the one place merging is intentional because the
// inputs are synthetic, not user-supplied.
func coalesce(ranges []SlotRange) []SlotRange {
	if len(ranges) == 0 {
		return nil
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	out := []SlotRange{ranges[0]}
	for _, r := range ranges[1:] {
		last := &out[len(out)-1]
		if r.Start == last.End+1 {
			last.End = r.End
		} else {
			out = append(out, r)
		}
	}
	return out
}

// Slots enumerates every individual slot in the set, ascending.
func (s *SlotSet) Slots() []Slot {
	var out []Slot
	for _, r := range s.Ranges() {
		for slot := r.Start; slot <= r.End; slot++ {
			out = append(out, slot)
		}
	}
	return out
}

// IsEmpty reports whether the set has zero ranges.
func (s *SlotSet) IsEmpty() bool {
	return s == nil || len(s.ranges) == 0
}
