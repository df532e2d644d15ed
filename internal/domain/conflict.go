package domain

import "sort"

// Interval is the half-open range [Start, End).
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (i Interval) Empty() bool {
	return i.End <= i.Start
}

// Overlaps reports whether i and o share at least one minute. Empty intervals
// overlap nothing, and intervals that only touch at an endpoint do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	if i.Empty() || o.Empty() {
		return false
	}
	return i.Start < o.End && o.Start < i.End
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

// FindConflict returns the earliest-starting session in existing whose interval
// overlaps candidate. Callers are expected to pass sessions that already share
// the candidate's room and day.
func FindConflict(existing []ClassSession, candidate Interval) (ClassSession, bool) {
	sorted := make([]ClassSession, len(existing))
	copy(sorted, existing)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].StartTime < sorted[b].StartTime
	})

	for _, s := range sorted {
		if s.StartTime >= candidate.End {
			break
		}
		if s.Interval().Overlaps(candidate) {
			return s, true
		}
	}
	return ClassSession{}, false
}
