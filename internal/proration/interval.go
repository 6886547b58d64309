// Package proration computes billable units for month-bounded rental segments
// and the interval arithmetic used to take maintenance pauses out of a rental.
package proration

import (
	"sort"
	"time"
)

// Interval is a half-open [Start, End) span of time.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns End - Start, or 0 for empty intervals.
func (i Interval) Duration() time.Duration {
	if !i.End.After(i.Start) {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Empty reports whether the interval covers no time.
func (i Interval) Empty() bool {
	return !i.End.After(i.Start)
}

// Pause is a maintenance period during which a rental accrues no charge.
// A nil End means the pause is still ongoing.
type Pause struct {
	Start time.Time
	End   *time.Time
}

// NormalizePauses turns raw pause periods into sorted, disjoint intervals.
// Pauses without a start are dropped; ongoing pauses end at rangeEnd; inverted
// or zero-length pauses are dropped; overlapping or touching pauses are merged.
func NormalizePauses(periods []Pause, rangeEnd time.Time) []Interval {
	intervals := make([]Interval, 0, len(periods))
	for _, p := range periods {
		if p.Start.IsZero() {
			continue
		}
		end := rangeEnd
		if p.End != nil && !p.End.IsZero() {
			end = *p.End
		}
		if end.IsZero() || !end.After(p.Start) {
			continue
		}
		intervals = append(intervals, Interval{Start: p.Start, End: end})
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})

	merged := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if len(merged) == 0 || iv.Start.After(merged[len(merged)-1].End) {
			merged = append(merged, iv)
			continue
		}
		last := &merged[len(merged)-1]
		if iv.End.After(last.End) {
			last.End = iv.End
		}
	}
	return merged
}

// Subtract returns the ordered, disjoint pieces of active not covered by any
// pause.
func Subtract(active Interval, pauses []Interval) []Interval {
	if active.Empty() {
		return nil
	}
	pieces := []Interval{active}
	for _, pause := range pauses {
		next := make([]Interval, 0, len(pieces)+1)
		for _, piece := range pieces {
			overlapStart := laterOf(piece.Start, pause.Start)
			overlapEnd := earlierOf(piece.End, pause.End)
			if !overlapEnd.After(overlapStart) {
				next = append(next, piece)
				continue
			}
			if overlapStart.After(piece.Start) {
				next = append(next, Interval{Start: piece.Start, End: overlapStart})
			}
			if overlapEnd.Before(piece.End) {
				next = append(next, Interval{Start: overlapEnd, End: piece.End})
			}
		}
		pieces = next
	}

	out := pieces[:0]
	for _, piece := range pieces {
		if !piece.Empty() {
			out = append(out, piece)
		}
	}
	return out
}

// TotalDuration sums the durations of intervals.
func TotalDuration(intervals []Interval) time.Duration {
	var total time.Duration
	for _, iv := range intervals {
		total += iv.Duration()
	}
	return total
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
