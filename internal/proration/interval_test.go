package proration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jan(dayOfMonth, hourOfDay int) time.Time {
	return time.Date(2026, 1, dayOfMonth, hourOfDay, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestNormalizePauses(t *testing.T) {
	rangeEnd := jan(31, 0)

	got := NormalizePauses([]Pause{
		{Start: jan(20, 0), End: ptr(jan(22, 0))},
		{Start: jan(5, 0), End: ptr(jan(8, 0))},
		{Start: jan(7, 0), End: ptr(jan(10, 0))},  // overlaps the previous pause
		{Start: jan(10, 0), End: ptr(jan(11, 0))}, // touches the merged pause
		{Start: jan(15, 0), End: ptr(jan(15, 0))}, // zero length
		{Start: jan(18, 0), End: ptr(jan(17, 0))}, // inverted
		{End: ptr(jan(3, 0))},                     // missing start
		{Start: jan(28, 0)},                       // ongoing
	}, rangeEnd)

	assert.Equal(t, []Interval{
		{Start: jan(5, 0), End: jan(11, 0)},
		{Start: jan(20, 0), End: jan(22, 0)},
		{Start: jan(28, 0), End: rangeEnd},
	}, got)
}

func TestNormalizePauses_OngoingWithoutFallback(t *testing.T) {
	got := NormalizePauses([]Pause{{Start: jan(5, 0)}}, time.Time{})
	assert.Empty(t, got)
}

func TestNormalizePauses_ContainedPause(t *testing.T) {
	got := NormalizePauses([]Pause{
		{Start: jan(1, 0), End: ptr(jan(20, 0))},
		{Start: jan(5, 0), End: ptr(jan(6, 0))},
	}, jan(31, 0))
	assert.Equal(t, []Interval{{Start: jan(1, 0), End: jan(20, 0)}}, got)
}

func TestSubtract(t *testing.T) {
	active := Interval{Start: jan(1, 0), End: jan(31, 0)}

	cases := []struct {
		name   string
		pauses []Interval
		want   []Interval
	}{
		{
			name: "no pauses",
			want: []Interval{active},
		},
		{
			name:   "middle pause splits",
			pauses: []Interval{{Start: jan(10, 0), End: jan(15, 0)}},
			want: []Interval{
				{Start: jan(1, 0), End: jan(10, 0)},
				{Start: jan(15, 0), End: jan(31, 0)},
			},
		},
		{
			name:   "pause covering start",
			pauses: []Interval{{Start: time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC), End: jan(3, 0)}},
			want:   []Interval{{Start: jan(3, 0), End: jan(31, 0)}},
		},
		{
			name:   "pause covering end",
			pauses: []Interval{{Start: jan(30, 0), End: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)}},
			want:   []Interval{{Start: jan(1, 0), End: jan(30, 0)}},
		},
		{
			name:   "pause outside",
			pauses: []Interval{{Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)}},
			want:   []Interval{active},
		},
		{
			name:   "pause consumes everything",
			pauses: []Interval{{Start: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}},
			want:   []Interval{},
		},
		{
			name: "several pauses",
			pauses: []Interval{
				{Start: jan(2, 0), End: jan(3, 0)},
				{Start: jan(10, 12), End: jan(11, 0)},
				{Start: jan(30, 0), End: jan(31, 0)},
			},
			want: []Interval{
				{Start: jan(1, 0), End: jan(2, 0)},
				{Start: jan(3, 0), End: jan(10, 12)},
				{Start: jan(11, 0), End: jan(30, 0)},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Subtract(active, tc.pauses)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSubtract_EmptyActive(t *testing.T) {
	assert.Empty(t, Subtract(Interval{Start: jan(2, 0), End: jan(2, 0)}, nil))
}

func TestSubtract_Reconstruction(t *testing.T) {
	active := Interval{Start: jan(1, 0), End: jan(31, 0)}
	pauses := NormalizePauses([]Pause{
		{Start: jan(3, 6), End: ptr(jan(4, 0))},
		{Start: jan(3, 12), End: ptr(jan(9, 0))},
		{Start: jan(12, 0), End: ptr(jan(12, 1))},
		{Start: jan(27, 0), End: ptr(jan(30, 23))},
	}, active.End)

	pieces := Subtract(active, pauses)
	require.NotEmpty(t, pieces)

	for i := 1; i < len(pieces); i++ {
		assert.True(t, pieces[i].Start.After(pieces[i-1].End) || pieces[i].Start.Equal(pieces[i-1].End))
	}
	for _, piece := range pieces {
		assert.False(t, piece.Start.Before(active.Start))
		assert.False(t, piece.End.After(active.End))
	}

	assert.LessOrEqual(t, TotalDuration(pieces), active.Duration())
	assert.Equal(t, active.Duration(), TotalDuration(pieces)+TotalDuration(pauses))
}
