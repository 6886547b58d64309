package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadZone_FailSoft(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{name: "", want: "UTC"},
		{name: "   ", want: "UTC"},
		{name: "Not/AZone", want: "UTC"},
		{name: "Local", want: "UTC"},
		{name: "America/New_York", want: "America/New_York"},
		{name: " Europe/Berlin ", want: "Europe/Berlin"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LoadZone(tc.name).String())
			assert.Equal(t, tc.want, NormalizeZoneName(tc.name))
		})
	}

	assert.True(t, IsValidZone("UTC"))
	assert.True(t, IsValidZone("Asia/Kolkata"))
	assert.False(t, IsValidZone("Mars/Olympus_Mons"))
	assert.False(t, IsValidZone(""))
}

func TestPartsOf(t *testing.T) {
	ny := LoadZone("America/New_York")
	instant := time.Date(2026, 1, 1, 3, 30, 15, 0, time.UTC)

	assert.Equal(t, Civil{Year: 2025, Month: 12, Day: 31, Hour: 22, Minute: 30, Second: 15}, PartsOf(instant, ny))
	assert.Equal(t, Civil{Year: 2026, Month: 1, Day: 1, Hour: 3, Minute: 30, Second: 15}, PartsOf(instant, nil))
}

func TestInstantOf_DSTTransitions(t *testing.T) {
	cases := []struct {
		zone  string
		civil Civil
		want  time.Time
	}{
		{
			zone:  "America/New_York",
			civil: Civil{Year: 2024, Month: 3, Day: 10, Hour: 3, Minute: 30},
			want:  time.Date(2024, 3, 10, 7, 30, 0, 0, time.UTC),
		},
		{
			zone:  "America/New_York",
			civil: Civil{Year: 2024, Month: 3, Day: 10, Hour: 1, Minute: 59, Second: 59},
			want:  time.Date(2024, 3, 10, 6, 59, 59, 0, time.UTC),
		},
		{
			zone:  "Europe/Berlin",
			civil: Civil{Year: 2024, Month: 3, Day: 31, Hour: 1, Minute: 30},
			want:  time.Date(2024, 3, 31, 0, 30, 0, 0, time.UTC),
		},
		{
			zone:  "Europe/Berlin",
			civil: Civil{Year: 2024, Month: 3, Day: 31, Hour: 3, Minute: 30},
			want:  time.Date(2024, 3, 31, 1, 30, 0, 0, time.UTC),
		},
		{
			zone:  "Australia/Sydney",
			civil: Civil{Year: 2024, Month: 4, Day: 1},
			want:  time.Date(2024, 3, 31, 13, 0, 0, 0, time.UTC),
		},
		{
			zone:  "Asia/Kolkata",
			civil: Civil{Year: 2026, Month: 2, Day: 1},
			want:  time.Date(2026, 1, 31, 18, 30, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.zone+" "+tc.civil.String(), func(t *testing.T) {
			got := InstantOf(tc.civil, LoadZone(tc.zone))
			assert.True(t, tc.want.Equal(got), "want %s got %s", tc.want, got.UTC())
		})
	}
}

func TestInstantOf_RoundTrip(t *testing.T) {
	zones := []string{
		"UTC",
		"America/New_York",
		"America/Los_Angeles",
		"America/Santiago",
		"Europe/London",
		"Europe/Berlin",
		"Australia/Sydney",
		"Australia/Lord_Howe",
		"Asia/Kolkata",
		"Pacific/Chatham",
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, name := range zones {
		loc := LoadZone(name)
		t.Run(name, func(t *testing.T) {
			// Every civil time observed on the hour and half hour through a year,
			// which crosses each DST transition of the zone.
			for instant := start; instant.Before(end); instant = instant.Add(30 * time.Minute) {
				parts := PartsOf(instant, loc)
				got := PartsOf(InstantOf(parts, loc), loc)
				require.Equal(t, parts, got, "round trip of %s at %s", parts, instant)
			}
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, DaysInMonth(2026, 1))
	assert.Equal(t, 28, DaysInMonth(2026, 2))
	assert.Equal(t, 29, DaysInMonth(2024, 2))
	assert.Equal(t, 29, DaysInMonth(2000, 2))
	assert.Equal(t, 28, DaysInMonth(1900, 2))
	assert.Equal(t, 30, DaysInMonth(2026, 4))
	assert.Equal(t, 31, DaysInMonth(2026, 12))
}

func TestMonthHelpers(t *testing.T) {
	y, m := NextMonth(2025, 12)
	assert.Equal(t, 2026, y)
	assert.Equal(t, 1, m)

	assert.Equal(t, "2026-03", MonthKey(2026, 3))
	assert.Equal(t, "March 2026", MonthLabel(2026, 3))

	y, m, ok := ParseMonthKey("2026-11")
	require.True(t, ok)
	assert.Equal(t, 2026, y)
	assert.Equal(t, 11, m)

	_, _, ok = ParseMonthKey("2026-13")
	assert.False(t, ok)
	_, _, ok = ParseMonthKey("nope")
	assert.False(t, ok)

	from, to := MonthRange(2026, 3, LoadZone("America/New_York"))
	assert.Equal(t, time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC), from.UTC())
	assert.Equal(t, time.Date(2026, 4, 1, 4, 0, 0, 0, time.UTC), to.UTC())
}
