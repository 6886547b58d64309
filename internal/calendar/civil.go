package calendar

import (
	"fmt"
	"time"
)

// maxRefinements bounds the offset refinement in InstantOf. Real zones settle
// after one or two passes; a nonexistent local time (DST gap) oscillates.
const maxRefinements = 4

// Civil is a local calendar date and wall-clock time in some zone.
type Civil struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// Date returns a civil midnight for the given date.
func Date(year, month, day int) Civil {
	return Civil{Year: year, Month: month, Day: day}
}

// MonthKey formats the civil month as YYYY-MM.
func (c Civil) MonthKey() string {
	return MonthKey(c.Year, c.Month)
}

func (c Civil) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second)
}

// PartsOf returns the civil fields of instant as observed in loc.
func PartsOf(instant time.Time, loc *time.Location) Civil {
	if loc == nil {
		loc = time.UTC
	}
	local := instant.In(loc)
	return Civil{
		Year:   local.Year(),
		Month:  int(local.Month()),
		Day:    local.Day(),
		Hour:   local.Hour(),
		Minute: local.Minute(),
		Second: local.Second(),
	}
}

// InstantOf returns the instant whose civil fields in loc equal c.
//
// The instant is found by refinement: read the fields as if they were UTC,
// measure the zone offset at that guess and shift by it, then repeat while the
// offset observed at the candidate differs from the one used to derive it.
func InstantOf(c Civil, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	guess := time.Date(c.Year, time.Month(c.Month), c.Day, c.Hour, c.Minute, c.Second, 0, time.UTC)
	offset := offsetAt(guess, loc)
	instant := guess.Add(-offset)
	for i := 0; i < maxRefinements; i++ {
		next := offsetAt(instant, loc)
		if next == offset {
			break
		}
		offset = next
		instant = guess.Add(-offset)
	}
	return instant
}

// DaysInMonth returns the number of days in the civil month, computed as day 0
// of the following month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextMonth returns the civil year and month following year/month.
func NextMonth(year, month int) (int, int) {
	if month >= 12 {
		return year + 1, 1
	}
	return year, month + 1
}

// MonthKey formats year and month as YYYY-MM.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ParseMonthKey parses a YYYY-MM key.
func ParseMonthKey(key string) (year, month int, ok bool) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return 0, 0, false
	}
	return t.Year(), int(t.Month()), true
}

// MonthLabel renders a human label such as "January 2026".
func MonthLabel(year, month int) string {
	if month < 1 || month > 12 {
		return MonthKey(year, month)
	}
	return fmt.Sprintf("%s %d", time.Month(month).String(), year)
}

// MonthRange returns the instants bounding the civil month in loc.
func MonthRange(year, month int, loc *time.Location) (time.Time, time.Time) {
	nextYear, nextMonth := NextMonth(year, month)
	return InstantOf(Date(year, month, 1), loc), InstantOf(Date(nextYear, nextMonth, 1), loc)
}

func offsetAt(instant time.Time, loc *time.Location) time.Duration {
	_, seconds := instant.In(loc).Zone()
	return time.Duration(seconds) * time.Second
}
