package calendar

import "time"

// DefaultSegmentLimit caps month segmentation at 100 years of months.
const DefaultSegmentLimit = 1200

// Segment is a sub-interval lying entirely within one civil month of a zone.
type Segment struct {
	Start       time.Time
	End         time.Time
	Year        int
	Month       int
	DaysInMonth int
}

// Duration returns End - Start.
func (s Segment) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// MonthKey returns the YYYY-MM key of the civil month holding the segment.
func (s Segment) MonthKey() string {
	return MonthKey(s.Year, s.Month)
}

// SplitIntoCalendarMonths splits [start, end) into maximal ordered segments that
// each fall within a single civil month of loc. Empty or inverted intervals
// yield no segments.
//
// The second return value is false when the split was truncated because limit
// iterations were exhausted or a month boundary failed to advance; the
// segments returned up to that point are still valid. A limit <= 0 uses
// DefaultSegmentLimit.
func SplitIntoCalendarMonths(start, end time.Time, loc *time.Location, limit int) ([]Segment, bool) {
	if !end.After(start) {
		return nil, true
	}
	if loc == nil {
		loc = time.UTC
	}
	if limit <= 0 {
		limit = DefaultSegmentLimit
	}

	segments := make([]Segment, 0, 2)
	cursor := start
	for guard := 0; cursor.Before(end); guard++ {
		if guard >= limit {
			return segments, false
		}

		parts := PartsOf(cursor, loc)
		nextYear, nextMonth := NextMonth(parts.Year, parts.Month)
		boundary := InstantOf(Date(nextYear, nextMonth, 1), loc)

		segmentEnd := end
		if boundary.Before(end) {
			segmentEnd = boundary
		}
		if !segmentEnd.After(cursor) {
			return segments, false
		}

		segments = append(segments, Segment{
			Start:       cursor,
			End:         segmentEnd,
			Year:        parts.Year,
			Month:       parts.Month,
			DaysInMonth: DaysInMonth(parts.Year, parts.Month),
		})
		cursor = segmentEnd
	}
	return segments, true
}
