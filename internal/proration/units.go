package proration

import (
	"math"
	"time"

	"github.com/smallbiznis/rentsoft/internal/calendar"
)

const (
	hour = time.Hour
	day  = 24 * time.Hour

	// roundingEpsilon absorbs float noise so that 3.0000000001 days does not
	// ceil to 4 and 2.9999999999 does not floor to 2.
	roundingEpsilon = 1e-9
)

// Units is the billable quantity of a segment.
type Units struct {
	// Units is the fractional count of rate periods (days, weeks or months).
	Units float64
	// ActiveDays is the unrounded segment length in days.
	ActiveDays float64
}

// ComputeUnits returns the billable units for one month-bounded segment.
func ComputeUnits(segment calendar.Segment, basis RateBasis, policy Policy) Units {
	basis, ok := ParseRateBasis(string(basis))
	active := segment.End.Sub(segment.Start)
	if !ok || active <= 0 {
		return Units{}
	}

	policy = policy.normalized()
	rounding := policy.Mode != RoundingNone
	roundsDuration := rounding && (policy.Granularity == GranularityHour || policy.Granularity == GranularityDay)

	daysInMonth := segment.DaysInMonth
	if daysInMonth <= 0 {
		daysInMonth = calendar.DaysInMonth(segment.Year, segment.Month)
	}

	var units float64
	switch basis {
	case RateBasisMonthly:
		if policy.MonthlyMethod == MonthlyByDays {
			days := active.Hours() / 24
			switch {
			case rounding && policy.Granularity == GranularityDay:
				days = RoundValue(days, policy.Mode)
			case rounding:
				days = math.Ceil(days - roundingEpsilon)
			}
			units = days / float64(daysInMonth)
		} else {
			adjusted := active
			if roundsDuration {
				adjusted = RoundDuration(active, policy.Mode, policy.Granularity)
			}
			units = float64(adjusted) / float64(time.Duration(daysInMonth)*day)
		}
	default:
		adjusted := active
		if roundsDuration {
			adjusted = RoundDuration(active, policy.Mode, policy.Granularity)
		}
		days := float64(adjusted) / float64(day)
		if basis == RateBasisWeekly {
			units = days / 7
		} else {
			units = days
		}
	}

	if rounding && policy.Granularity == GranularityUnit {
		units = RoundValue(units, policy.Mode)
	}
	if units < 0 || math.IsNaN(units) {
		units = 0
	}

	return Units{
		Units:      units,
		ActiveDays: float64(active) / float64(day),
	}
}

// RoundValue applies a rounding mode to value.
func RoundValue(value float64, mode RoundingMode) float64 {
	switch ParseRoundingMode(string(mode)) {
	case RoundingNone:
		return value
	case RoundingCeil:
		return math.Ceil(value - roundingEpsilon)
	case RoundingFloor:
		return math.Floor(value + roundingEpsilon)
	default:
		return math.Floor(value + 0.5)
	}
}

// RoundDuration rounds a duration to whole hours or days. Other granularities
// return the duration unchanged.
func RoundDuration(d time.Duration, mode RoundingMode, granularity Granularity) time.Duration {
	if ParseRoundingMode(string(mode)) == RoundingNone {
		return d
	}
	var step time.Duration
	switch ParseGranularity(string(granularity)) {
	case GranularityHour:
		step = hour
	case GranularityDay:
		step = day
	default:
		return d
	}
	count := RoundValue(float64(d)/float64(step), mode)
	if count < 0 {
		count = 0
	}
	return time.Duration(count) * step
}
