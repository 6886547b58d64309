package proration

import "strings"

// RateBasis is the billing cadence of a line item.
type RateBasis string

const (
	RateBasisDaily   RateBasis = "daily"
	RateBasisWeekly  RateBasis = "weekly"
	RateBasisMonthly RateBasis = "monthly"
)

// RoundingMode controls how fractional quantities are rounded.
type RoundingMode string

const (
	RoundingNone    RoundingMode = "none"
	RoundingCeil    RoundingMode = "ceil"
	RoundingFloor   RoundingMode = "floor"
	RoundingNearest RoundingMode = "nearest"
)

// Granularity selects the quantity a rounding mode applies to.
type Granularity string

const (
	GranularityUnit Granularity = "unit"
	GranularityDay  Granularity = "day"
	GranularityHour Granularity = "hour"
)

// MonthlyMethod selects how monthly rates are prorated within a month.
type MonthlyMethod string

const (
	MonthlyByDays  MonthlyMethod = "days"
	MonthlyByHours MonthlyMethod = "hours"
)

// Policy is the rounding and proration configuration for unit computation.
// Empty fields take the parser defaults: ceil, unit and hours.
type Policy struct {
	Mode          RoundingMode
	Granularity   Granularity
	MonthlyMethod MonthlyMethod
}

// StatementPolicy is the policy used by monthly statements: exact proration
// with no rounding, whatever rounding the company uses for invoicing.
func StatementPolicy(method MonthlyMethod) Policy {
	return Policy{
		Mode:          RoundingNone,
		Granularity:   GranularityUnit,
		MonthlyMethod: method,
	}
}

// ParseRateBasis parses a rate basis; ok is false for unknown values.
func ParseRateBasis(raw string) (RateBasis, bool) {
	switch RateBasis(strings.ToLower(strings.TrimSpace(raw))) {
	case RateBasisDaily:
		return RateBasisDaily, true
	case RateBasisWeekly:
		return RateBasisWeekly, true
	case RateBasisMonthly:
		return RateBasisMonthly, true
	default:
		return "", false
	}
}

// ParseRoundingMode parses a rounding mode. "prorate" is an alias of none and
// unknown values default to ceil.
func ParseRoundingMode(raw string) RoundingMode {
	switch value := strings.ToLower(strings.TrimSpace(raw)); value {
	case "prorate", string(RoundingNone):
		return RoundingNone
	case string(RoundingCeil), string(RoundingFloor), string(RoundingNearest):
		return RoundingMode(value)
	default:
		return RoundingCeil
	}
}

// ParseGranularity parses a rounding granularity, defaulting to unit.
func ParseGranularity(raw string) Granularity {
	switch value := Granularity(strings.ToLower(strings.TrimSpace(raw))); value {
	case GranularityUnit, GranularityDay, GranularityHour:
		return value
	default:
		return GranularityUnit
	}
}

// ParseMonthlyMethod parses a monthly proration method, defaulting to hours.
func ParseMonthlyMethod(raw string) MonthlyMethod {
	switch value := MonthlyMethod(strings.ToLower(strings.TrimSpace(raw))); value {
	case MonthlyByDays, MonthlyByHours:
		return value
	default:
		return MonthlyByHours
	}
}

func (p Policy) normalized() Policy {
	return Policy{
		Mode:          ParseRoundingMode(string(p.Mode)),
		Granularity:   ParseGranularity(string(p.Granularity)),
		MonthlyMethod: ParseMonthlyMethod(string(p.MonthlyMethod)),
	}
}
