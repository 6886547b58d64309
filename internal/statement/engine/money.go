package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/rentsoft/internal/proration"
)

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// lineAmount is units x rate x qty rounded to cents.
func lineAmount(units float64, rate decimal.Decimal, qty int) decimal.Decimal {
	return round2(decimal.NewFromFloat(units).Mul(rate).Mul(decimal.NewFromInt(int64(qty))))
}

// rateLabel renders e.g. "Monthly $3000.00 x 2".
func rateLabel(basis proration.RateBasis, rate decimal.Decimal, qty int) string {
	name := string(basis)
	if name == "" {
		name = "rate"
	}
	label := strings.ToUpper(name[:1]) + name[1:] + " $" + rate.StringFixed(2)
	if qty > 1 {
		label += fmt.Sprintf(" x %d", qty)
	}
	return label
}

// unitsLabel renders e.g. "0.8387 months".
func unitsLabel(basis proration.RateBasis, units float64) string {
	var unit string
	switch basis {
	case proration.RateBasisMonthly:
		unit = "month"
	case proration.RateBasisWeekly:
		unit = "week"
	default:
		unit = "day"
	}
	if units != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%.4f %s", units, unit)
}
