package engine

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/rentsoft/internal/calendar"
	"github.com/smallbiznis/rentsoft/internal/statement/domain"
)

// OrderMonthTotals returns the charges of one order attributed to a single
// civil month (YYYY-MM). Undated fees are never part of a month's totals.
func OrderMonthTotals(in Input, monthKey string) domain.MonthTotals {
	lineItems := decimal.Zero
	scan := scanLineItems(in, func(c charge) {
		if c.segment.MonthKey() == monthKey {
			lineItems = round2(lineItems.Add(c.amount))
		}
	})

	fees := decimal.Zero
	loc := in.location()
	for _, fee := range in.Fees {
		_, year, month, ok := feeDate(fee.FeeDate, loc)
		if !ok || calendar.MonthKey(year, month) != monthKey {
			continue
		}
		fees = round2(fees.Add(fee.Amount))
	}

	return domain.MonthTotals{
		LineItemsTotal: lineItems,
		FeesTotal:      fees,
		Total:          round2(lineItems.Add(fees)),
		Warnings:       scan.warnings,
		HasOpenItems:   len(scan.openItems) > 0,
	}
}
