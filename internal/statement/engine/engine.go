// Package engine computes month-by-month rental statements. It is a pure
// function of its Input: no I/O, no clock and no package-level settings.
package engine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/rentsoft/internal/calendar"
	"github.com/smallbiznis/rentsoft/internal/proration"
	"github.com/smallbiznis/rentsoft/internal/statement/domain"
)

// Input is everything a statement is computed from. Now is the statement
// instant used to clamp open line items and must be set by the caller.
type Input struct {
	Order     domain.RentalOrder
	LineItems []domain.LineItem
	Fees      []domain.Fee

	TimeZone               string
	MonthlyProrationMethod string
	Now                    time.Time

	// SegmentLimit caps month segmentation per active interval. Zero uses
	// calendar.DefaultSegmentLimit.
	SegmentLimit int
}

func (in Input) location() *time.Location {
	return calendar.LoadZone(in.TimeZone)
}

func (in Input) policy() proration.Policy {
	return proration.StatementPolicy(proration.ParseMonthlyMethod(in.MonthlyProrationMethod))
}

// Quantity returns the number of units a line item bills for. Bundles bill
// as one unit; demand-only orders bill unassigned items as one notional unit.
func Quantity(li domain.LineItem, status domain.OrderStatus) int {
	if li.BundleID != nil {
		return 1
	}
	if n := len(li.InventoryIDs); n > 0 {
		return n
	}
	if status.IsDemandOnly() {
		return 1
	}
	return 0
}

// charge is the billed amount of one line item within one month segment.
type charge struct {
	index   int
	key     string
	item    domain.LineItem
	basis   proration.RateBasis
	rate    decimal.Decimal
	qty     int
	segment calendar.Segment
	units   float64
	amount  decimal.Decimal
}

type scanResult struct {
	warnings  []string
	openItems []domain.OpenItem
}

func (r *scanResult) warnf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// scanLineItems validates each line item, resolves its billing window, takes
// pauses out and emits one charge per positive month segment.
func scanLineItems(in Input, emit func(charge)) scanResult {
	res := scanResult{
		warnings:  []string{},
		openItems: []domain.OpenItem{},
	}
	loc := in.location()
	policy := in.policy()

	for idx, li := range in.LineItems {
		n := idx + 1

		basis, ok := proration.ParseRateBasis(li.RateBasis)
		if !ok {
			res.warnf("Line item %d missing rate basis.", n)
			continue
		}
		if li.RateAmount == nil {
			res.warnf("Line item %d missing rate amount.", n)
			continue
		}
		rate := *li.RateAmount
		if rate.IsNegative() {
			res.warnf("Line item %d has negative rate amount.", n)
			continue
		}
		qty := Quantity(li, in.Order.Status)
		if qty <= 0 {
			res.warnf("Line item %d has no billable units assigned.", n)
			continue
		}
		start := li.BillingStart()
		if start == nil {
			res.warnf("Line item %d missing start date.", n)
			continue
		}

		end, open, provisional := billingEnd(li, in.Now)
		if open {
			res.openItems = append(res.openItems, domain.OpenItem{
				Index:         n,
				LineItemID:    li.ID,
				Label:         li.Label(),
				BilledThrough: end,
				Provisional:   provisional,
			})
		}
		if !end.After(*start) {
			res.warnf("Line item %d has invalid dates.", n)
			continue
		}

		pauses := make([]proration.Pause, 0, len(li.PausePeriods))
		for _, p := range li.PausePeriods {
			pauses = append(pauses, proration.Pause{Start: p.StartAt, End: p.EndAt})
		}
		active := proration.Subtract(
			proration.Interval{Start: *start, End: end},
			proration.NormalizePauses(pauses, end),
		)

		key := itemKey(li, idx)
		truncated := false
		for _, piece := range active {
			segments, complete := calendar.SplitIntoCalendarMonths(piece.Start, piece.End, loc, in.SegmentLimit)
			if !complete && !truncated {
				truncated = true
				res.warnf("Line item %d billing period truncated after %d months.", n, len(segments))
			}
			for _, seg := range segments {
				u := proration.ComputeUnits(seg, basis, policy)
				if u.Units <= 0 {
					continue
				}
				emit(charge{
					index:   idx,
					key:     key,
					item:    li,
					basis:   basis,
					rate:    rate,
					qty:     qty,
					segment: seg,
					units:   u.Units,
					amount:  lineAmount(u.Units, rate, qty),
				})
			}
		}
	}

	return res
}

// billingEnd resolves the instant billing runs to. Returned items bill to the
// return instant. Open items bill to their booked end, clamped to now once
// that end has passed or when no end was booked.
func billingEnd(li domain.LineItem, now time.Time) (end time.Time, open, provisional bool) {
	if li.IsReturned() {
		return *li.ReturnedAt, false, false
	}
	if li.EndAt != nil && !li.EndAt.IsZero() && !li.EndAt.Before(now) {
		return *li.EndAt, true, false
	}
	return now, true, true
}

func itemKey(li domain.LineItem, idx int) string {
	if li.ID != 0 {
		return "li-" + li.ID.String()
	}
	return "li-" + strconv.Itoa(idx)
}
