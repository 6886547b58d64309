package engine

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/rentsoft/internal/calendar"
	"github.com/smallbiznis/rentsoft/internal/statement/domain"
)

type monthAccumulator struct {
	bucket domain.MonthBucket
	items  map[string]*domain.LineItemCharge
}

type breakdownBuilder struct {
	months map[string]*monthAccumulator
}

func (b *breakdownBuilder) month(key string, year, month int) *monthAccumulator {
	if acc, ok := b.months[key]; ok {
		return acc
	}
	bucket := domain.MonthBucket{
		Key:            key,
		Year:           year,
		Month:          month,
		LineItemsTotal: decimal.Zero,
		FeesTotal:      decimal.Zero,
		Items:          []domain.LineItemCharge{},
		Fees:           []domain.FeeCharge{},
	}
	if key == domain.UndatedKey {
		bucket.IsUndated = true
		bucket.Label = domain.UndatedLabel
	} else {
		bucket.Label = calendar.MonthLabel(year, month)
	}
	acc := &monthAccumulator{bucket: bucket, items: map[string]*domain.LineItemCharge{}}
	b.months[key] = acc
	return acc
}

func (b *breakdownBuilder) addCharge(c charge) {
	acc := b.month(c.segment.MonthKey(), c.segment.Year, c.segment.Month)
	entry, ok := acc.items[c.key]
	if !ok {
		entry = &domain.LineItemCharge{
			Key:        c.key,
			LineItemID: c.item.ID,
			Label:      c.item.Label(),
			RateBasis:  string(c.basis),
			RateLabel:  rateLabel(c.basis, c.rate, c.qty),
			Quantity:   c.qty,
			Amount:     decimal.Zero,
		}
		acc.items[c.key] = entry
	}
	entry.Units += c.units
	entry.UnitsLabel = unitsLabel(c.basis, entry.Units)
	entry.Amount = round2(entry.Amount.Add(c.amount))
	acc.bucket.LineItemsTotal = round2(acc.bucket.LineItemsTotal.Add(c.amount))
}

func (b *breakdownBuilder) addFee(in Input, fee domain.Fee) {
	date, year, month, ok := feeDate(fee.FeeDate, in.location())
	key := domain.UndatedKey
	if ok {
		key = calendar.MonthKey(year, month)
	}
	acc := b.month(key, year, month)
	acc.bucket.Fees = append(acc.bucket.Fees, domain.FeeCharge{
		Name:   feeName(fee.Name),
		Amount: fee.Amount,
		Date:   date,
	})
	acc.bucket.FeesTotal = round2(acc.bucket.FeesTotal.Add(fee.Amount))
}

func (b *breakdownBuilder) buckets() []domain.MonthBucket {
	out := make([]domain.MonthBucket, 0, len(b.months))
	for _, acc := range b.months {
		bucket := acc.bucket
		for _, item := range acc.items {
			bucket.Items = append(bucket.Items, *item)
		}
		sort.Slice(bucket.Items, func(i, j int) bool {
			if bucket.Items[i].Label != bucket.Items[j].Label {
				return bucket.Items[i].Label < bucket.Items[j].Label
			}
			return bucket.Items[i].Key < bucket.Items[j].Key
		})
		bucket.Total = round2(bucket.LineItemsTotal.Add(bucket.FeesTotal))
		out = append(out, bucket)
	}

	// YYYY-MM keys sort chronologically as strings.
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsUndated != out[j].IsUndated {
			return out[j].IsUndated
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ComputeMonthlyBreakdown attributes every line item and fee of an order to
// the civil months of in.TimeZone. Problems with individual line items never
// fail the call; they are reported in Warnings and the item is skipped.
func ComputeMonthlyBreakdown(in Input) domain.Breakdown {
	b := &breakdownBuilder{months: map[string]*monthAccumulator{}}
	scan := scanLineItems(in, b.addCharge)
	for _, fee := range in.Fees {
		b.addFee(in, fee)
	}

	months := b.buckets()
	totals := domain.Totals{
		LineItemsTotal: decimal.Zero,
		FeesTotal:      decimal.Zero,
		GrandTotal:     decimal.Zero,
	}
	for _, m := range months {
		totals.LineItemsTotal = totals.LineItemsTotal.Add(m.LineItemsTotal)
		totals.FeesTotal = totals.FeesTotal.Add(m.FeesTotal)
		totals.GrandTotal = totals.GrandTotal.Add(m.Total)
	}
	totals.LineItemsTotal = round2(totals.LineItemsTotal)
	totals.FeesTotal = round2(totals.FeesTotal)
	totals.GrandTotal = round2(totals.GrandTotal)

	return domain.Breakdown{
		OrderID:   in.Order.ID,
		TimeZone:  calendar.NormalizeZoneName(in.TimeZone),
		AsOf:      in.Now,
		Months:    months,
		Totals:    totals,
		Warnings:  scan.warnings,
		OpenItems: scan.openItems,
	}
}
