package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/rentsoft/internal/statement/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(month time.Month, day, hour int) time.Time {
	return time.Date(2026, month, day, hour, 0, 0, 0, time.UTC)
}

func tp(t time.Time) *time.Time { return &t }

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func orderedOrder() domain.RentalOrder {
	return domain.RentalOrder{ID: 100, CompanyID: 1, Status: domain.OrderStatusOrdered}
}

func monthlyItem() domain.LineItem {
	return domain.LineItem{
		ID:           11,
		TypeName:     "Excavator",
		InventoryIDs: []snowflake.ID{501},
		RateBasis:    "monthly",
		RateAmount:   dec("3000"),
		FulfilledAt:  tp(utc(time.January, 1, 0)),
		EndAt:        tp(utc(time.February, 1, 0)),
		ReturnedAt:   tp(utc(time.February, 1, 0)),
	}
}

func TestComputeMonthlyBreakdown_FullMonth(t *testing.T) {
	b := ComputeMonthlyBreakdown(Input{
		Order:                  orderedOrder(),
		LineItems:              []domain.LineItem{monthlyItem()},
		TimeZone:               "UTC",
		MonthlyProrationMethod: "hours",
		Now:                    utc(time.March, 1, 0),
	})

	require.Len(t, b.Months, 1)
	jan := b.Months[0]
	assert.Equal(t, "2026-01", jan.Key)
	assert.Equal(t, "January 2026", jan.Label)
	require.Len(t, jan.Items, 1)
	assert.InDelta(t, 1.0, jan.Items[0].Units, 1e-12)
	assert.Equal(t, "1.0000 month", jan.Items[0].UnitsLabel)
	assert.Equal(t, "Monthly $3000.00", jan.Items[0].RateLabel)
	assert.Equal(t, "3000.00", jan.Items[0].Amount.StringFixed(2))
	assert.Equal(t, "3000.00", jan.Total.StringFixed(2))
	assert.Equal(t, "3000.00", b.Totals.GrandTotal.StringFixed(2))
	assert.Empty(t, b.Warnings)
	assert.Empty(t, b.OpenItems)
	assert.False(t, b.HasOpenItems())
}

func TestComputeMonthlyBreakdown_PausedInterval(t *testing.T) {
	item := monthlyItem()
	item.PausePeriods = []domain.PausePeriod{
		{StartAt: utc(time.January, 10, 0), EndAt: tp(utc(time.January, 15, 0))},
	}

	b := ComputeMonthlyBreakdown(Input{
		Order:                  orderedOrder(),
		LineItems:              []domain.LineItem{item},
		TimeZone:               "UTC",
		MonthlyProrationMethod: "hours",
		Now:                    utc(time.March, 1, 0),
	})

	jan, ok := b.Bucket("2026-01")
	require.True(t, ok)
	require.Len(t, jan.Items, 1)
	assert.InDelta(t, 26.0/31.0, jan.Items[0].Units, 1e-9)
	assert.Equal(t, "0.8387 months", jan.Items[0].UnitsLabel)
	assert.Equal(t, "2516.13", jan.Items[0].Amount.StringFixed(2))
	assert.Equal(t, "2516.13", b.Totals.LineItemsTotal.StringFixed(2))
}

func TestComputeMonthlyBreakdown_DaysMethodMatchesHoursForWholeDays(t *testing.T) {
	item := monthlyItem()
	item.PausePeriods = []domain.PausePeriod{
		{StartAt: utc(time.January, 10, 0), EndAt: tp(utc(time.January, 15, 0))},
	}
	b := ComputeMonthlyBreakdown(Input{
		Order:                  orderedOrder(),
		LineItems:              []domain.LineItem{item},
		TimeZone:               "UTC",
		MonthlyProrationMethod: "days",
		Now:                    utc(time.March, 1, 0),
	})
	assert.Equal(t, "2516.13", b.Totals.GrandTotal.StringFixed(2))
}

func TestComputeMonthlyBreakdown_OpenItemClampedToNow(t *testing.T) {
	item := domain.LineItem{
		ID:           12,
		TypeName:     "Generator",
		InventoryIDs: []snowflake.ID{601},
		RateBasis:    "daily",
		RateAmount:   dec("100"),
		StartAt:      tp(utc(time.January, 1, 0)),
		EndAt:        tp(utc(time.January, 5, 0)),
	}
	now := utc(time.January, 11, 0)

	b := ComputeMonthlyBreakdown(Input{
		Order:     orderedOrder(),
		LineItems: []domain.LineItem{item},
		TimeZone:  "UTC",
		Now:       now,
	})

	assert.Empty(t, b.Warnings)
	require.Len(t, b.OpenItems, 1)
	assert.Equal(t, 1, b.OpenItems[0].Index)
	assert.Equal(t, now, b.OpenItems[0].BilledThrough)
	assert.True(t, b.OpenItems[0].Provisional)
	assert.Equal(t, "1000.00", b.Totals.GrandTotal.StringFixed(2))
	assert.Equal(t, now, b.AsOf)
}

func TestComputeMonthlyBreakdown_OpenItemWithFutureEnd(t *testing.T) {
	item := domain.LineItem{
		TypeName:     "Generator",
		InventoryIDs: []snowflake.ID{601},
		RateBasis:    "daily",
		RateAmount:   dec("100"),
		StartAt:      tp(utc(time.January, 1, 0)),
		EndAt:        tp(utc(time.February, 1, 0)),
	}

	b := ComputeMonthlyBreakdown(Input{
		Order:     orderedOrder(),
		LineItems: []domain.LineItem{item},
		TimeZone:  "UTC",
		Now:       utc(time.January, 11, 0),
	})

	require.Len(t, b.OpenItems, 1)
	assert.False(t, b.OpenItems[0].Provisional)
	assert.Equal(t, utc(time.February, 1, 0), b.OpenItems[0].BilledThrough)
	assert.Equal(t, "3100.00", b.Totals.GrandTotal.StringFixed(2))
	require.Len(t, b.Months[0].Items, 1)
	assert.Equal(t, "li-0", b.Months[0].Items[0].Key)
}

func TestComputeMonthlyBreakdown_UndatedFeesIsolated(t *testing.T) {
	b := ComputeMonthlyBreakdown(Input{
		Order:     orderedOrder(),
		LineItems: []domain.LineItem{monthlyItem()},
		Fees: []domain.Fee{
			{Name: "Delivery", Amount: decimal.RequireFromString("50")},
			{Name: "Cleaning", Amount: decimal.RequireFromString("25"), FeeDate: "2026-01-15"},
			{Amount: decimal.RequireFromString("10"), FeeDate: "not a date"},
		},
		TimeZone: "UTC",
		Now:      utc(time.March, 1, 0),
	})

	require.Len(t, b.Months, 2)
	jan, undated := b.Months[0], b.Months[1]
	assert.Equal(t, "2026-01", jan.Key)
	assert.Equal(t, "25.00", jan.FeesTotal.StringFixed(2))
	assert.Equal(t, "3025.00", jan.Total.StringFixed(2))

	assert.Equal(t, domain.UndatedKey, undated.Key)
	assert.Equal(t, domain.UndatedLabel, undated.Label)
	assert.True(t, undated.IsUndated)
	assert.True(t, undated.LineItemsTotal.IsZero())
	assert.Empty(t, undated.Items)
	require.Len(t, undated.Fees, 2)
	assert.Equal(t, "Delivery", undated.Fees[0].Name)
	assert.Equal(t, "Fee", undated.Fees[1].Name)
	assert.Equal(t, "60.00", undated.Total.StringFixed(2))

	assert.Equal(t, "3000.00", b.Totals.LineItemsTotal.StringFixed(2))
	assert.Equal(t, "85.00", b.Totals.FeesTotal.StringFixed(2))
	assert.Equal(t, "3085.00", b.Totals.GrandTotal.StringFixed(2))
}

func TestComputeMonthlyBreakdown_FeeTimestampUsesZone(t *testing.T) {
	b := ComputeMonthlyBreakdown(Input{
		Order: orderedOrder(),
		Fees: []domain.Fee{
			{Name: "Late return", Amount: decimal.RequireFromString("40"), FeeDate: "2026-02-01T03:00:00Z"},
		},
		TimeZone: "America/New_York",
		Now:      utc(time.March, 1, 0),
	})

	require.Len(t, b.Months, 1)
	assert.Equal(t, "2026-01", b.Months[0].Key)
	assert.Equal(t, "2026-01-31", b.Months[0].Fees[0].Date)
}

func TestComputeMonthlyBreakdown_Warnings(t *testing.T) {
	items := []domain.LineItem{
		{RateAmount: dec("10"), InventoryIDs: []snowflake.ID{1}, StartAt: tp(utc(time.January, 1, 0))},
		{RateBasis: "daily", InventoryIDs: []snowflake.ID{1}, StartAt: tp(utc(time.January, 1, 0))},
		{RateBasis: "daily", RateAmount: dec("-5"), InventoryIDs: []snowflake.ID{1}, StartAt: tp(utc(time.January, 1, 0))},
		{RateBasis: "daily", RateAmount: dec("10"), StartAt: tp(utc(time.January, 1, 0))},
		{RateBasis: "daily", RateAmount: dec("10"), InventoryIDs: []snowflake.ID{1}},
		{
			RateBasis:    "daily",
			RateAmount:   dec("10"),
			InventoryIDs: []snowflake.ID{1},
			StartAt:      tp(utc(time.January, 5, 0)),
			ReturnedAt:   tp(utc(time.January, 5, 0)),
		},
		{
			RateBasis:    "weekly",
			RateAmount:   dec("70"),
			InventoryIDs: []snowflake.ID{1, 2},
			StartAt:      tp(utc(time.January, 1, 0)),
			ReturnedAt:   tp(utc(time.January, 8, 0)),
		},
	}

	b := ComputeMonthlyBreakdown(Input{
		Order:     orderedOrder(),
		LineItems: items,
		TimeZone:  "UTC",
		Now:       utc(time.March, 1, 0),
	})

	assert.Equal(t, []string{
		"Line item 1 missing rate basis.",
		"Line item 2 missing rate amount.",
		"Line item 3 has negative rate amount.",
		"Line item 4 has no billable units assigned.",
		"Line item 5 missing start date.",
		"Line item 6 has invalid dates.",
	}, b.Warnings)
	require.Len(t, b.Months, 1)
	require.Len(t, b.Months[0].Items, 1)
	assert.Equal(t, 2, b.Months[0].Items[0].Quantity)
	assert.Equal(t, "Weekly $70.00 x 2", b.Months[0].Items[0].RateLabel)
	assert.Equal(t, "1.0000 week", b.Months[0].Items[0].UnitsLabel)
	assert.Equal(t, "140.00", b.Totals.GrandTotal.StringFixed(2))
}

func TestComputeMonthlyBreakdown_MergesPiecesWithinMonth(t *testing.T) {
	item := domain.LineItem{
		ID:           21,
		TypeName:     "Light tower",
		InventoryIDs: []snowflake.ID{1},
		RateBasis:    "daily",
		RateAmount:   dec("10"),
		StartAt:      tp(utc(time.January, 15, 0)),
		ReturnedAt:   tp(utc(time.March, 10, 0)),
		PausePeriods: []domain.PausePeriod{
			{StartAt: utc(time.February, 10, 0), EndAt: tp(utc(time.February, 12, 0))},
		},
	}

	b := ComputeMonthlyBreakdown(Input{
		Order:     orderedOrder(),
		LineItems: []domain.LineItem{item},
		TimeZone:  "UTC",
		Now:       utc(time.April, 1, 0),
	})

	require.Len(t, b.Months, 3)
	assert.Equal(t, []string{"2026-01", "2026-02", "2026-03"}, []string{b.Months[0].Key, b.Months[1].Key, b.Months[2].Key})

	feb := b.Months[1]
	require.Len(t, feb.Items, 1)
	assert.Equal(t, "li-21", feb.Items[0].Key)
	assert.InDelta(t, 26.0, feb.Items[0].Units, 1e-9)
	assert.Equal(t, "26.0000 days", feb.Items[0].UnitsLabel)
	assert.Equal(t, "260.00", feb.Items[0].Amount.StringFixed(2))
	assert.Equal(t, "170.00", b.Months[0].Total.StringFixed(2))
	assert.Equal(t, "90.00", b.Months[2].Total.StringFixed(2))
	assert.Equal(t, "520.00", b.Totals.GrandTotal.StringFixed(2))
}

func TestComputeMonthlyBreakdown_FullyPausedContributesNothing(t *testing.T) {
	item := monthlyItem()
	item.PausePeriods = []domain.PausePeriod{{StartAt: utc(time.January, 1, 0)}}

	b := ComputeMonthlyBreakdown(Input{
		Order:     orderedOrder(),
		LineItems: []domain.LineItem{item},
		TimeZone:  "UTC",
		Now:       utc(time.March, 1, 0),
	})

	assert.Empty(t, b.Months)
	assert.Empty(t, b.Warnings)
	assert.True(t, b.Totals.GrandTotal.IsZero())
}

func TestComputeMonthlyBreakdown_ZoneBoundaries(t *testing.T) {
	item := monthlyItem()
	item.RateAmount = dec("3100")

	b := ComputeMonthlyBreakdown(Input{
		Order:     orderedOrder(),
		LineItems: []domain.LineItem{item},
		TimeZone:  "America/New_York",
		Now:       utc(time.March, 1, 0),
	})

	assert.Equal(t, "America/New_York", b.TimeZone)
	require.Len(t, b.Months, 2)
	assert.Equal(t, "2025-12", b.Months[0].Key)
	assert.Equal(t, "December 2025", b.Months[0].Label)
	assert.Equal(t, "20.83", b.Months[0].Total.StringFixed(2))
	assert.Equal(t, "2026-01", b.Months[1].Key)
	assert.Equal(t, "3079.17", b.Months[1].Total.StringFixed(2))
}

func TestComputeMonthlyBreakdown_InvalidZoneFallsBackToUTC(t *testing.T) {
	b := ComputeMonthlyBreakdown(Input{
		Order:     orderedOrder(),
		LineItems: []domain.LineItem{monthlyItem()},
		TimeZone:  "Mars/Olympus_Mons",
		Now:       utc(time.March, 1, 0),
	})
	assert.Equal(t, "UTC", b.TimeZone)
	require.Len(t, b.Months, 1)
	assert.Equal(t, "3000.00", b.Totals.GrandTotal.StringFixed(2))
}

func TestComputeMonthlyBreakdown_TruncatedSegmentation(t *testing.T) {
	item := domain.LineItem{
		InventoryIDs: []snowflake.ID{1},
		RateBasis:    "daily",
		RateAmount:   dec("1"),
		StartAt:      tp(utc(time.January, 1, 0)),
		ReturnedAt:   tp(utc(time.June, 1, 0)),
	}

	b := ComputeMonthlyBreakdown(Input{
		Order:        orderedOrder(),
		LineItems:    []domain.LineItem{item},
		TimeZone:     "UTC",
		Now:          utc(time.July, 1, 0),
		SegmentLimit: 2,
	})

	assert.Equal(t, []string{"Line item 1 billing period truncated after 2 months."}, b.Warnings)
	require.Len(t, b.Months, 2)
	assert.Equal(t, "59.00", b.Totals.GrandTotal.StringFixed(2))
}

func TestComputeMonthlyBreakdown_ItemsSortedByLabel(t *testing.T) {
	mk := func(id snowflake.ID, name string) domain.LineItem {
		li := monthlyItem()
		li.ID = id
		li.TypeName = name
		return li
	}
	bundle := snowflake.ID(9)
	withBundle := mk(3, "ignored")
	withBundle.BundleID = &bundle
	withBundle.BundleName = "Site kit"
	withBundle.InventoryIDs = nil

	b := ComputeMonthlyBreakdown(Input{
		Order:     orderedOrder(),
		LineItems: []domain.LineItem{mk(1, "Skid steer"), mk(2, "Boom lift"), withBundle},
		TimeZone:  "UTC",
		Now:       utc(time.March, 1, 0),
	})

	require.Len(t, b.Months, 1)
	labels := make([]string, 0, 3)
	for _, item := range b.Months[0].Items {
		labels = append(labels, item.Label)
	}
	assert.Equal(t, []string{"Boom lift", "Bundle: Site kit", "Skid steer"}, labels)
	assert.Equal(t, "9000.00", b.Totals.GrandTotal.StringFixed(2))
}

func TestComputeMonthlyBreakdown_Deterministic(t *testing.T) {
	item := monthlyItem()
	item.PausePeriods = []domain.PausePeriod{
		{StartAt: utc(time.January, 10, 0), EndAt: tp(utc(time.January, 15, 0))},
	}
	open := domain.LineItem{
		TypeName:     "Pump",
		InventoryIDs: []snowflake.ID{7, 8},
		RateBasis:    "weekly",
		RateAmount:   dec("210"),
		StartAt:      tp(utc(time.January, 20, 6)),
	}
	in := Input{
		Order:     orderedOrder(),
		LineItems: []domain.LineItem{item, open},
		Fees: []domain.Fee{
			{Name: "Delivery", Amount: decimal.RequireFromString("75.5")},
			{Name: "Fuel", Amount: decimal.RequireFromString("12.25"), FeeDate: "2026-02-03"},
		},
		TimeZone:               "Europe/Berlin",
		MonthlyProrationMethod: "days",
		Now:                    utc(time.February, 14, 9),
	}

	first := ComputeMonthlyBreakdown(in)
	second := ComputeMonthlyBreakdown(in)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, first.Checksum(), second.Checksum())
	assert.Len(t, first.Checksum(), 64)
}

func TestQuantity(t *testing.T) {
	bundle := snowflake.ID(4)
	assert.Equal(t, 1, Quantity(domain.LineItem{BundleID: &bundle, InventoryIDs: []snowflake.ID{1, 2}}, domain.OrderStatusOrdered))
	assert.Equal(t, 3, Quantity(domain.LineItem{InventoryIDs: []snowflake.ID{1, 2, 3}}, domain.OrderStatusClosed))
	assert.Equal(t, 1, Quantity(domain.LineItem{}, domain.OrderStatusQuote))
	assert.Equal(t, 1, Quantity(domain.LineItem{}, domain.OrderStatusReservation))
	assert.Equal(t, 0, Quantity(domain.LineItem{}, domain.OrderStatusReceived))
}
