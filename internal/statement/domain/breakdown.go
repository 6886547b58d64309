package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// UndatedKey is the month key of the bucket holding fees without a date.
const UndatedKey = "undated"

// UndatedLabel is the label of the undated fees bucket.
const UndatedLabel = "Undated fees"

// LineItemCharge aggregates one line item's charges within a month.
type LineItemCharge struct {
	Key        string          `json:"key"`
	LineItemID snowflake.ID    `json:"line_item_id,omitempty"`
	Label      string          `json:"label"`
	RateBasis  string          `json:"rate_basis"`
	RateLabel  string          `json:"rate_label"`
	Quantity   int             `json:"quantity"`
	Units      float64         `json:"units"`
	UnitsLabel string          `json:"units_label"`
	Amount     decimal.Decimal `json:"amount"`
}

// FeeCharge is a fee attributed to a month bucket.
type FeeCharge struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date,omitempty"`
}

// MonthBucket holds the charges attributed to one civil month, or to the
// undated bucket.
type MonthBucket struct {
	Key            string           `json:"key"`
	Year           int              `json:"year,omitempty"`
	Month          int              `json:"month,omitempty"`
	Label          string           `json:"label"`
	IsUndated      bool             `json:"is_undated"`
	LineItemsTotal decimal.Decimal  `json:"line_items_total"`
	FeesTotal      decimal.Decimal  `json:"fees_total"`
	Total          decimal.Decimal  `json:"total"`
	Items          []LineItemCharge `json:"items"`
	Fees           []FeeCharge      `json:"fees"`
}

// Totals are the grand totals across all buckets.
type Totals struct {
	LineItemsTotal decimal.Decimal `json:"line_items_total"`
	FeesTotal      decimal.Decimal `json:"fees_total"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// OpenItem is a line item that has not been returned yet.
type OpenItem struct {
	Index         int          `json:"index"`
	LineItemID    snowflake.ID `json:"line_item_id,omitempty"`
	Label         string       `json:"label"`
	BilledThrough time.Time    `json:"billed_through"`
	// Provisional is true when the billed-through instant was clamped to the
	// statement time because the booked end has already passed.
	Provisional bool `json:"provisional"`
}

// Breakdown is the month-by-month statement of an order.
type Breakdown struct {
	OrderID   snowflake.ID  `json:"order_id"`
	TimeZone  string        `json:"timezone"`
	AsOf      time.Time     `json:"as_of"`
	Months    []MonthBucket `json:"months"`
	Totals    Totals        `json:"totals"`
	Warnings  []string      `json:"warnings"`
	OpenItems []OpenItem    `json:"open_items"`
}

// HasOpenItems reports whether figures include ongoing usage.
func (b Breakdown) HasOpenItems() bool {
	return len(b.OpenItems) > 0
}

// Bucket returns the bucket with the given key.
func (b Breakdown) Bucket(key string) (MonthBucket, bool) {
	for _, month := range b.Months {
		if month.Key == key {
			return month, true
		}
	}
	return MonthBucket{}, false
}

// Checksum is a sha256 over the JSON encoding of the breakdown. Identical
// inputs and statement time produce identical checksums.
func (b Breakdown) Checksum() string {
	payload, err := json.Marshal(b)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// MonthTotals are one order's charges attributed to a single civil month.
type MonthTotals struct {
	LineItemsTotal decimal.Decimal `json:"line_items_total"`
	FeesTotal      decimal.Decimal `json:"fees_total"`
	Total          decimal.Decimal `json:"total"`
	Warnings       []string        `json:"warnings,omitempty"`
	HasOpenItems   bool            `json:"has_open_items"`
}

// HasCharges reports whether any of the totals is positive.
func (t MonthTotals) HasCharges() bool {
	return t.Total.IsPositive() || t.LineItemsTotal.IsPositive() || t.FeesTotal.IsPositive()
}
