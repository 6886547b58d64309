// Package domain holds the rental statement inputs, outputs and contracts.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle status of a rental order.
type OrderStatus string

const (
	OrderStatusQuote           OrderStatus = "quote"
	OrderStatusQuoteRejected   OrderStatus = "quote_rejected"
	OrderStatusRequested       OrderStatus = "requested"
	OrderStatusRequestRejected OrderStatus = "request_rejected"
	OrderStatusReservation     OrderStatus = "reservation"
	OrderStatusOrdered         OrderStatus = "ordered"
	OrderStatusReceived        OrderStatus = "received"
	OrderStatusClosed          OrderStatus = "closed"
)

// NormalizeOrderStatus maps stored status spellings onto OrderStatus.
// Unknown values are treated as quotes.
func NormalizeOrderStatus(raw string) OrderStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "quote":
		return OrderStatusQuote
	case "quote_rejected", "rejected":
		return OrderStatusQuoteRejected
	case "requested", "request":
		return OrderStatusRequested
	case "request_rejected", "requested_rejected":
		return OrderStatusRequestRejected
	case "reservation":
		return OrderStatusReservation
	case "ordered":
		return OrderStatusOrdered
	case "received", "recieved":
		return OrderStatusReceived
	case "closed":
		return OrderStatusClosed
	default:
		return OrderStatusQuote
	}
}

// IsDemandOnly reports whether orders in this status may lack assigned units.
func (s OrderStatus) IsDemandOnly() bool {
	switch NormalizeOrderStatus(string(s)) {
	case OrderStatusQuote, OrderStatusQuoteRejected, OrderStatusReservation, OrderStatusRequested:
		return true
	default:
		return false
	}
}

// RentalOrder is the order snapshot a statement is computed for.
type RentalOrder struct {
	ID           snowflake.ID `json:"id"`
	CompanyID    snowflake.ID `json:"company_id"`
	Status       OrderStatus  `json:"status"`
	CustomerID   snowflake.ID `json:"customer_id,omitempty"`
	CustomerName string       `json:"customer_name,omitempty"`
	RONumber     string       `json:"ro_number,omitempty"`
	QuoteNumber  string       `json:"quote_number,omitempty"`
	StartAt      *time.Time   `json:"start_at,omitempty"`
	EndAt        *time.Time   `json:"end_at,omitempty"`
}

// DocNumber returns the document number shown for the order.
func (o RentalOrder) DocNumber() string {
	ro := strings.TrimSpace(o.RONumber)
	quote := strings.TrimSpace(o.QuoteNumber)
	switch {
	case ro != "" && quote != "":
		return ro + " / " + quote
	case ro != "":
		return ro
	case quote != "":
		return quote
	default:
		return "#" + o.ID.String()
	}
}

// PausePeriod is a maintenance pause on a line item. A nil EndAt means the
// pause is still ongoing.
type PausePeriod struct {
	StartAt time.Time  `json:"start_at"`
	EndAt   *time.Time `json:"end_at,omitempty"`
}

// LineItem is one rented equipment type (or bundle) on an order.
type LineItem struct {
	ID           snowflake.ID     `json:"id,omitempty"`
	TypeName     string           `json:"type_name,omitempty"`
	BundleID     *snowflake.ID    `json:"bundle_id,omitempty"`
	BundleName   string           `json:"bundle_name,omitempty"`
	InventoryIDs []snowflake.ID   `json:"inventory_ids,omitempty"`
	RateBasis    string           `json:"rate_basis"`
	RateAmount   *decimal.Decimal `json:"rate_amount,omitempty"`

	// StartAt and EndAt are the booked rental window. FulfilledAt and
	// ReturnedAt are the actual handover instants and take precedence.
	StartAt     *time.Time `json:"start_at,omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	FulfilledAt *time.Time `json:"fulfilled_at,omitempty"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`

	PausePeriods []PausePeriod `json:"pause_periods,omitempty"`
}

// BillingStart returns the instant billing starts from, if known.
func (li LineItem) BillingStart() *time.Time {
	if li.FulfilledAt != nil && !li.FulfilledAt.IsZero() {
		return li.FulfilledAt
	}
	if li.StartAt != nil && !li.StartAt.IsZero() {
		return li.StartAt
	}
	return nil
}

// IsReturned reports whether the equipment has come back.
func (li LineItem) IsReturned() bool {
	return li.ReturnedAt != nil && !li.ReturnedAt.IsZero()
}

// Label is the human name of the line item.
func (li LineItem) Label() string {
	if name := strings.TrimSpace(li.BundleName); name != "" {
		return "Bundle: " + name
	}
	if name := strings.TrimSpace(li.TypeName); name != "" {
		return name
	}
	return "Line item"
}

// Fee is a one-off charge on an order. FeeDate is a calendar date
// (YYYY-MM-DD) or timestamp; when empty or unparseable the fee is undated.
type Fee struct {
	ID      snowflake.ID    `json:"id,omitempty"`
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"`
	FeeDate string          `json:"fee_date,omitempty"`
}

// CompanySettings are the billing settings of the company owning an order.
type CompanySettings struct {
	CompanyID              snowflake.ID `json:"company_id"`
	TimeZone               string       `json:"timezone"`
	MonthlyProrationMethod string       `json:"monthly_proration_method"`
	RoundingMode           string       `json:"rounding_mode"`
	RoundingGranularity    string       `json:"rounding_granularity"`
}

// Customer is a customer of the company, listed in customer rollups even
// without charges.
type Customer struct {
	ID          snowflake.ID `json:"id"`
	CompanyName string       `json:"company_name,omitempty"`
	ContactName string       `json:"contact_name,omitempty"`
}

// DisplayName returns the customer's display name.
func (c Customer) DisplayName() string {
	if name := strings.TrimSpace(c.CompanyName); name != "" {
		return name
	}
	if name := strings.TrimSpace(c.ContactName); name != "" {
		return name
	}
	return "Customer"
}

// OrderDetail bundles an order with its line items and fees.
type OrderDetail struct {
	Order     RentalOrder `json:"order"`
	LineItems []LineItem  `json:"line_items"`
	Fees      []Fee       `json:"fees"`
}
