package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type OrderStatementRequest struct {
	CompanyID snowflake.ID
	OrderID   snowflake.ID
}

type CustomerMonthlyRequest struct {
	CompanyID snowflake.ID
	// Month is a YYYY-MM key in the company's billing timezone.
	Month    string
	Statuses []OrderStatus
}

type YearlyTotalsRequest struct {
	CompanyID snowflake.ID
	Year      int
	Statuses  []OrderStatus
}

// CustomerOrderTotals is one order's contribution to a customer rollup.
type CustomerOrderTotals struct {
	OrderID        snowflake.ID    `json:"order_id"`
	Doc            string          `json:"doc"`
	Status         OrderStatus     `json:"status"`
	StartAt        *time.Time      `json:"start_at,omitempty"`
	EndAt          *time.Time      `json:"end_at,omitempty"`
	LineItemsTotal decimal.Decimal `json:"line_items_total"`
	FeesTotal      decimal.Decimal `json:"fees_total"`
	Total          decimal.Decimal `json:"total"`
}

// CustomerTotals aggregates a customer's orders for one month.
type CustomerTotals struct {
	Key            string                `json:"key"`
	CustomerID     snowflake.ID          `json:"customer_id,omitempty"`
	Name           string                `json:"name"`
	LineItemsTotal decimal.Decimal       `json:"line_items_total"`
	FeesTotal      decimal.Decimal       `json:"fees_total"`
	Total          decimal.Decimal       `json:"total"`
	Orders         []CustomerOrderTotals `json:"orders"`
}

// CustomerMonthlyReport is the per-customer revenue of one month.
type CustomerMonthlyReport struct {
	Month                string           `json:"month"`
	Label                string           `json:"label"`
	TimeZone             string           `json:"timezone"`
	AsOf                 time.Time        `json:"as_of"`
	Customers            []CustomerTotals `json:"customers"`
	CustomersWithCharges int              `json:"customers_with_charges"`
	TotalOrders          int              `json:"total_orders"`
	GrandTotal           decimal.Decimal  `json:"grand_total"`
	HasOpenItems         bool             `json:"has_open_items"`
	Warnings             []string         `json:"warnings,omitempty"`
}

// YearlyTotals holds one total per calendar month, January first.
type YearlyTotals struct {
	Year   int                 `json:"year"`
	Months [12]decimal.Decimal `json:"months"`
}

type Service interface {
	OrderStatement(context.Context, OrderStatementRequest) (Breakdown, error)
	CustomerMonthlyTotals(context.Context, CustomerMonthlyRequest) (CustomerMonthlyReport, error)
	YearlyTotals(context.Context, YearlyTotalsRequest) (YearlyTotals, error)
}

var (
	ErrInvalidCompany  = errors.New("invalid_company")
	ErrInvalidOrder    = errors.New("invalid_order")
	ErrOrderNotFound   = errors.New("order_not_found")
	ErrInvalidMonth    = errors.New("invalid_month")
	ErrInvalidYear     = errors.New("invalid_year")
	ErrMissingStatuses = errors.New("missing_statuses")
)
