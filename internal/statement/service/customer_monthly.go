package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/rentsoft/internal/calendar"
	"github.com/smallbiznis/rentsoft/internal/observability/logger"
	"github.com/smallbiznis/rentsoft/internal/observability/metrics"
	"github.com/smallbiznis/rentsoft/internal/statement/domain"
	"github.com/smallbiznis/rentsoft/internal/statement/engine"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const unnamedCustomer = "Customer"

func (s *Service) CustomerMonthlyTotals(ctx context.Context, req domain.CustomerMonthlyRequest) (report domain.CustomerMonthlyReport, err error) {
	if req.CompanyID == 0 {
		return domain.CustomerMonthlyReport{}, domain.ErrInvalidCompany
	}
	year, month, ok := calendar.ParseMonthKey(strings.TrimSpace(req.Month))
	if !ok {
		return domain.CustomerMonthlyReport{}, domain.ErrInvalidMonth
	}
	statuses := normalizeStatuses(req.Statuses)
	if len(statuses) == 0 {
		return domain.CustomerMonthlyReport{}, domain.ErrMissingStatuses
	}
	monthKey := calendar.MonthKey(year, month)

	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "statement.CustomerMonthlyTotals", trace.WithAttributes(
		attribute.String("company_id", req.CompanyID.String()),
		attribute.String("month", monthKey),
	))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.RecordMonthlyRollup(ctx, req.CompanyID.String(), outcome)
		s.finish(span, metrics.StatementOperationCustomers, started, err)
	}()

	settings, err := s.resolveSettings(ctx, req.CompanyID)
	if err != nil {
		return domain.CustomerMonthlyReport{}, err
	}
	from, to := calendar.MonthRange(year, month, calendar.LoadZone(settings.TimeZone))

	orders, err := s.repo.ListOrders(ctx, s.db, req.CompanyID, domain.OrderFilter{
		Statuses: statuses,
		From:     from,
		To:       to,
	})
	if err != nil {
		return domain.CustomerMonthlyReport{}, fmt.Errorf("list orders: %w", err)
	}
	customers, err := s.repo.ListCustomers(ctx, s.db, req.CompanyID)
	if err != nil {
		return domain.CustomerMonthlyReport{}, fmt.Errorf("list customers: %w", err)
	}

	now := s.clock.Now()
	totals, err := computeOrders(ctx, s, orders, settings, now, func(in engine.Input) domain.MonthTotals {
		return engine.OrderMonthTotals(in, monthKey)
	})
	if err != nil {
		return domain.CustomerMonthlyReport{}, err
	}
	s.statementMetrics.AddOrders(metrics.StatementOperationCustomers, len(orders))

	report = buildCustomerReport(orders, totals, customers)
	report.Month = monthKey
	report.Label = calendar.MonthLabel(year, month)
	report.TimeZone = settings.TimeZone
	report.AsOf = now

	s.statementMetrics.AddWarnings(metrics.StatementOperationCustomers, len(report.Warnings))
	logger.WithCompany(logger.WithContext(ctx, s.log), req.CompanyID.String()).Info("customer monthly totals computed",
		zap.String("month", monthKey),
		zap.Int("orders", report.TotalOrders),
		zap.Int("customers", len(report.Customers)),
		zap.Int("customers_with_charges", report.CustomersWithCharges),
		zap.String("grand_total", report.GrandTotal.StringFixed(2)),
	)
	return report, nil
}

// buildCustomerReport groups charged orders by customer. Known customers are
// listed even without charges.
func buildCustomerReport(orders []domain.RentalOrder, totals []domain.MonthTotals, customers []domain.Customer) domain.CustomerMonthlyReport {
	entries := make(map[string]*domain.CustomerTotals, len(customers))
	keys := make([]string, 0, len(customers))
	entryFor := func(id snowflake.ID, name string) *domain.CustomerTotals {
		key := customerKey(id, name)
		if entry, ok := entries[key]; ok {
			return entry
		}
		entry := &domain.CustomerTotals{
			Key:            key,
			CustomerID:     id,
			Name:           name,
			LineItemsTotal: decimal.Zero,
			FeesTotal:      decimal.Zero,
			Total:          decimal.Zero,
			Orders:         []domain.CustomerOrderTotals{},
		}
		entries[key] = entry
		keys = append(keys, key)
		return entry
	}

	for _, customer := range customers {
		entryFor(customer.ID, customer.DisplayName())
	}

	report := domain.CustomerMonthlyReport{
		GrandTotal: decimal.Zero,
		Warnings:   []string{},
	}
	for i, order := range orders {
		month := totals[i]
		for _, warning := range month.Warnings {
			report.Warnings = append(report.Warnings, order.DocNumber()+": "+warning)
		}
		if !month.HasCharges() {
			continue
		}

		name := strings.TrimSpace(order.CustomerName)
		if name == "" {
			name = unnamedCustomer
		}
		entry := entryFor(order.CustomerID, name)

		entry.LineItemsTotal = entry.LineItemsTotal.Add(month.LineItemsTotal).Round(2)
		entry.FeesTotal = entry.FeesTotal.Add(month.FeesTotal).Round(2)
		entry.Total = entry.Total.Add(month.Total).Round(2)
		entry.Orders = append(entry.Orders, domain.CustomerOrderTotals{
			OrderID:        order.ID,
			Doc:            order.DocNumber(),
			Status:         order.Status,
			StartAt:        order.StartAt,
			EndAt:          order.EndAt,
			LineItemsTotal: month.LineItemsTotal,
			FeesTotal:      month.FeesTotal,
			Total:          month.Total,
		})

		report.TotalOrders++
		report.GrandTotal = report.GrandTotal.Add(month.Total).Round(2)
		report.HasOpenItems = report.HasOpenItems || month.HasOpenItems
	}

	report.Customers = lo.Map(keys, func(key string, _ int) domain.CustomerTotals {
		customer := *entries[key]
		sort.SliceStable(customer.Orders, func(a, b int) bool {
			return customer.Orders[a].Total.GreaterThan(customer.Orders[b].Total)
		})
		return customer
	})
	sort.SliceStable(report.Customers, func(a, b int) bool {
		left, right := report.Customers[a], report.Customers[b]
		if cmp := left.Total.Cmp(right.Total); cmp != 0 {
			return cmp > 0
		}
		return strings.ToLower(left.Name) < strings.ToLower(right.Name)
	})
	report.CustomersWithCharges = lo.CountBy(report.Customers, func(c domain.CustomerTotals) bool {
		return c.Total.IsPositive()
	})
	return report
}

// customerKey identifies a customer by id, falling back to a slug of the name
// for orders that only carry a free-text customer.
func customerKey(id snowflake.ID, name string) string {
	if id != 0 {
		return "customer-" + id.String()
	}
	if key := slug.Make(name); key != "" {
		return "name-" + key
	}
	return "name-customer"
}

func normalizeStatuses(statuses []domain.OrderStatus) []domain.OrderStatus {
	normalized := lo.FilterMap(statuses, func(status domain.OrderStatus, _ int) (domain.OrderStatus, bool) {
		if strings.TrimSpace(string(status)) == "" {
			return "", false
		}
		return domain.NormalizeOrderStatus(string(status)), true
	})
	return lo.Uniq(normalized)
}
