package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/rentsoft/internal/calendar"
	"github.com/smallbiznis/rentsoft/internal/observability/metrics"
	"github.com/smallbiznis/rentsoft/internal/statement/domain"
	"github.com/smallbiznis/rentsoft/internal/statement/engine"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func (s *Service) YearlyTotals(ctx context.Context, req domain.YearlyTotalsRequest) (totals domain.YearlyTotals, err error) {
	if req.CompanyID == 0 {
		return domain.YearlyTotals{}, domain.ErrInvalidCompany
	}
	if req.Year < 1 || req.Year > 9999 {
		return domain.YearlyTotals{}, domain.ErrInvalidYear
	}
	statuses := normalizeStatuses(req.Statuses)
	if len(statuses) == 0 {
		return domain.YearlyTotals{}, domain.ErrMissingStatuses
	}

	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "statement.YearlyTotals", trace.WithAttributes(
		attribute.String("company_id", req.CompanyID.String()),
		attribute.Int("year", req.Year),
	))
	defer func() { s.finish(span, metrics.StatementOperationYearTotals, started, err) }()

	cached, ok, err := s.cache.GetYearTotals(ctx, req.CompanyID, req.Year, statuses)
	if err != nil {
		s.log.Warn("year totals cache read failed", zap.Error(err))
	} else if ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	release, owner, err := s.cache.LockYearTotals(ctx, req.CompanyID, req.Year, statuses)
	if err != nil {
		s.log.Warn("year totals lock failed", zap.Error(err))
	}
	defer release()

	totals, err = s.computeYearTotals(ctx, req, statuses)
	if err != nil {
		return domain.YearlyTotals{}, err
	}

	// Only the lock owner writes the shared entry.
	if owner {
		if err := s.cache.SetYearTotals(ctx, req.CompanyID, statuses, totals); err != nil {
			s.log.Warn("year totals cache write failed", zap.Error(err))
		}
	}
	return totals, nil
}

func (s *Service) computeYearTotals(ctx context.Context, req domain.YearlyTotalsRequest, statuses []domain.OrderStatus) (domain.YearlyTotals, error) {
	settings, err := s.resolveSettings(ctx, req.CompanyID)
	if err != nil {
		return domain.YearlyTotals{}, err
	}
	loc := calendar.LoadZone(settings.TimeZone)
	from, _ := calendar.MonthRange(req.Year, 1, loc)
	_, to := calendar.MonthRange(req.Year, 12, loc)

	orders, err := s.repo.ListOrders(ctx, s.db, req.CompanyID, domain.OrderFilter{
		Statuses: statuses,
		From:     from,
		To:       to,
	})
	if err != nil {
		return domain.YearlyTotals{}, fmt.Errorf("list orders: %w", err)
	}

	breakdowns, err := computeOrders(ctx, s, orders, settings, s.clock.Now(), engine.ComputeMonthlyBreakdown)
	if err != nil {
		return domain.YearlyTotals{}, err
	}
	s.statementMetrics.AddOrders(metrics.StatementOperationYearTotals, len(orders))

	totals := domain.YearlyTotals{Year: req.Year}
	for i := range totals.Months {
		totals.Months[i] = decimal.Zero
	}
	for _, breakdown := range breakdowns {
		for i := range totals.Months {
			bucket, ok := breakdown.Bucket(calendar.MonthKey(req.Year, i+1))
			if !ok {
				continue
			}
			month := domain.MonthTotals{
				LineItemsTotal: bucket.LineItemsTotal,
				FeesTotal:      bucket.FeesTotal,
				Total:          bucket.Total,
			}
			if !month.HasCharges() {
				continue
			}
			totals.Months[i] = totals.Months[i].Add(month.Total).Round(2)
		}
	}
	return totals, nil
}
