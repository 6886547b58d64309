package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rentsoft/internal/cache"
	"github.com/smallbiznis/rentsoft/internal/calendar"
	"github.com/smallbiznis/rentsoft/internal/clock"
	"github.com/smallbiznis/rentsoft/internal/config"
	"github.com/smallbiznis/rentsoft/internal/observability/logger"
	"github.com/smallbiznis/rentsoft/internal/observability/metrics"
	"github.com/smallbiznis/rentsoft/internal/proration"
	"github.com/smallbiznis/rentsoft/internal/statement/domain"
	"github.com/smallbiznis/rentsoft/internal/statement/engine"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	clock  clock.Clock
	cache  cache.StatementCache
	config *config.StatementConfigHolder
	tracer trace.Tracer

	metrics          *metrics.Metrics
	statementMetrics *metrics.StatementMetrics
}

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Repo   domain.Repository
	Clock  clock.Clock
	Cache  cache.StatementCache
	Config *config.StatementConfigHolder

	Tracer           trace.Tracer              `optional:"true"`
	Metrics          *metrics.Metrics          `optional:"true"`
	StatementMetrics *metrics.StatementMetrics `optional:"true"`
}

func New(p Params) domain.Service {
	tracer := p.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/smallbiznis/rentsoft/statement")
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:     p.DB,
		log:    log.Named("statement.service"),
		repo:   p.Repo,
		clock:  p.Clock,
		cache:  p.Cache,
		config: p.Config,
		tracer: tracer,

		metrics:          p.Metrics,
		statementMetrics: p.StatementMetrics,
	}
}

func (s *Service) OrderStatement(ctx context.Context, req domain.OrderStatementRequest) (breakdown domain.Breakdown, err error) {
	if req.CompanyID == 0 {
		return domain.Breakdown{}, domain.ErrInvalidCompany
	}
	if req.OrderID == 0 {
		return domain.Breakdown{}, domain.ErrInvalidOrder
	}

	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "statement.OrderStatement", trace.WithAttributes(
		attribute.String("company_id", req.CompanyID.String()),
		attribute.String("order_id", req.OrderID.String()),
	))
	defer func() { s.finish(span, metrics.StatementOperationOrder, started, err) }()

	settings, err := s.resolveSettings(ctx, req.CompanyID)
	if err != nil {
		return domain.Breakdown{}, err
	}

	order, err := s.repo.FindOrder(ctx, s.db, req.CompanyID, req.OrderID)
	if err != nil {
		return domain.Breakdown{}, fmt.Errorf("find order: %w", err)
	}
	if order == nil {
		return domain.Breakdown{}, domain.ErrOrderNotFound
	}

	input, err := s.loadInput(ctx, *order, settings, s.clock.Now())
	if err != nil {
		return domain.Breakdown{}, err
	}

	breakdown = engine.ComputeMonthlyBreakdown(input)

	log := logger.WithCompany(logger.WithContext(ctx, s.log), req.CompanyID.String())
	for _, warning := range breakdown.Warnings {
		log.Warn("line item skipped", zap.String("order_id", order.ID.String()), zap.String("warning", warning))
	}
	log.Info("order statement computed",
		zap.String("order_id", order.ID.String()),
		zap.String("timezone", breakdown.TimeZone),
		zap.Int("months", len(breakdown.Months)),
		zap.String("grand_total", breakdown.Totals.GrandTotal.StringFixed(2)),
		zap.Int("open_items", len(breakdown.OpenItems)),
		zap.String("checksum", breakdown.Checksum()),
	)

	grandTotal, _ := breakdown.Totals.GrandTotal.Float64()
	s.metrics.RecordStatement(ctx, req.CompanyID.String(), settings.MonthlyProrationMethod, grandTotal, len(breakdown.Warnings))
	s.statementMetrics.AddWarnings(metrics.StatementOperationOrder, len(breakdown.Warnings))
	s.statementMetrics.AddOpenItems(len(breakdown.OpenItems))
	span.SetAttributes(
		attribute.Int("statement.warnings", len(breakdown.Warnings)),
		attribute.Bool("statement.open_items", breakdown.HasOpenItems()),
	)

	return breakdown, nil
}

// resolveSettings returns the company's billing settings with the timezone
// validated and the proration method defaulted from configuration.
func (s *Service) resolveSettings(ctx context.Context, companyID snowflake.ID) (domain.CompanySettings, error) {
	if cached, ok := s.cache.GetSettings(companyID); ok {
		return cached, nil
	}

	stored, err := s.repo.FindCompanySettings(ctx, s.db, companyID)
	if err != nil {
		return domain.CompanySettings{}, fmt.Errorf("find company settings: %w", err)
	}

	cfg := s.config.Get()
	settings := domain.CompanySettings{CompanyID: companyID}
	if stored != nil {
		settings = *stored
		settings.CompanyID = companyID
	}

	if calendar.IsValidZone(settings.TimeZone) {
		settings.TimeZone = calendar.NormalizeZoneName(settings.TimeZone)
	} else {
		if strings.TrimSpace(settings.TimeZone) != "" {
			s.log.Warn("unknown billing timezone, using default",
				zap.String("company_id", companyID.String()),
				zap.String("timezone", settings.TimeZone),
				zap.String("default", cfg.DefaultTimeZone),
			)
		}
		settings.TimeZone = cfg.DefaultTimeZone
	}

	method := strings.TrimSpace(settings.MonthlyProrationMethod)
	if method == "" {
		method = cfg.DefaultMonthlyProrationMethod
	}
	settings.MonthlyProrationMethod = string(proration.ParseMonthlyMethod(method))

	s.cache.SetSettings(settings)
	return settings, nil
}

func (s *Service) loadInput(ctx context.Context, order domain.RentalOrder, settings domain.CompanySettings, now time.Time) (engine.Input, error) {
	lineItems, err := s.repo.ListLineItems(ctx, s.db, order.ID)
	if err != nil {
		return engine.Input{}, fmt.Errorf("list line items of order %s: %w", order.ID, err)
	}
	fees, err := s.repo.ListFees(ctx, s.db, order.ID)
	if err != nil {
		return engine.Input{}, fmt.Errorf("list fees of order %s: %w", order.ID, err)
	}

	return engine.Input{
		Order:                  order,
		LineItems:              lineItems,
		Fees:                   fees,
		TimeZone:               settings.TimeZone,
		MonthlyProrationMethod: settings.MonthlyProrationMethod,
		Now:                    now,
		SegmentLimit:           s.config.Get().SegmentLimit,
	}, nil
}

func (s *Service) finish(span trace.Span, operation string, started time.Time, err error) {
	s.statementMetrics.ObserveRun(operation, time.Since(started))
	if err != nil {
		s.statementMetrics.IncError(operation, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
