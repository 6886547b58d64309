package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
	// ExportInterval defaults to 10s. Pending points are flushed on stop, so
	// short command runs still export.
	ExportInterval time.Duration
}

// Metrics holds the statement instruments exported over OTLP.
type Metrics struct {
	statements       metric.Int64Counter
	monthlyRollups   metric.Int64Counter
	lineItemWarnings metric.Int64Counter
	billedAmount     metric.Float64Histogram
}

// NewProvider returns a noop provider when exporting is disabled. Otherwise
// it builds an OTLP-backed provider that is flushed and shut down on stop.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}
	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName(cfg.ServiceName)),
			attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
		)),
	)
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.StopHook(func(ctx context.Context) error {
			if err := provider.ForceFlush(ctx); err != nil {
				log.Warn("flush metrics", zap.Error(err))
			}
			return provider.Shutdown(ctx)
		}))
	}
	log.Info("otlp metrics enabled",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
		zap.Duration("interval", interval),
	)
	return provider, nil
}

func serviceName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "rentsoft"
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(serviceName(cfg.ServiceName))

	statements, err := meter.Int64Counter("rentsoft_statements_total")
	if err != nil {
		return nil, err
	}
	monthlyRollups, err := meter.Int64Counter("rentsoft_customer_monthly_rollups_total")
	if err != nil {
		return nil, err
	}
	lineItemWarnings, err := meter.Int64Counter("rentsoft_line_item_warnings_total")
	if err != nil {
		return nil, err
	}
	billedAmount, err := meter.Float64Histogram("rentsoft_statement_grand_total",
		metric.WithUnit("{currency}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		statements:       statements,
		monthlyRollups:   monthlyRollups,
		lineItemWarnings: lineItemWarnings,
		billedAmount:     billedAmount,
	}, nil
}

// RecordStatement counts a computed order statement and its grand total.
func (m *Metrics) RecordStatement(ctx context.Context, companyID, method string, grandTotal float64, warnings int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("company_id", strings.TrimSpace(companyID)),
		attribute.String("method", strings.TrimSpace(method)),
	)
	m.statements.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.billedAmount.Record(ctx, grandTotal, metric.WithAttributes(attrs...))
	if warnings > 0 {
		m.lineItemWarnings.Add(ctx, int64(warnings), metric.WithAttributes(attrs...))
	}
}

// RecordMonthlyRollup counts a customer monthly rollup.
func (m *Metrics) RecordMonthlyRollup(ctx context.Context, companyID, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("company_id", strings.TrimSpace(companyID)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.monthlyRollups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		var opts []otlpmetrichttp.Option
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"company_id": {},
	"operation":  {},
	"outcome":    {},
	"method":     {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
