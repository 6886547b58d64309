package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	StatementOperationOrder      = "order_statement"
	StatementOperationCustomers  = "customer_monthly"
	StatementOperationYearTotals = "yearly_totals"
)

const (
	StatementReasonDeadlineExceeded     = "deadline_exceeded"
	StatementReasonDBLockTimeout        = "db_lock_timeout"
	StatementReasonSerializationFailure = "serialization_failure"
	StatementReasonDB                   = "db"
	StatementReasonUnknown              = "unknown"
)

const (
	CacheResultHit  = "hit"
	CacheResultMiss = "miss"
)

// StatementMetrics captures statement computation health signals.
type StatementMetrics struct {
	runs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	errors     *prometheus.CounterVec
	warnings   *prometheus.CounterVec
	openItems  prometheus.Counter
	ordersSeen *prometheus.CounterVec
	cache      *prometheus.CounterVec
}

var (
	statementMetricsOnce sync.Once
	statementMetrics     *StatementMetrics
)

// Statement returns the statement metrics registered on the default registry.
func Statement(cfg Config) *StatementMetrics {
	statementMetricsOnce.Do(func() {
		statementMetrics = NewStatementMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return statementMetrics
}

// NewStatementMetrics registers statement metrics on registerer.
func NewStatementMetrics(registerer prometheus.Registerer, cfg Config) *StatementMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName(cfg.ServiceName),
		"env":     environment,
	}

	m := &StatementMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "rentsoft_statement_runs_total",
			Help:        "Statement computations by operation.",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "rentsoft_statement_duration_seconds",
			Help:        "Statement computation latency including data loading.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			ConstLabels: constLabels,
		}, []string{"operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "rentsoft_statement_errors_total",
			Help:        "Statement failures by low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"operation", "reason"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "rentsoft_statement_line_item_warnings_total",
			Help:        "Line items skipped or truncated while computing statements.",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		openItems: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rentsoft_statement_open_items_total",
			Help:        "Open line items billed provisionally.",
			ConstLabels: constLabels,
		}),
		ordersSeen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "rentsoft_statement_orders_total",
			Help:        "Orders evaluated by rollups.",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "rentsoft_statement_cache_total",
			Help:        "Statement cache lookups by cache and result.",
			ConstLabels: constLabels,
		}, []string{"cache", "result"}),
	}

	registerer.MustRegister(m.runs, m.duration, m.errors, m.warnings, m.openItems, m.ordersSeen, m.cache)
	return m
}

// ObserveRun records one computation and its latency.
func (m *StatementMetrics) ObserveRun(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(operation).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncError counts a failed computation with classification.
func (m *StatementMetrics) IncError(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(operation, ClassifyStatementError(err)).Inc()
}

// AddWarnings counts line item warnings.
func (m *StatementMetrics) AddWarnings(operation string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.warnings.WithLabelValues(operation).Add(float64(count))
}

// AddOpenItems counts open line items billed through the statement time.
func (m *StatementMetrics) AddOpenItems(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.openItems.Add(float64(count))
}

// AddOrders counts orders evaluated by a rollup.
func (m *StatementMetrics) AddOrders(operation string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.ordersSeen.WithLabelValues(operation).Add(float64(count))
}

// IncCache records a cache lookup result.
func (m *StatementMetrics) IncCache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := CacheResultMiss
	if hit {
		result = CacheResultHit
	}
	m.cache.WithLabelValues(cache, result).Inc()
}

// ClassifyStatementError maps statement errors to low-cardinality reasons.
func ClassifyStatementError(err error) string {
	if err == nil {
		return StatementReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return StatementReasonDeadlineExceeded
	}
	if hasPGCode(err, "55P03") {
		return StatementReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return StatementReasonSerializationFailure
	}
	if isDBError(err) {
		return StatementReasonDB
	}
	return StatementReasonUnknown
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) ||
		errors.Is(err, gorm.ErrInvalidValue) ||
		errors.Is(err, gorm.ErrNotImplemented) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
