package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/smallbiznis/rentsoft/internal/config"
	"github.com/smallbiznis/rentsoft/internal/observability/metrics"
	"github.com/smallbiznis/rentsoft/internal/statement/domain"
	"go.uber.org/fx"
)

const (
	settingsCacheName   = "company_settings"
	yearTotalsCacheName = "year_totals"

	keyPrefix         = "rentsoft:statement"
	yearTotalsLockTTL = 2 * time.Minute
)

// StatementCache caches company settings in process and yearly totals in
// the shared Store.
type StatementCache interface {
	GetSettings(companyID snowflake.ID) (domain.CompanySettings, bool)
	SetSettings(settings domain.CompanySettings)
	GetYearTotals(ctx context.Context, companyID snowflake.ID, year int, statuses []domain.OrderStatus) (domain.YearlyTotals, bool, error)
	SetYearTotals(ctx context.Context, companyID snowflake.ID, statuses []domain.OrderStatus, totals domain.YearlyTotals) error
	// LockYearTotals reports whether the caller should populate the entry.
	// The returned release func is safe to call when the lock was not taken.
	LockYearTotals(ctx context.Context, companyID snowflake.ID, year int, statuses []domain.OrderStatus) (func(), bool, error)
}

type StatementCacheParams struct {
	fx.In

	Store   Store
	Config  *config.StatementConfigHolder
	Metrics *metrics.StatementMetrics `optional:"true"`
}

type statementCache struct {
	settings Cache[snowflake.ID, domain.CompanySettings]
	store    Store
	config   *config.StatementConfigHolder
	metrics  *metrics.StatementMetrics
}

func NewStatementCache(p StatementCacheParams) StatementCache {
	return &statementCache{
		settings: NewTTLCache[snowflake.ID, domain.CompanySettings](),
		store:    p.Store,
		config:   p.Config,
		metrics:  p.Metrics,
	}
}

func (c *statementCache) GetSettings(companyID snowflake.ID) (domain.CompanySettings, bool) {
	settings, ok := c.settings.Get(companyID)
	c.metrics.IncCache(settingsCacheName, ok)
	return settings, ok
}

func (c *statementCache) SetSettings(settings domain.CompanySettings) {
	if settings.CompanyID == 0 {
		return
	}
	c.settings.Set(settings.CompanyID, settings, c.config.Get().SettingsTTL)
}

func (c *statementCache) GetYearTotals(ctx context.Context, companyID snowflake.ID, year int, statuses []domain.OrderStatus) (domain.YearlyTotals, bool, error) {
	raw, ok, err := c.store.Get(ctx, yearTotalsKey(companyID, year, statuses))
	if err != nil {
		return domain.YearlyTotals{}, false, err
	}
	if !ok {
		c.metrics.IncCache(yearTotalsCacheName, false)
		return domain.YearlyTotals{}, false, nil
	}

	var totals domain.YearlyTotals
	if err := json.Unmarshal(raw, &totals); err != nil {
		c.metrics.IncCache(yearTotalsCacheName, false)
		return domain.YearlyTotals{}, false, nil
	}
	c.metrics.IncCache(yearTotalsCacheName, true)
	return totals, true, nil
}

func (c *statementCache) SetYearTotals(ctx context.Context, companyID snowflake.ID, statuses []domain.OrderStatus, totals domain.YearlyTotals) error {
	ttl := c.config.Get().YearTotalsTTL
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(totals)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, yearTotalsKey(companyID, totals.Year, statuses), payload, ttl)
}

func (c *statementCache) LockYearTotals(ctx context.Context, companyID snowflake.ID, year int, statuses []domain.OrderStatus) (func(), bool, error) {
	key := yearTotalsKey(companyID, year, statuses) + ":lock"
	token, ok, err := c.store.TryLock(ctx, key, yearTotalsLockTTL)
	if err != nil || !ok {
		return func() {}, false, err
	}
	return func() {
		_ = c.store.Release(context.WithoutCancel(ctx), key, token)
	}, true, nil
}

func yearTotalsKey(companyID snowflake.ID, year int, statuses []domain.OrderStatus) string {
	normalized := lo.Uniq(lo.Map(statuses, func(status domain.OrderStatus, _ int) string {
		return string(domain.NormalizeOrderStatus(string(status)))
	}))
	sort.Strings(normalized)
	return keyPrefix + ":" + cacheKey(yearTotalsCacheName, companyID.String(), fmt.Sprint(year), strings.Join(normalized, ","))
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
