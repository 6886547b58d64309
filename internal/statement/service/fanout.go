package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/rentsoft/internal/statement/domain"
	"github.com/smallbiznis/rentsoft/internal/statement/engine"
	"golang.org/x/sync/errgroup"
)

// computeOrders loads every order's inputs and applies compute with at most
// statement.concurrency orders in flight. Results keep the order of orders.
// Every failed order is reported in the joined error.
func computeOrders[T any](ctx context.Context, s *Service, orders []domain.RentalOrder, settings domain.CompanySettings, now time.Time, compute func(engine.Input) T) ([]T, error) {
	results := make([]T, len(orders))
	errs := make([]error, len(orders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Get().Concurrency)
	for i, order := range orders {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			input, err := s.loadInput(gctx, order, settings, now)
			if err != nil {
				errs[i] = fmt.Errorf("order %s: %w", order.ID, err)
				return nil
			}
			results[i] = compute(input)
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}
