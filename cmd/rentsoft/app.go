package main

import (
	"context"
	"time"

	"github.com/smallbiznis/rentsoft/internal/cache"
	"github.com/smallbiznis/rentsoft/internal/clock"
	"github.com/smallbiznis/rentsoft/internal/config"
	"github.com/smallbiznis/rentsoft/internal/migration"
	"github.com/smallbiznis/rentsoft/internal/observability"
	"github.com/smallbiznis/rentsoft/internal/statement"
	"github.com/smallbiznis/rentsoft/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const lifecycleTimeout = 30 * time.Second

func modules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		clock.Module,
		db.Module,
		migration.Module,
		cache.Module,
		statement.Module,
	)
}

// runApp starts the application graph, runs fn and stops the graph again.
// targets are pointers filled through fx.Populate before fn runs.
func runApp(ctx context.Context, fn func(context.Context) error, targets ...any) error {
	return runAppWith(ctx, fx.Options(), fn, targets...)
}

func runAppWith(ctx context.Context, extra fx.Option, fn func(context.Context) error, targets ...any) error {
	app := fx.New(
		modules(),
		extra,
		fx.Populate(targets...),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, lifecycleTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(ctx), lifecycleTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
