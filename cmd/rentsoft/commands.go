package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/smallbiznis/rentsoft/internal/clock"
	"github.com/smallbiznis/rentsoft/internal/config"
	"github.com/smallbiznis/rentsoft/internal/statement/domain"
	"github.com/smallbiznis/rentsoft/internal/statement/repository"
	"github.com/smallbiznis/rentsoft/pkg/telemetry/correlation"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var defaultStatuses = []string{
	string(domain.OrderStatusOrdered),
	string(domain.OrderStatusReceived),
	string(domain.OrderStatusClosed),
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "rentsoft",
		Short:        "Rental billing statements",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("correlation-id", "", "correlation id for logs; generated when empty")
	root.AddCommand(
		newStatementCommand(),
		newCustomersCommand(),
		newYearCommand(),
		newMigrateCommand(),
		newSeedDemoCommand(),
	)
	return root
}

func newStatementCommand() *cobra.Command {
	var companyID, orderID int64
	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Print the month-by-month statement of an order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var svc domain.Service
			return runApp(commandContext(cmd), func(ctx context.Context) error {
				breakdown, err := svc.OrderStatement(ctx, domain.OrderStatementRequest{
					CompanyID: snowflake.ID(companyID),
					OrderID:   snowflake.ID(orderID),
				})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), breakdown)
			}, &svc)
		},
	}
	cmd.Flags().Int64Var(&companyID, "company", 0, "company id")
	cmd.Flags().Int64Var(&orderID, "order", 0, "rental order id")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

func newCustomersCommand() *cobra.Command {
	var (
		companyID int64
		month     string
		statuses  []string
	)
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Print per-customer totals of a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var svc domain.Service
			return runApp(commandContext(cmd), func(ctx context.Context) error {
				report, err := svc.CustomerMonthlyTotals(ctx, domain.CustomerMonthlyRequest{
					CompanyID: snowflake.ID(companyID),
					Month:     month,
					Statuses:  parseStatuses(statuses),
				})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), report)
			}, &svc)
		},
	}
	cmd.Flags().Int64Var(&companyID, "company", 0, "company id")
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM in the company timezone")
	cmd.Flags().StringSliceVar(&statuses, "statuses", defaultStatuses, "order statuses to include")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func newYearCommand() *cobra.Command {
	var (
		companyID int64
		year      int
		statuses  []string
	)
	cmd := &cobra.Command{
		Use:   "year",
		Short: "Print monthly totals of a calendar year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var svc domain.Service
			return runApp(commandContext(cmd), func(ctx context.Context) error {
				totals, err := svc.YearlyTotals(ctx, domain.YearlyTotalsRequest{
					CompanyID: snowflake.ID(companyID),
					Year:      year,
					Statuses:  parseStatuses(statuses),
				})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), totals)
			}, &svc)
		},
	}
	cmd.Flags().Int64Var(&companyID, "company", 0, "company id")
	cmd.Flags().IntVar(&year, "year", 0, "calendar year")
	cmd.Flags().StringSliceVar(&statuses, "statuses", defaultStatuses, "order statuses to include")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the statement table migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The migration module runs while the graph is built.
			forceMigrate := fx.Decorate(func(cfg config.Config) config.Config {
				cfg.DBAutoMigrate = true
				return cfg
			})
			return runAppWith(commandContext(cmd), forceMigrate, func(context.Context) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return err
			})
		},
	}
}

func newSeedDemoCommand() *cobra.Command {
	var companyID int64
	cmd := &cobra.Command{
		Use:   "seed-demo",
		Short: "Create a demo company with customers and orders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				conn *gorm.DB
				node *snowflake.Node
				clk  clock.Clock
			)
			return runApp(commandContext(cmd), func(ctx context.Context) error {
				seeded, err := repository.SeedDemoCompany(ctx, conn, node, snowflake.ID(companyID), clk.Now())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), seeded)
			}, &conn, &node, &clk)
		},
	}
	cmd.Flags().Int64Var(&companyID, "company", 0, "company id; generated when zero")
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if id, err := cmd.Flags().GetString("correlation-id"); err == nil {
		ctx = correlation.WithID(ctx, id)
	}
	ctx = correlation.WithTraceParent(ctx, os.Getenv(correlation.TraceParentEnv))
	ctx, _ = correlation.Ensure(ctx)
	return ctx
}

func parseStatuses(raw []string) []domain.OrderStatus {
	return lo.FilterMap(raw, func(value string, _ int) (domain.OrderStatus, bool) {
		value = strings.TrimSpace(value)
		if value == "" {
			return "", false
		}
		return domain.NormalizeOrderStatus(value), true
	})
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
