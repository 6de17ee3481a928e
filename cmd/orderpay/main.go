package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/orderpay/internal/clock"
	"github.com/railzwaylabs/orderpay/internal/config"
	"github.com/railzwaylabs/orderpay/internal/migration"
	"github.com/railzwaylabs/orderpay/internal/notification"
	"github.com/railzwaylabs/orderpay/internal/observability"
	"github.com/railzwaylabs/orderpay/internal/order"
	"github.com/railzwaylabs/orderpay/internal/payment"
	"github.com/railzwaylabs/orderpay/internal/redis"
	"github.com/railzwaylabs/orderpay/internal/server"
	"github.com/railzwaylabs/orderpay/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "orderpay",
		Short:   "Order and payment reconciliation service",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// Local drivers have no separate migrate step.
			if migrate || cfg.Database.Driver != "postgres" {
				if err := runMigrate(); err != nil {
					return err
				}
			}
			runServe()
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations before serving")
	return cmd
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.WithLogger(fxLogger),
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.WithLogger(fxLogger),
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		payment.Module,
		notification.Module,
		order.Module,
		server.Module,
	)
	app.Run()
}

func fxLogger(log *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: log.Named("fx")}
}

func registerSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.App.NodeID)
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
