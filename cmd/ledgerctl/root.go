package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/SscSPs/repair_shop_billing/internal/core/services"
	portssvc "github.com/SscSPs/repair_shop_billing/internal/core/ports/services"
	"github.com/SscSPs/repair_shop_billing/internal/platform/config"
	"github.com/SscSPs/repair_shop_billing/internal/repositories/database/pgsql"
	"github.com/SscSPs/repair_shop_billing/pkg/database"
	"github.com/spf13/cobra"
)

// operatorID is recorded in the audit fields of writes made from the command line.
const operatorID = "ledgerctl"

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operator tasks for the repair shop billing ledger",
	Long: `ledgerctl runs maintenance tasks against the billing database:
schema migrations, billing settings and quote expiry.

The database is taken from PGSQL_URL, read from the environment or a .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("Command execution failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// withServices opens a pool for the duration of fn.
func withServices(ctx context.Context, fn func(svc *portssvc.ServiceContainer) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("PGSQL_URL is required")
	}

	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, true)
	if err != nil {
		return err
	}
	defer database.ClosePgxPool(pool)

	svc := services.NewServiceContainer(cfg, pgsql.NewRepositoryProvider(pool), nil)
	return fn(svc)
}
