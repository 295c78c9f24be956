package main

import (
	"fmt"
	"log/slog"

	"github.com/SscSPs/repair_shop_billing/internal/platform/config"
	"github.com/SscSPs/repair_shop_billing/pkg/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd, database.MigrateUp)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Example: `  # Drop the billing schema
  ledgerctl migrate down --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to roll back without --yes")
		}
		return runMigrate(cmd, database.MigrateDown)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)

	migrateCmd.PersistentFlags().String("path", "", "Migrations source URL (default: MIGRATIONS_PATH)")
	migrateDownCmd.Flags().Bool("yes", false, "Confirm the rollback")
}

func runMigrate(cmd *cobra.Command, direction database.MigrateDirection) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	path, _ := cmd.Flags().GetString("path")
	if path == "" {
		path = cfg.MigrationsPath
	}

	changed, err := database.RunMigrations(cfg.DatabaseURL, path, direction)
	if err != nil {
		return err
	}
	logger.Info("Migrations finished", slog.String("direction", string(direction)), slog.Bool("changed", changed))
	return nil
}
