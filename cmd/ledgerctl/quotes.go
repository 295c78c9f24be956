package main

import (
	"log/slog"

	portssvc "github.com/SscSPs/repair_shop_billing/internal/core/ports/services"
	"github.com/spf13/cobra"
)

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Quote maintenance",
}

var quotesExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Reject every pending quote past its validity date",
	Example: `  # Run from cron once a night
  ledgerctl quotes expire`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(svc *portssvc.ServiceContainer) error {
			expired, err := svc.Quote.ExpireQuotes(cmd.Context(), operatorID)
			if err != nil {
				return err
			}
			logger.Info("Expired stale quotes", slog.Int("expired", expired))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(quotesCmd)
	quotesCmd.AddCommand(quotesExpireCmd)
}
