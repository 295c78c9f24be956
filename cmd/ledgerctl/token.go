package main

import (
	"fmt"
	"time"

	"github.com/SscSPs/repair_shop_billing/internal/platform/config"
	"github.com/SscSPs/repair_shop_billing/internal/utils"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token <operator-id>",
	Short: "Issue a bearer token for an operator",
	Long: `Signs a bearer token with JWT_SECRET. The operator id becomes the
createdBy/lastUpdatedBy value of every document the token writes.`,
	Example: `  ledgerctl token front-desk --ttl 12h`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		token, err := utils.GenerateOperatorJWT(args[0], cfg.JWTSecret, ttl, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Duration("ttl", 8*time.Hour, "Token lifetime")
}
