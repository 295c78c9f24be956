package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	portssvc "github.com/SscSPs/repair_shop_billing/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the billing settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the billing settings as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(svc *portssvc.ServiceContainer) error {
			settings, err := svc.Settings.GetBillingSettings(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(settings)
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change billing settings",
	Long: `Changes the given billing settings and keeps the others.
On a database without settings every required field must be given.`,
	Example: `  # First-time setup
  ledgerctl settings set --vat-rate 20 --prefix INV --numbering-format increment --next-number 1 --auto-numbering

  # New VAT rate for documents created from now on
  ledgerctl settings set --vat-rate 21`,
	RunE: runSettingsSet,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)

	f := settingsSetCmd.Flags()
	f.String("vat-rate", "", "VAT rate in percent")
	f.String("prefix", "", "Invoice number prefix")
	f.String("numbering-format", "", "Numbering format: date, datetime or increment")
	f.Int64("next-number", 0, "Next number of the increment sequence")
	f.Bool("auto-numbering", false, "Draw increment numbers from the shared sequence")
	f.Int("due-days", 0, "Default days until an invoice is due")
	f.String("payment-terms", "", "Default payment terms text")
	f.Bool("allow-partial", false, "Allow partial payments")
	f.Bool("allow-deposits", false, "Allow deposit payments")
	f.String("min-deposit", "", "Minimum deposit as a percentage of the total")
	f.Int("quote-validity-days", 0, "Days a new quote stays valid")
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withServices(ctx, func(svc *portssvc.ServiceContainer) error {
		var settings domain.BillingSettings
		current, err := svc.Settings.GetBillingSettings(ctx)
		switch {
		case err == nil:
			settings = *current
		case errors.Is(err, apperrors.ErrConfigurationUnavailable):
			logger.Info("No billing settings stored yet, creating them")
		default:
			return err
		}

		if err := applySettingsFlags(cmd.Flags(), &settings); err != nil {
			return err
		}
		if err := svc.Settings.SaveBillingSettings(ctx, settings); err != nil {
			return err
		}
		logger.Info("Billing settings saved")
		return nil
	})
}

func applySettingsFlags(f *pflag.FlagSet, s *domain.BillingSettings) error {
	var err error
	f.Visit(func(fl *pflag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "vat-rate":
			s.VATRate, err = parsePercent(fl.Name, fl.Value.String())
		case "min-deposit":
			s.MinDepositPercentage, err = parsePercent(fl.Name, fl.Value.String())
		case "prefix":
			s.Prefix, _ = f.GetString(fl.Name)
		case "numbering-format":
			v, _ := f.GetString(fl.Name)
			s.NumberingFormat = domain.NumberingFormat(v)
		case "next-number":
			s.NextNumber, _ = f.GetInt64(fl.Name)
		case "auto-numbering":
			s.AutoNumbering, _ = f.GetBool(fl.Name)
		case "due-days":
			s.DefaultDueDays, _ = f.GetInt(fl.Name)
		case "payment-terms":
			s.DefaultPaymentTerms, _ = f.GetString(fl.Name)
		case "allow-partial":
			s.AllowPartialPayments, _ = f.GetBool(fl.Name)
		case "allow-deposits":
			s.AllowDeposits, _ = f.GetBool(fl.Name)
		case "quote-validity-days":
			s.QuoteValidityDays, _ = f.GetInt(fl.Name)
		}
	})
	return err
}

func parsePercent(name, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}
	return d, nil
}
