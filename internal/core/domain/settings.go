package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NumberingFormat selects how invoice numbers are minted.
type NumberingFormat string

const (
	NumberingDate      NumberingFormat = "date"
	NumberingDateTime  NumberingFormat = "datetime"
	NumberingIncrement NumberingFormat = "increment"
)

// IsValid reports whether f is a known numbering format.
func (f NumberingFormat) IsValid() bool {
	switch f {
	case NumberingDate, NumberingDateTime, NumberingIncrement:
		return true
	}
	return false
}

// BillingSettings is the configuration owned by the settings collaborator.
// The ledger only reads it, except for the increment sequence which lives in its own row.
type BillingSettings struct {
	VATRate              decimal.Decimal `json:"vatRate"`
	Prefix               string          `json:"prefix"`
	NumberingFormat      NumberingFormat `json:"numberingFormat"`
	NextNumber           int64           `json:"nextNumber"`
	AutoNumbering        bool            `json:"autoNumbering"`
	DefaultDueDays       int             `json:"defaultDueDate"`
	DefaultPaymentTerms  string          `json:"defaultPaymentTerms"`
	AllowPartialPayments bool            `json:"allowPartialPayments"`
	AllowDeposits        bool            `json:"allowDeposits"`
	MinDepositPercentage decimal.Decimal `json:"minDepositPercentage"`
	QuoteValidityDays    int             `json:"quoteValidityDays"`
}

// Validate checks the settings are usable for minting documents.
func (s BillingSettings) Validate() error {
	if s.VATRate.IsNegative() {
		return fmt.Errorf("vat rate must not be negative, got %s", s.VATRate)
	}
	if strings.TrimSpace(s.Prefix) == "" {
		return fmt.Errorf("invoice prefix is empty")
	}
	if !s.NumberingFormat.IsValid() {
		return fmt.Errorf("unknown numbering format %q", s.NumberingFormat)
	}
	if s.MinDepositPercentage.IsNegative() || s.MinDepositPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("minimum deposit percentage out of range: %s", s.MinDepositPercentage)
	}
	return nil
}

// UsesSequence reports whether invoice numbers draw from the shared increment counter.
func (s BillingSettings) UsesSequence() bool {
	return s.NumberingFormat == NumberingIncrement && s.AutoNumbering
}
