package models

import "github.com/shopspring/decimal"

// BillingSettings is the single row of the billing_settings table.
type BillingSettings struct {
	VATRate              decimal.Decimal `json:"vatRate"`
	Prefix               string          `json:"prefix"`
	NumberingFormat      string          `json:"numberingFormat"`
	NextNumber           int64           `json:"nextNumber"`
	AutoNumbering        bool            `json:"autoNumbering"`
	DefaultDueDays       int             `json:"defaultDueDays"`
	DefaultPaymentTerms  string          `json:"defaultPaymentTerms"`
	AllowPartialPayments bool            `json:"allowPartialPayments"`
	AllowDeposits        bool            `json:"allowDeposits"`
	MinDepositPercentage decimal.Decimal `json:"minDepositPercentage"`
	QuoteValidityDays    int             `json:"quoteValidityDays"`
}
