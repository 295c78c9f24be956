package domain

import "github.com/shopspring/decimal"

// LineItem is one billable line on an invoice or quote.
// Total is always derived (quantity x unit price) and never trusted from callers.
type LineItem struct {
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}
