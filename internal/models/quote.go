package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a row of the quotes table.
type Quote struct {
	QuoteID       string          `json:"quoteID"`
	Number        string          `json:"number"`
	ClientID      string          `json:"clientID"`
	ClientName    string          `json:"clientName"`
	ClientEmail   string          `json:"clientEmail"`
	ClientAddress string          `json:"clientAddress"`
	Items         []byte          `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	VATRate       decimal.Decimal `json:"vatRate"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	ValidUntil    time.Time       `json:"validUntil"`
	Notes         string          `json:"notes"`
	AuditFields
}
