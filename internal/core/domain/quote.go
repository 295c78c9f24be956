package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus is the lifecycle state of a quote. Accepted and rejected are terminal.
type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pending"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"
)

// Quote is an estimate that may be converted into exactly one invoice.
type Quote struct {
	QuoteID    string          `json:"quoteID"`
	Number     string          `json:"number"`
	ClientID   string          `json:"clientID"`
	Client     ClientSnapshot  `json:"client"`
	Items      []LineItem      `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	VATRate    decimal.Decimal `json:"vatRate"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	Status     QuoteStatus     `json:"status"`
	ValidUntil time.Time       `json:"validUntil"`
	Notes      string          `json:"notes"`
	AuditFields
}

// IsExpired reports whether a pending quote is past its validity date.
func (q Quote) IsExpired(now time.Time) bool {
	return q.Status == QuotePending && !q.ValidUntil.IsZero() && q.ValidUntil.Before(now)
}
