package domain

import "github.com/shopspring/decimal"

// Client is the aggregate root shared with the ticket subsystem.
// The three counters are derived state maintained by delta only.
type Client struct {
	ClientID      string          `json:"clientID"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	TotalTickets  int             `json:"totalTickets"`
	ActiveTickets int             `json:"activeTickets"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
	AuditFields
}

// ClientSnapshot is a copy of the client's contact details taken when a document is issued.
// It is intentionally never synchronised with later client edits.
type ClientSnapshot struct {
	Name    string `json:"clientName"`
	Email   string `json:"clientEmail"`
	Address string `json:"clientAddress"`
}

// Snapshot returns the client's current contact details as a snapshot value.
func (c Client) Snapshot() ClientSnapshot {
	return ClientSnapshot{
		Name:    c.Name,
		Email:   c.Email,
		Address: c.Address,
	}
}

// CanBeDeleted reports whether no ticket is still open for the client.
func (c Client) CanBeDeleted() bool {
	return c.ActiveTickets <= 0
}
