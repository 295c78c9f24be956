package models

import "github.com/shopspring/decimal"

// Client is a row of the clients table.
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
