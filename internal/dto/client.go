package dto

import (
	"time"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateClientRequest defines the data needed to create a new client.
type CreateClientRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// AdjustTicketCountersRequest moves the ticket counters of a client by a delta.
type AdjustTicketCountersRequest struct {
	TotalDelta  int `json:"totalDelta"`
	ActiveDelta int `json:"activeDelta"`
}

// ClientResponse defines the data returned for a client.
type ClientResponse struct {
	ClientID      string          `json:"clientID"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	TotalTickets  int             `json:"totalTickets"`
	ActiveTickets int             `json:"activeTickets"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
	CreatedAt     time.Time       `json:"createdAt"`
	CreatedBy     string          `json:"createdBy"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
	LastUpdatedBy string          `json:"lastUpdatedBy"`
}

// ListClientsResponse defines a page of clients.
type ListClientsResponse struct {
	Clients   []ClientResponse `json:"clients"`
	NextToken *string          `json:"nextToken,omitempty"`
}

// ToClientResponse converts a domain.Client to ClientResponse DTO.
func ToClientResponse(c *domain.Client) ClientResponse {
	return ClientResponse{
		ClientID:      c.ClientID,
		Name:          c.Name,
		Email:         c.Email,
		Phone:         c.Phone,
		Address:       c.Address,
		TotalTickets:  c.TotalTickets,
		ActiveTickets: c.ActiveTickets,
		TotalSpent:    c.TotalSpent,
		CreatedAt:     c.CreatedAt,
		CreatedBy:     c.CreatedBy,
		LastUpdatedAt: c.LastUpdatedAt,
		LastUpdatedBy: c.LastUpdatedBy,
	}
}

// ToListClientResponse converts a slice of domain.Client to a slice of ClientResponse DTOs.
func ToListClientResponse(clients []domain.Client) []ClientResponse {
	res := make([]ClientResponse, len(clients))
	for i := range clients {
		res[i] = ToClientResponse(&clients[i])
	}
	return res
}
