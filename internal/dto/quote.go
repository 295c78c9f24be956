package dto

import (
	"time"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateQuoteRequest defines the data needed to create a new quote.
type CreateQuoteRequest struct {
	ClientID   string            `json:"clientID" binding:"required"`
	Items      []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	Notes      string            `json:"notes"`
	ValidUntil *time.Time        `json:"validUntil"` // Optional, defaults to now + quoteValidityDays
}

// ListQuotesParams defines query parameters for listing quotes.
type ListQuotesParams struct {
	ListParams
	ClientID string             `form:"clientID"`
	Status   domain.QuoteStatus `form:"status" binding:"omitempty,oneof=pending accepted rejected"`
}

// QuoteResponse defines the data returned for a quote.
type QuoteResponse struct {
	QuoteID       string             `json:"quoteID"`
	Number        string             `json:"number"`
	ClientID      string             `json:"clientID"`
	ClientName    string             `json:"clientName"`
	ClientEmail   string             `json:"clientEmail"`
	ClientAddress string             `json:"clientAddress"`
	Items         []LineItemResponse `json:"items"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	VATRate       decimal.Decimal    `json:"vatRate"`
	Tax           decimal.Decimal    `json:"tax"`
	Total         decimal.Decimal    `json:"total"`
	Status        domain.QuoteStatus `json:"status"`
	ValidUntil    time.Time          `json:"validUntil"`
	Notes         string             `json:"notes"`
	CreatedAt     time.Time          `json:"createdAt"`
	CreatedBy     string             `json:"createdBy"`
	LastUpdatedAt time.Time          `json:"lastUpdatedAt"`
	LastUpdatedBy string             `json:"lastUpdatedBy"`
}

// ListQuotesResponse defines a page of quotes.
type ListQuotesResponse struct {
	Quotes    []QuoteResponse `json:"quotes"`
	NextToken *string         `json:"nextToken,omitempty"`
}

// ConvertQuoteResponse is returned by a quote conversion.
type ConvertQuoteResponse struct {
	Quote   QuoteResponse   `json:"quote"`
	Invoice InvoiceResponse `json:"invoice"`
}

// ToQuoteResponse converts a domain.Quote to QuoteResponse DTO.
func ToQuoteResponse(q *domain.Quote) QuoteResponse {
	return QuoteResponse{
		QuoteID:       q.QuoteID,
		Number:        q.Number,
		ClientID:      q.ClientID,
		ClientName:    q.Client.Name,
		ClientEmail:   q.Client.Email,
		ClientAddress: q.Client.Address,
		Items:         ToLineItemResponses(q.Items),
		Subtotal:      q.Subtotal,
		VATRate:       q.VATRate,
		Tax:           q.Tax,
		Total:         q.Total,
		Status:        q.Status,
		ValidUntil:    q.ValidUntil,
		Notes:         q.Notes,
		CreatedAt:     q.CreatedAt,
		CreatedBy:     q.CreatedBy,
		LastUpdatedAt: q.LastUpdatedAt,
		LastUpdatedBy: q.LastUpdatedBy,
	}
}

// ToListQuoteResponse converts a slice of domain.Quote to a slice of QuoteResponse DTOs.
func ToListQuoteResponse(quotes []domain.Quote) []QuoteResponse {
	res := make([]QuoteResponse, len(quotes))
	for i := range quotes {
		res[i] = ToQuoteResponse(&quotes[i])
	}
	return res
}
