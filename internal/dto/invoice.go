package dto

import (
	"time"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest defines the data needed to create a new invoice.
type CreateInvoiceRequest struct {
	ClientID     string            `json:"clientID" binding:"required"`
	Items        []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	Notes        string            `json:"notes"`
	PaymentTerms *string           `json:"paymentTerms"` // Optional, defaults from billing settings
	Date         *time.Time        `json:"date"`         // Optional, defaults to now
	DueDate      *time.Time        `json:"dueDate"`      // Optional, defaults to date + defaultDueDate days
	Draft        bool              `json:"draft"`
}

// UpdateInvoiceRequest defines the fields that may change on an invoice.
// Derived amounts are never accepted; they are recomputed from Items and PaidAmount.
type UpdateInvoiceRequest struct {
	ClientID     *string               `json:"clientID"`
	Items        *[]LineItemRequest    `json:"items" binding:"omitempty,min=1,dive"`
	PaidAmount   *decimal.Decimal      `json:"paidAmount" binding:"omitempty,decimal_gte0"`
	Status       *domain.InvoiceStatus `json:"status" binding:"omitempty,oneof=pending"`
	Notes        *string               `json:"notes"`
	PaymentTerms *string               `json:"paymentTerms"`
	DueDate      *time.Time            `json:"dueDate"`
}

// ApplyPaymentRequest defines a payment to record against an invoice.
type ApplyPaymentRequest struct {
	Amount    decimal.Decimal      `json:"amount" binding:"decimal_gt0"`
	Method    domain.PaymentMethod `json:"method" binding:"required,oneof=card cash transfer"`
	Reference string               `json:"reference"`
	Type      domain.PaymentType   `json:"type" binding:"omitempty,oneof=deposit partial full"` // Optional, derived when empty
	Notes     string               `json:"notes"`
	Date      *time.Time           `json:"date"`
}

// ListInvoicesParams defines query parameters for listing invoices.
type ListInvoicesParams struct {
	ListParams
	ClientID string               `form:"clientID"`
	Status   domain.InvoiceStatus `form:"status" binding:"omitempty,oneof=draft pending partial deposit paid overdue"`
}

// LineItemResponse is a priced line item.
type LineItemResponse struct {
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

// PaymentResponse is a recorded payment.
type PaymentResponse struct {
	PaymentID string               `json:"paymentID"`
	Date      time.Time            `json:"date"`
	Amount    decimal.Decimal      `json:"amount"`
	Method    domain.PaymentMethod `json:"method"`
	Reference string               `json:"reference"`
	Type      domain.PaymentType   `json:"type"`
	Notes     string               `json:"notes,omitempty"`
}

// InvoiceResponse defines the data returned for an invoice.
// Status is the effective status, so past-due open invoices read as overdue.
type InvoiceResponse struct {
	InvoiceID       string               `json:"invoiceID"`
	Number          string               `json:"number"`
	QuoteID         *string              `json:"quoteID,omitempty"`
	ClientID        string               `json:"clientID"`
	ClientName      string               `json:"clientName"`
	ClientEmail     string               `json:"clientEmail"`
	ClientAddress   string               `json:"clientAddress"`
	Items           []LineItemResponse   `json:"items"`
	Subtotal        decimal.Decimal      `json:"subtotal"`
	VATRate         decimal.Decimal      `json:"vatRate"`
	VATAmount       decimal.Decimal      `json:"vatAmount"`
	Total           decimal.Decimal      `json:"total"`
	PaidAmount      decimal.Decimal      `json:"paidAmount"`
	RemainingAmount decimal.Decimal      `json:"remainingAmount"`
	Status          domain.InvoiceStatus `json:"status"`
	Payments        []PaymentResponse    `json:"payments"`
	Date            time.Time            `json:"date"`
	DueDate         time.Time            `json:"dueDate"`
	Notes           string               `json:"notes"`
	PaymentTerms    string               `json:"paymentTerms"`
	CreatedAt       time.Time            `json:"createdAt"`
	CreatedBy       string               `json:"createdBy"`
	LastUpdatedAt   time.Time            `json:"lastUpdatedAt"`
	LastUpdatedBy   string               `json:"lastUpdatedBy"`
}

// ListInvoicesResponse defines a page of invoices.
type ListInvoicesResponse struct {
	Invoices  []InvoiceResponse `json:"invoices"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// ToLineItems converts request items to domain line items.
func ToLineItems(items []LineItemRequest) []domain.LineItem {
	res := make([]domain.LineItem, len(items))
	for i, item := range items {
		res[i] = domain.LineItem{
			Description: item.Description,
			Reference:   item.Reference,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	return res
}

// ToLineItemResponses converts domain line items to response DTOs.
func ToLineItemResponses(items []domain.LineItem) []LineItemResponse {
	res := make([]LineItemResponse, len(items))
	for i, item := range items {
		res[i] = LineItemResponse{
			Description: item.Description,
			Reference:   item.Reference,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		}
	}
	return res
}

// ToPaymentResponses converts domain payments to response DTOs.
func ToPaymentResponses(payments []domain.Payment) []PaymentResponse {
	res := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		res[i] = PaymentResponse{
			PaymentID: p.PaymentID,
			Date:      p.Date,
			Amount:    p.Amount,
			Method:    p.Method,
			Reference: p.Reference,
			Type:      p.Type,
			Notes:     p.Notes,
		}
	}
	return res
}

// ToInvoiceResponse converts a domain.Invoice to InvoiceResponse DTO, labelling it as of now.
func ToInvoiceResponse(inv *domain.Invoice, now time.Time) InvoiceResponse {
	return InvoiceResponse{
		InvoiceID:       inv.InvoiceID,
		Number:          inv.Number,
		QuoteID:         inv.QuoteID,
		ClientID:        inv.ClientID,
		ClientName:      inv.Client.Name,
		ClientEmail:     inv.Client.Email,
		ClientAddress:   inv.Client.Address,
		Items:           ToLineItemResponses(inv.Items),
		Subtotal:        inv.Subtotal,
		VATRate:         inv.VATRate,
		VATAmount:       inv.VATAmount,
		Total:           inv.Total,
		PaidAmount:      inv.PaidAmount,
		RemainingAmount: inv.RemainingAmount,
		Status:          inv.EffectiveStatus(now),
		Payments:        ToPaymentResponses(inv.Payments),
		Date:            inv.Date,
		DueDate:         inv.DueDate,
		Notes:           inv.Notes,
		PaymentTerms:    inv.PaymentTerms,
		CreatedAt:       inv.CreatedAt,
		CreatedBy:       inv.CreatedBy,
		LastUpdatedAt:   inv.LastUpdatedAt,
		LastUpdatedBy:   inv.LastUpdatedBy,
	}
}

// ToListInvoiceResponse converts a slice of domain.Invoice to a slice of InvoiceResponse DTOs.
func ToListInvoiceResponse(invoices []domain.Invoice, now time.Time) []InvoiceResponse {
	res := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		res[i] = ToInvoiceResponse(&invoices[i], now)
	}
	return res
}
