package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a row of the invoices table. Items and payments are stored as jsonb.
type Invoice struct {
	InvoiceID       string          `json:"invoiceID"`
	Number          string          `json:"number"`
	QuoteID         *string         `json:"quoteID"`
	ClientID        string          `json:"clientID"`
	ClientName      string          `json:"clientName"`
	ClientEmail     string          `json:"clientEmail"`
	ClientAddress   string          `json:"clientAddress"`
	Items           []byte          `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	VATRate         decimal.Decimal `json:"vatRate"`
	VATAmount       decimal.Decimal `json:"vatAmount"`
	Total           decimal.Decimal `json:"total"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	Status          string          `json:"status"`
	Payments        []byte          `json:"payments"`
	InvoiceDate     time.Time       `json:"invoiceDate"`
	DueDate         *time.Time      `json:"dueDate"`
	Notes           string          `json:"notes"`
	PaymentTerms    string          `json:"paymentTerms"`
	AuditFields
}
