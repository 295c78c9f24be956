package services

import (
	"context"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/SscSPs/repair_shop_billing/internal/dto"
)

// InvoiceReaderSvc defines read operations for invoices.
type InvoiceReaderSvc interface {
	// GetInvoiceByID retrieves a specific invoice by its ID.
	GetInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// ListInvoices retrieves a page of invoices, optionally filtered by client and effective status.
	ListInvoices(ctx context.Context, params dto.ListInvoicesParams) (*dto.ListInvoicesResponse, error)
}

// InvoiceWriterSvc defines the transactional invoice operations.
type InvoiceWriterSvc interface {
	// CreateInvoice prices the items, mints a number and stores the invoice.
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest, userID string) (*domain.Invoice, error)

	// UpdateInvoice applies a partial update, recomputing derived amounts at the invoice's frozen VAT rate.
	UpdateInvoice(ctx context.Context, invoiceID string, req dto.UpdateInvoiceRequest, userID string) (*domain.Invoice, error)

	// DeleteInvoice removes an invoice and reverses its paid amount from the client.
	DeleteInvoice(ctx context.Context, invoiceID string, userID string) error

	// ApplyPayment records a payment against the invoice's current remaining amount.
	ApplyPayment(ctx context.Context, invoiceID string, req dto.ApplyPaymentRequest, userID string) (*domain.Invoice, error)
}

// InvoiceSvcFacade combines all invoice-related service interfaces.
type InvoiceSvcFacade interface {
	InvoiceReaderSvc
	InvoiceWriterSvc
}
