package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
)

// InvoiceFilter narrows an invoice listing. Zero values mean no constraint.
type InvoiceFilter struct {
	ClientID string
	Statuses []domain.InvoiceStatus
	// DueBefore keeps invoices whose due date is strictly before this instant.
	DueBefore *time.Time
	// NotDueBefore keeps invoices with no due date or a due date at or after this instant.
	NotDueBefore *time.Time
}

// InvoiceReader defines non-transactional read operations for invoices.
// Results may be slightly stale.
type InvoiceReader interface {
	// FindInvoiceByID retrieves an invoice by its id.
	FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// ListInvoices retrieves a page of invoices ordered by creation time, newest first.
	// It returns the invoices, a token for the next page, and an error.
	ListInvoices(ctx context.Context, filter InvoiceFilter, limit int, nextToken *string) ([]domain.Invoice, *string, error)
}

// InvoiceTx defines invoice operations inside a coordinator transaction.
type InvoiceTx interface {
	// FindInvoiceForUpdate reads an invoice and registers it for conflict detection.
	FindInvoiceForUpdate(ctx context.Context, invoiceID string) (*domain.Invoice, error)
	InsertInvoice(ctx context.Context, invoice domain.Invoice) error
	UpdateInvoice(ctx context.Context, invoice domain.Invoice) error
	DeleteInvoice(ctx context.Context, invoiceID string) error

	// InvoiceNumberExists reports whether an invoice already carries number.
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
	// LatestInvoiceNumber returns the highest invoice number starting with prefix.
	LatestInvoiceNumber(ctx context.Context, prefix string) (string, bool, error)
}

// InvoiceRepositoryFacade combines all invoice-related repository interfaces.
type InvoiceRepositoryFacade interface {
	InvoiceReader
}
