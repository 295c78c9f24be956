package services

import (
	"context"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/SscSPs/repair_shop_billing/internal/dto"
)

// QuoteReaderSvc defines read operations for quotes. Reads expire stale pending quotes.
type QuoteReaderSvc interface {
	GetQuoteByID(ctx context.Context, quoteID string) (*domain.Quote, error)
	ListQuotes(ctx context.Context, params dto.ListQuotesParams) (*dto.ListQuotesResponse, error)
}

// QuoteWriterSvc defines the transactional quote operations.
type QuoteWriterSvc interface {
	CreateQuote(ctx context.Context, req dto.CreateQuoteRequest, userID string) (*domain.Quote, error)

	// ConvertQuote turns a pending quote into an invoice priced at the current VAT rate.
	ConvertQuote(ctx context.Context, quoteID string, userID string) (*domain.Quote, *domain.Invoice, error)

	RejectQuote(ctx context.Context, quoteID string, userID string) (*domain.Quote, error)
	DeleteQuote(ctx context.Context, quoteID string, userID string) error

	// ExpireQuotes rejects every pending quote past its validity date and returns how many changed.
	ExpireQuotes(ctx context.Context, userID string) (int, error)
}

// QuoteSvcFacade combines all quote-related service interfaces.
type QuoteSvcFacade interface {
	QuoteReaderSvc
	QuoteWriterSvc
}
