package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
)

// QuoteFilter narrows a quote listing.
type QuoteFilter struct {
	ClientID string
	Statuses []domain.QuoteStatus
}

// QuoteReader defines non-transactional read operations for quotes.
type QuoteReader interface {
	FindQuoteByID(ctx context.Context, quoteID string) (*domain.Quote, error)
	ListQuotes(ctx context.Context, filter QuoteFilter, limit int, nextToken *string) ([]domain.Quote, *string, error)
}

// QuoteWriter defines non-transactional quote writes.
type QuoteWriter interface {
	// MarkQuoteExpired flips a pending quote to rejected if it is still pending and
	// past validUntil at write time. It reports whether a row changed. Losing a race
	// against a conversion is not an error.
	MarkQuoteExpired(ctx context.Context, quoteID string, userID string, now time.Time) (bool, error)
}

// QuoteTx defines quote operations inside a coordinator transaction.
type QuoteTx interface {
	FindQuoteForUpdate(ctx context.Context, quoteID string) (*domain.Quote, error)
	InsertQuote(ctx context.Context, quote domain.Quote) error
	UpdateQuote(ctx context.Context, quote domain.Quote) error
	DeleteQuote(ctx context.Context, quoteID string) error

	QuoteNumberExists(ctx context.Context, number string) (bool, error)
	LatestQuoteNumber(ctx context.Context, prefix string) (string, bool, error)
}

// QuoteRepositoryFacade combines all quote-related repository interfaces.
type QuoteRepositoryFacade interface {
	QuoteReader
	QuoteWriter
}
