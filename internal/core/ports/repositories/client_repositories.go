package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ClientReader defines read operations for client data.
type ClientReader interface {
	FindClientByID(ctx context.Context, clientID string) (*domain.Client, error)
	ListClients(ctx context.Context, limit int, nextToken *string) ([]domain.Client, *string, error)
}

// ClientTx defines client operations inside a coordinator transaction.
// Aggregates are only ever moved by a delta, never recomputed.
type ClientTx interface {
	FindClientForUpdate(ctx context.Context, clientID string) (*domain.Client, error)
	InsertClient(ctx context.Context, client domain.Client) error
	DeleteClient(ctx context.Context, clientID string) error

	// ClientHasInvoices reports whether any invoice still references the client.
	ClientHasInvoices(ctx context.Context, clientID string) (bool, error)

	// AdjustClientTotalSpent adds delta to the client's totalSpent.
	AdjustClientTotalSpent(ctx context.Context, clientID string, delta decimal.Decimal, userID string, now time.Time) error

	// AdjustClientTicketCounters adds the deltas to totalTickets and activeTickets.
	AdjustClientTicketCounters(ctx context.Context, clientID string, totalDelta, activeDelta int, userID string, now time.Time) error
}

// ClientRepositoryFacade combines all client-related repository interfaces.
type ClientRepositoryFacade interface {
	ClientReader
}
