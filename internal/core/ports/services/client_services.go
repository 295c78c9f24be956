package services

import (
	"context"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/SscSPs/repair_shop_billing/internal/dto"
)

// ClientReaderSvc defines read operations for clients.
type ClientReaderSvc interface {
	GetClientByID(ctx context.Context, clientID string) (*domain.Client, error)
	ListClients(ctx context.Context, params dto.ListParams) (*dto.ListClientsResponse, error)
}

// ClientWriterSvc defines write operations for clients.
type ClientWriterSvc interface {
	CreateClient(ctx context.Context, req dto.CreateClientRequest, userID string) (*domain.Client, error)
	DeleteClient(ctx context.Context, clientID string, userID string) error

	// AdjustTicketCounters moves the ticket counters by a delta. Used by the ticket workflow.
	AdjustTicketCounters(ctx context.Context, clientID string, req dto.AdjustTicketCountersRequest, userID string) (*domain.Client, error)
}

// ClientSvcFacade combines all client-related service interfaces.
type ClientSvcFacade interface {
	ClientReaderSvc
	ClientWriterSvc
}
