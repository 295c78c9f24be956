package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/repair_shop_billing/internal/core/ports/services"
	"github.com/SscSPs/repair_shop_billing/internal/dto"
	"github.com/SscSPs/repair_shop_billing/internal/utils/pagination"
)

type clientService struct {
	BaseService
	clientRepo portsrepo.ClientRepositoryFacade
	runner     *TxRunner
}

// NewClientService creates a new ClientService.
func NewClientService(clientRepo portsrepo.ClientRepositoryFacade, runner *TxRunner, opts ...ServiceOption) portssvc.ClientSvcFacade {
	return &clientService{
		BaseService: newBaseService(opts...),
		clientRepo:  clientRepo,
		runner:      runner,
	}
}

var _ portssvc.ClientSvcFacade = (*clientService)(nil)

func (s *clientService) CreateClient(ctx context.Context, req dto.CreateClientRequest, userID string) (*domain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: client name is required", apperrors.ErrValidation)
	}

	client := domain.Client{
		ClientID:    uuid.NewString(),
		Name:        name,
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		Address:     strings.TrimSpace(req.Address),
		TotalSpent:  decimal.Zero,
		AuditFields: domain.NewAuditFields(userID, s.Now()),
	}
	err := s.runner.Run(ctx, "create_client", nil, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return tx.InsertClient(ctx, client)
	})
	if err != nil {
		s.logWriteFailure(ctx, err, "Failed to create client")
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	s.LogInfo(ctx, "Client created successfully", slog.String("client_id", client.ClientID))
	return &client, nil
}

func (s *clientService) GetClientByID(ctx context.Context, clientID string) (*domain.Client, error) {
	client, err := s.clientRepo.FindClientByID(ctx, clientID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find client by ID", slog.String("client_id", clientID))
		}
		return nil, fmt.Errorf("failed to find client by ID %s: %w", clientID, err)
	}
	return client, nil
}

func (s *clientService) ListClients(ctx context.Context, params dto.ListParams) (*dto.ListClientsResponse, error) {
	limit := pagination.NormalizeLimit(params.Limit, dto.DefaultPageSize, dto.MaxPageSize)
	clients, nextToken, err := s.clientRepo.ListClients(ctx, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list clients")
		return nil, fmt.Errorf("failed to retrieve clients: %w", err)
	}
	return &dto.ListClientsResponse{
		Clients:   dto.ToListClientResponse(clients),
		NextToken: nextToken,
	}, nil
}

// DeleteClient removes a client that has no open tickets and no invoices. Invoices keep moving
// the client's totalSpent, so the client must outlive them.
func (s *clientService) DeleteClient(ctx context.Context, clientID string, userID string) error {
	err := s.runner.Run(ctx, "delete_client", []string{clientLockKey(clientID)}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		client, err := tx.FindClientForUpdate(ctx, clientID)
		if err != nil {
			return err
		}
		if !client.CanBeDeleted() {
			return fmt.Errorf("%w: %d open", apperrors.ErrClientHasActiveTickets, client.ActiveTickets)
		}
		hasInvoices, err := tx.ClientHasInvoices(ctx, clientID)
		if err != nil {
			return err
		}
		if hasInvoices {
			return apperrors.ErrClientHasInvoices
		}
		return tx.DeleteClient(ctx, clientID)
	})
	if err != nil {
		s.logWriteFailure(ctx, err, "Failed to delete client", slog.String("client_id", clientID))
		return fmt.Errorf("failed to delete client %s: %w", clientID, err)
	}
	s.LogInfo(ctx, "Client deleted", slog.String("client_id", clientID), slog.String("user_id", userID))
	return nil
}

// AdjustTicketCounters moves the ticket counters by a delta inside a transaction.
// Counters may never go negative and active tickets may never exceed the total.
func (s *clientService) AdjustTicketCounters(ctx context.Context, clientID string, req dto.AdjustTicketCountersRequest, userID string) (*domain.Client, error) {
	if req.TotalDelta == 0 && req.ActiveDelta == 0 {
		return s.GetClientByID(ctx, clientID)
	}

	var updated domain.Client
	err := s.runner.Run(ctx, "adjust_ticket_counters", []string{clientLockKey(clientID)}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		client, err := tx.FindClientForUpdate(ctx, clientID)
		if err != nil {
			return err
		}
		total := client.TotalTickets + req.TotalDelta
		active := client.ActiveTickets + req.ActiveDelta
		if total < 0 || active < 0 || active > total {
			return fmt.Errorf("%w: ticket counters would become total=%d active=%d", apperrors.ErrValidation, total, active)
		}

		now := s.Now()
		if err := tx.AdjustClientTicketCounters(ctx, clientID, req.TotalDelta, req.ActiveDelta, userID, now); err != nil {
			return err
		}
		updated = *client
		updated.TotalTickets = total
		updated.ActiveTickets = active
		updated.Touch(userID, now)
		return nil
	})
	if err != nil {
		s.logWriteFailure(ctx, err, "Failed to adjust ticket counters", slog.String("client_id", clientID))
		return nil, fmt.Errorf("failed to adjust ticket counters for client %s: %w", clientID, err)
	}
	return &updated, nil
}
