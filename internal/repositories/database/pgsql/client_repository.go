package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
	"github.com/SscSPs/repair_shop_billing/internal/models"
	"github.com/SscSPs/repair_shop_billing/internal/utils/mapping"
	"github.com/SscSPs/repair_shop_billing/internal/utils/pagination"
)

const clientColumns = `client_id, name, email, phone, address, total_tickets, active_tickets, total_spent,
	created_at, created_by, last_updated_at, last_updated_by, version`

type PgxClientRepository struct {
	BaseRepository
}

// newPgxClientRepository creates a new repository for client data.
func newPgxClientRepository(pool *pgxpool.Pool) portsrepo.ClientRepositoryFacade {
	return &PgxClientRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.ClientRepositoryFacade = (*PgxClientRepository)(nil)

func scanClient(row pgx.Row) (domain.Client, error) {
	var m models.Client
	err := row.Scan(
		&m.ClientID, &m.Name, &m.Email, &m.Phone, &m.Address, &m.TotalTickets, &m.ActiveTickets, &m.TotalSpent,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy, &m.Version,
	)
	if err != nil {
		return domain.Client{}, err
	}
	return mapping.ToDomainClient(m), nil
}

func findClient(ctx context.Context, q querier, clientID string, forUpdate bool) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE client_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	c, err := scanClient(q.QueryRow(ctx, query, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to find client %s: %w", clientID, err)
	}
	return &c, nil
}

func (r *PgxClientRepository) FindClientByID(ctx context.Context, clientID string) (*domain.Client, error) {
	return findClient(ctx, r.Pool, clientID, false)
}

func (r *PgxClientRepository) ListClients(ctx context.Context, limit int, nextToken *string) ([]domain.Client, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	var (
		rows pgx.Rows
		err  error
	)
	if nextToken != nil && *nextToken != "" {
		cursor, decodeErr := pagination.DecodeCursor(*nextToken)
		if decodeErr != nil {
			return nil, nil, fmt.Errorf("%w: invalid nextToken: %v", apperrors.ErrValidation, decodeErr)
		}
		rows, err = r.Pool.Query(ctx, `SELECT `+clientColumns+` FROM clients
			WHERE (created_at, client_id) < ($1, $2)
			ORDER BY created_at DESC, client_id DESC LIMIT $3`, cursor.CreatedAt, cursor.ID, fetchLimit)
	} else {
		rows, err = r.Pool.Query(ctx, `SELECT `+clientColumns+` FROM clients
			ORDER BY created_at DESC, client_id DESC LIMIT $1`, fetchLimit)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	clients, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Client, error) {
		return scanClient(row)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan clients: %w", err)
	}

	var nextTokenVal *string
	if len(clients) > limit {
		last := clients[limit-1]
		token := pagination.EncodeCursor(last.CreatedAt, last.ClientID)
		nextTokenVal = &token
		clients = clients[:limit]
	}
	return clients, nextTokenVal, nil
}

// --- transactional statements ---

func (t *ledgerTx) FindClientForUpdate(ctx context.Context, clientID string) (*domain.Client, error) {
	return findClient(ctx, t.tx, clientID, true)
}

func (t *ledgerTx) InsertClient(ctx context.Context, client domain.Client) error {
	m := mapping.ToModelClient(client)
	query := `INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)`
	_, err := t.tx.Exec(ctx, query,
		m.ClientID, m.Name, m.Email, m.Phone, m.Address, m.TotalTickets, m.ActiveTickets, m.TotalSpent,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert client %s: %w", m.ClientID, err)
	}
	return nil
}

func (t *ledgerTx) DeleteClient(ctx context.Context, clientID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM clients WHERE client_id = $1`, clientID)
	if err != nil {
		return fmt.Errorf("failed to delete client %s: %w", clientID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrClientNotFound
	}
	return nil
}

func (t *ledgerTx) ClientHasInvoices(ctx context.Context, clientID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE client_id = $1)`, clientID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check invoices of client %s: %w", clientID, err)
	}
	return exists, nil
}

// AdjustClientTotalSpent applies a delta in SQL; the stored total is never recomputed from invoices.
func (t *ledgerTx) AdjustClientTotalSpent(ctx context.Context, clientID string, delta decimal.Decimal, userID string, now time.Time) error {
	query := `
		UPDATE clients SET total_spent = total_spent + $2, last_updated_at = $3, last_updated_by = $4, version = version + 1
		WHERE client_id = $1`
	tag, err := t.tx.Exec(ctx, query, clientID, delta, now, userID)
	if err != nil {
		return fmt.Errorf("failed to adjust total spent for client %s: %w", clientID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrClientNotFound
	}
	return nil
}

func (t *ledgerTx) AdjustClientTicketCounters(ctx context.Context, clientID string, totalDelta, activeDelta int, userID string, now time.Time) error {
	query := `
		UPDATE clients SET
			total_tickets = total_tickets + $2, active_tickets = active_tickets + $3,
			last_updated_at = $4, last_updated_by = $5, version = version + 1
		WHERE client_id = $1`
	tag, err := t.tx.Exec(ctx, query, clientID, totalDelta, activeDelta, now, userID)
	if err != nil {
		return fmt.Errorf("failed to adjust ticket counters for client %s: %w", clientID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrClientNotFound
	}
	return nil
}
