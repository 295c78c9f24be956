package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
	"github.com/SscSPs/repair_shop_billing/internal/models"
	"github.com/SscSPs/repair_shop_billing/internal/utils/mapping"
	"github.com/SscSPs/repair_shop_billing/internal/utils/pagination"
)

const quoteColumns = `quote_id, number, client_id, client_name, client_email, client_address,
	items, subtotal, vat_rate, tax, total, status, valid_until, notes,
	created_at, created_by, last_updated_at, last_updated_by, version`

type PgxQuoteRepository struct {
	BaseRepository
}

// newPgxQuoteRepository creates a new repository for quote data.
func newPgxQuoteRepository(pool *pgxpool.Pool) portsrepo.QuoteRepositoryFacade {
	return &PgxQuoteRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.QuoteRepositoryFacade = (*PgxQuoteRepository)(nil)

func scanQuote(row pgx.Row) (domain.Quote, error) {
	var m models.Quote
	err := row.Scan(
		&m.QuoteID, &m.Number, &m.ClientID, &m.ClientName, &m.ClientEmail, &m.ClientAddress,
		&m.Items, &m.Subtotal, &m.VATRate, &m.Tax, &m.Total, &m.Status, &m.ValidUntil, &m.Notes,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy, &m.Version,
	)
	if err != nil {
		return domain.Quote{}, err
	}
	return mapping.ToDomainQuote(m)
}

func findQuote(ctx context.Context, q querier, quoteID string, forUpdate bool) (*domain.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE quote_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	quote, err := scanQuote(q.QueryRow(ctx, query, quoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to find quote %s: %w", quoteID, err)
	}
	return &quote, nil
}

func (r *PgxQuoteRepository) FindQuoteByID(ctx context.Context, quoteID string) (*domain.Quote, error) {
	return findQuote(ctx, r.Pool, quoteID, false)
}

func (r *PgxQuoteRepository) ListQuotes(ctx context.Context, filter portsrepo.QuoteFilter, limit int, nextToken *string) ([]domain.Quote, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.ClientID != "" {
		clauses = append(clauses, "client_id = "+arg(filter.ClientID))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		clauses = append(clauses, "status = ANY("+arg(statuses)+")")
	}
	if nextToken != nil && *nextToken != "" {
		cursor, err := pagination.DecodeCursor(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid nextToken: %v", apperrors.ErrValidation, err)
		}
		clauses = append(clauses, "(created_at, quote_id) < ("+arg(cursor.CreatedAt)+", "+arg(cursor.ID)+")")
	}

	query := `SELECT ` + quoteColumns + ` FROM quotes`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, quote_id DESC LIMIT " + arg(fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]domain.Quote, 0, fetchLimit)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan quote row: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating quote rows: %w", err)
	}

	var nextTokenVal *string
	if len(quotes) > limit {
		last := quotes[limit-1]
		token := pagination.EncodeCursor(last.CreatedAt, last.QuoteID)
		nextTokenVal = &token
		quotes = quotes[:limit]
	}
	return quotes, nextTokenVal, nil
}

// MarkQuoteExpired is a conditional update, so a conversion that committed first always wins.
func (r *PgxQuoteRepository) MarkQuoteExpired(ctx context.Context, quoteID string, userID string, now time.Time) (bool, error) {
	query := `
		UPDATE quotes SET status = 'rejected', last_updated_at = $2, last_updated_by = $3, version = version + 1
		WHERE quote_id = $1 AND status = 'pending' AND valid_until < $2`
	tag, err := r.Pool.Exec(ctx, query, quoteID, now, userID)
	if err != nil {
		return false, fmt.Errorf("failed to expire quote %s: %w", quoteID, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	exists, err := quoteExists(ctx, r.Pool, quoteID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, apperrors.ErrQuoteNotFound
	}
	return false, nil
}

func quoteExists(ctx context.Context, q querier, quoteID string) (bool, error) {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quotes WHERE quote_id = $1)`, quoteID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check quote %s: %w", quoteID, err)
	}
	return exists, nil
}

// --- transactional statements ---

func (t *ledgerTx) FindQuoteForUpdate(ctx context.Context, quoteID string) (*domain.Quote, error) {
	return findQuote(ctx, t.tx, quoteID, true)
}

func (t *ledgerTx) InsertQuote(ctx context.Context, quote domain.Quote) error {
	m, err := mapping.ToModelQuote(quote)
	if err != nil {
		return err
	}
	query := `INSERT INTO quotes (` + quoteColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, 1)`
	_, err = t.tx.Exec(ctx, query,
		m.QuoteID, m.Number, m.ClientID, m.ClientName, m.ClientEmail, m.ClientAddress,
		m.Items, m.Subtotal, m.VATRate, m.Tax, m.Total, m.Status, m.ValidUntil, m.Notes,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert quote %s: %w", m.Number, err)
	}
	return nil
}

func (t *ledgerTx) UpdateQuote(ctx context.Context, quote domain.Quote) error {
	m, err := mapping.ToModelQuote(quote)
	if err != nil {
		return err
	}
	query := `
		UPDATE quotes SET
			items = $2, subtotal = $3, tax = $4, total = $5, status = $6, valid_until = $7, notes = $8,
			last_updated_at = $9, last_updated_by = $10, version = version + 1
		WHERE quote_id = $1`
	tag, err := t.tx.Exec(ctx, query,
		m.QuoteID, m.Items, m.Subtotal, m.Tax, m.Total, m.Status, m.ValidUntil, m.Notes,
		m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update quote %s: %w", m.QuoteID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrQuoteNotFound
	}
	return nil
}

func (t *ledgerTx) DeleteQuote(ctx context.Context, quoteID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM quotes WHERE quote_id = $1`, quoteID)
	if err != nil {
		return fmt.Errorf("failed to delete quote %s: %w", quoteID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrQuoteNotFound
	}
	return nil
}

func (t *ledgerTx) QuoteNumberExists(ctx context.Context, number string) (bool, error) {
	return numberExists(ctx, t.tx, "quotes", number)
}

func (t *ledgerTx) LatestQuoteNumber(ctx context.Context, prefix string) (string, bool, error) {
	return latestNumber(ctx, t.tx, "quotes", prefix)
}
