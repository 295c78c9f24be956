package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
	"github.com/SscSPs/repair_shop_billing/internal/models"
	"github.com/SscSPs/repair_shop_billing/internal/utils/mapping"
	"github.com/SscSPs/repair_shop_billing/internal/utils/pagination"
)

const invoiceColumns = `invoice_id, number, quote_id, client_id, client_name, client_email, client_address,
	items, subtotal, vat_rate, vat_amount, total, paid_amount, remaining_amount, status, payments,
	invoice_date, due_date, notes, payment_terms,
	created_at, created_by, last_updated_at, last_updated_by, version`

type PgxInvoiceRepository struct {
	BaseRepository
}

// newPgxInvoiceRepository creates a new repository for invoice data.
func newPgxInvoiceRepository(pool *pgxpool.Pool) portsrepo.InvoiceRepositoryFacade {
	return &PgxInvoiceRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.InvoiceRepositoryFacade = (*PgxInvoiceRepository)(nil)

func scanInvoice(row pgx.Row) (domain.Invoice, error) {
	var m models.Invoice
	err := row.Scan(
		&m.InvoiceID, &m.Number, &m.QuoteID, &m.ClientID, &m.ClientName, &m.ClientEmail, &m.ClientAddress,
		&m.Items, &m.Subtotal, &m.VATRate, &m.VATAmount, &m.Total, &m.PaidAmount, &m.RemainingAmount, &m.Status, &m.Payments,
		&m.InvoiceDate, &m.DueDate, &m.Notes, &m.PaymentTerms,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy, &m.Version,
	)
	if err != nil {
		return domain.Invoice{}, err
	}
	return mapping.ToDomainInvoice(m)
}

func findInvoice(ctx context.Context, q querier, invoiceID string, forUpdate bool) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE invoice_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	inv, err := scanInvoice(q.QueryRow(ctx, query, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to find invoice %s: %w", invoiceID, err)
	}
	return &inv, nil
}

// FindInvoiceByID retrieves an invoice by its id.
func (r *PgxInvoiceRepository) FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	return findInvoice(ctx, r.Pool, invoiceID, false)
}

// ListInvoices retrieves a page of invoices ordered by created_at DESC, invoice_id DESC.
func (r *PgxInvoiceRepository) ListInvoices(ctx context.Context, filter portsrepo.InvoiceFilter, limit int, nextToken *string) ([]domain.Invoice, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// We fetch one extra item to determine if there's a next page.
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
	if filter.DueBefore != nil {
		clauses = append(clauses, "due_date IS NOT NULL AND due_date < "+arg(*filter.DueBefore))
	}
	if filter.NotDueBefore != nil {
		clauses = append(clauses, "(due_date IS NULL OR due_date >= "+arg(*filter.NotDueBefore)+")")
	}
	if nextToken != nil && *nextToken != "" {
		cursor, err := pagination.DecodeCursor(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid nextToken: %v", apperrors.ErrValidation, err)
		}
		clauses = append(clauses, "(created_at, invoice_id) < ("+arg(cursor.CreatedAt)+", "+arg(cursor.ID)+")")
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, invoice_id DESC LIMIT " + arg(fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, fetchLimit)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating invoice rows: %w", err)
	}

	var nextTokenVal *string
	if len(invoices) > limit {
		last := invoices[limit-1]
		token := pagination.EncodeCursor(last.CreatedAt, last.InvoiceID)
		nextTokenVal = &token
		invoices = invoices[:limit]
	}
	return invoices, nextTokenVal, nil
}

// --- transactional statements ---

func (t *ledgerTx) FindInvoiceForUpdate(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	return findInvoice(ctx, t.tx, invoiceID, true)
}

func (t *ledgerTx) InsertInvoice(ctx context.Context, invoice domain.Invoice) error {
	m, err := mapping.ToModelInvoice(invoice)
	if err != nil {
		return err
	}
	query := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, 1)`
	_, err = t.tx.Exec(ctx, query,
		m.InvoiceID, m.Number, m.QuoteID, m.ClientID, m.ClientName, m.ClientEmail, m.ClientAddress,
		m.Items, m.Subtotal, m.VATRate, m.VATAmount, m.Total, m.PaidAmount, m.RemainingAmount, m.Status, m.Payments,
		m.InvoiceDate, m.DueDate, m.Notes, m.PaymentTerms,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invoice %s: %w", m.Number, err)
	}
	return nil
}

func (t *ledgerTx) UpdateInvoice(ctx context.Context, invoice domain.Invoice) error {
	m, err := mapping.ToModelInvoice(invoice)
	if err != nil {
		return err
	}
	query := `
		UPDATE invoices SET
			client_id = $2, client_name = $3, client_email = $4, client_address = $5,
			items = $6, subtotal = $7, vat_amount = $8, total = $9, paid_amount = $10, remaining_amount = $11,
			status = $12, payments = $13, due_date = $14, notes = $15, payment_terms = $16,
			last_updated_at = $17, last_updated_by = $18, version = version + 1
		WHERE invoice_id = $1`
	tag, err := t.tx.Exec(ctx, query,
		m.InvoiceID, m.ClientID, m.ClientName, m.ClientEmail, m.ClientAddress,
		m.Items, m.Subtotal, m.VATAmount, m.Total, m.PaidAmount, m.RemainingAmount,
		m.Status, m.Payments, m.DueDate, m.Notes, m.PaymentTerms,
		m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice %s: %w", m.InvoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvoiceNotFound
	}
	return nil
}

func (t *ledgerTx) DeleteInvoice(ctx context.Context, invoiceID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM invoices WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to delete invoice %s: %w", invoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvoiceNotFound
	}
	return nil
}

func (t *ledgerTx) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	return numberExists(ctx, t.tx, "invoices", number)
}

func (t *ledgerTx) LatestInvoiceNumber(ctx context.Context, prefix string) (string, bool, error) {
	return latestNumber(ctx, t.tx, "invoices", prefix)
}

// numberExists and latestNumber take a fixed table name from this package, never from input.
func numberExists(ctx context.Context, q querier, table, number string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check %s number %s: %w", table, number, err)
	}
	return exists, nil
}

func latestNumber(ctx context.Context, q querier, table, prefix string) (string, bool, error) {
	query := `SELECT number FROM ` + table + `
		WHERE left(number, length($1)) = $1
		ORDER BY length(number) DESC, number DESC
		LIMIT 1`
	var number string
	err := q.QueryRow(ctx, query, prefix).Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read latest %s number for %s: %w", table, prefix, err)
	}
	return number, true, nil
}
