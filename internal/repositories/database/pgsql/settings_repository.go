package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
	"github.com/SscSPs/repair_shop_billing/internal/models"
	"github.com/SscSPs/repair_shop_billing/internal/utils/mapping"
)

const settingsColumns = `vat_rate, prefix, numbering_format, next_number, auto_numbering, default_due_days,
	default_payment_terms, allow_partial_payments, allow_deposits, min_deposit_percentage, quote_validity_days`

type PgxSettingsRepository struct {
	BaseRepository
}

// newPgxSettingsRepository creates a new repository for billing settings.
func newPgxSettingsRepository(pool *pgxpool.Pool) portsrepo.SettingsRepositoryFacade {
	return &PgxSettingsRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.SettingsRepositoryFacade = (*PgxSettingsRepository)(nil)

func loadSettings(ctx context.Context, q querier) (*domain.BillingSettings, error) {
	var m models.BillingSettings
	err := q.QueryRow(ctx, `SELECT `+settingsColumns+` FROM billing_settings WHERE id = 1`).Scan(
		&m.VATRate, &m.Prefix, &m.NumberingFormat, &m.NextNumber, &m.AutoNumbering, &m.DefaultDueDays,
		&m.DefaultPaymentTerms, &m.AllowPartialPayments, &m.AllowDeposits, &m.MinDepositPercentage, &m.QuoteValidityDays,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConfigurationUnavailable
		}
		return nil, fmt.Errorf("failed to load billing settings: %w", err)
	}
	settings := mapping.ToDomainBillingSettings(m)
	return &settings, nil
}

func (r *PgxSettingsRepository) GetBillingSettings(ctx context.Context) (*domain.BillingSettings, error) {
	return loadSettings(ctx, r.Pool)
}

func (r *PgxSettingsRepository) SaveBillingSettings(ctx context.Context, settings domain.BillingSettings) error {
	m := mapping.ToModelBillingSettings(settings)
	query := `
		INSERT INTO billing_settings (id, ` + settingsColumns + `)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			vat_rate = EXCLUDED.vat_rate,
			prefix = EXCLUDED.prefix,
			numbering_format = EXCLUDED.numbering_format,
			next_number = EXCLUDED.next_number,
			auto_numbering = EXCLUDED.auto_numbering,
			default_due_days = EXCLUDED.default_due_days,
			default_payment_terms = EXCLUDED.default_payment_terms,
			allow_partial_payments = EXCLUDED.allow_partial_payments,
			allow_deposits = EXCLUDED.allow_deposits,
			min_deposit_percentage = EXCLUDED.min_deposit_percentage,
			quote_validity_days = EXCLUDED.quote_validity_days;
	`
	_, err := r.Pool.Exec(ctx, query,
		m.VATRate, m.Prefix, m.NumberingFormat, m.NextNumber, m.AutoNumbering, m.DefaultDueDays,
		m.DefaultPaymentTerms, m.AllowPartialPayments, m.AllowDeposits, m.MinDepositPercentage, m.QuoteValidityDays,
	)
	if err != nil {
		return fmt.Errorf("failed to save billing settings: %w", err)
	}
	return nil
}

// --- transactional statements ---

func (t *ledgerTx) LoadBillingSettings(ctx context.Context) (*domain.BillingSettings, error) {
	return loadSettings(ctx, t.tx)
}

// LockSequence takes a row lock on the prefix counter for the rest of the transaction.
func (t *ledgerTx) LockSequence(ctx context.Context, prefix string) (int64, bool, error) {
	var next int64
	err := t.tx.QueryRow(ctx, `SELECT next_value FROM number_sequences WHERE prefix = $1 FOR UPDATE`, prefix).Scan(&next)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to lock sequence %s: %w", prefix, err)
	}
	return next, true, nil
}

func (t *ledgerTx) SaveSequence(ctx context.Context, prefix string, next int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO number_sequences (prefix, next_value) VALUES ($1, $2)
		ON CONFLICT (prefix) DO UPDATE SET next_value = EXCLUDED.next_value`, prefix, next)
	if err != nil {
		return fmt.Errorf("failed to save sequence %s: %w", prefix, err)
	}
	_, err = t.tx.Exec(ctx, `
		UPDATE billing_settings SET next_number = $2
		WHERE prefix = $1 AND next_number < $2`, prefix, next)
	if err != nil {
		return fmt.Errorf("failed to advance next number for %s: %w", prefix, err)
	}
	return nil
}
