package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
)

// Postgres error codes that mean another transaction won the race.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// querier is the subset shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// Begin starts a new serializable database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		if conflict := asConflict(err); conflict != nil {
			return conflict
		}
		return apperrors.NewAppError(500, "failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}

// TxManager runs coordinator closures in serializable transactions.
type TxManager struct {
	BaseRepository
}

func newTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TransactionManager = (*TxManager)(nil)

// WithinTx begins a transaction, runs fn and commits. Serialization failures, deadlocks and
// unique violations on document numbers are reported as apperrors.ErrTransactionConflict.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = m.Rollback(ctx, tx) }()

	if err := fn(ctx, &ledgerTx{tx: tx}); err != nil {
		if conflict := asConflict(err); conflict != nil {
			return conflict
		}
		return err
	}
	return m.Commit(ctx, tx)
}

func asConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgUniqueViolation:
		return fmt.Errorf("%w: %s", apperrors.ErrTransactionConflict, pgErr.Message)
	}
	return nil
}

// ledgerTx binds the repository statements to one pgx transaction.
type ledgerTx struct {
	tx pgx.Tx
}

var _ portsrepo.LedgerTx = (*ledgerTx)(nil)
