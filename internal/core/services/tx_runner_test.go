package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
	"github.com/SscSPs/repair_shop_billing/internal/core/services"
	"github.com/SscSPs/repair_shop_billing/internal/repositories/database/memory"
)

type recordingLocker struct {
	mu       sync.Mutex
	acquired []string
	released []string
	err      error
}

func (l *recordingLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, key)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released = append(l.released, key)
	}, nil
}

func noopTx(context.Context, portsrepo.LedgerTx) error { return nil }

func TestTxRunner_RetriesConflicts(t *testing.T) {
	store := memory.NewStore()
	store.FailNextCommits(3)
	runner := services.NewTxRunner(store, services.WithMaxAttempts(5), services.WithBaseBackoff(0))

	calls := 0
	err := runner.Run(context.Background(), "test", nil, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestTxRunner_ExhaustionBecomesOperationFailed(t *testing.T) {
	store := memory.NewStore()
	store.FailNextCommits(10)
	runner := services.NewTxRunner(store, services.WithMaxAttempts(3), services.WithBaseBackoff(0))

	err := runner.Run(context.Background(), "test", nil, noopTx)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrOperationFailed)
	assert.NotErrorIs(t, err, apperrors.ErrTransactionConflict)
	commits, conflicts := store.Stats()
	assert.Equal(t, 0, commits)
	assert.Equal(t, 3, conflicts)
}

func TestTxRunner_DoesNotRetryOtherErrors(t *testing.T) {
	runner := services.NewTxRunner(memory.NewStore(), services.WithBaseBackoff(0))
	boom := errors.New("boom")

	calls := 0
	err := runner.Run(context.Background(), "test", nil, func(context.Context, portsrepo.LedgerTx) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestTxRunner_CancelledWhileBackingOff(t *testing.T) {
	store := memory.NewStore()
	store.FailNextCommits(100)
	runner := services.NewTxRunner(store, services.WithMaxAttempts(100), services.WithBaseBackoff(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := runner.Run(ctx, "test", nil, noopTx)
	assert.ErrorIs(t, err, apperrors.ErrOperationFailed)
}

func TestTxRunner_LocksInStableOrder(t *testing.T) {
	locker := &recordingLocker{}
	runner := services.NewTxRunner(memory.NewStore(), services.WithLocker(locker))

	err := runner.Run(context.Background(), "test", []string{"invoice:b", "client:a", "invoice:b", ""}, noopTx)
	require.NoError(t, err)
	assert.Equal(t, []string{"client:a", "invoice:b"}, locker.acquired)
	assert.Equal(t, []string{"invoice:b", "client:a"}, locker.released)
}

func TestTxRunner_LockFailure(t *testing.T) {
	locker := &recordingLocker{err: errors.New("redis down")}
	runner := services.NewTxRunner(memory.NewStore(), services.WithLocker(locker))

	calls := 0
	err := runner.Run(context.Background(), "test", []string{"client:a"}, func(context.Context, portsrepo.LedgerTx) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, apperrors.ErrOperationFailed)
	assert.Zero(t, calls)
}
