package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
	"github.com/SscSPs/repair_shop_billing/internal/middleware"
)

const (
	// DefaultTxMaxAttempts bounds transparent retries of a conflicting transaction.
	DefaultTxMaxAttempts = 8
	// DefaultTxBaseBackoff is the first retry delay; it doubles per attempt.
	DefaultTxBaseBackoff = 10 * time.Millisecond

	maxTxBackoff = time.Second
)

// Locker takes an advisory lock around a coordinator transaction.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), error) { return func() {}, nil }

// TxRunner runs coordinator closures inside store transactions and retries them on
// write conflicts. The closure must be safe to run more than once: it has to rebuild
// all of its state from what it reads through the transaction.
type TxRunner struct {
	tm          portsrepo.TransactionManager
	locker      Locker
	maxAttempts int
	baseBackoff time.Duration
}

// TxRunnerOption configures a TxRunner.
type TxRunnerOption func(*TxRunner)

// WithMaxAttempts sets the retry bound.
func WithMaxAttempts(n int) TxRunnerOption {
	return func(r *TxRunner) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithBaseBackoff sets the first retry delay.
func WithBaseBackoff(d time.Duration) TxRunnerOption {
	return func(r *TxRunner) {
		if d >= 0 {
			r.baseBackoff = d
		}
	}
}

// WithLocker installs a lock taken for the keys passed to Run.
func WithLocker(l Locker) TxRunnerOption {
	return func(r *TxRunner) {
		if l != nil {
			r.locker = l
		}
	}
}

// NewTxRunner creates a TxRunner over a transaction manager.
func NewTxRunner(tm portsrepo.TransactionManager, opts ...TxRunnerOption) *TxRunner {
	r := &TxRunner{
		tm:          tm,
		locker:      noopLocker{},
		maxAttempts: DefaultTxMaxAttempts,
		baseBackoff: DefaultTxBaseBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes fn in a transaction, holding the locks for lockKeys for the whole run.
// ErrTransactionConflict never escapes: once the bound is hit it becomes ErrOperationFailed.
func (r *TxRunner) Run(ctx context.Context, op string, lockKeys []string, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	release, err := r.acquire(ctx, lockKeys)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrOperationFailed, op, err)
	}
	defer release()

	for attempt := 1; ; attempt++ {
		err := r.tm.WithinTx(ctx, fn)
		if err == nil {
			if attempt > 1 {
				logger.Debug("Transaction committed after retry", slog.String("operation", op), slog.Int("attempt", attempt))
			}
			return nil
		}
		if !errors.Is(err, apperrors.ErrTransactionConflict) {
			return err
		}
		if attempt >= r.maxAttempts {
			logger.Error("Transaction retries exhausted", slog.String("operation", op), slog.Int("attempts", attempt))
			return fmt.Errorf("%w: %s: conflicting updates after %d attempts", apperrors.ErrOperationFailed, op, attempt)
		}

		logger.Debug("Transaction conflict, retrying", slog.String("operation", op), slog.Int("attempt", attempt))
		timer := time.NewTimer(r.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %s: %v", apperrors.ErrOperationFailed, op, ctx.Err())
		case <-timer.C:
		}
	}
}

func (r *TxRunner) backoff(attempt int) time.Duration {
	if r.baseBackoff <= 0 {
		return 0
	}
	d := r.baseBackoff << (attempt - 1)
	if d > maxTxBackoff || d <= 0 {
		d = maxTxBackoff
	}
	// Full jitter on the upper half keeps competing writers from retrying in lockstep.
	return d/2 + rand.N(d/2+1)
}

// acquire takes the locks in a stable order so two runs can never wait on each other.
func (r *TxRunner) acquire(ctx context.Context, keys []string) (func(), error) {
	unique := make(map[string]struct{}, len(keys))
	ordered := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, seen := unique[k]; seen || k == "" {
			continue
		}
		unique[k] = struct{}{}
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	releases := make([]func(), 0, len(ordered))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, k := range ordered {
		rel, err := r.locker.Acquire(ctx, k)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, rel)
	}
	return releaseAll, nil
}

func clientLockKey(clientID string) string   { return "client:" + clientID }
func invoiceLockKey(invoiceID string) string { return "invoice:" + invoiceID }
func quoteLockKey(quoteID string) string     { return "quote:" + quoteID }
