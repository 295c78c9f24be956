package repositories

import (
	"context"
)

// LedgerTx is the transactional view of the store handed to a coordinator closure.
// Every read made through it joins the transaction's read set; every write is
// applied atomically on commit or not at all.
type LedgerTx interface {
	InvoiceTx
	QuoteTx
	ClientTx
	SettingsTx
}

// TransactionManager runs a closure inside one store transaction.
type TransactionManager interface {
	// WithinTx begins a transaction, runs fn and commits. If fn returns an error the
	// transaction is rolled back and the error returned unchanged. A commit that loses
	// a concurrent write race returns apperrors.ErrTransactionConflict.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}
