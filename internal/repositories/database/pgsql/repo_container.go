package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		InvoiceRepo:  newPgxInvoiceRepository(dbPool),
		QuoteRepo:    newPgxQuoteRepository(dbPool),
		ClientRepo:   newPgxClientRepository(dbPool),
		SettingsRepo: newPgxSettingsRepository(dbPool),
		TxManager:    newTxManager(dbPool),
	}
}
