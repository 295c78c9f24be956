package services

import (
	"github.com/SscSPs/repair_shop_billing/internal/core/numbering"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/repair_shop_billing/internal/core/ports/services"
	"github.com/SscSPs/repair_shop_billing/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// locker may be nil, in which case coordinator transactions run without an advisory lock.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, locker Locker, opts ...ServiceOption) *portssvc.ServiceContainer {
	runner := NewTxRunner(repos.TxManager,
		WithMaxAttempts(cfg.TxMaxAttempts),
		WithBaseBackoff(cfg.TxBaseBackoff),
		WithLocker(locker),
	)
	numbers := numbering.NewGenerator(numbering.WithMaxAttempts(cfg.NumberMaxAttempts))

	return &portssvc.ServiceContainer{
		Invoice:  NewInvoiceService(repos.InvoiceRepo, runner, numbers, opts...),
		Quote:    NewQuoteService(repos.QuoteRepo, runner, numbers, opts...),
		Client:   NewClientService(repos.ClientRepo, runner, opts...),
		Settings: NewSettingsService(repos.SettingsRepo, opts...),
	}
}
