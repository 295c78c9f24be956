// Package memory is an in-process document store with optimistic transactions.
//
// Every document and every derived lookup (number index, collection) carries a version.
// A transaction records the versions it read and buffers its writes; commit validates the
// read set and fails with apperrors.ErrTransactionConflict if any version moved.
package memory

import (
	"context"
	"sync"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
)

const (
	invoicesCollection = "invoices"
	quotesCollection   = "quotes"
	settingsKey        = "settings"
)

func invoiceKey(id string) string { return "invoice:" + id }
func quoteKey(id string) string { return "quote:" + id }
func clientKey(id string) string { return "client:" + id }
func invoiceNumberKey(n string) string { return "invnum:" + n }
func quoteNumberKey(n string) string { return "quotenum:" + n }
func sequenceKey(prefix string) string { return "seq:" + prefix }

// Store keeps invoices, quotes, clients, billing settings and invoice sequences in memory.
type Store struct {
	mu        sync.Mutex
	invoices  map[string]domain.Invoice
	quotes    map[string]domain.Quote
	clients   map[string]domain.Client
	settings  *domain.BillingSettings
	sequences map[string]int64
	versions  map[string]int64

	failNextCommits int
	commits         int
	conflicts       int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		invoices:  make(map[string]domain.Invoice),
		quotes:    make(map[string]domain.Quote),
		clients:   make(map[string]domain.Client),
		sequences: make(map[string]int64),
		versions:  make(map[string]int64),
	}
}

// Provider wires the store into every repository slot.
func (s *Store) Provider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		InvoiceRepo:  s,
		QuoteRepo:    s,
		ClientRepo:   s,
		SettingsRepo: s,
		TxManager:    s,
	}
}

// FailNextCommits makes the next n commits fail with a conflict.
func (s *Store) FailNextCommits(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextCommits = n
}

// Stats returns the number of successful commits and of rejected ones.
func (s *Store) Stats() (commits, conflicts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits, s.conflicts
}

// WithinTx runs fn against a fresh transaction and commits its buffered writes.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx := newTx(s)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNextCommits > 0 {
		s.failNextCommits--
		s.conflicts++
		return apperrors.ErrTransactionConflict
	}
	for key, seen := range tx.readSet {
		if s.versions[key] != seen {
			s.conflicts++
			return apperrors.ErrTransactionConflict
		}
	}

	for id, inv := range tx.invoices {
		old, existed := s.invoices[id]
		if inv == nil {
			if existed {
				delete(s.invoices, id)
				s.bump(invoiceKey(id))
				s.bump(invoiceNumberKey(old.Number))
				s.bump(invoicesCollection)
			}
			continue
		}
		stored := cloneInvoice(*inv)
		stored.Version = s.bump(invoiceKey(id))
		s.invoices[id] = stored
		if !existed || old.Number != stored.Number {
			if existed {
				s.bump(invoiceNumberKey(old.Number))
			}
			s.bump(invoiceNumberKey(stored.Number))
			s.bump(invoicesCollection)
		} else if old.ClientID != stored.ClientID {
			s.bump(invoicesCollection)
		}
	}

	for id, q := range tx.quotes {
		old, existed := s.quotes[id]
		if q == nil {
			if existed {
				delete(s.quotes, id)
				s.bump(quoteKey(id))
				s.bump(quoteNumberKey(old.Number))
				s.bump(quotesCollection)
			}
			continue
		}
		stored := cloneQuote(*q)
		stored.Version = s.bump(quoteKey(id))
		s.quotes[id] = stored
		if !existed || old.Number != stored.Number {
			if existed {
				s.bump(quoteNumberKey(old.Number))
			}
			s.bump(quoteNumberKey(stored.Number))
			s.bump(quotesCollection)
		}
	}

	for id, c := range tx.clients {
		if c == nil {
			delete(s.clients, id)
			s.bump(clientKey(id))
			continue
		}
		stored := *c
		stored.Version = s.bump(clientKey(id))
		s.clients[id] = stored
	}

	for prefix, next := range tx.sequences {
		s.sequences[prefix] = next
		s.bump(sequenceKey(prefix))
		// The settings version is left alone: readers of nextNumber also observe the sequence.
		if s.settings != nil && s.settings.Prefix == prefix && s.settings.NextNumber < next {
			s.settings.NextNumber = next
		}
	}

	s.commits++
	return nil
}

// bump advances the version of key and returns it. Callers hold s.mu.
func (s *Store) bump(key string) int64 {
	s.versions[key]++
	return s.versions[key]
}

func cloneInvoice(inv domain.Invoice) domain.Invoice {
	out := inv
	out.Items = append([]domain.LineItem(nil), inv.Items...)
	out.Payments = append([]domain.Payment{}, inv.Payments...)
	if inv.QuoteID != nil {
		id := *inv.QuoteID
		out.QuoteID = &id
	}
	return out
}

func cloneQuote(q domain.Quote) domain.Quote {
	out := q
	out.Items = append([]domain.LineItem(nil), q.Items...)
	return out
}

var (
	_ portsrepo.TransactionManager       = (*Store)(nil)
	_ portsrepo.InvoiceRepositoryFacade  = (*Store)(nil)
	_ portsrepo.QuoteRepositoryFacade    = (*Store)(nil)
	_ portsrepo.ClientRepositoryFacade   = (*Store)(nil)
	_ portsrepo.SettingsRepositoryFacade = (*Store)(nil)
)
