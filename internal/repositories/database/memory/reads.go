package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
	"github.com/SscSPs/repair_shop_billing/internal/utils/pagination"
)

func (s *Store) FindInvoiceByID(_ context.Context, invoiceID string) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return nil, apperrors.ErrInvoiceNotFound
	}
	out := cloneInvoice(inv)
	return &out, nil
}

func (s *Store) ListInvoices(_ context.Context, filter portsrepo.InvoiceFilter, limit int, nextToken *string) ([]domain.Invoice, *string, error) {
	cursor, err := decodeToken(nextToken)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	matched := make([]domain.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		if matchesInvoice(inv, filter) && cursor.After(inv.CreatedAt, inv.InvoiceID) {
			matched = append(matched, cloneInvoice(inv))
		}
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		return newerFirst(matched[i].CreatedAt, matched[i].InvoiceID, matched[j].CreatedAt, matched[j].InvoiceID)
	})
	page, more := truncate(matched, limit)
	var token *string
	if more {
		last := page[len(page)-1]
		t := pagination.EncodeCursor(last.CreatedAt, last.InvoiceID)
		token = &t
	}
	return page, token, nil
}

func matchesInvoice(inv domain.Invoice, f portsrepo.InvoiceFilter) bool {
	if f.ClientID != "" && inv.ClientID != f.ClientID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, inv.Status) {
		return false
	}
	if f.DueBefore != nil && (inv.DueDate.IsZero() || !inv.DueDate.Before(*f.DueBefore)) {
		return false
	}
	if f.NotDueBefore != nil && !inv.DueDate.IsZero() && inv.DueDate.Before(*f.NotDueBefore) {
		return false
	}
	return true
}

func (s *Store) FindQuoteByID(_ context.Context, quoteID string) (*domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[quoteID]
	if !ok {
		return nil, apperrors.ErrQuoteNotFound
	}
	out := cloneQuote(q)
	return &out, nil
}

func (s *Store) ListQuotes(_ context.Context, filter portsrepo.QuoteFilter, limit int, nextToken *string) ([]domain.Quote, *string, error) {
	cursor, err := decodeToken(nextToken)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	matched := make([]domain.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		if filter.ClientID != "" && q.ClientID != filter.ClientID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, q.Status) {
			continue
		}
		if cursor.After(q.CreatedAt, q.QuoteID) {
			matched = append(matched, cloneQuote(q))
		}
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		return newerFirst(matched[i].CreatedAt, matched[i].QuoteID, matched[j].CreatedAt, matched[j].QuoteID)
	})
	page, more := truncate(matched, limit)
	var token *string
	if more {
		last := page[len(page)-1]
		t := pagination.EncodeCursor(last.CreatedAt, last.QuoteID)
		token = &t
	}
	return page, token, nil
}

// MarkQuoteExpired is a compare-and-set on the stored status, so it never overwrites a
// conversion that committed first.
func (s *Store) MarkQuoteExpired(_ context.Context, quoteID string, userID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[quoteID]
	if !ok {
		return false, apperrors.ErrQuoteNotFound
	}
	if !q.IsExpired(now) {
		return false, nil
	}
	q.Status = domain.QuoteRejected
	q.Touch(userID, now)
	q.Version = s.bump(quoteKey(quoteID))
	s.quotes[quoteID] = q
	return true, nil
}

func (s *Store) FindClientByID(_ context.Context, clientID string) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, apperrors.ErrClientNotFound
	}
	return &c, nil
}

func (s *Store) ListClients(_ context.Context, limit int, nextToken *string) ([]domain.Client, *string, error) {
	cursor, err := decodeToken(nextToken)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	matched := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		if cursor.After(c.CreatedAt, c.ClientID) {
			matched = append(matched, c)
		}
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		return newerFirst(matched[i].CreatedAt, matched[i].ClientID, matched[j].CreatedAt, matched[j].ClientID)
	})
	page, more := truncate(matched, limit)
	var token *string
	if more {
		last := page[len(page)-1]
		t := pagination.EncodeCursor(last.CreatedAt, last.ClientID)
		token = &t
	}
	return page, token, nil
}

func (s *Store) GetBillingSettings(_ context.Context) (*domain.BillingSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return nil, apperrors.ErrConfigurationUnavailable
	}
	out := *s.settings
	return &out, nil
}

// SaveBillingSettings replaces the settings row. Open transactions that already read it will
// fail their commit.
func (s *Store) SaveBillingSettings(_ context.Context, settings domain.BillingSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := settings
	s.settings = &stored
	s.bump(settingsKey)
	return nil
}

// ClearBillingSettings removes the settings row.
func (s *Store) ClearBillingSettings() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = nil
	s.bump(settingsKey)
}

func decodeToken(nextToken *string) (*pagination.Cursor, error) {
	if nextToken == nil {
		return nil, nil
	}
	cursor, err := pagination.DecodeCursor(*nextToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	return cursor, nil
}

func newerFirst(aAt time.Time, aID string, bAt time.Time, bID string) bool {
	if aAt.Equal(bAt) {
		return aID > bID
	}
	return aAt.After(bAt)
}

func truncate[T any](rows []T, limit int) ([]T, bool) {
	if limit <= 0 || len(rows) <= limit {
		return rows, false
	}
	return rows[:limit], true
}
