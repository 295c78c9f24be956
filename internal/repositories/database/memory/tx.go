package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
)

// memTx buffers writes over a snapshot-free view of the store. A nil entry in one of the
// overlay maps marks a deletion.
type memTx struct {
	s         *Store
	readSet   map[string]int64
	invoices  map[string]*domain.Invoice
	quotes    map[string]*domain.Quote
	clients   map[string]*domain.Client
	sequences map[string]int64
}

func newTx(s *Store) *memTx {
	return &memTx{
		s:         s,
		readSet:   make(map[string]int64),
		invoices:  make(map[string]*domain.Invoice),
		quotes:    make(map[string]*domain.Quote),
		clients:   make(map[string]*domain.Client),
		sequences: make(map[string]int64),
	}
}

var _ portsrepo.LedgerTx = (*memTx)(nil)

// observe records the version of key the first time it is read. Callers hold s.mu.
func (t *memTx) observe(key string) {
	if _, ok := t.readSet[key]; !ok {
		t.readSet[key] = t.s.versions[key]
	}
}

// --- invoices ---

func (t *memTx) FindInvoiceForUpdate(_ context.Context, invoiceID string) (*domain.Invoice, error) {
	if inv, ok := t.invoices[invoiceID]; ok {
		if inv == nil {
			return nil, apperrors.ErrInvoiceNotFound
		}
		out := cloneInvoice(*inv)
		return &out, nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.observe(invoiceKey(invoiceID))
	inv, ok := t.s.invoices[invoiceID]
	if !ok {
		return nil, apperrors.ErrInvoiceNotFound
	}
	out := cloneInvoice(inv)
	return &out, nil
}

func (t *memTx) InsertInvoice(ctx context.Context, invoice domain.Invoice) error {
	exists, err := t.InvoiceNumberExists(ctx, invoice.Number)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: invoice number %s", apperrors.ErrDuplicate, invoice.Number)
	}
	inv := cloneInvoice(invoice)
	t.invoices[invoice.InvoiceID] = &inv
	return nil
}

func (t *memTx) UpdateInvoice(ctx context.Context, invoice domain.Invoice) error {
	if _, err := t.FindInvoiceForUpdate(ctx, invoice.InvoiceID); err != nil {
		return err
	}
	inv := cloneInvoice(invoice)
	t.invoices[invoice.InvoiceID] = &inv
	return nil
}

func (t *memTx) DeleteInvoice(ctx context.Context, invoiceID string) error {
	if _, err := t.FindInvoiceForUpdate(ctx, invoiceID); err != nil {
		return err
	}
	t.invoices[invoiceID] = nil
	return nil
}

func (t *memTx) InvoiceNumberExists(_ context.Context, number string) (bool, error) {
	for _, inv := range t.invoices {
		if inv != nil && inv.Number == number {
			return true, nil
		}
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.observe(invoiceNumberKey(number))
	for id, inv := range t.s.invoices {
		if inv.Number != number {
			continue
		}
		if pending, ok := t.invoices[id]; ok && pending == nil {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (t *memTx) LatestInvoiceNumber(_ context.Context, prefix string) (string, bool, error) {
	var numbers []string
	for _, inv := range t.invoices {
		if inv != nil {
			numbers = append(numbers, inv.Number)
		}
	}

	t.s.mu.Lock()
	t.observe(invoicesCollection)
	for _, inv := range t.s.invoices {
		numbers = append(numbers, inv.Number)
	}
	t.s.mu.Unlock()

	latest, found := highestWithPrefix(numbers, prefix)
	return latest, found, nil
}

// --- quotes ---

func (t *memTx) FindQuoteForUpdate(_ context.Context, quoteID string) (*domain.Quote, error) {
	if q, ok := t.quotes[quoteID]; ok {
		if q == nil {
			return nil, apperrors.ErrQuoteNotFound
		}
		out := cloneQuote(*q)
		return &out, nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.observe(quoteKey(quoteID))
	q, ok := t.s.quotes[quoteID]
	if !ok {
		return nil, apperrors.ErrQuoteNotFound
	}
	out := cloneQuote(q)
	return &out, nil
}

func (t *memTx) InsertQuote(ctx context.Context, quote domain.Quote) error {
	exists, err := t.QuoteNumberExists(ctx, quote.Number)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: quote number %s", apperrors.ErrDuplicate, quote.Number)
	}
	q := cloneQuote(quote)
	t.quotes[quote.QuoteID] = &q
	return nil
}

func (t *memTx) UpdateQuote(ctx context.Context, quote domain.Quote) error {
	if _, err := t.FindQuoteForUpdate(ctx, quote.QuoteID); err != nil {
		return err
	}
	q := cloneQuote(quote)
	t.quotes[quote.QuoteID] = &q
	return nil
}

func (t *memTx) DeleteQuote(ctx context.Context, quoteID string) error {
	if _, err := t.FindQuoteForUpdate(ctx, quoteID); err != nil {
		return err
	}
	t.quotes[quoteID] = nil
	return nil
}

func (t *memTx) QuoteNumberExists(_ context.Context, number string) (bool, error) {
	for _, q := range t.quotes {
		if q != nil && q.Number == number {
			return true, nil
		}
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.observe(quoteNumberKey(number))
	for id, q := range t.s.quotes {
		if q.Number != number {
			continue
		}
		if pending, ok := t.quotes[id]; ok && pending == nil {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (t *memTx) LatestQuoteNumber(_ context.Context, prefix string) (string, bool, error) {
	var numbers []string
	for _, q := range t.quotes {
		if q != nil {
			numbers = append(numbers, q.Number)
		}
	}

	t.s.mu.Lock()
	t.observe(quotesCollection)
	for _, q := range t.s.quotes {
		numbers = append(numbers, q.Number)
	}
	t.s.mu.Unlock()

	latest, found := highestWithPrefix(numbers, prefix)
	return latest, found, nil
}

// --- clients ---

func (t *memTx) FindClientForUpdate(_ context.Context, clientID string) (*domain.Client, error) {
	if c, ok := t.clients[clientID]; ok {
		if c == nil {
			return nil, apperrors.ErrClientNotFound
		}
		out := *c
		return &out, nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.observe(clientKey(clientID))
	c, ok := t.s.clients[clientID]
	if !ok {
		return nil, apperrors.ErrClientNotFound
	}
	return &c, nil
}

func (t *memTx) InsertClient(_ context.Context, client domain.Client) error {
	t.s.mu.Lock()
	t.observe(clientKey(client.ClientID))
	_, exists := t.s.clients[client.ClientID]
	t.s.mu.Unlock()
	if exists {
		return fmt.Errorf("%w: client %s", apperrors.ErrDuplicate, client.ClientID)
	}
	c := client
	t.clients[client.ClientID] = &c
	return nil
}

func (t *memTx) DeleteClient(ctx context.Context, clientID string) error {
	if _, err := t.FindClientForUpdate(ctx, clientID); err != nil {
		return err
	}
	t.clients[clientID] = nil
	return nil
}

// ClientHasInvoices scans the invoices visible to the transaction. It observes the invoice
// collection, so an invoice inserted or moved to the client before commit forces a retry.
func (t *memTx) ClientHasInvoices(_ context.Context, clientID string) (bool, error) {
	for _, inv := range t.invoices {
		if inv != nil && inv.ClientID == clientID {
			return true, nil
		}
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.observe(invoicesCollection)
	for id, inv := range t.s.invoices {
		if _, overlaid := t.invoices[id]; overlaid {
			continue
		}
		if inv.ClientID == clientID {
			return true, nil
		}
	}
	return false, nil
}

// AdjustClientTotalSpent is a read-modify-write on the client document, so two transactions
// moving the same client conflict and one of them is retried.
func (t *memTx) AdjustClientTotalSpent(ctx context.Context, clientID string, delta decimal.Decimal, userID string, now time.Time) error {
	c, err := t.FindClientForUpdate(ctx, clientID)
	if err != nil {
		return err
	}
	c.TotalSpent = c.TotalSpent.Add(delta)
	c.Touch(userID, now)
	t.clients[clientID] = c
	return nil
}

func (t *memTx) AdjustClientTicketCounters(ctx context.Context, clientID string, totalDelta, activeDelta int, userID string, now time.Time) error {
	c, err := t.FindClientForUpdate(ctx, clientID)
	if err != nil {
		return err
	}
	c.TotalTickets += totalDelta
	c.ActiveTickets += activeDelta
	c.Touch(userID, now)
	t.clients[clientID] = c
	return nil
}

// --- settings ---

func (t *memTx) LoadBillingSettings(_ context.Context) (*domain.BillingSettings, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.observe(settingsKey)
	if t.s.settings == nil {
		return nil, apperrors.ErrConfigurationUnavailable
	}
	out := *t.s.settings
	return &out, nil
}

func (t *memTx) LockSequence(_ context.Context, prefix string) (int64, bool, error) {
	if next, ok := t.sequences[prefix]; ok {
		return next, true, nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.observe(sequenceKey(prefix))
	next, ok := t.s.sequences[prefix]
	return next, ok, nil
}

func (t *memTx) SaveSequence(_ context.Context, prefix string, next int64) error {
	t.sequences[prefix] = next
	return nil
}

// highestWithPrefix orders numbers by length then lexically, so PREFIX-1000 sorts after PREFIX-999.
func highestWithPrefix(numbers []string, prefix string) (string, bool) {
	var matches []string
	for _, n := range numbers {
		if strings.HasPrefix(n, prefix) {
			matches = append(matches, n)
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.Slice(matches, func(i, j int) bool {
		if len(matches[i]) != len(matches[j]) {
			return len(matches[i]) < len(matches[j])
		}
		return matches[i] < matches[j]
	})
	return matches[len(matches)-1], true
}
