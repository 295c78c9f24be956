package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/SscSPs/repair_shop_billing/internal/core/numbering"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/repair_shop_billing/internal/core/ports/services"
	"github.com/SscSPs/repair_shop_billing/internal/dto"
	"github.com/SscSPs/repair_shop_billing/internal/utils/accounting"
	"github.com/SscSPs/repair_shop_billing/internal/utils/pagination"
)

// DefaultQuoteValidityDays applies when the settings leave quoteValidityDays unset.
const DefaultQuoteValidityDays = 30

type quoteService struct {
	BaseService
	quoteRepo portsrepo.QuoteRepositoryFacade
	runner    *TxRunner
	numbers   *numbering.Generator
}

// NewQuoteService creates a new QuoteService.
func NewQuoteService(quoteRepo portsrepo.QuoteRepositoryFacade, runner *TxRunner, numbers *numbering.Generator, opts ...ServiceOption) portssvc.QuoteSvcFacade {
	return &quoteService{
		BaseService: newBaseService(opts...),
		quoteRepo:   quoteRepo,
		runner:      runner,
		numbers:     numbers,
	}
}

var _ portssvc.QuoteSvcFacade = (*quoteService)(nil)

// CreateQuote prices the items at the current VAT rate and stores a pending quote.
func (s *quoteService) CreateQuote(ctx context.Context, req dto.CreateQuoteRequest, userID string) (*domain.Quote, error) {
	logger := s.GetLogger(ctx)

	if strings.TrimSpace(req.ClientID) == "" {
		return nil, fmt.Errorf("%w: client is required", apperrors.ErrValidation)
	}
	items := dto.ToLineItems(req.Items)
	if err := accounting.ValidateLineItems(items); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	var created domain.Quote
	err := s.runner.Run(ctx, "create_quote", []string{clientLockKey(req.ClientID)}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		settings, err := tx.LoadBillingSettings(ctx)
		if err != nil {
			return err
		}
		client, err := tx.FindClientForUpdate(ctx, req.ClientID)
		if err != nil {
			return err
		}
		res, err := s.numbers.GenerateQuoteNumber(ctx, quoteNumberLookup(tx))
		if err != nil {
			return err
		}

		now := s.Now()
		priced, totals := accounting.ComputeTotals(items, settings.VATRate)

		validity := settings.QuoteValidityDays
		if validity <= 0 {
			validity = DefaultQuoteValidityDays
		}
		validUntil := now.AddDate(0, 0, validity)
		if req.ValidUntil != nil {
			validUntil = req.ValidUntil.UTC()
		}

		quote := domain.Quote{
			QuoteID:     uuid.NewString(),
			Number:      res.Number,
			ClientID:    client.ClientID,
			Client:      client.Snapshot(),
			Items:       priced,
			Subtotal:    totals.Subtotal,
			VATRate:     settings.VATRate,
			Tax:         totals.Tax,
			Total:       totals.Total,
			Status:      domain.QuotePending,
			ValidUntil:  validUntil,
			Notes:       req.Notes,
			AuditFields: domain.NewAuditFields(userID, now),
		}
		if err := tx.InsertQuote(ctx, quote); err != nil {
			return err
		}
		created = quote
		return nil
	})
	if err != nil {
		s.logWriteFailure(ctx, err, "Failed to create quote", slog.String("client_id", req.ClientID))
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}

	logger.Info("Quote created successfully", slog.String("quote_id", created.QuoteID), slog.String("number", created.Number))
	return &created, nil
}

// ConvertQuote creates an invoice from a pending quote. The quote's stored subtotal is taxed at
// the current VAT rate, the quote becomes accepted and the invoice number is minted, all in one
// transaction, so a quote can be converted at most once.
func (s *quoteService) ConvertQuote(ctx context.Context, quoteID string, userID string) (*domain.Quote, *domain.Invoice, error) {
	logger := s.GetLogger(ctx)

	var (
		accepted domain.Quote
		invoice  domain.Invoice
	)
	err := s.runner.Run(ctx, "convert_quote", []string{quoteLockKey(quoteID)}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		settings, err := tx.LoadBillingSettings(ctx)
		if err != nil {
			return err
		}
		current, err := tx.FindQuoteForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		quote := *current

		now := s.Now()
		if !domain.CanTransitionQuote(quote.Status, domain.QuoteAccepted) {
			return fmt.Errorf("%w: quote %s is %s", apperrors.ErrQuoteNotPending, quote.Number, quote.Status)
		}
		if quote.IsExpired(now) {
			return fmt.Errorf("%w: quote %s was valid until %s", apperrors.ErrQuoteExpired, quote.Number, quote.ValidUntil.Format("2006-01-02"))
		}

		client, err := tx.FindClientForUpdate(ctx, quote.ClientID)
		if err != nil {
			return err
		}
		number, err := mintInvoiceNumber(ctx, s.numbers, tx, settings)
		if err != nil {
			return err
		}

		subtotal := accounting.Round2(quote.Subtotal)
		vat := accounting.Tax(subtotal, settings.VATRate)
		total := accounting.Total(subtotal, vat)
		items := make([]domain.LineItem, len(quote.Items))
		copy(items, quote.Items)
		quoteRef := quote.QuoteID

		invoice = domain.Invoice{
			InvoiceID:       uuid.NewString(),
			Number:          number,
			QuoteID:         &quoteRef,
			ClientID:        client.ClientID,
			Client:          client.Snapshot(),
			Items:           items,
			Subtotal:        subtotal,
			VATRate:         settings.VATRate,
			VATAmount:       vat,
			Total:           total,
			PaidAmount:      decimal.Zero,
			RemainingAmount: total,
			Status:          domain.DeriveInvoiceStatus(domain.InvoicePending, decimal.Zero, total, nil),
			Payments:        []domain.Payment{},
			Date:            now,
			DueDate:         now.AddDate(0, 0, settings.DefaultDueDays),
			Notes:           quote.Notes,
			PaymentTerms:    settings.DefaultPaymentTerms,
			AuditFields:     domain.NewAuditFields(userID, now),
		}
		if err := tx.InsertInvoice(ctx, invoice); err != nil {
			return err
		}

		quote.Status = domain.QuoteAccepted
		quote.Touch(userID, now)
		if err := tx.UpdateQuote(ctx, quote); err != nil {
			return err
		}
		accepted = quote
		return nil
	})
	if err != nil {
		s.logWriteFailure(ctx, err, "Failed to convert quote", slog.String("quote_id", quoteID))
		return nil, nil, fmt.Errorf("failed to convert quote %s: %w", quoteID, err)
	}

	logger.Info("Quote converted to invoice",
		slog.String("quote_id", quoteID),
		slog.String("invoice_id", invoice.InvoiceID),
		slog.String("invoice_number", invoice.Number),
		slog.String("vat_rate", invoice.VATRate.String()))
	return &accepted, &invoice, nil
}

// RejectQuote moves a pending quote to rejected.
func (s *quoteService) RejectQuote(ctx context.Context, quoteID string, userID string) (*domain.Quote, error) {
	var rejected domain.Quote
	err := s.runner.Run(ctx, "reject_quote", []string{quoteLockKey(quoteID)}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		current, err := tx.FindQuoteForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		quote := *current
		if !domain.CanTransitionQuote(quote.Status, domain.QuoteRejected) {
			return fmt.Errorf("%w: quote %s is %s", apperrors.ErrQuoteNotPending, quote.Number, quote.Status)
		}
		quote.Status = domain.QuoteRejected
		quote.Touch(userID, s.Now())
		if err := tx.UpdateQuote(ctx, quote); err != nil {
			return err
		}
		rejected = quote
		return nil
	})
	if err != nil {
		s.logWriteFailure(ctx, err, "Failed to reject quote", slog.String("quote_id", quoteID))
		return nil, fmt.Errorf("failed to reject quote %s: %w", quoteID, err)
	}
	s.LogInfo(ctx, "Quote rejected", slog.String("quote_id", quoteID))
	return &rejected, nil
}

// DeleteQuote removes a quote. Quotes never touch client aggregates.
func (s *quoteService) DeleteQuote(ctx context.Context, quoteID string, userID string) error {
	err := s.runner.Run(ctx, "delete_quote", []string{quoteLockKey(quoteID)}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		if _, err := tx.FindQuoteForUpdate(ctx, quoteID); err != nil {
			return err
		}
		return tx.DeleteQuote(ctx, quoteID)
	})
	if err != nil {
		s.logWriteFailure(ctx, err, "Failed to delete quote", slog.String("quote_id", quoteID))
		return fmt.Errorf("failed to delete quote %s: %w", quoteID, err)
	}
	s.LogInfo(ctx, "Quote deleted", slog.String("quote_id", quoteID), slog.String("user_id", userID))
	return nil
}

// GetQuoteByID retrieves a quote, expiring it first if it is pending and past validUntil.
func (s *quoteService) GetQuoteByID(ctx context.Context, quoteID string) (*domain.Quote, error) {
	quote, err := s.quoteRepo.FindQuoteByID(ctx, quoteID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find quote by ID", slog.String("quote_id", quoteID))
		}
		return nil, fmt.Errorf("failed to find quote by ID %s: %w", quoteID, err)
	}
	return s.expireOnRead(ctx, quote), nil
}

// ListQuotes retrieves a page of quotes, expiring stale pending ones on the way out.
func (s *quoteService) ListQuotes(ctx context.Context, params dto.ListQuotesParams) (*dto.ListQuotesResponse, error) {
	filter := portsrepo.QuoteFilter{ClientID: params.ClientID}
	if params.Status != "" {
		filter.Statuses = []domain.QuoteStatus{params.Status}
	}
	limit := pagination.NormalizeLimit(params.Limit, dto.DefaultPageSize, dto.MaxPageSize)

	quotes, nextToken, err := s.quoteRepo.ListQuotes(ctx, filter, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list quotes")
		return nil, fmt.Errorf("failed to retrieve quotes: %w", err)
	}

	out := make([]domain.Quote, 0, len(quotes))
	for i := range quotes {
		q := s.expireOnRead(ctx, &quotes[i])
		if params.Status != "" && q.Status != params.Status {
			continue
		}
		out = append(out, *q)
	}

	return &dto.ListQuotesResponse{
		Quotes:    dto.ToListQuoteResponse(out),
		NextToken: nextToken,
	}, nil
}

// ExpireQuotes rejects every pending quote that is past its validity date.
func (s *quoteService) ExpireQuotes(ctx context.Context, userID string) (int, error) {
	filter := portsrepo.QuoteFilter{Statuses: []domain.QuoteStatus{domain.QuotePending}}
	now := s.Now()
	expired := 0

	var token *string
	for {
		quotes, next, err := s.quoteRepo.ListQuotes(ctx, filter, dto.MaxPageSize, token)
		if err != nil {
			return expired, fmt.Errorf("failed to list pending quotes: %w", err)
		}
		for _, q := range quotes {
			if !q.IsExpired(now) {
				continue
			}
			changed, err := s.quoteRepo.MarkQuoteExpired(ctx, q.QuoteID, userID, now)
			if err != nil {
				return expired, fmt.Errorf("failed to expire quote %s: %w", q.QuoteID, err)
			}
			if changed {
				expired++
			}
		}
		if next == nil {
			break
		}
		token = next
	}

	s.LogInfo(ctx, "Expired stale quotes", slog.Int("count", expired))
	return expired, nil
}

// expireOnRead performs the passive pending -> rejected transition. Failures are logged and
// the quote is returned as read.
func (s *quoteService) expireOnRead(ctx context.Context, quote *domain.Quote) *domain.Quote {
	now := s.Now()
	if !quote.IsExpired(now) {
		return quote
	}

	changed, err := s.quoteRepo.MarkQuoteExpired(ctx, quote.QuoteID, systemUserID, now)
	if err != nil {
		s.GetLogger(ctx).Warn("Failed to expire quote on read", slog.String("quote_id", quote.QuoteID), slog.String("error", err.Error()))
		return quote
	}
	if !changed {
		// Another writer got there first; show what it left behind.
		fresh, err := s.quoteRepo.FindQuoteByID(ctx, quote.QuoteID)
		if err != nil {
			return quote
		}
		return fresh
	}

	expired := *quote
	expired.Status = domain.QuoteRejected
	expired.Touch(systemUserID, now)
	return &expired
}
