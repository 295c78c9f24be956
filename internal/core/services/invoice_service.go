package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

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

// invoiceService coordinates every invoice mutation together with the client's totalSpent.
type invoiceService struct {
	BaseService
	invoiceRepo portsrepo.InvoiceRepositoryFacade
	runner      *TxRunner
	numbers     *numbering.Generator
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(invoiceRepo portsrepo.InvoiceRepositoryFacade, runner *TxRunner, numbers *numbering.Generator, opts ...ServiceOption) portssvc.InvoiceSvcFacade {
	return &invoiceService{
		BaseService: newBaseService(opts...),
		invoiceRepo: invoiceRepo,
		runner:      runner,
		numbers:     numbers,
	}
}

var _ portssvc.InvoiceSvcFacade = (*invoiceService)(nil)

// CreateInvoice prices the items at the current VAT rate, mints a number and stores the invoice.
func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest, userID string) (*domain.Invoice, error) {
	logger := s.GetLogger(ctx)

	if strings.TrimSpace(req.ClientID) == "" {
		return nil, fmt.Errorf("%w: client is required", apperrors.ErrValidation)
	}
	items := dto.ToLineItems(req.Items)
	if err := accounting.ValidateLineItems(items); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	var created domain.Invoice
	err := s.runner.Run(ctx, "create_invoice", []string{clientLockKey(req.ClientID)}, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		settings, err := tx.LoadBillingSettings(ctx)
		if err != nil {
			return err
		}
		client, err := tx.FindClientForUpdate(ctx, req.ClientID)
		if err != nil {
			return err
		}
		number, err := mintInvoiceNumber(ctx, s.numbers, tx, settings)
		if err != nil {
			return err
		}

		now := s.Now()
		priced, totals := accounting.ComputeTotals(items, settings.VATRate)

		date := now
		if req.Date != nil {
			date = req.Date.UTC()
		}
		dueDate := date.AddDate(0, 0, settings.DefaultDueDays)
		if req.DueDate != nil {
			dueDate = req.DueDate.UTC()
		}
		terms := settings.DefaultPaymentTerms
		if req.PaymentTerms != nil {
			terms = *req.PaymentTerms
		}
		status := domain.InvoicePending
		if req.Draft {
			status = domain.InvoiceDraft
		}
		status = domain.DeriveInvoiceStatus(status, decimal.Zero, totals.Total, nil)

		invoice := domain.Invoice{
			InvoiceID:       uuid.NewString(),
			Number:          number,
			ClientID:        client.ClientID,
			Client:          client.Snapshot(),
			Items:           priced,
			Subtotal:        totals.Subtotal,
			VATRate:         settings.VATRate,
			VATAmount:       totals.Tax,
			Total:           totals.Total,
			PaidAmount:      decimal.Zero,
			RemainingAmount: totals.Total,
			Status:          status,
			Payments:        []domain.Payment{},
			Date:            date,
			DueDate:         dueDate,
			Notes:           req.Notes,
			PaymentTerms:    terms,
			AuditFields:     domain.NewAuditFields(userID, now),
		}
		if err := tx.InsertInvoice(ctx, invoice); err != nil {
			return err
		}
		created = invoice
		return nil
	})
	if err != nil {
		s.logWriteFailure(ctx, err, "Failed to create invoice", slog.String("client_id", req.ClientID))
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	logger.Info("Invoice created successfully", slog.String("invoice_id", created.InvoiceID), slog.String("number", created.Number), slog.String("total", created.Total.StringFixed(2)))
	return &created, nil
}

// UpdateInvoice applies a partial update. Items are repriced at the invoice's frozen VAT rate;
// a paidAmount change is recorded as an adjustment entry and moves the client's totalSpent
// by the difference.
func (s *invoiceService) UpdateInvoice(ctx context.Context, invoiceID string, req dto.UpdateInvoiceRequest, userID string) (*domain.Invoice, error) {
	logger := s.GetLogger(ctx)

	var items []domain.LineItem
	if req.Items != nil {
		items = dto.ToLineItems(*req.Items)
		if err := accounting.ValidateLineItems(items); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
	}
	if req.Status != nil && *req.Status != domain.InvoicePending {
		return nil, fmt.Errorf("%w: status can only be set to %s", apperrors.ErrInvalidStatusTransition, domain.InvoicePending)
	}

	lockKeys := s.invoiceLockKeys(ctx, invoiceID)
	if req.ClientID != nil {
		lockKeys = append(lockKeys, clientLockKey(*req.ClientID))
	}

	var updated domain.Invoice
	err := s.runner.Run(ctx, "update_invoice", lockKeys, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		current, err := tx.FindInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		inv := *current
		oldPaid := current.PaidAmount
		oldClientID := current.ClientID

		if inv.Status == domain.InvoicePaid && (items != nil || req.PaidAmount != nil) {
			return fmt.Errorf("%w: invoice %s is paid", apperrors.ErrInvalidStatusTransition, inv.Number)
		}
		if inv.Status == domain.InvoiceDraft && req.PaidAmount != nil && (req.Status == nil) {
			return fmt.Errorf("%w: draft invoice %s must be issued before it is paid", apperrors.ErrInvalidStatusTransition, inv.Number)
		}

		if req.Status != nil && inv.Status != *req.Status {
			if !domain.CanTransitionInvoice(inv.Status, *req.Status) {
				return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidStatusTransition, inv.Status, *req.Status)
			}
			inv.Status = *req.Status
		}

		if req.ClientID != nil && *req.ClientID != inv.ClientID {
			client, err := tx.FindClientForUpdate(ctx, *req.ClientID)
			if err != nil {
				return err
			}
			inv.ClientID = client.ClientID
			inv.Client = client.Snapshot()
		}

		if items != nil {
			priced, totals := accounting.ComputeTotals(items, inv.VATRate)
			inv.Items = priced
			inv.Subtotal = totals.Subtotal
			inv.VATAmount = totals.Tax
			inv.Total = totals.Total
		}

		if req.PaidAmount != nil {
			paid := accounting.Round2(*req.PaidAmount)
			if paid.IsNegative() || paid.GreaterThan(inv.Total) {
				return fmt.Errorf("%w: paid amount %s must be between 0 and total %s", apperrors.ErrInvalidPaymentAmount, paid.StringFixed(2), inv.Total.StringFixed(2))
			}
			if delta := paid.Sub(inv.PaidAmount); !delta.IsZero() {
				inv.Payments = append(append([]domain.Payment{}, inv.Payments...), domain.Payment{
					PaymentID: uuid.NewString(),
					Date:      s.Now(),
					Amount:    delta,
					Reference: "paid amount correction",
					Type:      domain.PaymentTypeAdjustment,
				})
			}
			inv.PaidAmount = paid
			inv.Status = correctedStatus(inv.Status, paid, inv.Total)
		} else {
			if items != nil && inv.Total.LessThan(inv.PaidAmount) {
				return fmt.Errorf("%w: new total %s is below the amount already paid %s", apperrors.ErrValidation, inv.Total.StringFixed(2), inv.PaidAmount.StringFixed(2))
			}
			inv.Status = domain.DeriveInvoiceStatus(inv.Status, inv.PaidAmount, inv.Total, inv.Payments)
		}
		inv.RemainingAmount = accounting.Remaining(inv.Total, inv.PaidAmount)

		if req.Notes != nil {
			inv.Notes = *req.Notes
		}
		if req.PaymentTerms != nil {
			inv.PaymentTerms = *req.PaymentTerms
		}
		if req.DueDate != nil {
			inv.DueDate = req.DueDate.UTC()
		}

		now := s.Now()
		inv.Touch(userID, now)
		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}

		if inv.ClientID != oldClientID {
			if !oldPaid.IsZero() {
				if err := tx.AdjustClientTotalSpent(ctx, oldClientID, oldPaid.Neg(), userID, now); err != nil {
					return err
				}
			}
			if !inv.PaidAmount.IsZero() {
				if err := tx.AdjustClientTotalSpent(ctx, inv.ClientID, inv.PaidAmount, userID, now); err != nil {
					return err
				}
			}
		} else if delta := inv.PaidAmount.Sub(oldPaid); !delta.IsZero() {
			if err := tx.AdjustClientTotalSpent(ctx, inv.ClientID, delta, userID, now); err != nil {
				return err
			}
		}

		updated = inv
		return nil
	})
	if err != nil {
		s.logWriteFailure(ctx, err, "Failed to update invoice", slog.String("invoice_id", invoiceID))
		return nil, fmt.Errorf("failed to update invoice %s: %w", invoiceID, err)
	}

	logger.Info("Invoice updated successfully", slog.String("invoice_id", invoiceID), slog.String("status", string(updated.Status)))
	return &updated, nil
}

// invoiceLockKeys returns the invoice's lock key and, when the invoice can be read, its
// client's key, since every write to an invoice may move the client's totalSpent. A failed
// read leaves the lookup and its error to the transaction.
func (s *invoiceService) invoiceLockKeys(ctx context.Context, invoiceID string) []string {
	keys := []string{invoiceLockKey(invoiceID)}
	if inv, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID); err == nil {
		keys = append(keys, clientLockKey(inv.ClientID))
	}
	return keys
}

// correctedStatus derives the status after a manual paidAmount correction.
// Corrections are not payments, so the deposit label never applies here.
func correctedStatus(current domain.InvoiceStatus, paid, total decimal.Decimal) domain.InvoiceStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return domain.InvoicePaid
	case paid.IsPositive():
		return domain.InvoicePartial
	case current == domain.InvoicePartial || current == domain.InvoiceDeposit:
		return domain.InvoicePending
	}
	return current
}

// ApplyPayment records a payment. The amount is checked against the remaining amount read
// inside the transaction, never against a value the caller saw earlier.
func (s *invoiceService) ApplyPayment(ctx context.Context, invoiceID string, req dto.ApplyPaymentRequest, userID string) (*domain.Invoice, error) {
	logger := s.GetLogger(ctx)

	amount := accounting.Round2(req.Amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", apperrors.ErrInvalidPaymentAmount)
	}

	var updated domain.Invoice
	err := s.runner.Run(ctx, "apply_payment", s.invoiceLockKeys(ctx, invoiceID), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		// Payment policy is enforced when settings exist; payments never require them.
		settings, err := tx.LoadBillingSettings(ctx)
		if err != nil && !errors.Is(err, apperrors.ErrConfigurationUnavailable) {
			return err
		}

		current, err := tx.FindInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		inv := *current

		if inv.Status == domain.InvoiceDraft {
			return fmt.Errorf("%w: draft invoice %s must be issued before it is paid", apperrors.ErrInvalidStatusTransition, inv.Number)
		}

		remaining := accounting.Remaining(inv.Total, inv.PaidAmount)
		if amount.GreaterThan(remaining) {
			return fmt.Errorf("%w: amount %s exceeds remaining %s", apperrors.ErrInvalidPaymentAmount, amount.StringFixed(2), remaining.StringFixed(2))
		}

		paymentType := req.Type
		if paymentType == "" {
			paymentType = domain.PaymentTypePartial
			if amount.Equal(remaining) {
				paymentType = domain.PaymentTypeFull
			}
		}
		if err := checkPaymentPolicy(settings, &inv, amount, remaining, paymentType); err != nil {
			return err
		}

		now := s.Now()
		paidAt := now
		if req.Date != nil {
			paidAt = req.Date.UTC()
		}

		payments := make([]domain.Payment, 0, len(inv.Payments)+1)
		payments = append(payments, inv.Payments...)
		payments = append(payments, domain.Payment{
			PaymentID: uuid.NewString(),
			Date:      paidAt,
			Amount:    amount,
			Method:    req.Method,
			Reference: req.Reference,
			Type:      paymentType,
			Notes:     req.Notes,
		})

		previous := inv.Status
		inv.Payments = payments
		inv.PaidAmount = accounting.Round2(inv.PaidAmount.Add(amount))
		inv.RemainingAmount = accounting.Remaining(inv.Total, inv.PaidAmount)
		inv.Status = domain.DeriveInvoiceStatus(inv.Status, inv.PaidAmount, inv.Total, inv.Payments)
		if !domain.CanTransitionInvoice(previous, inv.Status) {
			return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidStatusTransition, previous, inv.Status)
		}
		inv.Touch(userID, now)

		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		if err := tx.AdjustClientTotalSpent(ctx, inv.ClientID, amount, userID, now); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		s.logWriteFailure(ctx, err, "Failed to apply payment", slog.String("invoice_id", invoiceID), slog.String("amount", amount.StringFixed(2)))
		return nil, fmt.Errorf("failed to apply payment to invoice %s: %w", invoiceID, err)
	}

	logger.Info("Payment applied successfully",
		slog.String("invoice_id", invoiceID),
		slog.String("amount", amount.StringFixed(2)),
		slog.String("remaining", updated.RemainingAmount.StringFixed(2)),
		slog.String("status", string(updated.Status)))
	return &updated, nil
}

// checkPaymentPolicy applies the shop's payment rules. A nil settings skips them.
func checkPaymentPolicy(settings *domain.BillingSettings, inv *domain.Invoice, amount, remaining decimal.Decimal, paymentType domain.PaymentType) error {
	if paymentType == domain.PaymentTypeAdjustment {
		return fmt.Errorf("%w: adjustments are recorded through paid amount corrections", apperrors.ErrInvalidPaymentAmount)
	}
	if paymentType == domain.PaymentTypeFull && !amount.Equal(remaining) {
		return fmt.Errorf("%w: a full payment must settle the remaining %s", apperrors.ErrInvalidPaymentAmount, remaining.StringFixed(2))
	}
	if settings == nil {
		return nil
	}

	if paymentType == domain.PaymentTypeDeposit {
		if !settings.AllowDeposits {
			return fmt.Errorf("%w: deposits are not allowed", apperrors.ErrInvalidPaymentAmount)
		}
		if len(inv.Payments) > 0 {
			return fmt.Errorf("%w: a deposit must be the first payment", apperrors.ErrInvalidPaymentAmount)
		}
		minimum := accounting.Percentage(inv.Total, settings.MinDepositPercentage)
		if amount.LessThan(minimum) {
			return fmt.Errorf("%w: deposit %s is below the minimum %s", apperrors.ErrInvalidPaymentAmount, amount.StringFixed(2), minimum.StringFixed(2))
		}
		return nil
	}

	if !settings.AllowPartialPayments && amount.LessThan(remaining) {
		return fmt.Errorf("%w: partial payments are not allowed, %s is due", apperrors.ErrInvalidPaymentAmount, remaining.StringFixed(2))
	}
	return nil
}

// DeleteInvoice removes the invoice and takes its paid amount back off the client.
func (s *invoiceService) DeleteInvoice(ctx context.Context, invoiceID string, userID string) error {
	logger := s.GetLogger(ctx)

	var deleted domain.Invoice
	err := s.runner.Run(ctx, "delete_invoice", s.invoiceLockKeys(ctx, invoiceID), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		inv, err := tx.FindInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := tx.DeleteInvoice(ctx, invoiceID); err != nil {
			return err
		}
		if !inv.PaidAmount.IsZero() {
			if err := tx.AdjustClientTotalSpent(ctx, inv.ClientID, inv.PaidAmount.Neg(), userID, s.Now()); err != nil {
				return err
			}
		}
		deleted = *inv
		return nil
	})
	if err != nil {
		s.logWriteFailure(ctx, err, "Failed to delete invoice", slog.String("invoice_id", invoiceID))
		return fmt.Errorf("failed to delete invoice %s: %w", invoiceID, err)
	}

	logger.Info("Invoice deleted successfully", slog.String("invoice_id", invoiceID), slog.String("number", deleted.Number), slog.String("reversed", deleted.PaidAmount.StringFixed(2)))
	return nil
}

// GetInvoiceByID retrieves a specific invoice.
func (s *invoiceService) GetInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	inv, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find invoice by ID", slog.String("invoice_id", invoiceID))
		}
		return nil, fmt.Errorf("failed to find invoice by ID %s: %w", invoiceID, err)
	}
	return inv, nil
}

// ListInvoices retrieves a page of invoices. Filtering by an open status excludes invoices
// that are past due, since those read as overdue.
func (s *invoiceService) ListInvoices(ctx context.Context, params dto.ListInvoicesParams) (*dto.ListInvoicesResponse, error) {
	now := s.Now()
	filter := invoiceFilterFor(params, now)
	limit := pagination.NormalizeLimit(params.Limit, dto.DefaultPageSize, dto.MaxPageSize)

	invoices, nextToken, err := s.invoiceRepo.ListInvoices(ctx, filter, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list invoices")
		return nil, fmt.Errorf("failed to retrieve invoices: %w", err)
	}

	return &dto.ListInvoicesResponse{
		Invoices:  dto.ToListInvoiceResponse(invoices, now),
		NextToken: nextToken,
	}, nil
}

func invoiceFilterFor(params dto.ListInvoicesParams, now time.Time) portsrepo.InvoiceFilter {
	filter := portsrepo.InvoiceFilter{ClientID: params.ClientID}
	switch params.Status {
	case "":
	case domain.InvoiceOverdue:
		filter.Statuses = []domain.InvoiceStatus{domain.InvoicePending, domain.InvoicePartial, domain.InvoiceDeposit}
		filter.DueBefore = &now
	case domain.InvoicePending, domain.InvoicePartial, domain.InvoiceDeposit:
		filter.Statuses = []domain.InvoiceStatus{params.Status}
		filter.NotDueBefore = &now
	default:
		filter.Statuses = []domain.InvoiceStatus{params.Status}
	}
	return filter
}
