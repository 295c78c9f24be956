package domain

import "github.com/shopspring/decimal"

// invoiceTransitions lists the persisted invoice transitions. Overdue is derived and absent here.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft:   {InvoicePending},
	InvoicePending: {InvoicePartial, InvoiceDeposit, InvoicePaid},
	InvoicePartial: {InvoiceDeposit, InvoicePaid},
	InvoiceDeposit: {InvoicePartial, InvoicePaid},
	InvoicePaid:    {},
}

// CanTransitionInvoice reports whether an invoice may move from one persisted status to another.
// Staying in the same status is always allowed.
func CanTransitionInvoice(from, to InvoiceStatus) bool {
	if from == to {
		return true
	}
	for _, next := range invoiceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DeriveInvoiceStatus computes the status implied by the amounts. Drafts keep their status
// until they are issued.
//
//	paid >= total       -> paid (a zero total is settled as soon as it is issued)
//	0 < paid < total    -> partial, or deposit while every recorded payment is a deposit
//	otherwise           -> current
func DeriveInvoiceStatus(current InvoiceStatus, paid, total decimal.Decimal, payments []Payment) InvoiceStatus {
	if current == InvoiceDraft {
		return current
	}
	if paid.GreaterThanOrEqual(total) {
		return InvoicePaid
	}
	if paid.IsPositive() && paid.LessThan(total) {
		if onlyDeposits(payments) {
			return InvoiceDeposit
		}
		return InvoicePartial
	}
	return current
}

func onlyDeposits(payments []Payment) bool {
	if len(payments) == 0 {
		return false
	}
	for _, p := range payments {
		if p.Type != PaymentTypeDeposit {
			return false
		}
	}
	return true
}

// CanTransitionQuote reports whether a quote may move between statuses.
func CanTransitionQuote(from, to QuoteStatus) bool {
	return from == QuotePending && (to == QuoteAccepted || to == QuoteRejected)
}

// IsTerminal reports whether the quote can no longer change.
func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteAccepted || s == QuoteRejected
}
