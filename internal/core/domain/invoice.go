package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the persisted lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoicePending InvoiceStatus = "pending"
	InvoicePartial InvoiceStatus = "partial"
	InvoiceDeposit InvoiceStatus = "deposit"
	InvoicePaid    InvoiceStatus = "paid"
	// InvoiceOverdue is never persisted. It is derived at read time from DueDate.
	InvoiceOverdue InvoiceStatus = "overdue"
)

// PaymentMethod is how a payment was collected.
type PaymentMethod string

const (
	PaymentCard     PaymentMethod = "card"
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
)

// PaymentType classifies a payment against the invoice total.
type PaymentType string

const (
	PaymentTypeDeposit    PaymentType = "deposit"
	PaymentTypePartial    PaymentType = "partial"
	PaymentTypeFull       PaymentType = "full"
	// PaymentTypeAdjustment records a manual paidAmount correction. It is never accepted as a payment.
	PaymentTypeAdjustment PaymentType = "adjustment"
)

// Payment is one recorded payment. Amount is positive, except on adjustments where it carries
// the signed correction, so the payments always sum to the invoice's paid amount.
type Payment struct {
	PaymentID string          `json:"id"`
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	Reference string          `json:"reference"`
	Type      PaymentType     `json:"type"`
	Notes     string          `json:"notes,omitempty"`
}

// Invoice is a billed document. Number is immutable once set and never reused.
type Invoice struct {
	InvoiceID       string          `json:"invoiceID"`
	Number          string          `json:"number"`
	QuoteID         *string         `json:"quoteID,omitempty"`
	ClientID        string          `json:"clientID"`
	Client          ClientSnapshot  `json:"client"`
	Items           []LineItem      `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	VATRate         decimal.Decimal `json:"vatRate"`
	VATAmount       decimal.Decimal `json:"vatAmount"`
	Total           decimal.Decimal `json:"total"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	Status          InvoiceStatus   `json:"status"`
	Payments        []Payment       `json:"payments"`
	Date            time.Time       `json:"date"`
	DueDate         time.Time       `json:"dueDate"`
	Notes           string          `json:"notes"`
	PaymentTerms    string          `json:"paymentTerms"`
	AuditFields
}

// IsOverdue reports whether the invoice is past due and still open.
func (i Invoice) IsOverdue(now time.Time) bool {
	if i.DueDate.IsZero() {
		return false
	}
	switch i.Status {
	case InvoicePending, InvoicePartial, InvoiceDeposit:
		return i.DueDate.Before(now)
	}
	return false
}

// EffectiveStatus is the status shown to callers: the persisted one, or overdue when past due.
func (i Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if i.IsOverdue(now) {
		return InvoiceOverdue
	}
	return i.Status
}

// PaymentsTotal sums the recorded payments.
func (i Invoice) PaymentsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range i.Payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}
