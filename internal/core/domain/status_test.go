package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDeriveInvoiceStatus(t *testing.T) {
	deposit := domain.Payment{Amount: dec("20"), Type: domain.PaymentTypeDeposit}
	partial := domain.Payment{Amount: dec("20"), Type: domain.PaymentTypePartial}

	tests := []struct {
		name     string
		current  domain.InvoiceStatus
		paid     string
		total    string
		payments []domain.Payment
		want     domain.InvoiceStatus
	}{
		{name: "nothing paid keeps pending", current: domain.InvoicePending, paid: "0", total: "120", want: domain.InvoicePending},
		{name: "nothing paid keeps draft", current: domain.InvoiceDraft, paid: "0", total: "120", want: domain.InvoiceDraft},
		{name: "partial payment", current: domain.InvoicePending, paid: "20", total: "120", payments: []domain.Payment{partial}, want: domain.InvoicePartial},
		{name: "deposit only", current: domain.InvoicePending, paid: "20", total: "120", payments: []domain.Payment{deposit}, want: domain.InvoiceDeposit},
		{name: "deposit then partial", current: domain.InvoiceDeposit, paid: "40", total: "120", payments: []domain.Payment{deposit, partial}, want: domain.InvoicePartial},
		{name: "exact payment", current: domain.InvoicePartial, paid: "120", total: "120", payments: []domain.Payment{partial}, want: domain.InvoicePaid},
		{name: "manual correction above total", current: domain.InvoicePending, paid: "130", total: "120", want: domain.InvoicePaid},
		{name: "zero total is paid", current: domain.InvoicePending, paid: "0", total: "0", want: domain.InvoicePaid},
		{name: "zero total draft stays draft", current: domain.InvoiceDraft, paid: "0", total: "0", want: domain.InvoiceDraft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.DeriveInvoiceStatus(tt.current, dec(tt.paid), dec(tt.total), tt.payments)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanTransitionInvoice(t *testing.T) {
	assert.True(t, domain.CanTransitionInvoice(domain.InvoiceDraft, domain.InvoicePending))
	assert.True(t, domain.CanTransitionInvoice(domain.InvoicePending, domain.InvoicePaid))
	assert.True(t, domain.CanTransitionInvoice(domain.InvoiceDeposit, domain.InvoicePartial))
	assert.True(t, domain.CanTransitionInvoice(domain.InvoicePaid, domain.InvoicePaid))
	assert.False(t, domain.CanTransitionInvoice(domain.InvoicePaid, domain.InvoicePending))
	assert.False(t, domain.CanTransitionInvoice(domain.InvoiceDraft, domain.InvoicePaid))
	assert.False(t, domain.CanTransitionInvoice(domain.InvoicePending, domain.InvoiceOverdue))
}

func TestCanTransitionQuote(t *testing.T) {
	assert.True(t, domain.CanTransitionQuote(domain.QuotePending, domain.QuoteAccepted))
	assert.True(t, domain.CanTransitionQuote(domain.QuotePending, domain.QuoteRejected))
	assert.False(t, domain.CanTransitionQuote(domain.QuoteAccepted, domain.QuoteRejected))
	assert.False(t, domain.CanTransitionQuote(domain.QuoteRejected, domain.QuotePending))
	assert.True(t, domain.QuoteAccepted.IsTerminal())
	assert.False(t, domain.QuotePending.IsTerminal())
}

func TestInvoice_EffectiveStatus(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 1)

	tests := []struct {
		name    string
		invoice domain.Invoice
		want    domain.InvoiceStatus
	}{
		{name: "pending past due", invoice: domain.Invoice{Status: domain.InvoicePending, DueDate: past}, want: domain.InvoiceOverdue},
		{name: "deposit past due", invoice: domain.Invoice{Status: domain.InvoiceDeposit, DueDate: past}, want: domain.InvoiceOverdue},
		{name: "pending not due", invoice: domain.Invoice{Status: domain.InvoicePending, DueDate: future}, want: domain.InvoicePending},
		{name: "paid past due", invoice: domain.Invoice{Status: domain.InvoicePaid, DueDate: past}, want: domain.InvoicePaid},
		{name: "draft past due", invoice: domain.Invoice{Status: domain.InvoiceDraft, DueDate: past}, want: domain.InvoiceDraft},
		{name: "no due date", invoice: domain.Invoice{Status: domain.InvoicePartial}, want: domain.InvoicePartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.invoice.EffectiveStatus(now))
		})
	}
}

func TestQuote_IsExpired(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	assert.True(t, domain.Quote{Status: domain.QuotePending, ValidUntil: now.Add(-time.Minute)}.IsExpired(now))
	assert.False(t, domain.Quote{Status: domain.QuotePending, ValidUntil: now.Add(time.Minute)}.IsExpired(now))
	assert.False(t, domain.Quote{Status: domain.QuoteAccepted, ValidUntil: now.Add(-time.Minute)}.IsExpired(now))
}

func TestBillingSettings_Validate(t *testing.T) {
	valid := domain.BillingSettings{
		VATRate:              dec("20"),
		Prefix:               "FAC",
		NumberingFormat:      domain.NumberingIncrement,
		NextNumber:           1,
		AutoNumbering:        true,
		MinDepositPercentage: dec("30"),
	}
	assert.NoError(t, valid.Validate())
	assert.True(t, valid.UsesSequence())

	bad := valid
	bad.VATRate = dec("-1")
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Prefix = ""
	assert.Error(t, bad.Validate())

	bad = valid
	bad.NumberingFormat = "weekly"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.MinDepositPercentage = dec("101")
	assert.Error(t, bad.Validate())
}

func TestClient_CanBeDeleted(t *testing.T) {
	assert.True(t, domain.Client{ActiveTickets: 0}.CanBeDeleted())
	assert.False(t, domain.Client{ActiveTickets: 2}.CanBeDeleted())
}
