package mapping

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/SscSPs/repair_shop_billing/internal/models"
)

func TestInvoiceMapping_KeepsItemsAndPayments(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	quoteID := "q-1"
	inv := domain.Invoice{
		InvoiceID: "i-1",
		Number:    "INV-000001",
		QuoteID:   &quoteID,
		ClientID:  "c-1",
		Client:    domain.ClientSnapshot{Name: "Alice", Email: "a@example.com", Address: "1 Main St"},
		Items: []domain.LineItem{
			{Description: "Screen", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("50.00"), Total: decimal.RequireFromString("100.00")},
		},
		Total:  decimal.RequireFromString("120.00"),
		Status: domain.InvoicePartial,
		Payments: []domain.Payment{
			{PaymentID: "p-1", Date: now, Amount: decimal.RequireFromString("50.00"), Method: domain.PaymentCash, Type: domain.PaymentTypePartial},
		},
		Date: now,
	}

	m, err := ToModelInvoice(inv)
	require.NoError(t, err)
	assert.Nil(t, m.DueDate)
	assert.Equal(t, "Alice", m.ClientName)

	back, err := ToDomainInvoice(m)
	require.NoError(t, err)
	assert.Equal(t, inv.Client, back.Client)
	require.Len(t, back.Items, 1)
	assert.True(t, back.Items[0].Total.Equal(decimal.NewFromInt(100)))
	require.Len(t, back.Payments, 1)
	assert.Equal(t, "p-1", back.Payments[0].PaymentID)
	assert.True(t, back.DueDate.IsZero())
	assert.Equal(t, "q-1", *back.QuoteID)
}

func TestToDomainInvoice_EmptyPayments(t *testing.T) {
	d, err := ToDomainInvoice(models.Invoice{InvoiceID: "i", Items: []byte(`[]`)})
	require.NoError(t, err)
	assert.NotNil(t, d.Payments)
	assert.Empty(t, d.Payments)
}

func TestToDomainQuote_BadItems(t *testing.T) {
	_, err := ToDomainQuote(models.Quote{QuoteID: "q", Items: []byte(`{`)})
	assert.Error(t, err)
}
