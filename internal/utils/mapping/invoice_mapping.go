package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/SscSPs/repair_shop_billing/internal/models"
)

// ToModelInvoice converts a domain Invoice to a model Invoice
func ToModelInvoice(d domain.Invoice) (models.Invoice, error) {
	items, err := json.Marshal(lineItemsOrEmpty(d.Items))
	if err != nil {
		return models.Invoice{}, fmt.Errorf("encoding items of invoice %s: %w", d.InvoiceID, err)
	}
	payments := d.Payments
	if payments == nil {
		payments = []domain.Payment{}
	}
	paymentsJSON, err := json.Marshal(payments)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("encoding payments of invoice %s: %w", d.InvoiceID, err)
	}

	m := models.Invoice{
		InvoiceID:       d.InvoiceID,
		Number:          d.Number,
		QuoteID:         d.QuoteID,
		ClientID:        d.ClientID,
		ClientName:      d.Client.Name,
		ClientEmail:     d.Client.Email,
		ClientAddress:   d.Client.Address,
		Items:           items,
		Subtotal:        d.Subtotal,
		VATRate:         d.VATRate,
		VATAmount:       d.VATAmount,
		Total:           d.Total,
		PaidAmount:      d.PaidAmount,
		RemainingAmount: d.RemainingAmount,
		Status:          string(d.Status),
		Payments:        paymentsJSON,
		InvoiceDate:     d.Date,
		Notes:           d.Notes,
		PaymentTerms:    d.PaymentTerms,
		AuditFields:     ToModelAuditFields(d.AuditFields),
	}
	if !d.DueDate.IsZero() {
		due := d.DueDate
		m.DueDate = &due
	}
	return m, nil
}

// ToDomainInvoice converts a model Invoice to a domain Invoice
func ToDomainInvoice(m models.Invoice) (domain.Invoice, error) {
	var items []domain.LineItem
	if err := json.Unmarshal(m.Items, &items); err != nil {
		return domain.Invoice{}, fmt.Errorf("decoding items of invoice %s: %w", m.InvoiceID, err)
	}
	payments := []domain.Payment{}
	if len(m.Payments) > 0 {
		if err := json.Unmarshal(m.Payments, &payments); err != nil {
			return domain.Invoice{}, fmt.Errorf("decoding payments of invoice %s: %w", m.InvoiceID, err)
		}
	}

	d := domain.Invoice{
		InvoiceID: m.InvoiceID,
		Number:    m.Number,
		QuoteID:   m.QuoteID,
		ClientID:  m.ClientID,
		Client: domain.ClientSnapshot{
			Name:    m.ClientName,
			Email:   m.ClientEmail,
			Address: m.ClientAddress,
		},
		Items:           items,
		Subtotal:        m.Subtotal,
		VATRate:         m.VATRate,
		VATAmount:       m.VATAmount,
		Total:           m.Total,
		PaidAmount:      m.PaidAmount,
		RemainingAmount: m.RemainingAmount,
		Status:          domain.InvoiceStatus(m.Status),
		Payments:        payments,
		Date:            m.InvoiceDate,
		Notes:           m.Notes,
		PaymentTerms:    m.PaymentTerms,
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}
	if m.DueDate != nil {
		d.DueDate = *m.DueDate
	}
	return d, nil
}

// ToDomainInvoiceSlice converts a slice of model Invoices to a slice of domain Invoices
func ToDomainInvoiceSlice(ms []models.Invoice) ([]domain.Invoice, error) {
	ds := make([]domain.Invoice, len(ms))
	for i, m := range ms {
		d, err := ToDomainInvoice(m)
		if err != nil {
			return nil, err
		}
		ds[i] = d
	}
	return ds, nil
}

func lineItemsOrEmpty(items []domain.LineItem) []domain.LineItem {
	if items == nil {
		return []domain.LineItem{}
	}
	return items
}
