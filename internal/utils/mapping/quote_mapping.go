package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/SscSPs/repair_shop_billing/internal/models"
)

// ToModelQuote converts a domain Quote to a model Quote
func ToModelQuote(d domain.Quote) (models.Quote, error) {
	items, err := json.Marshal(lineItemsOrEmpty(d.Items))
	if err != nil {
		return models.Quote{}, fmt.Errorf("encoding items of quote %s: %w", d.QuoteID, err)
	}
	return models.Quote{
		QuoteID:       d.QuoteID,
		Number:        d.Number,
		ClientID:      d.ClientID,
		ClientName:    d.Client.Name,
		ClientEmail:   d.Client.Email,
		ClientAddress: d.Client.Address,
		Items:         items,
		Subtotal:      d.Subtotal,
		VATRate:       d.VATRate,
		Tax:           d.Tax,
		Total:         d.Total,
		Status:        string(d.Status),
		ValidUntil:    d.ValidUntil,
		Notes:         d.Notes,
		AuditFields:   ToModelAuditFields(d.AuditFields),
	}, nil
}

// ToDomainQuote converts a model Quote to a domain Quote
func ToDomainQuote(m models.Quote) (domain.Quote, error) {
	var items []domain.LineItem
	if err := json.Unmarshal(m.Items, &items); err != nil {
		return domain.Quote{}, fmt.Errorf("decoding items of quote %s: %w", m.QuoteID, err)
	}
	return domain.Quote{
		QuoteID:  m.QuoteID,
		Number:   m.Number,
		ClientID: m.ClientID,
		Client: domain.ClientSnapshot{
			Name:    m.ClientName,
			Email:   m.ClientEmail,
			Address: m.ClientAddress,
		},
		Items:       items,
		Subtotal:    m.Subtotal,
		VATRate:     m.VATRate,
		Tax:         m.Tax,
		Total:       m.Total,
		Status:      domain.QuoteStatus(m.Status),
		ValidUntil:  m.ValidUntil,
		Notes:       m.Notes,
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}, nil
}

// ToDomainQuoteSlice converts a slice of model Quotes to a slice of domain Quotes
func ToDomainQuoteSlice(ms []models.Quote) ([]domain.Quote, error) {
	ds := make([]domain.Quote, len(ms))
	for i, m := range ms {
		d, err := ToDomainQuote(m)
		if err != nil {
			return nil, err
		}
		ds[i] = d
	}
	return ds, nil
}
