package mapping

import (
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/SscSPs/repair_shop_billing/internal/models"
)

// ToModelClient converts a domain Client to a model Client
func ToModelClient(d domain.Client) models.Client {
	return models.Client{
		ClientID:      d.ClientID,
		Name:          d.Name,
		Email:         d.Email,
		Phone:         d.Phone,
		Address:       d.Address,
		TotalTickets:  d.TotalTickets,
		ActiveTickets: d.ActiveTickets,
		TotalSpent:    d.TotalSpent,
		AuditFields:   ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainClient converts a model Client to a domain Client
func ToDomainClient(m models.Client) domain.Client {
	return domain.Client{
		ClientID:      m.ClientID,
		Name:          m.Name,
		Email:         m.Email,
		Phone:         m.Phone,
		Address:       m.Address,
		TotalTickets:  m.TotalTickets,
		ActiveTickets: m.ActiveTickets,
		TotalSpent:    m.TotalSpent,
		AuditFields:   ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainClientSlice converts a slice of model Clients to a slice of domain Clients
func ToDomainClientSlice(ms []models.Client) []domain.Client {
	ds := make([]domain.Client, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainClient(m)
	}
	return ds
}

// ToModelBillingSettings converts domain settings to the settings row
func ToModelBillingSettings(d domain.BillingSettings) models.BillingSettings {
	return models.BillingSettings{
		VATRate:              d.VATRate,
		Prefix:               d.Prefix,
		NumberingFormat:      string(d.NumberingFormat),
		NextNumber:           d.NextNumber,
		AutoNumbering:        d.AutoNumbering,
		DefaultDueDays:       d.DefaultDueDays,
		DefaultPaymentTerms:  d.DefaultPaymentTerms,
		AllowPartialPayments: d.AllowPartialPayments,
		AllowDeposits:        d.AllowDeposits,
		MinDepositPercentage: d.MinDepositPercentage,
		QuoteValidityDays:    d.QuoteValidityDays,
	}
}

// ToDomainBillingSettings converts the settings row to domain settings
func ToDomainBillingSettings(m models.BillingSettings) domain.BillingSettings {
	return domain.BillingSettings{
		VATRate:              m.VATRate,
		Prefix:               m.Prefix,
		NumberingFormat:      domain.NumberingFormat(m.NumberingFormat),
		NextNumber:           m.NextNumber,
		AutoNumbering:        m.AutoNumbering,
		DefaultDueDays:       m.DefaultDueDays,
		DefaultPaymentTerms:  m.DefaultPaymentTerms,
		AllowPartialPayments: m.AllowPartialPayments,
		AllowDeposits:        m.AllowDeposits,
		MinDepositPercentage: m.MinDepositPercentage,
		QuoteValidityDays:    m.QuoteValidityDays,
	}
}
