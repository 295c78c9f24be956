package dto

import "github.com/SscSPs/repair_shop_billing/internal/core/domain"

// BillingSettingsResponse mirrors domain.BillingSettings.
type BillingSettingsResponse struct {
	domain.BillingSettings
}
