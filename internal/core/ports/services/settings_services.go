package services

import (
	"context"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
)

// SettingsSvcFacade exposes the billing configuration.
type SettingsSvcFacade interface {
	GetBillingSettings(ctx context.Context) (*domain.BillingSettings, error)
	SaveBillingSettings(ctx context.Context, settings domain.BillingSettings) error
}
