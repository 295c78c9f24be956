package repositories

import (
	"context"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
)

// SettingsReader reads the billing configuration outside a transaction.
type SettingsReader interface {
	// GetBillingSettings returns apperrors.ErrConfigurationUnavailable when no row exists.
	GetBillingSettings(ctx context.Context) (*domain.BillingSettings, error)
}

// SettingsWriter stores billing configuration. Only the settings tooling writes it.
type SettingsWriter interface {
	SaveBillingSettings(ctx context.Context, settings domain.BillingSettings) error
}

// SettingsTx reads configuration and the per-prefix invoice sequence inside a transaction.
type SettingsTx interface {
	// LoadBillingSettings returns apperrors.ErrConfigurationUnavailable when no row exists.
	LoadBillingSettings(ctx context.Context) (*domain.BillingSettings, error)

	// LockSequence reads the next number for prefix and registers it for conflict
	// detection. found is false when the prefix has never been used.
	LockSequence(ctx context.Context, prefix string) (next int64, found bool, err error)

	// SaveSequence stores the next number for prefix. When prefix is the configured invoice
	// prefix, the settings' nextNumber advances with it in the same transaction.
	SaveSequence(ctx context.Context, prefix string, next int64) error
}

// SettingsRepositoryFacade combines all settings-related repository interfaces.
type SettingsRepositoryFacade interface {
	SettingsReader
	SettingsWriter
}
