package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/repair_shop_billing/internal/core/ports/services"
)

type settingsService struct {
	BaseService
	settingsRepo portsrepo.SettingsRepositoryFacade
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(settingsRepo portsrepo.SettingsRepositoryFacade, opts ...ServiceOption) portssvc.SettingsSvcFacade {
	return &settingsService{
		BaseService:  newBaseService(opts...),
		settingsRepo: settingsRepo,
	}
}

var _ portssvc.SettingsSvcFacade = (*settingsService)(nil)

// GetBillingSettings returns apperrors.ErrConfigurationUnavailable until settings are saved.
// No default is ever substituted.
func (s *settingsService) GetBillingSettings(ctx context.Context) (*domain.BillingSettings, error) {
	settings, err := s.settingsRepo.GetBillingSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load billing settings: %w", err)
	}
	return settings, nil
}

func (s *settingsService) SaveBillingSettings(ctx context.Context, settings domain.BillingSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if err := s.settingsRepo.SaveBillingSettings(ctx, settings); err != nil {
		s.LogError(ctx, err, "Failed to save billing settings")
		return fmt.Errorf("failed to save billing settings: %w", err)
	}
	s.LogInfo(ctx, "Billing settings saved",
		slog.String("prefix", settings.Prefix),
		slog.String("numbering_format", string(settings.NumberingFormat)),
		slog.String("vat_rate", settings.VATRate.String()))
	return nil
}
