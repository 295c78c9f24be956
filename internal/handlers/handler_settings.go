package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/repair_shop_billing/internal/core/ports/services"
	"github.com/SscSPs/repair_shop_billing/internal/dto"
	"github.com/SscSPs/repair_shop_billing/internal/middleware"
	"github.com/gin-gonic/gin"
)

// settingsHandler exposes the billing configuration read-only. It is written by ledgerctl.
type settingsHandler struct {
	settingsService portssvc.SettingsSvcFacade
}

func registerSettingsRoutes(rg *gin.RouterGroup, settingsService portssvc.SettingsSvcFacade) {
	h := &settingsHandler{settingsService: settingsService}

	settings := rg.Group("/settings/billing")
	{
		settings.GET("", h.getBillingSettings)
	}
}

// getBillingSettings godoc
// @Summary Get billing settings
// @Tags settings
// @Produce  json
// @Success 200 {object} dto.BillingSettingsResponse
// @Failure 412 {object} map[string]string "Billing settings not configured"
// @Failure 500 {object} map[string]string "Failed to load billing settings"
// @Security BearerAuth
// @Router /settings/billing [get]
func (h *settingsHandler) getBillingSettings(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	settings, err := h.settingsService.GetBillingSettings(c.Request.Context())
	if err != nil {
		respondServiceError(c, logger, err, "load billing settings")
		return
	}

	c.JSON(http.StatusOK, dto.BillingSettingsResponse{BillingSettings: *settings})
}
