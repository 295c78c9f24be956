package handlers

import (
	"github.com/SscSPs/repair_shop_billing/cmd/docs"
	portssvc "github.com/SscSPs/repair_shop_billing/internal/core/ports/services"
	"github.com/SscSPs/repair_shop_billing/internal/middleware"
	"github.com/SscSPs/repair_shop_billing/internal/platform/cache"
	"github.com/SscSPs/repair_shop_billing/internal/platform/config"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
// idempotency may be nil, in which case Idempotency-Key headers are ignored.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	idempotency cache.IdempotencyStore,
) {
	r.GET("/health", getHome)

	setupAPIV1Routes(r, cfg, services, idempotency)

	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	service *portssvc.ServiceContainer,
	idempotency cache.IdempotencyStore,
) {
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret))

	var idempotent []gin.HandlerFunc
	if idempotency != nil {
		idempotent = append(idempotent, middleware.Idempotency(idempotency, cfg.IdempotencyTTL))
	}

	registerInvoiceRoutes(v1, service.Invoice, idempotent...)
	registerQuoteRoutes(v1, service.Quote, idempotent...)
	registerClientRoutes(v1, service.Client)
	registerSettingsRoutes(v1, service.Settings)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// chain returns mw followed by h in a fresh slice.
func chain(mw []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	handlers := make([]gin.HandlerFunc, 0, len(mw)+1)
	handlers = append(handlers, mw...)
	return append(handlers, h)
}
