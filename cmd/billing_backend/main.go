package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/SscSPs/repair_shop_billing/internal/core/services"
	"github.com/SscSPs/repair_shop_billing/internal/dto"
	"github.com/SscSPs/repair_shop_billing/internal/handlers"
	"github.com/SscSPs/repair_shop_billing/internal/middleware"
	"github.com/SscSPs/repair_shop_billing/internal/platform/cache"
	"github.com/SscSPs/repair_shop_billing/internal/platform/config"
	"github.com/SscSPs/repair_shop_billing/internal/platform/lock"
	"github.com/SscSPs/repair_shop_billing/internal/repositories/database/pgsql"
	"github.com/SscSPs/repair_shop_billing/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
)

// @title Repair Shop Billing API
// @version 1.0
// @description Invoices, quotes and payments for the repair shop ledger.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	logger.Info("Running database migrations...")
	changed, err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, database.MigrateUp)
	if err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if changed {
		logger.Info("Database migrations applied successfully.")
	} else {
		logger.Info("No new migrations to apply.")
	}

	var redisClient *redis.Client
	if cfg.RedisAddress != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
		})
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.Error("Error closing redis client", slog.String("error", cerr.Error()))
			}
		}()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Error("Failed to connect to redis", slog.String("address", cfg.RedisAddress), slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Redis connection established.", slog.String("address", cfg.RedisAddress))
	}

	var locker services.Locker = lock.NoopLocker{}
	if cfg.ClientLockBackend == config.LockBackendRedis && redisClient != nil {
		locker = lock.NewRedisLocker(redisClient, cfg.ClientLockTTL, logger)
		logger.Info("Per-client redis lock enabled", slog.Duration("ttl", cfg.ClientLockTTL))
	}

	var idempotency cache.IdempotencyStore
	if redisClient != nil {
		idempotency = cache.NewRedisIdempotencyStore(redisClient, "billing_idempotency")
	} else {
		idempotency = cache.NewInMemoryIdempotencyStore()
	}

	repos := pgsql.NewRepositoryProvider(dbPool)
	serviceContainer := services.NewServiceContainer(cfg, repos, locker)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := dto.RegisterValidators(v); err != nil {
			logger.Error("Failed to register validators", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	rateLimiter, err := middleware.NewLimiter(cfg.RateLimit, redisClient)
	if err != nil {
		logger.Error("Failed to create rate limiter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", middleware.IdempotencyKeyHeader)
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"}

	r.Use(
		middleware.StructuredLoggingMiddleware(logger),
		gin.Recovery(),
		cors.New(corsConfig),
		middleware.RateLimit(rateLimiter),
	)

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, serviceContainer, idempotency)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
