package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Lock backends for the per-client coordinator lock.
const (
	LockBackendNone  = "none"
	LockBackendRedis = "redis"
)

// Config holds application configuration.
// Billing settings (VAT, numbering) are not here: they live in the database.
type Config struct {
	DatabaseURL        string
	Port               string
	IsProduction       bool
	EnableDBCheck      bool
	JWTSecret          string
	RedisAddress       string
	RedisPassword      string
	RateLimit          string
	CORSAllowedOrigins []string
	MigrationsPath     string

	// Coordinator retry policy.
	TxMaxAttempts     int
	TxBaseBackoff     time.Duration
	NumberMaxAttempts int

	ClientLockBackend string
	ClientLockTTL     time.Duration
	IdempotencyTTL    time.Duration
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("REDIS_ADDRESS", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("RATE_LIMIT", "300-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("TX_MAX_ATTEMPTS", 8)
	viper.SetDefault("TX_BASE_BACKOFF", "10ms")
	viper.SetDefault("NUMBER_MAX_ATTEMPTS", 100)
	viper.SetDefault("CLIENT_LOCK_BACKEND", LockBackendNone)
	viper.SetDefault("CLIENT_LOCK_TTL", "5s")
	viper.SetDefault("IDEMPOTENCY_TTL", "24h")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.RedisAddress = viper.GetString("REDIS_ADDRESS")
	cfg.RedisPassword = viper.GetString("REDIS_PASSWORD")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")
	cfg.CORSAllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))

	cfg.TxMaxAttempts = viper.GetInt("TX_MAX_ATTEMPTS")
	if cfg.TxMaxAttempts < 1 {
		log.Printf("Warning: Invalid TX_MAX_ATTEMPTS (%d). Defaulting to 8.\n", cfg.TxMaxAttempts)
		cfg.TxMaxAttempts = 8
	}
	cfg.TxBaseBackoff = durationOrDefault("TX_BASE_BACKOFF", 10*time.Millisecond)

	cfg.NumberMaxAttempts = viper.GetInt("NUMBER_MAX_ATTEMPTS")
	if cfg.NumberMaxAttempts < 1 {
		log.Printf("Warning: Invalid NUMBER_MAX_ATTEMPTS (%d). Defaulting to 100.\n", cfg.NumberMaxAttempts)
		cfg.NumberMaxAttempts = 100
	}

	cfg.ClientLockBackend = strings.ToLower(viper.GetString("CLIENT_LOCK_BACKEND"))
	if cfg.ClientLockBackend != LockBackendNone && cfg.ClientLockBackend != LockBackendRedis {
		log.Printf("Warning: Unknown CLIENT_LOCK_BACKEND ('%s'). Defaulting to %s.\n", cfg.ClientLockBackend, LockBackendNone)
		cfg.ClientLockBackend = LockBackendNone
	}
	if cfg.ClientLockBackend == LockBackendRedis && cfg.RedisAddress == "" {
		log.Println("Warning: CLIENT_LOCK_BACKEND=redis but REDIS_ADDRESS is not set. Client lock disabled.")
		cfg.ClientLockBackend = LockBackendNone
	}
	cfg.ClientLockTTL = durationOrDefault("CLIENT_LOCK_TTL", 5*time.Second)
	cfg.IdempotencyTTL = durationOrDefault("IDEMPOTENCY_TTL", 24*time.Hour)

	return cfg, nil
}

func durationOrDefault(key string, def time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def.String())
		}
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
