package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// The storage layer commits at most this many writes atomically.
// MAX_BATCH_SIZE may lower the batch size but never raise it past this.
const AbsoluteBatchCeiling = 500

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	AuthJWTSecret string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	GatewayBaseURL       string
	GatewaySecretKey     string
	GatewayWebhookSecret string
	GatewayTimeout       time.Duration

	MaxBatchSize      int
	DeleteConcurrency int

	RedisAddr      string
	RateLimitRate  float64
	RateLimitBurst int

	RootAdminEmail string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "akada"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "akada"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		GatewayBaseURL:       getenv("GATEWAY_BASE_URL", "https://api.paygate.example"),
		GatewaySecretKey:     strings.TrimSpace(getenv("GATEWAY_SECRET_KEY", "")),
		GatewayWebhookSecret: strings.TrimSpace(getenv("GATEWAY_WEBHOOK_SECRET", "")),
		GatewayTimeout:       time.Duration(getenvInt("GATEWAY_TIMEOUT_SECONDS", 15)) * time.Second,

		MaxBatchSize:      getenvInt("MAX_BATCH_SIZE", 400),
		DeleteConcurrency: getenvInt("DELETE_CONCURRENCY", 4),

		RedisAddr:      strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RateLimitRate:  getenvFloat("RATE_LIMIT_RATE", 20),
		RateLimitBurst: getenvInt("RATE_LIMIT_BURST", 40),

		RootAdminEmail: strings.TrimSpace(getenv("ROOT_ADMIN_EMAIL", "")),
	}

	if cfg.MaxBatchSize <= 0 || cfg.MaxBatchSize > AbsoluteBatchCeiling {
		log.Printf("MAX_BATCH_SIZE %d out of range, clamping to %d", cfg.MaxBatchSize, AbsoluteBatchCeiling)
		cfg.MaxBatchSize = AbsoluteBatchCeiling
	}
	if cfg.DeleteConcurrency <= 0 {
		cfg.DeleteConcurrency = 1
	}

	return cfg
}

func getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Printf("invalid integer for %s: %q, using %d", key, value, fallback)
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		log.Printf("invalid number for %s: %q, using %f", key, value, fallback)
		return fallback
	}
	return parsed
}
