package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadENV loads variables from .env when GO_ENV is unset or development.
// A missing .env file is not an error; the process environment still applies.
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	GO_ENV    string
	PORT      int
	LOG_LEVEL string
	// Database Configuration
	DB_USER_NAME           string
	DB_PASSWORD            string
	DB_NAME                string
	DB_HOST                string
	DB_PORT                string
	DB_SSL_MODE            string
	DB_CONNECT_RETRIES     int
	DB_CONNECT_RETRY_DELAY time.Duration
	STORAGE_BACKEND        string // auto, postgres, memory
	SEED_DEMO_DATA         bool
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	JWT_EXPIRY time.Duration
	// Redis Configuration
	REDIS_URL string
	// HTTP
	ALLOWED_ORIGINS string
	RATE_LIMIT      int
	// Payments
	STRIPE_SECRET_KEY            string
	PAYMENT_CURRENCY             string
	PAYMENT_SANDBOX_AUTO_CONFIRM bool
	// Spaces (S3 compatible) Configuration
	SPACES_ACCESS_KEY string
	SPACES_SECRET_KEY string
	SPACES_BUCKET     string
	SPACES_REGION     string
	SPACES_ENDPOINT   string
	SPACES_CDN_URL    string
	// Scheduled jobs
	CRON_ENABLED bool
	// Tracing
	OTEL_EXPORTER_OTLP_ENDPOINT string
	OTEL_SERVICE_NAME           string
}

func Get() (*EnvironmentVariable, error) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	retries := getInt("DB_CONNECT_RETRIES", 3)
	if retries < 1 {
		return nil, fmt.Errorf("DB_CONNECT_RETRIES must be at least 1, got %d", retries)
	}

	backend := strings.ToLower(getString("STORAGE_BACKEND", "auto"))
	switch backend {
	case "auto", "postgres", "memory":
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND must be auto, postgres or memory, got %q", backend)
	}

	envVariables := &EnvironmentVariable{
		GO_ENV:    os.Getenv("GO_ENV"),
		PORT:      port,
		LOG_LEVEL: getString("LOG_LEVEL", "info"),
		// Database
		DB_USER_NAME:           os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:            os.Getenv("DB_PASSWORD"),
		DB_NAME:                os.Getenv("DB_NAME"),
		DB_HOST:                getString("DB_HOST", "localhost"),
		DB_PORT:                getString("DB_PORT", "5432"),
		DB_SSL_MODE:            getString("DB_SSL_MODE", "disable"),
		DB_CONNECT_RETRIES:     retries,
		DB_CONNECT_RETRY_DELAY: getDuration("DB_CONNECT_RETRY_DELAY", 2*time.Second),
		STORAGE_BACKEND:        backend,
		SEED_DEMO_DATA:         getBool("SEED_DEMO_DATA", false),
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: getString("JWT_ISSUER", "course-market-api"),
		JWT_EXPIRY: getDuration("JWT_EXPIRY", 24*time.Hour),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// HTTP
		ALLOWED_ORIGINS: getString("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		RATE_LIMIT:      getInt("RATE_LIMIT", 100),
		// Payments
		STRIPE_SECRET_KEY:            os.Getenv("STRIPE_SECRET_KEY"),
		PAYMENT_CURRENCY:             strings.ToLower(getString("PAYMENT_CURRENCY", "usd")),
		PAYMENT_SANDBOX_AUTO_CONFIRM: getBool("PAYMENT_SANDBOX_AUTO_CONFIRM", os.Getenv("GO_ENV") != "production"),
		// Spaces
		SPACES_ACCESS_KEY: os.Getenv("SPACES_ACCESS_KEY"),
		SPACES_SECRET_KEY: os.Getenv("SPACES_SECRET_KEY"),
		SPACES_BUCKET:     os.Getenv("SPACES_BUCKET"),
		SPACES_REGION:     getString("SPACES_REGION", "nyc3"),
		SPACES_ENDPOINT:   os.Getenv("SPACES_ENDPOINT"),
		SPACES_CDN_URL:    os.Getenv("SPACES_CDN_URL"),
		// Cron, enabled unless explicitly turned off
		CRON_ENABLED: getBool("CRON_ENABLED", true),
		// Tracing
		OTEL_EXPORTER_OTLP_ENDPOINT: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTEL_SERVICE_NAME:           getString("OTEL_SERVICE_NAME", "course-market-api"),
	}

	return envVariables, nil
}

// IsProduction reports whether the process runs with GO_ENV=production
func (e *EnvironmentVariable) IsProduction() bool {
	return e.GO_ENV == "production"
}

// PostgresDSN builds the key/value connection string shared by lib/pq and GORM
func (e *EnvironmentVariable) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		e.DB_HOST,
		e.DB_USER_NAME,
		e.DB_PASSWORD,
		e.DB_NAME,
		e.DB_PORT,
		e.DB_SSL_MODE,
	)
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}
