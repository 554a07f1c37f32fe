package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr  string
	BaseURL     string // public base for QR images and /metrics
	FrontendURL string // short links are minted as <FrontendURL>/s/<identifier>

	// Database
	DatabaseURL string

	// Redis (session store); empty falls back to in-memory sessions
	RedisURL string

	// Google sign-in (OIDC)
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionSecret string // Used for encrypting cookies (min 32 chars)

	// CORS
	CORSOrigins string // Comma-separated allowed origins; defaults to FrontendURL

	// SMTP (verification and password-reset codes)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// QR images
	QRImageDir string // local directory served under /q/

	// Plan tiers
	PlansFile string // optional YAML overlay, see plans.go

	// Destination health checks
	EnableHealthChecks bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:                getEnv("ENV", "development"),
		ServerAddr:         getEnv("SERVER_ADDR", ":8080"),
		BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
		DatabaseURL:        getEnv("DATABASE_URL", "postgres://localhost:5432/shortly?sslmode=disable"),
		RedisURL:           getEnv("REDIS_URL", ""),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/v1/auth/google/callback"),
		SessionSecret:      getEnv("SESSION_SECRET", "change-me-in-production-min-32-chars"),
		CORSOrigins:        getEnv("CORS_ORIGINS", ""),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnvInt("SMTP_PORT", 587),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:           getEnv("SMTP_FROM", ""),
		SMTPFromName:       getEnv("SMTP_FROM_NAME", "Shortly"),
		QRImageDir:         getEnv("QR_IMAGE_DIR", "./qrcodes"),
		PlansFile:          getEnv("PLANS_FILE", "plans.yaml"),
		EnableHealthChecks: getEnv("ENABLE_HEALTH_CHECKS", "") != "",
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsEmailEnabled returns true if SMTP is configured.
func (c *Config) IsEmailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// IsGoogleAuthEnabled returns true if Google sign-in is configured.
func (c *Config) IsGoogleAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
