package app

import (
	"os"
	"strconv"
	"time"

	"github.com/organicecom/marketconnect/internal/connector/domain"
	"github.com/organicecom/marketconnect/internal/connector/gop"
)

type Config struct {
	AppKey      string // Required: marketplace app key
	AppSecret   string // Required: marketplace app secret
	APIBaseURL  string // Vendor gateway base URL (default: https://api-sg.aliexpress.com)
	AuthBaseURL string // Where /oauth/authorize lives (default: APIBaseURL)
	CallbackURL string // Required: the public URL of our callback endpoint
	FrontendURL string // Optional: admin UI to redirect the callback to

	TokenTransport gop.Transport // Token endpoint calling convention (form, query) (default: form)
	RequestTimeout time.Duration // Vendor HTTP timeout (default: 30s)
	ExpiryBuffer   time.Duration // Refresh-ahead window (default: 5m)
	StateTTL       time.Duration // Redirect state lifetime (default: 10m)

	DatabaseFile        string        // Path to the SQLite database file (default: ./marketconnect.db)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		AppKey:      os.Getenv("MARKETPLACE_APP_KEY"),
		AppSecret:   os.Getenv("MARKETPLACE_APP_SECRET"),
		APIBaseURL:  getEnvOrDefault("MARKETPLACE_API_URL", "https://api-sg.aliexpress.com"),
		AuthBaseURL: os.Getenv("MARKETPLACE_AUTH_URL"), // Falls back to APIBaseURL in Validate
		CallbackURL: os.Getenv("MARKETPLACE_CALLBACK_URL"),
		FrontendURL: os.Getenv("FRONTEND_URL"),

		TokenTransport: gop.Transport(getEnvOrDefault("MARKETPLACE_TOKEN_TRANSPORT", string(gop.TransportForm))),
		RequestTimeout: getEnvDurationOrDefault("MARKETPLACE_REQUEST_TIMEOUT", gop.DefaultTimeout),
		ExpiryBuffer:   getEnvDurationOrDefault("TOKEN_EXPIRY_BUFFER", 5*time.Minute),
		StateTTL:       getEnvDurationOrDefault("OAUTH_STATE_TTL", 10*time.Minute),

		DatabaseFile:        getEnvOrDefault("DATABASE_FILE", "marketconnect.db"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

// Validate catches fatal misconfiguration at startup so it never surfaces as
// a per-request failure.
func (c *Config) Validate() error {
	if c.AppKey == "" || c.AppSecret == "" {
		return domain.ErrMissingCredentials
	}
	if c.AuthBaseURL == "" {
		c.AuthBaseURL = c.APIBaseURL
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
