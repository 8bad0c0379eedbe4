package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	DatabaseURL string

	ListenAddr string

	// JWTSecret signs access tokens handed out by /auth/login.
	JWTSecret string

	// TokenTTL is how long an access token stays valid after login.
	TokenTTL time.Duration

	LogLevel  string
	LogFormat string

	// CORSOrigins lists the origins allowed to call the API. A single
	// "*" allows any origin, which is what the mobile client expects
	// during development.
	CORSOrigins []string

	// BootstrapEmail and BootstrapPassword, when both set, create a
	// user on startup so a fresh database can be driven right away.
	BootstrapEmail    string
	BootstrapPassword string

	// InsertBatchSize bounds the number of rows per INSERT statement
	// during batch uploads. The whole batch still commits atomically.
	InsertBatchSize int
}

// Load reads configuration from environment variables and applies
// defaults for anything unset or unparsable.
func Load() *Config {
	cfg := &Config{
		DatabaseURL:       os.Getenv("APP_DATABASE_URL"),
		ListenAddr:        getenv("APP_LISTEN_ADDR", ":8000"),
		JWTSecret:         os.Getenv("APP_JWT_SECRET"),
		TokenTTL:          30 * time.Minute,
		LogLevel:          getenv("APP_LOG_LEVEL", "info"),
		LogFormat:         getenv("APP_LOG_FORMAT", "json"),
		CORSOrigins:       splitList(getenv("APP_CORS_ORIGINS", "*")),
		BootstrapEmail:    getenv("APP_BOOTSTRAP_EMAIL", ""),
		BootstrapPassword: getenv("APP_BOOTSTRAP_PASSWORD", ""),
		InsertBatchSize:   500,
	}

	if v := os.Getenv("APP_TOKEN_TTL_MINUTES"); v != "" {
		if mins, err := strconv.Atoi(v); err == nil && mins > 0 {
			cfg.TokenTTL = time.Duration(mins) * time.Minute
		}
	}

	if v := os.Getenv("APP_INSERT_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.InsertBatchSize = n
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
