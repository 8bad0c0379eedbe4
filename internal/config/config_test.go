package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"APP_DATABASE_URL", "APP_LISTEN_ADDR", "APP_JWT_SECRET", "APP_TOKEN_TTL_MINUTES",
		"APP_LOG_LEVEL", "APP_LOG_FORMAT", "APP_CORS_ORIGINS", "APP_INSERT_BATCH_SIZE",
		"APP_BOOTSTRAP_EMAIL", "APP_BOOTSTRAP_PASSWORD",
	} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %q, want :8000", cfg.ListenAddr)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("TokenTTL = %v, want 30m", cfg.TokenTTL)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("log settings = %q/%q, want info/json", cfg.LogLevel, cfg.LogFormat)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"*"}) {
		t.Errorf("CORSOrigins = %v, want [*]", cfg.CORSOrigins)
	}
	if cfg.InsertBatchSize != 500 {
		t.Errorf("InsertBatchSize = %d, want 500", cfg.InsertBatchSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_DATABASE_URL", "postgres://u:p@localhost/drivepulse")
	t.Setenv("APP_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("APP_TOKEN_TTL_MINUTES", "120")
	t.Setenv("APP_CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("APP_INSERT_BATCH_SIZE", "50")

	cfg := Load()
	if cfg.DatabaseURL != "postgres://u:p@localhost/drivepulse" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("TokenTTL = %v, want 2h", cfg.TokenTTL)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.CORSOrigins, want) {
		t.Errorf("CORSOrigins = %v, want %v", cfg.CORSOrigins, want)
	}
	if cfg.InsertBatchSize != 50 {
		t.Errorf("InsertBatchSize = %d, want 50", cfg.InsertBatchSize)
	}
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	tests := []struct {
		name  string
		ttl   string
		batch string
	}{
		{name: "not a number", ttl: "soon", batch: "many"},
		{name: "zero", ttl: "0", batch: "0"},
		{name: "negative", ttl: "-5", batch: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_TOKEN_TTL_MINUTES", tt.ttl)
			t.Setenv("APP_INSERT_BATCH_SIZE", tt.batch)
			cfg := Load()
			if cfg.TokenTTL != 30*time.Minute {
				t.Errorf("TokenTTL = %v, want default", cfg.TokenTTL)
			}
			if cfg.InsertBatchSize != 500 {
				t.Errorf("InsertBatchSize = %d, want default", cfg.InsertBatchSize)
			}
		})
	}
}
