package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("OPENROUTER_API_KEY", "key")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "")
	t.Setenv("OPENROUTER_BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want default 8080", cfg.Port)
	}
	if cfg.OpenRouterBaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("OpenRouterBaseURL = %q", cfg.OpenRouterBaseURL)
	}
	if cfg.DatabasePath == "" || cfg.MigrationsPath == "" {
		t.Errorf("database defaults missing: %+v", cfg)
	}
}

func TestLoadReportsAllMissingKeys(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("STRIPE_SECRET_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load accepted missing required keys")
	}
	msg := err.Error()
	if !strings.Contains(msg, "SESSION_SECRET") || !strings.Contains(msg, "STRIPE_SECRET_KEY") {
		t.Errorf("error does not name all missing keys: %v", err)
	}
	if strings.Contains(msg, "OPENROUTER_API_KEY") {
		t.Errorf("error names a key that was set: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9999")
	t.Setenv("DATABASE_PATH", "/tmp/other.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9999" || cfg.DatabasePath != "/tmp/other.db" {
		t.Errorf("overrides ignored: %+v", cfg)
	}
}
