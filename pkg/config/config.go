package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port                string
	DatabasePath        string
	MigrationsPath      string
	SessionSecret       string
	OpenRouterAPIKey    string
	OpenRouterBaseURL   string
	StripeSecretKey     string
	StripeWebhookSecret string

	// Optional seeded account for local development. Both must be set
	// for seeding to happen.
	DevSeedEmail    string
	DevSeedPassword string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		DatabasePath:        getEnv("DATABASE_PATH", "cv2ai.db"),
		MigrationsPath:      getEnv("MIGRATIONS_PATH", "migrations"),
		SessionSecret:       os.Getenv("SESSION_SECRET"),
		OpenRouterAPIKey:    os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL:   getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		DevSeedEmail:        os.Getenv("DEV_SEED_EMAIL"),
		DevSeedPassword:     os.Getenv("DEV_SEED_PASSWORD"),
	}

	var result *multierror.Error
	if cfg.SessionSecret == "" {
		result = multierror.Append(result, fmt.Errorf("SESSION_SECRET is required"))
	}
	if cfg.OpenRouterAPIKey == "" {
		result = multierror.Append(result, fmt.Errorf("OPENROUTER_API_KEY is required"))
	}
	if cfg.StripeSecretKey == "" {
		result = multierror.Append(result, fmt.Errorf("STRIPE_SECRET_KEY is required"))
	}
	if cfg.StripeWebhookSecret == "" {
		result = multierror.Append(result, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required"))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
