package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/stripe/stripe-go/v79"
	"golang.org/x/crypto/bcrypt"

	sessiontoken "github.com/msulikowski96-cmd/cv2ai-opty/internal"
	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/api"
	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/config"
	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/repository/store"
	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/service/analysis"
)

func main() {
	// .env is optional, real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	stripe.Key = cfg.StripeSecretKey

	storage, err := store.New(store.Config{
		DatabasePath:   cfg.DatabasePath,
		MigrationsPath: cfg.MigrationsPath,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer storage.Close()

	if cfg.DevSeedEmail != "" && cfg.DevSeedPassword != "" {
		if err := seedDevAccount(storage, cfg.DevSeedEmail, cfg.DevSeedPassword); err != nil {
			log.Fatal(err)
		}
	}

	client := analysis.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL)
	service := analysis.NewService(storage, client)
	signer := sessiontoken.NewSigner(cfg.SessionSecret)

	handler := api.NewHandler(storage, service, signer, cfg.StripeWebhookSecret)
	router := handler.Router()

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Server starting on port %s", cfg.Port)

	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatal(err)
	}
}

// seedDevAccount creates a premium test account for local development.
// It replaces any notion of a hardcoded login bypass, the account only
// exists when explicitly configured.
func seedDevAccount(storage store.Storage, email, password string) error {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user, err := storage.CreateUser(ctx, email, string(hash), "Dev", "Tester")
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			log.Printf("Dev account %s already exists", email)
			return nil
		}
		return err
	}

	premiumUntil := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	if err := storage.UpdateUserPremium(ctx, user.ID, premiumUntil); err != nil {
		return err
	}
	log.Printf("Seeded dev account %s with premium access", email)
	return nil
}
