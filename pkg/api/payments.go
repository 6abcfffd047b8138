package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/product"
	"github.com/stripe/stripe-go/v79/subscription"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/domain"
	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/repository/store"
)

const (
	// Amounts are in grosze.
	basicPlanAmount   = 999
	premiumPlanAmount = 2999

	basicPlanPrice   = "9.99"
	premiumPlanPrice = "29.99"

	premiumProductName = "CV Optimizer Premium"
	planCurrency       = "pln"
)

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
}

type SubscriptionResponse struct {
	SubscriptionID string `json:"subscription_id"`
	ClientSecret   string `json:"client_secret,omitempty"`
}

// HandleCreatePaymentIntent starts a one-time basic plan purchase.
func (h *Handler) HandleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(basicPlanAmount),
		Currency: stripe.String(planCurrency),
	}
	params.AddMetadata("user_id", userID)
	params.AddMetadata("plan_type", string(domain.PlanTypeBasic))

	intent, err := paymentintent.New(params)
	if err != nil {
		log.Printf("stripe payment intent failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Could not start payment")
		return
	}

	if _, err := h.storage.CreatePayment(r.Context(), userID, intent.ID, basicPlanPrice, domain.PlanTypeBasic); err != nil {
		log.Printf("payment record failed for intent=%s: %v", intent.ID, err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, PaymentIntentResponse{ClientSecret: intent.ClientSecret})
}

// HandleCreateSubscription starts a monthly premium subscription. An
// existing subscription is returned instead of creating a second one.
func (h *Handler) HandleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	user, err := h.storage.GetUser(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			respondWithError(w, http.StatusNotFound, "User not found")
		default:
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	if user.StripeSubscriptionID != "" {
		getParams := &stripe.SubscriptionParams{}
		getParams.AddExpand("latest_invoice.payment_intent")
		sub, err := subscription.Get(user.StripeSubscriptionID, getParams)
		if err != nil {
			log.Printf("stripe subscription lookup failed sub=%s: %v", user.StripeSubscriptionID, err)
			respondWithError(w, http.StatusInternalServerError, "Could not load existing subscription")
			return
		}
		respondWithJSON(w, http.StatusOK, SubscriptionResponse{
			SubscriptionID: sub.ID,
			ClientSecret:   invoiceClientSecret(sub.LatestInvoice),
		})
		return
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		name := strings.TrimSpace(user.FirstName + " " + user.LastName)
		if name == "" {
			name = "CV Optimizer User"
		}
		cust, err := customer.New(&stripe.CustomerParams{
			Email: stripe.String(user.Email),
			Name:  stripe.String(name),
		})
		if err != nil {
			log.Printf("stripe customer create failed user=%s: %v", userID, err)
			respondWithError(w, http.StatusInternalServerError, "Could not start subscription")
			return
		}
		customerID = cust.ID
	}

	productID, err := h.premiumProductID()
	if err != nil {
		log.Printf("stripe product lookup failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Could not start subscription")
		return
	}

	subParams := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				PriceData: &stripe.SubscriptionItemPriceDataParams{
					Currency:   stripe.String(planCurrency),
					Product:    stripe.String(productID),
					UnitAmount: stripe.Int64(premiumPlanAmount),
					Recurring: &stripe.SubscriptionItemPriceDataRecurringParams{
						Interval: stripe.String("month"),
					},
				},
			},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	subParams.AddExpand("latest_invoice.payment_intent")

	sub, err := subscription.New(subParams)
	if err != nil {
		log.Printf("stripe subscription create failed user=%s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Could not start subscription")
		return
	}

	if err := h.storage.UpdateUserStripeInfo(r.Context(), userID, customerID, sub.ID); err != nil {
		log.Printf("stripe info update failed user=%s: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	paymentIntentID := ""
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		paymentIntentID = sub.LatestInvoice.PaymentIntent.ID
	}
	if _, err := h.storage.CreatePayment(r.Context(), userID, paymentIntentID, premiumPlanPrice, domain.PlanTypePremium); err != nil {
		log.Printf("payment record failed sub=%s: %v", sub.ID, err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, SubscriptionResponse{
		SubscriptionID: sub.ID,
		ClientSecret:   invoiceClientSecret(sub.LatestInvoice),
	})
}

// HandleStripeWebhook confirms purchases. Basic purchases arrive as
// payment_intent.succeeded, premium renewals as invoice.payment_succeeded.
func (h *Handler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Could not read webhook payload")
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		log.Printf("stripe webhook signature failed: %v", err)
		respondWithError(w, http.StatusBadRequest, "Invalid webhook signature")
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid payment intent payload")
			return
		}
		if intent.Metadata["plan_type"] == string(domain.PlanTypeBasic) {
			userID := intent.Metadata["user_id"]
			if err := h.storage.UpdateUserBasic(r.Context(), userID); err != nil {
				log.Printf("basic upgrade failed user=%s: %v", userID, err)
				respondWithError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
		}
		if err := h.storage.UpdatePaymentStatus(r.Context(), intent.ID, domain.PaymentStatusSucceeded); err != nil && !errors.Is(err, store.ErrPaymentNotFound) {
			log.Printf("payment status update failed intent=%s: %v", intent.ID, err)
		}

	case "invoice.payment_succeeded":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid invoice payload")
			return
		}
		if invoice.Subscription != nil {
			premiumUntil := time.Now().UTC().AddDate(0, 1, 0)
			err := h.storage.ExtendPremiumByStripeSubscription(r.Context(), invoice.Subscription.ID, premiumUntil)
			if err != nil && !errors.Is(err, store.ErrUserNotFound) {
				log.Printf("premium extension failed sub=%s: %v", invoice.Subscription.ID, err)
				respondWithError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
		}
		if invoice.PaymentIntent != nil {
			if err := h.storage.UpdatePaymentStatus(r.Context(), invoice.PaymentIntent.ID, domain.PaymentStatusSucceeded); err != nil && !errors.Is(err, store.ErrPaymentNotFound) {
				log.Printf("payment status update failed intent=%s: %v", invoice.PaymentIntent.ID, err)
			}
		}

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid payment intent payload")
			return
		}
		if err := h.storage.UpdatePaymentStatus(r.Context(), intent.ID, domain.PaymentStatusFailed); err != nil && !errors.Is(err, store.ErrPaymentNotFound) {
			log.Printf("payment status update failed intent=%s: %v", intent.ID, err)
		}

	default:
		log.Printf("unhandled stripe event type %s", event.Type)
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// premiumProductID returns the Stripe product backing the premium plan,
// creating it on first use.
func (h *Handler) premiumProductID() (string, error) {
	h.productMu.Lock()
	defer h.productMu.Unlock()
	if h.productID != "" {
		return h.productID, nil
	}
	prod, err := product.New(&stripe.ProductParams{
		Name: stripe.String(premiumProductName),
	})
	if err != nil {
		return "", err
	}
	h.productID = prod.ID
	return h.productID, nil
}

func invoiceClientSecret(invoice *stripe.Invoice) string {
	if invoice == nil || invoice.PaymentIntent == nil {
		return ""
	}
	return invoice.PaymentIntent.ClientSecret
}
