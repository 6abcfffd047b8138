package domain

import (
	"time"
)

type PlanType string

const (
	PlanTypeBasic   PlanType = "basic"
	PlanTypePremium PlanType = "premium"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type User struct {
	ID                   string     `json:"id" db:"id"`
	Email                string     `json:"email" db:"email"`
	PasswordHash         string     `json:"-" db:"password_hash"`
	FirstName            string     `json:"first_name,omitempty" db:"first_name"`
	LastName             string     `json:"last_name,omitempty" db:"last_name"`
	StripeCustomerID     string     `json:"-" db:"stripe_customer_id"`
	StripeSubscriptionID string     `json:"-" db:"stripe_subscription_id"`
	BasicPurchased       bool       `json:"basic_purchased" db:"basic_purchased"`
	PremiumUntil         *time.Time `json:"premium_until,omitempty" db:"premium_until"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// HasBasic reports whether basic-tier features are unlocked. Premium is a
// superset of basic, so an active subscription counts too.
func (u *User) HasBasic(now time.Time) bool {
	return u.BasicPurchased || u.HasPremium(now)
}

// HasPremium is derived from the subscription expiry, never stored directly.
func (u *User) HasPremium(now time.Time) bool {
	return u.PremiumUntil != nil && now.Before(*u.PremiumUntil)
}

// CvUpload is immutable once created. Re-analysis never mutates it; a
// generated CV is stored as a fresh upload.
type CvUpload struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	Filename       string    `json:"filename" db:"filename"`
	OriginalText   string    `json:"original_text" db:"original_text"`
	JobDescription string    `json:"job_description,omitempty" db:"job_description"`
	UploadedAt     time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// AnalysisResult rows are append-only; a re-run creates a new row and history
// is preserved.
type AnalysisResult struct {
	ID           string       `json:"id" db:"id"`
	CvUploadID   string       `json:"cv_upload_id" db:"cv_upload_id"`
	AnalysisType AnalysisType `json:"analysis_type" db:"analysis_type"`
	ResultData   string       `json:"result_data" db:"result_data"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

type UsageStats struct {
	ID                string    `json:"id" db:"id"`
	UserID            string    `json:"user_id" db:"user_id"`
	OptimizedCvs      int       `json:"optimized_cvs" db:"optimized_cvs"`
	AtsChecks         int       `json:"ats_checks" db:"ats_checks"`
	CoverLetters      int       `json:"cover_letters" db:"cover_letters"`
	RecruiterFeedback int       `json:"recruiter_feedback" db:"recruiter_feedback"`
	LastUpdated       time.Time `json:"last_updated" db:"last_updated"`
}

type Payment struct {
	ID              string        `json:"id" db:"id"`
	UserID          string        `json:"user_id" db:"user_id"`
	StripePaymentID string        `json:"stripe_payment_id" db:"stripe_payment_id"`
	Amount          string        `json:"amount" db:"amount"`
	Currency        string        `json:"currency" db:"currency"`
	PlanType        PlanType      `json:"plan_type" db:"plan_type"`
	Status          PaymentStatus `json:"status" db:"status"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}
