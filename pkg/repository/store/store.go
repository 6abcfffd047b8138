// Package store persists users, CV uploads, analysis results, usage counters
// and payment records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/domain"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrCvUploadNotFound = errors.New("cv upload not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrPaymentNotFound  = errors.New("payment not found")
)

// Storage is the persistence contract the core needs: get-by-id, get-by-user,
// insert and increment-field. No transactions are assumed available.
type Storage interface {
	CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUserStripeInfo(ctx context.Context, userID, customerID, subscriptionID string) error
	UpdateUserBasic(ctx context.Context, userID string) error
	UpdateUserPremium(ctx context.Context, userID string, premiumUntil time.Time) error
	ExtendPremiumByStripeSubscription(ctx context.Context, subscriptionID string, premiumUntil time.Time) error

	CreateCvUpload(ctx context.Context, userID, filename, originalText, jobDescription string) (*domain.CvUpload, error)
	GetCvUpload(ctx context.Context, id string) (*domain.CvUpload, error)
	GetCvUploadsByUser(ctx context.Context, userID string) ([]domain.CvUpload, error)

	CreateAnalysisResult(ctx context.Context, cvUploadID string, analysisType domain.AnalysisType, resultData string) (*domain.AnalysisResult, error)
	GetAnalysisResultsByCv(ctx context.Context, cvUploadID string) ([]domain.AnalysisResult, error)

	CreatePayment(ctx context.Context, userID, stripePaymentID, amount string, planType domain.PlanType) (*domain.Payment, error)
	GetPaymentsByUser(ctx context.Context, userID string) ([]domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, stripePaymentID string, status domain.PaymentStatus) error

	GetOrCreateUsageStats(ctx context.Context, userID string) (*domain.UsageStats, error)
	IncrementUsageStat(ctx context.Context, userID string, field domain.UsageField) error
}

type Config struct {
	DatabasePath   string
	MigrationsPath string
}

// Store is the SQLite-backed Storage implementation.
type Store struct {
	db *sql.DB
}

func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DatabasePath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.MigrationsPath != "" {
		if err := runMigrations(cfg.DatabasePath, cfg.MigrationsPath); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func runMigrations(databasePath, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, "sqlite3://"+databasePath)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

const userColumns = `id, email, password_hash, first_name, last_name,
	stripe_customer_id, stripe_subscription_id, basic_purchased, premium_until,
	created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (*domain.User, error) {
	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?);
	`, user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		// Concurrent registrations race to the same email; the UNIQUE
		// index is the arbiter, not a pre-check.
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?;`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?;`, email))
}

func (s *Store) scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var firstName, lastName, customerID, subscriptionID sql.NullString
	var premiumUntil sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &firstName, &lastName,
		&customerID, &subscriptionID, &u.BasicPurchased, &premiumUntil,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.FirstName = firstName.String
	u.LastName = lastName.String
	u.StripeCustomerID = customerID.String
	u.StripeSubscriptionID = subscriptionID.String
	if premiumUntil.Valid {
		t := premiumUntil.Time
		u.PremiumUntil = &t
	}
	return &u, nil
}

func (s *Store) UpdateUserStripeInfo(ctx context.Context, userID, customerID, subscriptionID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET stripe_customer_id = ?, stripe_subscription_id = ?, updated_at = ?
		WHERE id = ?;
	`, customerID, nullIfEmpty(subscriptionID), time.Now().UTC(), userID)
	return err
}

func (s *Store) UpdateUserBasic(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET basic_purchased = 1, updated_at = ? WHERE id = ?;
	`, time.Now().UTC(), userID)
	return err
}

func (s *Store) UpdateUserPremium(ctx context.Context, userID string, premiumUntil time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET premium_until = ?, updated_at = ? WHERE id = ?;
	`, premiumUntil.UTC(), time.Now().UTC(), userID)
	return err
}

// ExtendPremiumByStripeSubscription resolves the user through the stored
// subscription reference; used by the invoice.payment_succeeded webhook.
func (s *Store) ExtendPremiumByStripeSubscription(ctx context.Context, subscriptionID string, premiumUntil time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET premium_until = ?, updated_at = ?
		WHERE stripe_subscription_id = ?;
	`, premiumUntil.UTC(), time.Now().UTC(), subscriptionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) CreateCvUpload(ctx context.Context, userID, filename, originalText, jobDescription string) (*domain.CvUpload, error) {
	upload := &domain.CvUpload{
		ID:             uuid.NewString(),
		UserID:         userID,
		Filename:       filename,
		OriginalText:   originalText,
		JobDescription: jobDescription,
		UploadedAt:     time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cv_uploads (id, user_id, filename, original_text, job_description, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?);
	`, upload.ID, upload.UserID, upload.Filename, upload.OriginalText, upload.JobDescription, upload.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("insert cv upload: %w", err)
	}
	return upload, nil
}

func (s *Store) GetCvUpload(ctx context.Context, id string) (*domain.CvUpload, error) {
	var u domain.CvUpload
	var jobDescription sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, filename, original_text, job_description, uploaded_at
		FROM cv_uploads WHERE id = ?;
	`, id).Scan(&u.ID, &u.UserID, &u.Filename, &u.OriginalText, &jobDescription, &u.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCvUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan cv upload: %w", err)
	}
	u.JobDescription = jobDescription.String
	return &u, nil
}

func (s *Store) GetCvUploadsByUser(ctx context.Context, userID string) ([]domain.CvUpload, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, filename, original_text, job_description, uploaded_at
		FROM cv_uploads WHERE user_id = ? ORDER BY uploaded_at DESC;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []domain.CvUpload
	for rows.Next() {
		var u domain.CvUpload
		var jobDescription sql.NullString
		if err := rows.Scan(&u.ID, &u.UserID, &u.Filename, &u.OriginalText, &jobDescription, &u.UploadedAt); err != nil {
			return nil, err
		}
		u.JobDescription = jobDescription.String
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

func (s *Store) CreateAnalysisResult(ctx context.Context, cvUploadID string, analysisType domain.AnalysisType, resultData string) (*domain.AnalysisResult, error) {
	result := &domain.AnalysisResult{
		ID:           uuid.NewString(),
		CvUploadID:   cvUploadID,
		AnalysisType: analysisType,
		ResultData:   resultData,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_results (id, cv_upload_id, analysis_type, result_data, created_at)
		VALUES (?, ?, ?, ?, ?);
	`, result.ID, result.CvUploadID, result.AnalysisType, result.ResultData, result.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert analysis result: %w", err)
	}
	return result, nil
}

func (s *Store) GetAnalysisResultsByCv(ctx context.Context, cvUploadID string) ([]domain.AnalysisResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cv_upload_id, analysis_type, result_data, created_at
		FROM analysis_results WHERE cv_upload_id = ? ORDER BY created_at DESC;
	`, cvUploadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.AnalysisResult
	for rows.Next() {
		var r domain.AnalysisResult
		if err := rows.Scan(&r.ID, &r.CvUploadID, &r.AnalysisType, &r.ResultData, &r.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) CreatePayment(ctx context.Context, userID, stripePaymentID, amount string, planType domain.PlanType) (*domain.Payment, error) {
	payment := &domain.Payment{
		ID:              uuid.NewString(),
		UserID:          userID,
		StripePaymentID: stripePaymentID,
		Amount:          amount,
		Currency:        "pln",
		PlanType:        planType,
		Status:          domain.PaymentStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, user_id, stripe_payment_id, amount, currency, plan_type, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`, payment.ID, payment.UserID, payment.StripePaymentID, payment.Amount, payment.Currency,
		payment.PlanType, payment.Status, payment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return payment, nil
}

func (s *Store) GetPaymentsByUser(ctx context.Context, userID string) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, stripe_payment_id, amount, currency, plan_type, status, created_at
		FROM payments WHERE user_id = ? ORDER BY created_at DESC;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.StripePaymentID, &p.Amount, &p.Currency,
			&p.PlanType, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, stripePaymentID string, status domain.PaymentStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payments SET status = ? WHERE stripe_payment_id = ?;
	`, status, stripePaymentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (s *Store) GetOrCreateUsageStats(ctx context.Context, userID string) (*domain.UsageStats, error) {
	// Lazy creation; the INSERT is a no-op when a row already exists.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_stats (id, user_id, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING;
	`, uuid.NewString(), userID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("ensure usage stats: %w", err)
	}

	var stats domain.UsageStats
	err = s.db.QueryRowContext(ctx, `
		SELECT id, user_id, optimized_cvs, ats_checks, cover_letters, recruiter_feedback, last_updated
		FROM usage_stats WHERE user_id = ?;
	`, userID).Scan(&stats.ID, &stats.UserID, &stats.OptimizedCvs, &stats.AtsChecks,
		&stats.CoverLetters, &stats.RecruiterFeedback, &stats.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("scan usage stats: %w", err)
	}
	return &stats, nil
}

// IncrementUsageStat bumps one counter with a single atomic UPDATE; no
// read-modify-write, so concurrent increments cannot lose updates.
func (s *Store) IncrementUsageStat(ctx context.Context, userID string, field domain.UsageField) error {
	column, ok := usageColumns[field]
	if !ok {
		return fmt.Errorf("unknown usage field %q", field)
	}
	if _, err := s.GetOrCreateUsageStats(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE usage_stats SET `+column+` = `+column+` + 1, last_updated = ?
		WHERE user_id = ?;
	`, time.Now().UTC(), userID)
	return err
}

// usageColumns whitelists counter columns; field names never reach SQL
// unchecked.
var usageColumns = map[domain.UsageField]string{
	domain.UsageOptimizedCvs:      "optimized_cvs",
	domain.UsageAtsChecks:         "ats_checks",
	domain.UsageCoverLetters:      "cover_letters",
	domain.UsageRecruiterFeedback: "recruiter_feedback",
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
