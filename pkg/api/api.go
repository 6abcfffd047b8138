package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	sessiontoken "github.com/msulikowski96-cmd/cv2ai-opty/internal"
	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/domain"
	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/repository/store"
	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/service/analysis"
	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/service/extract"
	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/service/prompt"
)

const (
	maxUploadBytes = 10 << 20

	// The upload response carries a preview, not the full extracted text;
	// analyses read the stored text.
	uploadPreviewBytes = 500
)

// UploadCvResponse mirrors the stored upload minus the full text body.
type UploadCvResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Filename       string    `json:"filename"`
	JobDescription string    `json:"job_description,omitempty"`
	UploadedAt     time.Time `json:"uploaded_at"`
	TextPreview    string    `json:"text_preview"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

type Handler struct {
	storage       store.Storage
	analysis      *analysis.Service
	signer        *sessiontoken.Signer
	webhookSecret string

	productMu sync.Mutex
	productID string

	analyzeLimiter RateLimiter
	uploadLimiter  RateLimiter
	authLimiter    RateLimiter
}

func NewHandler(storage store.Storage, analysisSvc *analysis.Service, signer *sessiontoken.Signer, stripeWebhookSecret string) *Handler {
	return &Handler{
		storage:        storage,
		analysis:       analysisSvc,
		signer:         signer,
		webhookSecret:  stripeWebhookSecret,
		analyzeLimiter: newFixedWindowLimiter(10, 15*time.Minute),
		uploadLimiter:  newFixedWindowLimiter(5, 5*time.Minute),
		authLimiter:    newFixedWindowLimiter(20, 15*time.Minute),
	}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints
		r.Post("/register", rateLimit(h.authLimiter, h.HandleRegister))
		r.Post("/login", rateLimit(h.authLimiter, h.HandleLogin))

		// Stripe webhook is signed, not bearer-authenticated.
		r.Post("/stripe-webhook", h.HandleStripeWebhook)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Get("/me", h.HandleMe)
			r.Post("/upload-cv", rateLimit(h.uploadLimiter, h.HandleUploadCv))
			r.Post("/analyze", rateLimit(h.analyzeLimiter, h.HandleAnalyze))
			r.Post("/generate-new-cv", rateLimit(h.analyzeLimiter, h.HandleGenerateNewCv))
			r.Get("/cv-uploads", h.HandleListCvUploads)
			r.Get("/analysis-results/{cvUploadID}", h.HandleAnalysisResults)
			r.Get("/usage-stats", h.HandleUsageStats)

			r.Post("/create-payment-intent", h.HandleCreatePaymentIntent)
			r.Post("/create-subscription", h.HandleCreateSubscription)
		})
	})

	return r
}

type contextKey string

const userIDKey contextKey = "userID"

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondWithError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}
		userID, err := h.signer.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		respondWithError(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	if len(req.Password) < 8 {
		respondWithError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := h.storage.CreateUser(r.Context(), req.Email, string(hash), req.FirstName, req.LastName)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmailTaken):
			respondWithError(w, http.StatusConflict, "An account with this email already exists")
		default:
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	token, err := h.signer.Issue(user.ID, user.Email)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusCreated, AuthResponse{User: user, Token: token})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.storage.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		// Same response for unknown email and wrong password.
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.signer.Issue(user.ID, user.Email)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.storage.GetUser(r.Context(), userIDFrom(r))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			respondWithError(w, http.StatusNotFound, "User not found")
		default:
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleUploadCv(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondWithError(w, http.StatusBadRequest, "File too large or malformed upload")
		return
	}

	file, header, err := r.FormFile("cv_file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "A cv_file upload is required")
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Could not read uploaded file")
		return
	}

	text, err := extract.ProcessCvFile(fileBytes, header.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			respondWithError(w, http.StatusBadRequest, "Unsupported file format, upload a PDF, DOCX or TXT file")
		case errors.Is(err, extract.ErrNotCv):
			respondWithError(w, http.StatusBadRequest, "The uploaded file does not look like a CV")
		default:
			respondWithError(w, http.StatusBadRequest, "Could not extract text from the uploaded file")
		}
		return
	}

	jobDescription := r.FormValue("job_description")
	upload, err := h.storage.CreateCvUpload(r.Context(), userIDFrom(r), header.Filename, text, jobDescription)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusCreated, UploadCvResponse{
		ID:             upload.ID,
		UserID:         upload.UserID,
		Filename:       upload.Filename,
		JobDescription: upload.JobDescription,
		UploadedAt:     upload.UploadedAt,
		TextPreview:    prompt.Clip(text, uploadPreviewBytes),
	})
}

type AnalyzeRequest struct {
	CvUploadID     string `json:"cv_upload_id"`
	AnalysisType   string `json:"analysis_type"`
	JobDescription string `json:"job_description"`
	Language       string `json:"language"`
}

func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CvUploadID == "" {
		respondWithError(w, http.StatusBadRequest, "cv_upload_id is required")
		return
	}

	result, err := h.analysis.Analyze(r.Context(), userIDFrom(r),
		req.CvUploadID, domain.AnalysisType(req.AnalysisType), req.JobDescription, req.Language)
	if err != nil {
		h.respondAnalysisError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

type GenerateNewCvRequest struct {
	PersonalInfo   prompt.PersonalInfo `json:"personal_info"`
	Experience     string              `json:"experience"`
	Education      string              `json:"education"`
	Skills         string              `json:"skills"`
	JobDescription string              `json:"job_description"`
	Language       string              `json:"language"`
}

type GenerateNewCvResponse struct {
	CvUpload *domain.CvUpload `json:"cv_upload"`
	Content  string           `json:"content"`
}

func (h *Handler) HandleGenerateNewCv(w http.ResponseWriter, r *http.Request) {
	var req GenerateNewCvRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	upload, content, err := h.analysis.GenerateNewCv(r.Context(), userIDFrom(r),
		req.PersonalInfo, req.Experience, req.Education, req.Skills, req.JobDescription, req.Language)
	if err != nil {
		h.respondAnalysisError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, GenerateNewCvResponse{CvUpload: upload, Content: content})
}

func (h *Handler) respondAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analysis.ErrForbidden):
		respondWithError(w, http.StatusForbidden, "This analysis requires a paid plan, upgrade to continue")
	case errors.Is(err, analysis.ErrUnknownAnalysisType):
		respondWithError(w, http.StatusBadRequest, "Unknown analysis type")
	case errors.Is(err, analysis.ErrNameRequired):
		respondWithError(w, http.StatusBadRequest, "personal_info.name is required")
	case errors.Is(err, store.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, store.ErrCvUploadNotFound):
		respondWithError(w, http.StatusNotFound, "CV upload not found")
	case errors.Is(err, context.Canceled):
		// Client went away, nothing useful to write.
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) HandleListCvUploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.storage.GetCvUploadsByUser(r.Context(), userIDFrom(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, uploads)
}

func (h *Handler) HandleAnalysisResults(w http.ResponseWriter, r *http.Request) {
	cvUploadID := chi.URLParam(r, "cvUploadID")

	upload, err := h.storage.GetCvUpload(r.Context(), cvUploadID)
	switch {
	case errors.Is(err, store.ErrCvUploadNotFound):
		respondWithError(w, http.StatusNotFound, "CV upload not found")
		return
	case err != nil:
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	case upload.UserID != userIDFrom(r):
		// Foreign uploads are indistinguishable from missing ones.
		respondWithError(w, http.StatusNotFound, "CV upload not found")
		return
	}

	results, err := h.storage.GetAnalysisResultsByCv(r.Context(), cvUploadID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, results)
}

func (h *Handler) HandleUsageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.storage.GetOrCreateUsageStats(r.Context(), userIDFrom(r))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{
		Error: message,
	})
}
