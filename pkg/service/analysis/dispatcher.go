// Package analysis dispatches entitlement-gated CV analyses to the model API
// and persists the outcome with usage accounting.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/domain"
	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/repository/store"
	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/service/prompt"
)

var (
	// ErrForbidden means the user's plan does not cover the requested
	// analysis. Callers surface it as a permission error with an upgrade
	// hint, never as a silent downgrade.
	ErrForbidden = errors.New("plan does not allow this analysis")

	ErrUnknownAnalysisType = errors.New("unknown analysis type")

	// ErrNameRequired guards CV generation from anonymous input.
	ErrNameRequired = errors.New("name is required")
)

// Job descriptions longer than this are summarized by a model call before
// they become prompt context.
const jobSummaryThreshold = 4000

// Default bound on one upstream model call. A hung upstream call must not
// hang the request.
const DefaultCallTimeout = 60 * time.Second

// Completer abstracts the model client for testing. Implementations report
// upstream failures as ErrExternalService and never substitute fallback text.
type Completer interface {
	Complete(ctx context.Context, p prompt.Prompt, maxTokens int, model string) (string, error)
}

// Service orchestrates one analysis request: entitlement check, CV load with
// ownership check, prompt construction, model call, persistence, usage
// accounting. Steps are strictly sequential; there are no partial retries.
type Service struct {
	storage     store.Storage
	model       Completer
	callTimeout time.Duration
	now         func() time.Time
}

func NewService(storage store.Storage, model Completer) *Service {
	return &Service{
		storage:     storage,
		model:       model,
		callTimeout: DefaultCallTimeout,
		now:         time.Now,
	}
}

// Analyze runs one analysis of cvUploadID for userID and returns the
// persisted result row.
func (s *Service) Analyze(ctx context.Context, userID, cvUploadID string, analysisType domain.AnalysisType, jobDescription, language string) (*domain.AnalysisResult, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	spec, ok := domain.SpecFor(analysisType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnalysisType, analysisType)
	}
	if !domain.IsAllowed(user, analysisType, s.now()) {
		return nil, ErrForbidden
	}

	cvUpload, err := s.storage.GetCvUpload(ctx, cvUploadID)
	if err != nil {
		return nil, err
	}
	// A foreign CV is reported exactly like a missing one, so existence of
	// other users' records cannot be probed.
	if cvUpload.UserID != userID {
		return nil, store.ErrCvUploadNotFound
	}

	if jobDescription == "" {
		jobDescription = cvUpload.JobDescription
	}
	jobDescription = s.condenseJobDescription(ctx, jobDescription)

	p := prompt.Build(spec, cvUpload.OriginalText, jobDescription, language)
	text, err := s.complete(ctx, p, spec.MaxRespTokens, "")
	if err != nil {
		// Only the final response may be replaced with advisory text;
		// intermediate calls handle their own failures.
		if !errors.Is(err, ErrExternalService) {
			return nil, err
		}
		log.Printf("model call failed, returning fallback advice: %v", err)
		text = prompt.FallbackAdvice(language)
	}

	// Persistence happens only after a successful model call; a failure
	// between the insert and the counter increment leaves a stored result
	// with a stale counter.
	result, err := s.storage.CreateAnalysisResult(ctx, cvUpload.ID, analysisType, text)
	if err != nil {
		return nil, err
	}
	if spec.UsageField != "" {
		if err := s.storage.IncrementUsageStat(ctx, userID, spec.UsageField); err != nil {
			log.Printf("usage increment failed for user=%s field=%s: %v", userID, spec.UsageField, err)
		}
	}
	return result, nil
}

// GenerateNewCv authors a CV from structured user input, stores the output
// as a fresh CvUpload and counts it as an optimized CV.
func (s *Service) GenerateNewCv(ctx context.Context, userID string, info prompt.PersonalInfo, experience, education, skills, jobDescription, language string) (*domain.CvUpload, string, error) {
	if strings.TrimSpace(info.Name) == "" {
		return nil, "", ErrNameRequired
	}
	if _, err := s.storage.GetUser(ctx, userID); err != nil {
		return nil, "", err
	}

	p := prompt.BuildNewCv(info, experience, education, skills, jobDescription, language)
	text, err := s.complete(ctx, p, 3500, PaidModel)
	if err != nil {
		if !errors.Is(err, ErrExternalService) {
			return nil, "", err
		}
		log.Printf("model call failed, returning fallback advice: %v", err)
		text = prompt.FallbackAdvice(language)
	}

	filename := fmt.Sprintf("Wygenerowane_CV_%s_%d.txt",
		strings.ReplaceAll(strings.TrimSpace(info.Name), " ", "_"), s.now().Unix())
	upload, err := s.storage.CreateCvUpload(ctx, userID, filename, text, jobDescription)
	if err != nil {
		return nil, "", err
	}
	if err := s.storage.IncrementUsageStat(ctx, userID, domain.UsageOptimizedCvs); err != nil {
		log.Printf("usage increment failed for user=%s field=%s: %v", userID, domain.UsageOptimizedCvs, err)
	}
	return upload, text, nil
}

// condenseJobDescription replaces an oversized job description with a model
// summary. On failure the clipped original is used; the analysis itself must
// not fail over context trimming.
func (s *Service) condenseJobDescription(ctx context.Context, jobDescription string) string {
	if len(jobDescription) <= jobSummaryThreshold {
		return jobDescription
	}
	summary, err := s.complete(ctx, prompt.BuildJobSummary(jobDescription), 1500, "")
	if err != nil {
		log.Printf("job description summary failed, clipping instead: %v", err)
		return prompt.Clip(jobDescription, jobSummaryThreshold)
	}
	return summary
}

func (s *Service) complete(ctx context.Context, p prompt.Prompt, maxTokens int, model string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.model.Complete(ctx, p, maxTokens, model)
}
