package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/domain"
	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/repository/store"
	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/service/prompt"
)

var fixedNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

type modelCall struct {
	Prompt    prompt.Prompt
	MaxTokens int
	Model     string
}

type fakeCompleter struct {
	calls    []modelCall
	response string
	err      error
	// errs fails individual calls in order; a nil entry succeeds. When
	// exhausted the completer falls back to err/response behaviour.
	errs []error
}

func (f *fakeCompleter) Complete(ctx context.Context, p prompt.Prompt, maxTokens int, model string) (string, error) {
	f.calls = append(f.calls, modelCall{Prompt: p, MaxTokens: maxTokens, Model: model})
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	} else if f.err != nil {
		return "", f.err
	}
	if f.response != "" {
		return f.response, nil
	}
	return "model output", nil
}

type fakeStorage struct {
	store.Storage

	users   map[string]*domain.User
	uploads map[string]*domain.CvUpload

	results      []*domain.AnalysisResult
	createdCvs   []*domain.CvUpload
	increments   []domain.UsageField
	incrementErr error

	// order records persistence side effects for ordering assertions.
	order []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		users:   make(map[string]*domain.User),
		uploads: make(map[string]*domain.CvUpload),
	}
}

func (f *fakeStorage) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStorage) GetCvUpload(ctx context.Context, id string) (*domain.CvUpload, error) {
	up, ok := f.uploads[id]
	if !ok {
		return nil, store.ErrCvUploadNotFound
	}
	return up, nil
}

func (f *fakeStorage) CreateAnalysisResult(ctx context.Context, cvUploadID string, analysisType domain.AnalysisType, resultData string) (*domain.AnalysisResult, error) {
	result := &domain.AnalysisResult{
		ID:           "result-1",
		CvUploadID:   cvUploadID,
		AnalysisType: analysisType,
		ResultData:   resultData,
		CreatedAt:    fixedNow,
	}
	f.results = append(f.results, result)
	f.order = append(f.order, "result")
	return result, nil
}

func (f *fakeStorage) CreateCvUpload(ctx context.Context, userID, filename, originalText, jobDescription string) (*domain.CvUpload, error) {
	up := &domain.CvUpload{
		ID:             "generated-1",
		UserID:         userID,
		Filename:       filename,
		OriginalText:   originalText,
		JobDescription: jobDescription,
		UploadedAt:     fixedNow,
	}
	f.createdCvs = append(f.createdCvs, up)
	f.order = append(f.order, "upload")
	return up, nil
}

func (f *fakeStorage) IncrementUsageStat(ctx context.Context, userID string, field domain.UsageField) error {
	if f.incrementErr != nil {
		return f.incrementErr
	}
	f.increments = append(f.increments, field)
	f.order = append(f.order, "increment")
	return nil
}

func newTestService(storage *fakeStorage, model *fakeCompleter) *Service {
	svc := NewService(storage, model)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func seedUserAndCv(storage *fakeStorage, premium bool) {
	u := &domain.User{ID: "user-1", Email: "a@b.pl", BasicPurchased: true}
	if premium {
		until := fixedNow.AddDate(0, 1, 0)
		u.PremiumUntil = &until
	}
	storage.users["user-1"] = u
	storage.uploads["cv-1"] = &domain.CvUpload{
		ID: "cv-1", UserID: "user-1",
		OriginalText:   "Doświadczony programista Go.",
		JobDescription: "Stored job description",
	}
}

func TestAnalyzePersistsResultAndCountsUsage(t *testing.T) {
	storage := newFakeStorage()
	model := &fakeCompleter{response: "optimized cv text"}
	seedUserAndCv(storage, false)
	svc := newTestService(storage, model)

	result, err := svc.Analyze(context.Background(), "user-1", "cv-1", domain.AnalysisOptimizeCv, "Offer text", "pl")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.ResultData != "optimized cv text" {
		t.Errorf("result data = %q", result.ResultData)
	}
	if result.AnalysisType != domain.AnalysisOptimizeCv {
		t.Errorf("analysis type = %s", result.AnalysisType)
	}
	if len(storage.increments) != 1 || storage.increments[0] != domain.UsageOptimizedCvs {
		t.Errorf("increments = %v, want one optimized_cvs", storage.increments)
	}
	if len(storage.order) != 2 || storage.order[0] != "result" || storage.order[1] != "increment" {
		t.Errorf("persistence order = %v, want result before increment", storage.order)
	}
}

func TestAnalyzeGrammarCheckIsNotCounted(t *testing.T) {
	storage := newFakeStorage()
	model := &fakeCompleter{}
	seedUserAndCv(storage, false)
	svc := newTestService(storage, model)

	if _, err := svc.Analyze(context.Background(), "user-1", "cv-1", domain.AnalysisGrammarCheck, "", "pl"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(storage.increments) != 0 {
		t.Errorf("grammar check incremented usage: %v", storage.increments)
	}
	if len(storage.results) != 1 {
		t.Errorf("grammar check did not persist a result")
	}
}

func TestAnalyzeForbiddenWithoutPlan(t *testing.T) {
	storage := newFakeStorage()
	model := &fakeCompleter{}
	storage.users["user-1"] = &domain.User{ID: "user-1"}
	storage.uploads["cv-1"] = &domain.CvUpload{ID: "cv-1", UserID: "user-1", OriginalText: "cv"}
	svc := newTestService(storage, model)

	_, err := svc.Analyze(context.Background(), "user-1", "cv-1", domain.AnalysisOptimizeCv, "", "pl")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if len(model.calls) != 0 {
		t.Errorf("model was called for a forbidden analysis")
	}
	if len(storage.results) != 0 {
		t.Errorf("forbidden analysis persisted a result")
	}
}

func TestAnalyzeBasicPlanDeniedPremiumAnalysis(t *testing.T) {
	storage := newFakeStorage()
	model := &fakeCompleter{}
	seedUserAndCv(storage, false)
	svc := newTestService(storage, model)

	_, err := svc.Analyze(context.Background(), "user-1", "cv-1", domain.AnalysisRecruiterFeedback, "", "pl")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestAnalyzeUnknownType(t *testing.T) {
	storage := newFakeStorage()
	model := &fakeCompleter{}
	seedUserAndCv(storage, true)
	svc := newTestService(storage, model)

	_, err := svc.Analyze(context.Background(), "user-1", "cv-1", domain.AnalysisType("summarize"), "", "pl")
	if !errors.Is(err, ErrUnknownAnalysisType) {
		t.Fatalf("err = %v, want ErrUnknownAnalysisType", err)
	}
}

func TestAnalyzeForeignCvLooksMissing(t *testing.T) {
	storage := newFakeStorage()
	model := &fakeCompleter{}
	seedUserAndCv(storage, true)
	storage.uploads["cv-2"] = &domain.CvUpload{ID: "cv-2", UserID: "someone-else", OriginalText: "cv"}
	svc := newTestService(storage, model)

	_, err := svc.Analyze(context.Background(), "user-1", "cv-2", domain.AnalysisOptimizeCv, "", "pl")
	if !errors.Is(err, store.ErrCvUploadNotFound) {
		t.Fatalf("err = %v, want ErrCvUploadNotFound for a foreign upload", err)
	}
	if len(model.calls) != 0 {
		t.Errorf("model was called for a foreign upload")
	}
}

func TestAnalyzeMissingUser(t *testing.T) {
	storage := newFakeStorage()
	svc := newTestService(storage, &fakeCompleter{})

	_, err := svc.Analyze(context.Background(), "ghost", "cv-1", domain.AnalysisOptimizeCv, "", "pl")
	if !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestAnalyzeFallsBackToStoredJobDescription(t *testing.T) {
	storage := newFakeStorage()
	model := &fakeCompleter{}
	seedUserAndCv(storage, false)
	svc := newTestService(storage, model)

	if _, err := svc.Analyze(context.Background(), "user-1", "cv-1", domain.AnalysisOptimizeCv, "", "pl"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(model.calls) != 1 {
		t.Fatalf("expected one model call, got %d", len(model.calls))
	}
	if !strings.Contains(model.calls[0].Prompt.User, "Stored job description") {
		t.Errorf("prompt does not carry the stored job description")
	}
}

func TestAnalyzeRequestJobDescriptionWins(t *testing.T) {
	storage := newFakeStorage()
	model := &fakeCompleter{}
	seedUserAndCv(storage, false)
	svc := newTestService(storage, model)

	if _, err := svc.Analyze(context.Background(), "user-1", "cv-1", domain.AnalysisOptimizeCv, "Request JD", "pl"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !strings.Contains(model.calls[0].Prompt.User, "Request JD") {
		t.Errorf("request job description was not used")
	}
}

func TestAnalyzeSummarizesLongJobDescription(t *testing.T) {
	storage := newFakeStorage()
	model := &fakeCompleter{response: "summary text"}
	seedUserAndCv(storage, false)
	svc := newTestService(storage, model)

	longJD := strings.Repeat("wymagania stanowiska ", 300)
	if _, err := svc.Analyze(context.Background(), "user-1", "cv-1", domain.AnalysisOptimizeCv, longJD, "pl"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(model.calls) != 2 {
		t.Fatalf("expected summary call plus analysis call, got %d", len(model.calls))
	}
	if model.calls[0].MaxTokens != 1500 {
		t.Errorf("summary call max tokens = %d, want 1500", model.calls[0].MaxTokens)
	}
	if !strings.Contains(model.calls[1].Prompt.User, "summary text") {
		t.Errorf("analysis prompt does not embed the summary")
	}
}

func TestAnalyzeModelErrorPropagates(t *testing.T) {
	storage := newFakeStorage()
	model := &fakeCompleter{err: context.Canceled}
	seedUserAndCv(storage, false)
	svc := newTestService(storage, model)

	_, err := svc.Analyze(context.Background(), "user-1", "cv-1", domain.AnalysisOptimizeCv, "jd", "pl")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(storage.results) != 0 {
		t.Errorf("failed analysis persisted a result")
	}
}

func TestAnalyzeUpstreamFailurePersistsFallbackAdvice(t *testing.T) {
	storage := newFakeStorage()
	model := &fakeCompleter{err: ErrExternalService}
	seedUserAndCv(storage, false)
	svc := newTestService(storage, model)

	result, err := svc.Analyze(context.Background(), "user-1", "cv-1", domain.AnalysisOptimizeCv, "jd", "pl")
	if err != nil {
		t.Fatalf("Analyze failed on upstream error: %v", err)
	}
	if want := prompt.FallbackAdvice("pl"); result.ResultData != want {
		t.Errorf("result data = %q, want the advisory text", result.ResultData)
	}
	if len(storage.results) != 1 {
		t.Errorf("advisory result was not persisted")
	}
}

func TestAnalyzeSummaryFailureClipsJobDescription(t *testing.T) {
	storage := newFakeStorage()
	// First call (the summary) fails, the analysis call succeeds.
	model := &fakeCompleter{errs: []error{ErrExternalService, nil}, response: "analysis output"}
	seedUserAndCv(storage, false)
	svc := newTestService(storage, model)

	longJD := strings.Repeat("wymagania stanowiska ", 300)
	result, err := svc.Analyze(context.Background(), "user-1", "cv-1", domain.AnalysisOptimizeCv, longJD, "pl")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(model.calls) != 2 {
		t.Fatalf("expected summary call plus analysis call, got %d", len(model.calls))
	}
	user := model.calls[1].Prompt.User
	if !strings.Contains(user, "wymagania stanowiska") {
		t.Errorf("analysis prompt lost the original job description")
	}
	if strings.Contains(user, "nie możemy połączyć") {
		t.Errorf("advisory text leaked into the analysis prompt as job description")
	}
	if result.ResultData != "analysis output" {
		t.Errorf("result data = %q", result.ResultData)
	}
}

func TestAnalyzeIncrementFailureDoesNotFail(t *testing.T) {
	storage := newFakeStorage()
	storage.incrementErr = errors.New("db locked")
	model := &fakeCompleter{}
	seedUserAndCv(storage, false)
	svc := newTestService(storage, model)

	result, err := svc.Analyze(context.Background(), "user-1", "cv-1", domain.AnalysisOptimizeCv, "jd", "pl")
	if err != nil {
		t.Fatalf("Analyze failed on increment error: %v", err)
	}
	if result == nil || len(storage.results) != 1 {
		t.Errorf("result was not persisted despite increment failure")
	}
}

func TestGenerateNewCvUpstreamFailureReturnsFallbackAdvice(t *testing.T) {
	storage := newFakeStorage()
	model := &fakeCompleter{err: ErrExternalService}
	seedUserAndCv(storage, true)
	svc := newTestService(storage, model)

	info := prompt.PersonalInfo{Name: "Jan Kowalski"}
	upload, content, err := svc.GenerateNewCv(context.Background(), "user-1", info, "", "", "", "", "pl")
	if err != nil {
		t.Fatalf("GenerateNewCv failed on upstream error: %v", err)
	}
	if want := prompt.FallbackAdvice("pl"); content != want || upload.OriginalText != want {
		t.Errorf("generated content = %q, want the advisory text", content)
	}
}

func TestGenerateNewCvRequiresName(t *testing.T) {
	storage := newFakeStorage()
	seedUserAndCv(storage, true)
	svc := newTestService(storage, &fakeCompleter{})

	_, _, err := svc.GenerateNewCv(context.Background(), "user-1", prompt.PersonalInfo{Name: "  "}, "", "", "", "", "pl")
	if !errors.Is(err, ErrNameRequired) {
		t.Fatalf("err = %v, want ErrNameRequired", err)
	}
}

func TestGenerateNewCvStoresUploadAndCounts(t *testing.T) {
	storage := newFakeStorage()
	model := &fakeCompleter{response: "generated cv"}
	seedUserAndCv(storage, true)
	svc := newTestService(storage, model)

	info := prompt.PersonalInfo{Name: "Jan Kowalski", Profession: "Programista"}
	upload, content, err := svc.GenerateNewCv(context.Background(), "user-1", info, "exp", "edu", "skills", "jd", "pl")
	if err != nil {
		t.Fatalf("GenerateNewCv failed: %v", err)
	}
	if content != "generated cv" {
		t.Errorf("content = %q", content)
	}
	if upload.OriginalText != "generated cv" {
		t.Errorf("upload text = %q", upload.OriginalText)
	}
	if want := "Wygenerowane_CV_Jan_Kowalski_"; !strings.HasPrefix(upload.Filename, want) {
		t.Errorf("filename = %q, want prefix %q", upload.Filename, want)
	}
	if !strings.HasSuffix(upload.Filename, ".txt") {
		t.Errorf("filename = %q, want .txt suffix", upload.Filename)
	}
	if len(model.calls) != 1 || model.calls[0].Model != PaidModel {
		t.Errorf("generation did not use the paid model variant")
	}
	if len(storage.increments) != 1 || storage.increments[0] != domain.UsageOptimizedCvs {
		t.Errorf("increments = %v, want one optimized_cvs", storage.increments)
	}
}
