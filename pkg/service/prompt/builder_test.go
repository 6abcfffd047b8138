package prompt

import (
	"strings"
	"testing"

	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/domain"
)

func specFor(t *testing.T, at domain.AnalysisType) domain.AnalysisSpec {
	t.Helper()
	spec, ok := domain.SpecFor(at)
	if !ok {
		t.Fatalf("no spec for %s", at)
	}
	return spec
}

func TestBuildEmbedsCvAndJobDescription(t *testing.T) {
	p := Build(specFor(t, domain.AnalysisOptimizeCv), "CV BODY MARKER", "JD BODY MARKER", "pl")

	if !strings.Contains(p.User, "CV BODY MARKER") {
		t.Errorf("user prompt is missing the CV text")
	}
	if !strings.Contains(p.User, "JD BODY MARKER") {
		t.Errorf("user prompt is missing the job description")
	}
	if p.System == "" {
		t.Errorf("system prompt is empty")
	}
}

func TestBuildSystemPromptCarriesGuards(t *testing.T) {
	for _, at := range domain.AnalysisTypes() {
		p := Build(specFor(t, at), "cv", "jd", "pl")
		if !strings.Contains(p.System, "ABSOLUTNY ZAKAZ FAŁSZOWANIA DANYCH") {
			t.Errorf("%s: system prompt is missing the anti-fabrication clause", at)
		}
	}
}

func TestBuildLanguageSelection(t *testing.T) {
	spec := specFor(t, domain.AnalysisGrammarCheck)

	pl := Build(spec, "cv", "", "pl")
	if !strings.Contains(pl.System, "ZAWSZE odpowiadaj w języku polskim") {
		t.Errorf("Polish system prompt missing language contract")
	}

	en := Build(spec, "cv", "", "en")
	if !strings.Contains(en.System, "ALWAYS respond in English") {
		t.Errorf("English system prompt missing language contract")
	}

	// Unsupported codes fall back to Polish.
	unknown := Build(spec, "cv", "", "fr")
	if !strings.Contains(unknown.System, "ZAWSZE odpowiadaj w języku polskim") {
		t.Errorf("unknown language did not fall back to Polish")
	}
}

func TestBuildFitsOversizedCv(t *testing.T) {
	hugeCv := strings.Repeat("doświadczenie zawodowe ", 20000)
	spec := specFor(t, domain.AnalysisOptimizeCv)
	p := Build(spec, hugeCv, "jd", "pl")

	used := EstimateTokens(p.User)
	budget := contextLimit - EstimateTokens(p.System) - spec.MaxRespTokens - safetyReserve
	if used > budget {
		t.Errorf("user prompt uses %d tokens, budget is %d", used, budget)
	}
}

func TestBuildCondensesCvBeforeEmbedding(t *testing.T) {
	head := strings.Repeat("H", 7500)
	tail := strings.Repeat("T", 7500)
	cv := head + strings.Repeat("M", 5000) + tail

	p := Build(specFor(t, domain.AnalysisOptimizeCv), cv, "jd", "pl")
	if !strings.Contains(p.User, "[...CZĘŚĆ ŚRODKOWA POMINIĘTA...]") {
		t.Errorf("oversized CV was not condensed before embedding")
	}
	if strings.Contains(p.User, "MMM") {
		t.Errorf("middle of oversized CV survived condensing")
	}
}

func TestBuildNewCvEmbedsAllSections(t *testing.T) {
	info := PersonalInfo{
		Name: "Jan Kowalski", Email: "jan@example.com",
		Phone: "123456789", Location: "Warszawa", Profession: "Programista",
	}
	p := BuildNewCv(info, "EXP MARKER", "EDU MARKER", "SKILL MARKER", "JD MARKER", "pl")

	for _, want := range []string{"Jan Kowalski", "jan@example.com", "EXP MARKER", "EDU MARKER", "SKILL MARKER", "JD MARKER"} {
		if !strings.Contains(p.User, want) {
			t.Errorf("new CV prompt missing %q", want)
		}
	}
}

func TestBuildJobSummaryClipsInput(t *testing.T) {
	p := BuildJobSummary(strings.Repeat("x", 10000))
	if strings.Contains(p.User, strings.Repeat("x", 4001)) {
		t.Errorf("job text embedded beyond the clip limit")
	}
	if !strings.Contains(p.User, "KLUCZOWE SŁOWA") {
		t.Errorf("summary prompt missing keyword section instruction")
	}
}
