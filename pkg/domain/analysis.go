package domain

import "time"

// AnalysisType is a closed enumeration. Adding a type means adding one Spec
// entry below; the gate, dispatcher and usage accounting all read from it.
type AnalysisType string

const (
	AnalysisOptimizeCv         AnalysisType = "optimize_cv"
	AnalysisAtsCheck           AnalysisType = "ats_optimization_check"
	AnalysisGrammarCheck       AnalysisType = "grammar_check"
	AnalysisRecruiterFeedback  AnalysisType = "recruiter_feedback"
	AnalysisCoverLetter        AnalysisType = "cover_letter"
	AnalysisInterviewQuestions AnalysisType = "interview_questions"
)

// Tier is the minimum plan an analysis type requires.
type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// UsageField names a UsageStats counter. Empty means the type is not counted.
type UsageField string

const (
	UsageOptimizedCvs      UsageField = "optimized_cvs"
	UsageAtsChecks         UsageField = "ats_checks"
	UsageCoverLetters      UsageField = "cover_letters"
	UsageRecruiterFeedback UsageField = "recruiter_feedback"
)

// AnalysisSpec carries everything that varies per analysis type.
type AnalysisSpec struct {
	Type          AnalysisType
	Tier          Tier
	TaskKey       string     // selects the task-specific system prompt addendum
	UsageField    UsageField // empty: no counter (interview questions, per current behavior)
	MaxRespTokens int
}

var analysisSpecs = map[AnalysisType]AnalysisSpec{
	AnalysisOptimizeCv: {
		Type: AnalysisOptimizeCv, Tier: TierBasic, TaskKey: "cv_optimization",
		UsageField: UsageOptimizedCvs, MaxRespTokens: 4000,
	},
	AnalysisAtsCheck: {
		Type: AnalysisAtsCheck, Tier: TierBasic, TaskKey: "cv_optimization",
		UsageField: UsageAtsChecks, MaxRespTokens: 1800,
	},
	AnalysisGrammarCheck: {
		Type: AnalysisGrammarCheck, Tier: TierBasic, TaskKey: "grammar_check",
		MaxRespTokens: 2500,
	},
	AnalysisRecruiterFeedback: {
		Type: AnalysisRecruiterFeedback, Tier: TierPremium, TaskKey: "recruiter_feedback",
		UsageField: UsageRecruiterFeedback, MaxRespTokens: 3000,
	},
	AnalysisCoverLetter: {
		Type: AnalysisCoverLetter, Tier: TierPremium, TaskKey: "cover_letter",
		UsageField: UsageCoverLetters, MaxRespTokens: 2000,
	},
	AnalysisInterviewQuestions: {
		Type: AnalysisInterviewQuestions, Tier: TierPremium, TaskKey: "interview_prep",
		MaxRespTokens: 2000,
	},
}

// SpecFor returns the spec for a type. ok is false for unknown types, which
// callers must reject as a bad request.
func SpecFor(t AnalysisType) (AnalysisSpec, bool) {
	spec, ok := analysisSpecs[t]
	return spec, ok
}

// AnalysisTypes lists all known types.
func AnalysisTypes() []AnalysisType {
	types := make([]AnalysisType, 0, len(analysisSpecs))
	for t := range analysisSpecs {
		types = append(types, t)
	}
	return types
}

// IsAllowed is the entitlement gate: a pure predicate over plan flags and the
// requested type. Unknown types are denied; callers surface denial as a
// permission error, never as a silent downgrade.
func IsAllowed(user *User, t AnalysisType, now time.Time) bool {
	spec, ok := analysisSpecs[t]
	if !ok {
		return false
	}
	switch spec.Tier {
	case TierFree:
		return true
	case TierBasic:
		return user.HasBasic(now)
	case TierPremium:
		return user.HasPremium(now)
	default:
		return false
	}
}
