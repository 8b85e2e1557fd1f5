package models

// AnalysisStatus describes the outcome of classifying one failure.
type AnalysisStatus string

const (
	StatusSuccess AnalysisStatus = "SUCCESS"
	StatusFailure AnalysisStatus = "FAILURE"
	StatusPartial AnalysisStatus = "PARTIAL"
	StatusCached  AnalysisStatus = "CACHED"
	StatusError   AnalysisStatus = "ERROR"
)

// Source identifies which pipeline stage produced an AnalysisResult.
type Source string

const (
	SourcePatternMatch Source = "pattern_match"
	SourceLLMHaiku     Source = "llm_haiku"
	SourceLLMSonnet    Source = "llm_sonnet"
	SourceCache        Source = "cache"
	SourceFallback     Source = "fallback"
)

// BlockingConfidence is the confidence at or above which a classification
// is considered blocking rather than a warning.
const BlockingConfidence = 6

// AnalysisResult is the classification output for one Failure. It is
// created once per analysis pass and not mutated afterwards; the validator
// wraps it in a ValidationResult rather than editing it in place.
type AnalysisResult struct {
	FailureID string         `json:"failure_id"`
	Status    AnalysisStatus `json:"status"`

	// PrimaryError is the human-readable root cause. Always non-empty for
	// terminal results.
	PrimaryError string `json:"primary_error"`

	// ErrorType is a hierarchical category tag such as "maven_test".
	ErrorType string `json:"error_type"`

	// Confidence is on the internal 1-10 integer scale.
	Confidence int `json:"confidence"`

	// Blocking is derived: Confidence >= BlockingConfidence.
	Blocking bool `json:"blocking"`

	// SuggestedActions are ordered fix steps, deduplicated preserving
	// first-seen order.
	SuggestedActions []string `json:"suggested_actions"`

	// VerificationSteps are ordered checks to confirm the fix, deduplicated.
	VerificationSteps []string `json:"verification_steps,omitempty"`

	// GitHubCommands are follow-up gh CLI invocations for investigation.
	GitHubCommands []string `json:"github_commands,omitempty"`

	// EstimatedFixTime is an informational human estimate, e.g. "5-10 minutes".
	EstimatedFixTime string `json:"estimated_fix_time,omitempty"`

	// EstimatedCost is the informational USD cost of producing this result.
	EstimatedCost float64 `json:"estimated_cost"`

	Source Source `json:"source"`

	// Escalated is set when a low-confidence result was re-run once on a
	// stronger model tier.
	Escalated bool `json:"escalated,omitempty"`
}

// ClampConfidence bounds a confidence value to the internal 1-10 scale.
func ClampConfidence(c int) int {
	if c < 1 {
		return 1
	}
	if c > 10 {
		return 10
	}
	return c
}

// DedupeOrdered removes duplicate strings while preserving first-seen order.
// Empty strings are dropped.
func DedupeOrdered(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
