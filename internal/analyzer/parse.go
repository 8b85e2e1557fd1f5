package analyzer

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/harrison/detective/internal/models"
)

// rawAnalysis mirrors the JSON shape of an LLM analysis response. All
// fields are optional at the parse level; defaults are applied when
// converting to a result because the backend is untrusted.
type rawAnalysis struct {
	FailureIndex      int          `json:"failure_index,omitempty"`
	Status            string       `json:"status"`
	PrimaryError      string       `json:"primary_error"`
	ErrorType         string       `json:"error_type"`
	Confidence        *json.Number `json:"confidence"`
	Blocking          *bool        `json:"blocking"`
	SuggestedActions  []string     `json:"suggested_actions"`
	VerificationSteps []string     `json:"verification_steps"`
	GitHubCommands    []string     `json:"github_commands"`
	EstimatedFixTime  string       `json:"estimated_fix_time"`
}

// parseAnalysis parses a single-failure LLM response. Missing or
// unrecognized fields degrade to safe defaults rather than failing the
// parse; only structurally invalid JSON is an error.
func parseAnalysis(raw string) (models.AnalysisResult, error) {
	payload := extractJSON(raw, '{', '}')
	if payload == "" {
		return models.AnalysisResult{}, fmt.Errorf("no JSON object in response")
	}

	var ra rawAnalysis
	if err := json.Unmarshal([]byte(payload), &ra); err != nil {
		return models.AnalysisResult{}, fmt.Errorf("parse analysis response: %w", err)
	}
	return ra.toResult(), nil
}

// parseBatch parses a batched LLM response into results keyed by the
// 0-based position of each failure in the batch prompt. Entries with an
// out-of-range failure_index are dropped.
func parseBatch(raw string, size int) (map[int]models.AnalysisResult, error) {
	payload := extractJSON(raw, '[', ']')
	if payload == "" {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var entries []rawAnalysis
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		return nil, fmt.Errorf("parse batch response: %w", err)
	}

	results := make(map[int]models.AnalysisResult, len(entries))
	for _, entry := range entries {
		idx := entry.FailureIndex - 1
		if idx < 0 || idx >= size {
			continue
		}
		results[idx] = entry.toResult()
	}
	return results, nil
}

// toResult converts a raw response into an AnalysisResult with defaults:
// unknown status becomes PARTIAL, a missing confidence becomes 5, and a
// missing error type becomes "unknown".
func (ra rawAnalysis) toResult() models.AnalysisResult {
	status := models.AnalysisStatus(strings.ToUpper(strings.TrimSpace(ra.Status)))
	switch status {
	case models.StatusSuccess, models.StatusFailure, models.StatusPartial:
	default:
		status = models.StatusPartial
	}

	errorType := strings.TrimSpace(ra.ErrorType)
	if errorType == "" {
		errorType = "unknown"
	}

	confidence := convertConfidence(ra.Confidence)

	blocking := confidence >= models.BlockingConfidence
	if ra.Blocking != nil {
		blocking = *ra.Blocking
	}

	return models.AnalysisResult{
		Status:            status,
		PrimaryError:      strings.TrimSpace(ra.PrimaryError),
		ErrorType:         errorType,
		Confidence:        confidence,
		Blocking:          blocking,
		SuggestedActions:  models.DedupeOrdered(ra.SuggestedActions),
		VerificationSteps: models.DedupeOrdered(ra.VerificationSteps),
		GitHubCommands:    models.DedupeOrdered(ra.GitHubCommands),
		EstimatedFixTime:  ra.EstimatedFixTime,
	}
}

// convertConfidence normalizes the two scales LLMs answer in: an integer
// 1-10 is used as-is, a fraction in (0,1] is scaled to 1-10. Missing and
// unparseable values default to 5.
func convertConfidence(n *json.Number) int {
	if n == nil {
		return 5
	}
	if i, err := n.Int64(); err == nil {
		return models.ClampConfidence(int(i))
	}
	f, err := n.Float64()
	if err != nil {
		return 5
	}
	if f > 0 && f <= 1.0 {
		return models.ClampConfidence(int(math.Round(f * 10)))
	}
	return models.ClampConfidence(int(math.Round(f)))
}

// extractJSON returns the outermost open..close slice of s, tolerating
// code fences or prose around the payload. Empty when no pair is found.
func extractJSON(s string, open, closing byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, closing)
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
