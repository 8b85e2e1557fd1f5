package analyzer

import (
	"encoding/json"
	"testing"

	"github.com/harrison/detective/internal/models"
)

func TestParseAnalysis_FullResponse(t *testing.T) {
	raw := `{
		"status": "FAILURE",
		"primary_error": "Maven build failed on missing artifact",
		"error_type": "maven_dependency",
		"confidence": 8,
		"blocking": true,
		"suggested_actions": ["mvn clean install -U", "mvn clean install -U", "Check repository configuration"],
		"verification_steps": ["Run mvn dependency:tree"],
		"estimated_fix_time": "10-15 minutes"
	}`

	result, err := parseAnalysis(raw)
	if err != nil {
		t.Fatalf("parseAnalysis: %v", err)
	}
	if result.Status != models.StatusFailure {
		t.Errorf("Status = %s, want FAILURE", result.Status)
	}
	if result.Confidence != 8 {
		t.Errorf("Confidence = %d, want 8", result.Confidence)
	}
	if len(result.SuggestedActions) != 2 {
		t.Errorf("SuggestedActions = %v, want duplicates removed", result.SuggestedActions)
	}
	if result.EstimatedFixTime != "10-15 minutes" {
		t.Errorf("EstimatedFixTime = %q", result.EstimatedFixTime)
	}
}

func TestParseAnalysis_AppliesDefaults(t *testing.T) {
	result, err := parseAnalysis(`{"primary_error": "something broke"}`)
	if err != nil {
		t.Fatalf("parseAnalysis: %v", err)
	}
	if result.Status != models.StatusPartial {
		t.Errorf("Status = %s, want PARTIAL default", result.Status)
	}
	if result.ErrorType != "unknown" {
		t.Errorf("ErrorType = %q, want unknown default", result.ErrorType)
	}
	if result.Confidence != 5 {
		t.Errorf("Confidence = %d, want 5 default", result.Confidence)
	}
}

func TestParseAnalysis_ToleratesCodeFences(t *testing.T) {
	raw := "```json\n{\"status\": \"SUCCESS\", \"error_type\": \"flaky\", \"confidence\": 7}\n```"
	result, err := parseAnalysis(raw)
	if err != nil {
		t.Fatalf("parseAnalysis: %v", err)
	}
	if result.Status != models.StatusSuccess || result.Confidence != 7 {
		t.Errorf("got %+v, want SUCCESS/7", result)
	}
}

func TestParseAnalysis_RejectsNonJSON(t *testing.T) {
	if _, err := parseAnalysis("I think the build failed because of tests"); err == nil {
		t.Fatal("expected error for prose response")
	}
	if _, err := parseAnalysis(`{"status": `); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestParseAnalysis_DerivesBlocking(t *testing.T) {
	result, err := parseAnalysis(`{"status": "FAILURE", "confidence": 6}`)
	if err != nil {
		t.Fatalf("parseAnalysis: %v", err)
	}
	if !result.Blocking {
		t.Error("Blocking = false, want true at confidence 6")
	}

	result, err = parseAnalysis(`{"status": "FAILURE", "confidence": 5}`)
	if err != nil {
		t.Fatalf("parseAnalysis: %v", err)
	}
	if result.Blocking {
		t.Error("Blocking = true, want false at confidence 5")
	}

	// An explicit blocking flag wins over the derivation.
	result, err = parseAnalysis(`{"status": "FAILURE", "confidence": 9, "blocking": false}`)
	if err != nil {
		t.Fatalf("parseAnalysis: %v", err)
	}
	if result.Blocking {
		t.Error("Blocking = true, want explicit false respected")
	}
}

func TestConvertConfidence(t *testing.T) {
	num := func(s string) *json.Number {
		n := json.Number(s)
		return &n
	}

	tests := []struct {
		in   *json.Number
		want int
	}{
		{nil, 5},
		{num("8"), 8},
		{num("15"), 10},
		{num("0"), 1},
		{num("0.85"), 9},
		{num("0.3"), 3},
		{num("1.0"), 10},
		{num("7.6"), 8},
	}
	for _, tt := range tests {
		if got := convertConfidence(tt.in); got != tt.want {
			t.Errorf("convertConfidence(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseBatch(t *testing.T) {
	raw := `[
		{"failure_index": 1, "status": "FAILURE", "error_type": "maven_test", "confidence": 7},
		{"failure_index": 3, "status": "PARTIAL", "error_type": "unknown", "confidence": 3},
		{"failure_index": 9, "status": "SUCCESS", "error_type": "ignored", "confidence": 5}
	]`

	results, err := parseBatch(raw, 3)
	if err != nil {
		t.Fatalf("parseBatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (out-of-range index dropped)", len(results))
	}
	if r := results[0]; r.ErrorType != "maven_test" {
		t.Errorf("results[0] = %+v, want maven_test", r)
	}
	if r := results[2]; r.Confidence != 3 {
		t.Errorf("results[2] = %+v, want confidence 3", r)
	}
	if _, ok := results[1]; ok {
		t.Error("unexpected result at index 1")
	}
}

func TestParseBatch_NoArray(t *testing.T) {
	if _, err := parseBatch(`{"status": "FAILURE"}`, 1); err == nil {
		t.Fatal("expected error for object response to batch prompt")
	}
}
