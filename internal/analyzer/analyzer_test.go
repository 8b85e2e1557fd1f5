package analyzer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/detective/internal/budget"
	"github.com/harrison/detective/internal/models"
	"github.com/harrison/detective/internal/pattern"
	"github.com/harrison/detective/internal/router"
)

// scriptedInvoker returns canned responses in order and records every call.
type scriptedInvoker struct {
	responses []string
	errs      []error
	calls     int
	tiers     []models.Tier
	prompts   []string
}

func (s *scriptedInvoker) Invoke(_ context.Context, prompt string, tier models.Tier) (string, error) {
	i := s.calls
	s.calls++
	s.tiers = append(s.tiers, tier)
	s.prompts = append(s.prompts, prompt)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp string
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

func newTestAnalyzer(t *testing.T, daily float64, inv *scriptedInvoker) *Analyzer {
	t.Helper()
	tr, err := budget.NewTracker(filepath.Join(t.TempDir(), "budget.json"), daily, 200, 1.0)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	rt := router.New(tr, 0.02, 0.15)
	return New(pattern.NewLibrary(), rt, inv, nil, Options{})
}

func pytestFailure() models.Failure {
	f := models.NewFailure("f-1", "acme/widgets", "python-tests", "CI", models.ConclusionFailure)
	f.RawLogs = "ERROR: pytest: command not found"
	return f
}

func unknownFailure(id, job string) models.Failure {
	f := models.NewFailure(id, "acme/widgets", job, "CI", models.ConclusionFailure)
	f.RawLogs = "ERROR: strange unexplained condition"
	return f
}

func TestAnalyze_ShortCircuitSkipsLLM(t *testing.T) {
	inv := &scriptedInvoker{}
	a := newTestAnalyzer(t, 10, inv)

	result, err := a.Analyze(context.Background(), pytestFailure())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if inv.calls != 0 {
		t.Errorf("invoker called %d times, want 0", inv.calls)
	}
	if result.Source != models.SourcePatternMatch {
		t.Errorf("Source = %s, want pattern_match", result.Source)
	}
	if result.Confidence < 8 {
		t.Errorf("Confidence = %d, want >= 8", result.Confidence)
	}
	if result.ErrorType != "python_test" {
		t.Errorf("ErrorType = %s, want python_test", result.ErrorType)
	}
}

func TestAnalyze_RoutesUnknownToLLM(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		`{"status": "FAILURE", "primary_error": "Disk full on runner", "error_type": "infrastructure", "confidence": 0.9, "suggested_actions": ["Free disk space on the runner"]}`,
	}}
	a := newTestAnalyzer(t, 10, inv)

	result, err := a.Analyze(context.Background(), unknownFailure("f-2", "build"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if inv.calls != 1 {
		t.Fatalf("invoker called %d times, want 1", inv.calls)
	}
	if result.Source != models.SourceLLMHaiku {
		t.Errorf("Source = %s, want llm_haiku", result.Source)
	}
	if result.Confidence != 9 {
		t.Errorf("Confidence = %d, want 9 from 0.9", result.Confidence)
	}
	if !result.Blocking {
		t.Error("Blocking = false, want true at confidence 9")
	}
	if result.FailureID != "f-2" {
		t.Errorf("FailureID = %q, want f-2", result.FailureID)
	}
	if result.EstimatedCost != 0.02 {
		t.Errorf("EstimatedCost = %v, want 0.02", result.EstimatedCost)
	}
}

func TestAnalyze_FallsBackToPatternOnBadResponse(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{"sorry, I cannot help with that"}}
	a := newTestAnalyzer(t, 10, inv)

	f := models.NewFailure("f-3", "acme/widgets", "unit-tests", "CI", models.ConclusionFailure)
	f.RawLogs = "File \"src/app.py\", line 3\nModuleNotFoundError: No module named 'widgets'"

	result, err := a.Analyze(context.Background(), f)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Source != models.SourcePatternMatch {
		t.Errorf("Source = %s, want pattern_match fallback", result.Source)
	}
	if result.ErrorType != "python_import" {
		t.Errorf("ErrorType = %s, want python_import", result.ErrorType)
	}
}

func TestAnalyze_GenericFallbackWithoutPatterns(t *testing.T) {
	inv := &scriptedInvoker{errs: []error{errors.New("boom"), errors.New("boom")}}
	a := newTestAnalyzer(t, 10, inv)

	result, err := a.Analyze(context.Background(), unknownFailure("f-4", "build"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Source != models.SourceFallback {
		t.Errorf("Source = %s, want fallback", result.Source)
	}
	if result.Confidence > 3 {
		t.Errorf("Confidence = %d, want <= 3 for fallback", result.Confidence)
	}
	if result.Status != models.StatusError {
		t.Errorf("Status = %s, want ERROR", result.Status)
	}
}

func TestAnalyze_BudgetExhaustedUsesPatternResult(t *testing.T) {
	inv := &scriptedInvoker{}
	a := newTestAnalyzer(t, 0.001, inv)

	result, err := a.Analyze(context.Background(), unknownFailure("f-5", "build"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if inv.calls != 0 {
		t.Errorf("invoker called %d times, want 0 with exhausted budget", inv.calls)
	}
	if result.Source != models.SourceFallback {
		t.Errorf("Source = %s, want fallback", result.Source)
	}
}

func TestAnalyze_RejectsInvalidFailure(t *testing.T) {
	a := newTestAnalyzer(t, 10, &scriptedInvoker{})

	f := models.Failure{Repository: "acme/widgets", Conclusion: models.ConclusionFailure}
	if _, err := a.Analyze(context.Background(), f); err == nil {
		t.Fatal("expected error for failure without job name")
	}
}

func TestReanalyze_FixedTier(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		`{"status": "FAILURE", "primary_error": "Flaky network call in integration test", "error_type": "integration_aws", "confidence": 8}`,
	}}
	a := newTestAnalyzer(t, 10, inv)

	result, err := a.Reanalyze(context.Background(), unknownFailure("f-6", "build"), models.TierSonnet)
	if err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}
	if len(inv.tiers) != 1 || inv.tiers[0] != models.TierSonnet {
		t.Fatalf("tiers = %v, want [sonnet]", inv.tiers)
	}
	if result.Source != models.SourceLLMSonnet {
		t.Errorf("Source = %s, want llm_sonnet", result.Source)
	}
	if result.EstimatedCost != 0.15 {
		t.Errorf("EstimatedCost = %v, want 0.15", result.EstimatedCost)
	}
}

func TestReanalyze_PromptCarriesLogExcerpt(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		`{"status": "FAILURE", "primary_error": "Runner in a bad state", "error_type": "infrastructure", "confidence": 7}`,
	}}
	a := newTestAnalyzer(t, 10, inv)

	if _, err := a.Reanalyze(context.Background(), unknownFailure("f-8", "build"), models.TierSonnet); err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}
	if len(inv.prompts) != 1 {
		t.Fatalf("recorded %d prompts, want 1", len(inv.prompts))
	}
	if !strings.Contains(inv.prompts[0], "strange unexplained condition") {
		t.Errorf("prompt is missing the log excerpt:\n%s", inv.prompts[0])
	}
	if strings.Contains(inv.prompts[0], "(no actionable log lines found)") {
		t.Error("prompt claims there are no log lines despite raw logs being present")
	}
}

func TestSinglePrompt_EnumeratesErrorTypes(t *testing.T) {
	f := unknownFailure("f-9", "build")
	f.CompressedLogs = f.RawLogs
	prompt := singlePrompt(f)

	for _, want := range []string{
		"maven_dependency", "python_import", "docker_build",
		"workflow_versioning", "integration_aws", "workflow_matrix",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt is missing error_type hint %q", want)
		}
	}
}

func TestBatchPrompt_EnumeratesErrorTypes(t *testing.T) {
	group := []models.Failure{unknownFailure("f-10", "build")}
	prompt := batchPrompt("general", group, []int{0})

	if !strings.Contains(prompt, "maven_dependency") || !strings.Contains(prompt, "docker_cache") {
		t.Errorf("prompt is missing the error_type taxonomy:\n%s", prompt)
	}
}

func TestReanalyze_BudgetExhausted(t *testing.T) {
	a := newTestAnalyzer(t, 0.001, &scriptedInvoker{})

	_, err := a.Reanalyze(context.Background(), unknownFailure("f-7", "build"), models.TierSonnet)
	if !errors.Is(err, router.ErrBudgetExhausted) {
		t.Fatalf("err = %v, want ErrBudgetExhausted", err)
	}
}
