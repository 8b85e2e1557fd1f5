// Package analyzer coordinates the per-failure analysis pipeline: log
// compression, pattern matching, tier routing, LLM invocation, and the
// fallback chain when any paid stage is unavailable.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrison/detective/internal/llm"
	"github.com/harrison/detective/internal/logger"
	"github.com/harrison/detective/internal/models"
	"github.com/harrison/detective/internal/pattern"
	"github.com/harrison/detective/internal/router"
	"github.com/harrison/detective/internal/tokenopt"
)

// Defaults for Options fields left zero.
const (
	defaultShortCircuitConfidence = 8
	defaultMaxLogTokens           = 800
)

// Options tunes the analyzer.
type Options struct {
	// ShortCircuitConfidence is the pattern-match confidence at or above
	// which the LLM is skipped entirely. Defaults to 8.
	ShortCircuitConfidence int

	// MaxLogTokens bounds the compressed log excerpt per failure.
	// Defaults to 800.
	MaxLogTokens int
}

// Analyzer classifies CI failures. Pattern matching runs first and
// short-circuits high-confidence hits; everything else is routed to an LLM
// tier within budget, with pattern results as the fallback.
type Analyzer struct {
	optimizer *tokenopt.Optimizer
	matcher   *pattern.Matcher
	router    *router.Router
	invoker   llm.Invoker
	log       *logger.ConsoleLogger

	shortCircuit int
	maxLogTokens int
}

// New creates an Analyzer over the given pattern library, router, and LLM
// backend. log may be nil.
func New(lib *pattern.Library, rt *router.Router, inv llm.Invoker, log *logger.ConsoleLogger, opts Options) *Analyzer {
	if opts.ShortCircuitConfidence == 0 {
		opts.ShortCircuitConfidence = defaultShortCircuitConfidence
	}
	if opts.MaxLogTokens == 0 {
		opts.MaxLogTokens = defaultMaxLogTokens
	}
	if log == nil {
		log = logger.NewConsoleLogger(nil, "")
	}
	return &Analyzer{
		optimizer:    tokenopt.New(),
		matcher:      pattern.NewMatcher(lib),
		router:       rt,
		invoker:      inv,
		log:          log,
		shortCircuit: opts.ShortCircuitConfidence,
		maxLogTokens: opts.MaxLogTokens,
	}
}

// Analyze classifies one failure. The returned error is reserved for
// invalid input; analysis-stage trouble degrades through the fallback
// chain instead (pattern result, then a generic low-confidence result).
func (a *Analyzer) Analyze(ctx context.Context, failure models.Failure) (models.AnalysisResult, error) {
	if err := failure.Validate(); err != nil {
		return models.AnalysisResult{}, err
	}

	failure.CompressedLogs = a.optimizer.Compress(failure.RawLogs, a.maxLogTokens)

	matches := a.matcher.MatchAll(failure.CombinedText())
	patternResult := a.matcher.Analyze(failure, matches)
	if patternResult.Confidence >= a.shortCircuit {
		a.log.Debugf("failure %s: pattern match confidence %d, skipping LLM", failure.ID, patternResult.Confidence)
		return patternResult, nil
	}

	decision, err := a.router.Route(buildRequest(failure, len(matches) == 0))
	if err != nil {
		a.log.Warnf("failure %s: %v, using pattern result", failure.ID, err)
		return a.fallback(failure, len(matches) > 0, patternResult), nil
	}

	raw, err := a.invoker.Invoke(ctx, singlePrompt(failure), decision.Tier)
	if err != nil {
		a.log.Warnf("failure %s: %s invocation failed: %v", failure.ID, decision.Tier, err)
		return a.fallback(failure, len(matches) > 0, patternResult), nil
	}

	result, err := parseAnalysis(raw)
	if err != nil {
		a.log.Warnf("failure %s: %v", failure.ID, err)
		return a.fallback(failure, len(matches) > 0, patternResult), nil
	}

	result.FailureID = failure.ID
	result.Source = decision.Tier.Source()
	result.EstimatedCost = decision.EstimatedCost
	if result.PrimaryError == "" {
		result.PrimaryError = patternResult.PrimaryError
	}
	return result, nil
}

// Reanalyze re-runs one failure on a fixed tier, charging the budget
// directly. Used for escalation of low-confidence results.
func (a *Analyzer) Reanalyze(ctx context.Context, failure models.Failure, tier models.Tier) (models.AnalysisResult, error) {
	cost, err := a.router.Reserve(tier)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	failure.CompressedLogs = a.optimizer.Compress(failure.RawLogs, a.maxLogTokens)
	raw, err := a.invoker.Invoke(ctx, singlePrompt(failure), tier)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("reanalyze %s: %w", failure.ID, err)
	}
	result, err := parseAnalysis(raw)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("reanalyze %s: %w", failure.ID, err)
	}

	result.FailureID = failure.ID
	result.Source = tier.Source()
	result.EstimatedCost = cost
	return result, nil
}

// fallback returns the pattern result when it carries signal, otherwise a
// generic manual-review result. Fallbacks never claim high confidence.
func (a *Analyzer) fallback(failure models.Failure, matched bool, patternResult models.AnalysisResult) models.AnalysisResult {
	if matched {
		return patternResult
	}
	return models.AnalysisResult{
		FailureID:        failure.ID,
		Status:           models.StatusError,
		PrimaryError:     "Automated analysis unavailable",
		ErrorType:        "unknown",
		Confidence:       2,
		SuggestedActions: []string{"Manual log review required"},
		Source:           models.SourceFallback,
	}
}

// buildRequest derives the routing request from one failure.
func buildRequest(failure models.Failure, unknownPatterns bool) models.AnalysisRequest {
	url := ""
	if failure.RunID != "" {
		url = fmt.Sprintf("https://github.com/%s/actions/runs/%s", failure.Repository, failure.RunID)
	}
	return models.AnalysisRequest{
		URL:             url,
		Priority:        models.PriorityMedium,
		FailedJobs:      1,
		JobNames:        []string{failure.JobName},
		UnknownPatterns: unknownPatterns,
	}
}

// categoryHints enumerates the error_type taxonomy the matcher and
// validator understand, so the model is biased toward labels the rest of
// the pipeline can act on.
const categoryHints = `Known failure categories and error_type values:
- dependency: maven_dependency, python_dependency (unresolved packages, pytest missing, --extra dev needed)
- docker: docker_build, docker_cache (malformed =X.X.X version files, layer cache invalidation)
- import: python_import (module resolution failures)
- versioning: workflow_versioning (semantic version workflow failures)
- integration: integration_aws (external service and credential failures)
- workflow: workflow_matrix (GitHub Actions job matrix failures)
- tests: maven_test, python_test (surefire reports missing, pytest not found)
- toolchain: maven_jdk (JDK version mismatch)
Use one of these error_type values when one fits; otherwise a short snake_case label.`

// singlePrompt renders the analysis prompt for one failure.
func singlePrompt(failure models.Failure) string {
	var b strings.Builder
	b.WriteString("Analyze this CI/CD failure and respond with JSON matching the schema.\n\n")
	fmt.Fprintf(&b, "Repository: %s\n", failure.Repository)
	fmt.Fprintf(&b, "Workflow: %s\n", failure.WorkflowName)
	fmt.Fprintf(&b, "Job: %s\n", failure.JobName)
	fmt.Fprintf(&b, "Conclusion: %s\n\n", failure.Conclusion)
	b.WriteString("Log excerpt:\n")
	logs := failure.CompressedLogs
	if logs == "" {
		logs = "(no actionable log lines found)"
	}
	b.WriteString(logs)
	b.WriteString("\n\n")
	b.WriteString(categoryHints)
	b.WriteString("\n\nSchema:\n")
	b.WriteString(models.AnalysisResponseSchema())
	return b.String()
}
