// Package supervisor orchestrates a full pass over a batch of CI
// failures: cache lookup, batch analysis, validation, one-shot
// escalation of weak results, and persistence of what was learned.
package supervisor

import (
	"context"
	"strings"
	"time"

	"github.com/harrison/detective/internal/analyzer"
	"github.com/harrison/detective/internal/issuestore"
	"github.com/harrison/detective/internal/logger"
	"github.com/harrison/detective/internal/models"
	"github.com/harrison/detective/internal/validator"
)

// Defaults for Options fields left zero.
const (
	defaultCacheWindow          = 24 * time.Hour
	defaultEscalationConfidence = 3
)

// genericActions are suggestion phrases that carry no real fix. A result
// leaning on them gets its confidence trimmed during review.
var genericActions = []string{"check logs", "manual review", "investigate", "debug"}

// Options tunes the supervisor.
type Options struct {
	// CacheWindow bounds how old a cached solution may be before it is
	// recomputed instead of reused. Defaults to 24 hours.
	CacheWindow time.Duration

	// EscalationConfidence is the analysis confidence at or below which a
	// result that also failed validation is re-run once on the stronger
	// tier. Defaults to 3.
	EscalationConfidence int
}

// Supervisor runs the analysis pipeline end to end for batches of
// failures. It owns no stage logic itself; it sequences the analyzer,
// validator, and issue store and decides when a result is worth a second,
// more expensive look.
type Supervisor struct {
	analyzer  *analyzer.Analyzer
	validator *validator.Validator
	store     *issuestore.Store
	log       *logger.ConsoleLogger

	cacheWindow    time.Duration
	escalationConf int
}

// New creates a Supervisor. store may be nil to disable caching and
// persistence; log may be nil.
func New(a *analyzer.Analyzer, v *validator.Validator, store *issuestore.Store, log *logger.ConsoleLogger, opts Options) *Supervisor {
	if opts.CacheWindow == 0 {
		opts.CacheWindow = defaultCacheWindow
	}
	if opts.EscalationConfidence == 0 {
		opts.EscalationConfidence = defaultEscalationConfidence
	}
	if log == nil {
		log = logger.NewConsoleLogger(nil, "")
	}
	return &Supervisor{
		analyzer:       a,
		validator:      v,
		store:          store,
		log:            log,
		cacheWindow:    opts.CacheWindow,
		escalationConf: opts.EscalationConfidence,
	}
}

// Process analyzes every failure in the batch and returns the aggregate
// report. Cached solutions are served without spending budget; everything
// else goes through batch analysis, validation, and at most one
// escalation per failure. Persistence trouble is logged, never fatal.
func (s *Supervisor) Process(ctx context.Context, failures []models.Failure) models.Report {
	report := models.Report{TotalFailures: len(failures)}

	byID := make(map[string]models.Failure, len(failures))
	var pending []models.Failure
	for _, f := range failures {
		byID[f.ID] = f
		if cached := s.cachedResult(ctx, f); cached != nil {
			s.log.Infof("failure %s: served from solution cache", f.ID)
			if _, err := s.store.RecordIssue(ctx, f, *cached); err != nil {
				s.log.Warnf("failure %s: record issue: %v", f.ID, err)
			}
			report.CachedCount++
			report.Analyses = append(report.Analyses, s.validated(*cached))
			continue
		}
		pending = append(pending, f)
	}

	for _, result := range s.analyzer.AnalyzeBatch(ctx, pending) {
		entry := s.validated(s.review(result))
		if s.shouldEscalate(entry) {
			entry = s.escalate(ctx, byID, entry)
		}
		s.persist(ctx, byID, entry.Result)
		report.AnalyzedCount++
		report.Analyses = append(report.Analyses, entry)
	}

	report.Summarize()
	return report
}

// cachedResult returns a cache-sourced analysis for the failure, or nil
// when no recent high-confidence solution exists.
func (s *Supervisor) cachedResult(ctx context.Context, failure models.Failure) *models.AnalysisResult {
	if s.store == nil || failure.Validate() != nil {
		return nil
	}

	recent, err := s.store.HasRecentHighConfidenceSolution(ctx, failure, s.cacheWindow)
	if err != nil {
		s.log.Warnf("failure %s: cache recency check failed: %v", failure.ID, err)
		return nil
	}
	if !recent {
		return nil
	}

	sol, err := s.store.GetCachedSolution(ctx, failure)
	if err != nil {
		s.log.Warnf("failure %s: cache lookup failed: %v", failure.ID, err)
		return nil
	}
	if sol == nil {
		return nil
	}
	result := sol.AnalysisResult(failure.ID)
	return &result
}

func (s *Supervisor) validated(result models.AnalysisResult) models.Analysis {
	validation := s.validator.Validate(result)
	return models.Analysis{Result: result, Validation: &validation}
}

// review applies quality-control adjustments to a fresh analysis before
// validation: nothing keeps a perfect score, and results leaning on
// generic advice lose a point.
func (s *Supervisor) review(result models.AnalysisResult) models.AnalysisResult {
	if result.Confidence > 9 {
		result.Confidence--
	}
	for _, action := range result.SuggestedActions {
		if containsGeneric(action) {
			result.Confidence = models.ClampConfidence(result.Confidence - 1)
			break
		}
	}
	result.Blocking = result.Confidence >= models.BlockingConfidence
	return result
}

func containsGeneric(action string) bool {
	lower := strings.ToLower(action)
	for _, generic := range genericActions {
		if strings.Contains(lower, generic) {
			return true
		}
	}
	return false
}

// shouldEscalate reports whether the entry earns one re-run on the
// stronger tier: the suggested fix targets the wrong technology, or
// validation rejected the result and the analysis itself had little
// confidence. Results already produced by that tier stay put.
func (s *Supervisor) shouldEscalate(entry models.Analysis) bool {
	if entry.Result.Source == models.SourceLLMSonnet || entry.Result.Escalated {
		return false
	}
	if technologyMismatch(entry.Result) {
		return true
	}
	switch entry.Validation.Status {
	case models.ValidationRevision, models.ValidationRejected:
	default:
		return false
	}
	return entry.Result.Confidence <= s.escalationConf
}

// technologyMismatch reports whether the suggested actions name none of
// the tooling implied by the error type, e.g. a maven failure answered
// with pip commands.
func technologyMismatch(result models.AnalysisResult) bool {
	if len(result.SuggestedActions) == 0 {
		return false
	}
	techKeywords := map[string][]string{
		"maven":  {"mvn", "java", "pom.xml"},
		"python": {"pip", "python", "pytest", "uv"},
		"docker": {"docker", "dockerfile"},
	}
	keywords, ok := techKeywords[strings.SplitN(result.ErrorType, "_", 2)[0]]
	if !ok {
		return false
	}
	joined := strings.ToLower(strings.Join(result.SuggestedActions, " "))
	for _, kw := range keywords {
		if strings.Contains(joined, kw) {
			return false
		}
	}
	return true
}

// escalate re-runs the failure on the sonnet tier exactly once. The
// escalated result gets a modest confidence boost for the stronger model,
// capped below the top of the scale, and carries the combined cost of
// both attempts. Any failure along the way keeps the original entry.
func (s *Supervisor) escalate(ctx context.Context, byID map[string]models.Failure, entry models.Analysis) models.Analysis {
	failure, ok := byID[entry.Result.FailureID]
	if !ok {
		return entry
	}

	result, err := s.analyzer.Reanalyze(ctx, failure, models.TierSonnet)
	if err != nil {
		s.log.Warnf("failure %s: escalation failed: %v", failure.ID, err)
		return entry
	}

	result.Confidence = models.ClampConfidence(result.Confidence + 2)
	if result.Confidence > 9 {
		result.Confidence = 9
	}
	result.Blocking = result.Confidence >= models.BlockingConfidence
	result.Escalated = true
	result.EstimatedCost += entry.Result.EstimatedCost

	s.log.Infof("failure %s: escalated to %s, confidence %d", failure.ID, models.TierSonnet, result.Confidence)
	return s.validated(result)
}

// persist records the issue and, when the confidence clears the caching
// threshold, its solution.
func (s *Supervisor) persist(ctx context.Context, byID map[string]models.Failure, result models.AnalysisResult) {
	if s.store == nil {
		return
	}
	failure, ok := byID[result.FailureID]
	if !ok {
		return
	}
	if _, err := s.store.RecordIssue(ctx, failure, result); err != nil {
		s.log.Warnf("failure %s: record issue: %v", failure.ID, err)
	}
	if err := s.store.CacheSolution(ctx, failure, result); err != nil {
		s.log.Warnf("failure %s: cache solution: %v", failure.ID, err)
	}
}
