package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/harrison/detective/internal/models"
)

// maxSubBatchSize bounds how many failures share one LLM call. Small
// batches keep per-failure context inside the prompt budget.
const maxSubBatchSize = 3

// Failure categories for batch grouping. Grouping similar failures into
// one prompt lets the model reuse context across them.
var categoryKeywords = []struct {
	name     string
	keywords []string
}{
	{"compilation", []string{"compilation failed", "cannot find symbol", "syntax error", "compile error"}},
	{"dependency", []string{"could not resolve", "modulenotfounderror", "importerror", "dependency", "no module named"}},
	{"docker", []string{"docker", "dockerfile", "image build", "layer"}},
	{"timeout", []string{"timeout", "timed out", "deadline exceeded"}},
	{"permission", []string{"permission denied", "access denied", "forbidden", "unauthorized"}},
}

// Categorize groups failures by the dominant keyword family in their
// combined text. Failures matching nothing land in "general".
func Categorize(failures []models.Failure) map[string][]models.Failure {
	groups := make(map[string][]models.Failure)
	for _, f := range failures {
		cat := categorize(f.CombinedText())
		groups[cat] = append(groups[cat], f)
	}
	return groups
}

func categorize(text string) string {
	for _, cat := range categoryKeywords {
		for _, kw := range cat.keywords {
			if strings.Contains(text, kw) {
				return cat.name
			}
		}
	}
	return "general"
}

// AnalyzeBatch classifies a set of failures, grouping them by category and
// sharing one LLM call across each sub-batch of up to three. Input order
// is not preserved; results carry their failure IDs. Invalid failures are
// skipped with a log line rather than aborting the batch.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, failures []models.Failure) []models.AnalysisResult {
	var valid []models.Failure
	for _, f := range failures {
		if err := f.Validate(); err != nil {
			a.log.Warnf("skipping failure: %v", err)
			continue
		}
		valid = append(valid, f)
	}

	groups := Categorize(valid)
	categories := make([]string, 0, len(groups))
	for cat := range groups {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	results := make([]models.AnalysisResult, 0, len(valid))
	for _, cat := range categories {
		group := groups[cat]
		for start := 0; start < len(group); start += maxSubBatchSize {
			end := start + maxSubBatchSize
			if end > len(group) {
				end = len(group)
			}
			results = append(results, a.analyzeSubBatch(ctx, cat, group[start:end])...)
		}
	}
	return results
}

// analyzeSubBatch runs pattern matching per failure, short-circuits the
// confident hits, and sends the remainder to the LLM in one call. Each
// failure that the batch response does not cover falls back individually.
func (a *Analyzer) analyzeSubBatch(ctx context.Context, category string, group []models.Failure) []models.AnalysisResult {
	n := len(group)
	results := make([]models.AnalysisResult, n)
	patternResults := make([]models.AnalysisResult, n)
	matched := make([]bool, n)

	var pending []int
	for i := range group {
		group[i].CompressedLogs = a.optimizer.Compress(group[i].RawLogs, a.maxLogTokens)
		matches := a.matcher.MatchAll(group[i].CombinedText())
		matched[i] = len(matches) > 0
		patternResults[i] = a.matcher.Analyze(group[i], matches)
		if patternResults[i].Confidence >= a.shortCircuit {
			results[i] = patternResults[i]
		} else {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return results
	}

	req := models.AnalysisRequest{
		Priority:   models.PriorityMedium,
		FailedJobs: len(pending),
	}
	for _, i := range pending {
		req.JobNames = append(req.JobNames, group[i].JobName)
		if !matched[i] {
			req.UnknownPatterns = true
		}
	}

	decision, err := a.router.Route(req)
	if err != nil {
		a.log.Warnf("batch %s: %v, using pattern results", category, err)
		for _, i := range pending {
			results[i] = a.fallback(group[i], matched[i], patternResults[i])
		}
		return results
	}

	raw, invokeErr := a.invoker.Invoke(ctx, batchPrompt(category, group, pending), decision.Tier)
	var parsed map[int]models.AnalysisResult
	if invokeErr != nil {
		a.log.Warnf("batch %s: %s invocation failed: %v", category, decision.Tier, invokeErr)
	} else {
		parsed, err = parseBatch(raw, len(pending))
		if err != nil {
			a.log.Warnf("batch %s: %v", category, err)
		}
	}

	costShare := decision.EstimatedCost / float64(len(pending))
	for k, i := range pending {
		r, ok := parsed[k]
		if !ok {
			results[i] = a.fallback(group[i], matched[i], patternResults[i])
			continue
		}
		r.FailureID = group[i].ID
		r.Source = decision.Tier.Source()
		r.EstimatedCost = costShare
		if r.PrimaryError == "" {
			r.PrimaryError = patternResults[i].PrimaryError
		}
		results[i] = r
	}
	return results
}

// batchPrompt renders one prompt covering all pending failures in a
// sub-batch, numbered 1-based to match the response's failure_index.
func batchPrompt(category string, group []models.Failure, pending []int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze these %d related CI/CD failures (category: %s). ", len(pending), category)
	b.WriteString("Respond with a JSON array matching the schema, one entry per failure.\n")

	for k, i := range pending {
		f := group[i]
		fmt.Fprintf(&b, "\n--- Failure %d ---\n", k+1)
		fmt.Fprintf(&b, "Repository: %s\n", f.Repository)
		fmt.Fprintf(&b, "Workflow: %s\n", f.WorkflowName)
		fmt.Fprintf(&b, "Job: %s\n", f.JobName)
		logs := f.CompressedLogs
		if logs == "" {
			logs = "(no actionable log lines found)"
		}
		b.WriteString("Log excerpt:\n")
		b.WriteString(logs)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(categoryHints)
	b.WriteString("\n\nSchema:\n")
	b.WriteString(models.BatchAnalysisResponseSchema())
	return b.String()
}
