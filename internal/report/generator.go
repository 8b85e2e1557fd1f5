// Package report renders supervisor reports as Markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/detective/internal/filelock"
	"github.com/harrison/detective/internal/models"
)

// Generator renders analysis reports. The zero value is not usable; call
// NewGenerator.
type Generator struct {
	markdown goldmark.Markdown
	now      func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{
		markdown: goldmark.New(goldmark.WithExtensions(extension.Table)),
		now:      time.Now,
	}
}

// Markdown renders the report as a Markdown document: a summary section,
// the error type distribution, and one section per analyzed failure with
// its validation verdict.
func (g *Generator) Markdown(r models.Report) string {
	var b strings.Builder

	b.WriteString("# CI Failure Analysis Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", g.now().UTC().Format(time.RFC3339))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total failures | %d |\n", r.TotalFailures)
	fmt.Fprintf(&b, "| Analyzed | %d |\n", r.AnalyzedCount)
	fmt.Fprintf(&b, "| Served from cache | %d |\n", r.CachedCount)
	fmt.Fprintf(&b, "| Escalated | %d |\n", r.EscalatedCount)
	fmt.Fprintf(&b, "| High confidence | %d |\n", r.HighConfidenceCount)
	fmt.Fprintf(&b, "| Average confidence | %.1f |\n", r.AverageConfidence)
	fmt.Fprintf(&b, "| Estimated cost | $%.4f |\n\n", r.EstimatedCost)

	if len(r.ErrorTypeCounts) > 0 {
		b.WriteString("## Error Types\n\n")
		for _, tc := range sortedTypeCounts(r.ErrorTypeCounts) {
			fmt.Fprintf(&b, "- %s: %d\n", tc.name, tc.count)
		}
		b.WriteString("\n")
	}

	for _, a := range r.Analyses {
		writeAnalysis(&b, a)
	}

	return b.String()
}

// HTML renders the report's Markdown through goldmark.
func (g *Generator) HTML(r models.Report) (string, error) {
	var buf bytes.Buffer
	if err := g.markdown.Convert([]byte(g.Markdown(r)), &buf); err != nil {
		return "", fmt.Errorf("convert report to HTML: %w", err)
	}
	return buf.String(), nil
}

// Save writes content to path atomically so a report file is never
// observed half-written.
func (g *Generator) Save(path, content string) error {
	if err := filelock.AtomicWrite(path, []byte(content)); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func writeAnalysis(b *strings.Builder, a models.Analysis) {
	res := a.Result

	fmt.Fprintf(b, "## %s\n\n", res.FailureID)
	fmt.Fprintf(b, "**%s** (%s", res.ErrorType, res.Source)
	if res.Escalated {
		b.WriteString(", escalated")
	}
	fmt.Fprintf(b, ") confidence %d/10\n\n", res.Confidence)
	fmt.Fprintf(b, "%s\n\n", res.PrimaryError)

	if res.Blocking {
		b.WriteString("This failure is blocking.\n\n")
	}

	if len(res.SuggestedActions) > 0 {
		b.WriteString("### Suggested Actions\n\n")
		for i, action := range res.SuggestedActions {
			fmt.Fprintf(b, "%d. %s\n", i+1, action)
		}
		b.WriteString("\n")
	}
	if len(res.VerificationSteps) > 0 {
		b.WriteString("### Verification\n\n")
		for _, step := range res.VerificationSteps {
			fmt.Fprintf(b, "- %s\n", step)
		}
		b.WriteString("\n")
	}
	if len(res.GitHubCommands) > 0 {
		b.WriteString("### Investigation Commands\n\n```\n")
		for _, cmd := range res.GitHubCommands {
			fmt.Fprintf(b, "%s\n", cmd)
		}
		b.WriteString("```\n\n")
	}
	if res.EstimatedFixTime != "" {
		fmt.Fprintf(b, "Estimated fix time: %s\n\n", res.EstimatedFixTime)
	}

	if a.Validation == nil {
		return
	}
	v := a.Validation

	fmt.Fprintf(b, "### Validation: %s\n\n", v.Status)
	fmt.Fprintf(b, "Confidence %d/10, %d/%d quality gates, %s risk\n\n",
		v.OverallConfidence, v.GatesPassed(), len(v.QualityGates), v.RiskLevel)

	if len(v.RiskFactors) > 0 {
		b.WriteString("Risk factors:\n\n")
		for _, factor := range v.RiskFactors {
			fmt.Fprintf(b, "- %s\n", factor)
		}
		b.WriteString("\n")
	}
	if len(v.Recommendations) > 0 {
		b.WriteString("Recommendations:\n\n")
		for _, rec := range v.Recommendations {
			fmt.Fprintf(b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}
}

type typeCount struct {
	name  string
	count int
}

// sortedTypeCounts orders error types by descending count, breaking ties
// alphabetically so report output is stable.
func sortedTypeCounts(counts map[string]int) []typeCount {
	out := make([]typeCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, typeCount{name, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}
