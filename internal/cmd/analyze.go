package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harrison/detective/internal/models"
	"github.com/harrison/detective/internal/report"
)

var (
	analyzeConfig   string
	analyzePatterns string
	analyzeOutput   string
	analyzeHTML     bool
	analyzeJSON     bool
)

// NewAnalyzeCommand creates the analyze command
func NewAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <failures.json>",
		Short: "Analyze a batch of CI failures",
		Long: `Analyze reads failure descriptors from a JSON file, classifies each one
through the pattern/LLM pipeline, validates the suggested fixes, and
prints a Markdown report.

The input file holds an array of failures:

  [
    {
      "id": "run-42-job-1",
      "repository": "acme/widgets",
      "job_name": "unit-tests",
      "workflow_name": "CI",
      "conclusion": "failure",
      "raw_logs": "..."
    }
  ]

Examples:
  detective analyze failures.json
  detective analyze failures.json --output report.md
  detective analyze failures.json --html --output report.html
  detective analyze failures.json --json > report.json`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().StringVar(&analyzeConfig, "config", "", "Config file (default: .detective/config.yaml)")
	cmd.Flags().StringVar(&analyzePatterns, "patterns", "", "Extra error patterns YAML file")
	cmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&analyzeHTML, "html", false, "Render the report as HTML")
	cmd.Flags().BoolVar(&analyzeJSON, "json", false, "Emit the raw report as JSON")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	failures, err := loadFailures(args[0])
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		return fmt.Errorf("%s contains no failures", args[0])
	}

	cfg, err := loadConfig(analyzeConfig)
	if err != nil {
		return err
	}
	p, err := buildPipeline(cfg, analyzePatterns)
	if err != nil {
		return err
	}
	defer p.Close()

	start := time.Now()
	rep := p.supervisor.Process(cmd.Context(), failures)
	p.log.Infof("analyzed %d failures in %s (%d cached, %d escalated, $%.4f)",
		rep.TotalFailures, time.Since(start).Round(time.Millisecond),
		rep.CachedCount, rep.EscalatedCount, rep.EstimatedCost)

	return emitReport(rep, analyzeOutput, analyzeHTML, analyzeJSON)
}

// loadFailures reads and validates the failure descriptors. A descriptor
// without an ID gets one assigned.
func loadFailures(path string) ([]models.Failure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read failures file: %w", err)
	}

	var failures []models.Failure
	if err := json.Unmarshal(data, &failures); err != nil {
		return nil, fmt.Errorf("parse failures file %s: %w", path, err)
	}

	for i := range failures {
		if failures[i].ID == "" {
			failures[i].ID = uuid.NewString()
		}
		if err := failures[i].Validate(); err != nil {
			return nil, fmt.Errorf("failures[%d]: %w", i, err)
		}
	}
	return failures, nil
}

// emitReport renders the report in the requested format to stdout or a file.
func emitReport(rep models.Report, output string, asHTML, asJSON bool) error {
	var content string

	switch {
	case asJSON:
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		content = string(data) + "\n"
	case asHTML:
		html, err := report.NewGenerator().HTML(rep)
		if err != nil {
			return err
		}
		content = html
	default:
		content = report.NewGenerator().Markdown(rep)
	}

	if output == "" {
		fmt.Print(content)
		return nil
	}
	if err := report.NewGenerator().Save(output, content); err != nil {
		return err
	}
	fmt.Printf("Report written to %s\n", filepath.Clean(output))
	return nil
}
