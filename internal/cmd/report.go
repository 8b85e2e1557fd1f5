package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/detective/internal/models"
)

var (
	reportOutput string
	reportHTML   bool
)

// NewReportCommand creates the report command
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <report.json>",
		Short: "Render a saved analysis report",
		Long: `Report re-renders a JSON report (produced by "detective analyze --json")
as Markdown or HTML.

Examples:
  detective report report.json
  detective report report.json --html --output report.html`,
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}

	cmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the rendering to a file instead of stdout")
	cmd.Flags().BoolVar(&reportHTML, "html", false, "Render as HTML")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read report file: %w", err)
	}

	var rep models.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return fmt.Errorf("parse report file %s: %w", args[0], err)
	}
	rep.Summarize()

	return emitReport(rep, reportOutput, reportHTML, false)
}
