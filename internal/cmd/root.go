package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for detective
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detective",
		Short: "CI/CD failure analysis pipeline",
		Long: `Detective classifies CI/CD job failures, suggests fixes, and validates
the suggestions before anyone acts on them.

It matches failures against a library of known error patterns, routes the
unknowns to an LLM tier chosen by complexity and remaining budget, caches
solutions by error signature, and renders the results as a report.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewAnalyzeCommand())
	cmd.AddCommand(NewReportCommand())
	cmd.AddCommand(NewBudgetCommand())
	cmd.AddCommand(NewStatsCommand())

	return cmd
}
