package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/detective/internal/budget"
	"github.com/harrison/detective/internal/models"
)

var (
	budgetConfig string
	budgetJSON   bool
)

// NewBudgetCommand creates the budget command
func NewBudgetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show LLM spend against the configured limits",
		Long: `Display today's and this month's analysis spend, the configured limits,
and the traffic-light budget status the router uses.

Examples:
  detective budget              # Human-readable status
  detective budget --json       # JSON output for scripting`,
		RunE: runBudget,
	}

	cmd.Flags().StringVar(&budgetConfig, "config", "", "Config file (default: .detective/config.yaml)")
	cmd.Flags().BoolVar(&budgetJSON, "json", false, "Output in JSON format")

	return cmd
}

func runBudget(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(budgetConfig)
	if err != nil {
		return err
	}

	tracker, err := budget.NewTracker(
		cfg.Budget.StatePath,
		cfg.Budget.DailyLimit,
		cfg.Budget.MonthlyLimit,
		cfg.Budget.PerOperationLimit,
	)
	if err != nil {
		return fmt.Errorf("open budget tracker: %w", err)
	}

	state := tracker.Snapshot()
	status := tracker.Status()

	if budgetJSON {
		out := struct {
			budget.State
			Status models.BudgetStatus `json:"status"`
		}{state, status}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal budget state: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printBudgetPretty(state, status)
	return nil
}

func printBudgetPretty(state budget.State, status models.BudgetStatus) {
	width := 55
	fmt.Println(strings.Repeat("─", width))
	fmt.Println("ANALYSIS BUDGET")
	fmt.Println(strings.Repeat("─", width))

	fmt.Printf("Status:      %s\n", strings.ToUpper(string(status)))
	fmt.Printf("Today:       $%.4f of $%.2f (%s)\n",
		state.DailySpend, state.DailyLimit, usageBar(state.DailySpend, state.DailyLimit))
	fmt.Printf("This month:  $%.4f of $%.2f (%s)\n",
		state.MonthlySpend, state.MonthlyLimit, usageBar(state.MonthlySpend, state.MonthlyLimit))
	fmt.Printf("Operations:  %d today\n", state.OperationsToday)
	fmt.Printf("Last reset:  %s\n", state.LastReset)
	fmt.Println(strings.Repeat("─", width))
}

// usageBar renders spend as a ten-segment progress bar.
func usageBar(spend, limit float64) string {
	const segments = 10
	filled := 0
	if limit > 0 {
		filled = int(spend / limit * segments)
	}
	if filled > segments {
		filled = segments
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", segments-filled)
}
