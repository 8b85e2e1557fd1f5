package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/detective/internal/issuestore"
)

var (
	statsConfig string
	statsJSON   bool
)

// NewStatsCommand creates the stats command
func NewStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show issue database statistics",
		Long: `Display what the issue database has learned: total recorded issues,
cached solutions, the most frequent error types, and recent activity.

Examples:
  detective stats
  detective stats --json`,
		RunE: runStats,
	}

	cmd.Flags().StringVar(&statsConfig, "config", "", "Config file (default: .detective/config.yaml)")
	cmd.Flags().BoolVar(&statsJSON, "json", false, "Output in JSON format")

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(statsConfig)
	if err != nil {
		return err
	}

	store, err := issuestore.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open issue store: %w", err)
	}
	defer store.Close()

	stats, err := store.Statistics(cmd.Context())
	if err != nil {
		return err
	}

	if statsJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal statistics: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printStatsPretty(stats)
	return nil
}

func printStatsPretty(stats issuestore.Stats) {
	width := 55
	fmt.Println(strings.Repeat("─", width))
	fmt.Println("ISSUE DATABASE")
	fmt.Println(strings.Repeat("─", width))

	fmt.Printf("Total issues:      %d\n", stats.TotalIssues)
	fmt.Printf("Cached solutions:  %d\n", stats.CachedSolutions)
	fmt.Printf("Seen in last 24h:  %d\n", stats.RecentIssues)

	if len(stats.TopErrorTypes) > 0 {
		fmt.Println("\nTop error types:")
		for _, tc := range stats.TopErrorTypes {
			fmt.Printf("  %-24s %d\n", tc.ErrorType, tc.Count)
		}
	}
	fmt.Println(strings.Repeat("─", width))
}
