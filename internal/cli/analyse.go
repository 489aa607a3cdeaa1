package cli

import (
	"fmt"

	"github.com/ghostfrog/meta/internal/issue"
	"github.com/spf13/cobra"
)

var (
	analyseLimit int
	analyseTop   int
)

var analyseCmd = &cobra.Command{
	Use:   "analyse",
	Short: "Rank recurring issues mined from task history",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		records, err := eng.hist.Load(analyseLimit)
		if err != nil {
			return fmt.Errorf("cannot load history: %w", err)
		}

		issues := issue.Detect(records)
		if len(issues) == 0 {
			fmt.Println("No issues detected.")
			return nil
		}

		fmt.Printf("Found %d recurring issue(s):\n", len(issues))
		for i, is := range issues {
			if i >= analyseTop {
				break
			}
			fmt.Printf("- %q   area=%s   occurrences=%d\n", is.Key, is.Area, is.Occurrences())
		}
		return nil
	},
}

func init() {
	analyseCmd.Flags().IntVar(&analyseLimit, "limit", 200, "history records to scan")
	analyseCmd.Flags().IntVar(&analyseTop, "top", 10, "issues to print")
	rootCmd.AddCommand(analyseCmd)
}
