package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "meta",
	Short: "Self-improvement automation engine",
	Long: `Meta mines the task history for recurring failures, turns them into
tickets, and drives the external planner/executor to fix them, validating
every change against the test suite and rolling back on failure.

Typical flow:
  meta analyse            Rank recurring issues from history
  meta tickets            Generate ticket files from the top issues
  meta self_improve       Generate tickets and enqueue them
  meta self_cycle         Generate, dedup, and run tickets immediately
  meta run_queue          Process the pending queue`,
	Version: version,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.SetVersionTemplate(fmt.Sprintf("meta version %s\n", version))
}
