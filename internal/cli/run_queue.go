package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghostfrog/meta/internal/ticket"
)

var (
	runQueueRetries    int
	runQueueKeepFailed bool
)

var runQueueCmd = &cobra.Command{
	Use:   "run_queue",
	Short: "Process pending queue items in chronological order",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		pending, err := eng.queue.PendingOfKind(string(ticket.KindSelfImprovement))
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("No queue items.")
			return nil
		}

		fmt.Printf("Found %d task(s)...\n", len(pending))
		retries := retriesFor(cmd, runQueueRetries, eng.cfg)
		if _, err := eng.queue.RunAll(context.Background(), eng.proc, retries, runQueueKeepFailed); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	runQueueCmd.Flags().IntVar(&runQueueRetries, "retries", 2, "attempts per ticket")
	runQueueCmd.Flags().BoolVar(&runQueueKeepFailed, "keep-failed", false, "rename failed items to .failed.json instead of removing them")
	rootCmd.AddCommand(runQueueCmd)
}
