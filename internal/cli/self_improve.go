package cli

import (
	"fmt"

	"github.com/ghostfrog/meta/internal/issue"
	"github.com/ghostfrog/meta/internal/ticket"
	"github.com/spf13/cobra"
)

var (
	selfImproveLimit int
	selfImproveCount int
)

var selfImproveCmd = &cobra.Command{
	Use:   "self_improve",
	Short: "Generate tickets and enqueue them for later execution",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		records, err := eng.hist.Load(selfImproveLimit)
		if err != nil {
			return fmt.Errorf("cannot load history: %w", err)
		}

		issues := issue.Detect(records)
		generated := ticket.FromIssues(issues, ticket.ScopeSelf, selfImproveCount, eng.cfg.Runner.SafeSelfPaths)
		if len(generated) == 0 {
			fmt.Println("No tickets generated.")
			return nil
		}

		fmt.Println("Enqueuing self improvement:")
		for _, t := range generated {
			if _, err := eng.tickets.Save(t); err != nil {
				return fmt.Errorf("cannot save ticket %s: %w", t.ID, err)
			}
			qpath, err := eng.queue.Enqueue(t)
			if err != nil {
				return fmt.Errorf("cannot enqueue ticket %s: %w", t.ID, err)
			}
			fmt.Printf("- %s -> %s\n", t.ID, qpath)
		}
		return nil
	},
}

func init() {
	selfImproveCmd.Flags().IntVar(&selfImproveLimit, "limit", 200, "history records to scan")
	selfImproveCmd.Flags().IntVar(&selfImproveCount, "count", 3, "maximum tickets to enqueue")
	rootCmd.AddCommand(selfImproveCmd)
}
