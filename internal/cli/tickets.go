package cli

import (
	"fmt"

	"github.com/ghostfrog/meta/internal/issue"
	"github.com/ghostfrog/meta/internal/ticket"
	"github.com/spf13/cobra"
)

var (
	ticketsLimit int
	ticketsCount int
)

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Generate and save tickets from the top detected issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		records, err := eng.hist.Load(ticketsLimit)
		if err != nil {
			return fmt.Errorf("cannot load history: %w", err)
		}

		issues := issue.Detect(records)
		generated := ticket.FromIssues(issues, ticket.ScopeSelf, ticketsCount, eng.cfg.Runner.SafeSelfPaths)
		if len(generated) == 0 {
			fmt.Println("No tickets generated.")
			return nil
		}

		fmt.Printf("Generated %d ticket(s):\n", len(generated))
		for _, t := range generated {
			path, err := eng.tickets.Save(t)
			if err != nil {
				return fmt.Errorf("cannot save ticket %s: %w", t.ID, err)
			}
			fmt.Printf("- %s -> %s\n", t.ID, path)
		}
		return nil
	},
}

func init() {
	ticketsCmd.Flags().IntVar(&ticketsLimit, "limit", 200, "history records to scan")
	ticketsCmd.Flags().IntVar(&ticketsCount, "count", 5, "maximum tickets to generate")
	rootCmd.AddCommand(ticketsCmd)
}
