package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghostfrog/meta/internal/issue"
	"github.com/ghostfrog/meta/internal/ticket"
)

var (
	selfCycleLimit   int
	selfCycleCount   int
	selfCycleRetries int
)

var selfCycleCmd = &cobra.Command{
	Use:   "self_cycle",
	Short: "Generate deduped tickets and run them immediately",
	Long: `Run the full generate-and-fix cycle in one shot.

The baseline test suite runs first; if it fails the cycle aborts without
generating anything, so pre-existing breakage is never attributed to
newly detected issues. Tickets whose fingerprint was completed within the
dedup window are skipped to prevent re-fixing the same issue every cycle.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		retries := retriesFor(cmd, selfCycleRetries, eng.cfg)
		return eng.runSelfCycle(context.Background(), selfCycleLimit, selfCycleCount, retries)
	},
}

// runSelfCycle runs the generate-dedup-run cycle: baseline tests, issue
// detection, ticket generation, ledger dedup, immediate execution.
func (e *engine) runSelfCycle(ctx context.Context, limit, count, retries int) error {
	fmt.Println("Running baseline tests...")
	ok, out := e.oracle.Run(ctx)
	if !ok {
		fmt.Println("Baseline tests FAILED. Aborting self_cycle.")
		fmt.Println(truncateHead(out, 400))
		return nil
	}

	records, err := e.hist.Load(limit)
	if err != nil {
		return fmt.Errorf("cannot load history: %w", err)
	}

	issues := issue.Detect(records)
	generated := ticket.FromIssues(issues, ticket.ScopeSelf, count, e.cfg.Runner.SafeSelfPaths)

	fresh := e.filterFresh(generated)
	if len(fresh) == 0 {
		fmt.Println("No tickets to run.")
		return nil
	}

	fmt.Printf("Running %d ticket(s)...\n", len(fresh))
	for _, t := range fresh {
		if _, err := e.tickets.Save(t); err != nil {
			return fmt.Errorf("cannot save ticket %s: %w", t.ID, err)
		}
		res := e.proc.RunTicket(ctx, t, retries)
		label := "FAILED"
		if res.Success {
			label = "OK"
		}
		fmt.Printf("- %s [%s] %s\n", t.ID, t.Priority, label)
	}
	return nil
}

// filterFresh drops tickets whose fingerprint completed within the dedup
// window and records a created entry for the ones that survive.
func (e *engine) filterFresh(tickets []*ticket.Ticket) []*ticket.Ticket {
	var out []*ticket.Ticket
	for _, t := range tickets {
		fp := ticket.Fingerprint(t)
		recent, err := e.ledger.RecentlyCompleted(fp, e.dedupWindow())
		if err != nil {
			e.disp.Warning(fmt.Sprintf("cannot check ticket ledger: %v", err))
		}
		if recent {
			fmt.Printf("Skipping duplicate ticket %s\n", t.Title)
			continue
		}
		if err := e.ledger.Append(fp, ticket.LedgerCreated, nil); err != nil {
			e.disp.Warning(fmt.Sprintf("cannot record ticket creation: %v", err))
		}
		out = append(out, t)
	}
	return out
}

func init() {
	selfCycleCmd.Flags().IntVar(&selfCycleLimit, "limit", 200, "history records to scan")
	selfCycleCmd.Flags().IntVar(&selfCycleCount, "count", 3, "maximum tickets to run")
	selfCycleCmd.Flags().IntVar(&selfCycleRetries, "retries", 2, "attempts per ticket")
	rootCmd.AddCommand(selfCycleCmd)
}
