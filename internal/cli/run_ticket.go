package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghostfrog/meta/internal/ticket"
)

var (
	runTicketID      string
	runTicketFile    string
	runTicketRetries int
)

var runTicketCmd = &cobra.Command{
	Use:   "run_ticket",
	Short: "Run a single ticket by id or file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runTicketID == "" && runTicketFile == "" {
			return fmt.Errorf("one of --id or --file is required")
		}

		eng, err := newEngine()
		if err != nil {
			return err
		}

		var t *ticket.Ticket
		if runTicketFile != "" {
			t, err = ticket.LoadFromPath(runTicketFile)
		} else {
			t, err = eng.tickets.LoadByID(runTicketID)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Running ticket %s [%s]...\n", t.ID, t.Priority)
		res := eng.proc.RunTicket(context.Background(), t, retriesFor(cmd, runTicketRetries, eng.cfg))
		eng.disp.Result(t.ID, res.Success)
		return nil
	},
}

func init() {
	runTicketCmd.Flags().StringVar(&runTicketID, "id", "", "ticket id to run")
	runTicketCmd.Flags().StringVar(&runTicketFile, "file", "", "path to a ticket JSON file")
	runTicketCmd.Flags().IntVar(&runTicketRetries, "retries", 2, "attempts before giving up")
	rootCmd.AddCommand(runTicketCmd)
}
