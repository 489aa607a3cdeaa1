package cli

import (
	"fmt"

	"github.com/ghostfrog/meta/internal/ticket"
	"github.com/spf13/cobra"
)

var enqueueTicketFile string

var enqueueTicketCmd = &cobra.Command{
	Use:   "enqueue_ticket",
	Short: "Enqueue an existing ticket file",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		t, err := ticket.LoadFromPath(enqueueTicketFile)
		if err != nil {
			return fmt.Errorf("cannot load ticket: %w", err)
		}

		qpath, err := eng.queue.Enqueue(t)
		if err != nil {
			return fmt.Errorf("cannot enqueue ticket: %w", err)
		}
		fmt.Println("Enqueued:")
		fmt.Println(qpath)
		return nil
	},
}

func init() {
	enqueueTicketCmd.Flags().StringVar(&enqueueTicketFile, "file", "", "ticket JSON file to enqueue")
	enqueueTicketCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(enqueueTicketCmd)
}
