package cli

import (
	"fmt"

	"github.com/ghostfrog/meta/internal/issue"
	"github.com/ghostfrog/meta/internal/ticket"
	"github.com/spf13/cobra"
)

var (
	newTicketTitle       string
	newTicketDescription string
	newTicketArea        string
	newTicketPriority    string
	newTicketScope       string
	newTicketPaths       []string
)

var newTicketCmd = &cobra.Command{
	Use:   "new_ticket",
	Short: "Create a ticket manually",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !validArea(newTicketArea) {
			return fmt.Errorf("invalid area %q, must be one of: planner, executor, tests, other", newTicketArea)
		}
		p := ticket.Priority(newTicketPriority)
		if !p.IsValid() {
			return fmt.Errorf("invalid priority %q, must be one of: %v", newTicketPriority, ticket.AllPriorities())
		}

		eng, err := newEngine()
		if err != nil {
			return err
		}

		t := ticket.NewManual(
			newTicketTitle,
			newTicketDescription,
			newTicketArea,
			p,
			newTicketScope,
			newTicketPaths,
			eng.cfg.Runner.SafeSelfPaths,
		)

		path, err := eng.tickets.Save(t)
		if err != nil {
			return fmt.Errorf("cannot save ticket: %w", err)
		}
		fmt.Println("Created:")
		fmt.Println(path)
		return nil
	},
}

func validArea(area string) bool {
	switch area {
	case issue.AreaPlanner, issue.AreaExecutor, issue.AreaTests, issue.AreaOther:
		return true
	}
	return false
}

func init() {
	newTicketCmd.Flags().StringVar(&newTicketTitle, "title", "", "ticket title")
	newTicketCmd.Flags().StringVar(&newTicketDescription, "description", "", "ticket description")
	newTicketCmd.Flags().StringVar(&newTicketArea, "area", issue.AreaOther, "functional area (planner, executor, tests, other)")
	newTicketCmd.Flags().StringVar(&newTicketPriority, "priority", string(ticket.PriorityMedium), "priority (low, medium, high)")
	newTicketCmd.Flags().StringVar(&newTicketScope, "scope", ticket.ScopeSelf, "ticket scope")
	newTicketCmd.Flags().StringSliceVar(&newTicketPaths, "paths", nil, "allow-listed paths the ticket may touch")
	rootCmd.AddCommand(newTicketCmd)
}
