package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Remove rotated history archives past the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		removed, err := eng.hist.Vacuum()
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d archive(s).\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vacuumCmd)
}
