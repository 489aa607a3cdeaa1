package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghostfrog/meta/internal/config"
)

// warnf formats a warn-hook message for display.
func warnf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// retriesFor returns the attempt budget: the --retries flag when the
// operator set it, otherwise the configured default.
func retriesFor(cmd *cobra.Command, flagValue int, cfg *config.Config) int {
	if cmd.Flags().Changed("retries") {
		return flagValue
	}
	return cfg.Runner.DefaultRetries
}

// truncateHead returns at most n bytes from the start of s.
func truncateHead(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
