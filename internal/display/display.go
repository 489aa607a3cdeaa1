// Package display provides unified output formatting for the meta CLI.
// Engine status lines, dropped-edit warnings, and per-ticket results all
// route through here so operators see one consistent stream.
package display

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

// Display handles all CLI output
type Display struct {
	theme     *Theme
	termWidth int
	noColor   bool
}

// New creates a new Display instance
func New() *Display {
	return NewWithOptions(false)
}

// NewWithOptions creates a Display with configuration
func NewWithOptions(noColor bool) *Display {
	d := &Display{
		termWidth: getTerminalWidth(),
		noColor:   noColor,
	}
	if noColor {
		d.theme = NoColorTheme()
	} else {
		d.theme = DefaultTheme()
	}
	return d
}

// getTerminalWidth returns the terminal width, defaulting to 80
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 40 {
		return 80
	}
	if width > 120 {
		return 120 // Cap at 120 for readability
	}
	return width
}

// Status prints a single timestamped status line
func (d *Display) Status(symbol, message string) {
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("%s %s %s\n",
		d.theme.Timestamp(timestamp),
		symbol,
		d.theme.Text(message))
}

// Success prints a success message with green checkmark
func (d *Display) Success(message string) {
	d.Status(d.theme.Success(SymbolSuccess), message)
}

// Error prints an error message with red X
func (d *Display) Error(message string) {
	d.Status(d.theme.Error(SymbolError), message)
}

// Warning prints a warning message with yellow triangle
func (d *Display) Warning(message string) {
	d.Status(d.theme.Warning(SymbolWarning), message)
}

// Info prints an info message with a cyan label
func (d *Display) Info(label, message string) {
	d.Status(d.theme.Info(label+":"), message)
}

// Result prints a per-ticket OK/FAILED line
func (d *Display) Result(id string, ok bool) {
	if ok {
		fmt.Printf("- %s → %s\n", id, d.theme.Success("OK"))
	} else {
		fmt.Printf("- %s → %s\n", id, d.theme.Error("FAILED"))
	}
}

// Plain prints an uncolored line, for machine-scrapeable output
func (d *Display) Plain(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}
