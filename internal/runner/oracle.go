package runner

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Oracle invokes the project's test suite as a subprocess. It is the sole
// arbiter of whether a self-improvement attempt is kept or rolled back.
type Oracle struct {
	Command []string
	Timeout time.Duration
	WorkDir string
}

// NewOracle creates a test oracle for the given command.
func NewOracle(command []string, timeout time.Duration, workDir string) *Oracle {
	return &Oracle{Command: command, Timeout: timeout, WorkDir: workDir}
}

// Run executes the test command bounded by the oracle's timeout and
// returns pass/fail plus the combined output. A crash launching the
// runner, or a timeout, counts as a failing run, never as an error.
func (o *Oracle) Run(ctx context.Context) (bool, string) {
	if len(o.Command) == 0 {
		return false, "test oracle: no command configured"
	}

	runCtx := ctx
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, o.Command[0], o.Command[1:]...)
	cmd.Dir = o.WorkDir
	out, err := cmd.CombinedOutput()

	if runCtx.Err() == context.DeadlineExceeded {
		return false, fmt.Sprintf("test run timed out after %s\n%s", o.Timeout, out)
	}
	if err != nil {
		if len(out) == 0 {
			return false, fmt.Sprintf("test runner crashed: %v", err)
		}
		return false, string(out)
	}
	return true, string(out)
}
