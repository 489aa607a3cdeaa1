// Package runner drives the sandboxed mutate-verify-rollback protocol:
// snapshot the allow-listed paths, delegate to the external planner and
// executor, validate with the test oracle, and restore on failure, up to
// a bounded attempt count.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghostfrog/meta/internal/agent"
	"github.com/ghostfrog/meta/internal/display"
	"github.com/ghostfrog/meta/internal/history"
	"github.com/ghostfrog/meta/internal/safepath"
	"github.com/ghostfrog/meta/internal/ticket"
)

// maxFileContext caps how much of a referenced file is loaded into the
// refine pass prompt.
const maxFileContext = 20000

// maxLoggedTestOutput caps the test output recorded in history.
const maxLoggedTestOutput = 800

// Runner executes tickets through the sandbox protocol.
type Runner struct {
	root     string
	planner  agent.Planner
	executor agent.Executor
	oracle   *Oracle
	history  *history.Store
	display  *display.Display
}

// New creates a runner rooted at the project directory the allow-lists
// are resolved against.
func New(root string, planner agent.Planner, executor agent.Executor, oracle *Oracle, hist *history.Store, disp *display.Display) *Runner {
	return &Runner{
		root:     root,
		planner:  planner,
		executor: executor,
		oracle:   oracle,
		history:  hist,
		display:  disp,
	}
}

// Attempt records one pass through the sandbox protocol.
type Attempt struct {
	Attempt      int
	ResultLabel  string
	ErrorSummary string
	TestsOK      bool
	TestOutput   string
	ExecMessage  string
	PlannerReply string
}

// Result is the aggregate outcome of running one ticket.
type Result struct {
	Success         bool
	Attempts        []Attempt
	LastError       string
	PlannerReply    string
	LastExecMessage string
}

// Run executes a ticket. Action tickets get a single delegated run and
// are treated as successful once the executor ran: the contract there is
// "we attempted the action", deliberately narrower than the validated
// self-improvement path.
func (r *Runner) Run(ctx context.Context, t *ticket.Ticket, maxAttempts int) *Result {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	if t.Kind == ticket.KindAction {
		d := r.delegate(ctx, BuildActionPrompt(t), t)
		return &Result{
			Success: true,
			Attempts: []Attempt{{
				Attempt:      1,
				ResultLabel:  d.resultLabel,
				ErrorSummary: d.errorSummary,
				TestsOK:      true,
				ExecMessage:  d.execMessage,
				PlannerReply: d.plannerReply,
			}},
			PlannerReply:    d.plannerReply,
			LastExecMessage: d.execMessage,
		}
	}

	res := &Result{}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		snap := TakeSnapshot(r.root, t.SafePaths)

		d := r.delegate(ctx, BuildSelfImprovementPrompt(t), t)

		testsOK, testOut := r.oracle.Run(ctx)

		rec := history.NewRecord(targetFor(t), resultLabel(testsOK))
		rec.Tests = testsLabel(testsOK)
		if !testsOK {
			rec.ErrorSummary = truncate(testOut, maxLoggedTestOutput)
		}
		rec.HumanFixRequired = !testsOK
		rec.Extra = map[string]any{
			"ticket_id":  t.ID,
			"attempt":    attempt,
			"self_cycle": true,
		}
		if err := r.history.Append(rec); err != nil {
			r.display.Warning(fmt.Sprintf("cannot record attempt in history: %v", err))
		}

		res.Attempts = append(res.Attempts, Attempt{
			Attempt:      attempt,
			ResultLabel:  d.resultLabel,
			ErrorSummary: d.errorSummary,
			TestsOK:      testsOK,
			TestOutput:   testOut,
			ExecMessage:  d.execMessage,
			PlannerReply: d.plannerReply,
		})
		res.PlannerReply = d.plannerReply
		res.LastExecMessage = d.execMessage

		if testsOK {
			res.Success = true
			break
		}

		res.LastError = testOut
		restore := RestoreSnapshot(r.root, snap)
		if len(restore.Failed) > 0 {
			r.display.Warning(fmt.Sprintf("restore incomplete, %d path(s) failed: %s",
				len(restore.Failed), strings.Join(restore.Failed, ", ")))
		}
	}
	return res
}

// delegation holds the outcome of one planner/executor round trip.
type delegation struct {
	resultLabel  string
	errorSummary string
	execMessage  string
	plannerReply string
}

// delegate runs the plan → filter → refine → filter → anti-clobber →
// execute pipeline. Collaborator failures become failed delegations, not
// errors: the attempt is recorded and the retry loop decides what's next.
func (r *Runner) delegate(ctx context.Context, prompt string, t *ticket.Ticket) delegation {
	plan, err := r.planner.BuildPlan(ctx, prompt)
	if err != nil {
		r.logDelegation(t, "fail", agent.TaskAnalysis)
		return delegation{resultLabel: "fail", errorSummary: fmt.Sprintf("planner failed: %v", err)}
	}

	if edits := plan.Edits(); len(edits) > 0 {
		filtered := safepath.Filter(edits, t.SafePaths)
		if len(filtered.Dropped) > 0 {
			r.display.Warning(fmt.Sprintf("dropped edits outside safe paths: %s",
				strings.Join(filtered.Dropped, ", ")))
		}
		plan.SetEdits(filtered.Kept)
	}

	if plan.TaskType() == agent.TaskCodemod && len(plan.Edits()) > 0 && len(t.SafePaths) > 0 {
		r.refine(ctx, prompt, plan, t)
	}

	if edits := plan.Edits(); len(edits) > 0 {
		blocked := safepath.BlockClobbers(r.root, edits)
		if len(blocked.Dropped) > 0 {
			r.display.Warning(fmt.Sprintf("blocked create-or-overwrite on existing files: %s",
				strings.Join(blocked.Dropped, ", ")))
		}
		plan.SetEdits(blocked.Kept)
	}

	// Keep the full plan JSON so operators can see exactly what the
	// planner decided.
	plannerReply := ""
	if data, err := json.MarshalIndent(plan, "", "  "); err == nil {
		plannerReply = string(data)
	}

	report, err := r.executor.ExecutePlan(ctx, plan)
	if err != nil {
		r.logDelegation(t, "fail", plan.TaskType())
		return delegation{
			resultLabel:  "fail",
			errorSummary: fmt.Sprintf("executor failed: %v", err),
			plannerReply: plannerReply,
		}
	}

	label := "success"
	errSummary := ""
	msg := strings.ToLower(report.Message)
	if strings.Contains(msg, "error") || strings.Contains(msg, "failed") {
		label = "fail"
		errSummary = report.Message
	}

	r.logDelegation(t, label, plan.TaskType())

	return delegation{
		resultLabel:  label,
		errorSummary: errSummary,
		execMessage:  report.Message,
		plannerReply: plannerReply,
	}
}

// refine runs the optional second planning pass with the referenced
// files' current contents. A refine failure keeps the first-pass task.
func (r *Runner) refine(ctx context.Context, prompt string, plan *agent.Plan, t *ticket.Ticket) {
	contexts := r.buildFileContexts(plan.Edits())
	if len(contexts) == 0 {
		return
	}

	refined, err := r.planner.RefineWithFiles(ctx, agent.RefineRequest{
		Prompt:       prompt,
		BaseTask:     plan.Task,
		FileContexts: contexts,
	})
	if err != nil {
		r.display.Warning(fmt.Sprintf("refine pass failed, keeping first-pass plan: %v", err))
		return
	}

	filtered := safepath.Filter(refined.Edits, t.SafePaths)
	if len(filtered.Dropped) > 0 {
		r.display.Warning(fmt.Sprintf("dropped edits on refine pass: %s",
			strings.Join(filtered.Dropped, ", ")))
	}
	refined.Edits = filtered.Kept
	plan.Task = refined
}

// buildFileContexts reads the files referenced by edits, relative to the
// project root, skipping missing ones and truncating very large files.
func (r *Runner) buildFileContexts(edits []agent.Edit) map[string]string {
	contexts := make(map[string]string)
	for _, e := range edits {
		rel := strings.TrimSpace(e.File)
		if rel == "" {
			continue
		}
		if _, seen := contexts[rel]; seen {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.root, rel))
		if err != nil {
			continue
		}
		text := string(data)
		if len(text) > maxFileContext {
			text = text[:maxFileContext] + "\n\n<!-- truncated -->"
		}
		contexts[rel] = text
	}
	return contexts
}

// logDelegation records the executor round trip itself, separate from the
// test-validated attempt record.
func (r *Runner) logDelegation(t *ticket.Ticket, label, taskType string) {
	rec := history.NewRecord(targetFor(t), label)
	rec.Tests = "not_run"
	rec.Extra = map[string]any{
		"ticket_id": t.ID,
		"task_type": taskType,
	}
	if err := r.history.Append(rec); err != nil {
		r.display.Warning(fmt.Sprintf("cannot record delegation in history: %v", err))
	}
}

func targetFor(t *ticket.Ticket) string {
	if t.Scope != "" {
		return t.Scope
	}
	return ticket.ScopeSelf
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "fail"
}

func testsLabel(ok bool) string {
	if ok {
		return "pass"
	}
	return "fail"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
