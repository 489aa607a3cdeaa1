package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ghostfrog/meta/internal/agent"
	"github.com/ghostfrog/meta/internal/display"
	"github.com/ghostfrog/meta/internal/history"
	"github.com/ghostfrog/meta/internal/ticket"
)

// fakePlanner returns a fixed plan and records refine calls.
type fakePlanner struct {
	plan       *agent.Plan
	planErr    error
	refineErr  error
	refineTask *agent.Task
	refined    int
}

func (f *fakePlanner) BuildPlan(ctx context.Context, prompt string) (*agent.Plan, error) {
	if f.planErr != nil {
		return nil, f.planErr
	}
	// Copy so filtering does not mutate the fixture between attempts.
	p := &agent.Plan{}
	if f.plan != nil && f.plan.Task != nil {
		task := *f.plan.Task
		task.Edits = append([]agent.Edit(nil), f.plan.Task.Edits...)
		p.Task = &task
	}
	return p, nil
}

func (f *fakePlanner) RefineWithFiles(ctx context.Context, req agent.RefineRequest) (*agent.Task, error) {
	f.refined++
	if f.refineErr != nil {
		return nil, f.refineErr
	}
	if f.refineTask != nil {
		return f.refineTask, nil
	}
	return req.BaseTask, nil
}

// fakeExecutor applies plan edits to disk and records what it saw.
type fakeExecutor struct {
	root    string
	message string
	execErr error
	calls   int
	gotPlan *agent.Plan
	onCall  func(call int)
}

func (f *fakeExecutor) ExecutePlan(ctx context.Context, plan *agent.Plan) (*agent.Report, error) {
	f.calls++
	f.gotPlan = plan
	if f.onCall != nil {
		f.onCall(f.calls)
	}
	if f.execErr != nil {
		return nil, f.execErr
	}
	for _, e := range plan.Edits() {
		path := filepath.Join(f.root, e.File)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte(e.Content), 0644); err != nil {
			return nil, err
		}
	}
	msg := f.message
	if msg == "" {
		msg = "applied edits"
	}
	return &agent.Report{Message: msg}, nil
}

func newTestRunner(t *testing.T, root string, planner agent.Planner, executor agent.Executor, oracleCmd []string) *Runner {
	t.Helper()
	hist := history.NewStore(filepath.Join(t.TempDir(), "history.jsonl"), 1000, 30)
	oracle := NewOracle(oracleCmd, 30*time.Second, root)
	return New(root, planner, executor, oracle, hist, display.NewWithOptions(true))
}

func codemodPlan(edits ...agent.Edit) *agent.Plan {
	return &agent.Plan{Task: &agent.Task{Type: agent.TaskCodemod, Edits: edits}}
}

func selfTicket(safePaths ...string) *ticket.Ticket {
	return &ticket.Ticket{
		ID:        "T-test-00001",
		Scope:     ticket.ScopeSelf,
		Area:      "tests",
		Title:     "test ticket",
		Priority:  ticket.PriorityMedium,
		SafePaths: safePaths,
		Kind:      ticket.KindSelfImprovement,
	}
}

func TestRunSelfImprovementCommitsOnPass(t *testing.T) {
	root := t.TempDir()
	planner := &fakePlanner{plan: codemodPlan(
		agent.Edit{File: "allowed/fix.txt", Operation: "replace_file", Content: "fixed"},
	)}
	executor := &fakeExecutor{root: root}
	r := newTestRunner(t, root, planner, executor, []string{"sh", "-c", "exit 0"})

	res := r.Run(context.Background(), selfTicket("allowed/"), 2)
	if !res.Success {
		t.Fatalf("Run() success = false, attempts: %+v", res.Attempts)
	}
	if len(res.Attempts) != 1 {
		t.Errorf("attempts = %d, want 1 (no retry after pass)", len(res.Attempts))
	}

	got, err := os.ReadFile(filepath.Join(root, "allowed", "fix.txt"))
	if err != nil {
		t.Fatalf("committed edit missing: %v", err)
	}
	if string(got) != "fixed" {
		t.Errorf("committed content = %q", got)
	}
	if res.PlannerReply == "" {
		t.Error("planner reply not captured")
	}
}

func TestRunSelfImprovementRestoresOnFail(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "allowed", "fix.txt"), "original")

	planner := &fakePlanner{plan: codemodPlan(
		agent.Edit{File: "allowed/fix.txt", Operation: "replace_file", Content: "broken"},
	)}
	executor := &fakeExecutor{root: root}
	r := newTestRunner(t, root, planner, executor, []string{"sh", "-c", "exit 1"})

	res := r.Run(context.Background(), selfTicket("allowed/"), 2)
	if res.Success {
		t.Fatal("Run() success = true with a failing test suite")
	}
	if len(res.Attempts) != 2 {
		t.Errorf("attempts = %d, want the full retry budget of 2", len(res.Attempts))
	}
	if res.LastError == "" {
		t.Error("LastError empty after failed run")
	}

	got, err := os.ReadFile(filepath.Join(root, "allowed", "fix.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "original" {
		t.Errorf("file = %q, want rolled back to original", got)
	}
}

func TestRunRetriesUntilTestsPass(t *testing.T) {
	root := t.TempDir()
	planner := &fakePlanner{plan: codemodPlan(
		agent.Edit{File: "allowed/fix.txt", Operation: "replace_file", Content: "try"},
	)}
	// The marker lives outside the safe paths, so rollback does not undo it.
	executor := &fakeExecutor{root: root, onCall: func(call int) {
		if call == 2 {
			writeFile(t, filepath.Join(root, "marker"), "ok")
		}
	}}
	r := newTestRunner(t, root, planner, executor, []string{"sh", "-c", "test -f marker"})

	res := r.Run(context.Background(), selfTicket("allowed/"), 3)
	if !res.Success {
		t.Fatalf("Run() success = false, attempts: %+v", res.Attempts)
	}
	if len(res.Attempts) != 2 {
		t.Errorf("attempts = %d, want success on the second", len(res.Attempts))
	}
}

func TestRunFiltersEditsOutsideSafePaths(t *testing.T) {
	root := t.TempDir()
	planner := &fakePlanner{plan: codemodPlan(
		agent.Edit{File: "allowed/fix.txt", Operation: "replace_file", Content: "ok"},
		agent.Edit{File: "secrets/keys.txt", Operation: "replace_file", Content: "nope"},
	)}
	executor := &fakeExecutor{root: root}
	r := newTestRunner(t, root, planner, executor, []string{"sh", "-c", "exit 0"})

	r.Run(context.Background(), selfTicket("allowed/"), 1)

	edits := executor.gotPlan.Edits()
	if len(edits) != 1 || edits[0].File != "allowed/fix.txt" {
		t.Fatalf("executor received %+v, want only the admissible edit", edits)
	}
	if _, err := os.Stat(filepath.Join(root, "secrets", "keys.txt")); !os.IsNotExist(err) {
		t.Error("edit outside safe paths reached the filesystem")
	}
}

func TestRunBlocksClobberingCreates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "allowed", "exists.txt"), "precious")

	planner := &fakePlanner{plan: codemodPlan(
		agent.Edit{File: "allowed/exists.txt", Operation: "create_or_overwrite_file", Content: "clobber"},
	)}
	executor := &fakeExecutor{root: root}
	r := newTestRunner(t, root, planner, executor, []string{"sh", "-c", "exit 0"})

	r.Run(context.Background(), selfTicket("allowed/"), 1)

	got, err := os.ReadFile(filepath.Join(root, "allowed", "exists.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "precious" {
		t.Errorf("existing file overwritten by a create: %q", got)
	}
}

func TestRunActionTicket(t *testing.T) {
	root := t.TempDir()
	planner := &fakePlanner{plan: &agent.Plan{Task: &agent.Task{Type: agent.TaskTool}}}
	// The message mentions "error" but action tickets still count as run.
	executor := &fakeExecutor{root: root, message: "tool reported an error"}
	// A failing oracle proves action tickets never consult the test suite.
	r := newTestRunner(t, root, planner, executor, []string{"sh", "-c", "exit 1"})

	tk := selfTicket()
	tk.Kind = ticket.KindAction

	res := r.Run(context.Background(), tk, 3)
	if !res.Success {
		t.Error("action ticket reported failure; the contract is attempted==done")
	}
	if len(res.Attempts) != 1 {
		t.Errorf("attempts = %d, want exactly 1 for action tickets", len(res.Attempts))
	}
	if res.Attempts[0].ResultLabel != "fail" {
		t.Errorf("delegation label = %q, want fail from the error message heuristic", res.Attempts[0].ResultLabel)
	}
}

func TestRunPlannerFailure(t *testing.T) {
	root := t.TempDir()
	planner := &fakePlanner{planErr: errors.New("backend unavailable")}
	executor := &fakeExecutor{root: root}
	r := newTestRunner(t, root, planner, executor, []string{"sh", "-c", "exit 1"})

	res := r.Run(context.Background(), selfTicket("allowed/"), 2)
	if res.Success {
		t.Fatal("Run() success with a failing planner")
	}
	if executor.calls != 0 {
		t.Errorf("executor called %d times after planner failure, want 0", executor.calls)
	}
	if res.Attempts[0].ErrorSummary == "" {
		t.Error("planner failure not surfaced in the attempt")
	}
}

func TestRunRefineFailureKeepsFirstPass(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "allowed", "fix.txt"), "current contents")

	planner := &fakePlanner{
		plan: codemodPlan(
			agent.Edit{File: "allowed/fix.txt", Operation: "replace_file", Content: "v2"},
		),
		refineErr: errors.New("refine backend down"),
	}
	executor := &fakeExecutor{root: root}
	r := newTestRunner(t, root, planner, executor, []string{"sh", "-c", "exit 0"})

	res := r.Run(context.Background(), selfTicket("allowed/"), 1)
	if !res.Success {
		t.Fatalf("Run() failed: %+v", res.Attempts)
	}
	if planner.refined != 1 {
		t.Errorf("refine called %d times, want 1", planner.refined)
	}
	got, _ := os.ReadFile(filepath.Join(root, "allowed", "fix.txt"))
	if string(got) != "v2" {
		t.Errorf("first-pass plan not applied after refine failure: %q", got)
	}
}

func TestOracle(t *testing.T) {
	t.Run("pass", func(t *testing.T) {
		o := NewOracle([]string{"sh", "-c", "echo ok"}, 10*time.Second, t.TempDir())
		ok, out := o.Run(context.Background())
		if !ok {
			t.Errorf("passing command reported failure: %s", out)
		}
	})

	t.Run("fail with output", func(t *testing.T) {
		o := NewOracle([]string{"sh", "-c", "echo boom; exit 1"}, 10*time.Second, t.TempDir())
		ok, out := o.Run(context.Background())
		if ok {
			t.Error("failing command reported success")
		}
		if out == "" {
			t.Error("output lost on failure")
		}
	})

	t.Run("timeout", func(t *testing.T) {
		o := NewOracle([]string{"sleep", "5"}, 100*time.Millisecond, t.TempDir())
		ok, out := o.Run(context.Background())
		if ok {
			t.Error("timed-out command reported success")
		}
		if out == "" {
			t.Error("timeout produced no diagnostic")
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		o := NewOracle([]string{"definitely-not-a-command-xyz"}, 10*time.Second, t.TempDir())
		ok, out := o.Run(context.Background())
		if ok {
			t.Error("missing binary reported success")
		}
		if out == "" {
			t.Error("crash produced no diagnostic")
		}
	})

	t.Run("no command configured", func(t *testing.T) {
		o := NewOracle(nil, 0, t.TempDir())
		if ok, _ := o.Run(context.Background()); ok {
			t.Error("empty command reported success")
		}
	})
}

func TestBuildPrompts(t *testing.T) {
	tk := selfTicket("prompts/", "rules/")
	tk.Title = "Fix the flaky suite"

	self := BuildSelfImprovementPrompt(tk)
	for _, want := range []string{"Fix the flaky suite", "- prompts/", "- rules/", "SELF-IMPROVEMENT"} {
		if !strings.Contains(self, want) {
			t.Errorf("self-improvement prompt missing %q", want)
		}
	}

	action := BuildActionPrompt(tk)
	for _, want := range []string{"Fix the flaky suite", "ACTION mode", "tools-only"} {
		if !strings.Contains(action, want) {
			t.Errorf("action prompt missing %q", want)
		}
	}
}
