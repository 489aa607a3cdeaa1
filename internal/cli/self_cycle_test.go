package cli

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ghostfrog/meta/internal/agent"
	"github.com/ghostfrog/meta/internal/config"
	"github.com/ghostfrog/meta/internal/display"
	"github.com/ghostfrog/meta/internal/history"
	"github.com/ghostfrog/meta/internal/queue"
	"github.com/ghostfrog/meta/internal/runner"
	"github.com/ghostfrog/meta/internal/ticket"
)

type cyclePlanner struct{}

func (cyclePlanner) BuildPlan(ctx context.Context, prompt string) (*agent.Plan, error) {
	return &agent.Plan{Task: &agent.Task{Type: agent.TaskAnalysis}}, nil
}

func (cyclePlanner) RefineWithFiles(ctx context.Context, req agent.RefineRequest) (*agent.Task, error) {
	return req.BaseTask, nil
}

type cycleExecutor struct {
	calls int
}

func (e *cycleExecutor) ExecutePlan(ctx context.Context, plan *agent.Plan) (*agent.Report, error) {
	e.calls++
	return &agent.Report{Message: "done"}, nil
}

// newCycleEngine wires an engine over a temp root with a stubbed
// planner/executor and the given test command.
func newCycleEngine(t *testing.T, root string, oracleCmd []string, exec agent.Executor) *engine {
	t.Helper()
	cfg := config.DefaultConfig(root)
	disp := display.NewWithOptions(true)
	hist := history.NewStore(cfg.HistoryFile(), cfg.History.MaxRecords, cfg.History.RetentionDays)
	tickets := ticket.NewStore(cfg.TicketsDir())
	ledger := ticket.NewLedger(cfg.TicketHistoryFile())
	q := queue.New(cfg.QueueDir())
	oracle := runner.NewOracle(oracleCmd, 30*time.Second, root)
	run := runner.New(root, cyclePlanner{}, exec, oracle, hist, disp)

	return &engine{
		cfg:     cfg,
		disp:    disp,
		hist:    hist,
		tickets: tickets,
		ledger:  ledger,
		queue:   q,
		oracle:  oracle,
		proc: &queue.Processor{
			Runner:           run,
			Tickets:          tickets,
			Ledger:           ledger,
			Display:          disp,
			DefaultSafePaths: cfg.Runner.SafeSelfPaths,
		},
	}
}

func seedFailures(t *testing.T, hist *history.Store, summary string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		rec := history.NewRecord("self", "fail")
		rec.ErrorSummary = summary
		if err := hist.Append(rec); err != nil {
			t.Fatal(err)
		}
	}
}

func countTicketFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".json") {
			n++
		}
	}
	return n
}

func TestSelfCycleAbortsOnFailingBaseline(t *testing.T) {
	root := t.TempDir()
	exec := &cycleExecutor{}
	eng := newCycleEngine(t, root, []string{"sh", "-c", "exit 1"}, exec)
	seedFailures(t, eng.hist, "timeout in executor", 5)

	if err := eng.runSelfCycle(context.Background(), 200, 3, 1); err != nil {
		t.Fatalf("runSelfCycle() error = %v", err)
	}

	if n := countTicketFiles(t, eng.cfg.TicketsDir()); n != 0 {
		t.Errorf("%d ticket(s) created despite failing baseline, want 0", n)
	}
	if exec.calls != 0 {
		t.Errorf("executor invoked %d time(s) despite failing baseline, want 0", exec.calls)
	}
	if _, err := os.Stat(eng.cfg.TicketHistoryFile()); !os.IsNotExist(err) {
		t.Error("ledger written despite failing baseline")
	}
	if paths, _ := eng.queue.Pending(); len(paths) != 0 {
		t.Errorf("queue gained %d item(s) despite failing baseline", len(paths))
	}
}

func TestSelfCycleSkipsRecentlyCompletedTickets(t *testing.T) {
	root := t.TempDir()
	exec := &cycleExecutor{}
	eng := newCycleEngine(t, root, []string{"sh", "-c", "exit 0"}, exec)
	seedFailures(t, eng.hist, "timeout in executor", 5)

	ctx := context.Background()
	if err := eng.runSelfCycle(ctx, 200, 3, 1); err != nil {
		t.Fatalf("first runSelfCycle() error = %v", err)
	}
	if exec.calls == 0 {
		t.Fatal("first cycle never reached the executor")
	}
	callsAfterFirst := exec.calls
	ticketsAfterFirst := countTicketFiles(t, eng.cfg.TicketsDir())
	if ticketsAfterFirst == 0 {
		t.Fatal("first cycle created no tickets")
	}

	// The same failures still dominate history, so the second cycle
	// regenerates the same fingerprint and must skip it.
	if err := eng.runSelfCycle(ctx, 200, 3, 1); err != nil {
		t.Fatalf("second runSelfCycle() error = %v", err)
	}
	if exec.calls != callsAfterFirst {
		t.Errorf("executor invoked %d time(s) on the second cycle, want 0", exec.calls-callsAfterFirst)
	}
	if n := countTicketFiles(t, eng.cfg.TicketsDir()); n != ticketsAfterFirst {
		t.Errorf("second cycle created %d new ticket(s), want 0", n-ticketsAfterFirst)
	}
}

func TestFilterFresh(t *testing.T) {
	root := t.TempDir()
	eng := newCycleEngine(t, root, []string{"sh", "-c", "exit 0"}, &cycleExecutor{})

	a := &ticket.Ticket{ID: "T-a", Area: "tests", Title: "flaky", Description: "d"}
	b := &ticket.Ticket{ID: "T-b", Area: "other", Title: "slow", Description: "d"}

	if err := eng.ledger.MarkCompleted(a); err != nil {
		t.Fatal(err)
	}

	fresh := eng.filterFresh([]*ticket.Ticket{a, b})
	if len(fresh) != 1 || fresh[0].ID != "T-b" {
		t.Fatalf("filterFresh() = %v, want only the uncompleted ticket", fresh)
	}

	// Survivors get a created entry; completed ones get nothing new.
	data, err := os.ReadFile(eng.cfg.TicketHistoryFile())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Count(strings.TrimSpace(string(data)), "\n") + 1
	if lines != 2 {
		t.Errorf("ledger has %d lines, want completed + created", lines)
	}
}
