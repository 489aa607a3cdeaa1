package cli

import (
	"os"
	"time"

	"github.com/ghostfrog/meta/internal/agent"
	"github.com/ghostfrog/meta/internal/config"
	"github.com/ghostfrog/meta/internal/display"
	"github.com/ghostfrog/meta/internal/history"
	"github.com/ghostfrog/meta/internal/queue"
	"github.com/ghostfrog/meta/internal/runner"
	"github.com/ghostfrog/meta/internal/ticket"
)

// engine wires the configured components together once per invocation.
// All path and policy decisions come from the config object; nothing
// reads ambient globals.
type engine struct {
	cfg     *config.Config
	disp    *display.Display
	hist    *history.Store
	tickets *ticket.Store
	ledger  *ticket.Ledger
	queue   *queue.Queue
	oracle  *runner.Oracle
	proc    *queue.Processor
}

func newEngine() (*engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}

	disp := display.NewWithOptions(noColor)

	hist := history.NewStore(
		cfg.HistoryFile(),
		cfg.History.MaxRecords,
		cfg.History.RetentionDays,
		history.WithWarnFunc(func(format string, args ...any) {
			disp.Warning(warnf(format, args...))
		}),
	)

	tickets := ticket.NewStore(cfg.TicketsDir())
	ledger := ticket.NewLedger(cfg.TicketHistoryFile())
	q := queue.New(cfg.QueueDir())

	oracle := runner.NewOracle(
		cfg.Tests.Command,
		time.Duration(cfg.Tests.TimeoutSecs)*time.Second,
		cfg.RootDir,
	)

	sub := agent.NewSubprocess(cfg.Agent.Binary, cfg.RootDir)
	run := runner.New(cfg.RootDir, sub, sub, oracle, hist, disp)

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
	}, nil
}

// dedupWindow returns the ledger lookback used to skip freshly fixed work.
func (e *engine) dedupWindow() time.Duration {
	return time.Duration(e.cfg.Runner.DedupWindowHours) * time.Hour
}
