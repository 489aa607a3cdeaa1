// Package queue implements the durable, file-backed work queue that
// sequences ticket execution. One file per enqueued item; terminal states
// are renames (.done/.failed) or removal, never in-place mutation.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ghostfrog/meta/internal/display"
	"github.com/ghostfrog/meta/internal/issue"
	"github.com/ghostfrog/meta/internal/runner"
	"github.com/ghostfrog/meta/internal/ticket"
	"github.com/google/uuid"
)

// Item is one durable queue entry. It embeds enough of the ticket to
// reconstruct a runnable unit if the ticket file disappears.
type Item struct {
	Kind      string   `json:"kind"`
	TicketID  string   `json:"ticket_id"`
	Scope     string   `json:"scope"`
	Prompt    string   `json:"prompt"`
	SafePaths []string `json:"safe_paths"`
	CreatedAt string   `json:"created_at"`
}

// Queue is the file-backed work queue.
type Queue struct {
	dir string
}

// New creates a queue over the given directory.
func New(dir string) *Queue {
	return &Queue{dir: dir}
}

// Dir returns the queue directory.
func (q *Queue) Dir() string {
	return q.dir
}

// Enqueue writes a queue item for the ticket. The filename combines a
// timestamp and the ticket id so a sorted listing is chronological.
func (q *Queue) Enqueue(t *ticket.Ticket) (string, error) {
	if err := os.MkdirAll(q.dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create queue directory: %w", err)
	}

	item := Item{
		Kind:      string(ticket.KindSelfImprovement),
		TicketID:  t.ID,
		Scope:     t.Scope,
		Prompt:    runner.BuildSelfImprovementPrompt(t),
		SafePaths: t.SafePaths,
		CreatedAt: t.CreatedAt,
	}
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return "", fmt.Errorf("cannot marshal queue item: %w", err)
	}

	ts := time.Now().UTC().Format("20060102-150405")
	path := filepath.Join(q.dir, fmt.Sprintf("self_improvement_%s_%s.json", ts, t.ID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("cannot write queue item: %w", err)
	}
	return path, nil
}

// Pending lists active queue item paths in chronological order. Completed
// (.done) and kept-failed (.failed) entries are inert and skipped.
func (q *Queue) Pending() ([]string, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read queue directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") ||
			strings.HasSuffix(name, ".done.json") ||
			strings.HasSuffix(name, ".failed.json") {
			continue
		}
		paths = append(paths, filepath.Join(q.dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// PendingOfKind lists pending item paths whose kind matches, in
// chronological order. Unparseable items are skipped.
func (q *Queue) PendingOfKind(kind string) ([]string, error) {
	paths, err := q.Pending()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, path := range paths {
		item, err := readItem(path)
		if err != nil || item.Kind != kind {
			continue
		}
		out = append(out, path)
	}
	return out, nil
}

// readItem loads one queue item, skipping files that do not parse.
func readItem(path string) (*Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Processor runs tickets end to end: through the mutation runner, then
// records the terminal state in the ledger and the ticket's persisted
// status fields.
type Processor struct {
	Runner  *runner.Runner
	Tickets *ticket.Store
	Ledger  *ticket.Ledger
	Display *display.Display

	// DefaultSafePaths is the allow-list applied to reconstructed tickets
	// whose queue item carries none.
	DefaultSafePaths []string
}

// RunTicket executes one ticket and finalizes its persisted state. On
// success the ticket goes to "done"; on failure it returns to "open" with
// last_error populated so the UI can surface it.
func (p *Processor) RunTicket(ctx context.Context, t *ticket.Ticket, retries int) *runner.Result {
	res := p.Runner.Run(ctx, t, retries)

	if res.Success {
		if err := p.Ledger.MarkCompleted(t); err != nil {
			p.Display.Warning(fmt.Sprintf("cannot record completion in ledger: %v", err))
		}
		p.updateStatus(t, "done", "OK", "", res)
		return res
	}

	lastErr := res.LastError
	if lastErr == "" {
		lastErr = "test suite failed"
	}
	if err := p.Ledger.MarkFailed(t, lastErr); err != nil {
		p.Display.Warning(fmt.Sprintf("cannot record failure in ledger: %v", err))
	}
	p.updateStatus(t, "open", "FAILED", lastErr, res)
	return res
}

func (p *Processor) updateStatus(t *ticket.Ticket, status, result, lastErr string, res *runner.Result) {
	update := ticket.StatusUpdate{
		Status:          &status,
		LastResult:      &result,
		LastExecMessage: &res.LastExecMessage,
		PlannerReply:    &res.PlannerReply,
		ExecutorSummary: &res.LastExecMessage,
	}
	if lastErr != "" {
		update.LastError = &lastErr
	}
	if err := p.Tickets.UpdateStatus(t.ID, update); err != nil {
		p.Display.Warning(fmt.Sprintf("cannot update ticket %s status: %v", t.ID, err))
	}
}

// RunAll processes every pending self-improvement item in order. On
// success the item is renamed to .done.json as an audit trail; on failure
// it is renamed to .failed.json when keepFailed is set, removed otherwise.
// Returns the number of items processed.
func (q *Queue) RunAll(ctx context.Context, p *Processor, retries int, keepFailed bool) (int, error) {
	paths, err := q.Pending()
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, path := range paths {
		item, err := readItem(path)
		if err != nil || item.Kind != string(ticket.KindSelfImprovement) {
			continue
		}

		t := q.resolveTicket(item, p)
		p.Display.Info("run_queue", fmt.Sprintf("running ticket %s", t.ID))

		res := p.RunTicket(ctx, t, retries)
		processed++

		if res.Success {
			if err := os.Rename(path, terminalName(path, "done")); err != nil {
				p.Display.Warning(fmt.Sprintf("cannot mark queue item done: %v", err))
			}
			continue
		}
		if keepFailed {
			if err := os.Rename(path, terminalName(path, "failed")); err != nil {
				p.Display.Warning(fmt.Sprintf("cannot mark queue item failed: %v", err))
			}
		} else if err := os.Remove(path); err != nil {
			p.Display.Warning(fmt.Sprintf("cannot remove failed queue item: %v", err))
		}
	}
	return processed, nil
}

// resolveTicket looks the queue item's ticket up in the store, falling
// back to a minimal reconstruction from the item's own fields when the
// ticket file is missing. The reconstruction is saved so later runs and
// the UI see it.
func (q *Queue) resolveTicket(item *Item, p *Processor) *ticket.Ticket {
	if item.TicketID != "" {
		if t, err := p.Tickets.LoadByID(item.TicketID); err == nil {
			return t
		}
	}

	id := item.TicketID
	if id == "" {
		id = "Q-" + uuid.NewString()[:8]
	}
	scope := item.Scope
	if scope == "" {
		scope = ticket.ScopeSelf
	}
	createdAt := item.CreatedAt
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}
	safePaths := item.SafePaths
	if len(safePaths) == 0 {
		safePaths = append([]string(nil), p.DefaultSafePaths...)
	}

	t := &ticket.Ticket{
		ID:          id,
		Scope:       scope,
		Area:        issue.AreaOther,
		Title:       fmt.Sprintf("Queued self-improvement (%s)", id),
		Description: truncatePrompt(item.Prompt),
		Evidence:    []string{"Queue item"},
		Priority:    ticket.PriorityMedium,
		CreatedAt:   createdAt,
		SafePaths:   safePaths,
		RawIssueKey: "queue:" + id,
		Kind:        ticket.KindSelfImprovement,
	}
	if _, err := p.Tickets.Save(t); err != nil {
		p.Display.Warning(fmt.Sprintf("cannot save reconstructed ticket %s: %v", id, err))
	}
	return t
}

func terminalName(path, state string) string {
	return strings.TrimSuffix(path, ".json") + "." + state + ".json"
}

func truncatePrompt(s string) string {
	if len(s) <= 4000 {
		return s
	}
	return s[:4000]
}
