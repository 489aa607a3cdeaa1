// Package ticket implements the persisted unit of remediation work: the
// ticket data model, the factory that materializes tickets from detected
// issues, the JSON file store, content fingerprinting, and the
// fingerprint ledger used for dedup.
package ticket

import "fmt"

// Scope distinguishes what a ticket is allowed to fix.
const (
	ScopeSelf    = "self"    // the engine's own code and files
	ScopeProduct = "product" // the wider product
)

// Priority represents ticket urgency derived from evidence volume
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid checks if a priority value is valid
func (p Priority) IsValid() bool {
	for _, valid := range AllPriorities() {
		if p == valid {
			return true
		}
	}
	return false
}

// AllPriorities returns all valid priority values
func AllPriorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// String returns the string representation of the priority
func (p Priority) String() string {
	return string(p)
}

// Kind distinguishes code-change tickets from external-action tickets.
type Kind string

const (
	// KindSelfImprovement tickets change files and are validated by the
	// test oracle inside the snapshot/restore sandbox.
	KindSelfImprovement Kind = "self_improvement"
	// KindAction tickets perform external side effects through tools.
	// They are not validated by tests and get no snapshot/restore.
	KindAction Kind = "action"
)

// IsValid checks if a kind value is valid
func (k Kind) IsValid() bool {
	return k == KindSelfImprovement || k == KindAction
}

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// Ticket is the unit of work. The JSON tags are the on-disk wire format
// consumed by the web UI and must stay backward compatible; last_bob_reply
// and last_chad_summary keep their historical names for that reason.
type Ticket struct {
	ID          string   `json:"id"`
	Scope       string   `json:"scope"`
	Area        string   `json:"area"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Evidence    []string `json:"evidence"`
	Priority    Priority `json:"priority"`
	CreatedAt   string   `json:"created_at"`
	SafePaths   []string `json:"safe_paths"`
	RawIssueKey string   `json:"raw_issue_key"`
	Kind        Kind     `json:"kind"`

	// Progress fields appended by the runner. Optional on load so old
	// ticket files parse cleanly.
	Status          string `json:"status,omitempty"`
	LastRunAt       string `json:"last_run_at,omitempty"`
	LastResult      string `json:"last_result,omitempty"`
	LastError       string `json:"last_error,omitempty"`
	LastExecMessage string `json:"last_exec_message,omitempty"`
	PlannerReply    string `json:"last_bob_reply,omitempty"`
	ExecutorSummary string `json:"last_chad_summary,omitempty"`
}

// Validate ensures the ticket is well-formed enough to run
func (t *Ticket) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("ticket.id: field is required")
	}
	if t.Title == "" {
		return fmt.Errorf("ticket.title: field is required")
	}
	if t.Kind == "" {
		t.Kind = KindSelfImprovement // Default for old tickets
	}
	if !t.Kind.IsValid() {
		return fmt.Errorf("ticket.kind: invalid value %q", t.Kind)
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("ticket.priority: invalid value %q, must be one of: %v", t.Priority, AllPriorities())
	}
	return nil
}
