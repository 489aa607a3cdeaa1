package ticket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Ledger statuses.
const (
	LedgerCreated   = "created"
	LedgerCompleted = "completed"
	LedgerFailed    = "failed"
)

// LedgerEntry is one append-only fingerprint transition record.
type LedgerEntry struct {
	TS          string         `json:"ts"`
	Fingerprint string         `json:"fingerprint"`
	Status      string         `json:"status"`
	Extra       map[string]any `json:"-"`
}

// MarshalJSON flattens Extra into the top-level object, matching the
// history log's wire convention.
func (e LedgerEntry) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Extra)+3)
	for k, v := range e.Extra {
		m[k] = v
	}
	m["ts"] = e.TS
	m["fingerprint"] = e.Fingerprint
	m["status"] = e.Status
	return json.Marshal(m)
}

// Ledger is the append-only fingerprint → status log used to suppress
// re-litigating recently completed work.
type Ledger struct {
	path string
}

// NewLedger creates a ledger over the given JSONL file.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Append writes one entry stamped with the current UTC time.
func (l *Ledger) Append(fingerprint, status string, extra map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("cannot create ledger directory: %w", err)
	}

	entry := LedgerEntry{
		TS:          time.Now().UTC().Format(time.RFC3339),
		Fingerprint: fingerprint,
		Status:      status,
		Extra:       extra,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cannot marshal ledger entry: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot open ledger: %w", err)
	}
	_, writeErr := f.Write(append(data, '\n'))
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("cannot append ledger entry: %w", writeErr)
	}
	return closeErr
}

// MarkCreated records that a ticket with this fingerprint was generated.
func (l *Ledger) MarkCreated(t *Ticket) error {
	return l.Append(Fingerprint(t), LedgerCreated, nil)
}

// MarkCompleted records a successful run of this ticket's fingerprint.
func (l *Ledger) MarkCompleted(t *Ticket) error {
	return l.Append(Fingerprint(t), LedgerCompleted, nil)
}

// MarkFailed records a failed run with the failure reason.
func (l *Ledger) MarkFailed(t *Ticket, reason string) error {
	return l.Append(Fingerprint(t), LedgerFailed, map[string]any{"reason": reason})
}

// RecentlyCompleted reports whether a completed entry with this
// fingerprint exists within the lookback window. Malformed lines and
// unparseable timestamps are skipped.
func (l *Ledger) RecentlyCompleted(fingerprint string, window time.Duration) (bool, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("cannot open ledger: %w", err)
	}
	defer f.Close()

	cutoff := time.Now().UTC().Add(-window)

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec struct {
			TS          string `json:"ts"`
			Fingerprint string `json:"fingerprint"`
			Status      string `json:"status"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.Fingerprint != fingerprint || rec.Status != LedgerCompleted {
			continue
		}
		ts, err := time.Parse(time.RFC3339, rec.TS)
		if err != nil {
			continue
		}
		if !ts.Before(cutoff) {
			return true, nil
		}
	}
	return false, scanner.Err()
}
