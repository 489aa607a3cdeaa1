package ticket

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// Truncation limits for progress fields, matching the ticket file format
// the web UI reads.
const (
	maxLastError       = 500
	maxLastExecMessage = 500
	maxPlannerReply    = 4000
	maxExecutorSummary = 1000
)

// Store is the one-JSON-document-per-ticket file store.
type Store struct {
	dir string
}

// NewStore creates a ticket store over the given directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// PathFor returns the ticket file path for an id.
func (s *Store) PathFor(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save persists the ticket as <id>.json. The write is atomic (temp file
// plus rename) so a crash never leaves a torn document.
func (s *Store) Save(t *Ticket) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create tickets directory: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("cannot marshal ticket: %w", err)
	}

	path := s.PathFor(t.ID)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return "", fmt.Errorf("cannot write temp ticket file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("cannot rename temp ticket file: %w", err)
	}
	return path, nil
}

// LoadFromPath reads a single ticket file. Unknown fields (UI-only
// annotations) are ignored.
func LoadFromPath(path string) (*Ticket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read ticket file: %w", err)
	}
	var t Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("cannot decode ticket file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("ticket validation failed: %w", err)
	}
	return &t, nil
}

// LoadByID resolves a ticket by id: first the direct <id>.json file, then
// a directory scan matching either the id or a legacy ticket_id field.
func (s *Store) LoadByID(id string) (*Ticket, error) {
	if t, err := LoadFromPath(s.PathFor(id)); err == nil {
		return t, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no ticket found for id %s", id)
		}
		return nil, fmt.Errorf("cannot read tickets directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		raw, err := readRaw(path)
		if err != nil {
			continue
		}
		if raw["id"] == id || raw["ticket_id"] == id {
			return LoadFromPath(path)
		}
	}
	return nil, fmt.Errorf("no ticket found for id %s", id)
}

// StatusUpdate carries the progress fields the runner writes back onto a
// persisted ticket. Nil pointers leave the stored value untouched.
type StatusUpdate struct {
	Status          *string
	LastResult      *string
	LastError       *string
	LastExecMessage *string
	PlannerReply    *string
	ExecutorSummary *string
}

// UpdateStatus rewrites the ticket's persisted document with the given
// progress fields, preserving any fields this engine does not know about.
// The whole-document read-modify-write is only safe under single-writer
// discipline.
func (s *Store) UpdateStatus(id string, update StatusUpdate) error {
	path := s.PathFor(id)
	raw, err := readRaw(path)
	if err != nil {
		// Fall back to a scan for legacy files not named after their id.
		path, raw, err = s.findRawByID(id)
		if err != nil {
			return err
		}
	}

	raw["last_run_at"] = time.Now().UTC().Format(time.RFC3339)
	if update.Status != nil {
		raw["status"] = *update.Status
	}
	if update.LastResult != nil {
		raw["last_result"] = *update.LastResult
	}
	if update.LastError != nil {
		raw["last_error"] = truncate(*update.LastError, maxLastError)
	}
	if update.LastExecMessage != nil {
		raw["last_exec_message"] = truncate(*update.LastExecMessage, maxLastExecMessage)
	}
	if update.PlannerReply != nil {
		raw["last_bob_reply"] = truncate(*update.PlannerReply, maxPlannerReply)
	}
	if update.ExecutorSummary != nil {
		raw["last_chad_summary"] = truncate(*update.ExecutorSummary, maxExecutorSummary)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal ticket update: %w", err)
	}
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("cannot write temp ticket file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("cannot rename temp ticket file: %w", err)
	}
	return nil
}

func (s *Store) findRawByID(id string) (string, map[string]any, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", nil, fmt.Errorf("cannot read tickets directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		raw, err := readRaw(path)
		if err != nil {
			continue
		}
		if raw["id"] == id || raw["ticket_id"] == id {
			return path, raw, nil
		}
	}
	return "", nil, fmt.Errorf("no ticket found for id %s", id)
}

func readRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
