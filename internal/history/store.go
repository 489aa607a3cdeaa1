// Package history implements the append-only task outcome log that issue
// detection mines. The active log is a JSONL file; full logs are rotated
// to timestamped gzip archives and swept after a retention window.
package history

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store is the append-only history log.
type Store struct {
	path          string
	maxRecords    int
	retentionDays int

	// warnf receives housekeeping failures (rotation, compression) that
	// must never abort a run but should still reach the operator.
	warnf func(format string, args ...any)
}

// Option configures a Store.
type Option func(*Store)

// WithWarnFunc routes housekeeping warnings to the given sink.
func WithWarnFunc(f func(format string, args ...any)) Option {
	return func(s *Store) { s.warnf = f }
}

// NewStore creates a history store over the given JSONL file.
func NewStore(path string, maxRecords, retentionDays int, opts ...Option) *Store {
	s := &Store{
		path:          path,
		maxRecords:    maxRecords,
		retentionDays: retentionDays,
		warnf:         func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the active log file path.
func (s *Store) Path() string {
	return s.path
}

// Append writes one record as a single JSON line, then rotates the log if
// it has grown past the configured record count. Rotation failures are
// reported through the warn hook, never returned: losing a rotation must
// not fail the run that produced the record.
func (s *Store) Append(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("cannot create history directory: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cannot marshal history record: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot open history file: %w", err)
	}
	_, writeErr := f.Write(append(data, '\n'))
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("cannot append history record: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("cannot close history file: %w", closeErr)
	}

	if err := s.rotateIfNeeded(); err != nil {
		s.warnf("history rotation failed: %v", err)
	}
	return nil
}

// Load returns up to the most recent limit well-formed records in file
// order (oldest first). Malformed lines are skipped; a corrupt log must
// never abort analysis.
func (s *Store) Load(limit int) ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot open history file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading history file: %w", err)
	}

	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}

	var out []Record
	for _, line := range lines {
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue // Skip malformed lines
		}
		out = append(out, rec)
	}
	return out, nil
}

// rotateIfNeeded archives the active log once it reaches maxRecords lines.
// The archive is renamed first so the active file is never torn, then
// compressed best-effort: a failed compression keeps the uncompressed
// archive rather than losing data.
func (s *Store) rotateIfNeeded() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	lineCount := 0
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)
	for scanner.Scan() {
		lineCount++
	}
	f.Close()

	if lineCount < s.maxRecords {
		return nil
	}

	dir := filepath.Dir(s.path)
	timestamp := time.Now().UTC().Format("20060102-150405")
	archivePath := filepath.Join(dir, fmt.Sprintf("history_%s.jsonl", timestamp))

	if err := os.Rename(s.path, archivePath); err != nil {
		return fmt.Errorf("cannot archive history file: %w", err)
	}

	// Fresh empty active log
	if nf, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		nf.Close()
	}

	if err := compressFile(archivePath); err != nil {
		s.warnf("history archive compression failed, keeping %s: %v", archivePath, err)
		return nil
	}
	if err := os.Remove(archivePath); err != nil {
		s.warnf("cannot remove uncompressed archive %s: %v", archivePath, err)
	}
	return nil
}

func compressFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := gz.Close(); err != nil {
		out.Close()
		os.Remove(path + ".gz")
		return err
	}
	return out.Close()
}

// Vacuum removes compressed archives older than the retention window.
// Individual delete failures are reported and skipped; the sweep is
// best-effort by contract. Returns the number of archives removed.
func (s *Store) Vacuum() (int, error) {
	dir := filepath.Dir(s.path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("cannot read history directory: %w", err)
	}

	cutoff := time.Now().UTC().Add(-time.Duration(s.retentionDays) * 24 * time.Hour)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "history_") || !strings.HasSuffix(name, ".gz") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().UTC().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				s.warnf("cannot remove old archive %s: %v", name, err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}
