package history

import (
	"encoding/json"
	"time"
)

// Record is one line of the task history log: the outcome of a single
// automated task attempt. Records are immutable once appended.
type Record struct {
	TS               string `json:"ts"`
	Target           string `json:"target"`
	Result           string `json:"result"`
	Tests            string `json:"tests,omitempty"`
	ErrorSummary     string `json:"error_summary,omitempty"`
	HumanFixRequired bool   `json:"human_fix_required,omitempty"`

	// Extra holds auxiliary fields. On the wire they are flattened into
	// the top-level JSON object, matching the existing log format.
	Extra map[string]any `json:"-"`
}

// knownKeys are the fixed record fields; everything else round-trips
// through Extra.
var knownKeys = map[string]bool{
	"ts":                 true,
	"target":             true,
	"result":             true,
	"tests":              true,
	"error_summary":      true,
	"human_fix_required": true,
}

// NewRecord creates a record stamped with the current UTC time.
func NewRecord(target, result string) Record {
	return Record{
		TS:     time.Now().UTC().Format(time.RFC3339),
		Target: target,
		Result: result,
	}
}

// MarshalJSON flattens Extra into the top-level object.
func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Extra)+6)
	for k, v := range r.Extra {
		if !knownKeys[k] {
			m[k] = v
		}
	}
	m["ts"] = r.TS
	m["target"] = r.Target
	m["result"] = r.Result
	if r.Tests != "" {
		m["tests"] = r.Tests
	}
	if r.ErrorSummary != "" {
		m["error_summary"] = r.ErrorSummary
	}
	if r.HumanFixRequired {
		m["human_fix_required"] = true
	}
	return json.Marshal(m)
}

// UnmarshalJSON collects unknown top-level keys into Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	r.TS, _ = m["ts"].(string)
	r.Target, _ = m["target"].(string)
	r.Result, _ = m["result"].(string)
	r.Tests, _ = m["tests"].(string)
	r.ErrorSummary, _ = m["error_summary"].(string)
	r.HumanFixRequired, _ = m["human_fix_required"].(bool)

	if r.Target == "" {
		r.Target = "unknown"
	}
	if r.Result == "" {
		r.Result = "unknown"
	}

	var extra map[string]any
	for k, v := range m {
		if knownKeys[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}
	r.Extra = extra
	return nil
}
