// Package issue groups recurring failures out of the task history into
// ranked issue clusters. Issues are derived on every scan, never persisted.
package issue

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ghostfrog/meta/internal/history"
)

// Functional areas inferred from error text.
const (
	AreaPlanner  = "planner"
	AreaTests    = "tests"
	AreaExecutor = "executor"
	AreaOther    = "other"
)

// NoErrorSlug labels failures that carried no error summary. Silent
// failures are a signal in themselves, so they are grouped, not dropped.
const NoErrorSlug = "NO_ERROR"

const slugMaxLen = 80

// maxExamples caps the raw error strings kept per issue.
const maxExamples = 3

// Issue is one cluster of recurring failures sharing a normalized error
// slug within the scanned history window.
type Issue struct {
	Key         string   // normalized error slug
	Area        string   // inferred functional area
	Description string   // human-readable summary
	EvidenceIDs []int    // indices into the scanned history window
	Examples    []string // up to three raw error strings
}

// Occurrences returns the evidence count used for ranking and priority.
func (i *Issue) Occurrences() int {
	return len(i.EvidenceIDs)
}

// Slug normalizes an error summary into a grouping key: trimmed,
// newlines collapsed, capped at 80 runes with a trailing ellipsis marker.
func Slug(err string) string {
	if err == "" {
		return NoErrorSlug
	}
	s := strings.TrimSpace(strings.ReplaceAll(err, "\n", " "))
	if s == "" {
		return NoErrorSlug
	}
	runes := []rune(s)
	if len(runes) <= slugMaxLen {
		return s
	}
	return string(runes[:slugMaxLen-3]) + "..."
}

// GuessArea classifies a record into a functional area from keywords in
// its error text.
func GuessArea(rec history.Record) string {
	err := strings.ToLower(rec.ErrorSummary)
	switch {
	case strings.Contains(err, "planner") || strings.Contains(err, "plan"):
		return AreaPlanner
	case strings.Contains(err, "pytest") || strings.Contains(err, "test"):
		return AreaTests
	case strings.Contains(err, "executor"):
		return AreaExecutor
	default:
		return AreaOther
	}
}

// Detect groups every non-success record by its error slug and returns
// issues sorted by evidence count descending. Ties keep first-seen order,
// which is stable under the grouping's traversal order.
func Detect(records []history.Record) []*Issue {
	grouped := make(map[string]*Issue)
	var order []*Issue

	for idx, rec := range records {
		if strings.ToLower(rec.Result) == "success" {
			continue
		}

		slug := Slug(rec.ErrorSummary)
		is, ok := grouped[slug]
		if !ok {
			is = &Issue{
				Key:         slug,
				Area:        GuessArea(rec),
				Description: fmt.Sprintf("Recurring failure: %s", slug),
			}
			grouped[slug] = is
			order = append(order, is)
		}
		is.EvidenceIDs = append(is.EvidenceIDs, idx)
		if strings.TrimSpace(rec.ErrorSummary) != "" && len(is.Examples) < maxExamples {
			is.Examples = append(is.Examples, rec.ErrorSummary)
		}
	}

	sort.SliceStable(order, func(a, b int) bool {
		return order[a].Occurrences() > order[b].Occurrences()
	})
	return order
}
