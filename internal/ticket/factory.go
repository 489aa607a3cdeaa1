package ticket

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/ghostfrog/meta/internal/issue"
	"github.com/google/uuid"
)

// PriorityFromOccurrences derives ticket priority from evidence volume.
func PriorityFromOccurrences(n int) Priority {
	switch {
	case n >= 10:
		return PriorityHigh
	case n >= 4:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// makeID builds an auto-generated ticket id: timestamp plus a numeric
// suffix hashed from the issue key. The suffix is not collision-free;
// the id shape is load-bearing for downstream consumers, so it stays.
func makeID(issueKey string, now time.Time) string {
	h := fnv.New32a()
	h.Write([]byte(issueKey))
	return fmt.Sprintf("T-%s-%05d", now.UTC().Format("20060102-150405"), h.Sum32()%100000)
}

// NewManualID builds a distinctly prefixed id for manually created tickets.
func NewManualID() string {
	return "MANUAL-" + uuid.NewString()[:8]
}

// FromIssues materializes tickets for the top limit issues, in the
// detector's ranking order.
func FromIssues(issues []*issue.Issue, scope string, limit int, safePaths []string) []*Ticket {
	var out []*Ticket
	now := time.Now().UTC()

	for _, is := range issues {
		if len(out) >= limit {
			break
		}

		evidence := make([]string, 0, len(is.Examples))
		for i, example := range is.Examples {
			if i >= len(is.EvidenceIDs) {
				break
			}
			evidence = append(evidence, fmt.Sprintf("record #%d: %s", is.EvidenceIDs[i], example))
		}

		out = append(out, &Ticket{
			ID:          makeID(is.Key, now),
			Scope:       scope,
			Area:        is.Area,
			Title:       is.Description,
			Description: renderDescription(is, scope, evidence),
			Evidence:    evidence,
			Priority:    PriorityFromOccurrences(is.Occurrences()),
			CreatedAt:   now.Format(time.RFC3339),
			SafePaths:   append([]string(nil), safePaths...),
			RawIssueKey: is.Key,
			Kind:        KindSelfImprovement,
		})
	}
	return out
}

func renderDescription(is *issue.Issue, scope string, evidence []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Area: %s\n", is.Area)
	fmt.Fprintf(&b, "Scope: %s\n\n", scope)
	fmt.Fprintf(&b, "Problem:\n  %s\n\n", is.Description)
	b.WriteString("Evidence:\n")
	if len(evidence) == 0 {
		b.WriteString("(no examples)\n")
	} else {
		for _, e := range evidence {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	b.WriteString("\nDesired outcome:\n  Improve robustness in this area. Small, safe edits. All tests must pass.")
	return b.String()
}

// NewManual creates a ticket from operator input. Unlike auto-generated
// tickets the allow-list is taken verbatim when provided.
func NewManual(title, description, area string, priority Priority, scope string, safePaths, defaultSafePaths []string) *Ticket {
	if title == "" {
		title = "Manual ticket (edit me)"
	}
	if description == "" {
		description = "Manual ticket created via meta new_ticket.\nEdit title/desc/safe_paths/evidence."
	}
	paths := safePaths
	if len(paths) == 0 {
		paths = append([]string(nil), defaultSafePaths...)
	}

	id := NewManualID()
	return &Ticket{
		ID:          id,
		Scope:       scope,
		Area:        area,
		Title:       title,
		Description: description,
		Evidence:    []string{"(edit me)"},
		Priority:    priority,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		SafePaths:   paths,
		RawIssueKey: "manual:" + id,
		Kind:        KindSelfImprovement,
	}
}
