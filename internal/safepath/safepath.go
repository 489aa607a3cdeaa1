// Package safepath decides which proposed file edits may touch disk. It
// is the security boundary between the external planner's output and the
// filesystem: nothing bypasses it on the way to the executor.
package safepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ghostfrog/meta/internal/agent"
)

// OpCreateOrOverwrite is the plan edit operation the anti-clobber guard
// applies to.
const OpCreateOrOverwrite = "create_or_overwrite_file"

// Allowed reports whether a relative path is admissible under the
// allow-list. A pattern admits the path when it matches exactly, as a
// glob, or as a directory prefix (pattern ending in a path separator
// means everything under it).
func Allowed(rel string, patterns []string) bool {
	rel = strings.TrimPrefix(rel, "/")
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if rel == pattern {
			return true
		}
		if ok, err := filepath.Match(pattern, rel); err == nil && ok {
			return true
		}
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(rel, pattern) {
			return true
		}
	}
	return false
}

// FilterResult holds the admissible edits and the paths that were dropped.
// Dropped paths are for operator visibility only; a partially filtered
// plan is still attempted.
type FilterResult struct {
	Kept    []agent.Edit
	Dropped []string
}

// Filter splits proposed edits into admissible and dropped under the
// allow-list.
func Filter(edits []agent.Edit, patterns []string) FilterResult {
	var res FilterResult
	for _, e := range edits {
		rel := strings.TrimPrefix(strings.TrimSpace(e.File), "/")
		if rel != "" && Allowed(rel, patterns) {
			res.Kept = append(res.Kept, e)
			continue
		}
		if rel == "" {
			rel = "(none)"
		}
		res.Dropped = append(res.Dropped, rel)
	}
	return res
}

// BlockClobbers drops any create-or-overwrite edit whose target already
// exists under root. This guard is independent of the allow-list: a path
// can be admissible and still be blocked here.
func BlockClobbers(root string, edits []agent.Edit) FilterResult {
	var res FilterResult
	for _, e := range edits {
		rel := strings.TrimSpace(e.File)
		if strings.TrimSpace(e.Operation) == OpCreateOrOverwrite {
			if _, err := os.Stat(filepath.Join(root, rel)); err == nil {
				res.Dropped = append(res.Dropped, rel)
				continue
			}
		}
		res.Kept = append(res.Kept, e)
	}
	return res
}
