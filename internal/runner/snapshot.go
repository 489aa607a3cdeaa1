package runner

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Snapshot maps relative paths to their pre-mutation contents. A nil
// value records that the path did not exist when the snapshot was taken;
// restore deletes such paths if an attempt created them.
type Snapshot map[string][]byte

// TakeSnapshot captures the current contents of every allow-listed path:
// files directly, directories recursively. Unreadable files are recorded
// as absent rather than failing the attempt.
func TakeSnapshot(root string, relPaths []string) Snapshot {
	snap := make(Snapshot)
	for _, rel := range relPaths {
		abs := filepath.Join(root, rel)
		info, err := os.Stat(abs)
		if err != nil {
			snap[rel] = nil
			continue
		}
		if info.IsDir() {
			filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
				if err != nil || d.IsDir() {
					return nil
				}
				sub, relErr := filepath.Rel(root, path)
				if relErr != nil {
					return nil
				}
				sub = filepath.ToSlash(sub)
				data, readErr := os.ReadFile(path)
				if readErr != nil {
					snap[sub] = nil
					return nil
				}
				snap[sub] = data
				return nil
			})
			continue
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			snap[rel] = nil
			continue
		}
		snap[rel] = data
	}
	return snap
}

// RestoreResult reports the outcome of a best-effort restore. Failed
// paths are surfaced for logging; partial restoration is still better
// than aborting with the sandbox dirty.
type RestoreResult struct {
	Restored int
	Removed  int
	Failed   []string
}

// RestoreSnapshot reinstates every snapshotted path exactly: absent paths
// are deleted if an attempt created them, existing paths get their
// captured bytes back. I/O failures are collected per path, never fatal.
func RestoreSnapshot(root string, snap Snapshot) RestoreResult {
	var res RestoreResult
	for rel, content := range snap {
		abs := filepath.Join(root, rel)
		if content == nil {
			info, err := os.Stat(abs)
			if err != nil || info.IsDir() {
				continue
			}
			if err := os.Remove(abs); err != nil {
				res.Failed = append(res.Failed, rel)
				continue
			}
			res.Removed++
			continue
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			res.Failed = append(res.Failed, rel)
			continue
		}
		if err := os.WriteFile(abs, content, 0644); err != nil {
			res.Failed = append(res.Failed, rel)
			continue
		}
		res.Restored++
	}
	return res
}
