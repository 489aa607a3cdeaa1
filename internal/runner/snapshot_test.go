package runner

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSnapshotRestoreAfterMutation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "prompts", "system.txt"), "original")
	writeFile(t, filepath.Join(root, "rules.txt"), "rule one")

	snap := TakeSnapshot(root, []string{"prompts/", "rules.txt"})

	// An attempt mutates one file, deletes another, creates a third.
	writeFile(t, filepath.Join(root, "prompts", "system.txt"), "mutated")
	if err := os.Remove(filepath.Join(root, "rules.txt")); err != nil {
		t.Fatal(err)
	}

	res := RestoreSnapshot(root, snap)
	if len(res.Failed) != 0 {
		t.Fatalf("restore failures: %v", res.Failed)
	}
	if res.Restored != 2 {
		t.Errorf("restored %d paths, want 2", res.Restored)
	}

	got, err := os.ReadFile(filepath.Join(root, "prompts", "system.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "original" {
		t.Errorf("system.txt = %q, want pre-attempt contents", got)
	}
	got, err = os.ReadFile(filepath.Join(root, "rules.txt"))
	if err != nil {
		t.Fatalf("deleted file not reinstated: %v", err)
	}
	if string(got) != "rule one" {
		t.Errorf("rules.txt = %q", got)
	}
}

func TestSnapshotRemovesFilesCreatedDuringAttempt(t *testing.T) {
	root := t.TempDir()

	snap := TakeSnapshot(root, []string{"prompts/new.txt"})
	if snap["prompts/new.txt"] != nil {
		t.Fatal("absent path not recorded as nil")
	}

	writeFile(t, filepath.Join(root, "prompts", "new.txt"), "should vanish")

	res := RestoreSnapshot(root, snap)
	if res.Removed != 1 {
		t.Errorf("removed %d paths, want 1", res.Removed)
	}
	if _, err := os.Stat(filepath.Join(root, "prompts", "new.txt")); !os.IsNotExist(err) {
		t.Error("file created during attempt survived restore")
	}
}

func TestSnapshotDirectoryRecursion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "prompts", "a.txt"), "a")
	writeFile(t, filepath.Join(root, "prompts", "sub", "b.txt"), "b")

	snap := TakeSnapshot(root, []string{"prompts/"})
	if string(snap["prompts/a.txt"]) != "a" {
		t.Errorf("snap[prompts/a.txt] = %q", snap["prompts/a.txt"])
	}
	if string(snap["prompts/sub/b.txt"]) != "b" {
		t.Errorf("snap[prompts/sub/b.txt] = %q", snap["prompts/sub/b.txt"])
	}
}

func TestRestoreIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "rules.txt"), "v1")

	snap := TakeSnapshot(root, []string{"rules.txt"})

	first := RestoreSnapshot(root, snap)
	second := RestoreSnapshot(root, snap)
	if len(first.Failed) != 0 || len(second.Failed) != 0 {
		t.Fatalf("idempotent restore failed: %v / %v", first.Failed, second.Failed)
	}
	got, _ := os.ReadFile(filepath.Join(root, "rules.txt"))
	if string(got) != "v1" {
		t.Errorf("rules.txt = %q after double restore", got)
	}
}
