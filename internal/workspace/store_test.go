package workspace

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/quorumhq/quorum/internal/errors"
)

func testStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := NewStore(fs, "/attempt-1", []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s, fs
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestNewStoreProvisionsWorkspaces(t *testing.T) {
	s, fs := testStore(t)

	for _, id := range []string{"alpha", "beta"} {
		exists, err := afero.DirExists(fs, s.WorkspacePath(id))
		if err != nil || !exists {
			t.Errorf("workspace for %s missing (exists=%v, err=%v)", id, exists, err)
		}
	}
}

func TestSnapshotIsImmutableCopy(t *testing.T) {
	s, fs := testStore(t)

	ws := s.WorkspacePath("alpha")
	writeFile(t, fs, filepath.Join(ws, "solution.txt"), "v1")
	writeFile(t, fs, filepath.Join(ws, "sub", "notes.md"), "notes")

	ref, err := s.Snapshot("alpha", "agent1.1")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if ref != "agent1.1" {
		t.Errorf("ref = %q, want agent1.1", ref)
	}

	// Mutating the workspace afterwards must not touch the snapshot.
	writeFile(t, fs, filepath.Join(ws, "solution.txt"), "v2")

	dir, err := s.SnapshotPath("agent1.1")
	if err != nil {
		t.Fatalf("SnapshotPath() error = %v", err)
	}
	data, err := afero.ReadFile(fs, filepath.Join(dir, "solution.txt"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "v1" {
		t.Errorf("snapshot content = %q, want v1", data)
	}
	if _, err := afero.ReadFile(fs, filepath.Join(dir, "sub", "notes.md")); err != nil {
		t.Errorf("nested file missing from snapshot: %v", err)
	}
}

func TestSnapshotRejectsDuplicateRef(t *testing.T) {
	s, _ := testStore(t)

	if _, err := s.Snapshot("alpha", "agent1.1"); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if _, err := s.Snapshot("alpha", "agent1.1"); err == nil {
		t.Error("Snapshot() with duplicate ref succeeded, want error")
	}
}

func TestSnapshotUnknownWorker(t *testing.T) {
	s, _ := testStore(t)
	if _, err := s.Snapshot("intruder", "x"); !errors.Is(err, errors.ErrWorkerInactive) {
		t.Errorf("Snapshot() error = %v, want ErrWorkerInactive", err)
	}
}

func TestSnapshotPathUnknownRef(t *testing.T) {
	s, _ := testStore(t)
	if _, err := s.SnapshotPath("ghost"); !errors.Is(err, errors.ErrSnapshotNotFound) {
		t.Errorf("SnapshotPath() error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestMaterializeReadOnly(t *testing.T) {
	s, fs := testStore(t)

	writeFile(t, fs, filepath.Join(s.WorkspacePath("alpha"), "answer.go"), "package main")
	if _, err := s.Snapshot("alpha", "agent1.1"); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	view, err := s.MaterializeReadOnly("agent1.1", "beta")
	if err != nil {
		t.Fatalf("MaterializeReadOnly() error = %v", err)
	}
	if filepath.Dir(view) != s.ViewPath("beta") {
		t.Errorf("view dir = %q, want under %q", view, s.ViewPath("beta"))
	}

	data, err := afero.ReadFile(fs, filepath.Join(view, "answer.go"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "package main" {
		t.Errorf("materialized content = %q", data)
	}

	// Editing the materialized copy leaves the snapshot intact.
	writeFile(t, fs, filepath.Join(view, "answer.go"), "tampered")
	dir, _ := s.SnapshotPath("agent1.1")
	orig, _ := afero.ReadFile(fs, filepath.Join(dir, "answer.go"))
	if string(orig) != "package main" {
		t.Errorf("snapshot mutated through view: %q", orig)
	}
}

func TestDeleteRequiresPriorReadOrCreate(t *testing.T) {
	s, fs := testStore(t)

	ws := s.WorkspacePath("alpha")
	writeFile(t, fs, filepath.Join(ws, "seen.txt"), "a")
	writeFile(t, fs, filepath.Join(ws, "unseen.txt"), "b")
	writeFile(t, fs, filepath.Join(ws, "mine.txt"), "c")

	// Never read, never created: denied.
	err := s.CheckDelete("alpha", "unseen.txt")
	if !errors.Is(err, errors.ErrUnreadDelete) {
		t.Errorf("CheckDelete(unseen) error = %v, want ErrUnreadDelete", err)
	}

	// Read first: allowed.
	s.RecordRead("alpha", "seen.txt")
	if err := s.Delete("alpha", "seen.txt"); err != nil {
		t.Errorf("Delete(seen) error = %v", err)
	}
	if exists, _ := afero.Exists(fs, filepath.Join(ws, "seen.txt")); exists {
		t.Error("seen.txt still exists after delete")
	}

	// Created this attempt: allowed without a read.
	s.RecordCreate("alpha", "mine.txt")
	if err := s.Delete("alpha", "mine.txt"); err != nil {
		t.Errorf("Delete(mine) error = %v", err)
	}

	// Another worker's read set does not transfer.
	s.RecordRead("beta", "unseen.txt")
	if err := s.CheckDelete("alpha", "unseen.txt"); !errors.Is(err, errors.ErrUnreadDelete) {
		t.Errorf("CheckDelete(unseen) after peer read error = %v, want ErrUnreadDelete", err)
	}
}

func TestDeleteAcceptsAbsolutePaths(t *testing.T) {
	s, fs := testStore(t)

	abs := filepath.Join(s.WorkspacePath("alpha"), "deep", "file.txt")
	writeFile(t, fs, abs, "x")

	s.RecordRead("alpha", abs)
	if err := s.Delete("alpha", abs); err != nil {
		t.Errorf("Delete(abs) error = %v", err)
	}
}
