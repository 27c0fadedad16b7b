// Package workspace owns each worker's private directory for an attempt,
// captures immutable snapshots at proposal time, materializes peer
// snapshots into read-only view areas, and enforces the permission rules
// for shared context paths and the read-before-delete invariant.
package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/quorumhq/quorum/internal/errors"
)

// Store manages workspaces, snapshots, and views for one attempt.
// Snapshots are immutable once created and safe for concurrent readers.
type Store struct {
	fs   afero.Fs
	root string // attempt directory

	mu        sync.Mutex
	readSets  map[string]*readSet // workerID -> read/create tracking
	snapshots map[string]string   // snapshot ref -> absolute directory
}

// NewStore creates a Store rooted at an attempt directory and provisions
// a private workspace for each worker. The filesystem is injectable so
// tests can run against an in-memory fs.
func NewStore(fs afero.Fs, attemptDir string, workerIDs []string) (*Store, error) {
	s := &Store{
		fs:        fs,
		root:      attemptDir,
		readSets:  make(map[string]*readSet, len(workerIDs)),
		snapshots: make(map[string]string),
	}
	for _, id := range workerIDs {
		if err := fs.MkdirAll(s.WorkspacePath(id), 0755); err != nil {
			return nil, fmt.Errorf("failed to create workspace for %s: %w", id, err)
		}
		s.readSets[id] = newReadSet()
	}
	return s, nil
}

// WorkspacePath returns a worker's private workspace directory.
func (s *Store) WorkspacePath(workerID string) string {
	return filepath.Join(s.root, "workspaces", workerID)
}

// ViewPath returns the directory where peer snapshots are materialized
// for a worker.
func (s *Store) ViewPath(workerID string) string {
	return filepath.Join(s.root, "views", workerID)
}

// Snapshot captures the worker's workspace subtree under the given
// reference (the answer label). The captured tree is never mutated
// afterwards. Returns the snapshot reference.
func (s *Store) Snapshot(workerID, ref string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.readSets[workerID]; !ok {
		return "", errors.NewWorkspaceError("unknown worker", errors.ErrWorkerInactive).
			WithWorker(workerID)
	}
	if _, exists := s.snapshots[ref]; exists {
		return "", errors.NewWorkspaceError("snapshot reference already used", nil).
			WithWorker(workerID).WithPath(ref)
	}

	dst := filepath.Join(s.root, "snapshots", ref)
	if err := s.copyTree(s.WorkspacePath(workerID), dst); err != nil {
		return "", errors.NewWorkspaceError("snapshot failed", err).
			WithWorker(workerID).WithPath(ref)
	}
	s.snapshots[ref] = dst
	return ref, nil
}

// SnapshotPath resolves a snapshot reference to its directory.
func (s *Store) SnapshotPath(ref string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, ok := s.snapshots[ref]
	if !ok {
		return "", errors.NewWorkspaceError("unknown snapshot", errors.ErrSnapshotNotFound).
			WithPath(ref)
	}
	return dir, nil
}

// MaterializeReadOnly copies a snapshot into another worker's temporary
// view area so it can inspect a peer's work without touching the
// original. Returns the view directory.
func (s *Store) MaterializeReadOnly(ref, intoWorkerID string) (string, error) {
	src, err := s.SnapshotPath(ref)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.readSets[intoWorkerID]; !ok {
		return "", errors.NewWorkspaceError("unknown worker", errors.ErrWorkerInactive).
			WithWorker(intoWorkerID)
	}

	dst := filepath.Join(s.ViewPath(intoWorkerID), ref)
	if err := s.copyTree(src, dst); err != nil {
		return "", errors.NewWorkspaceError("materialize failed", err).
			WithWorker(intoWorkerID).WithPath(ref)
	}
	return dst, nil
}

// RecordRead notes that a worker read a path inside its workspace. The
// engine observes tool-level filesystem effects through these calls.
func (s *Store) RecordRead(workerID, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rs, ok := s.readSets[workerID]; ok {
		rs.markRead(s.rel(workerID, path))
	}
}

// RecordCreate notes that a worker created a path in its workspace
// during the current attempt.
func (s *Store) RecordCreate(workerID, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rs, ok := s.readSets[workerID]; ok {
		rs.markCreated(s.rel(workerID, path))
	}
}

// CheckDelete enforces the read-before-delete invariant: a delete is
// denied unless the worker previously read the target or created it
// during the current attempt.
func (s *Store) CheckDelete(workerID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.readSets[workerID]
	if !ok {
		return errors.NewWorkspaceError("unknown worker", errors.ErrWorkerInactive).
			WithWorker(workerID)
	}
	rel := s.rel(workerID, path)
	if rs.wasRead(rel) || rs.wasCreated(rel) {
		return nil
	}
	return errors.NewWorkspaceError("delete requires a prior read", errors.ErrUnreadDelete).
		WithWorker(workerID).WithPath(rel).WithOp("delete")
}

// Delete removes a path from a worker's workspace after the
// read-before-delete check passes.
func (s *Store) Delete(workerID, path string) error {
	if err := s.CheckDelete(workerID, path); err != nil {
		return err
	}
	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(s.WorkspacePath(workerID), path)
	}
	if err := s.fs.RemoveAll(target); err != nil {
		return errors.NewWorkspaceError("delete failed", err).
			WithWorker(workerID).WithPath(path).WithOp("delete")
	}
	return nil
}

// rel normalizes a path to be relative to the worker's workspace root.
func (s *Store) rel(workerID, path string) string {
	if !filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	rel, err := filepath.Rel(s.WorkspacePath(workerID), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Clean(path)
	}
	return rel
}

// copyTree recursively copies src into dst on the store's filesystem.
func (s *Store) copyTree(src, dst string) error {
	return afero.Walk(s.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return s.fs.MkdirAll(target, info.Mode().Perm()|0700)
		}
		return s.copyFile(path, target, info.Mode().Perm())
	})
}

// copyFile copies one file, creating parent directories as needed.
func (s *Store) copyFile(src, dst string, perm os.FileMode) error {
	if err := s.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := s.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := s.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
