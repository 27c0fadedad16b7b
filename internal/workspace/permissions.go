package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/quorumhq/quorum/internal/errors"
	"github.com/quorumhq/quorum/internal/session"
)

// Permission is the configured access level for a context path.
type Permission string

const (
	// PermissionRead allows reading only.
	PermissionRead Permission = "read"
	// PermissionWrite allows reading and writing.
	PermissionWrite Permission = "write"
)

// Valid reports whether p is a recognized permission.
func (p Permission) Valid() bool {
	return p == PermissionRead || p == PermissionWrite
}

// Op is a filesystem operation subject to permission checks.
type Op string

const (
	OpRead   Op = "read"
	OpWrite  Op = "write"
	OpDelete Op = "delete"
)

// ContextPath is an external-project path shared with all workers.
type ContextPath struct {
	// Path is the shared root.
	Path string

	// Permission is the configured access level. Only the presenting-
	// phase winner may ever exercise a write permission.
	Permission Permission

	// ProtectedSubpaths are glob patterns (relative to Path) that may
	// never be written or deleted, by anyone, in any phase.
	ProtectedSubpaths []string
}

// compiledPath pairs a ContextPath with its compiled protection globs.
type compiledPath struct {
	ContextPath
	protected []glob.Glob
}

// Policy evaluates context-path permissions. Checks are pure functions of
// (path, op, phase, winner) and require no locking.
type Policy struct {
	paths []compiledPath
}

// NewPolicy compiles the protected-subpath patterns of the given context
// paths. Pattern compilation errors are fatal at startup.
func NewPolicy(paths []ContextPath) (*Policy, error) {
	p := &Policy{paths: make([]compiledPath, 0, len(paths))}
	for _, cp := range paths {
		if !cp.Permission.Valid() {
			return nil, fmt.Errorf("workspace: invalid permission %q for %s", cp.Permission, cp.Path)
		}
		compiled := compiledPath{ContextPath: cp}
		for _, pattern := range cp.ProtectedSubpaths {
			g, err := glob.Compile(pattern, '/')
			if err != nil {
				return nil, fmt.Errorf("workspace: bad protected pattern %q: %w", pattern, err)
			}
			compiled.protected = append(compiled.protected, g)
		}
		p.paths = append(p.paths, compiled)
	}
	return p, nil
}

// Check decides whether a worker may perform op on path. Rules:
//   - Paths outside every context path are not governed by this policy.
//   - Protected subpaths deny write/delete in every phase, winner included.
//   - During coordinating, every context path is read-only for everyone.
//   - During presenting, only the winner gets the configured permission;
//     all other workers remain read-only.
func (p *Policy) Check(path string, op Op, phase session.Phase, workerID, winnerID string) error {
	cp, rel, governed := p.resolve(path)
	if !governed {
		return nil
	}

	if op == OpRead {
		return nil
	}

	for _, g := range cp.protected {
		if g.Match(rel) {
			return errors.NewWorkspaceError("protected subpath", errors.ErrPermissionDenied).
				WithWorker(workerID).WithPath(path).WithOp(string(op))
		}
	}

	if phase != session.PhasePresenting {
		return errors.NewWorkspaceError("context paths are read-only while coordinating",
			errors.ErrPermissionDenied).
			WithWorker(workerID).WithPath(path).WithOp(string(op))
	}
	if workerID != winnerID {
		return errors.NewWorkspaceError("only the winner may modify context paths",
			errors.ErrPermissionDenied).
			WithWorker(workerID).WithPath(path).WithOp(string(op))
	}
	if cp.Permission != PermissionWrite {
		return errors.NewWorkspaceError("context path is configured read-only",
			errors.ErrPermissionDenied).
			WithWorker(workerID).WithPath(path).WithOp(string(op))
	}
	return nil
}

// resolve finds the context path governing the given path and returns the
// path relative to that root.
func (p *Policy) resolve(path string) (compiledPath, string, bool) {
	clean := filepath.ToSlash(filepath.Clean(path))
	for _, cp := range p.paths {
		root := filepath.ToSlash(filepath.Clean(cp.Path))
		if clean == root {
			return cp, ".", true
		}
		if strings.HasPrefix(clean, root+"/") {
			return cp, strings.TrimPrefix(clean, root+"/"), true
		}
	}
	return compiledPath{}, "", false
}
