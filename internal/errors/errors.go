// Package errors provides centralized error definitions for the Quorum
// codebase. It defines sentinel errors for the coordination protocol,
// domain-specific error types with context builders, and classification
// helpers that distinguish recoverable protocol errors (returned to the
// originating worker) from fatal configuration errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Board-related sentinel errors.
var (
	// ErrNoveltyRejected indicates a proposed answer is too similar to an
	// existing one under the active novelty policy.
	ErrNoveltyRejected = New("answer rejected: too similar to an existing answer")
	// ErrUnknownAnswerTarget indicates a vote references a superseded or
	// nonexistent answer label.
	ErrUnknownAnswerTarget = New("vote target is not a live answer")
	// ErrProposalLimitExceeded indicates a worker has exhausted its
	// new-answer budget and is vote-only for the rest of the attempt.
	ErrProposalLimitExceeded = New("proposal limit exceeded")
	// ErrBoardClosed indicates the board no longer accepts mutations.
	ErrBoardClosed = New("answer board is closed")
)

// Workspace-related sentinel errors.
var (
	// ErrPermissionDenied indicates a workspace or context-path violation.
	ErrPermissionDenied = New("permission denied")
	// ErrUnreadDelete indicates a delete of a file the worker neither read
	// nor created during the current attempt.
	ErrUnreadDelete = New("cannot delete a file that was never read")
	// ErrSnapshotNotFound indicates a snapshot reference does not resolve.
	ErrSnapshotNotFound = New("snapshot not found")
)

// Session-related sentinel errors.
var (
	// ErrSessionTimeout indicates the coordination deadline elapsed.
	// Fatal to the attempt, not to the process.
	ErrSessionTimeout = New("coordination session timed out")
	// ErrRestartRequested signals a controlled reset of the attempt.
	// Not a failure: prior attempt state is retained.
	ErrRestartRequested = New("restart requested")
	// ErrNoWorkers indicates no workers were configured. Fatal at startup.
	ErrNoWorkers = New("no workers defined")
	// ErrWorkerInactive indicates an action from a cancelled worker.
	ErrWorkerInactive = New("worker is no longer active")
)

// BoardError represents errors from the answer board.
//
// Example:
//
//	err := errors.NewBoardError("proposal rejected", errors.ErrNoveltyRejected).
//		WithWorker("agent1").WithLabel("agent1.2")
type BoardError struct {
	WorkerID string
	Label    string
	Overlap  float64 // Token-overlap ratio for novelty rejections, -1 if unset

	message string
	cause   error
}

// NewBoardError creates a new BoardError.
func NewBoardError(message string, cause error) *BoardError {
	return &BoardError{message: message, cause: cause, Overlap: -1}
}

// WithWorker adds the originating worker ID to the error context.
func (e *BoardError) WithWorker(id string) *BoardError {
	e.WorkerID = id
	return e
}

// WithLabel adds an answer label to the error context.
func (e *BoardError) WithLabel(label string) *BoardError {
	e.Label = label
	return e
}

// WithOverlap adds the measured token-overlap ratio to the error context.
func (e *BoardError) WithOverlap(ratio float64) *BoardError {
	e.Overlap = ratio
	return e
}

// Error returns the formatted error message.
func (e *BoardError) Error() string {
	var parts []string
	if e.WorkerID != "" {
		parts = append(parts, fmt.Sprintf("worker=%s", e.WorkerID))
	}
	if e.Label != "" {
		parts = append(parts, fmt.Sprintf("label=%s", e.Label))
	}
	if e.Overlap >= 0 {
		parts = append(parts, fmt.Sprintf("overlap=%.2f", e.Overlap))
	}

	prefix := "board error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("board error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *BoardError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *BoardError) Is(target error) bool {
	if _, ok := target.(*BoardError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// WorkspaceError represents workspace and context-path violations.
//
// Example:
//
//	err := errors.NewWorkspaceError("write denied", errors.ErrPermissionDenied).
//		WithWorker("agent2").WithPath("docs/api.md").WithOp("write")
type WorkspaceError struct {
	WorkerID string
	Path     string
	Op       string

	message string
	cause   error
}

// NewWorkspaceError creates a new WorkspaceError.
func NewWorkspaceError(message string, cause error) *WorkspaceError {
	return &WorkspaceError{message: message, cause: cause}
}

// WithWorker adds the worker ID to the error context.
func (e *WorkspaceError) WithWorker(id string) *WorkspaceError {
	e.WorkerID = id
	return e
}

// WithPath adds the offending path to the error context.
func (e *WorkspaceError) WithPath(path string) *WorkspaceError {
	e.Path = path
	return e
}

// WithOp adds the attempted operation (read/write/delete) to the context.
func (e *WorkspaceError) WithOp(op string) *WorkspaceError {
	e.Op = op
	return e
}

// Error returns the formatted error message.
func (e *WorkspaceError) Error() string {
	var parts []string
	if e.WorkerID != "" {
		parts = append(parts, fmt.Sprintf("worker=%s", e.WorkerID))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	prefix := "workspace error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("workspace error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *WorkspaceError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *WorkspaceError) Is(target error) bool {
	if _, ok := target.(*WorkspaceError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// SessionError represents errors in session or attempt lifecycle.
type SessionError struct {
	SessionID string
	Attempt   int

	message string
	cause   error
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{message: message, cause: cause, Attempt: -1}
}

// WithSessionID adds a session ID to the error context.
func (e *SessionError) WithSessionID(id string) *SessionError {
	e.SessionID = id
	return e
}

// WithAttempt adds an attempt index to the error context.
func (e *SessionError) WithAttempt(attempt int) *SessionError {
	e.Attempt = attempt
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	var parts []string
	if e.SessionID != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.SessionID))
	}
	if e.Attempt >= 0 {
		parts = append(parts, fmt.Sprintf("attempt=%d", e.Attempt))
	}

	prefix := "session error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("session error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *SessionError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// TimeoutError represents an operation that exceeded its deadline.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	cause     error
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{Operation: operation, Duration: duration}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrSessionTimeout) {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// IsRecoverable reports whether an error is a recoverable protocol error
// that should be returned to the originating worker as a structured
// result rather than terminating the attempt. Novelty rejections, unknown
// vote targets, permission denials, and proposal-limit errors are
// recoverable; timeouts and configuration errors are not.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrNoveltyRejected) ||
		Is(err, ErrUnknownAnswerTarget) ||
		Is(err, ErrPermissionDenied) ||
		Is(err, ErrUnreadDelete) ||
		Is(err, ErrProposalLimitExceeded)
}

// IsFatal reports whether an error should terminate the attempt.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrSessionTimeout) || Is(err, ErrNoWorkers)
}

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to record vote")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
