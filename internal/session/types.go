// Package session provides the coordination-session state machine and
// the persisted session/attempt directory layout. A session may span
// several attempts due to restarts; each attempt has its own event log,
// tally, and workspace scope, and only one attempt is ever promoted to
// the session's canonical result.
package session

import (
	"time"
)

// FormatVersion defines the current persistence format version.
// This allows for future migrations when the layout changes.
const FormatVersion = 1

// Phase represents the forward-only state of one coordination attempt.
type Phase string

const (
	// PhaseCoordinating means workers are proposing and voting.
	PhaseCoordinating Phase = "coordinating"
	// PhasePresenting means a winner was selected and may exercise its
	// configured context-path permissions.
	PhasePresenting Phase = "presenting"
	// PhaseCompleted is terminal success.
	PhaseCompleted Phase = "completed"
	// PhaseTimedOut is terminal failure of the attempt by deadline.
	PhaseTimedOut Phase = "timed_out"
)

// IsTerminal reports whether the phase is terminal.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseTimedOut
}

// CanTransitionTo reports whether moving from p to next is a legal
// forward transition. Phases never move backward.
func (p Phase) CanTransitionTo(next Phase) bool {
	switch p {
	case PhaseCoordinating:
		return next == PhasePresenting || next == PhaseTimedOut
	case PhasePresenting:
		return next == PhaseCompleted
	default:
		return false
	}
}

// String returns the string representation of the phase.
func (p Phase) String() string { return string(p) }

// Outcome is the two-valued process-level exit signal.
type Outcome string

const (
	// OutcomeSucceeded means an attempt completed with a winner.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeFailed means the session timed out or produced no winner.
	OutcomeFailed Outcome = "failed"
)

// State is the serializable record of one coordination session.
type State struct {
	// ID is the unique session identifier.
	ID string `json:"id"`

	// Task is the original task text.
	Task string `json:"task"`

	// FormatVersion is the persistence format version.
	FormatVersion int `json:"format_version"`

	// Attempt is the current (1-based) attempt index.
	Attempt int `json:"attempt"`

	// Phase is the current attempt's phase.
	Phase Phase `json:"phase"`

	// WinnerLabel is the selected answer label, once known.
	WinnerLabel string `json:"winner_label,omitempty"`

	// PromotedAttempt is the attempt whose result is canonical (0 until
	// promotion).
	PromotedAttempt int `json:"promoted_attempt,omitempty"`

	StartedAt time.Time `json:"started_at"`
	Deadline  time.Time `json:"deadline"`
}

// Result is the canonical per-attempt outcome written at promotion time.
type Result struct {
	Attempt     int            `json:"attempt"`
	Outcome     Outcome        `json:"outcome"`
	WinnerLabel string         `json:"winner_label,omitempty"`
	WinnerID    string         `json:"winner_worker_id,omitempty"`
	Content     string         `json:"content,omitempty"`
	SnapshotRef string         `json:"snapshot_ref,omitempty"`
	Tally       map[string]int `json:"tally,omitempty"`
	FinishedAt  time.Time      `json:"finished_at"`
}
