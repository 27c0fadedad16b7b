// Package event defines the coordination event types and the pub-sub bus
// that decouples the orchestrator from session persistence and other
// observers. Every accepted board action produces an event; the ordered
// sequence of events is the authoritative record of an attempt.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "board.new_answer").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// Event type identifiers for the coordination protocol.
const (
	TypeNewAnswer   = "board.new_answer"
	TypeVote        = "board.vote"
	TypeRestart     = "session.restart"
	TypeTimeout     = "session.timeout"
	TypeFinalAnswer = "session.final_answer"
	TypePhaseChange = "session.phase_change"
)

// NewAnswerEvent is emitted when the board accepts a proposed answer.
type NewAnswerEvent struct {
	baseEvent
	WorkerID    string // Real worker identity; never shown to workers
	Label       string // Answer label, e.g. "agent1.2"
	Tag         string // Anonymous candidate tag shown to workers
	Round       int    // Round number at acceptance
	SnapshotRef string // Workspace snapshot reference, empty if none
}

// NewNewAnswerEvent creates a NewAnswerEvent.
func NewNewAnswerEvent(workerID, label, tag string, round int, snapshotRef string) NewAnswerEvent {
	return NewAnswerEvent{
		baseEvent:   newBaseEvent(TypeNewAnswer),
		WorkerID:    workerID,
		Label:       label,
		Tag:         tag,
		Round:       round,
		SnapshotRef: snapshotRef,
	}
}

// VoteEvent is emitted when the board records or replaces a vote.
type VoteEvent struct {
	baseEvent
	WorkerID string // Voting worker
	Target   string // Target answer label
	Reason   string // Free-text justification
	Replaced bool   // True if this vote replaced a previous one
}

// NewVoteEvent creates a VoteEvent.
func NewVoteEvent(workerID, target, reason string, replaced bool) VoteEvent {
	return VoteEvent{
		baseEvent: newBaseEvent(TypeVote),
		WorkerID:  workerID,
		Target:    target,
		Reason:    reason,
		Replaced:  replaced,
	}
}

// RestartEvent is emitted when a new attempt begins after a restart.
type RestartEvent struct {
	baseEvent
	PriorAttempt int    // Attempt being abandoned (retained read-only)
	NextAttempt  int    // Attempt being started
	Reason       string // "quality_check" or "worker_request"
	RequestedBy  string // Worker ID for worker-requested restarts
}

// NewRestartEvent creates a RestartEvent.
func NewRestartEvent(priorAttempt, nextAttempt int, reason, requestedBy string) RestartEvent {
	return RestartEvent{
		baseEvent:    newBaseEvent(TypeRestart),
		PriorAttempt: priorAttempt,
		NextAttempt:  nextAttempt,
		Reason:       reason,
		RequestedBy:  requestedBy,
	}
}

// TimeoutEvent is emitted when the coordination deadline elapses.
type TimeoutEvent struct {
	baseEvent
	Deadline time.Time // The deadline that was exceeded
	Winner   string    // Degraded winner label, empty if policy chose none
}

// NewTimeoutEvent creates a TimeoutEvent.
func NewTimeoutEvent(deadline time.Time, winner string) TimeoutEvent {
	return TimeoutEvent{
		baseEvent: newBaseEvent(TypeTimeout),
		Deadline:  deadline,
		Winner:    winner,
	}
}

// FinalAnswerEvent is emitted exactly once per completed attempt when a
// winner is selected.
type FinalAnswerEvent struct {
	baseEvent
	Label    string         // Winning answer label
	WorkerID string         // Real author identity
	Votes    int            // Votes received by the winner
	Tally    map[string]int // Full label -> vote count tally
}

// NewFinalAnswerEvent creates a FinalAnswerEvent.
func NewFinalAnswerEvent(label, workerID string, votes int, tally map[string]int) FinalAnswerEvent {
	return FinalAnswerEvent{
		baseEvent: newBaseEvent(TypeFinalAnswer),
		Label:     label,
		WorkerID:  workerID,
		Votes:     votes,
		Tally:     tally,
	}
}

// PhaseChangeEvent is emitted on every forward phase transition.
type PhaseChangeEvent struct {
	baseEvent
	From string
	To   string
}

// NewPhaseChangeEvent creates a PhaseChangeEvent.
func NewPhaseChangeEvent(from, to string) PhaseChangeEvent {
	return PhaseChangeEvent{
		baseEvent: newBaseEvent(TypePhaseChange),
		From:      from,
		To:        to,
	}
}
