// Package worker defines the contract between the coordination engine and
// the opaque model-provider backends that actually generate answers. The
// engine never sees how a worker produces content; it only consumes the
// stream of updates from Act and delivers out-of-band notices via Inject.
package worker

import "context"

// Status represents a worker's position in the coordination protocol.
type Status string

const (
	// StatusIdle means the worker has no invocation in flight.
	StatusIdle Status = "idle"
	// StatusStreaming means the worker is mid-generation.
	StatusStreaming Status = "streaming"
	// StatusAnswered means the worker's latest action was a new answer.
	StatusAnswered Status = "answered"
	// StatusVoted means the worker has a live vote outstanding.
	StatusVoted Status = "voted"
	// StatusCompleted means the worker is done for this attempt
	// (cancelled, vote-only exhausted, or session ended).
	StatusCompleted Status = "completed"
)

// ActionKind discriminates the terminal action of an invocation.
type ActionKind string

const (
	// ActionNewAnswer proposes a new answer to the board.
	ActionNewAnswer ActionKind = "new_answer"
	// ActionVote casts or replaces the worker's vote.
	ActionVote ActionKind = "vote"
	// ActionRestart requests a full attempt reset for this worker.
	ActionRestart ActionKind = "restart"
)

// Action is the terminal decision of a single worker invocation.
type Action struct {
	Kind ActionKind

	// Content is the proposed answer text for ActionNewAnswer.
	Content string

	// Target is the answer label being voted for, for ActionVote.
	Target string

	// Reason is the free-text vote justification, for ActionVote, or the
	// reset rationale for ActionRestart.
	Reason string
}

// Update is one element of the stream returned by Act. Exactly one of
// Partial or Action is meaningful; an Update carrying an Action is the
// final element of the stream.
type Update struct {
	// Partial is an incremental chunk of the worker's visible reasoning
	// or generation. Informational only.
	Partial string

	// Action, when non-nil, terminates the invocation.
	Action *Action
}

// Capabilities describes what a worker is allowed to touch.
type Capabilities struct {
	// Filesystem reports whether the worker has a private workspace.
	// Answers from filesystem-enabled workers carry workspace snapshots.
	Filesystem bool

	// ContextPaths reports whether the worker may access shared
	// external-project paths.
	ContextPaths bool
}

// Worker is a participant in a coordination session. Implementations are
// backend adapters and live outside this module.
type Worker interface {
	// ID returns the stable internal identifier. Never exposed to peers.
	ID() string

	// Capabilities returns the worker's static capabilities.
	Capabilities() Capabilities

	// Act starts one invocation against the given anonymized context view
	// and returns a stream of updates. The stream is closed after the
	// final Action, or when ctx is cancelled mid-stream.
	Act(ctx context.Context, view string) (<-chan Update, error)

	// Inject delivers a best-effort out-of-band notice (for example, a
	// board update) to an in-flight invocation. Workers observe notices
	// at their next decision point, never mid-token. Implementations must
	// not block.
	Inject(notice string)
}
