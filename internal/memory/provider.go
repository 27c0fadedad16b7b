// Package memory defines the consumed interface to the long-term
// semantic memory subsystem. The coordination engine records accepted
// actions and retrieves facts only when rebuilding context after a
// restart or compression event, never on every turn; retrieval on every
// turn would duplicate content already present in the live context.
package memory

import "context"

// Fact is one retrieved memory item.
type Fact struct {
	Content string
	Score   float64
}

// Turn is a recorded exchange for one worker.
type Turn struct {
	WorkerID string
	Messages []string
}

// Provider is implemented by the external memory subsystem.
type Provider interface {
	// Retrieve returns facts relevant to the query for a worker.
	// excludeRecent skips facts recorded during the current attempt.
	Retrieve(ctx context.Context, workerID, query string, excludeRecent bool) ([]Fact, error)

	// Record stores a turn after an accepted answer or vote.
	Record(ctx context.Context, turn Turn) error

	// Compress reduces a conversation once it crosses triggerThreshold,
	// returning the retained messages at roughly targetRatio of the
	// original size.
	Compress(ctx context.Context, conversation []string, triggerThreshold int, targetRatio float64) ([]string, error)
}

// Nop is a Provider that remembers nothing. Used when no memory
// subsystem is configured.
type Nop struct{}

// Retrieve returns no facts.
func (Nop) Retrieve(ctx context.Context, workerID, query string, excludeRecent bool) ([]Fact, error) {
	return nil, nil
}

// Record discards the turn.
func (Nop) Record(ctx context.Context, turn Turn) error { return nil }

// Compress retains the conversation unchanged.
func (Nop) Compress(ctx context.Context, conversation []string, triggerThreshold int, targetRatio float64) ([]string, error) {
	return conversation, nil
}
