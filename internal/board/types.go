// Package board implements the append-only, versioned store of proposed
// answers and cast votes for one coordination attempt, together with the
// novelty check and the consensus detector. All mutation is serialized
// through a single-writer goroutine so concurrent proposals never race on
// novelty checks or label assignment; readers operate on immutable
// snapshots of board state.
package board

import "time"

// NoveltyPolicy controls how aggressively near-duplicate answers are
// rejected.
type NoveltyPolicy string

const (
	// PolicyLenient skips the novelty check entirely.
	PolicyLenient NoveltyPolicy = "lenient"
	// PolicyBalanced rejects proposals with token overlap above 0.70.
	PolicyBalanced NoveltyPolicy = "balanced"
	// PolicyStrict rejects proposals with token overlap above 0.50.
	PolicyStrict NoveltyPolicy = "strict"
)

// Threshold returns the maximum allowed token-overlap ratio, or a
// negative value when the check is disabled.
func (p NoveltyPolicy) Threshold() float64 {
	switch p {
	case PolicyBalanced:
		return 0.70
	case PolicyStrict:
		return 0.50
	default:
		return -1
	}
}

// Valid reports whether p is a recognized policy.
func (p NoveltyPolicy) Valid() bool {
	switch p {
	case PolicyLenient, PolicyBalanced, PolicyStrict:
		return true
	}
	return false
}

// Answer is an immutable proposal. Once created it is never mutated;
// when the same worker proposes again, the earlier answer is replaced by
// a copy with Superseded set in subsequent snapshots.
type Answer struct {
	// Label is "{worker_ordinal}.{index}", e.g. "agent1.2". Labels are
	// unique per attempt and never reused.
	Label string `json:"label"`

	// Tag is the session-local anonymous identity shown to workers in
	// place of authorship. Stable for the life of the answer.
	Tag string `json:"tag"`

	// WorkerID is the real author. Orchestrator-side only; it is never
	// included in any worker-visible rendering.
	WorkerID string `json:"worker_id"`

	// Content is the proposed answer text.
	Content string `json:"content"`

	// SnapshotRef references the author's workspace snapshot taken at
	// proposal time. Empty for workers without filesystem capability.
	SnapshotRef string `json:"snapshot_ref,omitempty"`

	// Round is the coordination round at acceptance.
	Round int `json:"round"`

	// Seq is the board-assigned acceptance order, total across workers.
	Seq int `json:"seq"`

	CreatedAt  time.Time `json:"created_at"`
	Superseded bool      `json:"superseded"`
}

// Vote is a worker's current preference. One live vote per worker;
// casting again replaces the previous vote.
type Vote struct {
	WorkerID  string    `json:"worker_id"`
	Target    string    `json:"target"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is an immutable view of board state. Answers are ordered by
// acceptance; Votes holds each worker's live vote keyed by worker ID.
type Snapshot struct {
	Version int
	Answers []Answer
	Votes   map[string]Vote
}

// Live returns the non-superseded answers, in acceptance order.
func (s Snapshot) Live() []Answer {
	var live []Answer
	for _, a := range s.Answers {
		if !a.Superseded {
			live = append(live, a)
		}
	}
	return live
}

// Tally counts live votes per target label.
func (s Snapshot) Tally() map[string]int {
	tally := make(map[string]int, len(s.Votes))
	for _, v := range s.Votes {
		tally[v.Target]++
	}
	return tally
}

// FindAnswer returns the answer with the given label, if present.
func (s Snapshot) FindAnswer(label string) (Answer, bool) {
	for _, a := range s.Answers {
		if a.Label == label {
			return a, true
		}
	}
	return Answer{}, false
}
