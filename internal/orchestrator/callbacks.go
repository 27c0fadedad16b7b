package orchestrator

import (
	"context"

	"github.com/quorumhq/quorum/internal/board"
	"github.com/quorumhq/quorum/internal/session"
)

// Callbacks let the embedding application observe and steer a session
// without the orchestrator knowing anything about UIs, review pipelines,
// or model backends. All callbacks are optional and are invoked from the
// orchestrator goroutine; implementations must not block for long.
type Callbacks struct {
	// OnPhaseChange fires after every forward phase transition.
	OnPhaseChange func(from, to session.Phase)

	// OnAnswerAccepted fires when the board accepts a proposed answer.
	OnAnswerAccepted func(answer board.Answer)

	// OnAnswerRejected fires when a proposal is rejected (novelty or
	// budget). The worker sees the same error in its next context view.
	OnAnswerRejected func(workerID string, err error)

	// OnVoteRecorded fires when a vote is recorded or replaced.
	OnVoteRecorded func(vote board.Vote)

	// QualityCheck inspects a provisional winning result before the
	// presenting phase. Returning false triggers a restart when the
	// attempt budget allows one; otherwise the result stands.
	QualityCheck func(result session.Result) bool

	// Present runs the winner's presentation step. The winner may
	// exercise its configured context-path write permissions for the
	// duration of this call. workspaceDir is the winner's private
	// workspace for the attempt.
	Present func(ctx context.Context, winner board.Answer, workspaceDir string) error
}
