// Package contextview renders the anonymized view handed to each worker
// before it acts: the original task plus the current live answers with
// authorship stripped and replaced by session-local candidate tags. The
// orchestrator keeps the real label->worker mapping for logging; nothing
// built here ever carries worker identity.
package contextview

import (
	"fmt"
	"strings"

	"github.com/quorumhq/quorum/internal/board"
)

// Builder produces per-worker, per-invocation context views.
type Builder struct {
	task           string
	includeTallies bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithVoteStandings includes anonymous vote counts in rendered views.
// Standings reference candidate tags only, never voters.
func WithVoteStandings() Option {
	return func(b *Builder) { b.includeTallies = true }
}

// NewBuilder creates a Builder for the given task text.
func NewBuilder(task string, opts ...Option) *Builder {
	b := &Builder{task: task}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Task returns the original task text.
func (b *Builder) Task() string { return b.task }

// Render produces the context view for one worker invocation. The
// receiving worker's own answer is included like any other candidate;
// workers cannot distinguish their own proposals from peers' because tags
// carry no authorship.
func (b *Builder) Render(snap board.Snapshot) string {
	var sb strings.Builder

	sb.WriteString("<task>\n")
	sb.WriteString(b.task)
	sb.WriteString("\n</task>\n")

	live := snap.Live()
	if len(live) == 0 {
		sb.WriteString("\n<candidates>\nNo answers have been proposed yet.\n</candidates>")
		return sb.String()
	}

	sb.WriteString("\n<candidates>\n")
	for i, a := range live {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("[%s] (label: %s)\n", a.Tag, a.Label))
		sb.WriteString(a.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("</candidates>")

	if b.includeTallies {
		sb.WriteString("\n\n<standings>\n")
		tally := snap.Tally()
		for _, a := range live {
			sb.WriteString(fmt.Sprintf("%s: %d vote(s)\n", a.Tag, tally[a.Label]))
		}
		sb.WriteString("</standings>")
	}

	return sb.String()
}

// RenderNotice formats the out-of-band message broadcast to in-flight
// workers when a peer's answer is accepted. Workers may keep working or
// submit a competing answer at their next decision point.
func (b *Builder) RenderNotice(answer board.Answer) string {
	var sb strings.Builder
	sb.WriteString("<board-update>\n")
	sb.WriteString(fmt.Sprintf("A new answer [%s] (label: %s) was proposed:\n", answer.Tag, answer.Label))
	sb.WriteString(answer.Content)
	sb.WriteString("\nYou may continue working, propose a competing answer, or vote for a candidate.\n")
	sb.WriteString("</board-update>")
	return sb.String()
}
