package contextview

import (
	"strings"
	"testing"

	"github.com/quorumhq/quorum/internal/board"
)

func TestRenderEmptyBoard(t *testing.T) {
	b := NewBuilder("What is 2+2?")
	view := b.Render(board.Snapshot{Votes: map[string]board.Vote{}})

	if !strings.Contains(view, "<task>\nWhat is 2+2?\n</task>") {
		t.Errorf("view missing task block:\n%s", view)
	}
	if !strings.Contains(view, "No answers have been proposed yet.") {
		t.Errorf("view missing empty-board notice:\n%s", view)
	}
}

func TestRenderNeverLeaksWorkerIdentity(t *testing.T) {
	snap := board.Snapshot{
		Answers: []board.Answer{
			{Label: "agent1.1", Tag: "candidate-1", WorkerID: "claude-opus-worker", Content: "Four.", Seq: 1},
			{Label: "agent2.1", Tag: "candidate-2", WorkerID: "gpt-worker", Content: "The answer is 4.", Seq: 2},
		},
		Votes: map[string]board.Vote{},
	}

	b := NewBuilder("What is 2+2?", WithVoteStandings())
	view := b.Render(snap)

	for _, id := range []string{"claude-opus-worker", "gpt-worker"} {
		if strings.Contains(view, id) {
			t.Errorf("view leaks worker ID %q:\n%s", id, view)
		}
	}
	if !strings.Contains(view, "[candidate-1] (label: agent1.1)") {
		t.Errorf("view missing tagged candidate:\n%s", view)
	}
	if !strings.Contains(view, "Four.") {
		t.Errorf("view missing answer content:\n%s", view)
	}
}

func TestRenderSkipsSuperseded(t *testing.T) {
	snap := board.Snapshot{
		Answers: []board.Answer{
			{Label: "agent1.1", Tag: "candidate-1", Content: "old", Superseded: true},
			{Label: "agent1.2", Tag: "candidate-2", Content: "new"},
		},
		Votes: map[string]board.Vote{},
	}

	view := NewBuilder("task").Render(snap)
	if strings.Contains(view, "agent1.1") {
		t.Errorf("view shows superseded answer:\n%s", view)
	}
	if !strings.Contains(view, "agent1.2") {
		t.Errorf("view missing live answer:\n%s", view)
	}
}

func TestRenderStandings(t *testing.T) {
	snap := board.Snapshot{
		Answers: []board.Answer{
			{Label: "agent1.1", Tag: "candidate-1", Content: "a"},
			{Label: "agent2.1", Tag: "candidate-2", Content: "b"},
		},
		Votes: map[string]board.Vote{
			"alpha": {WorkerID: "alpha", Target: "agent2.1"},
			"beta":  {WorkerID: "beta", Target: "agent2.1"},
		},
	}

	withStandings := NewBuilder("task", WithVoteStandings()).Render(snap)
	if !strings.Contains(withStandings, "<standings>") {
		t.Errorf("view missing standings:\n%s", withStandings)
	}
	if !strings.Contains(withStandings, "candidate-2: 2 vote(s)") {
		t.Errorf("view missing candidate-2 count:\n%s", withStandings)
	}
	// Voter identity stays hidden even in standings.
	if strings.Contains(withStandings, "alpha") || strings.Contains(withStandings, "beta") {
		t.Errorf("standings leak voter identity:\n%s", withStandings)
	}

	without := NewBuilder("task").Render(snap)
	if strings.Contains(without, "<standings>") {
		t.Errorf("standings present when disabled:\n%s", without)
	}
}

func TestRenderNotice(t *testing.T) {
	b := NewBuilder("task")
	notice := b.RenderNotice(board.Answer{
		Label:    "agent2.1",
		Tag:      "candidate-2",
		WorkerID: "hidden-worker",
		Content:  "Consider memoization.",
	})

	if !strings.Contains(notice, "<board-update>") {
		t.Errorf("notice missing wrapper:\n%s", notice)
	}
	if !strings.Contains(notice, "[candidate-2] (label: agent2.1)") {
		t.Errorf("notice missing identity line:\n%s", notice)
	}
	if strings.Contains(notice, "hidden-worker") {
		t.Errorf("notice leaks worker ID:\n%s", notice)
	}
}
