package board

import "testing"

func snapWith(answers []Answer, votes map[string]Vote) Snapshot {
	if votes == nil {
		votes = map[string]Vote{}
	}
	return Snapshot{Answers: answers, Votes: votes}
}

func TestEvaluateIncomplete(t *testing.T) {
	answers := []Answer{
		{Label: "agent1.1", WorkerID: "alpha", Seq: 1},
		{Label: "agent2.1", WorkerID: "beta", Seq: 2},
	}

	tests := []struct {
		name  string
		votes map[string]Vote
	}{
		{
			name:  "no votes",
			votes: nil,
		},
		{
			name: "missing one vote",
			votes: map[string]Vote{
				"alpha": {WorkerID: "alpha", Target: "agent2.1"},
				"beta":  {WorkerID: "beta", Target: "agent2.1"},
			},
		},
		{
			name: "vote on an unknown label",
			votes: map[string]Vote{
				"alpha": {WorkerID: "alpha", Target: "agent2.1"},
				"beta":  {WorkerID: "beta", Target: "agent2.1"},
				"gamma": {WorkerID: "gamma", Target: "agent9.9"},
			},
		},
	}
	active := []string{"alpha", "beta", "gamma"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := Evaluate(snapWith(answers, tt.votes), active)
			if verdict.Done {
				t.Errorf("Done = true, want false")
			}
		})
	}
}

// Three workers: two answers on the board, all votes land on the second
// worker's answer, including the author's self-vote.
func TestEvaluateConsensus(t *testing.T) {
	answers := []Answer{
		{Label: "agent1.1", WorkerID: "alpha", Seq: 1},
		{Label: "agent2.1", WorkerID: "beta", Seq: 2},
	}
	votes := map[string]Vote{
		"gamma": {WorkerID: "gamma", Target: "agent2.1"},
		"alpha": {WorkerID: "alpha", Target: "agent2.1"},
		"beta":  {WorkerID: "beta", Target: "agent2.1"},
	}

	verdict := Evaluate(snapWith(answers, votes), []string{"alpha", "beta", "gamma"})
	if !verdict.Done {
		t.Fatal("Done = false, want true")
	}
	if verdict.Winner != "agent2.1" {
		t.Errorf("Winner = %q, want agent2.1", verdict.Winner)
	}
	if verdict.Votes != 3 {
		t.Errorf("Votes = %d, want 3", verdict.Votes)
	}
	if verdict.Tally["agent2.1"] != 3 {
		t.Errorf("Tally[agent2.1] = %d, want 3", verdict.Tally["agent2.1"])
	}
}

func TestEvaluateTieBreaksToEarliestAnswer(t *testing.T) {
	answers := []Answer{
		{Label: "agent1.1", WorkerID: "alpha", Seq: 1},
		{Label: "agent2.1", WorkerID: "beta", Seq: 2},
	}
	votes := map[string]Vote{
		"alpha": {WorkerID: "alpha", Target: "agent1.1"},
		"beta":  {WorkerID: "beta", Target: "agent2.1"},
	}

	verdict := Evaluate(snapWith(answers, votes), []string{"alpha", "beta"})
	if !verdict.Done {
		t.Fatal("Done = false, want true")
	}
	if verdict.Winner != "agent1.1" {
		t.Errorf("Winner = %q, want agent1.1 (earliest seq wins ties)", verdict.Winner)
	}
}

func TestEvaluateNoActiveWorkers(t *testing.T) {
	verdict := Evaluate(snapWith(nil, nil), nil)
	if verdict.Done {
		t.Error("Done = true with no active workers")
	}
}

// A worker supersedes its own answer after a peer voted for it: the
// stale vote stays in the tally but must neither complete the round nor
// crown the dead answer.
func TestEvaluateAfterSupersession(t *testing.T) {
	b, err := New(Config{WorkerIDs: []string{"alpha", "beta"}, Novelty: PolicyLenient})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Close()

	if _, err := b.Propose("alpha", "first pass", "", 1); err != nil {
		t.Fatalf("Propose() error = %v", err)
	}
	if _, _, err := b.Vote("beta", "agent1.1", "fine"); err != nil {
		t.Fatalf("Vote() error = %v", err)
	}
	if _, err := b.Propose("alpha", "second pass, tightened", "", 2); err != nil {
		t.Fatalf("Propose() error = %v", err)
	}
	if _, _, err := b.Vote("alpha", "agent1.2", "better"); err != nil {
		t.Fatalf("Vote() error = %v", err)
	}

	verdict := Evaluate(b.State(), []string{"alpha", "beta"})
	if verdict.Done {
		t.Fatalf("Done = true while beta's vote rests on superseded agent1.1, verdict = %+v", verdict)
	}
	if verdict.Tally["agent1.1"] != 1 {
		t.Errorf("Tally[agent1.1] = %d, want 1 (stale vote kept as history)", verdict.Tally["agent1.1"])
	}

	if _, _, err := b.Vote("beta", "agent1.2", "agreed"); err != nil {
		t.Fatalf("re-Vote() error = %v", err)
	}
	verdict = Evaluate(b.State(), []string{"alpha", "beta"})
	if !verdict.Done {
		t.Fatal("Done = false after beta re-voted for the live answer")
	}
	if verdict.Winner != "agent1.2" || verdict.Votes != 2 {
		t.Errorf("verdict = %+v, want winner agent1.2 with 2 votes", verdict)
	}
}

func TestLeader(t *testing.T) {
	answers := []Answer{
		{Label: "agent1.1", Seq: 1},
		{Label: "agent2.1", Seq: 2},
		{Label: "agent3.1", Seq: 3},
	}
	votes := map[string]Vote{
		"alpha": {Target: "agent2.1"},
		"beta":  {Target: "agent2.1"},
		"gamma": {Target: "agent3.1"},
	}

	label, n, ok := Leader(snapWith(answers, votes))
	if !ok {
		t.Fatal("ok = false")
	}
	if label != "agent2.1" || n != 2 {
		t.Errorf("Leader() = %q/%d, want agent2.1/2", label, n)
	}

	if _, _, ok := Leader(snapWith(answers, nil)); ok {
		t.Error("ok = true with no votes")
	}
}

func TestLeaderSkipsSuperseded(t *testing.T) {
	answers := []Answer{
		{Label: "agent1.1", Seq: 1, Superseded: true},
		{Label: "agent1.2", Seq: 2},
	}

	// Two stale votes on the dead answer lose to one vote on its live
	// replacement.
	votes := map[string]Vote{
		"alpha": {Target: "agent1.1"},
		"beta":  {Target: "agent1.1"},
		"gamma": {Target: "agent1.2"},
	}
	label, n, ok := Leader(snapWith(answers, votes))
	if !ok {
		t.Fatal("ok = false")
	}
	if label != "agent1.2" || n != 1 {
		t.Errorf("Leader() = %q/%d, want agent1.2/1", label, n)
	}

	// With every vote resting on the dead answer there is no leader.
	stale := map[string]Vote{
		"alpha": {Target: "agent1.1"},
		"beta":  {Target: "agent1.1"},
	}
	if label, _, ok := Leader(snapWith(answers, stale)); ok {
		t.Errorf("Leader() = %q, want no leader when only superseded answers hold votes", label)
	}
}

func TestEarliestLive(t *testing.T) {
	answers := []Answer{
		{Label: "agent1.1", Seq: 1, Superseded: true},
		{Label: "agent1.2", Seq: 2},
		{Label: "agent2.1", Seq: 3},
	}

	a, ok := EarliestLive(snapWith(answers, nil))
	if !ok {
		t.Fatal("ok = false")
	}
	if a.Label != "agent1.2" {
		t.Errorf("EarliestLive() = %q, want agent1.2", a.Label)
	}

	if _, ok := EarliestLive(snapWith(nil, nil)); ok {
		t.Error("ok = true on empty board")
	}
}
