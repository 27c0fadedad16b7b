package board

// Verdict is the outcome of a consensus evaluation.
type Verdict struct {
	// Done reports whether coordination is complete.
	Done bool

	// Winner is the winning answer label when Done.
	Winner string

	// Votes is the winner's vote count when Done.
	Votes int

	// Tally is the full label -> vote count map at evaluation time.
	Tally map[string]int
}

// Evaluate derives round completion and winner selection from board
// state. Coordination is complete exactly when every active worker's
// vote rests on a live answer. No mid-proposal check is needed: the
// board's single writer totally orders proposals and votes, and the
// orchestrator evaluates only after applying a vote, so a queued
// proposal is the next mutation rather than a concurrent one. A vote
// whose target has since been superseded keeps its tally entry as
// history but blocks completion until the voter re-votes. The winner is
// the live answer with the most votes, counting self-votes; ties break
// to the earliest-accepted answer (lowest board sequence number), which
// is deterministic because sequence numbers are assigned by the board's
// single writer.
func Evaluate(snap Snapshot, activeWorkers []string) Verdict {
	tally := snap.Tally()
	verdict := Verdict{Tally: tally}

	if len(activeWorkers) == 0 {
		return verdict
	}
	for _, id := range activeWorkers {
		vote, voted := snap.Votes[id]
		if !voted {
			return verdict
		}
		target, ok := snap.FindAnswer(vote.Target)
		if !ok || target.Superseded {
			return verdict
		}
	}

	winner, votes, ok := Leader(snap)
	if !ok {
		return verdict
	}
	verdict.Done = true
	verdict.Winner = winner
	verdict.Votes = votes
	return verdict
}

// Leader returns the live answer currently leading the tally, applying
// the earliest-answer tie-break. Votes resting on superseded answers
// stay in the tally but never elect the dead answer. When no live answer
// holds votes it reports ok=false.
func Leader(snap Snapshot) (label string, votes int, ok bool) {
	tally := snap.Tally()
	if len(tally) == 0 {
		return "", 0, false
	}

	bestSeq := 0
	for _, a := range snap.Answers {
		if a.Superseded {
			continue
		}
		n := tally[a.Label]
		if n == 0 {
			continue
		}
		if label == "" || n > votes || (n == votes && a.Seq < bestSeq) {
			label = a.Label
			votes = n
			bestSeq = a.Seq
		}
	}
	return label, votes, label != ""
}

// EarliestLive returns the oldest non-superseded answer, if any. Used by
// the degraded-winner policy when a timeout fires before any vote.
func EarliestLive(snap Snapshot) (Answer, bool) {
	for _, a := range snap.Answers {
		if !a.Superseded {
			return a, true
		}
	}
	return Answer{}, false
}
