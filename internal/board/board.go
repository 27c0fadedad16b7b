package board

import (
	"fmt"
	"time"

	"github.com/quorumhq/quorum/internal/errors"
)

// Config holds the parameters for one attempt's board.
type Config struct {
	// WorkerIDs is the ordered worker set. Ordinals (agent1, agent2, …)
	// are assigned from this order.
	WorkerIDs []string

	// Novelty is the duplicate-rejection policy.
	Novelty NoveltyPolicy

	// MaxAnswersPerWorker caps proposals per worker for the attempt.
	// Zero means unlimited.
	MaxAnswersPerWorker int
}

// Board is the answer board for a single attempt. All mutation flows
// through a single writer goroutine started by New; Propose and Vote are
// synchronous requests against that writer, so label assignment and
// novelty checks are totally ordered. State reads return immutable
// snapshots and never block behind writers for long.
type Board struct {
	cfg      Config
	ordinals map[string]int // workerID -> 1-based ordinal

	requests chan request
	done     chan struct{}

	// Written only by the writer goroutine.
	answers   []Answer
	votes     map[string]Vote
	perWorker map[string]int // accepted proposals per worker
	version   int
}

type reqKind int

const (
	reqPropose reqKind = iota
	reqVote
	reqSnapshot
	reqClose
)

type request struct {
	kind reqKind

	workerID    string
	content     string
	snapshotRef string
	round       int
	target      string
	reason      string

	resp chan response
}

type response struct {
	answer   Answer
	vote     Vote
	snapshot Snapshot
	replaced bool
	err      error
}

// New creates a Board and starts its writer goroutine.
func New(cfg Config) (*Board, error) {
	if len(cfg.WorkerIDs) == 0 {
		return nil, errors.ErrNoWorkers
	}
	if !cfg.Novelty.Valid() {
		return nil, fmt.Errorf("board: unknown novelty policy %q", cfg.Novelty)
	}

	ordinals := make(map[string]int, len(cfg.WorkerIDs))
	for i, id := range cfg.WorkerIDs {
		if _, dup := ordinals[id]; dup {
			return nil, fmt.Errorf("board: duplicate worker ID %q", id)
		}
		ordinals[id] = i + 1
	}

	b := &Board{
		cfg:       cfg,
		ordinals:  ordinals,
		requests:  make(chan request),
		done:      make(chan struct{}),
		votes:     make(map[string]Vote),
		perWorker: make(map[string]int),
	}
	go b.run()
	return b, nil
}

// run is the single-writer loop. It owns all board state.
func (b *Board) run() {
	for req := range b.requests {
		switch req.kind {
		case reqPropose:
			answer, err := b.propose(req)
			req.resp <- response{answer: answer, err: err}
		case reqVote:
			vote, replaced, err := b.vote(req)
			req.resp <- response{vote: vote, replaced: replaced, err: err}
		case reqSnapshot:
			req.resp <- response{snapshot: b.snapshotLocked()}
		case reqClose:
			req.resp <- response{}
			close(b.done)
			return
		}
	}
}

// Propose submits a new answer on behalf of a worker. On acceptance the
// worker's previous answer (if any) is marked superseded and the new
// answer receives the next per-worker label and board-wide sequence
// number. Rejections return ErrNoveltyRejected or
// ErrProposalLimitExceeded wrapped in a BoardError.
func (b *Board) Propose(workerID, content, snapshotRef string, round int) (Answer, error) {
	resp, err := b.send(request{
		kind:        reqPropose,
		workerID:    workerID,
		content:     content,
		snapshotRef: snapshotRef,
		round:       round,
	})
	if err != nil {
		return Answer{}, err
	}
	return resp.answer, resp.err
}

// Vote records or replaces a worker's vote. The target must be a
// non-superseded answer at cast time.
func (b *Board) Vote(workerID, target, reason string) (Vote, bool, error) {
	resp, err := b.send(request{
		kind:     reqVote,
		workerID: workerID,
		target:   target,
		reason:   reason,
	})
	if err != nil {
		return Vote{}, false, err
	}
	return resp.vote, resp.replaced, resp.err
}

// State returns an immutable snapshot of the board.
func (b *Board) State() Snapshot {
	resp, err := b.send(request{kind: reqSnapshot})
	if err != nil {
		return Snapshot{Votes: map[string]Vote{}}
	}
	return resp.snapshot
}

// CurrentAnswers returns the non-superseded answers in acceptance order.
func (b *Board) CurrentAnswers() []Answer {
	return b.State().Live()
}

// Close stops the writer goroutine. Subsequent mutations fail with
// ErrBoardClosed. Idempotent.
func (b *Board) Close() {
	_, _ = b.send(request{kind: reqClose})
}

// send delivers a request to the writer goroutine, failing fast if the
// board has been closed.
func (b *Board) send(req request) (response, error) {
	req.resp = make(chan response, 1)
	select {
	case <-b.done:
		return response{}, errors.ErrBoardClosed
	case b.requests <- req:
	}
	select {
	case resp := <-req.resp:
		return resp, nil
	case <-b.done:
		return response{}, errors.ErrBoardClosed
	}
}

// propose runs on the writer goroutine.
func (b *Board) propose(req request) (Answer, error) {
	ordinal, ok := b.ordinals[req.workerID]
	if !ok {
		return Answer{}, errors.NewBoardError("unknown worker", errors.ErrWorkerInactive).
			WithWorker(req.workerID)
	}

	if b.cfg.MaxAnswersPerWorker > 0 && b.perWorker[req.workerID] >= b.cfg.MaxAnswersPerWorker {
		return Answer{}, errors.NewBoardError("new-answer budget exhausted, vote instead",
			errors.ErrProposalLimitExceeded).WithWorker(req.workerID)
	}

	if threshold := b.cfg.Novelty.Threshold(); threshold >= 0 {
		live := b.live()
		if ratio, closest := maxOverlap(req.content, live); ratio > threshold {
			return Answer{}, errors.NewBoardError(
				fmt.Sprintf("too similar to %s under %s policy", closest, b.cfg.Novelty),
				errors.ErrNoveltyRejected).
				WithWorker(req.workerID).WithLabel(closest).WithOverlap(ratio)
		}
	}

	// Supersede the worker's previous live answer.
	for i := range b.answers {
		if b.answers[i].WorkerID == req.workerID && !b.answers[i].Superseded {
			b.answers[i].Superseded = true
		}
	}

	b.perWorker[req.workerID]++
	b.version++
	answer := Answer{
		Label:       fmt.Sprintf("agent%d.%d", ordinal, b.perWorker[req.workerID]),
		Tag:         fmt.Sprintf("candidate-%d", len(b.answers)+1),
		WorkerID:    req.workerID,
		Content:     req.content,
		SnapshotRef: req.snapshotRef,
		Round:       req.round,
		Seq:         len(b.answers) + 1,
		CreatedAt:   time.Now(),
	}
	b.answers = append(b.answers, answer)
	return answer, nil
}

// vote runs on the writer goroutine.
func (b *Board) vote(req request) (Vote, bool, error) {
	if _, ok := b.ordinals[req.workerID]; !ok {
		return Vote{}, false, errors.NewBoardError("unknown worker", errors.ErrWorkerInactive).
			WithWorker(req.workerID)
	}

	target, ok := b.findLive(req.target)
	if !ok {
		return Vote{}, false, errors.NewBoardError("target must be a live answer",
			errors.ErrUnknownAnswerTarget).
			WithWorker(req.workerID).WithLabel(req.target)
	}

	_, replaced := b.votes[req.workerID]
	vote := Vote{
		WorkerID:  req.workerID,
		Target:    target.Label,
		Reason:    req.reason,
		CreatedAt: time.Now(),
	}
	b.votes[req.workerID] = vote
	b.version++
	return vote, replaced, nil
}

// live returns the current non-superseded answers. Writer goroutine only.
func (b *Board) live() []Answer {
	var live []Answer
	for _, a := range b.answers {
		if !a.Superseded {
			live = append(live, a)
		}
	}
	return live
}

// findLive locates a non-superseded answer by label. Writer goroutine only.
func (b *Board) findLive(label string) (Answer, bool) {
	for _, a := range b.answers {
		if a.Label == label && !a.Superseded {
			return a, true
		}
	}
	return Answer{}, false
}

// snapshotLocked copies board state. Writer goroutine only.
func (b *Board) snapshotLocked() Snapshot {
	answers := make([]Answer, len(b.answers))
	copy(answers, b.answers)
	votes := make(map[string]Vote, len(b.votes))
	for k, v := range b.votes {
		votes[k] = v
	}
	return Snapshot{Version: b.version, Answers: answers, Votes: votes}
}
