package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quorumhq/quorum/internal/board"
	"github.com/quorumhq/quorum/internal/contextview"
	"github.com/quorumhq/quorum/internal/errors"
	"github.com/quorumhq/quorum/internal/event"
	"github.com/quorumhq/quorum/internal/memory"
	"github.com/quorumhq/quorum/internal/session"
	"github.com/quorumhq/quorum/internal/worker"
	"github.com/quorumhq/quorum/internal/workspace"
)

// actionMsg carries one worker action into the orchestrator's fan-in
// channel. The reply channel returns the structured acceptance or
// rejection to the blocked worker loop.
type actionMsg struct {
	workerID   string
	invocation int
	action     worker.Action
	reply      chan error
}

// attempt is the per-attempt arena: board, workspaces, event log, and
// worker goroutines. A restart abandons the whole arena and builds a
// fresh one.
type attempt struct {
	index   int
	dir     string
	board   *board.Board
	store   *workspace.Store
	builder *contextview.Builder
	log     *event.Log
	logSub  string

	ctx     context.Context
	cancel  context.CancelFunc
	actions chan actionMsg

	workerCtxs    map[string]context.Context
	workerCancels map[string]context.CancelFunc
	observers     []*workspace.Observer

	mu         sync.Mutex
	statuses   map[string]worker.Status
	rejections map[string]int
	voteOnly   map[string]bool
}

// runAttempt executes one attempt to a terminal state: a completed
// result, a timeout result, or a restart request.
func (o *Orchestrator) runAttempt(ctx context.Context) (session.Result, *restartRequest, error) {
	index, dir, err := o.sessions.BeginAttempt()
	if err != nil {
		return session.Result{}, nil, err
	}

	ctx, span := o.tracer.Start(ctx, "quorum.attempt",
		trace.WithAttributes(attribute.Int("attempt", index)))
	defer span.End()

	a, err := o.setupAttempt(ctx, index, dir)
	if err != nil {
		return session.Result{}, nil, err
	}
	o.setCurrent(a)

	logger := o.logger.WithAttempt(index)
	logger.Info("coordination started",
		"task_len", len(o.task),
		"workers", len(o.workers),
		"deadline", o.timeout.Deadline())

	wg := conc.NewWaitGroup()
	// Teardown cancels worker contexts first so blocked loops can exit
	// before the wait.
	defer func() {
		o.teardownAttempt(a)
		wg.Wait()
	}()
	for _, w := range o.workers {
		w := w
		wg.Go(func() { o.workerLoop(a, w) })
	}

	for {
		select {
		case <-ctx.Done():
			return session.Result{}, nil, ctx.Err()

		case <-o.timeout.Expired():
			result, err := o.timeoutAttempt(a)
			return result, nil, err

		case msg := <-a.actions:
			verdict, restart := o.apply(a, msg)
			if restart != nil {
				return session.Result{
					Attempt: a.index,
					Outcome: session.OutcomeFailed,
					Tally:   a.board.State().Tally(),
				}, restart, nil
			}
			if verdict != nil {
				result, restart, err := o.finishAttempt(a, *verdict)
				return result, restart, err
			}
		}
	}
}

// setupAttempt builds the attempt arena.
func (o *Orchestrator) setupAttempt(ctx context.Context, index int, dir string) (*attempt, error) {
	brd, err := board.New(board.Config{
		WorkerIDs:           o.workerIDs,
		Novelty:             board.NoveltyPolicy(o.coord.NoveltyPolicy),
		MaxAnswersPerWorker: o.coord.MaxAnswersPerWorker,
	})
	if err != nil {
		return nil, err
	}

	store, err := workspace.NewStore(o.fs, dir, o.workerIDs)
	if err != nil {
		brd.Close()
		return nil, err
	}

	log, err := event.OpenLog(o.sessions.EventLogPath(index))
	if err != nil {
		brd.Close()
		return nil, err
	}

	opts := []contextview.Option{}
	if o.coord.VoteStandings {
		opts = append(opts, contextview.WithVoteStandings())
	}

	actx, cancel := context.WithCancel(ctx)
	a := &attempt{
		index:         index,
		dir:           dir,
		board:         brd,
		store:         store,
		builder:       contextview.NewBuilder(o.task, opts...),
		log:           log,
		logSub:        log.AttachTo(o.bus),
		ctx:           actx,
		cancel:        cancel,
		actions:       make(chan actionMsg, len(o.workers)),
		workerCtxs:    make(map[string]context.Context, len(o.workers)),
		workerCancels: make(map[string]context.CancelFunc, len(o.workers)),
		statuses:      make(map[string]worker.Status, len(o.workers)),
		rejections:    make(map[string]int),
		voteOnly:      make(map[string]bool),
	}
	for _, id := range o.workerIDs {
		wctx, wcancel := context.WithCancel(actx)
		a.workerCtxs[id] = wctx
		a.workerCancels[id] = wcancel
		a.statuses[id] = worker.StatusIdle
	}

	if o.observe {
		for _, w := range o.workers {
			if !w.Capabilities().Filesystem {
				continue
			}
			obs, err := store.Observe(w.ID(), o.logger)
			if err != nil {
				o.logger.Warn("workspace observer unavailable",
					"worker", w.ID(), "error", err)
				continue
			}
			a.observers = append(a.observers, obs)
		}
	}
	return a, nil
}

// teardownAttempt cancels workers and releases the arena. Runs before
// the conc.WaitGroup wait, so blocked worker loops unblock via their
// contexts.
func (o *Orchestrator) teardownAttempt(a *attempt) {
	a.cancel()
	for _, obs := range a.observers {
		_ = obs.Close()
	}
	a.board.Close()
	o.bus.Unsubscribe(a.logSub)
	if err := a.log.Close(); err != nil {
		o.logger.Warn("failed to close event log", "attempt", a.index, "error", err)
	}
}

// workerLoop drives one worker: render view, invoke, forward the
// terminal action, show any rejection in the next view. Exits when the
// worker's context is cancelled or its stream ends without an action.
func (o *Orchestrator) workerLoop(a *attempt, w worker.Worker) {
	id := w.ID()
	wctx := a.workerCtxs[id]
	logger := o.logger.WithAttempt(a.index).WithWorker(id)

	var lastErr error
	for invocation := 1; ; invocation++ {
		if wctx.Err() != nil {
			return
		}

		view := o.renderView(a, id, invocation, lastErr)
		lastErr = nil

		ictx, span := o.tracer.Start(wctx, "quorum.invocation",
			trace.WithAttributes(
				attribute.String("worker", id),
				attribute.Int("invocation", invocation)))

		stream, err := w.Act(ictx, view)
		if err != nil {
			span.End()
			if wctx.Err() == nil {
				logger.Error("worker invocation failed", "error", err)
			}
			a.setStatus(id, worker.StatusCompleted)
			return
		}
		a.setStatus(id, worker.StatusStreaming)

		action := drainStream(stream)
		span.End()
		if action == nil {
			if wctx.Err() == nil {
				logger.Info("worker finished without action")
				a.setStatus(id, worker.StatusCompleted)
			}
			return
		}

		msg := actionMsg{
			workerID:   id,
			invocation: invocation,
			action:     *action,
			reply:      make(chan error, 1),
		}
		select {
		case a.actions <- msg:
		case <-wctx.Done():
			return
		}
		select {
		case lastErr = <-msg.reply:
		case <-wctx.Done():
			return
		}
		if lastErr != nil {
			logger.Info("action rejected",
				"kind", string(action.Kind), "error", lastErr)
		}
	}
}

// drainStream consumes updates until the terminal action or stream
// close. Partials are informational only.
func drainStream(stream <-chan worker.Update) *worker.Action {
	for update := range stream {
		if update.Action != nil {
			return update.Action
		}
	}
	return nil
}

// renderView builds the anonymized context for one invocation. The
// first view after a restart carries retrieved memory; a rejected
// action from the previous invocation is surfaced as an error block.
func (o *Orchestrator) renderView(a *attempt, workerID string, invocation int, lastErr error) string {
	var sb strings.Builder

	if a.index > 1 && invocation == 1 {
		facts, err := o.mem.Retrieve(a.ctx, workerID, o.task, true)
		if err != nil {
			o.logger.Warn("memory retrieval failed", "worker", workerID, "error", err)
		}
		if len(facts) > 0 {
			sb.WriteString("<memory>\n")
			for _, f := range facts {
				sb.WriteString("- ")
				sb.WriteString(f.Content)
				sb.WriteString("\n")
			}
			sb.WriteString("</memory>\n\n")
		}
	}

	sb.WriteString(a.builder.Render(a.board.State()))

	if lastErr != nil {
		sb.WriteString("\n\n<rejected>\n")
		sb.WriteString(lastErr.Error())
		sb.WriteString("\n</rejected>")
	}
	return sb.String()
}

// apply processes one worker action on the orchestrator goroutine. It
// replies to the waiting worker loop and returns a non-nil verdict when
// consensus was reached, or a restart request when one was accepted.
func (o *Orchestrator) apply(a *attempt, msg actionMsg) (*board.Verdict, *restartRequest) {
	switch msg.action.Kind {
	case worker.ActionNewAnswer:
		msg.reply <- o.applyNewAnswer(a, msg)
		return nil, nil

	case worker.ActionVote:
		verdict, err := o.applyVote(a, msg)
		msg.reply <- err
		return verdict, nil

	case worker.ActionRestart:
		if !o.restarts.Allow() {
			msg.reply <- errors.NewSessionError("restart denied: attempt budget exhausted",
				errors.ErrRestartRequested).WithAttempt(a.index)
			return nil, nil
		}
		o.bus.Publish(event.NewRestartEvent(a.index, a.index+1, "worker_request", msg.workerID))
		o.logger.WithAttempt(a.index).Info("restart requested",
			"worker", msg.workerID, "reason", msg.action.Reason)
		// No reply: the requester unblocks when the attempt context is
		// cancelled during teardown, never acting again in the dying
		// attempt.
		return nil, &restartRequest{reason: "worker_request", requestedBy: msg.workerID}

	default:
		msg.reply <- fmt.Errorf("orchestrator: unknown action kind %q", msg.action.Kind)
		return nil, nil
	}
}

// applyNewAnswer proposes to the board, snapshots the workspace on
// acceptance, and broadcasts the board update to the other workers.
func (o *Orchestrator) applyNewAnswer(a *attempt, msg actionMsg) error {
	id := msg.workerID
	logger := o.logger.WithAttempt(a.index).WithWorker(id)

	if a.isVoteOnly(id) {
		return errors.NewBoardError("new-answer budget exhausted, vote instead",
			errors.ErrProposalLimitExceeded).WithWorker(id)
	}

	// The snapshot reference equals the answer label by convention.
	// Labels are predictable here because apply is the only proposer and
	// runs serially.
	ref := ""
	if w, ok := o.byID[id]; ok && w.Capabilities().Filesystem {
		ref = o.predictLabel(a, id)
	}

	answer, err := a.board.Propose(id, msg.action.Content, ref, msg.invocation)
	if err != nil {
		o.noteRejection(a, id, err)
		if o.callbacks.OnAnswerRejected != nil {
			o.callbacks.OnAnswerRejected(id, err)
		}
		return err
	}

	if ref != "" {
		if _, serr := a.store.Snapshot(id, ref); serr != nil {
			logger.Error("workspace snapshot failed", "ref", ref, "error", serr)
		}
	}

	a.setStatus(id, worker.StatusAnswered)
	o.bus.Publish(event.NewNewAnswerEvent(id, answer.Label, answer.Tag, answer.Round, answer.SnapshotRef))
	logger.Info("answer accepted",
		"label", answer.Label, "tag", answer.Tag, "seq", answer.Seq)

	if rerr := o.mem.Record(a.ctx, memoryTurn(id, "answered "+answer.Label, answer.Content)); rerr != nil {
		logger.Warn("memory record failed", "error", rerr)
	}

	notice := a.builder.RenderNotice(answer)
	for _, w := range o.workers {
		if w.ID() != id {
			w.Inject(notice)
		}
	}

	if o.callbacks.OnAnswerAccepted != nil {
		o.callbacks.OnAnswerAccepted(answer)
	}
	return nil
}

// applyVote records the vote and evaluates consensus.
func (o *Orchestrator) applyVote(a *attempt, msg actionMsg) (*board.Verdict, error) {
	id := msg.workerID
	logger := o.logger.WithAttempt(a.index).WithWorker(id)

	vote, replaced, err := a.board.Vote(id, msg.action.Target, msg.action.Reason)
	if err != nil {
		return nil, err
	}

	a.setStatus(id, worker.StatusVoted)
	o.bus.Publish(event.NewVoteEvent(id, vote.Target, vote.Reason, replaced))
	logger.Info("vote recorded", "target", vote.Target, "replaced", replaced)

	if rerr := o.mem.Record(a.ctx, memoryTurn(id, "voted "+vote.Target, vote.Reason)); rerr != nil {
		logger.Warn("memory record failed", "error", rerr)
	}
	if o.callbacks.OnVoteRecorded != nil {
		o.callbacks.OnVoteRecorded(vote)
	}

	verdict := board.Evaluate(a.board.State(), o.workerIDs)
	if !verdict.Done {
		return nil, nil
	}
	return &verdict, nil
}

// noteRejection tracks rejected proposals against the retry budget and
// forces a worker to vote-only once exhausted.
func (o *Orchestrator) noteRejection(a *attempt, workerID string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if errors.Is(err, errors.ErrProposalLimitExceeded) {
		a.voteOnly[workerID] = true
		return
	}
	if !errors.Is(err, errors.ErrNoveltyRejected) {
		return
	}
	a.rejections[workerID]++
	if limit := o.coord.MaxAnswersPerWorker; limit > 0 && a.rejections[workerID] >= limit {
		a.voteOnly[workerID] = true
	}
}

// predictLabel computes the label the board will assign to this
// worker's next accepted answer.
func (o *Orchestrator) predictLabel(a *attempt, workerID string) string {
	ordinal := 0
	for i, id := range o.workerIDs {
		if id == workerID {
			ordinal = i + 1
			break
		}
	}
	count := 0
	for _, ans := range a.board.State().Answers {
		if ans.WorkerID == workerID {
			count++
		}
	}
	return fmt.Sprintf("agent%d.%d", ordinal, count+1)
}

// finishAttempt runs winner selection through presentation. A failed
// quality check turns into a restart when the budget allows.
func (o *Orchestrator) finishAttempt(a *attempt, verdict board.Verdict) (session.Result, *restartRequest, error) {
	logger := o.logger.WithAttempt(a.index)
	snap := a.board.State()
	winner, ok := snap.FindAnswer(verdict.Winner)
	if !ok {
		return session.Result{}, nil, fmt.Errorf("orchestrator: winner %s not on board", verdict.Winner)
	}

	result := session.Result{
		Attempt:     a.index,
		Outcome:     session.OutcomeSucceeded,
		WinnerLabel: winner.Label,
		WinnerID:    winner.WorkerID,
		Content:     winner.Content,
		SnapshotRef: winner.SnapshotRef,
		Tally:       verdict.Tally,
	}

	if o.callbacks.QualityCheck != nil && !o.callbacks.QualityCheck(result) && o.restarts.Allow() {
		logger.Info("quality check failed, restarting", "winner", winner.Label)
		o.bus.Publish(event.NewRestartEvent(a.index, a.index+1, "quality_check", ""))
		result.Outcome = session.OutcomeFailed
		return result, &restartRequest{reason: "quality_check"}, nil
	}

	if err := o.transition(session.PhasePresenting); err != nil {
		return session.Result{}, nil, err
	}
	o.setWinner(winner.WorkerID)
	o.bus.Publish(event.NewFinalAnswerEvent(winner.Label, winner.WorkerID, verdict.Votes, verdict.Tally))
	if err := o.sessions.WriteTally(a.index, verdict.Tally); err != nil {
		logger.Warn("failed to write tally", "error", err)
	}
	logger.Info("winner selected",
		"label", winner.Label, "votes", verdict.Votes)

	// Losers stop immediately; the winner presents.
	for id, cancel := range a.workerCancels {
		if id != winner.WorkerID {
			cancel()
			a.setStatus(id, worker.StatusCompleted)
		}
	}

	if o.callbacks.Present != nil {
		if err := o.callbacks.Present(a.ctx, winner, a.store.WorkspacePath(winner.WorkerID)); err != nil {
			logger.Error("presentation failed", "error", err)
			result.Outcome = session.OutcomeFailed
		}
	}

	if err := o.transition(session.PhaseCompleted); err != nil {
		return session.Result{}, nil, err
	}
	a.setStatus(winner.WorkerID, worker.StatusCompleted)
	return result, nil, nil
}

// timeoutAttempt handles deadline expiry: terminal timed_out phase plus
// the configured degraded-winner policy.
func (o *Orchestrator) timeoutAttempt(a *attempt) (session.Result, error) {
	logger := o.logger.WithAttempt(a.index)
	logger.Warn("coordination deadline exceeded", "deadline", o.timeout.Deadline())

	if err := o.transition(session.PhaseTimedOut); err != nil {
		return session.Result{}, err
	}

	snap := a.board.State()
	result := session.Result{
		Attempt: a.index,
		Outcome: session.OutcomeFailed,
		Tally:   snap.Tally(),
	}

	if o.coord.TimeoutWinner == "leader" {
		if label, votes, ok := board.Leader(snap); ok {
			if winner, found := snap.FindAnswer(label); found {
				result.WinnerLabel = winner.Label
				result.WinnerID = winner.WorkerID
				result.Content = winner.Content
				result.SnapshotRef = winner.SnapshotRef
				logger.Info("degraded winner selected", "label", label, "votes", votes)
			}
		} else if winner, found := board.EarliestLive(snap); found {
			result.WinnerLabel = winner.Label
			result.WinnerID = winner.WorkerID
			result.Content = winner.Content
			result.SnapshotRef = winner.SnapshotRef
			logger.Info("degraded winner selected", "label", winner.Label, "votes", 0)
		}
	}

	o.bus.Publish(event.NewTimeoutEvent(o.timeout.Deadline(), result.WinnerLabel))
	if err := o.sessions.WriteTally(a.index, result.Tally); err != nil {
		logger.Warn("failed to write tally", "error", err)
	}
	return result, nil
}

// transition advances the session phase and publishes the change.
func (o *Orchestrator) transition(next session.Phase) error {
	from := o.sessions.State().Phase
	if err := o.sessions.Transition(next); err != nil {
		return err
	}
	o.bus.Publish(event.NewPhaseChangeEvent(from.String(), next.String()))
	if o.callbacks.OnPhaseChange != nil {
		o.callbacks.OnPhaseChange(from, next)
	}
	return nil
}

// memoryTurn builds the recorded turn for an accepted action.
func memoryTurn(workerID, summary, content string) memory.Turn {
	return memory.Turn{WorkerID: workerID, Messages: []string{summary, content}}
}

// isVoteOnly reports whether the worker's proposal budget is exhausted.
func (a *attempt) isVoteOnly(workerID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.voteOnly[workerID]
}

// setStatus updates a worker's protocol status.
func (a *attempt) setStatus(workerID string, s worker.Status) {
	a.mu.Lock()
	a.statuses[workerID] = s
	a.mu.Unlock()
}

// statusSnapshot copies the status map.
func (a *attempt) statusSnapshot() map[string]worker.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]worker.Status, len(a.statuses))
	for k, v := range a.statuses {
		out[k] = v
	}
	return out
}
