// Package orchestrator drives coordination sessions: it fans worker
// invocations out, serializes their actions against the answer board,
// detects consensus, and manages timeouts, restarts, and the phase
// machine. One orchestrator owns one session.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quorumhq/quorum/internal/config"
	"github.com/quorumhq/quorum/internal/errors"
	"github.com/quorumhq/quorum/internal/event"
	"github.com/quorumhq/quorum/internal/logging"
	"github.com/quorumhq/quorum/internal/memory"
	"github.com/quorumhq/quorum/internal/session"
	"github.com/quorumhq/quorum/internal/telemetry"
	"github.com/quorumhq/quorum/internal/worker"
	"github.com/quorumhq/quorum/internal/workspace"
)

// Config holds everything an Orchestrator needs to run one session.
type Config struct {
	// Task is the question or assignment all workers race to answer.
	Task string

	// Workers are the session participants, in ordinal order.
	Workers []worker.Worker

	// Coordination carries the protocol knobs (timeout, novelty policy,
	// budgets, degraded-winner policy).
	Coordination config.CoordinationConfig

	// ContextPaths are the shared external-project paths and their
	// permissions.
	ContextPaths []workspace.ContextPath

	// Sessions owns the on-disk session layout and phase machine.
	Sessions *session.Manager

	// Bus receives every coordination event. Optional; a private bus is
	// created when nil.
	Bus *event.Bus

	// Memory is the long-term memory subsystem. Optional; defaults to
	// the no-op provider.
	Memory memory.Provider

	// Logger is the structured logger. Optional.
	Logger *logging.Logger

	// Fs is the filesystem workspaces live on. Optional; defaults to the
	// OS filesystem. Tests inject an in-memory fs.
	Fs afero.Fs

	// Observe enables the fsnotify side-effect observer on worker
	// workspaces. Only meaningful on the OS filesystem.
	Observe bool

	// Callbacks are the application hooks.
	Callbacks Callbacks
}

// Orchestrator runs one coordination session to completion.
type Orchestrator struct {
	task      string
	workers   []worker.Worker
	workerIDs []string
	byID      map[string]worker.Worker
	coord     config.CoordinationConfig
	policy    *workspace.Policy
	sessions  *session.Manager
	bus       *event.Bus
	mem       memory.Provider
	logger    *logging.Logger
	fs        afero.Fs
	observe   bool
	callbacks Callbacks
	restarts  *RestartController
	timeout   *TimeoutController
	tracer    trace.Tracer

	mu       sync.RWMutex
	current  *attempt
	winnerID string
}

// New creates an Orchestrator. The session manager must already be
// initialized; the deadline is taken from its state.
func New(cfg Config) (*Orchestrator, error) {
	if len(cfg.Workers) == 0 {
		return nil, errors.ErrNoWorkers
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("orchestrator: session manager is required")
	}
	if cfg.Task == "" {
		return nil, fmt.Errorf("orchestrator: task is required")
	}

	policy, err := workspace.NewPolicy(cfg.ContextPaths)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = event.NewBus()
	}
	mem := cfg.Memory
	if mem == nil {
		mem = memory.Nop{}
	}
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	ids := make([]string, 0, len(cfg.Workers))
	byID := make(map[string]worker.Worker, len(cfg.Workers))
	for _, w := range cfg.Workers {
		id := w.ID()
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("orchestrator: duplicate worker ID %q", id)
		}
		ids = append(ids, id)
		byID[id] = w
	}

	state := cfg.Sessions.State()
	return &Orchestrator{
		task:      cfg.Task,
		workers:   cfg.Workers,
		workerIDs: ids,
		byID:      byID,
		coord:     cfg.Coordination,
		policy:    policy,
		sessions:  cfg.Sessions,
		bus:       bus,
		mem:       mem,
		logger:    logger.WithSession(state.ID),
		fs:        fs,
		observe:   cfg.Observe,
		callbacks: cfg.Callbacks,
		restarts:  NewRestartController(cfg.Coordination.MaxRestarts, logger),
		timeout:   NewTimeoutController(state.Deadline),
		tracer:    otel.Tracer(telemetry.TracerName),
	}, nil
}

// Bus returns the event bus observers can subscribe to.
func (o *Orchestrator) Bus() *event.Bus { return o.bus }

// Run executes the session: one or more attempts, ending with exactly
// one promoted result. The returned Result's Outcome is the process
// exit signal. Run returns an error only for engine failures; a timed
// out session is a Result with OutcomeFailed, not an error.
func (o *Orchestrator) Run(ctx context.Context) (session.Result, error) {
	ctx, span := o.tracer.Start(ctx, "quorum.session",
		trace.WithAttributes(
			attribute.String("session.id", o.sessions.State().ID),
			attribute.Int("workers", len(o.workers)),
		))
	defer span.End()
	defer o.timeout.Stop()

	for {
		result, restart, err := o.runAttempt(ctx)
		if err != nil {
			return session.Result{}, err
		}
		if restart != nil {
			o.restarts.Note(result)
			continue
		}

		span.SetAttributes(
			attribute.Int("attempts", result.Attempt),
			attribute.String("outcome", string(result.Outcome)),
			attribute.String("winner", result.WinnerLabel),
		)
		if err := o.sessions.Promote(result); err != nil {
			return result, err
		}
		return result, nil
	}
}

// WorkerStatuses returns each worker's protocol status for the current
// attempt.
func (o *Orchestrator) WorkerStatuses() map[string]worker.Status {
	o.mu.RLock()
	a := o.current
	o.mu.RUnlock()
	if a == nil {
		out := make(map[string]worker.Status, len(o.workerIDs))
		for _, id := range o.workerIDs {
			out[id] = worker.StatusIdle
		}
		return out
	}
	return a.statusSnapshot()
}

// CheckContextPath enforces the shared-path permission rules for a
// tool-level filesystem operation. The winner is only privileged while
// the session is presenting.
func (o *Orchestrator) CheckContextPath(path string, op workspace.Op, workerID string) error {
	o.mu.RLock()
	winner := o.winnerID
	o.mu.RUnlock()
	return o.policy.Check(path, op, o.sessions.State().Phase, workerID, winner)
}

// setWinner records the winning worker for permission checks.
func (o *Orchestrator) setWinner(workerID string) {
	o.mu.Lock()
	o.winnerID = workerID
	o.mu.Unlock()
}

// setCurrent publishes the active attempt for status queries.
func (o *Orchestrator) setCurrent(a *attempt) {
	o.mu.Lock()
	o.current = a
	o.mu.Unlock()
}
