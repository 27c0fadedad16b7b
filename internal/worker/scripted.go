package worker

import (
	"context"
	"sync"
)

// Scripted is a deterministic in-memory Worker used in tests and dry
// runs. Each call to Act pops the next scripted step and plays it back as
// an update stream. Injected notices and received views are recorded for
// assertions.
type Scripted struct {
	mu      sync.Mutex
	id      string
	caps    Capabilities
	steps   []Step
	next    int
	notices []string
	views   []string

	// Gate, when non-nil, is received from before each step is played.
	// Tests use it to control interleaving between workers.
	Gate chan struct{}
}

// Step is one scripted invocation: optional partial chunks followed by a
// terminal action.
type Step struct {
	Partials []string
	Action   Action
}

// NewScripted creates a scripted worker with the given ID and steps.
func NewScripted(id string, caps Capabilities, steps ...Step) *Scripted {
	return &Scripted{id: id, caps: caps, steps: steps}
}

// ID returns the worker's identifier.
func (s *Scripted) ID() string { return s.id }

// Capabilities returns the worker's static capabilities.
func (s *Scripted) Capabilities() Capabilities { return s.caps }

// Act plays back the next scripted step. When the script is exhausted the
// returned stream blocks until ctx is cancelled, mimicking a worker that
// keeps thinking without reaching a decision. The step is not consumed
// until the gate (if any) passes, so a cancelled invocation never loses
// a step.
func (s *Scripted) Act(ctx context.Context, view string) (<-chan Update, error) {
	s.mu.Lock()
	gate := s.Gate
	s.views = append(s.views, view)
	s.mu.Unlock()

	out := make(chan Update)
	go func() {
		defer close(out)

		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return
			}
		}

		s.mu.Lock()
		var step *Step
		if s.next < len(s.steps) {
			step = &s.steps[s.next]
			s.next++
		}
		s.mu.Unlock()

		if step == nil {
			<-ctx.Done()
			return
		}

		for _, p := range step.Partials {
			select {
			case out <- Update{Partial: p}:
			case <-ctx.Done():
				return
			}
		}
		action := step.Action
		select {
		case out <- Update{Action: &action}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

// Inject records the notice for later inspection.
func (s *Scripted) Inject(notice string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, notice)
}

// Notices returns a copy of all injected notices, in delivery order.
func (s *Scripted) Notices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.notices))
	copy(out, s.notices)
	return out
}

// Views returns a copy of every context view passed to Act, in
// invocation order.
func (s *Scripted) Views() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.views))
	copy(out, s.views)
	return out
}

// Remaining returns how many scripted steps have not yet been played.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps) - s.next
}
