package orchestrator

import (
	"sync"
	"time"
)

// TimeoutController tracks the session's wall-clock deadline. The
// deadline is fixed at session start and shared across attempts; a
// restart does not refill the budget.
type TimeoutController struct {
	deadline time.Time
	timer    *time.Timer

	mu      sync.Mutex
	stopped bool
}

// NewTimeoutController creates a controller that fires at the given
// deadline.
func NewTimeoutController(deadline time.Time) *TimeoutController {
	return &TimeoutController{
		deadline: deadline,
		timer:    time.NewTimer(time.Until(deadline)),
	}
}

// Deadline returns the absolute deadline.
func (t *TimeoutController) Deadline() time.Time { return t.deadline }

// Remaining returns the time left before the deadline. Negative once
// the deadline has passed.
func (t *TimeoutController) Remaining() time.Duration {
	return time.Until(t.deadline)
}

// Expired returns a channel that receives once when the deadline
// elapses.
func (t *TimeoutController) Expired() <-chan time.Time {
	return t.timer.C
}

// Stop releases the underlying timer. Idempotent.
func (t *TimeoutController) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.timer.Stop()
}
