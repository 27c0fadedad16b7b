package orchestrator

import (
	"sync"

	"github.com/quorumhq/quorum/internal/logging"
	"github.com/quorumhq/quorum/internal/session"
)

// restartRequest marks an attempt as abandoned and carries the reason
// recorded in the restart event.
type restartRequest struct {
	reason      string // "quality_check" or "worker_request"
	requestedBy string // worker ID for worker-requested restarts
}

// RestartController enforces the attempt budget and retains the results
// of abandoned attempts. Prior attempts stay on disk read-only; only the
// final attempt's result is promoted.
type RestartController struct {
	max    int
	logger *logging.Logger

	mu    sync.Mutex
	prior []session.Result
}

// NewRestartController creates a controller allowing up to maxRestarts
// restarts beyond the first attempt.
func NewRestartController(maxRestarts int, logger *logging.Logger) *RestartController {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &RestartController{max: maxRestarts, logger: logger}
}

// Allow reports whether another restart fits the budget.
func (r *RestartController) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prior) < r.max
}

// Note records an abandoned attempt's provisional result.
func (r *RestartController) Note(result session.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prior = append(r.prior, result)
	r.logger.Info("attempt abandoned",
		"attempt", result.Attempt,
		"restarts_used", len(r.prior),
		"restarts_max", r.max)
}

// Used returns the number of restarts consumed so far.
func (r *RestartController) Used() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prior)
}

// Prior returns the provisional results of abandoned attempts in order.
func (r *RestartController) Prior() []session.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.Result, len(r.prior))
	copy(out, r.prior)
	return out
}
