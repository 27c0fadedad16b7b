package cmd

import (
	"testing"
	"time"

	"github.com/quorumhq/quorum/internal/errors"
	"github.com/quorumhq/quorum/internal/session"
)

func TestExitError(t *testing.T) {
	ok := session.Result{Outcome: session.OutcomeSucceeded, WinnerLabel: "agent1.1"}
	if err := exitError(ok, session.PhaseCompleted, "s1", time.Minute); err != nil {
		t.Errorf("exitError() = %v, want nil for a succeeded session", err)
	}

	timedOut := session.Result{Outcome: session.OutcomeFailed}
	err := exitError(timedOut, session.PhaseTimedOut, "s1", time.Minute)
	if !errors.Is(err, errors.ErrSessionTimeout) {
		t.Errorf("exitError() = %v, want ErrSessionTimeout chain for a timed-out session", err)
	}
	var terr *errors.TimeoutError
	if !errors.As(err, &terr) || terr.Duration != time.Minute {
		t.Errorf("exitError() = %v, want TimeoutError carrying the deadline", err)
	}

	failed := session.Result{Outcome: session.OutcomeFailed}
	err = exitError(failed, session.PhaseCompleted, "s1", time.Minute)
	if err == nil {
		t.Fatal("exitError() = nil, want error for a failed session")
	}
	if errors.Is(err, errors.ErrSessionTimeout) {
		t.Errorf("exitError() = %v, want a non-timeout failure", err)
	}
}
