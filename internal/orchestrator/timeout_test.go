package orchestrator

import (
	"testing"
	"time"
)

func TestTimeoutControllerExpires(t *testing.T) {
	tc := NewTimeoutController(time.Now().Add(20 * time.Millisecond))
	defer tc.Stop()

	select {
	case <-tc.Expired():
	case <-time.After(time.Second):
		t.Fatal("controller never expired")
	}
	if tc.Remaining() > 0 {
		t.Errorf("Remaining() = %v after expiry, want <= 0", tc.Remaining())
	}
}

func TestTimeoutControllerStop(t *testing.T) {
	tc := NewTimeoutController(time.Now().Add(time.Hour))
	if tc.Remaining() <= 0 {
		t.Errorf("Remaining() = %v, want > 0", tc.Remaining())
	}
	tc.Stop()
	tc.Stop() // idempotent

	select {
	case <-tc.Expired():
		t.Error("stopped controller fired")
	case <-time.After(20 * time.Millisecond):
	}
}
