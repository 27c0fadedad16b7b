package worker

import (
	"context"
	"testing"
	"time"
)

func TestScriptedPlaysStepsInOrder(t *testing.T) {
	w := NewScripted("w", Capabilities{},
		Step{
			Partials: []string{"thinking", "still thinking"},
			Action:   Action{Kind: ActionNewAnswer, Content: "answer one"},
		},
		Step{Action: Action{Kind: ActionVote, Target: "agent1.1"}},
	)

	stream, err := w.Act(context.Background(), "view")
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}

	var partials int
	var action *Action
	for u := range stream {
		if u.Action != nil {
			action = u.Action
			break
		}
		partials++
	}
	if partials != 2 {
		t.Errorf("partials = %d, want 2", partials)
	}
	if action == nil || action.Kind != ActionNewAnswer {
		t.Fatalf("action = %+v, want new_answer", action)
	}

	stream, err = w.Act(context.Background(), "view")
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	u := <-stream
	if u.Action == nil || u.Action.Kind != ActionVote {
		t.Errorf("second step = %+v, want vote", u)
	}
	if w.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", w.Remaining())
	}
}

func TestScriptedExhaustedBlocksUntilCancel(t *testing.T) {
	w := NewScripted("w", Capabilities{})

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := w.Act(ctx, "view")
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}

	select {
	case u, ok := <-stream:
		if ok {
			t.Fatalf("unexpected update %+v", u)
		}
		t.Fatal("stream closed before cancel")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	if _, ok := <-stream; ok {
		t.Error("stream not closed after cancel")
	}
}

func TestScriptedGateHoldsStepAcrossCancel(t *testing.T) {
	w := NewScripted("w", Capabilities{},
		Step{Action: Action{Kind: ActionNewAnswer, Content: "precious"}},
	)
	w.Gate = make(chan struct{})

	// First invocation is cancelled while gated: the step must survive.
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := w.Act(ctx, "view")
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	cancel()
	if _, ok := <-stream; ok {
		t.Fatal("cancelled stream yielded an update")
	}
	if w.Remaining() != 1 {
		t.Fatalf("Remaining() = %d after cancelled gated invocation, want 1", w.Remaining())
	}

	stream, err = w.Act(context.Background(), "view")
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	w.Gate <- struct{}{}
	u := <-stream
	if u.Action == nil || u.Action.Content != "precious" {
		t.Errorf("update = %+v, want the held step", u)
	}
}

func TestScriptedRecordsViews(t *testing.T) {
	w := NewScripted("w", Capabilities{},
		Step{Action: Action{Kind: ActionVote, Target: "agent1.1"}},
	)

	stream, err := w.Act(context.Background(), "the view")
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	for range stream {
	}

	views := w.Views()
	if len(views) != 1 || views[0] != "the view" {
		t.Errorf("Views() = %v, want [the view]", views)
	}
}

func TestScriptedRecordsNotices(t *testing.T) {
	w := NewScripted("w", Capabilities{})
	w.Inject("first")
	w.Inject("second")

	notices := w.Notices()
	if len(notices) != 2 || notices[0] != "first" || notices[1] != "second" {
		t.Errorf("Notices() = %v", notices)
	}
}
