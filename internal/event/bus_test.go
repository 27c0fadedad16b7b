package event

import (
	"sync"
	"testing"
	"time"
)

func TestSubscribePublish(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe(TypeNewAnswer, func(e Event) {
		got = append(got, e)
	})

	bus.Publish(NewNewAnswerEvent("alpha", "agent1.1", "candidate-1", 1, ""))
	bus.Publish(NewVoteEvent("beta", "agent1.1", "fine", false))

	if len(got) != 1 {
		t.Fatalf("handler called %d times, want 1", len(got))
	}
	answer, ok := got[0].(NewAnswerEvent)
	if !ok {
		t.Fatalf("event is %T, want NewAnswerEvent", got[0])
	}
	if answer.Label != "agent1.1" || answer.WorkerID != "alpha" {
		t.Errorf("event = %+v", answer)
	}
}

func TestSubscribeAllSeesEverything(t *testing.T) {
	bus := NewBus()

	var count int
	bus.SubscribeAll(func(e Event) { count++ })

	bus.Publish(NewNewAnswerEvent("alpha", "agent1.1", "candidate-1", 1, ""))
	bus.Publish(NewVoteEvent("beta", "agent1.1", "", false))
	bus.Publish(NewPhaseChangeEvent("coordinating", "presenting"))

	if count != 3 {
		t.Errorf("wildcard handler called %d times, want 3", count)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	var count int
	id := bus.Subscribe(TypeVote, func(e Event) { count++ })

	bus.Publish(NewVoteEvent("alpha", "agent2.1", "", false))
	if !bus.Unsubscribe(id) {
		t.Error("Unsubscribe() = false for live subscription")
	}
	bus.Publish(NewVoteEvent("alpha", "agent2.1", "", true))

	if count != 1 {
		t.Errorf("handler called %d times, want 1", count)
	}
	if bus.Unsubscribe(id) {
		t.Error("Unsubscribe() = true for dead subscription")
	}
}

func TestPanickyHandlerDoesNotPoisonBus(t *testing.T) {
	bus := NewBus()

	var delivered bool
	bus.Subscribe(TypeTimeout, func(e Event) { panic("handler bug") })
	bus.Subscribe(TypeTimeout, func(e Event) { delivered = true })

	bus.Publish(NewTimeoutEvent(time.Now(), ""))

	if !delivered {
		t.Error("second handler not called after first panicked")
	}
}

func TestConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				bus.Publish(NewVoteEvent("alpha", "agent1.1", "", false))
			}
		}()
	}
	wg.Wait()

	if count != 200 {
		t.Errorf("count = %d, want 200", count)
	}
}
