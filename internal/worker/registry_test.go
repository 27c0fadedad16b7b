package worker

import (
	"strings"
	"testing"
)

func TestRegistry(t *testing.T) {
	Register("test-backend", func(spec Spec) (Worker, error) {
		return NewScripted(spec.Name, spec.Capabilities), nil
	})

	w, err := NewFromSpec(Spec{
		Name:         "w1",
		Backend:      "test-backend",
		Capabilities: Capabilities{Filesystem: true},
	})
	if err != nil {
		t.Fatalf("NewFromSpec() error = %v", err)
	}
	if w.ID() != "w1" {
		t.Errorf("ID() = %q, want w1", w.ID())
	}
	if !w.Capabilities().Filesystem {
		t.Error("Filesystem capability lost")
	}

	found := false
	for _, name := range Backends() {
		if name == "test-backend" {
			found = true
		}
	}
	if !found {
		t.Errorf("Backends() = %v, missing test-backend", Backends())
	}
}

func TestNewFromSpecUnknownBackend(t *testing.T) {
	_, err := NewFromSpec(Spec{Name: "w", Backend: "nope"})
	if err == nil {
		t.Fatal("NewFromSpec() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Errorf("error %q does not name the backend", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	Register("dup-backend", func(spec Spec) (Worker, error) { return nil, nil })
	Register("dup-backend", func(spec Spec) (Worker, error) { return nil, nil })
}
