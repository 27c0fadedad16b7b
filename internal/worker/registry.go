package worker

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a Worker from its declaration. Backend adapters
// register a Factory at init time; the engine itself ships no model
// backends.
type Factory func(spec Spec) (Worker, error)

// Spec is the backend-independent worker declaration, mirrored from
// configuration.
type Spec struct {
	Name         string
	Backend      string
	Capabilities Capabilities
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a backend available under the given name. Panics on
// duplicate registration, matching database/sql driver semantics.
func Register(backend string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("worker: Register factory is nil")
	}
	if _, dup := registry[backend]; dup {
		panic(fmt.Sprintf("worker: Register called twice for backend %q", backend))
	}
	registry[backend] = factory
}

// NewFromSpec builds a worker using the registered backend factory.
func NewFromSpec(spec Spec) (Worker, error) {
	registryMu.RLock()
	factory, ok := registry[spec.Backend]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("worker: unknown backend %q (registered: %v)", spec.Backend, Backends())
	}
	return factory(spec)
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
