package runtime

import (
	"fmt"
	"sync"
)

// ErrUnknownAgent is returned by Get when name has no registered
// constructor. The scheduler (spec.md §4.D) treats this as fatal and
// non-retryable.
type ErrUnknownAgent struct {
	Name string
}

func (e *ErrUnknownAgent) Error() string {
	return fmt.Sprintf("runtime: unknown agent %q", e.Name)
}

// Registry maps short agent names to constructors. It replaces the
// teacher-domain's process-wide global registry (spec.md §9 design
// note) with an explicit value passed to the scheduler at startup.
//
// This is the "superset of all three divergent registry files"
// resolution of the §9 Open Question: one authoritative registry,
// populated once at startup by the process entrypoint
// (cmd/scheduler/main.go).
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds or replaces the constructor for name.
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[name] = ctor
}

// Get looks up and instantiates the agent named name. Lookup happens
// at fire time, never at schedule-configuration time (spec.md §4.D).
func (r *Registry) Get(name string) (Agent, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &ErrUnknownAgent{Name: name}
	}
	return ctor(), nil
}

// Names returns the registered agent names, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	return names
}
