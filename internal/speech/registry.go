package speech

import (
	"fmt"
	"sync"
)

// Registry maps provider names to Synthesizer instances. Tasks record the
// provider they were created with; the registry lets the worker resolve that
// name later regardless of the current default.
type Registry struct {
	mu          sync.RWMutex
	providers   map[string]Synthesizer
	defaultName string
}

// NewRegistry creates an empty registry. defaultName is the provider used
// when a task carries no provider of its own.
func NewRegistry(defaultName string) *Registry {
	return &Registry{
		providers:   make(map[string]Synthesizer),
		defaultName: defaultName,
	}
}

// Register adds a synthesizer under its own name, replacing any previous
// registration for that name.
func (r *Registry) Register(s Synthesizer) {
	if s == nil {
		panic("speech.Register called with nil synthesizer")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[s.Name()] = s
}

// Resolve returns the synthesizer registered under name, or the default
// provider when name is empty. Returns ErrUnknownProvider if no synthesizer
// is registered under the resulting name.
func (r *Registry) Resolve(name string) (Synthesizer, error) {
	if name == "" {
		name = r.defaultName
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return s, nil
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
