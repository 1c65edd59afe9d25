package backend

import (
	"fmt"
	"sync"
)

// Factory creates a backend instance.
type Factory func() Backend

var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Selection order for automatic backend choice, first available
	// wins. Wayland over X11 over the headless fallback.
	priority = []string{"wayland", "x11", "headless"}
)

// Register adds a backend factory under a name, replacing any previous
// registration. Called from backend packages' init functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend. Useful for tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Registered returns the registered backend names.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// Get returns a backend instance by name, or nil when not registered.
func Get(name string) Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if factory, ok := backends[name]; ok {
		return factory()
	}
	return nil
}

// Default returns the first available backend in priority order, then
// any available registered backend. Returns nil when nothing can run.
func Default() Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range priority {
		if factory, ok := backends[name]; ok {
			if b := factory(); b != nil && b.Available() {
				return b
			}
		}
	}
	for _, factory := range backends {
		if b := factory(); b != nil && b.Available() {
			return b
		}
	}
	return nil
}

// Fallback returns every available backend in selection order, the
// priority list first, then any other registered backend. Callers try
// each in turn when surface creation can fail past the availability
// check.
func Fallback() []Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var out []Backend
	seen := make(map[string]bool)
	for _, name := range priority {
		if factory, ok := backends[name]; ok {
			if b := factory(); b != nil && b.Available() {
				out = append(out, b)
				seen[name] = true
			}
		}
	}
	for name, factory := range backends {
		if seen[name] {
			continue
		}
		if b := factory(); b != nil && b.Available() {
			out = append(out, b)
		}
	}
	return out
}

// Select resolves a backend hint: empty or "auto" picks the default,
// anything else requires that exact backend to be registered and
// available.
func Select(hint string) (Backend, error) {
	if hint == "" || hint == "auto" {
		if b := Default(); b != nil {
			return b, nil
		}
		return nil, ErrNotAvailable
	}
	b := Get(hint)
	if b == nil {
		return nil, fmt.Errorf("backend: unknown backend %q: %w", hint, ErrNotAvailable)
	}
	if !b.Available() {
		return nil, fmt.Errorf("backend: %s: %w", hint, ErrNotAvailable)
	}
	return b, nil
}
