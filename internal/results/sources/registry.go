// Package sources maintains the ordered set of configured result stores.
// Sources are immutable after registration; the only mutable state is the
// "active" pointer used by the health and admin endpoints. The resolver never
// touches it — every fetch names its source explicitly.
package sources

import (
	"sync"

	dErrors "resulthub/pkg/domain-errors"

	"resulthub/internal/results/store"
)

// Source describes one independently hosted result store. Credential is kept
// separate from the endpoint so listings never expose it.
type Source struct {
	Name        string
	Endpoint    string
	Credential  string
	Description string
}

// Handle binds a registered source to its fetcher.
type Handle struct {
	Source  Source
	Fetcher store.Fetcher
}

// Registry holds all registered sources, the configured search order and the
// currently active source. Invariants: the active name is always registered,
// and the search order is always a subset of registered names.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle
	names   []string // registration order, for stable listings
	order   []string
	active  string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Register adds a source under its name. The first registered source becomes
// active. Registration failures are configuration errors and should be fatal
// at startup.
func (r *Registry) Register(src Source, fetcher store.Fetcher) error {
	if src.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "source name is required")
	}
	if src.Endpoint == "" {
		return dErrors.New(dErrors.CodeBadRequest, "source endpoint is required")
	}
	if fetcher == nil {
		return dErrors.New(dErrors.CodeBadRequest, "source fetcher is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handles[src.Name]; exists {
		return dErrors.New(dErrors.CodeBadRequest, "source already registered: "+src.Name)
	}
	r.handles[src.Name] = &Handle{Source: src, Fetcher: fetcher}
	r.names = append(r.names, src.Name)
	if r.active == "" {
		r.active = src.Name
	}
	return nil
}

// SetSearchOrder fixes the priority list. Every name must already be
// registered.
func (r *Registry) SetSearchOrder(names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if _, ok := r.handles[name]; !ok {
			return dErrors.New(dErrors.CodeBadRequest, "search order references unregistered source: "+name)
		}
	}
	r.order = append([]string(nil), names...)
	return nil
}

// Switch atomically updates the active pointer and returns the prior active
// name so callers can restore it.
func (r *Registry) Switch(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[name]; !ok {
		return "", dErrors.New(dErrors.CodeNotFound, "source not found: "+name)
	}
	previous := r.active
	r.active = name
	return previous, nil
}

// SearchOrder returns a copy of the configured priority list.
func (r *Registry) SearchOrder() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// ActiveName returns the currently active source name.
func (r *Registry) ActiveName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Active returns the handle of the currently active source.
func (r *Registry) Active() (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[r.active]
	return h, ok
}

// Lookup returns the handle registered under name.
func (r *Registry) Lookup(name string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[name]
	return h, ok
}

// All returns every registered handle in registration order.
func (r *Registry) All() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handles := make([]*Handle, 0, len(r.names))
	for _, name := range r.names {
		handles = append(handles, r.handles[name])
	}
	return handles
}
