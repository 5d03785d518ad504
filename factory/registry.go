package factory

import (
	"sync"
	"sync/atomic"
)

// Registry holds the current Rules snapshot. Readers never block; a reload
// builds a complete new snapshot and swaps it in, so an operation that took
// a snapshot keeps seeing one consistent set of rules.
type Registry struct {
	current atomic.Pointer[Rules]
	mu      sync.Mutex // serializes reloads
}

// NewRegistry creates a registry holding initial.
func NewRegistry(initial *Rules) *Registry {
	r := &Registry{}
	r.current.Store(initial)
	return r
}

// Current returns the active snapshot.
func (r *Registry) Current() *Rules { return r.current.Load() }

// Swap installs next and returns the previous snapshot.
func (r *Registry) Swap(next *Rules) *Rules { return r.current.Swap(next) }

// Reload loads path and swaps it in. On error the current snapshot stays.
func (r *Registry) Reload(path string) (*Rules, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	r.current.Store(next)
	return next, nil
}
