package portal

import (
	"sync"
	"time"

	"github.com/dantte-lp/goportal/internal/overlay"
)

// Info is a point-in-time snapshot of one active portal worker, suitable
// for introspection over the server package's list/get API.
type Info struct {
	ID        string
	Role      string
	Peer      string
	StartedAt time.Time
}

// Registry tracks active portal workers by their remote overlay address so
// an operator-facing API can list and describe them. It holds no reference
// back to the workers themselves -- entries are plain snapshots, refreshed
// on registration and removed on teardown.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Info
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Info)}
}

// Register records a newly started worker under its remote address. Called
// once per worker, immediately after the overlay registration succeeds.
func (r *Registry) Register(remoteAddress overlay.Address, role, peer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[string(remoteAddress)] = Info{
		ID:        string(remoteAddress),
		Role:      role,
		Peer:      peer,
		StartedAt: time.Now(),
	}
}

// Unregister removes the entry for remoteAddress. Called once per worker,
// at the end of startDisconnection. A remoteAddress with no entry is a
// silent no-op.
func (r *Registry) Unregister(remoteAddress overlay.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, string(remoteAddress))
}

// List returns a snapshot of every currently active worker.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.entries))
	for _, info := range r.entries {
		out = append(out, info)
	}
	return out
}

// Get returns the entry for id, if any is currently registered.
func (r *Registry) Get(id string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.entries[id]
	return info, ok
}
