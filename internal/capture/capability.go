package capture

import "sync"

// Capabilities records which backends can work in this process. It is
// computed once at startup and consulted cheaply per request; the engine may
// additionally disable a backend permanently when it reports Unsupported.
type Capabilities struct {
	mu        sync.RWMutex
	available map[BackendID]bool
}

// NewCapabilities builds a table from an availability map. Backends absent
// from the map are unavailable.
func NewCapabilities(available map[BackendID]bool) *Capabilities {
	m := make(map[BackendID]bool, len(available))
	for id, ok := range available {
		m[id] = ok
	}
	return &Capabilities{available: m}
}

// Available reports whether the backend may be attempted.
func (c *Capabilities) Available(id BackendID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available[id]
}

// Disable marks a backend unavailable for the remainder of the process.
func (c *Capabilities) Disable(id BackendID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available[id] = false
}

// Snapshot returns a copy of the table for status reporting.
func (c *Capabilities) Snapshot() map[BackendID]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[BackendID]bool, len(c.available))
	for id, ok := range c.available {
		out[id] = ok
	}
	return out
}
