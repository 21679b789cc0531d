package hub

import "github.com/google/uuid"

// Registry maps live connections to user identities. A user may hold any
// number of simultaneous connections (tabs, devices); each is keyed by its
// own connection id.
//
// Registry is not goroutine safe: the hub's run loop is its single writer
// and only reader, which is what serializes register/unregister against
// dispatch.
type Registry struct {
	conns map[uuid.UUID]*Client
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[uuid.UUID]*Client)}
}

// Add registers a connection. Re-adding the same connection is a no-op.
func (r *Registry) Add(c *Client) {
	r.conns[c.ID] = c
}

// Remove unregisters a connection and reports whether it was present, so
// callers can make teardown idempotent.
func (r *Registry) Remove(c *Client) bool {
	if _, ok := r.conns[c.ID]; !ok {
		return false
	}
	delete(r.conns, c.ID)
	return true
}

// All returns every registered connection.
func (r *Registry) All() []*Client {
	out := make([]*Client, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// ForUser returns every connection held by one user.
func (r *Registry) ForUser(userID uuid.UUID) []*Client {
	var out []*Client
	for _, c := range r.conns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	return len(r.conns)
}
