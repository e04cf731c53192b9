package websocket

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps logged-in users to their single active connection. It is one
// explicitly constructed object owned by the hub and injected into whatever
// needs presence answers; there is no ambient global map.
type Registry struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]*Client
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[uuid.UUID]*Client)}
}

// MarkOnline registers the client as the user's active connection and
// returns the superseded connection, if any. Single-device semantics: the
// newest connection always wins.
func (r *Registry) MarkOnline(c *Client) (evicted *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.byUser[c.userID]
	r.byUser[c.userID] = c
	if old == c {
		return nil
	}
	return old
}

// MarkOffline removes the client's presence entry, but only if it is still
// the registered connection for its user. A connection that was evicted by a
// reconnect must not knock the newer connection offline when it tears down.
func (r *Registry) MarkOffline(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byUser[c.userID] != c {
		return false
	}
	delete(r.byUser, c.userID)
	return true
}

func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[userID]
	return ok
}

func (r *Registry) Resolve(userID uuid.UUID) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// drain removes and returns every registered client. Used by the hub on
// shutdown.
func (r *Registry) drain() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := make([]*Client, 0, len(r.byUser))
	for _, c := range r.byUser {
		clients = append(clients, c)
	}
	r.byUser = make(map[uuid.UUID]*Client)
	return clients
}
