package chat

import (
	"sync"
)

// Registry maps user id -> active client. Process-lifetime only: empty at
// start, entries removed on disconnect, never persisted. Last register wins.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Client
	byConn map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]*Client),
		byConn: make(map[string]*Client),
	}
}

// Register installs c as the user's active connection and returns the
// replaced client, if any. The caller closes the replaced client outside
// the registry lock.
func (r *Registry) Register(c *Client) (replaced *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old := r.byUser[c.UserID]; old != nil && old != c {
		delete(r.byConn, old.ConnID)
		replaced = old
	}
	r.byUser[c.UserID] = c
	r.byConn[c.ConnID] = c
	return replaced
}

// Unregister removes the mapping only if it still points at this exact
// client. Disconnect events carry the handle, not the user id, and a stale
// disconnect must not evict a newer registration.
func (r *Registry) Unregister(c *Client) (removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur := r.byUser[c.UserID]; cur == c {
		delete(r.byUser, c.UserID)
		removed = true
	}
	if cur := r.byConn[c.ConnID]; cur == c {
		delete(r.byConn, c.ConnID)
	}
	return removed
}

func (r *Registry) Get(user string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[user]
	return c, ok
}

func (r *Registry) GetByConnID(connID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byConn[connID]
	return c, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
