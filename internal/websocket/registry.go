package websocket

import (
	"sync"
)

// Identity is the authenticated user bound to a connection at handshake.
type Identity struct {
	UserID      string
	DisplayName string
	AvatarURL   string
}

// Sender converts the identity into the summary carried by envelopes.
func (i *Identity) Sender() *SenderInfo {
	return &SenderInfo{
		ID:          i.UserID,
		DisplayName: i.DisplayName,
		AvatarURL:   i.AvatarURL,
	}
}

// Registry tracks every live connection and its resolved identity.
// Anonymous connections are registered with a nil identity.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Identity
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Identity)}
}

// Register records a live connection.
func (r *Registry) Register(connID string, identity *Identity) {
	r.mu.Lock()
	r.conns[connID] = identity
	r.mu.Unlock()
}

// Identity returns the identity of a connection and whether the
// connection is registered. Anonymous connections return nil, true.
func (r *Registry) Identity(connID string) (*Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.conns[connID]
	return id, ok
}

// Unregister removes a connection and returns the identity it had.
// Unregistering an unknown connection returns nil.
func (r *Registry) Unregister(connID string) *Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.conns[connID]
	if !ok {
		return nil
	}
	delete(r.conns, connID)
	return id
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// OnlineUserIDs returns the distinct users with at least one live
// authenticated connection.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.conns))
	ids := make([]string, 0, len(r.conns))
	for _, identity := range r.conns {
		if identity == nil {
			continue
		}
		if _, ok := seen[identity.UserID]; ok {
			continue
		}
		seen[identity.UserID] = struct{}{}
		ids = append(ids, identity.UserID)
	}
	return ids
}
