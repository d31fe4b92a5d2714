package websocket

import (
	"sync"
)

// Presence is the in-memory index of which connections currently receive
// each room's live events. It is independent of durable room membership
// and is never persisted. Rooms with no present connections are pruned.
type Presence struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]struct{} // roomID -> connIDs
	byConn map[string]map[string]struct{} // connID -> roomIDs
}

// NewPresence creates an empty presence index.
func NewPresence() *Presence {
	return &Presence{
		rooms:  make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join subscribes a connection to a room. Joining twice is a no-op.
// It reports whether the connection was newly added.
func (p *Presence) Join(roomID, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.rooms[roomID]
	if !ok {
		conns = make(map[string]struct{})
		p.rooms[roomID] = conns
	}
	if _, ok := conns[connID]; ok {
		return false
	}
	conns[connID] = struct{}{}

	rooms, ok := p.byConn[connID]
	if !ok {
		rooms = make(map[string]struct{})
		p.byConn[connID] = rooms
	}
	rooms[roomID] = struct{}{}
	return true
}

// Leave unsubscribes a connection from a room. It reports whether the
// connection was present.
func (p *Presence) Leave(roomID, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeLocked(roomID, connID)
}

func (p *Presence) removeLocked(roomID, connID string) bool {
	conns, ok := p.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := conns[connID]; !ok {
		return false
	}

	delete(conns, connID)
	if len(conns) == 0 {
		delete(p.rooms, roomID)
	}

	if rooms, ok := p.byConn[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(p.byConn, connID)
		}
	}
	return true
}

// IsPresent reports whether a connection currently receives a room's events.
func (p *Presence) IsPresent(roomID, connID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.rooms[roomID][connID]
	return ok
}

// RemoveConnection drops a connection from every room it is present in and
// returns those rooms.
func (p *Presence) RemoveConnection(connID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	rooms := p.byConn[connID]
	removed := make([]string, 0, len(rooms))
	for roomID := range rooms {
		removed = append(removed, roomID)
	}
	for _, roomID := range removed {
		p.removeLocked(roomID, connID)
	}
	return removed
}

// RoomCount returns the number of rooms with at least one present connection.
func (p *Presence) RoomCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms)
}

// ConnectionCount returns how many connections are present in a room.
func (p *Presence) ConnectionCount(roomID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms[roomID])
}
