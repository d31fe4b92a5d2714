// Package websocket implements the realtime connection hub: connection
// registry, room presence, broadcast fan-out and the per-connection
// session loops.
package websocket

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Hub is the single shared fan-out stream. Every published envelope is
// offered to every current subscription; filtering by room happens in
// each session's write loop.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool

	bufferSize int
	metrics    *Metrics
	logger     *slog.Logger
}

// Subscription is one subscriber's bounded view of the hub stream.
type Subscription struct {
	ch      chan *Envelope
	dropped atomic.Uint64
}

// C returns the channel envelopes are delivered on. It is closed when the
// subscription is removed or the hub is closed.
func (s *Subscription) C() <-chan *Envelope {
	return s.ch
}

// Dropped returns how many envelopes this subscriber missed because its
// buffer was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// PublishResult reports how a single publish was delivered.
type PublishResult struct {
	Delivered int
	Dropped   int
}

// NewHub creates a hub whose subscriptions buffer up to bufferSize envelopes.
func NewHub(bufferSize int, metrics *Metrics, logger *slog.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:       make(map[*Subscription]struct{}),
		bufferSize: bufferSize,
		metrics:    metrics,
		logger:     logger,
	}
}

// Metrics returns the counters shared by the hub and its sessions.
func (h *Hub) Metrics() *Metrics {
	return h.metrics
}

// Subscribe registers a new subscription that sees every envelope
// published from now on. Subscribing to a closed hub returns a
// subscription whose channel is already closed.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan *Envelope, h.bufferSize)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscription and closes its channel. It is safe to
// call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

// Publish offers env to every subscription without blocking. A subscriber
// whose buffer is full misses this envelope (drop newest); the drop is
// counted and logged but never reported to the publisher as an error.
func (h *Hub) Publish(env *Envelope) PublishResult {
	var result PublishResult

	h.mu.RLock()
	for sub := range h.subs {
		select {
		case sub.ch <- env:
			result.Delivered++
		default:
			sub.dropped.Add(1)
			result.Dropped++
		}
	}
	h.mu.RUnlock()

	h.metrics.Published.Add(1)
	h.metrics.Delivered.Add(uint64(result.Delivered))
	if result.Dropped > 0 {
		h.metrics.DroppedOnFull.Add(uint64(result.Dropped))
		h.logger.Warn("hub subscribers full, envelope dropped",
			"type", env.Type,
			"room_id", env.RoomID,
			"dropped", result.Dropped,
		)
	}

	return result
}

// SubscriberCount returns the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscription, which ends each session's write loop,
// and rejects future subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
		delete(h.subs, sub)
	}
	h.logger.Info("hub closed")
}
