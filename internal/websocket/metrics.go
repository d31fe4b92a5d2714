package websocket

import (
	"sync/atomic"
	"time"
)

// Metrics counts hub and session activity. All fields are safe for
// concurrent use.
type Metrics struct {
	ConnectedClients atomic.Int64

	TotalConnections atomic.Uint64
	TotalDisconnects atomic.Uint64
	MessagesIn       atomic.Uint64
	MessagesOut      atomic.Uint64
	MalformedIn      atomic.Uint64
	RateLimitedIn    atomic.Uint64

	Published      atomic.Uint64
	Delivered      atomic.Uint64
	DroppedOnFull  atomic.Uint64
	EncodeFailures atomic.Uint64
	PersistFailure atomic.Uint64

	StartTime time.Time
}

// NewMetrics creates a zeroed metrics set.
func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// MetricsSnapshot is a point-in-time copy of Metrics for reporting.
type MetricsSnapshot struct {
	UptimeSeconds float64 `json:"uptimeSeconds"`

	ConnectedClients int64 `json:"connectedClients"`

	TotalConnections uint64 `json:"totalConnections"`
	TotalDisconnects uint64 `json:"totalDisconnects"`
	MessagesIn       uint64 `json:"messagesIn"`
	MessagesOut      uint64 `json:"messagesOut"`
	MalformedIn      uint64 `json:"malformedIn"`
	RateLimitedIn    uint64 `json:"rateLimitedIn"`

	Published      uint64 `json:"published"`
	Delivered      uint64 `json:"delivered"`
	DroppedOnFull  uint64 `json:"droppedOnFull"`
	EncodeFailures uint64 `json:"encodeFailures"`
	PersistFailure uint64 `json:"persistFailures"`
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		UptimeSeconds: time.Since(m.StartTime).Seconds(),

		ConnectedClients: m.ConnectedClients.Load(),

		TotalConnections: m.TotalConnections.Load(),
		TotalDisconnects: m.TotalDisconnects.Load(),
		MessagesIn:       m.MessagesIn.Load(),
		MessagesOut:      m.MessagesOut.Load(),
		MalformedIn:      m.MalformedIn.Load(),
		RateLimitedIn:    m.RateLimitedIn.Load(),

		Published:      m.Published.Load(),
		Delivered:      m.Delivered.Load(),
		DroppedOnFull:  m.DroppedOnFull.Load(),
		EncodeFailures: m.EncodeFailures.Load(),
		PersistFailure: m.PersistFailure.Load(),
	}
}
