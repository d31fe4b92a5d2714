// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/roomchat/backend/internal/websocket"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// PingContext calls f.
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status         string `json:"status"`
	DBConnected    bool   `json:"dbConnected"`
	CacheConnected bool   `json:"cacheConnected"`
}

// HealthCheck returns a handler that checks the database and the invite
// cache. A nil cache is reported as disconnected without degrading health.
func HealthCheck(db Pinger, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbConnected := db.PingContext(ctx) == nil
		cacheConnected := cache != nil && cache.PingContext(ctx) == nil

		status := "healthy"
		if !dbConnected {
			status = "degraded"
		}

		code := http.StatusOK
		if status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, HealthResponse{
			Status:         status,
			DBConnected:    dbConnected,
			CacheConnected: cacheConnected,
		})
	}
}

// StatusResponse represents the realtime hub status.
type StatusResponse struct {
	Connections int     `json:"connections"`
	OnlineUsers int     `json:"onlineUsers"`
	Subscribers int     `json:"subscribers"`
	ActiveRooms int     `json:"activeRooms"`
	Uptime      float64 `json:"uptimeSeconds"`
}

// Status returns a handler that reports live connection counts.
func Status(hub *websocket.Hub, registry *websocket.Registry, presence *websocket.Presence) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, StatusResponse{
			Connections: registry.Count(),
			OnlineUsers: len(registry.OnlineUserIDs()),
			Subscribers: hub.SubscriberCount(),
			ActiveRooms: presence.RoomCount(),
			Uptime:      time.Since(hub.Metrics().StartTime).Seconds(),
		})
	}
}

// Metrics returns a handler that exposes the hub counters.
func Metrics(hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.Metrics().Snapshot())
	}
}
