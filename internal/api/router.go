// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"log/slog"

	"github.com/gorilla/mux"
	"github.com/roomchat/backend/internal/api/handlers"
	"github.com/roomchat/backend/internal/api/middleware"
	"github.com/roomchat/backend/internal/auth"
	"github.com/roomchat/backend/internal/avatar"
	"github.com/roomchat/backend/internal/invite"
	"github.com/roomchat/backend/internal/message"
	"github.com/roomchat/backend/internal/room"
	"github.com/roomchat/backend/internal/storage"
	"github.com/roomchat/backend/internal/websocket"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	DB     handlers.Pinger
	Cache  handlers.Pinger
	Tokens *auth.TokenManager
	Auth   handlers.AuthService
	Users  *storage.UserRepository

	Rooms    *room.Service
	Messages *message.Service
	Invites  *invite.Service
	Avatars  *avatar.Service

	Hub           *websocket.Hub
	Registry      *websocket.Registry
	Presence      *websocket.Presence
	Resolver      *websocket.Resolver
	Session       websocket.SessionDeps
	SessionConfig websocket.SessionConfig

	// DevMode routes the dev-login endpoint.
	DevMode bool
	Logger  *slog.Logger
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(s Services) *mux.Router {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(logger))
	r.Use(middleware.ErrorRecovery(logger))

	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(s.DB, s.Cache)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(s.Hub, s.Registry, s.Presence)).Methods("GET")
	api.HandleFunc("/metrics", handlers.Metrics(s.Hub)).Methods("GET")

	// WebSocket endpoint; identity comes from the handshake query
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Resolver, s.Session, s.SessionConfig)).Methods("GET")

	v1 := api.PathPrefix("/v1").Subrouter()

	// Auth endpoints
	v1.HandleFunc("/auth/refresh", handlers.RefreshToken(s.Auth)).Methods("POST")
	v1.HandleFunc("/auth/me", handlers.Me(s.Auth)).Methods("GET")
	v1.HandleFunc("/auth/logout", handlers.Logout()).Methods("POST")
	if s.DevMode {
		v1.HandleFunc("/auth/dev-login", handlers.DevLogin(s.Auth)).Methods("POST")
	}

	// Avatar images are public so they can back <img> tags
	v1.HandleFunc("/avatar/{userId}", handlers.GetAvatar(s.Avatars)).Methods("GET")

	secured := v1.NewRoute().Subrouter()
	secured.Use(middleware.RequireAuth(s.Tokens))

	// User endpoints
	secured.HandleFunc("/users/me", handlers.GetMe(s.Users)).Methods("GET")
	secured.HandleFunc("/users/me", handlers.UpdateMe(s.Users)).Methods("PUT")
	secured.HandleFunc("/users/search", handlers.SearchUsers(s.Users)).Methods("GET")
	secured.HandleFunc("/users/username/{username}", handlers.GetUserByUsername(s.Users)).Methods("GET")
	secured.HandleFunc("/users/{id}", handlers.GetUser(s.Users)).Methods("GET")
	secured.HandleFunc("/avatar/{userId}/cache", handlers.InvalidateAvatar(s.Avatars)).Methods("DELETE")

	// Room endpoints
	secured.HandleFunc("/rooms", handlers.ListRooms(s.Rooms)).Methods("GET")
	secured.HandleFunc("/rooms", handlers.CreateRoom(s.Rooms)).Methods("POST")
	secured.HandleFunc("/rooms/{roomId}", handlers.GetRoom(s.Rooms)).Methods("GET")
	secured.HandleFunc("/rooms/{roomId}", handlers.UpdateRoom(s.Rooms)).Methods("PUT")
	secured.HandleFunc("/rooms/{roomId}", handlers.DeleteRoom(s.Rooms)).Methods("DELETE")
	secured.HandleFunc("/rooms/{roomId}/members", handlers.ListMembers(s.Rooms)).Methods("GET")
	secured.HandleFunc("/rooms/{roomId}/members", handlers.AddMember(s.Rooms)).Methods("POST")
	secured.HandleFunc("/rooms/{roomId}/members/{userId}", handlers.RemoveMember(s.Rooms)).Methods("DELETE")

	// Message endpoints
	secured.HandleFunc("/rooms/{roomId}/messages", handlers.ListMessages(s.Messages)).Methods("GET")
	secured.HandleFunc("/rooms/{roomId}/messages", handlers.SendMessage(s.Messages)).Methods("POST")
	secured.HandleFunc("/messages/{id}", handlers.DeleteMessage(s.Messages)).Methods("DELETE")

	// Invite endpoints
	secured.HandleFunc("/rooms/{roomId}/invites", handlers.CreateInvite(s.Invites)).Methods("POST")
	secured.HandleFunc("/invites/{code}", handlers.GetInvite(s.Invites)).Methods("GET")
	secured.HandleFunc("/invites/{code}", handlers.DeleteInvite(s.Invites)).Methods("DELETE")
	secured.HandleFunc("/invites/{code}/join", handlers.JoinInvite(s.Invites)).Methods("POST")

	return r
}
