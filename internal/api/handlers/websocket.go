package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	ws "github.com/roomchat/backend/internal/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browsers connect from the separately served frontend
		return true
	},
}

// WebSocketUpgrade returns a handler that upgrades HTTP connections to
// WebSocket and runs a chat session on them. The identity is resolved
// from the handshake query before the upgrade; an unresolved identity
// still gets an anonymous connection.
func WebSocketUpgrade(resolver *ws.Resolver, deps ws.SessionDeps, cfg ws.SessionConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := resolver.Resolve(r.Context(), r.URL.Query())

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}

		session := ws.NewSession(conn, identity, deps, cfg)
		session.Serve(context.WithoutCancel(r.Context()))
	}
}
