package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/roomchat/backend/internal/api/middleware"
	"github.com/roomchat/backend/internal/auth"
	"github.com/roomchat/backend/internal/invite"
	"github.com/roomchat/backend/internal/message"
	"github.com/roomchat/backend/internal/room"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}

// currentUser returns the caller set by RequireAuth, writing a 401 when
// the route was registered without it.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Authentication required")
	}
	return id, ok
}

// writeServiceError maps domain errors to API errors. Anything unknown is
// logged and reported as a 500 with the given fallback message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Chat room not found")
	case errors.Is(err, room.ErrUserNotFound), errors.Is(err, auth.ErrUserNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "User not found")
	case errors.Is(err, message.ErrMessageNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Message not found")
	case errors.Is(err, invite.ErrInviteNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrInviteNotFound, "Invite code not found or expired")

	case errors.Is(err, room.ErrForbidden), errors.Is(err, message.ErrForbidden):
		middleware.WriteError(w, http.StatusForbidden, middleware.ErrForbidden, err.Error())
	case errors.Is(err, message.ErrNotMember), errors.Is(err, invite.ErrNotMember),
		errors.Is(err, room.ErrNotMember):
		middleware.WriteError(w, http.StatusForbidden, middleware.ErrNotMember, "You are not a member of this room")

	case errors.Is(err, room.ErrAlreadyMember):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrAlreadyMember, "User is already a member")

	case errors.Is(err, room.ErrInvalidName), errors.Is(err, room.ErrInvalidType),
		errors.Is(err, message.ErrEmptyContent), errors.Is(err, message.ErrInvalidType),
		errors.Is(err, auth.ErrInvalidUsername):
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())

	case errors.Is(err, auth.ErrExpiredToken):
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrTokenExpired, "Token has expired")
	case errors.Is(err, auth.ErrInvalidToken):
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Invalid token")

	default:
		slog.ErrorContext(r.Context(), fallback, "method", r.Method, "path", r.URL.Path, "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, fallback)
	}
}
