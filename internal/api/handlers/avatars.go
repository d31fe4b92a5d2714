package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/roomchat/backend/internal/api/middleware"
	"github.com/roomchat/backend/internal/avatar"
)

// GetAvatar serves a user's avatar image from the proxy cache. Sources that
// cannot be fetched answer 404 like a missing avatar.
func GetAvatar(svc *avatar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userId"]
		img, err := svc.Get(r.Context(), userID)
		switch {
		case err == nil:
		case errors.Is(err, avatar.ErrUserNotFound), errors.Is(err, avatar.ErrNoAvatar):
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Avatar not found")
			return
		case errors.Is(err, avatar.ErrUnavailable), errors.Is(err, avatar.ErrTooLarge):
			slog.WarnContext(r.Context(), "avatar fetch failed", "user_id", userID, "error", err)
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Avatar not found")
			return
		default:
			writeServiceError(w, r, err, "Failed to load avatar")
			return
		}

		w.Header().Set("Content-Type", http.DetectContentType(img))
		w.Header().Set("Content-Length", strconv.Itoa(len(img)))
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(avatar.DefaultTTL.Seconds())))
		w.WriteHeader(http.StatusOK)
		w.Write(img)
	}
}

// InvalidateAvatar drops a cached avatar so the next request refetches it.
func InvalidateAvatar(svc *avatar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		existed, err := svc.Invalidate(r.Context(), mux.Vars(r)["userId"])
		if err != nil {
			writeServiceError(w, r, err, "Failed to invalidate avatar")
			return
		}
		if !existed {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Avatar not cached")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
