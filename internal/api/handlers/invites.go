package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/roomchat/backend/internal/api/middleware"
	"github.com/roomchat/backend/internal/invite"
)

// CreateInvite issues an invite code for a room the caller belongs to.
func CreateInvite(svc *invite.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		inv, err := svc.Create(r.Context(), mux.Vars(r)["roomId"], userID)
		if err != nil {
			writeServiceError(w, r, err, "Failed to create invite")
			return
		}
		writeJSON(w, http.StatusCreated, inv)
	}
}

// GetInvite describes the room behind an invite code.
func GetInvite(svc *invite.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, err := svc.Get(r.Context(), mux.Vars(r)["code"])
		if err != nil {
			writeServiceError(w, r, err, "Failed to load invite")
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

// JoinInvite adds the caller to the invite's room.
func JoinInvite(svc *invite.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		joined, err := svc.Join(r.Context(), mux.Vars(r)["code"], userID)
		if err != nil {
			writeServiceError(w, r, err, "Failed to join room")
			return
		}
		writeJSON(w, http.StatusOK, joined)
	}
}

// DeleteInvite revokes an invite code.
func DeleteInvite(svc *invite.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		existed, err := svc.Delete(r.Context(), mux.Vars(r)["code"])
		if err != nil {
			writeServiceError(w, r, err, "Failed to delete invite")
			return
		}
		if !existed {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrInviteNotFound, "Invite code not found or expired")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
