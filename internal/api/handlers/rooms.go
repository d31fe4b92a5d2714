package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/roomchat/backend/internal/api/middleware"
	"github.com/roomchat/backend/internal/room"
)

// ListRooms returns the rooms the caller belongs to.
func ListRooms(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		rooms, err := svc.List(r.Context(), userID)
		if err != nil {
			writeServiceError(w, r, err, "Failed to query rooms")
			return
		}
		if rooms == nil {
			rooms = []room.View{}
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

// CreateRoom creates a room owned by the caller.
func CreateRoom(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req room.CreateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		created, err := svc.Create(r.Context(), userID, req)
		if err != nil {
			writeServiceError(w, r, err, "Failed to create room")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// GetRoom returns a single room.
func GetRoom(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		found, err := svc.Get(r.Context(), mux.Vars(r)["roomId"])
		if err != nil {
			writeServiceError(w, r, err, "Failed to load room")
			return
		}
		writeJSON(w, http.StatusOK, found)
	}
}

// UpdateRoom renames a room. Only the creator may update it.
func UpdateRoom(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req room.UpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		updated, err := svc.Update(r.Context(), mux.Vars(r)["roomId"], userID, req)
		if err != nil {
			writeServiceError(w, r, err, "Failed to update room")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// DeleteRoom removes a room. Only the creator may delete it.
func DeleteRoom(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), mux.Vars(r)["roomId"], userID); err != nil {
			writeServiceError(w, r, err, "Failed to delete room")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListMembers returns a room's members.
func ListMembers(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		members, err := svc.Members(r.Context(), mux.Vars(r)["roomId"])
		if err != nil {
			writeServiceError(w, r, err, "Failed to query members")
			return
		}
		writeJSON(w, http.StatusOK, members)
	}
}

// AddMember adds the user given by the userId query parameter. The caller
// must be a member of the room.
func AddMember(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := currentUser(w, r)
		if !ok {
			return
		}

		userID := r.URL.Query().Get("userId")
		if userID == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "userId is required")
			return
		}

		member, err := svc.AddMemberBy(r.Context(), mux.Vars(r)["roomId"], actorID, userID)
		if err != nil {
			writeServiceError(w, r, err, "Failed to add member")
			return
		}
		writeJSON(w, http.StatusCreated, member)
	}
}

// RemoveMember removes a member from a room. Callers may remove themselves;
// the room creator may remove anyone.
func RemoveMember(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := currentUser(w, r)
		if !ok {
			return
		}

		vars := mux.Vars(r)
		if err := svc.RemoveMember(r.Context(), vars["roomId"], actorID, vars["userId"]); err != nil {
			writeServiceError(w, r, err, "Failed to remove member")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
