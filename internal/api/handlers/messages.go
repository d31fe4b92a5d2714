package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/roomchat/backend/internal/api/middleware"
	"github.com/roomchat/backend/internal/message"
)

type SendMessageRequest struct {
	Content     string `json:"content"`
	MessageType string `json:"messageType,omitempty"`
}

// ListMessages returns a page of room history. Query parameters: cursor
// (a message ID) and limit.
func ListMessages(svc *message.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		query := r.URL.Query()
		limit := 0
		if raw := query.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "limit must be a positive integer")
				return
			}
			limit = n
		}

		page, err := svc.History(r.Context(), mux.Vars(r)["roomId"], userID, query.Get("cursor"), limit)
		if err != nil {
			writeServiceError(w, r, err, "Failed to query messages")
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// SendMessage stores a message and broadcasts it to the room.
func SendMessage(svc *message.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req SendMessageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		sent, err := svc.Send(r.Context(), mux.Vars(r)["roomId"], userID, req.Content, req.MessageType)
		if err != nil {
			writeServiceError(w, r, err, "Failed to send message")
			return
		}
		writeJSON(w, http.StatusCreated, sent)
	}
}

// DeleteMessage soft-deletes the caller's own message.
func DeleteMessage(svc *message.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), mux.Vars(r)["id"], userID); err != nil {
			writeServiceError(w, r, err, "Failed to delete message")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
