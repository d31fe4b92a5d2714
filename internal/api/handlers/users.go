package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/roomchat/backend/internal/api/middleware"
	"github.com/roomchat/backend/internal/storage/models"
)

// UserStore is the user persistence the profile endpoints need.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
}

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
}

// GetMe returns the caller's profile.
func GetMe(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}
		writeUser(w, r, users, userID)
	}
}

// GetUser returns a user's profile by ID.
func GetUser(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeUser(w, r, users, mux.Vars(r)["id"])
	}
}

// GetUserByUsername returns a user's profile by exact username.
func GetUserByUsername(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := users.GetByUsername(r.Context(), mux.Vars(r)["username"])
		if err != nil {
			writeServiceError(w, r, err, "Failed to load user")
			return
		}
		if user == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "User not found")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// SearchUsers finds users whose username contains the q parameter.
func SearchUsers(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "q is required")
			return
		}

		limit := defaultSearchLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "limit must be a positive integer")
				return
			}
			limit = min(n, maxSearchLimit)
		}

		found, err := users.Search(r.Context(), q, limit)
		if err != nil {
			writeServiceError(w, r, err, "Failed to search users")
			return
		}
		if found == nil {
			found = []models.User{}
		}
		writeJSON(w, http.StatusOK, found)
	}
}

// UpdateMe changes the caller's display name or avatar.
func UpdateMe(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req UpdateProfileRequest
		if err := decodeJSON(w, r, &req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		user, err := users.GetByID(r.Context(), userID)
		if err != nil {
			writeServiceError(w, r, err, "Failed to load user")
			return
		}
		if user == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "User not found")
			return
		}

		if req.DisplayName != nil {
			name := strings.TrimSpace(*req.DisplayName)
			if name == "" {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "displayName cannot be empty")
				return
			}
			user.DisplayName = name
		}
		if req.AvatarURL != nil {
			if *req.AvatarURL == "" {
				user.AvatarURL = nil
			} else {
				user.AvatarURL = req.AvatarURL
			}
		}

		if err := users.UpdateProfile(r.Context(), user); err != nil {
			writeServiceError(w, r, err, "Failed to update user")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func writeUser(w http.ResponseWriter, r *http.Request, users UserStore, id string) {
	user, err := users.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "Failed to load user")
		return
	}
	if user == nil {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
