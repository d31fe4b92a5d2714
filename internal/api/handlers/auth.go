package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/roomchat/backend/internal/api/middleware"
	"github.com/roomchat/backend/internal/auth"
	"github.com/roomchat/backend/internal/storage/models"
)

// AuthService is the token lifecycle the auth endpoints expose.
type AuthService interface {
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
	DevLogin(ctx context.Context, username, displayName string) (*auth.TokenPair, error)
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type DevLoginRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// RefreshToken exchanges a refresh token for a new token pair.
func RefreshToken(svc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RefreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.RefreshToken) == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "refreshToken is required")
			return
		}

		pair, err := svc.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			writeServiceError(w, r, err, "Failed to refresh token")
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

// Me returns the user the bearer token belongs to.
func Me(svc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := middleware.BearerToken(r)
		if token == "" {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Missing bearer token")
			return
		}

		user, err := svc.CurrentUser(r.Context(), token)
		if err != nil {
			writeServiceError(w, r, err, "Failed to load user")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// Logout acknowledges a sign-out. Tokens are stateless, so the client
// discarding them is what ends the session.
func Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
	}
}

// DevLogin signs in by username, creating the user on first use. It is
// only routed in dev mode.
func DevLogin(svc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DevLoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		pair, err := svc.DevLogin(r.Context(), req.Username, req.DisplayName)
		if err != nil {
			writeServiceError(w, r, err, "Failed to sign in")
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}
