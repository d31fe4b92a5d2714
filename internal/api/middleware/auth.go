package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/roomchat/backend/internal/auth"
)

type contextKey int

const userIDKey contextKey = iota

// AccessTokenValidator checks bearer tokens.
type AccessTokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid access token in the
// Authorization header and stores the caller's user ID in the context.
func RequireAuth(tokens AccessTokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Missing bearer token")
				return
			}

			claims, err := tokens.ValidateAccessToken(token)
			if errors.Is(err, auth.ErrExpiredToken) {
				WriteError(w, http.StatusUnauthorized, ErrTokenExpired, "Access token has expired")
				return
			}
			if err != nil {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Invalid access token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// UserIDFromContext returns the authenticated user ID set by RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// WithUserID returns a context carrying userID, as RequireAuth would set it.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
