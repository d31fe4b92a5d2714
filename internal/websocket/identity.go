package websocket

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"github.com/roomchat/backend/internal/storage/models"
)

// TokenValidator is the part of the token service the resolver needs.
type TokenValidator interface {
	Validate(token string) bool
	IsAccessToken(token string) bool
	ExtractUserID(token string) (string, error)
}

// UserLookup loads the profile used to enrich sender summaries.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Resolver turns handshake query parameters into an Identity.
type Resolver struct {
	tokens TokenValidator
	users  UserLookup
	logger *slog.Logger

	// allowLegacyUserID accepts an unauthenticated userId parameter.
	allowLegacyUserID bool
}

// NewResolver creates an identity resolver. allowLegacyUserID must only be
// set in dev mode.
func NewResolver(tokens TokenValidator, users UserLookup, allowLegacyUserID bool, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		tokens:            tokens,
		users:             users,
		logger:            logger,
		allowLegacyUserID: allowLegacyUserID,
	}
}

// Resolve returns the identity for a handshake, or nil for an anonymous
// connection. It never fails the handshake.
func (r *Resolver) Resolve(ctx context.Context, query url.Values) *Identity {
	userID := r.userIDFromToken(query.Get("token"))

	if userID == "" {
		if legacy := query.Get("userId"); legacy != "" {
			if !r.allowLegacyUserID {
				r.logger.Warn("legacy userId handshake rejected outside dev mode")
				return nil
			}
			if _, err := uuid.Parse(legacy); err != nil {
				r.logger.Warn("legacy userId is not a valid id", "error", err)
				return nil
			}
			r.logger.Warn("connection using deprecated userId parameter, migrate to token", "user_id", legacy)
			userID = legacy
		}
	}

	if userID == "" {
		return nil
	}

	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		r.logger.Error("loading user for handshake", "user_id", userID, "error", err)
		return nil
	}
	if user == nil {
		r.logger.Warn("handshake user not found", "user_id", userID)
		return nil
	}

	return &Identity{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		AvatarURL:   user.Avatar(),
	}
}

func (r *Resolver) userIDFromToken(token string) string {
	if token == "" {
		return ""
	}
	if !r.tokens.Validate(token) || !r.tokens.IsAccessToken(token) {
		r.logger.Debug("handshake token rejected")
		return ""
	}
	userID, err := r.tokens.ExtractUserID(token)
	if err != nil {
		return ""
	}
	return userID
}
