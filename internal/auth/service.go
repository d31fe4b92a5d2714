package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roomchat/backend/internal/storage/models"
)

var (
	// ErrUserNotFound is returned when a token refers to a user that no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidUsername is returned by DevLogin for an empty username.
	ErrInvalidUsername = errors.New("username is required")
)

// UserStore is the user persistence the auth service depends on.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         *models.User `json:"user"`
}

// Service implements the token lifecycle on top of the user store.
type Service struct {
	tokens *TokenManager
	users  UserStore
	logger *slog.Logger
}

// NewService creates a new auth service.
func NewService(tokens *TokenManager, users UserStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tokens: tokens, users: users, logger: logger}
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return s.issue(user)
}

// CurrentUser returns the user an access token belongs to.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// DevLogin finds or creates a user by username and issues tokens for it.
// It stands in for the external identity provider and must only be
// routed in dev mode.
func (s *Service) DevLogin(ctx context.Context, username, displayName string) (*TokenPair, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" {
		return nil, ErrInvalidUsername
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if user == nil {
		if strings.TrimSpace(displayName) == "" {
			displayName = username
		}
		user = &models.User{Username: username, DisplayName: displayName}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("creating user: %w", err)
		}
		s.logger.Info("dev user created", "user_id", user.ID, "username", username)
	}

	return s.issue(user)
}

func (s *Service) issue(user *models.User) (*TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID, user.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.tokens.AccessTokenDuration(),
		User:         user,
	}, nil
}
