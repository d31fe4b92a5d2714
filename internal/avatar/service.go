// Package avatar proxies user avatar images through the shared cache.
package avatar

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/roomchat/backend/internal/cache"
	"github.com/roomchat/backend/internal/storage/models"
)

// KeyPrefix namespaces avatar images in the cache.
const KeyPrefix = "avatar:"

// DefaultTTL is how long a fetched image is served from the cache.
const DefaultTTL = 24 * time.Hour

// MaxImageBytes caps the size of a fetched image.
const MaxImageBytes = 5 << 20

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNoAvatar     = errors.New("user has no avatar")
	ErrTooLarge     = errors.New("avatar image too large")
	ErrUnavailable  = errors.New("avatar source unavailable")
)

// UserLookup finds users by ID.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Service fetches avatar images from their source URL and keeps them
// cached as base64 for DefaultTTL.
type Service struct {
	cache      cache.Cache
	users      UserLookup
	httpClient *http.Client
	ttl        time.Duration
	logger     *slog.Logger
}

// NewService creates an avatar service.
func NewService(store cache.Cache, users UserLookup, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache: store,
		users: users,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the avatar image for userID, fetching and caching it on a miss.
func (s *Service) Get(ctx context.Context, userID string) ([]byte, error) {
	cached, err := s.cache.Get(ctx, userID)
	switch {
	case err == nil:
		img, decodeErr := base64.StdEncoding.DecodeString(cached)
		if decodeErr == nil {
			return img, nil
		}
		s.logger.Warn("discarding corrupt cached avatar", "user_id", userID, "error", decodeErr)
	case !errors.Is(err, cache.ErrMiss):
		s.logger.Warn("avatar cache unavailable, fetching directly", "user_id", userID, "error", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	url := strings.TrimSpace(user.Avatar())
	if url == "" {
		return nil, ErrNoAvatar
	}

	s.logger.Info("fetching avatar", "user_id", userID, "url", url)
	img, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, userID, base64.StdEncoding.EncodeToString(img), s.ttl); err != nil {
		s.logger.Warn("caching avatar failed", "user_id", userID, "error", err)
	}
	return img, nil
}

// Invalidate drops the cached image and reports whether one existed.
func (s *Service) Invalidate(ctx context.Context, userID string) (bool, error) {
	return s.cache.Delete(ctx, userID)
}

func (s *Service) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building avatar request: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/gif")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	img, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}
	if len(img) > MaxImageBytes {
		return nil, ErrTooLarge
	}
	return img, nil
}
