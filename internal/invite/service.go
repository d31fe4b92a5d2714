// Package invite issues short-lived room invite codes.
package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/roomchat/backend/internal/cache"
	"github.com/roomchat/backend/internal/room"
	"github.com/roomchat/backend/internal/storage/models"
)

// KeyPrefix namespaces invite codes in the cache.
const KeyPrefix = "invite:"

// DefaultTTL is how long an invite code stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// CodeLength is the number of hex characters in an invite code.
const CodeLength = 8

var (
	ErrInviteNotFound = errors.New("invite code not found or expired")
	ErrNotMember      = errors.New("you are not a member of this room")
)

// Rooms is the part of the room service invites depend on.
type Rooms interface {
	Get(ctx context.Context, roomID string) (*room.View, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	AddMember(ctx context.Context, roomID, userID string) (*models.MemberProfile, error)
}

// Invite describes an invite code.
type Invite struct {
	RoomID     string     `json:"roomId"`
	RoomName   string     `json:"roomName"`
	InviteCode string     `json:"inviteCode"`
	InviteURL  string     `json:"inviteUrl"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// Service creates and redeems invite codes.
type Service struct {
	cache       cache.Cache
	rooms       Rooms
	frontendURL string
	ttl         time.Duration
	logger      *slog.Logger

	now func() time.Time
}

// NewService creates an invite service. Invite URLs are built as
// frontendURL + "/invite/" + code.
func NewService(store cache.Cache, rooms Rooms, frontendURL string, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache:       store,
		rooms:       rooms,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		ttl:         ttl,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create issues a new code for a room. Only members may invite.
func (s *Service) Create(ctx context.Context, roomID, userID string) (*Invite, error) {
	r, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	member, err := s.rooms.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotMember
	}

	code := newCode()
	if err := s.cache.Set(ctx, code, roomID, s.ttl); err != nil {
		return nil, fmt.Errorf("storing invite: %w", err)
	}

	created := s.now()
	expires := created.Add(s.ttl)
	s.logger.Info("invite created", "room_id", roomID, "code", code)

	inv := s.invite(r, code)
	inv.CreatedAt = &created
	inv.ExpiresAt = &expires
	return inv, nil
}

// Get resolves a code to its room.
func (s *Service) Get(ctx context.Context, code string) (*Invite, error) {
	r, err := s.resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.invite(r, code), nil
}

// Join adds userID to the invite's room. Joining a room the user already
// belongs to succeeds without change.
func (s *Service) Join(ctx context.Context, code, userID string) (*room.View, error) {
	r, err := s.resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	if _, err := s.rooms.AddMember(ctx, r.ID, userID); err != nil {
		if !errors.Is(err, room.ErrAlreadyMember) {
			return nil, err
		}
		return r, nil
	}

	s.logger.Info("user joined room via invite", "room_id", r.ID, "user_id", userID)
	return s.rooms.Get(ctx, r.ID)
}

// Delete revokes a code and reports whether it existed.
func (s *Service) Delete(ctx context.Context, code string) (bool, error) {
	return s.cache.Delete(ctx, code)
}

func (s *Service) resolve(ctx context.Context, code string) (*room.View, error) {
	roomID, err := s.cache.Get(ctx, code)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.rooms.Get(ctx, roomID)
}

func (s *Service) invite(r *room.View, code string) *Invite {
	return &Invite{
		RoomID:     r.ID,
		RoomName:   r.Name,
		InviteCode: code,
		InviteURL:  s.frontendURL + "/invite/" + code,
	}
}

var newCode = func() func() string {
	gen, err := nanoid.CustomASCII("0123456789abcdef", CodeLength)
	if err != nil {
		panic(err)
	}
	return gen
}()
