// Package room manages chat rooms and their durable membership.
package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roomchat/backend/internal/storage"
	"github.com/roomchat/backend/internal/storage/models"
)

var (
	ErrRoomNotFound  = errors.New("chat room not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrForbidden     = errors.New("only the room creator can do this")
	ErrNotMember     = errors.New("only room members can add members")
	ErrAlreadyMember = errors.New("user is already a member")
	ErrInvalidName   = errors.New("room name is required")
	ErrInvalidType   = errors.New("room type must be GROUP or DIRECT")
)

// Store is the room persistence the service needs.
type Store interface {
	CreateWithOwner(ctx context.Context, room *models.ChatRoom, memberIDs []string) error
	GetByID(ctx context.Context, id string) (*models.ChatRoom, error)
	ListByUser(ctx context.Context, userID string) ([]models.ChatRoom, error)
	Update(ctx context.Context, room *models.ChatRoom) error
	Delete(ctx context.Context, id string) error
}

// MemberStore is the membership persistence the service needs.
type MemberStore interface {
	Add(ctx context.Context, roomID, userID, role string) (*models.RoomMember, error)
	Remove(ctx context.Context, roomID, userID string) error
	Exists(ctx context.Context, roomID, userID string) (bool, error)
	CountByRoom(ctx context.Context, roomID string) (int, error)
	ListByRoom(ctx context.Context, roomID string) ([]models.MemberProfile, error)
}

// UserLookup finds users by ID.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// View is a room as returned to clients.
type View struct {
	models.ChatRoom
	MemberCount int `json:"memberCount"`
}

// CreateRequest describes a new room.
type CreateRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Type        string   `json:"type,omitempty"`
	MemberIDs   []string `json:"memberIds,omitempty"`
}

// UpdateRequest holds the editable room fields.
type UpdateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Service implements room operations.
type Service struct {
	rooms   Store
	members MemberStore
	users   UserLookup
	logger  *slog.Logger
}

// NewService creates a room service.
func NewService(rooms Store, members MemberStore, users UserLookup, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{rooms: rooms, members: members, users: users, logger: logger}
}

// Create makes a room owned by creatorID. Listed members join as MEMBER.
func (s *Service) Create(ctx context.Context, creatorID string, req CreateRequest) (*View, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	roomType := strings.ToUpper(strings.TrimSpace(req.Type))
	switch roomType {
	case "":
		roomType = models.RoomTypeGroup
	case models.RoomTypeGroup, models.RoomTypeDirect:
	default:
		return nil, ErrInvalidType
	}

	memberIDs := make([]string, 0, len(req.MemberIDs))
	seen := map[string]bool{creatorID: true}
	for _, id := range req.MemberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := s.requireUser(ctx, id); err != nil {
			return nil, err
		}
		memberIDs = append(memberIDs, id)
	}

	room := &models.ChatRoom{
		Name:        name,
		Description: req.Description,
		Type:        roomType,
		CreatedBy:   creatorID,
	}
	if err := s.rooms.CreateWithOwner(ctx, room, memberIDs); err != nil {
		return nil, fmt.Errorf("creating room: %w", err)
	}

	s.logger.Info("chat room created", "room_id", room.ID, "name", room.Name, "members", len(memberIDs)+1)
	return &View{ChatRoom: *room, MemberCount: len(memberIDs) + 1}, nil
}

// List returns the rooms userID is a member of.
func (s *Service) List(ctx context.Context, userID string) ([]View, error) {
	rooms, err := s.rooms.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(rooms))
	for _, room := range rooms {
		count, err := s.members.CountByRoom(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, View{ChatRoom: room, MemberCount: count})
	}
	return views, nil
}

// Get returns a room by ID.
func (s *Service) Get(ctx context.Context, roomID string) (*View, error) {
	room, err := s.find(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, room)
}

// Update renames a room. Only its creator may update it.
func (s *Service) Update(ctx context.Context, roomID, userID string, req UpdateRequest) (*View, error) {
	room, err := s.find(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatedBy != userID {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	room.Name = name
	room.Description = req.Description
	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, fmt.Errorf("updating room: %w", err)
	}
	return s.view(ctx, room)
}

// Delete removes a room with its members and messages. Only its creator
// may delete it.
func (s *Service) Delete(ctx context.Context, roomID, userID string) error {
	room, err := s.find(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatedBy != userID {
		return ErrForbidden
	}
	if err := s.rooms.Delete(ctx, roomID); err != nil {
		return fmt.Errorf("deleting room: %w", err)
	}
	s.logger.Info("chat room deleted", "room_id", roomID)
	return nil
}

// AddMember makes userID a MEMBER of the room.
func (s *Service) AddMember(ctx context.Context, roomID, userID string) (*models.MemberProfile, error) {
	if _, err := s.find(ctx, roomID); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	member, err := s.members.Add(ctx, roomID, userID, models.RoleMember)
	if errors.Is(err, storage.ErrDuplicateMember) {
		return nil, ErrAlreadyMember
	}
	if err != nil {
		return nil, err
	}

	return &models.MemberProfile{
		RoomMember:  *member,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
	}, nil
}

// AddMemberBy adds userID on behalf of actorID, who must already be a
// member of the room.
func (s *Service) AddMemberBy(ctx context.Context, roomID, actorID, userID string) (*models.MemberProfile, error) {
	if _, err := s.find(ctx, roomID); err != nil {
		return nil, err
	}
	ok, err := s.members.Exists(ctx, roomID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}
	return s.AddMember(ctx, roomID, userID)
}

// RemoveMember drops userID from the room on behalf of actorID. Members
// may leave on their own; removing anyone else takes the room creator.
// Removing a non-member succeeds.
func (s *Service) RemoveMember(ctx context.Context, roomID, actorID, userID string) error {
	room, err := s.find(ctx, roomID)
	if err != nil {
		return err
	}
	if actorID != userID && room.CreatedBy != actorID {
		return ErrForbidden
	}
	if err := s.members.Remove(ctx, roomID, userID); err != nil {
		return err
	}
	s.logger.Info("member removed", "room_id", roomID, "user_id", userID, "by", actorID)
	return nil
}

// Members lists a room's members with their profiles.
func (s *Service) Members(ctx context.Context, roomID string) ([]models.MemberProfile, error) {
	if _, err := s.find(ctx, roomID); err != nil {
		return nil, err
	}
	members, err := s.members.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []models.MemberProfile{}
	}
	return members, nil
}

// IsMember reports whether userID is a durable member of the room.
func (s *Service) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	return s.members.Exists(ctx, roomID, userID)
}

func (s *Service) find(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (s *Service) view(ctx context.Context, room *models.ChatRoom) (*View, error) {
	count, err := s.members.CountByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	return &View{ChatRoom: *room, MemberCount: count}, nil
}

func (s *Service) requireUser(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return nil
}
