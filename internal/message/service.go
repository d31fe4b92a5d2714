// Package message sends, pages and deletes chat messages over REST.
package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roomchat/backend/internal/storage/models"
	"github.com/roomchat/backend/internal/websocket"
)

// Page sizes for History.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrForbidden       = errors.New("you can only delete your own messages")
	ErrNotMember       = errors.New("you are not a member of this room")
	ErrEmptyContent    = errors.New("message content is required")
	ErrInvalidType     = errors.New("message type must be TEXT, IMAGE or FILE")
)

// Store is the message persistence the service needs.
type Store interface {
	Save(ctx context.Context, roomID, senderID, content, kind string) (*models.Message, error)
	GetByID(ctx context.Context, id string) (*models.Message, error)
	ListByRoom(ctx context.Context, roomID, cursor string, limit int) ([]models.Message, error)
	SoftDelete(ctx context.Context, id string) error
}

// MembershipChecker reports durable room membership.
type MembershipChecker interface {
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

// UserLookup finds message senders.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Publisher puts persisted messages on the realtime hub.
type Publisher interface {
	BroadcastChat(msg *models.Message, sender *websocket.SenderInfo) websocket.PublishResult
}

// View is a message with its sender summary.
type View struct {
	models.Message
	Sender *websocket.SenderInfo `json:"sender,omitempty"`
}

// Page is one page of room history, oldest message first.
type Page struct {
	Messages   []View `json:"messages"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// Service implements message operations.
type Service struct {
	store     Store
	members   MembershipChecker
	users     UserLookup
	publisher Publisher
	logger    *slog.Logger
}

// NewService creates a message service.
func NewService(store Store, members MembershipChecker, users UserLookup, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		members:   members,
		users:     users,
		publisher: publisher,
		logger:    logger,
	}
}

// Send persists a message from a room member and then broadcasts it to
// everyone present in the room.
func (s *Service) Send(ctx context.Context, roomID, senderID, content, kind string) (*View, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	switch kind {
	case "":
		kind = models.MessageTypeText
	case models.MessageTypeText, models.MessageTypeImage, models.MessageTypeFile:
	default:
		return nil, ErrInvalidType
	}

	if err := s.requireMember(ctx, roomID, senderID); err != nil {
		return nil, err
	}

	msg, err := s.store.Save(ctx, roomID, senderID, content, kind)
	if err != nil {
		return nil, fmt.Errorf("saving message: %w", err)
	}

	sender, err := s.sender(ctx, senderID)
	if err != nil {
		s.logger.Warn("loading message sender", "user_id", senderID, "error", err)
		sender = &websocket.SenderInfo{ID: senderID}
	}
	s.publisher.BroadcastChat(msg, sender)

	s.logger.Debug("message sent", "room_id", roomID, "message_id", msg.ID)
	return &View{Message: *msg, Sender: sender}, nil
}

// History returns up to limit messages written before cursor (or the
// latest messages when cursor is empty). Only members may read history.
func (s *Service) History(ctx context.Context, roomID, userID, cursor string, limit int) (*Page, error) {
	if err := s.requireMember(ctx, roomID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	messages, err := s.store.ListByRoom(ctx, roomID, cursor, limit+1)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	slices.Reverse(messages)

	page := &Page{Messages: make([]View, 0, len(messages)), HasMore: hasMore}
	senders := make(map[string]*websocket.SenderInfo)
	for _, m := range messages {
		sender, ok := senders[m.SenderID]
		if !ok {
			sender, err = s.sender(ctx, m.SenderID)
			if err != nil {
				return nil, err
			}
			senders[m.SenderID] = sender
		}
		page.Messages = append(page.Messages, View{Message: m, Sender: sender})
	}
	if hasMore && len(messages) > 0 {
		page.NextCursor = messages[0].ID
	}
	return page, nil
}

// Delete soft-deletes a message. Only its sender may delete it.
func (s *Service) Delete(ctx context.Context, messageID, userID string) error {
	msg, err := s.store.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil || msg.DeletedAt != nil {
		return ErrMessageNotFound
	}
	if msg.SenderID != userID {
		return ErrForbidden
	}
	if err := s.store.SoftDelete(ctx, messageID); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return nil
}

func (s *Service) requireMember(ctx context.Context, roomID, userID string) error {
	ok, err := s.members.IsMember(ctx, roomID, userID)
	if err != nil {
		return fmt.Errorf("checking membership: %w", err)
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

// sender returns the summary for a user. A user that no longer exists
// yields a summary carrying only the ID.
func (s *Service) sender(ctx context.Context, userID string) (*websocket.SenderInfo, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return &websocket.SenderInfo{ID: userID}, nil
	}
	return &websocket.SenderInfo{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		AvatarURL:   user.Avatar(),
	}, nil
}
