package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roomchat/backend/internal/storage/models"
)

// MessageRepository provides data access for chat messages.
type MessageRepository struct {
	BaseRepository
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const messageColumns = `id, room_id, sender_id, content, message_type, created_at, updated_at, deleted_at`

func scanMessage(row interface{ Scan(...any) error }) (*models.Message, error) {
	m := &models.Message{}
	err := row.Scan(
		&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.MessageType,
		&m.CreatedAt, &m.UpdatedAt, &m.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Save durably writes a new message and returns it with its assigned ID
// and creation time.
func (r *MessageRepository) Save(ctx context.Context, roomID, senderID, content, kind string) (*models.Message, error) {
	if kind == "" {
		kind = models.MessageTypeText
	}
	now := r.Now()
	m := &models.Message{
		ID:          GenerateID(),
		RoomID:      roomID,
		SenderID:    senderID,
		Content:     content,
		MessageType: kind,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO messages (id, room_id, sender_id, content, message_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.RoomID, m.SenderID, m.Content, m.MessageType, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	return m, nil
}

// GetByID retrieves a message by ID, including soft-deleted ones.
// It returns nil, nil when no message matches.
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	m, err := scanMessage(r.DB().QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying message: %w", err)
	}
	return m, nil
}

// ListByRoom returns up to limit non-deleted messages of a room, newest
// first. When cursor is set, only messages written before the cursor
// message are returned.
func (r *MessageRepository) ListByRoom(ctx context.Context, roomID, cursor string, limit int) ([]models.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if cursor == "" {
		rows, err = r.DB().QueryContext(ctx, `
			SELECT `+messageColumns+` FROM messages
			WHERE room_id = ? AND deleted_at IS NULL
			ORDER BY seq DESC
			LIMIT ?
		`, roomID, limit)
	} else {
		rows, err = r.DB().QueryContext(ctx, `
			SELECT `+messageColumns+` FROM messages
			WHERE room_id = ? AND deleted_at IS NULL
			  AND seq < (SELECT seq FROM messages WHERE id = ?)
			ORDER BY seq DESC
			LIMIT ?
		`, roomID, cursor, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, *m)
	}

	return messages, rows.Err()
}

// SoftDelete marks a message as deleted.
func (r *MessageRepository) SoftDelete(ctx context.Context, id string) error {
	now := r.Now()
	result, err := r.DB().ExecContext(ctx, `
		UPDATE messages SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, now, now, id)
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("message not found: %s", id)
	}

	return nil
}

// PurgeDeleted permanently removes messages soft-deleted before the cutoff.
func (r *MessageRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.DB().ExecContext(ctx,
		"DELETE FROM messages WHERE deleted_at IS NOT NULL AND deleted_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging messages: %w", err)
	}
	return result.RowsAffected()
}
