package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roomchat/backend/internal/storage/models"
)

// ErrDuplicateMember is returned when a user is already a member of the room.
var ErrDuplicateMember = errors.New("user is already a member of the room")

// RoomRepository provides data access for chat rooms.
type RoomRepository struct {
	BaseRepository
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *DB) *RoomRepository {
	return &RoomRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const roomColumns = `id, name, description, type, created_by, created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }) (*models.ChatRoom, error) {
	room := &models.ChatRoom{}
	err := row.Scan(
		&room.ID, &room.Name, &room.Description, &room.Type,
		&room.CreatedBy, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// CreateWithOwner inserts a room and makes its creator the OWNER member,
// plus any initial members, in one transaction.
func (r *RoomRepository) CreateWithOwner(ctx context.Context, room *models.ChatRoom, memberIDs []string) error {
	room.ID = GenerateID()
	room.CreatedAt = r.Now()
	room.UpdatedAt = room.CreatedAt
	if room.Type == "" {
		room.Type = models.RoomTypeGroup
	}

	return r.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chat_rooms (`+roomColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			room.ID, room.Name, room.Description, room.Type,
			room.CreatedBy, room.CreatedAt, room.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting room: %w", err)
		}

		if err := insertMember(ctx, tx, room.ID, room.CreatedBy, models.RoleOwner, room.CreatedAt); err != nil {
			return err
		}

		for _, userID := range memberIDs {
			if userID == room.CreatedBy {
				continue
			}
			if err := insertMember(ctx, tx, room.ID, userID, models.RoleMember, room.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves a room by ID. It returns nil, nil when no room matches.
func (r *RoomRepository) GetByID(ctx context.Context, id string) (*models.ChatRoom, error) {
	room, err := scanRoom(r.DB().QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM chat_rooms WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying room: %w", err)
	}
	return room, nil
}

// ListByUser retrieves every room the user is a member of, most recently updated first.
func (r *RoomRepository) ListByUser(ctx context.Context, userID string) ([]models.ChatRoom, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT cr.id, cr.name, cr.description, cr.type, cr.created_by, cr.created_at, cr.updated_at
		FROM chat_rooms cr
		INNER JOIN room_members rm ON cr.id = rm.room_id
		WHERE rm.user_id = ?
		ORDER BY cr.updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.ChatRoom
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning room: %w", err)
		}
		rooms = append(rooms, *room)
	}

	return rooms, rows.Err()
}

// Update updates the name and description of a room.
func (r *RoomRepository) Update(ctx context.Context, room *models.ChatRoom) error {
	room.UpdatedAt = r.Now()

	result, err := r.DB().ExecContext(ctx, `
		UPDATE chat_rooms SET name = ?, description = ?, updated_at = ?
		WHERE id = ?
	`, room.Name, room.Description, room.UpdatedAt, room.ID)
	if err != nil {
		return fmt.Errorf("updating room: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("room not found: %s", room.ID)
	}

	return nil
}

// Delete removes a room by ID. Members and messages cascade.
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB().ExecContext(ctx, "DELETE FROM chat_rooms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting room: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("room not found: %s", id)
	}

	return nil
}
