package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/roomchat/backend/internal/storage/models"
)

// MemberRepository provides data access for durable room membership.
type MemberRepository struct {
	BaseRepository
}

// NewMemberRepository creates a new member repository.
func NewMemberRepository(db *DB) *MemberRepository {
	return &MemberRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func insertMember(ctx context.Context, q Queryable, roomID, userID, role string, joinedAt time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO room_members (id, room_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?, ?)
	`, GenerateID(), roomID, userID, role, joinedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateMember
		}
		return fmt.Errorf("inserting member: %w", err)
	}
	return nil
}

// Add makes userID a member of roomID with the given role.
// It returns ErrDuplicateMember if the membership already exists.
func (r *MemberRepository) Add(ctx context.Context, roomID, userID, role string) (*models.RoomMember, error) {
	if role == "" {
		role = models.RoleMember
	}
	now := r.Now()
	if err := insertMember(ctx, r.DB(), roomID, userID, role, now); err != nil {
		return nil, err
	}

	return &models.RoomMember{
		RoomID:   roomID,
		UserID:   userID,
		Role:     role,
		JoinedAt: now,
	}, nil
}

// Remove deletes a membership. Removing a non-member is not an error.
func (r *MemberRepository) Remove(ctx context.Context, roomID, userID string) error {
	_, err := r.DB().ExecContext(ctx,
		"DELETE FROM room_members WHERE room_id = ? AND user_id = ?", roomID, userID)
	if err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}
	return nil
}

// Exists reports whether userID is a member of roomID.
func (r *MemberRepository) Exists(ctx context.Context, roomID, userID string) (bool, error) {
	var exists bool
	err := r.DB().QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM room_members WHERE room_id = ? AND user_id = ?)
	`, roomID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return exists, nil
}

// CountByRoom returns the number of members in a room.
func (r *MemberRepository) CountByRoom(ctx context.Context, roomID string) (int, error) {
	var count int
	err := r.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM room_members WHERE room_id = ?", roomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting members: %w", err)
	}
	return count, nil
}

// ListByRoom returns the members of a room with their profiles, in join order.
func (r *MemberRepository) ListByRoom(ctx context.Context, roomID string) ([]models.MemberProfile, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT rm.id, rm.room_id, rm.user_id, rm.role, rm.joined_at, rm.last_read_at,
		       u.username, u.display_name, u.avatar_url
		FROM room_members rm
		INNER JOIN users u ON u.id = rm.user_id
		WHERE rm.room_id = ?
		ORDER BY rm.joined_at, u.username
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	var members []models.MemberProfile
	for rows.Next() {
		var m models.MemberProfile
		if err := rows.Scan(
			&m.ID, &m.RoomID, &m.UserID, &m.Role, &m.JoinedAt, &m.LastReadAt,
			&m.Username, &m.DisplayName, &m.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}
