package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roomchat/backend/internal/storage/models"
)

// UserRepository provides data access for users.
type UserRepository struct {
	BaseRepository
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const userColumns = `id, username, email, display_name, avatar_url, status, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.AvatarURL,
		&u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user. ID and timestamps are assigned here.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = GenerateID()
	user.CreatedAt = r.Now()
	user.UpdatedAt = user.CreatedAt
	if user.Status == "" {
		user.Status = models.UserStatusOffline
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID, user.Username, user.Email, user.DisplayName, user.AvatarURL,
		user.Status, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID. It returns nil, nil when no user matches.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(r.DB().QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// GetByUsername retrieves a user by username. It returns nil, nil when no user matches.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(r.DB().QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns up to limit users whose username contains query, ignoring
// ASCII case, ordered by username.
func (r *UserRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE username LIKE ? ESCAPE '\'
		ORDER BY username
		LIMIT ?
	`, "%"+likeEscaper.Replace(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateProfile updates the display name and avatar of a user.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	user.UpdatedAt = r.Now()

	result, err := r.DB().ExecContext(ctx, `
		UPDATE users SET display_name = ?, avatar_url = ?, updated_at = ?
		WHERE id = ?
	`, user.DisplayName, user.AvatarURL, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", user.ID)
	}

	return nil
}

// SyncOnlineStatus marks exactly the given users ONLINE and everyone else
// OFFLINE. It returns the number of rows whose status changed.
func (r *UserRepository) SyncOnlineStatus(ctx context.Context, onlineIDs []string) (int64, error) {
	var changed int64

	err := r.Transaction(ctx, func(tx *sql.Tx) error {
		now := r.Now()

		args := []any{models.UserStatusOffline, now, models.UserStatusOnline}
		offlineQuery := `UPDATE users SET status = ?, updated_at = ? WHERE status = ?`
		if len(onlineIDs) > 0 {
			offlineQuery += ` AND id NOT IN (` + placeholders(len(onlineIDs)) + `)`
			for _, id := range onlineIDs {
				args = append(args, id)
			}
		}
		res, err := tx.ExecContext(ctx, offlineQuery, args...)
		if err != nil {
			return fmt.Errorf("marking users offline: %w", err)
		}
		n, _ := res.RowsAffected()
		changed += n

		if len(onlineIDs) == 0 {
			return nil
		}

		args = []any{models.UserStatusOnline, now, models.UserStatusOnline}
		for _, id := range onlineIDs {
			args = append(args, id)
		}
		res, err = tx.ExecContext(ctx, `
			UPDATE users SET status = ?, updated_at = ?
			WHERE status != ? AND id IN (`+placeholders(len(onlineIDs))+`)
		`, args...)
		if err != nil {
			return fmt.Errorf("marking users online: %w", err)
		}
		n, _ = res.RowsAffected()
		changed += n
		return nil
	})

	return changed, err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
