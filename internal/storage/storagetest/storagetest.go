// Package storagetest opens throwaway databases for tests in other packages.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roomchat/backend/internal/storage"
	"github.com/roomchat/backend/internal/storage/models"
)

// NewDB opens a migrated SQLite database in a temporary directory. It is
// closed when the test ends.
func NewDB(t testing.TB) *storage.DB {
	t.Helper()

	db, err := storage.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return db
}

// CreateUser inserts a user with a display name derived from username.
func CreateUser(t testing.TB, db *storage.DB, username string) *models.User {
	t.Helper()

	u := &models.User{Username: username, DisplayName: "User " + username}
	if err := storage.NewUserRepository(db).Create(context.Background(), u); err != nil {
		t.Fatalf("Create(%s) error = %v", username, err)
	}
	return u
}
