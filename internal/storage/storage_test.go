package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/roomchat/backend/internal/storage/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := RunMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return db
}

func createUser(t *testing.T, repo *UserRepository, username string) *models.User {
	t.Helper()

	u := &models.User{Username: username, DisplayName: "User " + username}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create(%s) error = %v", username, err)
	}
	return u
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	if err := RunMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count); err != nil {
		t.Fatalf("counting migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("applied migrations = %d, want 1", count)
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	alice := createUser(t, repo, "alice")
	if alice.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}
	if alice.Status != models.UserStatusOffline {
		t.Errorf("Status = %q, want OFFLINE", alice.Status)
	}

	got, err := repo.GetByID(ctx, alice.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID() = %v, %v", got, err)
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q, want alice", got.Username)
	}

	missing, err := repo.GetByID(ctx, "does-not-exist")
	if err != nil || missing != nil {
		t.Fatalf("GetByID(missing) = %v, %v; want nil, nil", missing, err)
	}

	avatar := "https://example.com/a.png"
	got.DisplayName = "Alice A."
	got.AvatarURL = &avatar
	if err := repo.UpdateProfile(ctx, got); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	byName, err := repo.GetByUsername(ctx, "alice")
	if err != nil || byName == nil {
		t.Fatalf("GetByUsername() = %v, %v", byName, err)
	}
	if byName.DisplayName != "Alice A." || byName.Avatar() != avatar {
		t.Errorf("profile not updated: %+v", byName)
	}
}

func TestUserRepository_Search(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	for _, name := range []string{"alice", "Alicia", "bob", "mal_ice", "malxice"} {
		createUser(t, repo, name)
	}

	tests := []struct {
		query string
		limit int
		want  []string
	}{
		{"lic", 20, []string{"Alicia", "alice"}},
		{"ALI", 20, []string{"Alicia", "alice"}},
		{"lic", 1, []string{"Alicia"}},
		{"_", 20, []string{"mal_ice"}},
		{"zzz", 20, nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			users, err := repo.Search(ctx, tt.query, tt.limit)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			var got []string
			for _, u := range users {
				got = append(got, u.Username)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Search(%q)[%d] = %q, want %q", tt.query, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestUserRepository_SyncOnlineStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	alice := createUser(t, repo, "alice")
	bob := createUser(t, repo, "bob")

	changed, err := repo.SyncOnlineStatus(ctx, []string{alice.ID})
	if err != nil {
		t.Fatalf("SyncOnlineStatus() error = %v", err)
	}
	if changed != 1 {
		t.Errorf("changed = %d, want 1", changed)
	}

	changed, err = repo.SyncOnlineStatus(ctx, []string{bob.ID})
	if err != nil {
		t.Fatalf("SyncOnlineStatus() error = %v", err)
	}
	if changed != 2 {
		t.Errorf("changed = %d, want 2", changed)
	}

	a, _ := repo.GetByID(ctx, alice.ID)
	b, _ := repo.GetByID(ctx, bob.ID)
	if a.Status != models.UserStatusOffline || b.Status != models.UserStatusOnline {
		t.Errorf("statuses = %s/%s, want OFFLINE/ONLINE", a.Status, b.Status)
	}

	if _, err := repo.SyncOnlineStatus(ctx, nil); err != nil {
		t.Fatalf("SyncOnlineStatus(nil) error = %v", err)
	}
	b, _ = repo.GetByID(ctx, bob.ID)
	if b.Status != models.UserStatusOffline {
		t.Errorf("bob status = %s, want OFFLINE", b.Status)
	}
}

func TestRoomAndMemberRepositories(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	rooms := NewRoomRepository(db)
	members := NewMemberRepository(db)

	owner := createUser(t, users, "owner")
	guest := createUser(t, users, "guest")
	other := createUser(t, users, "other")

	room := &models.ChatRoom{Name: "general", CreatedBy: owner.ID}
	if err := rooms.CreateWithOwner(ctx, room, []string{guest.ID, owner.ID}); err != nil {
		t.Fatalf("CreateWithOwner() error = %v", err)
	}
	if room.Type != models.RoomTypeGroup {
		t.Errorf("Type = %q, want GROUP", room.Type)
	}

	count, err := members.CountByRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("CountByRoom() error = %v", err)
	}
	if count != 2 {
		t.Errorf("member count = %d, want 2", count)
	}

	list, err := members.ListByRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("ListByRoom() error = %v", err)
	}
	roles := map[string]string{}
	for _, m := range list {
		roles[m.Username] = m.Role
	}
	if roles["owner"] != models.RoleOwner || roles["guest"] != models.RoleMember {
		t.Errorf("roles = %v", roles)
	}

	if _, err := members.Add(ctx, room.ID, guest.ID, ""); !errors.Is(err, ErrDuplicateMember) {
		t.Errorf("Add(duplicate) error = %v, want ErrDuplicateMember", err)
	}
	if _, err := members.Add(ctx, room.ID, other.ID, ""); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	ok, err := members.Exists(ctx, room.ID, other.ID)
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v; want true", ok, err)
	}

	if err := members.Remove(ctx, room.ID, other.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	ok, _ = members.Exists(ctx, room.ID, other.ID)
	if ok {
		t.Error("Exists() after Remove = true")
	}

	otherRooms, err := rooms.ListByUser(ctx, other.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(otherRooms) != 0 {
		t.Errorf("ListByUser(other) = %d rooms, want 0", len(otherRooms))
	}

	if err := rooms.Delete(ctx, room.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	count, _ = members.CountByRoom(ctx, room.ID)
	if count != 0 {
		t.Errorf("members after room delete = %d, want 0", count)
	}
}

func TestMessageRepository_Paging(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	rooms := NewRoomRepository(db)
	messages := NewMessageRepository(db)

	sender := createUser(t, users, "sender")
	room := &models.ChatRoom{Name: "history", CreatedBy: sender.ID}
	if err := rooms.CreateWithOwner(ctx, room, nil); err != nil {
		t.Fatalf("CreateWithOwner() error = %v", err)
	}

	var ids []string
	for i := 0; i < 5; i++ {
		m, err := messages.Save(ctx, room.ID, sender.ID, string(rune('a'+i)), "")
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if m.MessageType != models.MessageTypeText {
			t.Errorf("MessageType = %q, want TEXT", m.MessageType)
		}
		ids = append(ids, m.ID)
	}

	page, err := messages.ListByRoom(ctx, room.ID, "", 2)
	if err != nil {
		t.Fatalf("ListByRoom() error = %v", err)
	}
	if len(page) != 2 || page[0].ID != ids[4] || page[1].ID != ids[3] {
		t.Fatalf("first page = %+v", page)
	}

	page, err = messages.ListByRoom(ctx, room.ID, ids[3], 10)
	if err != nil {
		t.Fatalf("ListByRoom(cursor) error = %v", err)
	}
	if len(page) != 3 || page[0].ID != ids[2] {
		t.Fatalf("cursor page = %+v", page)
	}

	if err := messages.SoftDelete(ctx, ids[2]); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}
	if err := messages.SoftDelete(ctx, ids[2]); err == nil {
		t.Error("second SoftDelete() should fail")
	}
	page, _ = messages.ListByRoom(ctx, room.ID, ids[3], 10)
	if len(page) != 2 {
		t.Errorf("page after delete = %d messages, want 2", len(page))
	}

	deleted, err := messages.GetByID(ctx, ids[2])
	if err != nil || deleted == nil || deleted.DeletedAt == nil {
		t.Fatalf("GetByID(deleted) = %+v, %v", deleted, err)
	}

	purged, err := messages.PurgeDeleted(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PurgeDeleted() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
	gone, _ := messages.GetByID(ctx, ids[2])
	if gone != nil {
		t.Error("purged message still present")
	}
}
