package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/roomchat/backend/internal/storage/models"
)

type memoryUsers struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	nextN int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: make(map[string]*models.User)}
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id], nil
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memoryUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextN++
	user.ID = fmt.Sprintf("user-%d", m.nextN)
	m.byID[user.ID] = user
	return nil
}

func TestService_DevLoginAndRefresh(t *testing.T) {
	ctx := context.Background()
	users := newMemoryUsers()
	svc := NewService(NewTokenManager(testConfig()), users, nil)

	pair, err := svc.DevLogin(ctx, "  Alice ", "Alice Liddell")
	if err != nil {
		t.Fatalf("DevLogin() error = %v", err)
	}
	if pair.User.Username != "alice" || pair.User.DisplayName != "Alice Liddell" {
		t.Errorf("user = %+v", pair.User)
	}
	if pair.TokenType != "Bearer" || pair.ExpiresIn != 900 {
		t.Errorf("pair = %+v", pair)
	}

	again, err := svc.DevLogin(ctx, "alice", "")
	if err != nil {
		t.Fatalf("second DevLogin() error = %v", err)
	}
	if again.User.ID != pair.User.ID {
		t.Errorf("DevLogin created a second user: %s vs %s", again.User.ID, pair.User.ID)
	}

	me, err := svc.CurrentUser(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if me.ID != pair.User.ID {
		t.Errorf("CurrentUser() = %s, want %s", me.ID, pair.User.ID)
	}

	refreshed, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if refreshed.User.ID != pair.User.ID {
		t.Errorf("Refresh() user = %s", refreshed.User.ID)
	}

	if _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Refresh(access token) error = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.CurrentUser(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("CurrentUser(refresh token) error = %v, want ErrInvalidToken", err)
	}
}

func TestService_Errors(t *testing.T) {
	ctx := context.Background()
	manager := NewTokenManager(testConfig())
	svc := NewService(manager, newMemoryUsers(), nil)

	if _, err := svc.DevLogin(ctx, "   ", ""); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("DevLogin(blank) error = %v, want ErrInvalidUsername", err)
	}

	orphan, err := manager.GenerateAccessToken("ghost", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if _, err := svc.CurrentUser(ctx, orphan); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("CurrentUser(orphan) error = %v, want ErrUserNotFound", err)
	}
}
