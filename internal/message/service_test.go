package message

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/roomchat/backend/internal/storage"
	"github.com/roomchat/backend/internal/storage/models"
	"github.com/roomchat/backend/internal/storage/storagetest"
	"github.com/roomchat/backend/internal/websocket"
)

type recordingPublisher struct {
	mu        sync.Mutex
	published []*models.Message
}

func (p *recordingPublisher) BroadcastChat(msg *models.Message, _ *websocket.SenderInfo) websocket.PublishResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, msg)
	return websocket.PublishResult{Delivered: 1}
}

type fixture struct {
	svc   *Service
	pub   *recordingPublisher
	room  string
	alice *models.User
	bob   *models.User
	eve   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := storagetest.NewDB(t)

	alice := storagetest.CreateUser(t, db, "alice")
	bob := storagetest.CreateUser(t, db, "bob")
	eve := storagetest.CreateUser(t, db, "eve")

	room := &models.ChatRoom{Name: "general", CreatedBy: alice.ID}
	if err := storage.NewRoomRepository(db).CreateWithOwner(ctx, room, []string{bob.ID}); err != nil {
		t.Fatalf("CreateWithOwner() error = %v", err)
	}

	pub := &recordingPublisher{}
	svc := NewService(
		storage.NewMessageRepository(db),
		memberChecker{storage.NewMemberRepository(db)},
		storage.NewUserRepository(db),
		pub,
		nil,
	)
	return &fixture{svc: svc, pub: pub, room: room.ID, alice: alice, bob: bob, eve: eve}
}

type memberChecker struct{ repo *storage.MemberRepository }

func (m memberChecker) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	return m.repo.Exists(ctx, roomID, userID)
}

func TestService_SendPersistsThenPublishes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	view, err := f.svc.Send(ctx, f.room, f.alice.ID, "hello", "")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if view.ID == "" || view.MessageType != models.MessageTypeText {
		t.Errorf("Send() = %+v", view)
	}
	if view.Sender == nil || view.Sender.DisplayName != "User alice" {
		t.Errorf("Sender = %+v", view.Sender)
	}

	if len(f.pub.published) != 1 || f.pub.published[0].ID != view.ID {
		t.Fatalf("published = %+v", f.pub.published)
	}
}

func TestService_SendRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name    string
		user    string
		content string
		kind    string
		want    error
	}{
		{"non member", f.eve.ID, "hi", "", ErrNotMember},
		{"blank content", f.alice.ID, " \n", "", ErrEmptyContent},
		{"unknown kind", f.alice.ID, "hi", "VIDEO", ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Send(ctx, f.room, tt.user, tt.content, tt.kind); !errors.Is(err, tt.want) {
				t.Errorf("Send() error = %v, want %v", err, tt.want)
			}
		})
	}
	if len(f.pub.published) != 0 {
		t.Errorf("rejected sends published %d messages", len(f.pub.published))
	}
}

func TestService_HistoryPaging(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 1; i <= 5; i++ {
		if _, err := f.svc.Send(ctx, f.room, f.bob.ID, fmt.Sprintf("m%d", i), ""); err != nil {
			t.Fatal(err)
		}
	}

	page, err := f.svc.History(ctx, f.room, f.alice.ID, "", 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if got := contents(page); got != "[m4 m5]" {
		t.Errorf("first page = %s", got)
	}
	if !page.HasMore || page.NextCursor != page.Messages[0].ID {
		t.Errorf("hasMore = %v, nextCursor = %q", page.HasMore, page.NextCursor)
	}
	if page.Messages[0].Sender == nil || page.Messages[0].Sender.ID != f.bob.ID {
		t.Errorf("sender = %+v", page.Messages[0].Sender)
	}

	page, err = f.svc.History(ctx, f.room, f.alice.ID, page.NextCursor, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := contents(page); got != "[m2 m3]" {
		t.Errorf("second page = %s", got)
	}

	page, err = f.svc.History(ctx, f.room, f.alice.ID, page.NextCursor, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := contents(page); got != "[m1]" || page.HasMore || page.NextCursor != "" {
		t.Errorf("last page = %s hasMore=%v cursor=%q", got, page.HasMore, page.NextCursor)
	}

	if _, err := f.svc.History(ctx, f.room, f.eve.ID, "", 0); !errors.Is(err, ErrNotMember) {
		t.Errorf("History() by non-member error = %v", err)
	}
}

func TestService_HistoryEmptyRoom(t *testing.T) {
	f := newFixture(t)

	page, err := f.svc.History(context.Background(), f.room, f.alice.ID, "", 500)
	if err != nil {
		t.Fatal(err)
	}
	if page.Messages == nil || len(page.Messages) != 0 || page.HasMore {
		t.Errorf("History() = %+v", page)
	}
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	view, err := f.svc.Send(ctx, f.room, f.bob.ID, "oops", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Delete(ctx, view.ID, f.alice.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete() by other user error = %v", err)
	}
	if err := f.svc.Delete(ctx, view.ID, f.bob.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := f.svc.Delete(ctx, view.ID, f.bob.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
	if err := f.svc.Delete(ctx, "missing", f.bob.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("Delete(missing) error = %v", err)
	}

	page, err := f.svc.History(ctx, f.room, f.bob.ID, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Messages) != 0 {
		t.Errorf("deleted message still listed: %s", contents(page))
	}
}

func contents(p *Page) string {
	out := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		out = append(out, m.Content)
	}
	return fmt.Sprint(out)
}
