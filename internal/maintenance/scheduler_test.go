package maintenance

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/roomchat/backend/internal/websocket"
)

type fakeUsers struct {
	online []string
	err    error
}

func (f *fakeUsers) SyncOnlineStatus(_ context.Context, ids []string) (int64, error) {
	f.online = append([]string(nil), ids...)
	return int64(len(ids)), f.err
}

type fakePurger struct {
	before time.Time
}

func (f *fakePurger) PurgeDeleted(_ context.Context, before time.Time) (int64, error) {
	f.before = before
	return 3, nil
}

func newTestScheduler(users UserStatusStore, purger MessagePurger, buf *bytes.Buffer) (*Scheduler, *websocket.Registry) {
	logger := slog.New(slog.NewTextHandler(buf, nil))
	registry := websocket.NewRegistry()
	s := NewScheduler(
		Options{Retention: 24 * time.Hour},
		users,
		purger,
		websocket.NewHub(8, nil, logger),
		registry,
		websocket.NewPresence(),
		logger,
	)
	return s, registry
}

func TestScheduler_SyncUserStatus(t *testing.T) {
	var buf bytes.Buffer
	users := &fakeUsers{}
	s, registry := newTestScheduler(users, &fakePurger{}, &buf)

	registry.Register("c1", &websocket.Identity{UserID: "u1"})
	registry.Register("c2", &websocket.Identity{UserID: "u1"})
	registry.Register("c3", &websocket.Identity{UserID: "u2"})
	registry.Register("c4", nil)

	s.SyncUserStatus(context.Background())

	sort.Strings(users.online)
	if strings.Join(users.online, ",") != "u1,u2" {
		t.Errorf("online = %v", users.online)
	}

	users.err = errors.New("db locked")
	s.SyncUserStatus(context.Background())
	if !strings.Contains(buf.String(), "db locked") {
		t.Errorf("error not logged: %s", buf.String())
	}
}

func TestScheduler_PurgeUsesRetention(t *testing.T) {
	var buf bytes.Buffer
	purger := &fakePurger{}
	s, _ := newTestScheduler(&fakeUsers{}, purger, &buf)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.PurgeDeletedMessages(context.Background())

	if want := now.Add(-24 * time.Hour); !purger.before.Equal(want) {
		t.Errorf("before = %v, want %v", purger.before, want)
	}
	if !strings.Contains(buf.String(), "count=3") {
		t.Errorf("purge not logged: %s", buf.String())
	}
}

func TestScheduler_StartStop(t *testing.T) {
	var buf bytes.Buffer
	s, _ := newTestScheduler(&fakeUsers{}, &fakePurger{}, &buf)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if n := len(s.cron.Entries()); n != 3 {
		t.Errorf("scheduled %d jobs, want 3", n)
	}
	s.Stop()

	s.LogMetrics()
	if !strings.Contains(buf.String(), "hub metrics") {
		t.Errorf("metrics not logged: %s", buf.String())
	}
}
