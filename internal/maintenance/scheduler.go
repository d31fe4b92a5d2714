// Package maintenance runs the periodic housekeeping jobs.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/roomchat/backend/internal/websocket"
)

// UserStatusStore persists who is online.
type UserStatusStore interface {
	SyncOnlineStatus(ctx context.Context, onlineIDs []string) (int64, error)
}

// MessagePurger hard-deletes soft-deleted messages.
type MessagePurger interface {
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
}

// Options controls job intervals and message retention.
type Options struct {
	StatusInterval  time.Duration
	PurgeInterval   time.Duration
	MetricsInterval time.Duration

	// Retention is how long soft-deleted messages are kept.
	Retention time.Duration
}

// DefaultOptions returns the standard schedule.
func DefaultOptions() Options {
	return Options{
		StatusInterval:  time.Minute,
		PurgeInterval:   time.Hour,
		MetricsInterval: 5 * time.Minute,
		Retention:       30 * 24 * time.Hour,
	}
}

// Scheduler runs user status sync, message purging and metrics logging.
type Scheduler struct {
	cron     *cron.Cron
	opts     Options
	users    UserStatusStore
	messages MessagePurger
	hub      *websocket.Hub
	registry *websocket.Registry
	presence *websocket.Presence
	logger   *slog.Logger

	now func() time.Time
}

// NewScheduler creates a maintenance scheduler. Zero option fields take
// their defaults.
func NewScheduler(
	opts Options,
	users UserStatusStore,
	messages MessagePurger,
	hub *websocket.Hub,
	registry *websocket.Registry,
	presence *websocket.Presence,
	logger *slog.Logger,
) *Scheduler {
	defaults := DefaultOptions()
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = defaults.StatusInterval
	}
	if opts.PurgeInterval <= 0 {
		opts.PurgeInterval = defaults.PurgeInterval
	}
	if opts.MetricsInterval <= 0 {
		opts.MetricsInterval = defaults.MetricsInterval
	}
	if opts.Retention <= 0 {
		opts.Retention = defaults.Retention
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		opts:     opts,
		users:    users,
		messages: messages,
		hub:      hub,
		registry: registry,
		presence: presence,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting maintenance scheduler")

	jobs := []struct {
		every time.Duration
		run   func()
	}{
		{s.opts.StatusInterval, func() { s.SyncUserStatus(context.Background()) }},
		{s.opts.PurgeInterval, func() { s.PurgeDeletedMessages(context.Background()) }},
		{s.opts.MetricsInterval, s.LogMetrics},
	}
	for _, job := range jobs {
		if _, err := s.cron.AddFunc("@every "+job.every.String(), job.run); err != nil {
			return fmt.Errorf("scheduling job: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("maintenance scheduler started", "jobs", len(jobs))
	return nil
}

// Stop waits for running jobs and stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping maintenance scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("maintenance scheduler stopped")
}

// SyncUserStatus marks users with a live connection ONLINE and everyone
// else OFFLINE.
func (s *Scheduler) SyncUserStatus(ctx context.Context) {
	online := s.registry.OnlineUserIDs()
	changed, err := s.users.SyncOnlineStatus(ctx, online)
	if err != nil {
		s.logger.Error("syncing user status", "error", err)
		return
	}
	if changed > 0 {
		s.logger.Info("user status synced", "online", len(online), "changed", changed)
	}
}

// PurgeDeletedMessages removes messages soft-deleted before the
// retention window.
func (s *Scheduler) PurgeDeletedMessages(ctx context.Context) {
	before := s.now().Add(-s.opts.Retention)
	n, err := s.messages.PurgeDeleted(ctx, before)
	if err != nil {
		s.logger.Error("purging deleted messages", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("purged deleted messages", "count", n, "before", before)
	}
}

// LogMetrics writes a hub activity summary.
func (s *Scheduler) LogMetrics() {
	m := s.hub.Metrics().Snapshot()
	s.logger.Info("hub metrics",
		"connected", m.ConnectedClients,
		"subscribers", s.hub.SubscriberCount(),
		"active_rooms", s.presence.RoomCount(),
		"messages_in", m.MessagesIn,
		"messages_out", m.MessagesOut,
		"published", m.Published,
		"dropped", m.DroppedOnFull,
		"persist_failures", m.PersistFailure,
	)
}
