package websocket

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/roomchat/backend/internal/storage/models"
	"golang.org/x/time/rate"
)

// Conn is the transport a session runs on. *gorilla.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// MessageStore persists chat messages before they are broadcast.
type MessageStore interface {
	Save(ctx context.Context, roomID, senderID, content, kind string) (*models.Message, error)
}

// SessionConfig holds the per-connection transport limits.
type SessionConfig struct {
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageBytes int64
	DirectBuffer    int

	// InboundRate is frames per second; zero disables throttling.
	InboundRate  float64
	InboundBurst int
}

// DefaultSessionConfig returns the limits used when none are configured.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		PingPeriod:      30 * time.Second,
		MaxMessageBytes: 65536,
		DirectBuffer:    16,
		InboundRate:     20,
		InboundBurst:    40,
	}
}

// SessionDeps are the shared components every session uses.
type SessionDeps struct {
	Registry *Registry
	Presence *Presence
	Hub      *Hub
	Events   *EventBroadcaster
	Store    MessageStore
	Logger   *slog.Logger
}

// Session drives one connection: a read loop dispatching inbound
// envelopes and a write loop forwarding the room events the connection
// is present in.
type Session struct {
	id       string
	conn     Conn
	identity *Identity
	cfg      SessionConfig

	registry *Registry
	presence *Presence
	hub      *Hub
	events   *EventBroadcaster
	store    MessageStore
	metrics  *Metrics
	logger   *slog.Logger

	limiter *rate.Limiter
	sub     *Subscription
	direct  chan *Envelope

	// mu orders presence joins against cleanup: once closed is set no
	// join may add this connection back.
	mu          sync.Mutex
	closed      bool
	done        chan struct{}
	cleanupOnce sync.Once
}

// NewSession creates a session for an accepted connection. A nil identity
// makes the session anonymous.
func NewSession(conn Conn, identity *Identity, deps SessionDeps, cfg SessionConfig) *Session {
	defaults := DefaultSessionConfig()
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaults.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaults.PongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = defaults.MaxMessageBytes
	}
	if cfg.DirectBuffer <= 0 {
		cfg.DirectBuffer = defaults.DirectBuffer
	}

	limit := rate.Inf
	if cfg.InboundRate > 0 {
		limit = rate.Limit(cfg.InboundRate)
	}
	burst := cfg.InboundBurst
	if burst <= 0 {
		burst = 1
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	logger = logger.With("conn_id", id)
	if identity != nil {
		logger = logger.With("user_id", identity.UserID)
	}

	return &Session{
		id:       id,
		conn:     conn,
		identity: identity,
		cfg:      cfg,
		registry: deps.Registry,
		presence: deps.Presence,
		hub:      deps.Hub,
		events:   deps.Events,
		store:    deps.Store,
		metrics:  deps.Hub.Metrics(),
		logger:   logger,
		limiter:  rate.NewLimiter(limit, burst),
		direct:   make(chan *Envelope, cfg.DirectBuffer),
		done:     make(chan struct{}),
	}
}

// ID returns the connection identifier.
func (s *Session) ID() string {
	return s.id
}

// Serve runs the session until the transport closes or ctx is cancelled.
// It returns after both loops have stopped and cleanup has run.
func (s *Session) Serve(ctx context.Context) {
	s.registry.Register(s.id, s.identity)
	s.sub = s.hub.Subscribe()
	s.metrics.TotalConnections.Add(1)
	s.metrics.ConnectedClients.Add(1)
	s.logger.Info("websocket client connected", "authenticated", s.identity != nil)

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		s.writeLoop(ctx)
	}()

	s.readLoop(ctx)
	<-writeDone
}

// cleanup tears the connection down. Both loops call it; only the first
// call has any effect.
func (s *Session) cleanup() {
	s.cleanupOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.done)
		s.mu.Unlock()

		s.registry.Unregister(s.id)
		rooms := s.presence.RemoveConnection(s.id)
		s.hub.Unsubscribe(s.sub)
		s.conn.Close()

		s.metrics.ConnectedClients.Add(-1)
		s.metrics.TotalDisconnects.Add(1)
		s.logger.Info("websocket client disconnected",
			"rooms", len(rooms),
			"dropped", s.sub.Dropped(),
		)
	})
}

func (s *Session) readLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in websocket read loop", "panic", r, "stack", string(debug.Stack()))
		}
		s.cleanup()
	}()

	s.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseGoingAway, gorilla.CloseNormalClosure, gorilla.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		s.metrics.MessagesIn.Add(1)

		if !s.limiter.Allow() {
			s.metrics.RateLimitedIn.Add(1)
			s.sendError(ErrCodeRateLimited, "too many messages")
			continue
		}

		s.handleFrame(ctx, data)
	}
}

func (s *Session) handleFrame(ctx context.Context, data []byte) {
	select {
	case <-s.done:
		return
	default:
	}

	env, err := DecodeEnvelope(data)
	if err != nil {
		s.metrics.MalformedIn.Add(1)
		s.logger.Debug("dropping malformed frame", "error", err)
		s.sendError(ErrCodeInvalidMessage, "message could not be decoded")
		return
	}

	if env.RoomID == "" {
		s.logger.Debug("dropping frame without room", "type", env.Type)
		s.sendError(ErrCodeMissingRoom, "roomId is required")
		return
	}

	switch env.Type {
	case TypeJoin:
		s.handleJoin(env)
	case TypeLeave:
		s.handleLeave(env)
	case TypeTyping:
		s.handleTyping(env)
	case TypeChat:
		s.handleChat(ctx, env)
	}
}

// handleJoin adds the connection to the room. Every JOIN from a resolved
// identity announces USER_JOINED, including repeats.
func (s *Session) handleJoin(env *Envelope) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.presence.Join(env.RoomID, s.id) {
		s.logger.Debug("joined room", "room_id", env.RoomID, "present", s.presence.ConnectionCount(env.RoomID))
	}
	s.mu.Unlock()

	if s.identity != nil {
		s.events.BroadcastUserJoined(env.RoomID, s.identity.Sender())
	}
}

func (s *Session) handleLeave(env *Envelope) {
	s.presence.Leave(env.RoomID, s.id)
	if s.identity != nil {
		s.events.BroadcastUserLeft(env.RoomID, s.identity.Sender())
	}
}

func (s *Session) handleTyping(env *Envelope) {
	if s.identity == nil {
		s.sendError(ErrCodeUnauthenticated, "authentication required")
		return
	}
	isTyping := env.IsTyping != nil && *env.IsTyping
	s.events.BroadcastTyping(env.RoomID, s.identity.Sender(), isTyping)
}

func (s *Session) handleChat(ctx context.Context, env *Envelope) {
	if s.identity == nil {
		s.sendError(ErrCodeUnauthenticated, "authentication required")
		return
	}
	if strings.TrimSpace(env.Content) == "" {
		s.sendError(ErrCodeEmptyContent, "content is required")
		return
	}

	msg, err := s.store.Save(ctx, env.RoomID, s.identity.UserID, env.Content, models.MessageTypeText)
	if err != nil {
		s.metrics.PersistFailure.Add(1)
		s.logger.Error("saving chat message", "room_id", env.RoomID, "error", err)
		s.sendError(ErrCodePersistFailed, "message could not be saved")
		return
	}

	s.events.BroadcastChat(msg, s.identity.Sender())
}

// sendError queues an ERROR envelope for this connection only. It never
// blocks the read loop; if the queue is full the error is dropped.
func (s *Session) sendError(code, message string) {
	select {
	case s.direct <- NewErrorEnvelope(code, message):
	default:
		s.logger.Warn("direct queue full, error reply dropped", "code", code)
	}
}

func (s *Session) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		s.cleanup()
	}()

	for {
		select {
		case env, ok := <-s.sub.C():
			if !ok {
				s.writeClose()
				return
			}
			if env.RoomID == "" || !s.presence.IsPresent(env.RoomID, s.id) {
				continue
			}
			if err := s.writeEnvelope(env); err != nil {
				return
			}

		case env := <-s.direct:
			if err := s.writeEnvelope(env); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(gorilla.PingMessage, nil); err != nil {
				return
			}

		case <-ctx.Done():
			s.writeClose()
			return

		case <-s.done:
			return
		}
	}
}

// writeEnvelope writes one envelope. An envelope that cannot be encoded
// is skipped and reported as success so the connection stays up.
func (s *Session) writeEnvelope(env *Envelope) error {
	data, err := env.JSON()
	if err != nil {
		s.metrics.EncodeFailures.Add(1)
		s.logger.Error("encoding envelope", "type", env.Type, "error", err)
		return nil
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
	if err := s.conn.WriteMessage(gorilla.TextMessage, data); err != nil {
		if !errors.Is(err, gorilla.ErrCloseSent) {
			s.logger.Debug("websocket write failed", "error", err)
		}
		return err
	}
	s.metrics.MessagesOut.Add(1)
	return nil
}

func (s *Session) writeClose() {
	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
	s.conn.WriteMessage(gorilla.CloseMessage, []byte{})
}
