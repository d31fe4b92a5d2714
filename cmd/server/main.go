// Package main is the entry point for the realtime chat server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/roomchat/backend/internal/api"
	"github.com/roomchat/backend/internal/api/handlers"
	"github.com/roomchat/backend/internal/auth"
	"github.com/roomchat/backend/internal/avatar"
	"github.com/roomchat/backend/internal/cache"
	"github.com/roomchat/backend/internal/config"
	"github.com/roomchat/backend/internal/invite"
	"github.com/roomchat/backend/internal/maintenance"
	"github.com/roomchat/backend/internal/message"
	"github.com/roomchat/backend/internal/room"
	"github.com/roomchat/backend/internal/storage"
	"github.com/roomchat/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	cfg := config.Load()

	addr := flag.String("addr", cfg.Addr, "HTTP server address")
	dataDir := flag.String("data", cfg.DataDir, "Data directory for SQLite database")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg.Addr = *addr
	cfg.DataDir = *dataDir

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}
	logger.Info("starting chat server", "version", version, "devMode", cfg.DevMode)

	// Initialize database
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory %q: %w", cfg.DataDir, err)
	}
	db, err := storage.NewDB(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := storage.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Invite and avatar caches
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	inviteCache := cache.NewRedis(redisClient, invite.KeyPrefix)
	avatarCache := cache.NewRedis(redisClient, avatar.KeyPrefix)
	if err := inviteCache.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, invites unavailable until it recovers", "addr", cfg.RedisAddr, "error", err)
	}

	// Realtime core
	hub := websocket.NewHub(cfg.SendBuffer, websocket.NewMetrics(), logger)
	registry := websocket.NewRegistry()
	presence := websocket.NewPresence()
	events := websocket.NewEventBroadcaster(hub)

	// Repositories
	userRepo := storage.NewUserRepository(db)
	roomRepo := storage.NewRoomRepository(db)
	memberRepo := storage.NewMemberRepository(db)
	messageRepo := storage.NewMessageRepository(db)

	// Services
	tokens := auth.NewTokenManager(auth.TokenConfig{
		SecretKey:            cfg.JWTSecret,
		AccessTokenDuration:  cfg.AccessTokenTTL,
		RefreshTokenDuration: cfg.RefreshTokenTTL,
		Issuer:               cfg.JWTIssuer,
	})
	authService := auth.NewService(tokens, userRepo, logger)
	roomService := room.NewService(roomRepo, memberRepo, userRepo, logger)
	messageService := message.NewService(messageRepo, roomService, userRepo, events, logger)
	inviteService := invite.NewService(inviteCache, roomService, cfg.FrontendURL, cfg.InviteTTL, logger)
	avatarService := avatar.NewService(avatarCache, userRepo, avatar.DefaultTTL, logger)

	resolver := websocket.NewResolver(tokens, userRepo, cfg.DevMode, logger)

	scheduler := maintenance.NewScheduler(maintenance.Options{
		Retention: cfg.MessageRetention,
	}, userRepo, messageRepo, hub, registry, presence, logger)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start maintenance scheduler: %w", err)
	}

	router := api.NewRouter(api.Services{
		DB:       db,
		Cache:    handlers.PingFunc(inviteCache.Ping),
		Tokens:   tokens,
		Auth:     authService,
		Users:    userRepo,
		Rooms:    roomService,
		Messages: messageService,
		Invites:  inviteService,
		Avatars:  avatarService,
		Hub:      hub,
		Registry: registry,
		Presence: presence,
		Resolver: resolver,
		Session: websocket.SessionDeps{
			Registry: registry,
			Presence: presence,
			Hub:      hub,
			Events:   events,
			Store:    messageRepo,
			Logger:   logger,
		},
		SessionConfig: websocket.SessionConfig{
			WriteWait:       cfg.WriteWait,
			PongWait:        cfg.PongWait,
			PingPeriod:      cfg.PingPeriod,
			MaxMessageBytes: cfg.MaxMessageBytes,
			DirectBuffer:    cfg.DirectBuffer,
			InboundRate:     cfg.InboundRate,
			InboundBurst:    cfg.InboundBurst,
		},
		DevMode: cfg.DevMode,
		Logger:  logger,
	})

	// WriteTimeout stays zero; websocket sessions manage their own deadlines
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		scheduler.Stop()
		hub.Close()
		return fmt.Errorf("server error: %w", err)
	}

	scheduler.Stop()
	// Closing the hub ends every websocket session so Shutdown can drain
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
