// Package config loads the server configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the runtime configuration for the chat server.
type Config struct {
	// Addr is the HTTP listen address
	Addr string

	// DataDir holds the SQLite database file
	DataDir string

	// DevMode enables the legacy userId handshake parameter and the
	// dev-login endpoint. Never enable it in production.
	DevMode bool

	LogLevel  string
	LogFormat string

	// JWT settings
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Realtime connection settings
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageBytes int64
	SendBuffer      int
	DirectBuffer    int
	InboundRate     float64
	InboundBurst    int

	// Redis settings for the invite cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	InviteTTL     time.Duration
	FrontendURL   string

	// MessageRetention is how long soft-deleted messages are kept before purge.
	MessageRetention time.Duration
}

// Load reads the configuration from the environment, applying defaults.
func Load() Config {
	return Config{
		Addr:      getEnv("CHAT_ADDR", ":8080"),
		DataDir:   getEnv("CHAT_DATA_DIR", "/data"),
		DevMode:   getEnvBool("CHAT_DEV_MODE", false),
		LogLevel:  getEnv("CHAT_LOG_LEVEL", "info"),
		LogFormat: getEnv("CHAT_LOG_FORMAT", "json"),

		JWTSecret:       getEnv("CHAT_JWT_SECRET", ""),
		JWTIssuer:       getEnv("CHAT_JWT_ISSUER", "roomchat"),
		AccessTokenTTL:  getEnvDuration("CHAT_ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: getEnvDuration("CHAT_REFRESH_TOKEN_TTL", 7*24*time.Hour),

		WriteWait:       getEnvDuration("CHAT_WRITE_WAIT", 10*time.Second),
		PongWait:        getEnvDuration("CHAT_PONG_WAIT", 60*time.Second),
		PingPeriod:      getEnvDuration("CHAT_PING_PERIOD", 54*time.Second),
		MaxMessageBytes: int64(getEnvInt("CHAT_MAX_MESSAGE_BYTES", 65536)),
		SendBuffer:      getEnvInt("CHAT_SEND_BUFFER", 256),
		DirectBuffer:    getEnvInt("CHAT_DIRECT_BUFFER", 16),
		InboundRate:     getEnvFloat("CHAT_INBOUND_RATE", 20),
		InboundBurst:    getEnvInt("CHAT_INBOUND_BURST", 40),

		RedisAddr:     getEnv("CHAT_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("CHAT_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("CHAT_REDIS_DB", 0),
		InviteTTL:     getEnvDuration("CHAT_INVITE_TTL", 7*24*time.Hour),
		FrontendURL:   getEnv("CHAT_FRONTEND_URL", "http://localhost:5173"),

		MessageRetention: getEnvDuration("CHAT_MESSAGE_RETENTION", 30*24*time.Hour),
	}
}

// Validate reports configuration that the server cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" && !c.DevMode {
		errs = append(errs, errors.New("CHAT_JWT_SECRET is required outside dev mode"))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("send buffer must be positive, got %d", c.SendBuffer))
	}
	if c.DirectBuffer <= 0 {
		errs = append(errs, fmt.Errorf("direct buffer must be positive, got %d", c.DirectBuffer))
	}
	if c.MaxMessageBytes <= 0 {
		errs = append(errs, fmt.Errorf("max message bytes must be positive, got %d", c.MaxMessageBytes))
	}
	if c.PingPeriod >= c.PongWait {
		errs = append(errs, fmt.Errorf("ping period (%s) must be shorter than pong wait (%s)", c.PingPeriod, c.PongWait))
	}
	if c.InboundRate <= 0 || c.InboundBurst <= 0 {
		errs = append(errs, errors.New("inbound rate and burst must be positive"))
	}

	return errors.Join(errs...)
}

// DatabasePath returns the SQLite file inside the data directory.
func (c Config) DatabasePath() string {
	return strings.TrimRight(c.DataDir, "/") + "/roomchat.db"
}

// NewLogger builds the process logger from the configured level and format.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.EqualFold(c.LogFormat, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getEnv returns an environment variable value or a default if not set.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return fallback
}
