package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DataRoot       string
	Folder         string
	MinAnimation   time.Duration
	BridgeTimeout  time.Duration
	BackendLatency time.Duration
	MaxSessions    int
	LogLevel       slog.Level
	LogFormat      string
}

func Load() (Config, error) {
	c := Config{
		DataRoot:      envOr("DATA_ROOT", "gacha_data"),
		Folder:        envOr("GACHA_FOLDER", "gacha1"),
		MinAnimation:  2 * time.Second,
		BridgeTimeout: 30 * time.Second,
		MaxSessions:   100,
		LogFormat:     strings.ToLower(envOr("LOG_FORMAT", "text")),
	}

	durations := []struct {
		key      string
		dst      *time.Duration
		positive bool
	}{
		{"GACHA_MIN_ANIMATION", &c.MinAnimation, true},
		{"GACHA_BRIDGE_TIMEOUT", &c.BridgeTimeout, true},
		{"GACHA_BACKEND_LATENCY", &c.BackendLatency, false},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", d.key, v, err)
		}
		if d.positive && parsed == 0 {
			return Config{}, fmt.Errorf("invalid %s %q: must be positive", d.key, v)
		}
		if parsed < 0 {
			return Config{}, fmt.Errorf("invalid %s %q: must not be negative", d.key, v)
		}
		*d.dst = parsed
	}

	if v := os.Getenv("GACHA_MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid GACHA_MAX_SESSIONS %q: must be a positive integer", v)
		}
		c.MaxSessions = n
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	c.LogLevel = level

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return Config{}, fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}

	return c, nil
}

// Logger builds the slog logger described by the config
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
}
