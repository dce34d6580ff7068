package slogx

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config describes the process logger. Every line carries service, version
// and env; instance tells apart gate replicas sharing one state store.
type Config struct {
	Service  string
	Version  string
	Env      string // dev adds source locations
	Instance string // defaults to the hostname
	Level    string // debug, info, warn, error
	Format   string // json, text
	Output   io.Writer
}

// New builds the logger described by cfg and installs it as slog's default.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	instance := cfg.Instance
	if instance == "" {
		instance, _ = os.Hostname()
	}

	opts := &slog.HandlerOptions{
		AddSource: cfg.Env == "dev",
		Level:     parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler).With(
		"service", cfg.Service,
		"version", cfg.Version,
		"env", cfg.Env,
		"instance", instance,
	)

	slog.SetDefault(logger)
	return logger
}

func parseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
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
