package logger

import (
	"io"
	"log/slog"
	"os"
)

// Config controls the logger factory.
type Config struct {
	// Debug lowers the level to slog.LevelDebug and enables verbose
	// collaborator logging throughout the library.
	Debug bool `env:"LOG_DEBUG" envDefault:"false"`
	// JSON switches output from human-readable text to JSON.
	JSON bool `env:"LOG_JSON" envDefault:"false"`
}

// New returns a logger writing to stderr according to cfg.
func New(cfg Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops all records. It is the default for
// components that take an optional logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
