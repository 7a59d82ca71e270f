// Package logging builds the slog loggers used by parley commands.
package logging

import (
	"fmt"
	"io"
	"log/slog"
)

// Config selects the log level and output format.
type Config struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn or error (default info)
	Format string `yaml:"format,omitempty"` // text or json (default text)
}

// Validate checks level and format.
func (c Config) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", c.Format)
	}
}

// New creates a logger writing to w.
func New(cfg Config, w io.Writer) (*slog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn' or 'error')", s)
	}
}
