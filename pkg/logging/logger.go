// Package logging configures the zerolog logger shared by the catalog client.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs page loads, partition changes and trigger firings.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs mode switches and exhaustion.
	LevelInfo LogLevel = "info"

	// LevelWarn logs retries and throttling.
	LevelWarn LogLevel = "warn"

	// LevelError logs failed loads.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ParseLevel validates a level name. "warning" is accepted for warn.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(zerologLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a logger tagged with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug:
//   - Page loaded / partition exhausted / stale completion discarded
//   - Trigger fired while a load was in flight
//   - Rate limit state updates
//
// Info:
//   - Controller initialized, mode switched
//   - Search returned no results
//   - Partition sequence exhausted
//
// Warn:
//   - Retry attempts
//   - Throttling active
//   - Shared rate limit state unreadable (request proceeds)
//
// Error:
//   - Page load failed after retries
//   - Critical rate limit blocks
//
// Context Fields:
//   - component: pagination, client, ratelimit, trigger, tui
//   - mode: sequential, search
//   - partition, page, total_pages, accumulated
//   - generation: controller state generation
//   - filters: search filters in query syntax
//   - endpoint, status_code, error_class
