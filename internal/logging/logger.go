// Package logging provides a small structured logger used across the
// orchestration kernel, wrapping log/slog behind a narrow interface so
// call sites never depend on slog directly.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const levelEnvVar = "TEAMKIT_LOG_LEVEL"

var (
	once    sync.Once
	handler slog.Handler
)

func baseHandler() slog.Handler {
	once.Do(func() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: resolveLevel(),
		})
	})
	return handler
}

func resolveLevel() slog.Level {
	switch strings.ToUpper(strings.TrimSpace(os.Getenv(levelEnvVar))) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ComponentLogger is a named logger for one component (a store, the
// scheduler, one agent runner).
type ComponentLogger struct {
	log *slog.Logger
}

// NewComponentLogger builds a logger tagged with the given component name.
func NewComponentLogger(name string) *ComponentLogger {
	return &ComponentLogger{log: slog.New(baseHandler()).With("component", name)}
}

func (c *ComponentLogger) Debug(msg string, args ...any) { c.log.Debug(msg, args...) }
func (c *ComponentLogger) Info(msg string, args ...any)  { c.log.Info(msg, args...) }
func (c *ComponentLogger) Warn(msg string, args ...any)  { c.log.Warn(msg, args...) }
func (c *ComponentLogger) Error(format string, args ...any) {
	// matches the async.PanicLogger contract: a printf-style single message.
	if len(args) == 0 {
		c.log.Error(format)
		return
	}
	c.log.Error(fmt.Sprintf(format, args...))
}
