// Package logging provides the engine's shared structured logger.
//
// It wraps the standard library's log/slog and gives every package a
// logger tagged with its own component name, so background-worker activity
// (a watcher falling back to polling, a per-entry stat failure, a decode
// failure) can be filtered by subsystem instead of grepping bare fmt.Println
// output. The level is controlled by the NEXUSFS_LOG_LEVEL environment
// variable (debug, info, warn, error; defaults to info).
package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	initLogger sync.Once
	baseLogger *slog.Logger
)

// New returns a structured logger scoped to component, added as a
// "component" attribute on every entry it produces. All output goes to
// stderr so it never mixes into a consumer's own stdout.
func New(component string) *slog.Logger {
	initLogger.Do(func() {
		baseLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: parseLevel(os.Getenv("NEXUSFS_LOG_LEVEL")),
		}))
	})
	if component == "" {
		return baseLogger
	}
	return baseLogger.With("component", component)
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
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
