package config

import (
	"io"
	"log/slog"
	"strings"
)

// Logger returns the process logger: JSON lines outside dev, text in dev,
// at the level named by LOG_LEVEL (debug, info, warn, error).
func (c Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.IsDev() {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
