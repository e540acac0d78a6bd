// Package logging builds the zerolog loggers shared by the CLI, the MCP server
// and the pipeline.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvLevel is the environment variable consulted when no explicit level is given.
const EnvLevel = "COLOR_DETECT_LOG_LEVEL"

// ParseLevel maps a level name to a zerolog level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New returns a JSON logger writing to w at the given level.
func New(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// NewConsole returns a human readable logger on stderr, used by the CLI.
func NewConsole(level string) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// LevelFromEnv returns the level named in COLOR_DETECT_LOG_LEVEL, or fallback.
func LevelFromEnv(fallback string) string {
	if v := os.Getenv(EnvLevel); v != "" {
		return v
	}
	return fallback
}
