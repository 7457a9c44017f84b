// Package telemetry constructs the single process-wide zerolog.Logger
// used throughout covfuzz (SPEC_FULL.md §10), grounded on the retrieval
// pack's jhkimqd-chaos-utils repository (pkg/reporting/logger.go):
// JSON when Format is json or empty, a zerolog.ConsoleWriter when it is
// text (covfuzz's default, --log-format text), level controlled by
// --log-level.
package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the wire shape of log lines.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config configures the logger New builds.
type Config struct {
	Format Format
	Level  string // "debug", "info", "warn", "error"
	Output io.Writer
}

// New builds a zerolog.Logger per cfg. An unrecognized Level falls
// back to info, matching the teacher's logger construction.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var w io.Writer = out
	if cfg.Format == FormatText {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: false}
	}

	logger := zerolog.New(w).With().Timestamp().Logger()

	switch cfg.Level {
	case "debug":
		logger = logger.Level(zerolog.DebugLevel)
	case "warn":
		logger = logger.Level(zerolog.WarnLevel)
	case "error":
		logger = logger.Level(zerolog.ErrorLevel)
	default:
		logger = logger.Level(zerolog.InfoLevel)
	}

	return logger
}
