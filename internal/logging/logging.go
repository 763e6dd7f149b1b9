// Package logging builds the zerolog logger shared by the audit stages.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w. Format "json" emits one JSON object per
// line; anything else uses zerolog's console writer.
func New(w io.Writer, level, format string) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if strings.ToLower(format) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Stage derives a logger tagged with a pipeline stage name.
func Stage(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("stage", name).Logger()
}
