package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a zerolog.Logger configured for the application environment.
// A non-empty level overrides the environment default.
func New(env, level string) zerolog.Logger {
	return newWithWriter(defaultWriter(), env, level)
}

func newWithWriter(w io.Writer, env, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(w).
		Level(parseLevel(env, level)).
		With().
		Timestamp().
		Str("service", "user").
		Logger()
}

func defaultWriter() io.Writer {
	return os.Stdout
}

func parseLevel(env, level string) zerolog.Level {
	if level != "" {
		if lvl, err := zerolog.ParseLevel(level); err == nil && lvl != zerolog.NoLevel {
			return lvl
		}
	}
	switch env {
	case "production":
		return zerolog.InfoLevel
	case "staging":
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
