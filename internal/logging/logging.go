// Package logging builds the zerolog loggers used across triplemap.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // console output for terminals
	Output     io.Writer
	WithCaller bool
}

// ConfigFromEnv reads LOG_LEVEL and LOG_PRETTY.
func ConfigFromEnv() Config {
	pretty := strings.ToLower(os.Getenv("LOG_PRETTY"))
	return Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Pretty: pretty == "1" || pretty == "true",
	}
}

// ParseLevel maps a level name onto zerolog, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return zerolog.TraceLevel
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

// New creates a structured logger. Output defaults to stderr because stdout
// carries the MCP stdio transport.
func New(cfg Config) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "triplemap").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}
	return zlog
}

// Init builds a logger and installs it as the zerolog global.
func Init(cfg Config) zerolog.Logger {
	l := New(cfg)
	log.Logger = l
	return l
}

// Component returns a child logger tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// LogToolCall logs a finished MCP tool call.
func LogToolCall(l zerolog.Logger, tool string, duration time.Duration, err error) {
	if err != nil {
		l.Error().
			Str("component", "mcp").
			Str("tool", tool).
			Dur("duration_ms", duration).
			Err(err).
			Msg("tool call failed")
		return
	}
	l.Debug().
		Str("component", "mcp").
		Str("tool", tool).
		Dur("duration_ms", duration).
		Msg("tool call completed")
}
