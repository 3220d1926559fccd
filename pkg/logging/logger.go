// Package logging configures the zerolog global logger for streamlist.
//
// Components derive their logger from the global one and tag it:
//
//	logger := logging.NewLogger("paginator").With().Str("list", "games_top").Logger()
//
// Levels: debug for fetches issued, applied or dropped as stale and for cache
// traffic; info for retries that recovered, warm runs and server lifecycle;
// warn for failed page loads, throttling and breaker changes; error for
// blocked requests and recovered panics.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a level name as written in configuration.
type LogLevel string

const (
	LevelDebug    LogLevel = "debug"
	LevelInfo     LogLevel = "info"
	LevelWarn     LogLevel = "warn"
	LevelError    LogLevel = "error"
	LevelDisabled LogLevel = "disabled"
)

// aliases maps accepted spellings to canonical levels.
var aliases = map[string]LogLevel{
	"":        LevelInfo,
	"warning": LevelWarn,
	"off":     LevelDisabled,
}

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer

	// Service is added to every entry when set.
	Service string
}

// DefaultConfig logs JSON at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Output:  os.Stderr,
		Service: "streamlist",
	}
}

// Setup installs a logger built from cfg as the global zerolog logger and
// returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(cfg.Level.toZerolog())

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	lc := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		lc = lc.Str("service", cfg.Service)
	}
	log.Logger = lc.Logger()
	return log.Logger
}

// ParseLevel validates a level name from configuration or flags.
func ParseLevel(s string) (LogLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if l, ok := aliases[name]; ok {
		return l, nil
	}
	switch l := LogLevel(name); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, LevelDisabled:
		return l, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// toZerolog maps the level to zerolog's. Unknown names log at info.
func (l LogLevel) toZerolog() zerolog.Level {
	parsed, err := ParseLevel(string(l))
	if err != nil {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(string(parsed))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// NewLogger returns the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
