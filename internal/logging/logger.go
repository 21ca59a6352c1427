// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error, fatal,
	// panic or disabled.
	Level string

	// Format is json or console.
	Format string

	// Caller adds file:line to each entry.
	Caller bool

	// Timestamp adds a time field.
	Timestamp bool

	// Service is attached to every entry as the service field. Empty omits it.
	Service string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns info-level JSON logging to stderr.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Service:   "courier",
		Output:    os.Stderr,
	}
}

var (
	current atomic.Pointer[zerolog.Logger]
	initMu  sync.Mutex
)

//nolint:gochecknoinits // logging works before main calls Init
func init() {
	Init(DefaultConfig())
}

// Init replaces the global logger. Calling it again reconfigures logging.
func Init(cfg Config) {
	initMu.Lock()
	defer initMu.Unlock()

	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.MessageFieldName = "message"

	out := cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05.000"}
	}

	zc := zerolog.New(out).With()
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	if cfg.Service != "" {
		zc = zc.Str("service", cfg.Service)
	}
	l := zc.Logger()

	current.Store(&l)
	// zerolog.Ctx falls back to this when a context carries no logger.
	zerolog.DefaultContextLogger = &l
}

// parseLevel maps a level name to zerolog. Unknown names map to info.
func parseLevel(level string) zerolog.Level {
	switch l := strings.ToLower(strings.TrimSpace(level)); l {
	case "":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	default:
		parsed, err := zerolog.ParseLevel(l)
		if err != nil || parsed == zerolog.NoLevel {
			return zerolog.InfoLevel
		}
		return parsed
	}
}

// ValidLevel reports whether level names a known level.
func ValidLevel(level string) bool {
	l := strings.ToLower(strings.TrimSpace(level))
	if l == "warning" {
		return true
	}
	parsed, err := zerolog.ParseLevel(l)
	return err == nil && parsed != zerolog.NoLevel
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	return *current.Load()
}

// Debug starts a debug message on the global logger.
func Debug() *zerolog.Event { return current.Load().Debug() }

// Info starts an info message on the global logger.
//
//	logging.Info().Str("sender", "nats").Msg("Sender ready")
func Info() *zerolog.Event { return current.Load().Info() }

// Warn starts a warning message on the global logger.
func Warn() *zerolog.Event { return current.Load().Warn() }

// Error starts an error message on the global logger.
func Error() *zerolog.Event { return current.Load().Error() }

// Fatal starts a fatal message. os.Exit(1) follows once it is written.
func Fatal() *zerolog.Event { return current.Load().Fatal() }

// NewTestLogger returns a timestamped JSON logger writing to w.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
