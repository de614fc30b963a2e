// Package logger provides the zerolog-backed application logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Service is stamped on every line.
const Service = "planet-heroes"

// Logger wraps a zerolog logger.
type Logger struct {
	logger zerolog.Logger
}

// New creates a logger writing to stdout or, when output names a file, to
// that file. An unopenable file falls back to stderr with a warning.
func New(level, format, output string) *Logger {
	var w io.Writer = os.Stdout
	var openErr error
	if output != "" && output != "stdout" {
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			w, openErr = os.Stderr, err
		} else {
			w = f
		}
	}

	l := NewWithWriter(level, format, w)
	if openErr != nil {
		l.Warn().Err(openErr).Str("output", output).Msg("Failed to open log file, logging to stderr")
	}
	return l
}

// NewWithWriter creates a logger writing to w. format "console" selects the
// human-readable writer; anything else writes JSON lines.
func NewWithWriter(level, format string, w io.Writer) *Logger {
	zerolog.SetGlobalLevel(parseLevel(level))
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return &Logger{
		logger: zerolog.New(w).With().Timestamp().Caller().Str("service", Service).Logger(),
	}
}

// parseLevel accepts zerolog level names plus "warning". Unknown levels mean info.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }

// Fatal logs and exits the process once the event is sent.
func (l *Logger) Fatal() *zerolog.Event { return l.logger.Fatal() }

// With starts a child logger context.
func (l *Logger) With() zerolog.Context {
	return l.logger.With()
}

// Named returns a child logger tagged with a component name.
func (l *Logger) Named(component string) *Logger {
	return &Logger{logger: l.logger.With().Str("component", component).Logger()}
}

// Nop returns a logger that discards everything, for tests.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// GetLogger returns the underlying zerolog.Logger.
func (l *Logger) GetLogger() zerolog.Logger {
	return l.logger
}

// Printf and Verbose let the logger serve as a golang-migrate logger.
func (l *Logger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msg(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}

func (l *Logger) Verbose() bool {
	return zerolog.GlobalLevel() <= zerolog.DebugLevel
}

var (
	globalMu sync.Mutex
	global   *Logger
)

// Init replaces the process-wide logger.
func Init(level, format, output string) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = New(level, format, output)
}

// Get returns the process-wide logger, creating a JSON info logger on first use.
func Get() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New("info", "json", "stdout")
	}
	return global
}
