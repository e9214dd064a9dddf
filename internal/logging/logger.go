package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fadedpez/contrast/internal/types"
	"github.com/rs/zerolog"
)

// Level represents a logging level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var zerologLevels = map[Level]zerolog.Level{
	DEBUG: zerolog.DebugLevel,
	INFO:  zerolog.InfoLevel,
	WARN:  zerolog.WarnLevel,
	ERROR: zerolog.ErrorLevel,
}

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error", "fatal", "panic":
		return ERROR
	default:
		return INFO
	}
}

// Logger is a leveled printf-style logger on top of zerolog
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a JSON logger on stdout
func NewLogger(level Level) *Logger {
	return New(os.Stdout, level, false)
}

// New creates a logger writing to w. Pretty switches to zerolog's console
// writer for local development.
func New(w io.Writer, level Level, pretty bool) *Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02 15:04:05.000"}
	}
	zl := zerolog.New(w).
		Level(zerologLevels[level]).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()
	return &Logger{zl: zl}
}

// With returns a child logger tagged with a component name
func (l *Logger) With(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.zl.Debug().Msg(fmt.Sprintf(format, v...))
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.zl.Info().Msg(fmt.Sprintf(format, v...))
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.zl.Warn().Msg(fmt.Sprintf(format, v...))
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.zl.Error().Msg(fmt.Sprintf(format, v...))
}

// LogError logs an EconomyError with its code and cause
func (l *Logger) LogError(err error) {
	var econErr *types.EconomyError
	if types.As(err, &econErr) {
		event := l.zl.Error().
			Str("code", string(econErr.Code)).
			Str("detail", econErr.Message)
		if econErr.Err != nil {
			event = event.AnErr("cause", econErr.Err)
		}
		event.Msg("economy error occurred")
		return
	}
	l.zl.Error().Err(err).Msg("unexpected error")
}

// Default logger instance
var Default = NewLogger(INFO)

// Init replaces Default from LOG_LEVEL / LOG_PRETTY style settings
func Init(level string, pretty bool) *Logger {
	Default = New(os.Stdout, ParseLevel(level), pretty)
	return Default
}

// OrDefault returns l, or Default when l is nil
func OrDefault(l *Logger) *Logger {
	if l == nil {
		return Default
	}
	return l
}
