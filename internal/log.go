package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents different logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// slogTrace sits below slog's debug level
const slogTrace = slog.LevelDebug - 4

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelTrace:
		return slogTrace
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel maps ERROR, WARN, INFO, DEBUG or TRACE to a level. Anything
// else is INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LogLevelError
	case "WARN":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	case "TRACE":
		return LogLevelTrace
	default:
		return LogLevelInfo
	}
}

// Logger provides leveled, printf-style logging on top of a structured
// slog handler. Attributes added with With travel on every record.
type Logger struct {
	level LogLevel
	sl    *slog.Logger
}

// NewLogger creates a text logger writing to w at the given level
func NewLogger(level LogLevel, w io.Writer) *Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level.slogLevel()})
	return &Logger{level: level, sl: slog.New(h)}
}

// NewDefaultLogger creates a stderr logger based on the LOG_LEVEL environment variable
func NewDefaultLogger() *Logger {
	return NewLogger(ParseLogLevel(os.Getenv("LOG_LEVEL")), os.Stderr)
}

// With returns a logger that adds key/value attributes to every record
func (l *Logger) With(args ...any) *Logger {
	return &Logger{level: l.level, sl: l.sl.With(args...)}
}

// Component is With("component", name)
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

func (l *Logger) log(level slog.Level, format string, args ...any) {
	if !l.sl.Enabled(context.Background(), level) {
		return
	}
	l.sl.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

// Error logs error messages
func (l *Logger) Error(format string, args ...any) { l.log(slog.LevelError, format, args...) }

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...any) { l.log(slog.LevelWarn, format, args...) }

// Info logs info messages
func (l *Logger) Info(format string, args ...any) { l.log(slog.LevelInfo, format, args...) }

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...any) { l.log(slog.LevelDebug, format, args...) }

// Trace logs trace messages
func (l *Logger) Trace(format string, args ...any) { l.log(slogTrace, format, args...) }

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// Slog exposes the underlying structured logger
func (l *Logger) Slog() *slog.Logger {
	return l.sl
}

// Global logger instance
var DefaultLogger = NewDefaultLogger()

// SetDefault replaces the global logger, e.g. after config is loaded
func SetDefault(l *Logger) {
	DefaultLogger = l
}
