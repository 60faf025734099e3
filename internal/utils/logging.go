package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jmylchreest/yeelightd/internal/config"
)

// LogLevel defines log level types
type LogLevel string

// Log level constants - using values from config package
const (
	LogLevelDebug LogLevel = LogLevel(config.LogLevelDebug)
	LogLevelInfo  LogLevel = LogLevel(config.LogLevelInfo)
	LogLevelWarn  LogLevel = LogLevel(config.LogLevelWarn)
	LogLevelError LogLevel = LogLevel(config.LogLevelError)
)

// LogFormat defines log format types
type LogFormat string

// Log format constants - using values from config package
const (
	LogFormatText LogFormat = LogFormat(config.LogFormatText)
	LogFormatJSON LogFormat = LogFormat(config.LogFormatJSON)
)

// level is shared by every logger built here so the HTTP API can change it at runtime.
var level = new(slog.LevelVar)

// GetLogLevel converts a string log level to slog.Level
func GetLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case string(LogLevelDebug):
		return slog.LevelDebug
	case string(LogLevelWarn), "warning":
		return slog.LevelWarn
	case string(LogLevelError):
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidateLogLevel ensures the provided level is valid, returning a default if not
func ValidateLogLevel(level string) string {
	switch LogLevel(strings.ToLower(level)) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return strings.ToLower(level)
	default:
		return string(LogLevelInfo)
	}
}

// ValidateLogFormat ensures the provided format is valid, returning a default if not
func ValidateLogFormat(format string) string {
	switch LogFormat(format) {
	case LogFormatText, LogFormatJSON:
		return format
	default:
		return string(LogFormatText)
	}
}

// NewLogger builds a text or JSON logger writing to w at the shared runtime level.
func NewLogger(w io.Writer, lvl string, format string) *slog.Logger {
	level.Set(GetLogLevel(ValidateLogLevel(lvl)))
	opts := &slog.HandlerOptions{Level: level, AddSource: level.Level() == slog.LevelDebug}

	var handler slog.Handler
	if ValidateLogFormat(format) == string(LogFormatJSON) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// SetupLogger creates the daemon/client logger writing to stderr.
func SetupLogger(lvl string, format string) *slog.Logger {
	return NewLogger(os.Stderr, lvl, format)
}

// SetupErrorLogger creates a simple text logger for reporting errors during startup.
func SetupErrorLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// SetLevel changes the level of every logger created by NewLogger/SetupLogger.
func SetLevel(lvl string) string {
	valid := ValidateLogLevel(lvl)
	level.Set(GetLogLevel(valid))
	return valid
}

// CurrentLevel returns the runtime log level as a string.
func CurrentLevel() string {
	switch level.Level() {
	case slog.LevelDebug:
		return string(LogLevelDebug)
	case slog.LevelWarn:
		return string(LogLevelWarn)
	case slog.LevelError:
		return string(LogLevelError)
	default:
		return string(LogLevelInfo)
	}
}

// SetAsDefaultLogger sets a logger as the default logger
func SetAsDefaultLogger(logger *slog.Logger) {
	slog.SetDefault(logger)
}
