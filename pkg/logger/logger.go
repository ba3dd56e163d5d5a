// Package logger provides production-grade structured logging using Go's standard library
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Level represents log levels
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format represents log output formats
type Format string

const (
	FormatJSON   Format = "json"
	FormatPretty Format = "pretty"
)

// Config holds logging configuration with sensible defaults
type Config struct {
	Level      Level  // Log level (debug, info, warn, error)
	Format     Format // Output format (json, pretty)
	Output     io.Writer
	ShowCaller bool // Include file:line in logs
	TimeFormat string
}

// DefaultConfig returns production-ready logging configuration
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Format:     FormatJSON,
		Output:     os.Stderr,
		ShowCaller: false,
		TimeFormat: time.RFC3339,
	}
}

// Logger wraps slog.Logger with domain-specific logging methods
type Logger struct {
	logger *slog.Logger
}

// New creates a new production-ready structured logger
func New(cfg Config) *Logger {
	// Parse log level
	level := parseLevel(cfg.Level)

	// Configure output writer
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	var handler slog.Handler

	// Create handler based on format
	if cfg.Format == FormatPretty {
		// Use tint for colored output (always enabled, works even when piped)
		timeFormat := cfg.TimeFormat
		if timeFormat == "" {
			timeFormat = "2006-01-02 15:04:05.000"
		}

		handler = tint.NewHandler(output, &tint.Options{
			Level:      level,
			TimeFormat: timeFormat,
			NoColor:    false, // Always use colors
			AddSource:  cfg.ShowCaller,
		})
	} else {
		// JSON format for production
		opts := &slog.HandlerOptions{
			Level: level,
		}
		if cfg.ShowCaller {
			opts.AddSource = true
		}
		handler = slog.NewJSONHandler(output, opts)
	}

	logger := slog.New(handler).With("service", "portkit")

	return &Logger{
		logger: logger,
	}
}

// Discard returns a logger that drops everything. Used by library entry
// points that accept a nil logger.
func Discard() *Logger {
	return &Logger{
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithComponent creates a child logger with component context for modularity
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		logger: l.logger.With("component", component),
	}
}

// WithFields creates a child logger with arbitrary context fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{
		logger: l.logger.With(args...),
	}
}

// Debug logs debug level message with optional key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.logWithFields(slog.LevelDebug, msg, keysAndValues...)
}

// Info logs info level message with optional key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithFields(slog.LevelInfo, msg, keysAndValues...)
}

// Warn logs warning level message with optional key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithFields(slog.LevelWarn, msg, keysAndValues...)
}

// Error logs error level message with error and optional key-value pairs
func (l *Logger) Error(msg string, err error, keysAndValues ...interface{}) {
	if err != nil {
		keysAndValues = append([]interface{}{"error", err.Error(), "error_type", fmt.Sprintf("%T", err)}, keysAndValues...)
	}
	l.logWithFields(slog.LevelError, msg, keysAndValues...)
}

// Fatal logs fatal level message with error and exits with code 1
func (l *Logger) Fatal(msg string, err error, keysAndValues ...interface{}) {
	if err != nil {
		keysAndValues = append([]interface{}{"error", err.Error(), "error_type", fmt.Sprintf("%T", err)}, keysAndValues...)
	}
	l.logWithFields(slog.LevelError, msg, keysAndValues...)
	os.Exit(1)
}

// Probe logs the outcome of a single availability probe
func (l *Logger) Probe(addr, protocol string, inUse bool, latency time.Duration) {
	msg := "port is free"
	if inUse {
		msg = "port is in use"
	}
	l.logger.Debug(msg, "addr", addr, "protocol", protocol, "in_use", inUse, "latency", latency)
}

// WaitAttempt logs one iteration of a port wait loop
func (l *Logger) WaitAttempt(attempt int, addr string, up bool, latency time.Duration) {
	l.logger.Debug("wait attempt", "attempt", attempt, "addr", addr, "up", up, "latency", latency)
}

// ScanResult logs the outcome of a free-port scan
func (l *Logger) ScanResult(host, protocol string, port int, err error) {
	if err != nil {
		l.logger.Error("port scan failed", "host", host, "protocol", protocol, "error", err.Error())
		return
	}
	l.logger.Info("free port found", "host", host, "protocol", protocol, "port", port)
}

// logWithFields is a helper to add key-value pairs to log events
func (l *Logger) logWithFields(level slog.Level, msg string, keysAndValues ...interface{}) {
	if len(keysAndValues)%2 != 0 {
		l.logger.Warn("odd number of key-value pairs provided to logger", "args_count", len(keysAndValues))
		keysAndValues = append(keysAndValues, "<missing_value>")
	}

	l.logger.Log(context.Background(), level, msg, keysAndValues...)
}

// GetSlog returns the underlying slog.Logger for advanced use cases
func (l *Logger) GetSlog() *slog.Logger {
	return l.logger
}

// parseLevel converts string level to slog.Level
func parseLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
