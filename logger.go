package jsonasset

import "log/slog"

// Logger receives diagnostics keyed by asset name and path. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DefaultLogger returns the process-wide slog logger.
func DefaultLogger() Logger {
	return slog.Default()
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NoopLogger discards every message.
func NoopLogger() Logger {
	return noopLogger{}
}
