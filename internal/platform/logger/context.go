package logger

import (
	"context"
	"log/slog"
)

// loggerContextKey is an unexported type for the context key, preventing
// collisions with keys defined in other packages.
type loggerContextKey struct{}

// WithLogger returns a copy of ctx carrying the given logger. Handlers and
// middleware use this to hand request-scoped loggers (e.g. with a trace ID
// attached) down to services and stores.
//
// Panics if log is nil: a stored nil logger would fail far from the cause.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		panic("logger.WithLogger called with nil logger")
	}
	return context.WithValue(ctx, loggerContextKey{}, log)
}

// FromContext returns the logger stored in ctx, falling back to
// slog.Default() when ctx carries none (or is nil).
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok {
			return log
		}
	}
	return slog.Default()
}

// FromContextOrDefault returns the logger stored in ctx, or def when ctx
// carries none (or is nil).
func FromContextOrDefault(ctx context.Context, def *slog.Logger) *slog.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok {
			return log
		}
	}
	return def
}
