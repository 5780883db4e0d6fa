// Package logger provides structured logging functionality for the
// application: JSON slog setup from configuration and helpers for carrying
// a request-scoped logger through context.Context.
package logger
