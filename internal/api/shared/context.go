package shared

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// ContextKey is the type for values this package stores in a request context.
type ContextKey string

const (
	// CallerIDContextKey holds the authenticated caller ID set by the auth
	// middleware.
	CallerIDContextKey ContextKey = "callerID"

	// TraceIDKey holds the per-request trace ID.
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of random bytes behind a trace ID; the
	// hex-encoded form is twice as long.
	TraceIDLength = 16
)

// SetTraceID stamps the context with a fresh trace ID. The error responders
// read it back so a client-visible error can be matched to its log lines.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID returns the trace ID from the context, or "" when the request
// never passed through the trace middleware.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// WithCallerID stamps the context with the authenticated caller.
func WithCallerID(ctx context.Context, callerID uuid.UUID) context.Context {
	return context.WithValue(ctx, CallerIDContextKey, callerID)
}

// CallerID returns the authenticated caller from the context. The second
// return is false when no caller was set or the stored value is the zero
// UUID.
func CallerID(ctx context.Context) (uuid.UUID, bool) {
	callerID, ok := ctx.Value(CallerIDContextKey).(uuid.UUID)
	if !ok || callerID == uuid.Nil {
		return uuid.Nil, false
	}
	return callerID, true
}

// generateTraceID returns TraceIDLength random bytes, hex encoded, falling
// back to timestamp-derived bytes if the system random source is unreadable.
func generateTraceID() string {
	b := make([]byte, TraceIDLength)
	if _, err := rand.Read(b); err != nil {
		now := time.Now()
		binary.BigEndian.PutUint64(b[:8], uint64(now.UnixNano()))
		binary.BigEndian.PutUint64(b[8:], uint64(now.Unix()))
	}
	return hex.EncodeToString(b)
}
