package middleware

import (
	"log/slog"
	"net/http"

	"github.com/planvox/planvox-api/internal/api/shared"
)

// TraceMiddleware stamps each request context with a trace ID and echoes it
// in the X-Trace-ID response header. It runs before any handler that logs or
// responds with errors.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())
		traceID := shared.GetTraceID(ctx)

		w.Header().Set("X-Trace-ID", traceID)

		slog.Debug("request started",
			slog.String("trace_id", traceID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
