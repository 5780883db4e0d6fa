// Package api exposes the HTTP surface: scheme registration and reads, and
// the speech batch endpoints (create, selective update, selective retry,
// task listing, status). Handlers decode and validate requests, delegate to
// the service layer, and map service errors to sanitized JSON responses.
package api
