package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrBatchInProgress indicates the scheme already has pending speech
	// tasks, so a new batch or text update may not start.
	// API layer should map this to HTTP 409 Conflict.
	ErrBatchInProgress = errors.New("scheme already has a batch in progress")

	// ErrNoTasks indicates the scheme has no non-deprecated speech tasks,
	// so there is nothing to aggregate.
	// API layer should map this to HTTP 400 Bad Request.
	ErrNoTasks = errors.New("scheme has no speech tasks")

	// ErrSegmentNotFound indicates a scheme index does not address a
	// segment of the scheme's document.
	// API layer should map this to HTTP 404 Not Found.
	ErrSegmentNotFound = errors.New("segment not found in scheme document")
)
