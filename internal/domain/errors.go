package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidSegmentKey is returned when a segment key is not one of
	// begin, middle, or end.
	ErrInvalidSegmentKey = errors.New("invalid segment key")

	// ErrInvalidTaskStatus is returned when a task status code is not valid.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidTTSState is returned when a scheme TTS state code is not valid.
	ErrInvalidTTSState = errors.New("invalid tts state")

	// ErrSegmentIndexOutOfRange is returned when a scheme index does not
	// address a segment of the scheme's document.
	ErrSegmentIndexOutOfRange = errors.New("segment index out of range")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")
)
