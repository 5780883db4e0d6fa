package speech

import "errors"

// Common errors returned by the speech package
var (
	// ErrSynthesisFailed is returned when speech generation fails for any general reason
	ErrSynthesisFailed = errors.New("failed to synthesize speech from text")

	// ErrInvalidResponse is returned when the provider response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from speech provider")

	// ErrEmptyText is returned when synthesis is requested for empty text
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyAudio is returned when the provider responds with no audio data
	ErrEmptyAudio = errors.New("received empty audio data")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during speech synthesis")

	// ErrInvalidConfig is returned when the synthesizer configuration is invalid
	ErrInvalidConfig = errors.New("invalid synthesizer configuration")

	// ErrUnknownProvider is returned when no synthesizer is registered under
	// the requested provider name
	ErrUnknownProvider = errors.New("unknown speech provider")
)
