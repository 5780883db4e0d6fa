package speech

import "context"

// Request describes one synthesis call.
type Request struct {
	// Text is the content to render as audio. Must be non-empty.
	Text string

	// VoiceName selects the provider voice. Empty means the provider default.
	VoiceName string

	// Model selects the provider model. Empty means the provider default.
	Model string
}

// Result carries the synthesized audio and what produced it.
type Result struct {
	// Audio is the raw audio data, WAV encoded.
	Audio []byte

	// Model is the model that actually served the request, for persistence
	// on the task record.
	Model string
}

// Synthesizer converts segment text into audio.
// This interface serves as a boundary between the application core and
// external text-to-speech services.
type Synthesizer interface {
	// Synthesize renders the request text as audio.
	// It returns an error if the text is empty or the provider fails
	// (see errors.go for specific types).
	Synthesize(ctx context.Context, req Request) (*Result, error)

	// HealthCheck verifies that the provider is reachable and operational.
	HealthCheck(ctx context.Context) error

	// Name identifies the provider, matching the provider names recorded
	// on speech tasks.
	Name() string
}
