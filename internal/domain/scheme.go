package domain

import (
	"errors"
	"fmt"
	"time"
)

// TTSState represents the aggregate speech-generation state of a scheme.
// The numeric codes are part of the persisted and API contract.
type TTSState int16

// Possible scheme TTS states.
const (
	TTSStateIdle       TTSState = 0
	TTSStateProcessing TTSState = 1
	TTSStateSuccess    TTSState = 2
	TTSStateFailed     TTSState = 3
)

// String returns a human-readable name for logging.
func (s TTSState) String() string {
	switch s {
	case TTSStateIdle:
		return "idle"
	case TTSStateProcessing:
		return "processing"
	case TTSStateSuccess:
		return "success"
	case TTSStateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int16(s))
	}
}

// Common validation errors for Scheme.
var (
	ErrInvalidSchemeID  = errors.New("scheme ID must be positive")
	ErrEmptySchemeTitle = errors.New("scheme title cannot be empty")
)

// SegmentAudio holds the generated audio locations for one segment record.
// Each of the three sub-fields is written independently by the worker that
// finished the corresponding segment key, so updates must merge rather than
// replace the struct.
type SegmentAudio struct {
	BeginAudioURL  string `json:"beginAudioUrl"`
	MiddleAudioURL string `json:"middleAudioUrl"`
	EndAudioURL    string `json:"endAudioUrl"`
}

// URLFor returns the audio URL stored for the given segment key.
func (a *SegmentAudio) URLFor(key SegmentKey) (string, error) {
	switch key {
	case SegmentKeyBegin:
		return a.BeginAudioURL, nil
	case SegmentKeyMiddle:
		return a.MiddleAudioURL, nil
	case SegmentKeyEnd:
		return a.EndAudioURL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSegmentKey, key)
	}
}

// SetURL writes the audio URL for the given segment key, leaving the
// sibling fields untouched.
func (a *SegmentAudio) SetURL(key SegmentKey, url string) error {
	switch key {
	case SegmentKeyBegin:
		a.BeginAudioURL = url
	case SegmentKeyMiddle:
		a.MiddleAudioURL = url
	case SegmentKeyEnd:
		a.EndAudioURL = url
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSegmentKey, key)
	}
	return nil
}

// Clear blanks all three audio URLs.
func (a *SegmentAudio) Clear() {
	a.BeginAudioURL = ""
	a.MiddleAudioURL = ""
	a.EndAudioURL = ""
}

// Segment is one record of a scheme's content-plan document.
type Segment struct {
	PlanNumber    int          `json:"planNumber"`
	SchemeContent string       `json:"schemeContent"`
	AudioURL      SegmentAudio `json:"audioUrl"`
}

// Scheme represents a content plan whose segments need synthesized audio.
// The Document is an ordered sequence of segments; it is owned exclusively
// by the scheme and mutated only while holding the scheme's serialization
// lock.
type Scheme struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	TTSState  TTSState  `json:"ttsState"`
	Document  []Segment `json:"document"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewScheme creates a new Scheme with the given ID, title, and document.
// The TTS state starts at Idle and the creation/update timestamps are set.
// Returns an error if validation fails.
func NewScheme(id int64, title string, document []Segment) (*Scheme, error) {
	scheme := &Scheme{
		ID:        id,
		Title:     title,
		TTSState:  TTSStateIdle,
		Document:  document,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := scheme.Validate(); err != nil {
		return nil, err
	}

	return scheme, nil
}

// Validate checks if the Scheme has valid data.
// Returns an error if any field fails validation.
func (s *Scheme) Validate() error {
	if s.ID <= 0 {
		return ErrInvalidSchemeID
	}

	if s.Title == "" {
		return ErrEmptySchemeTitle
	}

	if !isValidTTSState(s.TTSState) {
		return ErrInvalidTTSState
	}

	return nil
}

// UpdateTTSState updates the scheme's aggregate state and the UpdatedAt
// timestamp. Returns an error if the new state is invalid.
func (s *Scheme) UpdateTTSState(state TTSState) error {
	if !isValidTTSState(state) {
		return ErrInvalidTTSState
	}

	s.TTSState = state
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// SegmentAt returns the document segment at the given index.
// Returns ErrSegmentIndexOutOfRange if the index does not address a segment.
func (s *Scheme) SegmentAt(index int) (*Segment, error) {
	if index < 0 || index >= len(s.Document) {
		return nil, fmt.Errorf("%w: index %d, document length %d",
			ErrSegmentIndexOutOfRange, index, len(s.Document))
	}
	return &s.Document[index], nil
}

// ClearAudio blanks the audio URLs of every segment in the document.
// Called when a new batch starts, since new text invalidates old audio.
func (s *Scheme) ClearAudio() {
	for i := range s.Document {
		s.Document[i].AudioURL.Clear()
	}
}

// isValidTTSState checks if the given state is a valid TTSState.
func isValidTTSState(state TTSState) bool {
	switch state {
	case TTSStateIdle, TTSStateProcessing, TTSStateSuccess, TTSStateFailed:
		return true
	default:
		return false
	}
}
