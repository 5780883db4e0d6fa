package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SegmentKey names one of the three sub-units of a segment record.
type SegmentKey string

// Valid segment keys.
const (
	SegmentKeyBegin  SegmentKey = "begin"
	SegmentKeyMiddle SegmentKey = "middle"
	SegmentKeyEnd    SegmentKey = "end"
)

// SegmentKeys lists the valid keys in document order.
var SegmentKeys = []SegmentKey{SegmentKeyBegin, SegmentKeyMiddle, SegmentKeyEnd}

// ParseSegmentKey converts a string to a SegmentKey, validating it.
func ParseSegmentKey(s string) (SegmentKey, error) {
	key := SegmentKey(s)
	if !key.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSegmentKey, s)
	}
	return key, nil
}

// Valid reports whether the key is one of begin, middle, or end.
func (k SegmentKey) Valid() bool {
	switch k {
	case SegmentKeyBegin, SegmentKeyMiddle, SegmentKeyEnd:
		return true
	default:
		return false
	}
}

// TaskStatus represents the processing state of a speech task.
// The numeric codes are part of the persisted and API contract.
type TaskStatus int16

// Possible task status values. Pending covers both awaiting and in
// generation; Deprecated marks a task superseded by a newer one at the same
// key, kept for audit history.
const (
	TaskStatusPending    TaskStatus = 0
	TaskStatusSuccess    TaskStatus = 1
	TaskStatusFailed     TaskStatus = 2
	TaskStatusDeprecated TaskStatus = 3
)

// String returns a human-readable name for logging.
func (s TaskStatus) String() string {
	switch s {
	case TaskStatusPending:
		return "pending"
	case TaskStatusSuccess:
		return "success"
	case TaskStatusFailed:
		return "failed"
	case TaskStatusDeprecated:
		return "deprecated"
	default:
		return fmt.Sprintf("unknown(%d)", int16(s))
	}
}

// Common validation errors for SpeechTask.
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrInvalidTaskScheme  = errors.New("task scheme ID must be positive")
	ErrNegativeTaskIndex  = errors.New("task scheme index cannot be negative")
	ErrNegativeRetryCount = errors.New("task retry count cannot be negative")
)

// SpeechTask is one generation unit for a specific scheme/index/segment key.
// Identity is the composite (SchemeID, SchemeIndex, SegmentKey); the
// surrogate ID correlates the task with its queue jobs.
type SpeechTask struct {
	ID          uuid.UUID  `json:"id"`
	SchemeID    int64      `json:"schemeId"`
	SchemeIndex int        `json:"schemeIndex"`
	SegmentKey  SegmentKey `json:"segmentKey"`
	Status      TaskStatus `json:"status"`
	TextContent string     `json:"textContent"`
	VoiceName   string     `json:"voiceName"`
	TTSModel    string     `json:"ttsModel"`
	Provider    string     `json:"provider"`
	AudioURL    string     `json:"audioUrl"`
	RetryCount  int        `json:"retryCount"`
	ErrorLog    string     `json:"errorLog"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewSpeechTask creates a new Pending task for the given composite key.
// It generates a new UUID for the task ID and sets the timestamps.
// Returns an error if validation fails.
func NewSpeechTask(
	schemeID int64,
	schemeIndex int,
	segmentKey SegmentKey,
	text string,
	voiceName string,
	provider string,
) (*SpeechTask, error) {
	task := &SpeechTask{
		ID:          uuid.New(),
		SchemeID:    schemeID,
		SchemeIndex: schemeIndex,
		SegmentKey:  segmentKey,
		Status:      TaskStatusPending,
		TextContent: text,
		VoiceName:   voiceName,
		Provider:    provider,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the SpeechTask has valid data.
// Returns an error if any field fails validation.
func (t *SpeechTask) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.SchemeID <= 0 {
		return ErrInvalidTaskScheme
	}

	if t.SchemeIndex < 0 {
		return ErrNegativeTaskIndex
	}

	if !t.SegmentKey.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSegmentKey, t.SegmentKey)
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	if t.RetryCount < 0 {
		return ErrNegativeRetryCount
	}

	return nil
}

// MarkSuccess records a successful generation: the audio URL is set, the
// retry count resets, and any previous error log is cleared.
func (t *SpeechTask) MarkSuccess(audioURL string) {
	t.Status = TaskStatusSuccess
	t.AudioURL = audioURL
	t.RetryCount = 0
	t.ErrorLog = ""
	t.UpdatedAt = time.Now().UTC()
}

// RecordAttemptFailure logs one failed generation attempt. The task stays
// pending so the queue can redeliver it.
func (t *SpeechTask) RecordAttemptFailure(message string) {
	t.RetryCount++
	t.ErrorLog = fmt.Sprintf("attempt %d: %s", t.RetryCount, message)
	t.UpdatedAt = time.Now().UTC()
}

// MarkFailed records a terminal failure after retries are exhausted.
func (t *SpeechTask) MarkFailed(errorLog string) {
	t.Status = TaskStatusFailed
	t.ErrorLog = errorLog
	t.UpdatedAt = time.Now().UTC()
}

// MarkDeprecated tags the task as superseded by a newer task at the same
// key, recording why in the error log.
func (t *SpeechTask) MarkDeprecated(note string) {
	t.Status = TaskStatusDeprecated
	t.ErrorLog = note
	t.UpdatedAt = time.Now().UTC()
}

// ResetForText replaces the task's text and returns it to Pending for
// regeneration. The retry count and any previous result are cleared.
func (t *SpeechTask) ResetForText(text string) {
	t.TextContent = text
	t.Status = TaskStatusPending
	t.RetryCount = 0
	t.AudioURL = ""
	t.ErrorLog = ""
	t.UpdatedAt = time.Now().UTC()
}

// ResetForRetry returns the task to Pending keeping its text, counting the
// manual retry. Any previous result is cleared.
func (t *SpeechTask) ResetForRetry() {
	t.Status = TaskStatusPending
	t.RetryCount++
	t.AudioURL = ""
	t.ErrorLog = ""
	t.UpdatedAt = time.Now().UTC()
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusSuccess, TaskStatusFailed, TaskStatusDeprecated:
		return true
	default:
		return false
	}
}
