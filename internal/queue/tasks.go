package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/planvox/planvox-api/internal/domain"
)

const (
	// TypeSpeechGenerate is the task type for one segment synthesis job.
	TypeSpeechGenerate = "speech:generate"

	// QueueSpeech is the queue all speech generation jobs run on.
	QueueSpeech = "speech"
)

// GenerationPayload carries everything the worker needs to synthesize one
// segment without re-reading the scheme document.
type GenerationPayload struct {
	TaskID      uuid.UUID         `json:"taskId"`
	SchemeID    int64             `json:"schemeId"`
	SchemeIndex int               `json:"schemeIndex"`
	SegmentKey  domain.SegmentKey `json:"segmentKey"`
	Text        string            `json:"text"`
	VoiceName   string            `json:"voiceName"`
	Provider    string            `json:"provider"`
}

// NewGenerationTask builds the queue task for a payload.
func NewGenerationTask(payload GenerationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation payload: %w", err)
	}
	return asynq.NewTask(TypeSpeechGenerate, data), nil
}

// ParseGenerationPayload decodes the payload of a speech generation task.
func ParseGenerationPayload(task *asynq.Task) (GenerationPayload, error) {
	var payload GenerationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return GenerationPayload{}, fmt.Errorf("failed to unmarshal generation payload: %w", err)
	}
	return payload, nil
}

// JobID returns the dedup key for a task's first enqueue. Re-enqueueing the
// same task under this key is rejected while the earlier job is still queued.
func JobID(taskID uuid.UUID) string {
	return taskID.String()
}

// FreshJobID returns a collision-free key for re-enqueueing a task whose
// earlier job may still be queued, such as a selective regeneration.
func FreshJobID(taskID uuid.UUID) string {
	return fmt.Sprintf("%s:%d", taskID, time.Now().UnixNano())
}
