package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planvox/planvox-api/internal/domain"
)

// Event types published by the speech pipeline.
const (
	// TypeTaskCompleted fires when a single speech task reaches a terminal
	// status, whether success or failure.
	TypeTaskCompleted = "speech.task.completed"

	// TypeBatchFinished fires when every task of a scheme's batch has
	// settled and the scheme leaves the processing state.
	TypeBatchFinished = "speech.batch.finished"
)

// Event is the envelope for a pipeline notification. The payload is raw JSON
// keyed by Type; use UnmarshalPayload to decode it into the matching struct.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// TaskCompletedPayload describes a task that settled.
type TaskCompletedPayload struct {
	TaskID      uuid.UUID         `json:"taskId"`
	SchemeID    int64             `json:"schemeId"`
	SchemeIndex int               `json:"schemeIndex"`
	SegmentKey  domain.SegmentKey `json:"segmentKey"`
	Status      domain.TaskStatus `json:"status"`
	AudioURL    string            `json:"audioUrl,omitempty"`
}

// BatchFinishedPayload describes a scheme whose batch has settled.
type BatchFinishedPayload struct {
	SchemeID int64           `json:"schemeId"`
	TTSState domain.TTSState `json:"ttsState"`
	Success  int             `json:"success"`
	Failed   int             `json:"failed"`
}

// NewEvent creates an event of the given type, marshaling payload to JSON.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// UnmarshalPayload decodes the event payload into the provided value.
func (e *Event) UnmarshalPayload(v interface{}) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal event payload: %w", err)
	}
	return nil
}

// EventHandler processes events published on the bus.
type EventHandler interface {
	// HandleEvent processes a single event. Errors are reported to the
	// publisher; they do not stop delivery to other handlers.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter publishes events to registered handlers.
type EventEmitter interface {
	// EmitEvent delivers the event to every registered handler.
	EmitEvent(ctx context.Context, event *Event) error
}
