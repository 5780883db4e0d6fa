package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/events"
	"github.com/planvox/planvox-api/internal/platform/logger"
	"github.com/planvox/planvox-api/internal/platform/natsstore"
	"github.com/planvox/planvox-api/internal/queue"
	"github.com/planvox/planvox-api/internal/speech"
	"github.com/planvox/planvox-api/internal/store"
)

// TaskStore is the slice of task persistence the worker needs.
type TaskStore interface {
	// GetByID retrieves a task by its surrogate ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SpeechTask, error)

	// Update saves changes to an existing task
	Update(ctx context.Context, task *domain.SpeechTask) error
}

// DocumentWriter writes one segment audio URL back to the scheme document.
type DocumentWriter interface {
	SetSegmentAudio(
		ctx context.Context,
		schemeID int64,
		schemeIndex int,
		segmentKey domain.SegmentKey,
		audioURL string,
	) error
}

// AudioUploader persists synthesized audio and returns its URL.
type AudioUploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// GenerationHandler processes speech generation jobs. It implements
// asynq.Handler for the speech:generate task type.
type GenerationHandler struct {
	tasks     TaskStore
	documents DocumentWriter
	registry  *speech.Registry
	audio     AudioUploader
	gate      *queue.RateGate
	emitter   events.EventEmitter
	logger    *slog.Logger
}

var _ asynq.Handler = (*GenerationHandler)(nil)

// NewGenerationHandler creates a new GenerationHandler.
// It returns an error if any of the required dependencies are nil.
// The emitter may be nil; completion events are then not published and the
// aggregation sweeper alone settles scheme states.
func NewGenerationHandler(
	tasks TaskStore,
	documents DocumentWriter,
	registry *speech.Registry,
	audio AudioUploader,
	gate *queue.RateGate,
	emitter events.EventEmitter,
	log *slog.Logger,
) (*GenerationHandler, error) {
	if tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if documents == nil {
		return nil, errors.New("document writer cannot be nil")
	}
	if registry == nil {
		return nil, errors.New("speech registry cannot be nil")
	}
	if audio == nil {
		return nil, errors.New("audio uploader cannot be nil")
	}
	if gate == nil {
		return nil, errors.New("rate gate cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &GenerationHandler{
		tasks:     tasks,
		documents: documents,
		registry:  registry,
		audio:     audio,
		gate:      gate,
		emitter:   emitter,
		logger:    log.With(slog.String("component", "generation_worker")),
	}, nil
}

// ProcessTask implements asynq.Handler. One delivery synthesizes one
// segment. Rate limit rejections requeue the job without consuming an
// attempt; synthesis and upload failures are recorded on the task and
// handed back to the queue for backoff.
func (h *GenerationHandler) ProcessTask(ctx context.Context, job *asynq.Task) error {
	payload, err := queue.ParseGenerationPayload(job)
	if err != nil {
		h.logger.Error("dropping job with unreadable payload",
			slog.String("error", err.Error()))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log := logger.FromContextOrDefault(ctx, h.logger).With(
		slog.String("task_id", payload.TaskID.String()),
		slog.Int64("scheme_id", payload.SchemeID),
		slog.Int("scheme_index", payload.SchemeIndex),
		slog.String("segment_key", string(payload.SegmentKey)))

	if err := h.gate.Check(); err != nil {
		log.Debug("provider rate gate saturated", slog.String("error", err.Error()))
		return err
	}

	task, err := h.tasks.GetByID(ctx, payload.TaskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			// An overwrite-mode batch deleted the row out from under the job.
			log.Warn("task row no longer exists, dropping job")
			return fmt.Errorf("task %s no longer exists: %w", payload.TaskID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to load task %s: %w", payload.TaskID, err)
	}

	if task.Status == domain.TaskStatusDeprecated {
		log.Info("discarding job for superseded task")
		return nil
	}

	// Stamp the batch configuration before calling out, so a failed attempt
	// still shows which voice and provider it ran with.
	task.VoiceName = payload.VoiceName
	task.Provider = payload.Provider
	if err := h.tasks.Update(ctx, task); err != nil {
		return fmt.Errorf("failed to stamp task configuration: %w", err)
	}

	synth, err := h.registry.Resolve(payload.Provider)
	if err != nil {
		return h.recordAttempt(ctx, log, task, err)
	}

	result, err := synth.Synthesize(ctx, speech.Request{
		Text:      payload.Text,
		VoiceName: payload.VoiceName,
	})
	if err != nil {
		return h.recordAttempt(ctx, log, task, err)
	}

	objectName := natsstore.ObjectName(payload.SchemeID, payload.SchemeIndex, payload.SegmentKey)
	url, err := h.audio.Upload(ctx, objectName, result.Audio)
	if err != nil {
		return h.recordAttempt(ctx, log, task, fmt.Errorf("failed to upload audio: %w", err))
	}

	task.TTSModel = result.Model
	task.MarkSuccess(url)
	if err := h.tasks.Update(ctx, task); err != nil {
		return fmt.Errorf("failed to persist task result: %w", err)
	}

	if err := h.documents.SetSegmentAudio(
		ctx, payload.SchemeID, payload.SchemeIndex, payload.SegmentKey, url,
	); err != nil {
		// The task result is already persisted; re-running the synthesis
		// will not fix a vanished segment.
		log.Error("failed to write segment audio url",
			slog.String("error", err.Error()))
	}

	log.Info("segment synthesized",
		slog.String("audio_url", url),
		slog.String("tts_model", result.Model))

	publishCompletion(ctx, h.emitter, log, task)
	return nil
}

// recordAttempt persists one failed attempt on the task and hands the cause
// back to the queue, whose backoff policy decides on redelivery.
func (h *GenerationHandler) recordAttempt(
	ctx context.Context,
	log *slog.Logger,
	task *domain.SpeechTask,
	cause error,
) error {
	task.RecordAttemptFailure(cause.Error())
	if err := h.tasks.Update(ctx, task); err != nil {
		log.Error("failed to record attempt failure",
			slog.String("error", err.Error()))
	}

	log.Warn("synthesis attempt failed",
		slog.Int("retry_count", task.RetryCount),
		slog.String("error", cause.Error()))
	return cause
}

// publishCompletion emits a task completion event. Event delivery is best
// effort: the task state is already persisted, and the aggregation sweeper
// heals schemes whose events were missed.
func publishCompletion(
	ctx context.Context,
	emitter events.EventEmitter,
	log *slog.Logger,
	task *domain.SpeechTask,
) {
	if emitter == nil {
		return
	}

	event, err := events.NewEvent(events.TypeTaskCompleted, events.TaskCompletedPayload{
		TaskID:      task.ID,
		SchemeID:    task.SchemeID,
		SchemeIndex: task.SchemeIndex,
		SegmentKey:  task.SegmentKey,
		Status:      task.Status,
		AudioURL:    task.AudioURL,
	})
	if err != nil {
		log.Error("failed to build completion event",
			slog.String("error", err.Error()))
		return
	}

	if err := emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to publish completion event",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
	}
}
