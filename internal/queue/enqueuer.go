package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/planvox/planvox-api/internal/config"
	"github.com/planvox/planvox-api/internal/platform/logger"
)

// ErrDuplicateJob is returned when a job with the same dedup key is already
// queued or running.
var ErrDuplicateJob = errors.New("job already queued")

// Enqueuer submits speech generation jobs to the Redis-backed queue.
type Enqueuer struct {
	client   *asynq.Client
	maxRetry int
	timeout  time.Duration
	logger   *slog.Logger
}

// NewEnqueuer creates an Enqueuer connected to the queue's Redis instance.
// The retry budget and per-job timeout come from cfg. If logger is nil, a
// default logger will be used.
func NewEnqueuer(redisOpt asynq.RedisClientOpt, cfg config.QueueConfig, log *slog.Logger) *Enqueuer {
	if log == nil {
		log = slog.Default()
	}

	maxRetry := cfg.MaxAttempts - 1
	if maxRetry < 0 {
		maxRetry = 0
	}

	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &Enqueuer{
		client:   asynq.NewClient(redisOpt),
		maxRetry: maxRetry,
		timeout:  timeout,
		logger:   log.With(slog.String("component", "queue_enqueuer")),
	}
}

// EnqueueGeneration submits one synthesis job under the given dedup key.
// Returns ErrDuplicateJob if a job with the same key is already queued.
func (e *Enqueuer) EnqueueGeneration(ctx context.Context, payload GenerationPayload, jobID string) (string, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	task, err := NewGenerationTask(payload)
	if err != nil {
		return "", err
	}

	info, err := e.client.EnqueueContext(
		ctx,
		task,
		asynq.Queue(QueueSpeech),
		asynq.TaskID(jobID),
		asynq.MaxRetry(e.maxRetry),
		asynq.Timeout(e.timeout),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			log.Debug("generation job already queued",
				slog.String("job_id", jobID))
			return "", fmt.Errorf("%w: %s", ErrDuplicateJob, jobID)
		}
		log.Error("failed to enqueue generation job",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID),
			slog.Int64("scheme_id", payload.SchemeID))
		return "", fmt.Errorf("failed to enqueue generation job: %w", err)
	}

	log.Debug("generation job enqueued",
		slog.String("job_id", info.ID),
		slog.String("task_id", payload.TaskID.String()),
		slog.Int64("scheme_id", payload.SchemeID),
		slog.Int("scheme_index", payload.SchemeIndex),
		slog.String("segment_key", string(payload.SegmentKey)))
	return info.ID, nil
}

// Close releases the queue connection.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
