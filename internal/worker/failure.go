package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/events"
	"github.com/planvox/planvox-api/internal/queue"
	"github.com/planvox/planvox-api/internal/store"
)

// FailureRecorder marks tasks whose jobs exhausted their retry budget as
// terminally failed. It implements asynq.ErrorHandler and observes every
// failed attempt; only the terminal one mutates the task.
type FailureRecorder struct {
	tasks   TaskStore
	emitter events.EventEmitter
	logger  *slog.Logger
}

var _ asynq.ErrorHandler = (*FailureRecorder)(nil)

// NewFailureRecorder creates a new FailureRecorder.
// The emitter may be nil; completion events are then not published.
func NewFailureRecorder(
	tasks TaskStore,
	emitter events.EventEmitter,
	log *slog.Logger,
) (*FailureRecorder, error) {
	if tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &FailureRecorder{
		tasks:   tasks,
		emitter: emitter,
		logger:  log.With(slog.String("component", "failure_recorder")),
	}, nil
}

// HandleError implements asynq.ErrorHandler.
func (r *FailureRecorder) HandleError(ctx context.Context, job *asynq.Task, err error) {
	if job.Type() != queue.TypeSpeechGenerate {
		return
	}

	// Backpressure is not a failure, and dropped jobs have no live task
	// row behind them.
	if queue.IsRateLimitError(err) || errors.Is(err, asynq.SkipRetry) {
		return
	}

	retried, ok := asynq.GetRetryCount(ctx)
	maxRetry, okMax := asynq.GetMaxRetry(ctx)
	if !ok || !okMax || retried < maxRetry {
		return
	}

	payload, perr := queue.ParseGenerationPayload(job)
	if perr != nil {
		r.logger.Error("cannot identify task of terminally failed job",
			slog.String("error", perr.Error()))
		return
	}

	log := r.logger.With(
		slog.String("task_id", payload.TaskID.String()),
		slog.Int64("scheme_id", payload.SchemeID))

	task, terr := r.tasks.GetByID(ctx, payload.TaskID)
	if terr != nil {
		if !store.IsNotFoundError(terr) {
			log.Error("failed to load task for terminal failure",
				slog.String("error", terr.Error()))
		}
		return
	}

	// A task that is no longer pending was superseded or settled by a
	// later batch; its old job's fate is irrelevant.
	if task.Status != domain.TaskStatusPending {
		return
	}

	task.MarkFailed(fmt.Sprintf("failed after %d attempts: %v", retried+1, err))
	if uerr := r.tasks.Update(ctx, task); uerr != nil {
		log.Error("failed to mark task as terminally failed",
			slog.String("error", uerr.Error()))
		return
	}

	log.Warn("task failed terminally",
		slog.Int("attempts", retried+1),
		slog.String("error", err.Error()))

	publishCompletion(ctx, r.emitter, log, task)
}
