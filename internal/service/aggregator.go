package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/events"
	"github.com/planvox/planvox-api/internal/platform/logger"
	"github.com/planvox/planvox-api/internal/store"
)

// sweepLimit bounds how many stuck schemes one reconciliation pass visits.
const sweepLimit = 100

// Aggregator folds task completions into the scheme's aggregate TTS state.
// It handles completion events as they fire and doubles as a background
// sweep healing schemes whose completion event was missed.
type Aggregator struct {
	schemeRepo SchemeRepository
	taskRepo   TaskRepository
	emitter    events.EventEmitter
	logger     *slog.Logger
}

var _ events.EventHandler = (*Aggregator)(nil)

// NewAggregator creates a new Aggregator.
// It returns an error if any of the required dependencies are nil.
// The emitter may be nil; batch-finished events are then not published.
func NewAggregator(
	schemeRepo SchemeRepository,
	taskRepo TaskRepository,
	emitter events.EventEmitter,
	log *slog.Logger,
) (*Aggregator, error) {
	if schemeRepo == nil {
		return nil, NewBatchServiceError("new_aggregator", "schemeRepo cannot be nil", nil)
	}
	if taskRepo == nil {
		return nil, NewBatchServiceError("new_aggregator", "taskRepo cannot be nil", nil)
	}

	if log == nil {
		log = slog.Default()
	}

	return &Aggregator{
		schemeRepo: schemeRepo,
		taskRepo:   taskRepo,
		emitter:    emitter,
		logger:     log.With(slog.String("component", "aggregator")),
	}, nil
}

// HandleEvent implements events.EventHandler. Task completions trigger a
// reconciliation of the task's scheme; other event types are ignored.
func (a *Aggregator) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeTaskCompleted {
		return nil
	}

	var payload events.TaskCompletedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		a.logger.Error("malformed task completion event",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
		return err
	}

	return a.Reconcile(ctx, payload.SchemeID)
}

// Reconcile recomputes the scheme's aggregate state from its tasks.
// While any task is still pending the batch is in flight and nothing
// happens. Once all tasks have settled, a single failure marks the whole
// scheme failed; otherwise it is marked successful.
func (a *Aggregator) Reconcile(ctx context.Context, schemeID int64) error {
	log := logger.FromContextOrDefault(ctx, a.logger)

	counts, err := a.taskRepo.CountByStatus(ctx, schemeID)
	if err != nil {
		return NewBatchServiceError("reconcile", "failed to count tasks", err)
	}

	if counts.Pending > 0 {
		return nil
	}
	if counts.Success == 0 && counts.Failed == 0 {
		// Nothing to aggregate, e.g. the scheme has no tasks at all.
		return nil
	}

	state := domain.TTSStateSuccess
	if counts.Failed > 0 {
		state = domain.TTSStateFailed
	}

	if err := a.schemeRepo.UpdateTTSState(ctx, schemeID, state); err != nil {
		if store.IsNotFoundError(err) {
			log.Warn("scheme disappeared before aggregation",
				slog.Int64("scheme_id", schemeID))
			return nil
		}
		return NewBatchServiceError("reconcile", "failed to update scheme state", err)
	}

	log.Info("scheme batch settled",
		slog.Int64("scheme_id", schemeID),
		slog.String("tts_state", state.String()),
		slog.Int("success", counts.Success),
		slog.Int("failed", counts.Failed))

	a.publishBatchFinished(ctx, schemeID, state, counts)

	return nil
}

// Sweep reconciles every scheme currently stuck in the processing state,
// healing batches whose completion event was missed. Returns how many
// schemes were examined.
func (a *Aggregator) Sweep(ctx context.Context) (int, error) {
	ids, err := a.schemeRepo.FindProcessing(ctx, sweepLimit)
	if err != nil {
		return 0, NewBatchServiceError("sweep", "failed to find processing schemes", err)
	}

	for _, id := range ids {
		if err := a.Reconcile(ctx, id); err != nil {
			a.logger.Error("sweep reconciliation failed",
				slog.Int64("scheme_id", id),
				slog.String("error", err.Error()))
		}
	}

	return len(ids), nil
}

// Run sweeps periodically until ctx is canceled.
func (a *Aggregator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	a.logger.Info("reconciliation sweep started",
		slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("reconciliation sweep stopped")
			return

		case <-ticker.C:
			checked, err := a.Sweep(ctx)
			if err != nil {
				a.logger.Error("reconciliation sweep failed",
					slog.String("error", err.Error()))
				continue
			}
			if checked > 0 {
				a.logger.Debug("reconciliation sweep completed",
					slog.Int("checked", checked))
			}
		}
	}
}

// publishBatchFinished emits the batch-finished event. Aggregation has
// already been persisted, so publish failures are only logged.
func (a *Aggregator) publishBatchFinished(
	ctx context.Context,
	schemeID int64,
	state domain.TTSState,
	counts store.StatusCounts,
) {
	if a.emitter == nil {
		return
	}

	event, err := events.NewEvent(events.TypeBatchFinished, events.BatchFinishedPayload{
		SchemeID: schemeID,
		TTSState: state,
		Success:  counts.Success,
		Failed:   counts.Failed,
	})
	if err != nil {
		a.logger.Error("failed to build batch-finished event",
			slog.Int64("scheme_id", schemeID),
			slog.String("error", err.Error()))
		return
	}

	if err := a.emitter.EmitEvent(ctx, event); err != nil {
		a.logger.Error("failed to publish batch-finished event",
			slog.Int64("scheme_id", schemeID),
			slog.String("error", err.Error()))
	}
}
