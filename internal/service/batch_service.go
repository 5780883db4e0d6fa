package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/keylock"
	"github.com/planvox/planvox-api/internal/platform/logger"
	"github.com/planvox/planvox-api/internal/queue"
	"github.com/planvox/planvox-api/internal/store"
)

// supersededNote is recorded on tasks deprecated by a new batch.
const supersededNote = "superseded by a newer batch"

// BatchServiceError is a custom error type for batch service errors.
type BatchServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for BatchServiceError.
func (e *BatchServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("batch service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("batch service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *BatchServiceError) Unwrap() error {
	return e.Err
}

// NewBatchServiceError creates a new BatchServiceError.
func NewBatchServiceError(operation, message string, err error) *BatchServiceError {
	return &BatchServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// TaskRepository defines the repository interface the services need for
// speech task persistence.
type TaskRepository interface {
	// Create saves a new task to the store
	Create(ctx context.Context, task *domain.SpeechTask) error

	// GetByID retrieves a task by its surrogate ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SpeechTask, error)

	// GetByCompositeKey retrieves the newest non-deprecated task at the key
	GetByCompositeKey(
		ctx context.Context,
		schemeID int64,
		schemeIndex int,
		segmentKey domain.SegmentKey,
	) (*domain.SpeechTask, error)

	// ListByScheme retrieves all tasks of a scheme in document order
	ListByScheme(ctx context.Context, schemeID int64) ([]*domain.SpeechTask, error)

	// Update saves changes to an existing task
	Update(ctx context.Context, task *domain.SpeechTask) error

	// HasPending reports whether any non-deprecated task is still pending
	HasPending(ctx context.Context, schemeID int64) (bool, error)

	// CountByStatus tallies the scheme's non-deprecated tasks
	CountByStatus(ctx context.Context, schemeID int64) (store.StatusCounts, error)

	// DeprecateAtKey marks every non-deprecated task at the key as deprecated
	DeprecateAtKey(
		ctx context.Context,
		schemeID int64,
		schemeIndex int,
		segmentKey domain.SegmentKey,
		note string,
	) (int64, error)

	// DeleteAtKey removes every task at the key outright
	DeleteAtKey(
		ctx context.Context,
		schemeID int64,
		schemeIndex int,
		segmentKey domain.SegmentKey,
	) (int64, error)

	// WithTx returns a new repository instance that uses the provided transaction
	WithTx(tx *sql.Tx) TaskRepository

	// DB returns the underlying database connection
	DB() *sql.DB
}

// JobEnqueuer enqueues generation jobs for speech tasks.
type JobEnqueuer interface {
	EnqueueGeneration(
		ctx context.Context,
		payload queue.GenerationPayload,
		jobID string,
	) (string, error)
}

// JobCleaner removes queued-but-undelivered jobs of a scheme.
type JobCleaner interface {
	ClearSchemeJobs(ctx context.Context, schemeID int64) (int, error)
}

// BatchItem carries the per-key texts for one scheme index of a new batch.
type BatchItem struct {
	SchemeIndex int    `json:"schemeIndex"`
	Begin       string `json:"begin"`
	Middle      string `json:"middle"`
	End         string `json:"end"`
}

// textFor returns the item's text for the given segment key.
func (i BatchItem) textFor(key domain.SegmentKey) string {
	switch key {
	case domain.SegmentKeyBegin:
		return i.Begin
	case domain.SegmentKeyMiddle:
		return i.Middle
	case domain.SegmentKeyEnd:
		return i.End
	default:
		return ""
	}
}

// TextUpdate replaces the text of one existing task.
type TextUpdate struct {
	SchemeIndex int               `json:"schemeIndex"`
	SegmentKey  domain.SegmentKey `json:"segmentKey"`
	NewText     string            `json:"newText"`
}

// SegmentRef names one (schemeIndex, segmentKey) slot of a scheme.
type SegmentRef struct {
	SchemeIndex int               `json:"schemeIndex"`
	SegmentKey  domain.SegmentKey `json:"segmentKey"`
}

// BatchResult reports how many tasks a batch mutation touched.
type BatchResult struct {
	TotalTasks int   `json:"totalTasks"`
	SchemeID   int64 `json:"schemeId"`
}

// TaskView is a task row merged with the document segment at its index.
// Segment is nil when the task's index no longer addresses a segment.
type TaskView struct {
	domain.SpeechTask
	Segment *domain.Segment `json:"segment,omitempty"`
}

// Aggregate overall values.
const (
	OverallUnfinished = "unfinished"
	OverallFailed     = "failed"
	OverallSuccess    = "success"
)

// AggregateStats tallies a scheme's non-deprecated tasks by outcome.
type AggregateStats struct {
	Success    int `json:"success"`
	Failed     int `json:"failed"`
	Unfinished int `json:"unfinished"`
	Total      int `json:"total"`
}

// AggregateResult is the batch-level status of a scheme.
type AggregateResult struct {
	Overall string         `json:"overall"`
	Stats   AggregateStats `json:"stats"`
}

// BatchService orchestrates speech generation batches for schemes.
type BatchService interface {
	// CreateBatch starts a new generation batch for the scheme. Fails with
	// ErrBatchInProgress while any task of the scheme is pending.
	CreateBatch(
		ctx context.Context,
		schemeID int64,
		items []BatchItem,
		voiceName string,
		provider string,
		keepHistory bool,
	) (*BatchResult, error)

	// UpdateSelected replaces the text of existing tasks and requeues them.
	// Fails with ErrBatchInProgress while any task is pending, and with
	// store.ErrTaskNotFound when an update names a slot without a task.
	UpdateSelected(
		ctx context.Context,
		schemeID int64,
		updates []TextUpdate,
	) (*BatchResult, error)

	// RetrySelected requeues the named slots, creating placeholder tasks
	// for slots whose task row no longer exists. Returns the retried count.
	RetrySelected(
		ctx context.Context,
		schemeID int64,
		keys []SegmentRef,
		voiceName string,
		provider string,
	) (int, error)

	// ListTasks returns the scheme's tasks merged with its document.
	ListTasks(ctx context.Context, schemeID int64) ([]TaskView, error)

	// Aggregate reports the batch-level status of the scheme. Fails with
	// ErrNoTasks when the scheme has no non-deprecated tasks.
	Aggregate(ctx context.Context, schemeID int64) (*AggregateResult, error)
}

// batchServiceImpl implements the BatchService interface
type batchServiceImpl struct {
	schemeRepo SchemeRepository
	taskRepo   TaskRepository
	enqueuer   JobEnqueuer
	cleaner    JobCleaner
	locks      *keylock.KeyedLock
	logger     *slog.Logger
}

// NewBatchService creates a new BatchService.
// It returns an error if any of the required dependencies are nil.
func NewBatchService(
	schemeRepo SchemeRepository,
	taskRepo TaskRepository,
	enqueuer JobEnqueuer,
	cleaner JobCleaner,
	locks *keylock.KeyedLock,
	log *slog.Logger,
) (BatchService, error) {
	if schemeRepo == nil {
		return nil, NewBatchServiceError("new", "schemeRepo cannot be nil", nil)
	}
	if taskRepo == nil {
		return nil, NewBatchServiceError("new", "taskRepo cannot be nil", nil)
	}
	if enqueuer == nil {
		return nil, NewBatchServiceError("new", "enqueuer cannot be nil", nil)
	}
	if cleaner == nil {
		return nil, NewBatchServiceError("new", "cleaner cannot be nil", nil)
	}
	if locks == nil {
		return nil, NewBatchServiceError("new", "locks cannot be nil", nil)
	}

	if log == nil {
		log = slog.Default()
	}

	return &batchServiceImpl{
		schemeRepo: schemeRepo,
		taskRepo:   taskRepo,
		enqueuer:   enqueuer,
		cleaner:    cleaner,
		locks:      locks,
		logger:     log.With(slog.String("component", "batch_service")),
	}, nil
}

// CreateBatch implements BatchService.CreateBatch
func (s *batchServiceImpl) CreateBatch(
	ctx context.Context,
	schemeID int64,
	items []BatchItem,
	voiceName string,
	provider string,
	keepHistory bool,
) (*BatchResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(items) == 0 {
		return nil, NewBatchServiceError("create_batch", "no items to generate", ErrNoTasks)
	}

	release, err := s.locks.Acquire(ctx, schemeID)
	if err != nil {
		return nil, NewBatchServiceError("create_batch", "canceled while acquiring scheme lock", err)
	}
	defer release()

	// The conflict check must pass before the queue is touched: clearing
	// jobs of a live batch would strand its pending tasks.
	pending, err := s.taskRepo.HasPending(ctx, schemeID)
	if err != nil {
		return nil, NewBatchServiceError("create_batch", "failed to check for pending tasks", err)
	}
	if pending {
		log.Info("rejected batch: tasks still pending", slog.Int64("scheme_id", schemeID))
		return nil, NewBatchServiceError("create_batch", "tasks still pending", ErrBatchInProgress)
	}

	scheme, err := s.schemeRepo.GetByID(ctx, schemeID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewBatchServiceError(
				"create_batch", "scheme not found", store.ErrSchemeNotFound)
		}
		return nil, NewBatchServiceError("create_batch", "failed to load scheme", err)
	}

	removed, err := s.cleaner.ClearSchemeJobs(ctx, schemeID)
	if err != nil {
		return nil, NewBatchServiceError("create_batch", "failed to clear stale jobs", err)
	}
	if removed > 0 {
		log.Info("cleared stale queue jobs",
			slog.Int64("scheme_id", schemeID),
			slog.Int("removed", removed))
	}

	created := make([]*domain.SpeechTask, 0, len(items)*len(domain.SegmentKeys))
	err = store.RunInTransaction(ctx, s.taskRepo.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txSchemeRepo := s.schemeRepo.WithTx(tx)
		txTaskRepo := s.taskRepo.WithTx(tx)

		if err := txSchemeRepo.UpdateTTSState(ctx, schemeID, domain.TTSStateProcessing); err != nil {
			return NewBatchServiceError("create_batch", "failed to mark scheme processing", err)
		}

		// New text invalidates old audio.
		scheme.ClearAudio()
		if err := txSchemeRepo.UpdateDocument(ctx, schemeID, scheme.Document); err != nil {
			return NewBatchServiceError("create_batch", "failed to reset document audio", err)
		}

		for _, item := range items {
			for _, key := range domain.SegmentKeys {
				if keepHistory {
					if _, err := txTaskRepo.DeprecateAtKey(
						ctx, schemeID, item.SchemeIndex, key, supersededNote); err != nil {
						return NewBatchServiceError(
							"create_batch", "failed to deprecate superseded tasks", err)
					}
				} else {
					if _, err := txTaskRepo.DeleteAtKey(
						ctx, schemeID, item.SchemeIndex, key); err != nil {
						return NewBatchServiceError(
							"create_batch", "failed to delete superseded tasks", err)
					}
				}

				task, err := domain.NewSpeechTask(
					schemeID, item.SchemeIndex, key, item.textFor(key), voiceName, provider)
				if err != nil {
					return NewBatchServiceError("create_batch", "invalid task data", err)
				}

				if err := txTaskRepo.Create(ctx, task); err != nil {
					// A concurrent batch beat us to this slot.
					if errors.Is(err, store.ErrPendingTaskExists) {
						return NewBatchServiceError(
							"create_batch", "tasks still pending", ErrBatchInProgress)
					}
					return NewBatchServiceError("create_batch", "failed to save task", err)
				}

				created = append(created, task)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.enqueueTasks(ctx, created, voiceName, provider, false); err != nil {
		return nil, NewBatchServiceError("create_batch", "failed to enqueue generation jobs", err)
	}

	log.Info("created speech batch",
		slog.Int64("scheme_id", schemeID),
		slog.Int("total_tasks", len(created)),
		slog.Bool("keep_history", keepHistory))

	return &BatchResult{TotalTasks: len(created), SchemeID: schemeID}, nil
}

// UpdateSelected implements BatchService.UpdateSelected
func (s *batchServiceImpl) UpdateSelected(
	ctx context.Context,
	schemeID int64,
	updates []TextUpdate,
) (*BatchResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(updates) == 0 {
		return nil, NewBatchServiceError("update_selected", "no updates given", ErrNoTasks)
	}

	release, err := s.locks.Acquire(ctx, schemeID)
	if err != nil {
		return nil, NewBatchServiceError(
			"update_selected", "canceled while acquiring scheme lock", err)
	}
	defer release()

	pending, err := s.taskRepo.HasPending(ctx, schemeID)
	if err != nil {
		return nil, NewBatchServiceError(
			"update_selected", "failed to check for pending tasks", err)
	}
	if pending {
		log.Info("rejected update: tasks still pending", slog.Int64("scheme_id", schemeID))
		return nil, NewBatchServiceError(
			"update_selected", "tasks still pending", ErrBatchInProgress)
	}

	// Updates reuse the batch's voice configuration.
	voiceName, provider, err := s.resolveVoice(ctx, schemeID)
	if err != nil {
		return nil, NewBatchServiceError(
			"update_selected", "failed to resolve voice configuration", err)
	}

	touched := make([]*domain.SpeechTask, 0, len(updates))
	err = store.RunInTransaction(ctx, s.taskRepo.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txSchemeRepo := s.schemeRepo.WithTx(tx)
		txTaskRepo := s.taskRepo.WithTx(tx)

		for _, update := range updates {
			task, err := txTaskRepo.GetByCompositeKey(
				ctx, schemeID, update.SchemeIndex, update.SegmentKey)
			if err != nil {
				if store.IsNotFoundError(err) {
					return NewBatchServiceError(
						"update_selected",
						fmt.Sprintf("no task at index %d key %q",
							update.SchemeIndex, update.SegmentKey),
						store.ErrTaskNotFound)
				}
				return NewBatchServiceError("update_selected", "failed to load task", err)
			}

			task.ResetForText(update.NewText)
			if err := txTaskRepo.Update(ctx, task); err != nil {
				return NewBatchServiceError("update_selected", "failed to save task", err)
			}

			touched = append(touched, task)
		}

		if err := txSchemeRepo.UpdateTTSState(ctx, schemeID, domain.TTSStateProcessing); err != nil {
			return NewBatchServiceError(
				"update_selected", "failed to mark scheme processing", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.enqueueTasks(ctx, touched, voiceName, provider, true); err != nil {
		return nil, NewBatchServiceError(
			"update_selected", "failed to enqueue generation jobs", err)
	}

	log.Info("updated batch texts",
		slog.Int64("scheme_id", schemeID),
		slog.Int("total_tasks", len(touched)))

	return &BatchResult{TotalTasks: len(touched), SchemeID: schemeID}, nil
}

// RetrySelected implements BatchService.RetrySelected
func (s *batchServiceImpl) RetrySelected(
	ctx context.Context,
	schemeID int64,
	keys []SegmentRef,
	voiceName string,
	provider string,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(keys) == 0 {
		return 0, nil
	}

	release, err := s.locks.Acquire(ctx, schemeID)
	if err != nil {
		return 0, NewBatchServiceError(
			"retry_selected", "canceled while acquiring scheme lock", err)
	}
	defer release()

	// Retry deliberately skips the pending-task check: it may run alongside
	// other in-flight work for the same scheme.
	retried := make([]*domain.SpeechTask, 0, len(keys))
	err = store.RunInTransaction(ctx, s.taskRepo.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txTaskRepo := s.taskRepo.WithTx(tx)

		for _, ref := range keys {
			task, err := txTaskRepo.GetByCompositeKey(
				ctx, schemeID, ref.SchemeIndex, ref.SegmentKey)
			switch {
			case err == nil:
				task.ResetForRetry()
				if err := txTaskRepo.Update(ctx, task); err != nil {
					return NewBatchServiceError("retry_selected", "failed to save task", err)
				}

			case store.IsNotFoundError(err):
				// The task row was deleted by an overwrite-mode batch;
				// recreate the slot so the retry still runs.
				task, err = domain.NewSpeechTask(
					schemeID, ref.SchemeIndex, ref.SegmentKey, "", voiceName, provider)
				if err != nil {
					return NewBatchServiceError("retry_selected", "invalid task data", err)
				}
				if err := txTaskRepo.Create(ctx, task); err != nil {
					return NewBatchServiceError(
						"retry_selected", "failed to save placeholder task", err)
				}

			default:
				return NewBatchServiceError("retry_selected", "failed to load task", err)
			}

			retried = append(retried, task)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := s.enqueueTasks(ctx, retried, voiceName, provider, true); err != nil {
		return 0, NewBatchServiceError(
			"retry_selected", "failed to enqueue generation jobs", err)
	}

	log.Info("retried batch slots",
		slog.Int64("scheme_id", schemeID),
		slog.Int("retried", len(retried)))

	return len(retried), nil
}

// ListTasks implements BatchService.ListTasks
func (s *batchServiceImpl) ListTasks(ctx context.Context, schemeID int64) ([]TaskView, error) {
	scheme, err := s.schemeRepo.GetByID(ctx, schemeID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewBatchServiceError(
				"list_tasks", "scheme not found", store.ErrSchemeNotFound)
		}
		return nil, NewBatchServiceError("list_tasks", "failed to load scheme", err)
	}

	tasks, err := s.taskRepo.ListByScheme(ctx, schemeID)
	if err != nil {
		return nil, NewBatchServiceError("list_tasks", "failed to list tasks", err)
	}

	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		view := TaskView{SpeechTask: *task}
		// Tasks can outlive document edits; an unmatched index just means
		// no segment to merge.
		if segment, err := scheme.SegmentAt(task.SchemeIndex); err == nil {
			view.Segment = segment
		}
		views = append(views, view)
	}

	return views, nil
}

// Aggregate implements BatchService.Aggregate
func (s *batchServiceImpl) Aggregate(
	ctx context.Context,
	schemeID int64,
) (*AggregateResult, error) {
	counts, err := s.taskRepo.CountByStatus(ctx, schemeID)
	if err != nil {
		return nil, NewBatchServiceError("aggregate", "failed to count tasks", err)
	}

	if counts.Total() == 0 {
		return nil, NewBatchServiceError("aggregate", "nothing to aggregate", ErrNoTasks)
	}

	overall := OverallSuccess
	switch {
	case counts.Pending > 0:
		overall = OverallUnfinished
	case counts.Failed > 0:
		overall = OverallFailed
	}

	return &AggregateResult{
		Overall: overall,
		Stats: AggregateStats{
			Success:    counts.Success,
			Failed:     counts.Failed,
			Unfinished: counts.Pending,
			Total:      counts.Total(),
		},
	}, nil
}

// resolveVoice picks the voice configuration from any existing task of the
// scheme, falling back to empty values when the scheme has none.
func (s *batchServiceImpl) resolveVoice(
	ctx context.Context,
	schemeID int64,
) (voiceName, provider string, err error) {
	tasks, err := s.taskRepo.ListByScheme(ctx, schemeID)
	if err != nil {
		return "", "", err
	}
	if len(tasks) == 0 {
		return "", "", nil
	}
	return tasks[0].VoiceName, tasks[0].Provider, nil
}

// enqueueTasks enqueues one generation job per task. fresh selects
// timestamped job IDs so requeues of a task do not collide with an earlier
// job for the same task still held by the queue.
func (s *batchServiceImpl) enqueueTasks(
	ctx context.Context,
	tasks []*domain.SpeechTask,
	voiceName string,
	provider string,
	fresh bool,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, task := range tasks {
		payload := queue.GenerationPayload{
			TaskID:      task.ID,
			SchemeID:    task.SchemeID,
			SchemeIndex: task.SchemeIndex,
			SegmentKey:  task.SegmentKey,
			Text:        task.TextContent,
			VoiceName:   voiceName,
			Provider:    provider,
		}

		jobID := queue.JobID(task.ID)
		if fresh {
			jobID = queue.FreshJobID(task.ID)
		}

		if _, err := s.enqueuer.EnqueueGeneration(ctx, payload, jobID); err != nil {
			if errors.Is(err, queue.ErrDuplicateJob) {
				log.Warn("generation job already queued",
					slog.String("task_id", task.ID.String()),
					slog.String("job_id", jobID))
				continue
			}
			return err
		}
	}

	return nil
}
