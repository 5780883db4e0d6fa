package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/platform/logger"
	"github.com/planvox/planvox-api/internal/store"
)

// taskColumns is the column list shared by every SELECT on speech_tasks.
const taskColumns = `id, scheme_id, scheme_index, segment_key, status, text_content,
		voice_name, tts_model, provider, audio_url, retry_count, error_log,
		created_at, updated_at`

// PostgresSpeechTaskStore implements the store.SpeechTaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSpeechTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSpeechTaskStore creates a new PostgreSQL implementation of the SpeechTaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresSpeechTaskStore(db store.DBTX, logger *slog.Logger) *PostgresSpeechTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSpeechTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "speech_task_store")),
	}
}

// Ensure PostgresSpeechTaskStore implements store.SpeechTaskStore interface
var _ store.SpeechTaskStore = (*PostgresSpeechTaskStore)(nil)

// Create implements store.SpeechTaskStore.Create
// It saves a new task, enforcing the one-pending-task-per-key invariant:
// creating a pending task while another pending task occupies the same
// (scheme, index, segment key) fails with store.ErrPendingTaskExists.
// The partial unique index on pending tasks backs the same rule against
// concurrent writers.
func (s *PostgresSpeechTaskStore) Create(ctx context.Context, task *domain.SpeechTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	if task.Status == domain.TaskStatusPending {
		pending, err := s.hasPendingAtKey(ctx, task.SchemeID, task.SchemeIndex, task.SegmentKey)
		if err != nil {
			log.Error("failed to check pending task at key",
				slog.String("error", err.Error()),
				slog.String("task_id", task.ID.String()))
			return store.NewStoreError("speech task", "create", "pending check failed", err)
		}
		if pending {
			return fmt.Errorf("%w: scheme %d index %d key %s",
				store.ErrPendingTaskExists, task.SchemeID, task.SchemeIndex, task.SegmentKey)
		}
	}

	query := `
		INSERT INTO speech_tasks (id, scheme_id, scheme_index, segment_key, status,
			text_content, voice_name, tts_model, provider, audio_url, retry_count,
			error_log, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.SchemeID,
		task.SchemeIndex,
		string(task.SegmentKey),
		task.Status,
		task.TextContent,
		task.VoiceName,
		task.TTSModel,
		task.Provider,
		task.AudioURL,
		task.RetryCount,
		task.ErrorLog,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.Int64("scheme_id", task.SchemeID))
		return MapError(MapUniqueViolation(err, store.ErrPendingTaskExists))
	}

	log.Info("task created successfully",
		slog.String("task_id", task.ID.String()),
		slog.Int64("scheme_id", task.SchemeID),
		slog.Int("scheme_index", task.SchemeIndex),
		slog.String("segment_key", string(task.SegmentKey)))
	return nil
}

// GetByID implements store.SpeechTaskStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresSpeechTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.SpeechTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM speech_tasks
		WHERE id = $1
	`

	task, err := s.scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, store.NewStoreError("speech task", "get", "query failed", err)
	}

	return task, nil
}

// GetByCompositeKey implements store.SpeechTaskStore.GetByCompositeKey
// It retrieves the newest non-deprecated task at the composite key.
// Returns store.ErrTaskNotFound if no such task exists.
func (s *PostgresSpeechTaskStore) GetByCompositeKey(
	ctx context.Context,
	schemeID int64,
	schemeIndex int,
	segmentKey domain.SegmentKey,
) (*domain.SpeechTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM speech_tasks
		WHERE scheme_id = $1 AND scheme_index = $2 AND segment_key = $3 AND status != $4
		ORDER BY created_at DESC
		LIMIT 1
	`

	task, err := s.scanTask(s.db.QueryRowContext(
		ctx, query, schemeID, schemeIndex, string(segmentKey), domain.TaskStatusDeprecated,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found at composite key",
				slog.Int64("scheme_id", schemeID),
				slog.Int("scheme_index", schemeIndex),
				slog.String("segment_key", string(segmentKey)))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by composite key",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", schemeID))
		return nil, store.NewStoreError("speech task", "get_by_key", "query failed", err)
	}

	return task, nil
}

// ListByScheme implements store.SpeechTaskStore.ListByScheme
// Returns an empty slice if the scheme has no tasks.
func (s *PostgresSpeechTaskStore) ListByScheme(ctx context.Context, schemeID int64) ([]*domain.SpeechTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM speech_tasks
		WHERE scheme_id = $1
		ORDER BY scheme_index ASC, segment_key ASC, created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, schemeID)
	if err != nil {
		log.Error("failed to query tasks by scheme",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", schemeID))
		return nil, store.NewStoreError("speech task", "list", "query failed", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	tasks := []*domain.SpeechTask{}
	for rows.Next() {
		task, err := s.scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row",
				slog.String("error", err.Error()))
			return nil, store.NewStoreError("speech task", "list", "row scan failed", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("speech task", "list", "row iteration failed", err)
	}

	log.Debug("listed tasks by scheme",
		slog.Int64("scheme_id", schemeID),
		slog.Int("count", len(tasks)))
	return tasks, nil
}

// Update implements store.SpeechTaskStore.Update
// It saves all mutable fields of an existing task.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresSpeechTaskStore) Update(ctx context.Context, task *domain.SpeechTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		UPDATE speech_tasks
		SET status = $1, text_content = $2, voice_name = $3, tts_model = $4,
			provider = $5, audio_url = $6, retry_count = $7, error_log = $8,
			updated_at = $9
		WHERE id = $10
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Status,
		task.TextContent,
		task.VoiceName,
		task.TTSModel,
		task.Provider,
		task.AudioURL,
		task.RetryCount,
		task.ErrorLog,
		task.UpdatedAt,
		task.ID,
	)

	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return store.NewStoreError("speech task", "update", "update failed", err)
	}

	if err := CheckRowsAffected(result, "speech task"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("task not found for update",
				slog.String("task_id", task.ID.String()))
			return store.ErrTaskNotFound
		}
		return store.NewStoreError("speech task", "update", "rows affected check failed", err)
	}

	log.Debug("task updated",
		slog.String("task_id", task.ID.String()),
		slog.String("status", task.Status.String()))
	return nil
}

// HasPending implements store.SpeechTaskStore.HasPending
func (s *PostgresSpeechTaskStore) HasPending(ctx context.Context, schemeID int64) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT EXISTS(
			SELECT 1 FROM speech_tasks
			WHERE scheme_id = $1 AND status = $2
		)
	`

	var pending bool
	err := s.db.QueryRowContext(ctx, query, schemeID, domain.TaskStatusPending).Scan(&pending)
	if err != nil {
		log.Error("failed to check pending tasks",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", schemeID))
		return false, store.NewStoreError("speech task", "has_pending", "query failed", err)
	}

	return pending, nil
}

// CountByStatus implements store.SpeechTaskStore.CountByStatus
// Deprecated tasks are excluded from the tally.
func (s *PostgresSpeechTaskStore) CountByStatus(ctx context.Context, schemeID int64) (store.StatusCounts, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT status, COUNT(*)
		FROM speech_tasks
		WHERE scheme_id = $1 AND status != $2
		GROUP BY status
	`

	rows, err := s.db.QueryContext(ctx, query, schemeID, domain.TaskStatusDeprecated)
	if err != nil {
		log.Error("failed to count tasks by status",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", schemeID))
		return store.StatusCounts{}, store.NewStoreError("speech task", "count_by_status", "query failed", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var counts store.StatusCounts
	for rows.Next() {
		var status domain.TaskStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			log.Error("failed to scan status count",
				slog.String("error", err.Error()))
			return store.StatusCounts{}, store.NewStoreError("speech task", "count_by_status", "row scan failed", err)
		}
		switch status {
		case domain.TaskStatusPending:
			counts.Pending = n
		case domain.TaskStatusSuccess:
			counts.Success = n
		case domain.TaskStatusFailed:
			counts.Failed = n
		}
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return store.StatusCounts{}, store.NewStoreError("speech task", "count_by_status", "row iteration failed", err)
	}

	return counts, nil
}

// DeprecateAtKey implements store.SpeechTaskStore.DeprecateAtKey
// It marks all non-deprecated tasks at the composite key as deprecated,
// recording note in their error logs.
func (s *PostgresSpeechTaskStore) DeprecateAtKey(
	ctx context.Context,
	schemeID int64,
	schemeIndex int,
	segmentKey domain.SegmentKey,
	note string,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE speech_tasks
		SET status = $1, error_log = $2, updated_at = $3
		WHERE scheme_id = $4 AND scheme_index = $5 AND segment_key = $6 AND status != $7
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		domain.TaskStatusDeprecated,
		note,
		time.Now().UTC(),
		schemeID,
		schemeIndex,
		string(segmentKey),
		domain.TaskStatusDeprecated,
	)

	if err != nil {
		log.Error("failed to deprecate tasks at key",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", schemeID))
		return 0, store.NewStoreError("speech task", "deprecate", "update failed", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected > 0 {
		log.Debug("deprecated tasks at key",
			slog.Int64("scheme_id", schemeID),
			slog.Int("scheme_index", schemeIndex),
			slog.String("segment_key", string(segmentKey)),
			slog.Int64("count", affected))
	}
	return affected, nil
}

// DeleteAtKey implements store.SpeechTaskStore.DeleteAtKey
// It removes every task at the composite key outright.
func (s *PostgresSpeechTaskStore) DeleteAtKey(
	ctx context.Context,
	schemeID int64,
	schemeIndex int,
	segmentKey domain.SegmentKey,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM speech_tasks
		WHERE scheme_id = $1 AND scheme_index = $2 AND segment_key = $3
	`

	result, err := s.db.ExecContext(ctx, query, schemeID, schemeIndex, string(segmentKey))
	if err != nil {
		log.Error("failed to delete tasks at key",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", schemeID))
		return 0, store.NewStoreError("speech task", "delete", "delete failed", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected > 0 {
		log.Debug("deleted tasks at key",
			slog.Int64("scheme_id", schemeID),
			slog.Int("scheme_index", schemeIndex),
			slog.String("segment_key", string(segmentKey)),
			slog.Int64("count", affected))
	}
	return affected, nil
}

// WithTx implements store.SpeechTaskStore.WithTx
// It returns a new store instance bound to the given transaction.
func (s *PostgresSpeechTaskStore) WithTx(tx *sql.Tx) store.SpeechTaskStore {
	return &PostgresSpeechTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// hasPendingAtKey reports whether a pending task occupies the composite key.
func (s *PostgresSpeechTaskStore) hasPendingAtKey(
	ctx context.Context,
	schemeID int64,
	schemeIndex int,
	segmentKey domain.SegmentKey,
) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM speech_tasks
			WHERE scheme_id = $1 AND scheme_index = $2 AND segment_key = $3 AND status = $4
		)
	`

	var pending bool
	err := s.db.QueryRowContext(
		ctx, query, schemeID, schemeIndex, string(segmentKey), domain.TaskStatusPending,
	).Scan(&pending)
	return pending, err
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanTask.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one speech_tasks row in taskColumns order.
func (s *PostgresSpeechTaskStore) scanTask(row rowScanner) (*domain.SpeechTask, error) {
	var task domain.SpeechTask
	var segmentKey string

	err := row.Scan(
		&task.ID,
		&task.SchemeID,
		&task.SchemeIndex,
		&segmentKey,
		&task.Status,
		&task.TextContent,
		&task.VoiceName,
		&task.TTSModel,
		&task.Provider,
		&task.AudioURL,
		&task.RetryCount,
		&task.ErrorLog,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.SegmentKey = domain.SegmentKey(segmentKey)
	return &task, nil
}
