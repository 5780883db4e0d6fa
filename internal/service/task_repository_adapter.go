package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/store"
)

// NewTaskRepositoryAdapter creates a new adapter that allows a
// store.SpeechTaskStore to be used where a TaskRepository is expected.
func NewTaskRepositoryAdapter(taskStore store.SpeechTaskStore, db *sql.DB) TaskRepository {
	return &taskRepositoryAdapter{
		taskStore: taskStore,
		db:        db,
	}
}

// taskRepositoryAdapter adapts a store.SpeechTaskStore to the TaskRepository interface
type taskRepositoryAdapter struct {
	taskStore store.SpeechTaskStore
	db        *sql.DB
}

// Create implements TaskRepository.Create
func (a *taskRepositoryAdapter) Create(ctx context.Context, task *domain.SpeechTask) error {
	return a.taskStore.Create(ctx, task)
}

// GetByID implements TaskRepository.GetByID
func (a *taskRepositoryAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.SpeechTask, error) {
	return a.taskStore.GetByID(ctx, id)
}

// GetByCompositeKey implements TaskRepository.GetByCompositeKey
func (a *taskRepositoryAdapter) GetByCompositeKey(
	ctx context.Context,
	schemeID int64,
	schemeIndex int,
	segmentKey domain.SegmentKey,
) (*domain.SpeechTask, error) {
	return a.taskStore.GetByCompositeKey(ctx, schemeID, schemeIndex, segmentKey)
}

// ListByScheme implements TaskRepository.ListByScheme
func (a *taskRepositoryAdapter) ListByScheme(
	ctx context.Context,
	schemeID int64,
) ([]*domain.SpeechTask, error) {
	return a.taskStore.ListByScheme(ctx, schemeID)
}

// Update implements TaskRepository.Update
func (a *taskRepositoryAdapter) Update(ctx context.Context, task *domain.SpeechTask) error {
	return a.taskStore.Update(ctx, task)
}

// HasPending implements TaskRepository.HasPending
func (a *taskRepositoryAdapter) HasPending(ctx context.Context, schemeID int64) (bool, error) {
	return a.taskStore.HasPending(ctx, schemeID)
}

// CountByStatus implements TaskRepository.CountByStatus
func (a *taskRepositoryAdapter) CountByStatus(
	ctx context.Context,
	schemeID int64,
) (store.StatusCounts, error) {
	return a.taskStore.CountByStatus(ctx, schemeID)
}

// DeprecateAtKey implements TaskRepository.DeprecateAtKey
func (a *taskRepositoryAdapter) DeprecateAtKey(
	ctx context.Context,
	schemeID int64,
	schemeIndex int,
	segmentKey domain.SegmentKey,
	note string,
) (int64, error) {
	return a.taskStore.DeprecateAtKey(ctx, schemeID, schemeIndex, segmentKey, note)
}

// DeleteAtKey implements TaskRepository.DeleteAtKey
func (a *taskRepositoryAdapter) DeleteAtKey(
	ctx context.Context,
	schemeID int64,
	schemeIndex int,
	segmentKey domain.SegmentKey,
) (int64, error) {
	return a.taskStore.DeleteAtKey(ctx, schemeID, schemeIndex, segmentKey)
}

// WithTx implements TaskRepository.WithTx
func (a *taskRepositoryAdapter) WithTx(tx *sql.Tx) TaskRepository {
	return &taskRepositoryAdapter{
		taskStore: a.taskStore.WithTx(tx),
		db:        a.db,
	}
}

// DB implements TaskRepository.DB
func (a *taskRepositoryAdapter) DB() *sql.DB {
	return a.db
}
