package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/planvox/planvox-api/internal/domain"
)

// StatusCounts summarizes a scheme's tasks by status. Deprecated tasks are
// excluded: they are audit history, not part of the running batch.
type StatusCounts struct {
	Pending int
	Success int
	Failed  int
}

// Total returns the number of counted (non-deprecated) tasks.
func (c StatusCounts) Total() int {
	return c.Pending + c.Success + c.Failed
}

// SpeechTaskStore defines the interface for speech task persistence.
// Version: 1.0
type SpeechTaskStore interface {
	// Create saves a new task to the store.
	// It handles domain validation internally.
	// Returns ErrPendingTaskExists if a pending task already occupies the
	// composite (scheme, index, segment key) slot.
	Create(ctx context.Context, task *domain.SpeechTask) error

	// GetByID retrieves a task by its surrogate ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SpeechTask, error)

	// GetByCompositeKey retrieves the newest non-deprecated task at the
	// given (scheme, index, segment key).
	// Returns ErrTaskNotFound if no such task exists.
	GetByCompositeKey(
		ctx context.Context,
		schemeID int64,
		schemeIndex int,
		segmentKey domain.SegmentKey,
	) (*domain.SpeechTask, error)

	// ListByScheme retrieves all tasks of a scheme ordered by scheme index
	// and segment key, newest first within a key. Returns an empty slice if
	// the scheme has no tasks.
	ListByScheme(ctx context.Context, schemeID int64) ([]*domain.SpeechTask, error)

	// Update saves changes to an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.SpeechTask) error

	// HasPending reports whether any non-deprecated task of the scheme is
	// still pending. Backs the single-active-batch check.
	HasPending(ctx context.Context, schemeID int64) (bool, error)

	// CountByStatus tallies the scheme's non-deprecated tasks.
	CountByStatus(ctx context.Context, schemeID int64) (StatusCounts, error)

	// DeprecateAtKey marks every non-deprecated task at the composite key
	// as deprecated, recording note in their error logs. Returns the number
	// of tasks deprecated.
	DeprecateAtKey(
		ctx context.Context,
		schemeID int64,
		schemeIndex int,
		segmentKey domain.SegmentKey,
		note string,
	) (int64, error)

	// DeleteAtKey removes every task at the composite key outright.
	// Returns the number of tasks deleted.
	DeleteAtKey(
		ctx context.Context,
		schemeID int64,
		schemeIndex int,
		segmentKey domain.SegmentKey,
	) (int64, error)

	// WithTx returns a new SpeechTaskStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) SpeechTaskStore
}
