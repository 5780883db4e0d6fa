package store

import (
	"context"
	"database/sql"

	"github.com/planvox/planvox-api/internal/domain"
)

// SchemeStore defines the interface for scheme data persistence.
// Version: 1.0
type SchemeStore interface {
	// Create saves a new scheme to the store.
	// It handles domain validation internally.
	// Returns validation errors from the domain Scheme if data is invalid.
	Create(ctx context.Context, scheme *domain.Scheme) error

	// GetByID retrieves a scheme by its unique ID, including its parsed
	// document. Returns ErrSchemeNotFound if the scheme does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Scheme, error)

	// UpdateTTSState updates the aggregate TTS state of an existing scheme.
	// Returns ErrSchemeNotFound if the scheme does not exist.
	// Returns validation errors if the state is invalid.
	UpdateTTSState(ctx context.Context, id int64, state domain.TTSState) error

	// UpdateDocument replaces the scheme's segment document in one write.
	// Callers must hold the scheme's serialization lock.
	// Returns ErrSchemeNotFound if the scheme does not exist.
	UpdateDocument(ctx context.Context, id int64, document []domain.Segment) error

	// FindProcessing returns the IDs of schemes whose TTS state is
	// processing, oldest first. Used by the reconciliation sweep to heal
	// missed completion events.
	FindProcessing(ctx context.Context, limit int) ([]int64, error)

	// WithTx returns a new SchemeStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) SchemeStore
}
