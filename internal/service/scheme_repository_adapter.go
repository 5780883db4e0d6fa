package service

import (
	"context"
	"database/sql"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/store"
)

// NewSchemeRepositoryAdapter creates a new adapter that allows a
// store.SchemeStore to be used where a SchemeRepository is expected.
func NewSchemeRepositoryAdapter(schemeStore store.SchemeStore, db *sql.DB) SchemeRepository {
	return &schemeRepositoryAdapter{
		schemeStore: schemeStore,
		db:          db,
	}
}

// schemeRepositoryAdapter adapts a store.SchemeStore to the SchemeRepository interface
type schemeRepositoryAdapter struct {
	schemeStore store.SchemeStore
	db          *sql.DB
}

// Create implements SchemeRepository.Create
func (a *schemeRepositoryAdapter) Create(ctx context.Context, scheme *domain.Scheme) error {
	return a.schemeStore.Create(ctx, scheme)
}

// GetByID implements SchemeRepository.GetByID
func (a *schemeRepositoryAdapter) GetByID(ctx context.Context, id int64) (*domain.Scheme, error) {
	return a.schemeStore.GetByID(ctx, id)
}

// UpdateTTSState implements SchemeRepository.UpdateTTSState
func (a *schemeRepositoryAdapter) UpdateTTSState(
	ctx context.Context,
	id int64,
	state domain.TTSState,
) error {
	return a.schemeStore.UpdateTTSState(ctx, id, state)
}

// UpdateDocument implements SchemeRepository.UpdateDocument
func (a *schemeRepositoryAdapter) UpdateDocument(
	ctx context.Context,
	id int64,
	document []domain.Segment,
) error {
	return a.schemeStore.UpdateDocument(ctx, id, document)
}

// FindProcessing implements SchemeRepository.FindProcessing
func (a *schemeRepositoryAdapter) FindProcessing(ctx context.Context, limit int) ([]int64, error) {
	return a.schemeStore.FindProcessing(ctx, limit)
}

// WithTx implements SchemeRepository.WithTx
func (a *schemeRepositoryAdapter) WithTx(tx *sql.Tx) SchemeRepository {
	return &schemeRepositoryAdapter{
		schemeStore: a.schemeStore.WithTx(tx),
		db:          a.db,
	}
}

// DB implements SchemeRepository.DB
func (a *schemeRepositoryAdapter) DB() *sql.DB {
	return a.db
}
