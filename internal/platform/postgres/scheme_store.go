package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/platform/logger"
	"github.com/planvox/planvox-api/internal/store"
)

// PostgresSchemeStore implements the store.SchemeStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSchemeStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSchemeStore creates a new PostgreSQL implementation of the SchemeStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresSchemeStore(db store.DBTX, logger *slog.Logger) *PostgresSchemeStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSchemeStore{
		db:     db,
		logger: logger.With(slog.String("component", "scheme_store")),
	}
}

// Ensure PostgresSchemeStore implements store.SchemeStore interface
var _ store.SchemeStore = (*PostgresSchemeStore)(nil)

// Create implements store.SchemeStore.Create
// It saves a new scheme and its document to the database, handling domain validation.
// Returns store.ErrDuplicate if a scheme with the same ID already exists; the
// primary key backs the same rule against concurrent writers.
func (s *PostgresSchemeStore) Create(ctx context.Context, scheme *domain.Scheme) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := scheme.Validate(); err != nil {
		log.Warn("scheme validation failed during create",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", scheme.ID))
		return err
	}

	exists, err := s.exists(ctx, scheme.ID)
	if err != nil {
		log.Error("failed to check scheme existence",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", scheme.ID))
		return store.NewStoreError("scheme", "create", "existence check failed", err)
	}
	if exists {
		return fmt.Errorf("%w: scheme %d", store.ErrDuplicate, scheme.ID)
	}

	document, err := json.Marshal(scheme.Document)
	if err != nil {
		log.Error("failed to marshal scheme document",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", scheme.ID))
		return fmt.Errorf("failed to marshal scheme document: %w", err)
	}

	query := `
		INSERT INTO schemes (id, title, tts_state, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		scheme.ID,
		scheme.Title,
		scheme.TTSState,
		document,
		scheme.CreatedAt,
		scheme.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create scheme",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", scheme.ID))
		return MapError(err)
	}

	log.Info("scheme created successfully",
		slog.Int64("scheme_id", scheme.ID),
		slog.Int("segments", len(scheme.Document)))
	return nil
}

// GetByID implements store.SchemeStore.GetByID
// It retrieves a scheme by its unique ID, including its parsed document.
// Returns store.ErrSchemeNotFound if the scheme does not exist.
func (s *PostgresSchemeStore) GetByID(ctx context.Context, id int64) (*domain.Scheme, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving scheme by ID", slog.Int64("scheme_id", id))

	query := `
		SELECT id, title, tts_state, document, created_at, updated_at
		FROM schemes
		WHERE id = $1
	`

	var scheme domain.Scheme
	var document []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&scheme.ID,
		&scheme.Title,
		&scheme.TTSState,
		&document,
		&scheme.CreatedAt,
		&scheme.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("scheme not found", slog.Int64("scheme_id", id))
			return nil, store.ErrSchemeNotFound
		}
		log.Error("failed to get scheme by ID",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", id))
		return nil, store.NewStoreError("scheme", "get", "query failed", err)
	}

	if len(document) > 0 {
		if err := json.Unmarshal(document, &scheme.Document); err != nil {
			log.Error("failed to unmarshal scheme document",
				slog.String("error", err.Error()),
				slog.Int64("scheme_id", id))
			return nil, fmt.Errorf("failed to unmarshal scheme document: %w", err)
		}
	}

	log.Debug("scheme retrieved successfully",
		slog.Int64("scheme_id", id),
		slog.String("tts_state", scheme.TTSState.String()))
	return &scheme, nil
}

// UpdateTTSState implements store.SchemeStore.UpdateTTSState
// It updates the aggregate TTS state of an existing scheme.
// Returns store.ErrSchemeNotFound if the scheme does not exist.
// Returns validation errors if the state is invalid.
func (s *PostgresSchemeStore) UpdateTTSState(ctx context.Context, id int64, state domain.TTSState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("updating scheme tts state",
		slog.Int64("scheme_id", id),
		slog.String("tts_state", state.String()))

	// Validate the state through a throwaway scheme; the other fields only
	// satisfy the entity validator.
	tempScheme := &domain.Scheme{
		ID:        id,
		Title:     "temp",
		TTSState:  state,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := tempScheme.Validate(); err != nil {
		log.Warn("scheme validation failed during state update",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", id))
		return err
	}

	query := `
		UPDATE schemes
		SET tts_state = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		state,
		time.Now().UTC(),
		id,
	)

	if err != nil {
		log.Error("failed to update scheme tts state",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", id))
		return store.NewStoreError("scheme", "update_state", "update failed", err)
	}

	if err := CheckRowsAffected(result, "scheme"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("scheme not found for state update",
				slog.Int64("scheme_id", id))
			return store.ErrSchemeNotFound
		}
		return store.NewStoreError("scheme", "update_state", "rows affected check failed", err)
	}

	log.Info("scheme tts state updated",
		slog.Int64("scheme_id", id),
		slog.String("tts_state", state.String()))
	return nil
}

// UpdateDocument implements store.SchemeStore.UpdateDocument
// It replaces the scheme's segment document in one write.
// Callers must hold the scheme's serialization lock.
// Returns store.ErrSchemeNotFound if the scheme does not exist.
func (s *PostgresSchemeStore) UpdateDocument(ctx context.Context, id int64, document []domain.Segment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	payload, err := json.Marshal(document)
	if err != nil {
		log.Error("failed to marshal scheme document",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", id))
		return fmt.Errorf("failed to marshal scheme document: %w", err)
	}

	query := `
		UPDATE schemes
		SET document = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		payload,
		time.Now().UTC(),
		id,
	)

	if err != nil {
		log.Error("failed to update scheme document",
			slog.String("error", err.Error()),
			slog.Int64("scheme_id", id))
		return store.NewStoreError("scheme", "update_document", "update failed", err)
	}

	if err := CheckRowsAffected(result, "scheme"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("scheme not found for document update",
				slog.Int64("scheme_id", id))
			return store.ErrSchemeNotFound
		}
		return store.NewStoreError("scheme", "update_document", "rows affected check failed", err)
	}

	log.Debug("scheme document updated",
		slog.Int64("scheme_id", id),
		slog.Int("segments", len(document)))
	return nil
}

// FindProcessing implements store.SchemeStore.FindProcessing
// It returns the IDs of schemes whose TTS state is processing, oldest first.
func (s *PostgresSchemeStore) FindProcessing(ctx context.Context, limit int) ([]int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id
		FROM schemes
		WHERE tts_state = $1
		ORDER BY updated_at ASC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, domain.TTSStateProcessing, limit)
	if err != nil {
		log.Error("failed to query processing schemes",
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("scheme", "find_processing", "query failed", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			log.Error("failed to scan scheme id",
				slog.String("error", err.Error()))
			return nil, store.NewStoreError("scheme", "find_processing", "row scan failed", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("scheme", "find_processing", "row iteration failed", err)
	}

	return ids, nil
}

// WithTx implements store.SchemeStore.WithTx
// It returns a new store instance bound to the given transaction.
func (s *PostgresSchemeStore) WithTx(tx *sql.Tx) store.SchemeStore {
	return &PostgresSchemeStore{
		db:     tx,
		logger: s.logger,
	}
}

// exists reports whether a scheme row with the given ID is present.
func (s *PostgresSchemeStore) exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM schemes WHERE id = $1)`

	var found bool
	err := s.db.QueryRowContext(ctx, query, id).Scan(&found)
	return found, err
}
