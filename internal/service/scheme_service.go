package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/platform/logger"
	"github.com/planvox/planvox-api/internal/store"
)

// SchemeServiceError is a custom error type for scheme service errors.
type SchemeServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for SchemeServiceError.
func (e *SchemeServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scheme service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("scheme service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *SchemeServiceError) Unwrap() error {
	return e.Err
}

// NewSchemeServiceError creates a new SchemeServiceError.
func NewSchemeServiceError(operation, message string, err error) *SchemeServiceError {
	return &SchemeServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// SchemeRepository defines the repository interface the services need for
// scheme persistence.
type SchemeRepository interface {
	// Create saves a new scheme to the store
	Create(ctx context.Context, scheme *domain.Scheme) error

	// GetByID retrieves a scheme by its unique ID
	GetByID(ctx context.Context, id int64) (*domain.Scheme, error)

	// UpdateTTSState updates the aggregate TTS state of a scheme
	UpdateTTSState(ctx context.Context, id int64, state domain.TTSState) error

	// UpdateDocument replaces the scheme's segment document in one write
	UpdateDocument(ctx context.Context, id int64, document []domain.Segment) error

	// FindProcessing returns IDs of schemes whose TTS state is processing
	FindProcessing(ctx context.Context, limit int) ([]int64, error)

	// WithTx returns a new repository instance that uses the provided transaction
	WithTx(tx *sql.Tx) SchemeRepository

	// DB returns the underlying database connection
	DB() *sql.DB
}

// SchemeService provides scheme-related operations
type SchemeService interface {
	// CreateScheme creates a scheme with its segment document
	CreateScheme(
		ctx context.Context,
		id int64,
		title string,
		document []domain.Segment,
	) (*domain.Scheme, error)

	// GetScheme retrieves a scheme by its ID
	GetScheme(ctx context.Context, id int64) (*domain.Scheme, error)
}

// schemeServiceImpl implements the SchemeService interface
type schemeServiceImpl struct {
	schemeRepo SchemeRepository
	logger     *slog.Logger
}

// NewSchemeService creates a new SchemeService.
// It returns an error if any of the required dependencies are nil.
func NewSchemeService(schemeRepo SchemeRepository, log *slog.Logger) (SchemeService, error) {
	if schemeRepo == nil {
		return nil, NewSchemeServiceError("new", "schemeRepo cannot be nil", nil)
	}

	if log == nil {
		log = slog.Default()
	}

	return &schemeServiceImpl{
		schemeRepo: schemeRepo,
		logger:     log.With(slog.String("component", "scheme_service")),
	}, nil
}

// CreateScheme implements SchemeService.CreateScheme
func (s *schemeServiceImpl) CreateScheme(
	ctx context.Context,
	id int64,
	title string,
	document []domain.Segment,
) (*domain.Scheme, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	scheme, err := domain.NewScheme(id, title, document)
	if err != nil {
		log.Debug("invalid scheme data",
			slog.Int64("scheme_id", id),
			slog.String("error", err.Error()))
		return nil, NewSchemeServiceError("create_scheme", "invalid scheme data", err)
	}

	if err := s.schemeRepo.Create(ctx, scheme); err != nil {
		log.Error("failed to create scheme",
			slog.Int64("scheme_id", id),
			slog.String("error", err.Error()))

		if store.IsDuplicateError(err) {
			return nil, NewSchemeServiceError(
				"create_scheme", "scheme already exists", store.ErrDuplicate)
		}

		return nil, NewSchemeServiceError("create_scheme", "failed to save scheme", err)
	}

	log.Info("created scheme",
		slog.Int64("scheme_id", scheme.ID),
		slog.Int("segment_count", len(scheme.Document)))

	return scheme, nil
}

// GetScheme implements SchemeService.GetScheme
func (s *schemeServiceImpl) GetScheme(ctx context.Context, id int64) (*domain.Scheme, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	scheme, err := s.schemeRepo.GetByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("scheme not found", slog.Int64("scheme_id", id))
			return nil, NewSchemeServiceError(
				"get_scheme", "scheme not found", store.ErrSchemeNotFound)
		}

		log.Error("failed to retrieve scheme",
			slog.Int64("scheme_id", id),
			slog.String("error", err.Error()))
		return nil, NewSchemeServiceError("get_scheme", "failed to retrieve scheme", err)
	}

	return scheme, nil
}
