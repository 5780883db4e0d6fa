package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/keylock"
	"github.com/planvox/planvox-api/internal/platform/logger"
	"github.com/planvox/planvox-api/internal/store"
)

// DocumentServiceError is a custom error type for document service errors.
type DocumentServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for DocumentServiceError.
func (e *DocumentServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("document service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *DocumentServiceError) Unwrap() error {
	return e.Err
}

// NewDocumentServiceError creates a new DocumentServiceError.
func NewDocumentServiceError(operation, message string, err error) *DocumentServiceError {
	return &DocumentServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// DocumentService serializes mutations of scheme documents. Three workers
// may finish the three segment keys of one index at arbitrary times; the
// per-scheme lock makes their read-modify-write cycles strictly sequential
// so no write-back clobbers a sibling audio URL.
type DocumentService interface {
	// SetSegmentAudio writes one audio URL sub-field of the segment at
	// schemeIndex, leaving sibling fields untouched. A missing scheme is a
	// logged no-op; an out-of-range index fails with ErrSegmentNotFound.
	SetSegmentAudio(
		ctx context.Context,
		schemeID int64,
		schemeIndex int,
		segmentKey domain.SegmentKey,
		audioURL string,
	) error
}

// documentServiceImpl implements the DocumentService interface
type documentServiceImpl struct {
	schemeRepo SchemeRepository
	locks      *keylock.KeyedLock
	logger     *slog.Logger
}

// NewDocumentService creates a new DocumentService.
// It returns an error if any of the required dependencies are nil.
func NewDocumentService(
	schemeRepo SchemeRepository,
	locks *keylock.KeyedLock,
	log *slog.Logger,
) (DocumentService, error) {
	if schemeRepo == nil {
		return nil, NewDocumentServiceError("new", "schemeRepo cannot be nil", nil)
	}
	if locks == nil {
		return nil, NewDocumentServiceError("new", "locks cannot be nil", nil)
	}

	if log == nil {
		log = slog.Default()
	}

	return &documentServiceImpl{
		schemeRepo: schemeRepo,
		locks:      locks,
		logger:     log.With(slog.String("component", "document_service")),
	}, nil
}

// SetSegmentAudio implements DocumentService.SetSegmentAudio
func (s *documentServiceImpl) SetSegmentAudio(
	ctx context.Context,
	schemeID int64,
	schemeIndex int,
	segmentKey domain.SegmentKey,
	audioURL string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	release, err := s.locks.Acquire(ctx, schemeID)
	if err != nil {
		return NewDocumentServiceError(
			"set_segment_audio", "canceled while acquiring scheme lock", err)
	}
	defer release()

	scheme, err := s.schemeRepo.GetByID(ctx, schemeID)
	if err != nil {
		// A scheme deleted while its jobs are still running is an expected
		// race, not an error.
		if store.IsNotFoundError(err) {
			log.Warn("scheme disappeared before audio write-back",
				slog.Int64("scheme_id", schemeID),
				slog.Int("scheme_index", schemeIndex),
				slog.String("segment_key", string(segmentKey)))
			return nil
		}
		return NewDocumentServiceError("set_segment_audio", "failed to load scheme", err)
	}

	segment, err := scheme.SegmentAt(schemeIndex)
	if err != nil {
		return NewDocumentServiceError(
			"set_segment_audio",
			fmt.Sprintf("index %d does not address a segment", schemeIndex),
			ErrSegmentNotFound)
	}

	if err := segment.AudioURL.SetURL(segmentKey, audioURL); err != nil {
		return NewDocumentServiceError("set_segment_audio", "invalid segment key", err)
	}

	if err := s.schemeRepo.UpdateDocument(ctx, schemeID, scheme.Document); err != nil {
		if store.IsNotFoundError(err) {
			log.Warn("scheme disappeared during audio write-back",
				slog.Int64("scheme_id", schemeID))
			return nil
		}
		return NewDocumentServiceError("set_segment_audio", "failed to persist document", err)
	}

	log.Debug("segment audio url written",
		slog.Int64("scheme_id", schemeID),
		slog.Int("scheme_index", schemeIndex),
		slog.String("segment_key", string(segmentKey)))

	return nil
}
