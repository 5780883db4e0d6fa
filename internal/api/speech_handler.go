package api

import (
	"log/slog"
	"net/http"

	"github.com/planvox/planvox-api/internal/api/shared"
	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/platform/logger"
	"github.com/planvox/planvox-api/internal/service"
)

// SpeechHandler handles speech batch HTTP requests
type SpeechHandler struct {
	batchService service.BatchService
	logger       *slog.Logger
}

// NewSpeechHandler creates a new SpeechHandler
func NewSpeechHandler(batchService service.BatchService, logger *slog.Logger) *SpeechHandler {
	if logger == nil {
		panic("logger cannot be nil for SpeechHandler")
	}

	return &SpeechHandler{
		batchService: batchService,
		logger:       logger.With(slog.String("component", "speech_handler")),
	}
}

// CreateBatch handles POST /api/schemes/{schemeID}/speech/batch requests.
// It queues speech generation for every non-empty segment text in the
// request and responds once the jobs are enqueued, not when they finish.
func (h *SpeechHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	if callerID, ok := getCallerIDFromContext(r); ok {
		log = log.With(slog.String("caller_id", callerID.String()))
	}

	schemeID, err := getPathSchemeID(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	var req CreateBatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Debug("failed to decode batch creation request", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	items := make([]service.BatchItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.BatchItem{
			SchemeIndex: item.SchemeIndex,
			Begin:       item.Begin,
			Middle:      item.Middle,
			End:         item.End,
		}
	}

	result, err := h.batchService.CreateBatch(
		r.Context(),
		schemeID,
		items,
		req.VoiceName,
		req.Provider,
		req.KeepHistory,
	)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("speech batch queued",
		slog.Int64("scheme_id", result.SchemeID),
		slog.Int("total_tasks", result.TotalTasks))
	shared.RespondWithJSON(w, r, http.StatusAccepted, result)
}

// UpdateBatch handles PATCH /api/schemes/{schemeID}/speech/batch requests.
// It replaces the text of the named tasks and requeues them.
func (h *SpeechHandler) UpdateBatch(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	schemeID, err := getPathSchemeID(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	var req UpdateBatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Debug("failed to decode batch update request", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	updates := make([]service.TextUpdate, len(req.Updates))
	for i, u := range req.Updates {
		updates[i] = service.TextUpdate{
			SchemeIndex: u.SchemeIndex,
			SegmentKey:  domain.SegmentKey(u.SegmentKey),
			NewText:     u.NewText,
		}
	}

	result, err := h.batchService.UpdateSelected(r.Context(), schemeID, updates)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("speech batch update queued",
		slog.Int64("scheme_id", result.SchemeID),
		slog.Int("total_tasks", result.TotalTasks))
	shared.RespondWithJSON(w, r, http.StatusAccepted, result)
}

// RetryBatch handles POST /api/schemes/{schemeID}/speech/retries requests.
// It requeues the named slots with fresh generation jobs.
func (h *SpeechHandler) RetryBatch(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	schemeID, err := getPathSchemeID(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	var req RetryRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Debug("failed to decode retry request", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	keys := make([]service.SegmentRef, len(req.FailedIndexes))
	for i, ref := range req.FailedIndexes {
		keys[i] = service.SegmentRef{
			SchemeIndex: ref.SchemeIndex,
			SegmentKey:  domain.SegmentKey(ref.SegmentKey),
		}
	}

	retried, err := h.batchService.RetrySelected(
		r.Context(),
		schemeID,
		keys,
		req.VoiceName,
		req.Provider,
	)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("speech retries queued",
		slog.Int64("scheme_id", schemeID),
		slog.Int("retried", retried))
	shared.RespondWithJSON(w, r, http.StatusAccepted, RetryResponse{Retried: retried})
}

// ListTasks handles GET /api/schemes/{schemeID}/speech/tasks requests.
// It returns the scheme's tasks merged with the document segments they
// address.
func (h *SpeechHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	schemeID, err := getPathSchemeID(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	tasks, err := h.batchService.ListTasks(r.Context(), schemeID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasks)
}

// GetStatus handles GET /api/schemes/{schemeID}/speech/status requests.
// It returns the aggregate outcome of the scheme's current batch.
func (h *SpeechHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	schemeID, err := getPathSchemeID(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	status, err := h.batchService.Aggregate(r.Context(), schemeID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}
