package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planvox/planvox-api/internal/api/shared"
	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/platform/logger"
	"github.com/planvox/planvox-api/internal/service"
)

// SchemeHandler handles scheme-related HTTP requests
type SchemeHandler struct {
	schemeService service.SchemeService
	logger        *slog.Logger
}

// NewSchemeHandler creates a new SchemeHandler
func NewSchemeHandler(schemeService service.SchemeService, logger *slog.Logger) *SchemeHandler {
	if logger == nil {
		panic("logger cannot be nil for SchemeHandler")
	}

	return &SchemeHandler{
		schemeService: schemeService,
		logger:        logger.With(slog.String("component", "scheme_handler")),
	}
}

// CreateScheme handles POST /api/schemes requests.
// It registers a scheme together with its segment document.
func (h *SchemeHandler) CreateScheme(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	if callerID, ok := getCallerIDFromContext(r); ok {
		log = log.With(slog.String("caller_id", callerID.String()))
	}

	var req CreateSchemeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Debug("failed to decode scheme creation request", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	document := make([]domain.Segment, len(req.Document))
	for i, seg := range req.Document {
		document[i] = domain.Segment{
			PlanNumber:    seg.PlanNumber,
			SchemeContent: seg.SchemeContent,
		}
	}

	scheme, err := h.schemeService.CreateScheme(r.Context(), req.ID, req.Title, document)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("scheme created",
		slog.Int64("scheme_id", scheme.ID),
		slog.Int("segments", len(scheme.Document)))
	shared.RespondWithJSON(w, r, http.StatusCreated, scheme)
}

// GetScheme handles GET /api/schemes/{schemeID} requests.
func (h *SchemeHandler) GetScheme(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	schemeID, err := getPathSchemeID(r)
	if err != nil {
		log.Debug("invalid schemeID path parameter",
			slog.String("value", chi.URLParam(r, "schemeID")))
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	scheme, err := h.schemeService.GetScheme(r.Context(), schemeID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, scheme)
}
