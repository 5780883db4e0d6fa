package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/planvox/planvox-api/internal/api/shared"
	"github.com/planvox/planvox-api/internal/domain"
)

// getCallerIDFromContext extracts the authenticated caller's UUID from the
// request context. The caller ID is placed in the context by the
// authentication middleware.
func getCallerIDFromContext(r *http.Request) (uuid.UUID, bool) {
	return shared.CallerID(r.Context())
}

// getPathSchemeID extracts the scheme ID from the URL path parameters.
// Scheme IDs are assigned upstream by the content-plan service and are
// always positive integers.
func getPathSchemeID(r *http.Request) (int64, error) {
	pathParam := chi.URLParam(r, "schemeID")
	if pathParam == "" {
		return 0, fmt.Errorf("%w: schemeID is required", domain.ErrValidation)
	}

	id, err := strconv.ParseInt(pathParam, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: schemeID must be a positive integer", domain.ErrInvalidID)
	}

	return id, nil
}
