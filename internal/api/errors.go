package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/service"
	"github.com/planvox/planvox-api/internal/service/auth"
	"github.com/planvox/planvox-api/internal/store"
)

// MapErrorToStatusCode translates internal errors into HTTP status codes.
// Unknown errors map to 500 so internal failure detail never shapes the
// response.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	case errors.Is(err, store.ErrSchemeNotFound),
		errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, service.ErrSegmentNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrBatchInProgress),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, service.ErrNoTasks),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidSegmentKey),
		errors.Is(err, domain.ErrSegmentIndexOutOfRange):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns the client-facing message for an error. Only
// errors recognized here get a specific message; everything else collapses
// to a generic one so driver and store detail stays out of response bodies.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, store.ErrSchemeNotFound):
		return "Scheme not found"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Speech task not found"

	case errors.Is(err, service.ErrSegmentNotFound):
		return "Segment not found in scheme document"

	// ErrPendingTaskExists is the store-level form of a concurrent batch;
	// both read the same to a client.
	case errors.Is(err, service.ErrBatchInProgress),
		errors.Is(err, store.ErrPendingTaskExists):
		return "Scheme already has a batch in progress"

	case errors.Is(err, store.ErrDuplicate):
		return "Scheme already exists"

	case errors.Is(err, service.ErrNoTasks):
		return "Scheme has no speech tasks"

	case errors.Is(err, domain.ErrInvalidSegmentKey):
		return "Invalid segment key"

	case errors.Is(err, domain.ErrSegmentIndexOutOfRange):
		return "Segment index out of range"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError reduces a validator error to a short message
// naming the first failing field and the rule it broke. Non-validator
// errors get a generic message.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}

	fe := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), validationTagMessage(fe.Tag()))
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gt", "gte":
		return "out of range"
	default:
		return "validation failed"
	}
}
