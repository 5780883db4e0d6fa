package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvox/planvox-api/internal/api/shared"
	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/service"
	"github.com/planvox/planvox-api/internal/service/auth"
	"github.com/planvox/planvox-api/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"token not yet valid", auth.ErrTokenNotYetValid, http.StatusUnauthorized},
		{"missing token", auth.ErrMissingToken, http.StatusUnauthorized},
		{"scheme not found", store.ErrSchemeNotFound, http.StatusNotFound},
		{"task not found", store.ErrTaskNotFound, http.StatusNotFound},
		{"segment not found", service.ErrSegmentNotFound, http.StatusNotFound},
		{"batch in progress", service.ErrBatchInProgress, http.StatusConflict},
		{"duplicate entity", store.ErrDuplicate, http.StatusConflict},
		{"pending task exists", store.ErrPendingTaskExists, http.StatusConflict},
		{"no tasks", service.ErrNoTasks, http.StatusBadRequest},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"validation failure", domain.ErrValidation, http.StatusBadRequest},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest},
		{"invalid segment key", domain.ErrInvalidSegmentKey, http.StatusBadRequest},
		{"segment index out of range", domain.ErrSegmentIndexOutOfRange, http.StatusBadRequest},
		{"unknown error", errors.New("database exploded"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MapErrorToStatusCode(tc.err))
		})
	}
}

// TestMapErrorToStatusCodeWrapped verifies mapping sees through fmt.Errorf
// and service error wrapping.
func TestMapErrorToStatusCodeWrapped(t *testing.T) {
	wrapped := fmt.Errorf("create batch: %w", service.ErrBatchInProgress)
	assert.Equal(t, http.StatusConflict, MapErrorToStatusCode(wrapped))

	svcErr := service.NewBatchServiceError("update", "task lookup failed", store.ErrTaskNotFound)
	assert.Equal(t, http.StatusNotFound, MapErrorToStatusCode(svcErr))

	schemeErr := service.NewSchemeServiceError("create", "scheme insert failed", store.ErrDuplicate)
	assert.Equal(t, http.StatusConflict, MapErrorToStatusCode(schemeErr))
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, "An unexpected error occurred"},
		{"invalid token", auth.ErrInvalidToken, "Invalid token"},
		{"expired token", auth.ErrExpiredToken, "Invalid token"},
		{"scheme not found", store.ErrSchemeNotFound, "Scheme not found"},
		{"task not found", store.ErrTaskNotFound, "Speech task not found"},
		{"segment not found", service.ErrSegmentNotFound, "Segment not found in scheme document"},
		{"batch in progress", service.ErrBatchInProgress, "Scheme already has a batch in progress"},
		{"pending task exists", store.ErrPendingTaskExists, "Scheme already has a batch in progress"},
		{"duplicate scheme", store.ErrDuplicate, "Scheme already exists"},
		{"no tasks", service.ErrNoTasks, "Scheme has no speech tasks"},
		{"invalid segment key", domain.ErrInvalidSegmentKey, "Invalid segment key"},
		{"segment index out of range", domain.ErrSegmentIndexOutOfRange, "Segment index out of range"},
		{"invalid entity", store.ErrInvalidEntity, "Invalid request data"},
		{"unknown error", errors.New("pg: connection reset"), "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, GetSafeErrorMessage(tc.err))
		})
	}
}

// TestGetSafeErrorMessageNeverLeaks spot-checks that raw driver detail does
// not surface in client messages.
func TestGetSafeErrorMessageNeverLeaks(t *testing.T) {
	raw := errors.New(`connect to postgres://planvox:hunter2@db:5432/planvox failed`)
	msg := GetSafeErrorMessage(fmt.Errorf("scheme store: %w", raw))
	assert.Equal(t, "An unexpected error occurred", msg)
	assert.NotContains(t, msg, "hunter2")
}

func TestSanitizeValidationError(t *testing.T) {
	t.Run("real validator error", func(t *testing.T) {
		err := shared.ValidateRequest(CreateBatchRequest{})
		require.Error(t, err)
		assert.Equal(t, "Invalid Items: required field", SanitizeValidationError(err))
	})

	t.Run("oneof violation", func(t *testing.T) {
		req := UpdateBatchRequest{
			Updates: []TextUpdatePayload{
				{SchemeIndex: 0, SegmentKey: "intro", NewText: "x"},
			},
		}
		err := shared.ValidateRequest(req)
		require.Error(t, err)
		assert.Equal(t, "Invalid SegmentKey: invalid value", SanitizeValidationError(err))
	})

	t.Run("non validator error", func(t *testing.T) {
		assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("boom")))
	})
}
