package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lasprendas/tryon-api/internal/domain"
	"github.com/lasprendas/tryon-api/internal/service"
	"github.com/lasprendas/tryon-api/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{service.ErrCapacityExceeded, http.StatusTooManyRequests},
		{service.ErrNoGarments, http.StatusBadRequest},
		{service.ErrSessionNotFound, http.StatusNotFound},
		{service.ErrGarmentNotFound, http.StatusNotFound},
		{store.ErrSessionNotFound, http.StatusNotFound},
		{domain.NewValidationError("id", "has invalid format", domain.ErrInvalidID), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", service.ErrCapacityExceeded), http.StatusTooManyRequests},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err), "error: %v", tc.err)
	}
}

func TestGetSafeErrorMessage_NeverLeaksDetails(t *testing.T) {
	t.Parallel()

	internal := errors.New("pq: connection refused host=10.0.0.5")
	msg := GetSafeErrorMessage(internal)
	assert.Equal(t, "An unexpected error occurred", msg)

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, "Service is busy, please retry later", GetSafeErrorMessage(service.ErrCapacityExceeded))
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	err := errors.New(
		"Key: 'SubmitTryOnRequest.Category' Error:Field validation for 'Category' failed on the 'max' tag",
	)
	assert.Equal(t, "Invalid Category: too long", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("boom")))
}
