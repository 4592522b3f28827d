package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lasprendas/tryon-api/internal/api/shared"
	"github.com/lasprendas/tryon-api/internal/domain"
	"github.com/lasprendas/tryon-api/internal/service"
	"github.com/lasprendas/tryon-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Backpressure
	case errors.Is(err, service.ErrCapacityExceeded):
		return http.StatusTooManyRequests

	// Bad request errors
	case errors.Is(err, service.ErrNoGarments),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrGarmentNotFound),
		errors.Is(err, store.ErrSessionNotFound),
		errors.Is(err, store.ErrGarmentNotFound):
		return http.StatusNotFound

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrCapacityExceeded):
		return "Service is busy, please retry later"

	case errors.Is(err, service.ErrNoGarments):
		return "At least one garment is required"

	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, store.ErrSessionNotFound):
		return "Try-on session not found"

	case errors.Is(err, service.ErrGarmentNotFound),
		errors.Is(err, store.ErrGarmentNotFound):
		return "Garment not found"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes an error response for the given error, mapping it to
// a status code and a sanitized message. An explicit userMessage overrides
// the derived one.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, userMessage string) {
	status := MapErrorToStatusCode(err)
	if userMessage == "" {
		userMessage = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, userMessage, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'SubmitTryOnRequest.Stance' Error:Field validation for 'Stance' failed on the 'oneof' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid identifier"
	default:
		return "validation failed"
	}
}
