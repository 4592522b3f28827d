// Package service provides application-level services for try-on submission
// and admission control.
package service

import (
	"errors"
	"fmt"

	"github.com/lasprendas/tryon-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check these with errors.Is(); the API layer maps them to HTTP
// status codes.
var (
	// ErrCapacityExceeded indicates the processing queue is saturated and the
	// submission was rejected before any row was written.
	// API layer should map this to HTTP 429 Too Many Requests.
	ErrCapacityExceeded = errors.New("processing queue capacity exceeded")

	// ErrNoGarments indicates a submission resolved to an empty garment set.
	// API layer should map this to HTTP 400 Bad Request.
	ErrNoGarments = errors.New("no garments provided")

	// ErrGarmentNotFound indicates that the garment does not exist or is not
	// owned by the caller.
	ErrGarmentNotFound = errors.New("garment not found")

	// ErrSessionNotFound indicates that the try-on session does not exist or
	// is not owned by the caller.
	ErrSessionNotFound = errors.New("try-on session not found")
)

// TryOnServiceError wraps errors from the try-on service with context.
type TryOnServiceError struct {
	// Operation is the operation that failed (e.g., "submit", "get_session")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for TryOnServiceError.
func (e *TryOnServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("try-on service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("try-on service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TryOnServiceError) Unwrap() error {
	return e.Err
}

// NewTryOnServiceError creates a new TryOnServiceError.
// It returns known sentinel errors directly without wrapping.
func NewTryOnServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	// Check for service-defined sentinel errors
	if errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrNoGarments) ||
		errors.Is(err, ErrGarmentNotFound) ||
		errors.Is(err, ErrSessionNotFound) {
		return err
	}

	// Check for store-level sentinel errors that should be mapped to service-level ones
	if errors.Is(err, store.ErrGarmentNotFound) {
		return ErrGarmentNotFound
	}
	if errors.Is(err, store.ErrSessionNotFound) {
		return ErrSessionNotFound
	}

	// If not a sentinel to be returned directly, wrap it
	return &TryOnServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
