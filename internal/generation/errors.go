package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrNoImage is returned when the model responded without an embedded
	// output image, regardless of response shape (no candidates, empty
	// content, text-only parts). Callers on the compositing path treat this
	// as a degraded result, not a failure.
	ErrNoImage = errors.New("model response contains no image")

	// ErrInvalidResponse is returned when the model response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from generative model")

	// ErrContentBlocked is returned when the model blocks the content due to
	// safety filters. The compositing path degrades on this too: a blocked
	// response carries no image.
	ErrContentBlocked = errors.New("content blocked by generative model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error calling generative model")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
