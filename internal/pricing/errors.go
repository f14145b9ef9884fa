package pricing

import "errors"

// Sentinel errors returned by the engine. Every error the engine returns wraps
// exactly one of these, so callers can branch with errors.Is.
var (
	// ErrNotFound is returned when a catalog item, labor rule or rebate lookup misses.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for non-positive quantities and unknown option levels.
	ErrValidation = errors.New("validation error")

	// ErrInvalidInput is returned when ROI inputs would make the arithmetic meaningless,
	// such as a zero or negative efficiency rating.
	ErrInvalidInput = errors.New("invalid input")
)
