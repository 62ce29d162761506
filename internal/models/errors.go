package models

import "errors"

// Sentinel errors shared by intake, generator and engine.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidInput indicates an empty batch after filtering, or a batch above
	// the accepted count. The run does not start.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDecodeFailure indicates an accepted file could not be converted to a
	// displayable frame. Only that frame is affected.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrRenderFailure indicates the prediction generator could not obtain or
	// encode a drawing surface. Fatal to the run.
	ErrRenderFailure = errors.New("render failure")
)
