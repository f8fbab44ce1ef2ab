package pipeline

import (
	"errors"
	"fmt"
)

// Error categories. Every error Run or VisibleSources returns for bad
// input or an empty result wraps exactly one of these.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyResult  = errors.New("empty result")
)

var (
	ErrNoSources = fmt.Errorf("%w: no sources", ErrInvalidInput)
	ErrNoCamera  = fmt.Errorf("%w: no camera", ErrInvalidInput)

	ErrNoPointsInFrustum = fmt.Errorf("%w: no points inside the camera frustum", ErrEmptyResult)
	ErrAllPointsSkipped  = fmt.Errorf("%w: every candidate was skipped by LOD", ErrEmptyResult)
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
