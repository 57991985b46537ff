package music

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad caller input. It is never corrected silently.
	ErrValidation = errors.New("validation error")
	// ErrInvalidOperator is returned for comparison operators other than <, = and >.
	ErrInvalidOperator = fmt.Errorf("%w: invalid comparison operator", ErrValidation)
	// ErrNotFound is returned when the caller explicitly needs a row that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("uniqueness conflict")
	// ErrUnsupportedImage is returned for image bytes or URLs of an unknown type.
	ErrUnsupportedImage = errors.New("unsupported image")
)
