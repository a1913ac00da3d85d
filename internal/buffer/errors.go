package buffer

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the buffer, recorder and player packages.
// None of these are fatal: the failing call degrades to a no-op or returns the
// buffer's empty frame and the instance stays usable.
var (
	// ErrNoBuffer is returned when a component is used before a buffer is bound.
	ErrNoBuffer = errors.New("no buffer bound")
	// ErrAllocation covers invalid dimensions or frame counts.
	ErrAllocation = errors.New("bad dimensions")
	// ErrNotAllocated is an ErrAllocation raised by operations that need a shaped buffer.
	ErrNotAllocated = fmt.Errorf("buffer not allocated: %w", ErrAllocation)
	// ErrDimensionMismatch is returned when a frame's shape disagrees with the buffer's.
	ErrDimensionMismatch = errors.New("wrong dimensions")
	// ErrEmptyBuffer is returned by operations that need at least one frame.
	ErrEmptyBuffer = errors.New("buffer is empty")
)
