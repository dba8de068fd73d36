package buffer

import "errors"

var (
	// ErrInvalidCapacity is returned when New is asked for a non-positive
	// buffer size.
	ErrInvalidCapacity = errors.New("buffer: capacity must be positive")

	// ErrOverflow is returned when a caller writes past the mapped
	// capacity.
	ErrOverflow = errors.New("buffer: write exceeds capacity")

	// ErrClosed is returned by any operation on a Buffer after Close.
	ErrClosed = errors.New("buffer: use after close")
)
