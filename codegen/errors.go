package codegen

import "errors"

var (
	// ErrNilHotPathTree indicates Compile was given a nil tree.
	ErrNilHotPathTree = errors.New("codegen: nil hot-path tree")

	// ErrLengthMismatch indicates ResolveMoves was given current/target
	// slices of different lengths.
	ErrLengthMismatch = errors.New("codegen: current/target length mismatch")

	// ErrConflictingDestination indicates two distinct values were asked
	// to land in the same final Variable.
	ErrConflictingDestination = errors.New("codegen: two values target the same location")
)
