package cft

import (
	"errors"
	"fmt"
)

var (
	// ErrNilDataflow indicates Analyze was given a nil *ir.Dataflow.
	ErrNilDataflow = errors.New("cft: nil dataflow")

	// ErrNilTree indicates Analyze was given a nil CFT root.
	ErrNilTree = errors.New("cft: nil tree")

	// ErrInvalidHotIndex indicates a Switch's HotIndex does not address
	// any of its Cases or its Default.
	ErrInvalidHotIndex = errors.New("cft: hot_index out of range")

	// ErrUnknownCFTNode indicates a value implementing CFT is neither
	// Switch nor Merge.
	ErrUnknownCFTNode = errors.New("cft: unknown node type")
)

func errHotIndex(hotIndex int) error {
	return fmt.Errorf("%w: %d", ErrInvalidHotIndex, hotIndex)
}
