package simulate

import "errors"

var (
	// ErrDeadValue indicates an Action read a Value that has no current
	// binding — it was never a live-in and nothing has written it yet.
	ErrDeadValue = errors.New("simulate: read a dead value")

	// ErrEmptyLiveIn indicates NewSimulation was given zero live-in Values.
	ErrEmptyLiveIn = errors.New("simulate: simulation requires at least one live-in")

	// ErrUnknownAction indicates Action() was handed an ir.Action of a type
	// this package does not know how to simulate.
	ErrUnknownAction = errors.New("simulate: unknown action type")
)
