package schedule

import "errors"

var (
	// ErrNilDataflow indicates Run was given a nil *ir.Dataflow.
	ErrNilDataflow = errors.New("schedule: nil dataflow")

	// ErrNoRoots indicates Run was given zero root nodes to schedule.
	ErrNoRoots = errors.New("schedule: no root nodes")

	// ErrNoRegisters indicates Run was given zero or negative allocatable
	// registers.
	ErrNoRegisters = errors.New("schedule: no allocatable registers")

	// ErrUnschedulable indicates a region could not be scheduled: a single
	// node needs more simultaneously live outputs than there are
	// registers, even after evicting every other dirty register.
	ErrUnschedulable = errors.New("schedule: region needs more registers than are available")
)
