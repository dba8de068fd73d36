package x64

import "errors"

var (
	// ErrUnallocatedOutput is returned when an ir.Out referenced by a
	// Schedule has no entry in its Allocation map.
	ErrUnallocatedOutput = errors.New("x64: output has no allocated location")

	// ErrUnsupportedOp is returned when LowerNode has no rule for an ir.Op.
	ErrUnsupportedOp = errors.New("x64: unsupported op")

	// ErrRegisterOutOfRange is returned when a schedule.Register falls
	// outside the 12 allocatable slots.
	ErrRegisterOutOfRange = errors.New("x64: register out of allocatable range")

	// ErrNilEBB is returned when Lower is given a nil EBB.
	ErrNilEBB = errors.New("x64: nil EBB")

	// ErrUnboundLabel is returned when Bind or a jump target references a
	// Label that was never constructed via NewLabel on the same Assembler.
	ErrUnboundLabel = errors.New("x64: label used across assemblers")
)
