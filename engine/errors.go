package engine

import "errors"

var (
	// ErrNoInitialStates indicates a Machine's InitialStates returned an
	// empty list — there is nothing to compile a reachability walk from.
	ErrNoInitialStates = errors.New("engine: machine has no initial states")

	// ErrNonExhaustiveTransitions indicates a state's transition list ran
	// out without a guard that always matches (an ir.Always test), leaving
	// no branch to take if every prior guard fails. A well-formed Machine
	// always terminates its transition list this way.
	ErrNonExhaustiveTransitions = errors.New("engine: state's transitions do not cover every case")

	// ErrUnknownState indicates Execute was asked to start from a state
	// that discovery never reached from InitialStates.
	ErrUnknownState = errors.New("engine: state is unreachable from the machine's initial states")

	// ErrBadResultState indicates the compiled code returned a state index
	// outside the table New built — a sign the generated code is corrupt,
	// never something a caller can provoke at the Machine level.
	ErrBadResultState = errors.New("engine: compiled code returned an invalid state index")

	// ErrNoGlobals indicates a Machine reported zero globals. The pool
	// always carries a reserved zero word ahead of slot 0, but a machine
	// with nothing to carry across a state boundary cannot express the
	// Convention every compiled state agrees on.
	ErrNoGlobals = errors.New("engine: machine reports zero globals")
)
