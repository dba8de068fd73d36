package engine

import "github.com/fsmjit/fsmjit/ir"

// Transition is one guarded step out of a state: if Test (evaluated at
// Precision against the current globals) matches, Actions runs and
// execution continues in Next. A state's transition list is evaluated in
// order; the first match wins, mirroring simulate.CompileTestOp's
// first-match-wins evaluation contract.
type Transition[S any] struct {
	Test      ir.TestOp
	Precision ir.Precision
	Actions   []ir.Action
	Next      S
}

// Machine is the surface a caller implements to describe a state machine
// for Engine to compile. S names a state and must be comparable
// so Engine can key it by map and track visited states during discovery.
type Machine[S comparable] interface {
	// NumGlobals is the number of pool-resident values that stay live
	// across every state boundary, numbered 0..NumGlobals-1 in the
	// caller's own scheme. Every compiled state's entry and exit agree
	// on this same numbering (engine's Convention).
	NumGlobals() int

	// GetCode returns state's transition list. RegisterMask is accepted
	// for forward compatibility with a register-resident-globals
	// convention variant; Engine ignores it. A state with an empty transition list is terminal: Engine
	// compiles it as a stub that returns its own index rather than
	// continuing into generated code.
	GetCode(state S) (registerMask uint64, transitions []Transition[S])

	// InitialStates lists every state Engine's reachability discovery
	// should start from. Execute only accepts a state discovery reached.
	InitialStates() []S
}
