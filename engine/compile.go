package engine

import (
	"github.com/fsmjit/fsmjit/cft"
	"github.com/fsmjit/fsmjit/codegen"
	"github.com/fsmjit/fsmjit/ir"
	"github.com/fsmjit/fsmjit/schedule"
	"github.com/fsmjit/fsmjit/simulate"
)

// globalValues returns the canonical liveIn/liveOut Value list every
// compiled state agrees on: pool slot g for the caller's global g, in
// order. This is the same list x64.Lowerer.Globals needs to resolve a
// leaf's parallel move into the Convention every other state expects.
func globalValues(numGlobals int) []ir.Value {
	vals := make([]ir.Value, numGlobals)
	for g := range vals {
		vals[g] = ir.Slot(g)
	}
	return vals
}

// buildState simulates state's entire transition list onto one shared
// Dataflow and returns the cft.CFT rooted at its first guard (or, if
// state's only transition always matches, a bare Merge leaf).
func buildState[S comparable](numGlobals int, transitions []Transition[S]) (*ir.Dataflow, cft.CFT[S], error) {
	liveInOut := globalValues(numGlobals)
	sim, err := simulate.NewSimulation(liveInOut)
	if err != nil {
		return nil, nil, err
	}
	tree, df, err := buildGuardChain(sim, liveInOut, transitions)
	if err != nil {
		return nil, nil, err
	}
	return df, tree, nil
}

// buildGuardChain compiles transitions[0]'s guard against sim (leaving
// sim's bindings untouched for any later guard that may need them), forks
// a Simulation to run its matched Actions, and recurses over the remaining
// transitions for the case where it doesn't. A transition whose Test is
// ir.Always needs no guard node at all: it is compiled directly as the
// chain's final leaf, and anything listed after it is unreachable.
func buildGuardChain[S comparable](sim *simulate.Simulation, liveOut []ir.Value, transitions []Transition[S]) (cft.CFT[S], *ir.Dataflow, error) {
	if len(transitions) == 0 {
		return nil, nil, ErrNonExhaustiveTransitions
	}

	head := transitions[0]
	if _, always := head.Test.(ir.Always); always {
		return buildLeaf(sim, liveOut, head)
	}

	guard, err := simulate.CompileTestOp(sim, head.Test, head.Precision)
	if err != nil {
		return nil, nil, err
	}

	matched, df, err := buildLeaf(sim.Fork(), liveOut, head)
	if err != nil {
		return nil, nil, err
	}

	unmatched, _, err := buildGuardChain(sim, liveOut, transitions[1:])
	if err != nil {
		return nil, nil, err
	}

	// HotIndex 0 treats the match arm as hot: with no profiling data
	// available from a Machine, the case that was explicitly guarded for
	// is the more likely one, matching the "first match wins" framing of
	// a transition list.
	sw := cft.Switch[S]{
		Guard:    guard,
		Cases:    []cft.CFT[S]{matched},
		Default:  unmatched,
		HotIndex: 0,
	}
	return sw, df, nil
}

func buildLeaf[S comparable](sim *simulate.Simulation, liveOut []ir.Value, t Transition[S]) (cft.CFT[S], *ir.Dataflow, error) {
	for _, a := range t.Actions {
		if err := sim.Action(a); err != nil {
			return nil, nil, err
		}
	}
	df, exit, err := sim.Finish(liveOut)
	if err != nil {
		return nil, nil, err
	}
	return cft.Merge[S]{Exit: exit, Label: t.Next, Weight: 1}, df, nil
}

// reservedGlobals pre-seeds every global's entry Out with the pool slot it
// must live in at this state's boundary Convention, so the
// scheduler never has to guess a fresh home for a value that's only ever
// read, not recomputed, by the leaves that pass it on unchanged.
func reservedGlobals(df *ir.Dataflow, numGlobals int) *schedule.Reserved {
	entryOuts := df.Outs(df.EntryNode())
	location := make(map[ir.Out]schedule.Variable, numGlobals)
	for g := 0; g < numGlobals; g++ {
		location[entryOuts[g]] = schedule.SlotVar(g)
	}
	return &schedule.Reserved{Location: location}
}

// compileState runs keep-alive analysis and codegen over state's Dataflow
// and CFT, returning the root EBB and the number of pool slots (globals
// plus spills) the most demanding branch of it uses (codegen.Compile's
// second return is already the max across the whole tree).
func compileState[S comparable](df *ir.Dataflow, tree cft.CFT[S], numGlobals, numRegisters int) (*codegen.EBB[S], int, error) {
	hpt, err := cft.Analyze[S](df, tree)
	if err != nil {
		return nil, 0, err
	}
	return codegen.Compile[S](df, hpt, reservedGlobals(df, numGlobals), numRegisters, numGlobals)
}
