package codegen

import (
	"github.com/fsmjit/fsmjit/ir"
	"github.com/fsmjit/fsmjit/schedule"
)

// EBB is one extended basic block: a Schedule covering the nodes newly
// introduced at this point in the tree, followed by an Ending.
type EBB[L any] struct {
	Schedule *schedule.Schedule
	Ending   Ending[L]
}

// Ending is the sum type terminating an EBB.
type Ending[L any] interface {
	isEnding()
}

// Leaf falls through to the state named by Label. Exit is the Convention
// node this leaf's Schedule was rooted at — a lowerer needs it to read back
// df.Ins(Exit), the ordered live-out Outs, so it can arrange them to match
// the destination state's entry convention before branching.
type Leaf[L any] struct {
	Label L
	Exit  ir.Node
}

// Switch branches on Guard: Hot continues the fused path, each entry in
// Cold is compiled independently as its own EBB.
type Switch[L any] struct {
	Guard ir.Node
	Hot   *EBB[L]
	Cold  []*EBB[L]
}

func (Leaf[L]) isEnding()   {}
func (Switch[L]) isEnding() {}

// Move is one step of a resolved parallel-move sequence: copy the value
// currently at From into To.
type Move struct {
	From, To schedule.Variable
}
