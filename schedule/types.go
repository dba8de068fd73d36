package schedule

import (
	"fmt"

	"github.com/fsmjit/fsmjit/ir"
)

// Register is a dense allocatable register index, 0..numRegisters-1. The
// lowerer that consumes a Schedule is responsible for mapping these indices
// onto real machine registers.
type Register int

// VarKind distinguishes the two places a Variable can live.
type VarKind int

const (
	VarRegister VarKind = iota
	VarSlot
)

// Variable is where an Out lives once scheduling has finished: either a
// Register or a spill Slot in the persistent pool.
type Variable struct {
	Kind     VarKind
	Register Register
	Slot     int
}

// RegisterVar constructs a register Variable.
func RegisterVar(r Register) Variable { return Variable{Kind: VarRegister, Register: r} }

// SlotVar constructs a spill-slot Variable.
func SlotVar(slot int) Variable { return Variable{Kind: VarSlot, Slot: slot} }

// IsRegister reports whether v names a register (as opposed to a slot).
func (v Variable) IsRegister() bool { return v.Kind == VarRegister }

func (v Variable) String() string {
	if v.Kind == VarRegister {
		return fmt.Sprintf("r%d", v.Register)
	}
	return fmt.Sprintf("slot%d", v.Slot)
}

// Instruction is one step of a Schedule's order: either the placement of an
// ir.Node, or a paired (or, with B's zero value, lone) Spill pseudo-op that
// writes one or two register occupants out to their slots. RegA/RegB name
// the register each occupant held immediately before eviction — by the
// time a Schedule is returned, Allocation[A]/Allocation[B] already name
// their new Slot, so a lowerer needs RegA/RegB to know where to read the
// value being written out from.
type Instruction struct {
	Spill    bool
	A, B     ir.Out
	RegA     Register
	RegB     Register
	Paired   bool // true if both A and B are meaningful; false ignores B
	Node     ir.Node
}

// Schedule is the result of Run over one region: the fixed execution order
// and the Variable each referenced Out was assigned.
type Schedule struct {
	Order      []Instruction
	Allocation map[ir.Out]Variable
	SlotsUsed  int
}

// Reserved describes the state an enclosing Run call hands down to a nested
// one (e.g. for a Guard's cold branch): Outs whose Variable is already
// fixed, and the Node boundary beyond which the nested call must not walk.
type Reserved struct {
	Location map[ir.Out]Variable
	Boundary map[ir.Node]bool
}
