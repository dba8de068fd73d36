package x64

import (
	"fmt"

	"github.com/fsmjit/fsmjit/codegen"
	"github.com/fsmjit/fsmjit/ir"
	"github.com/fsmjit/fsmjit/schedule"
)

// location is where an Out or a pool-resident global currently lives.
type location struct {
	reg   Phys
	isMem bool
	disp  int32
}

func (l location) String() string {
	if l.isMem {
		return fmt.Sprintf("[POOL+%d]", l.disp)
	}
	return l.reg.String()
}

// SlotDisp returns the byte displacement of pool slot s from POOL. Slot 0
// is the reserved zero word and slot i holds the value at byte offset 8*i,
// so a spill/global slot index s lives at 8*(s+1).
func SlotDisp(s int) int32 { return int32(8 * (s + 1)) }

func (lw *Lowerer[L]) resolve(v schedule.Variable) (location, error) {
	if v.IsRegister() {
		p, err := Physical(v.Register)
		if err != nil {
			return location{}, err
		}
		return location{reg: p}, nil
	}
	return location{isMem: true, disp: SlotDisp(v.Slot)}, nil
}

func (lw *Lowerer[L]) locationOf(sched *schedule.Schedule, out ir.Out) (location, error) {
	v, ok := sched.Allocation[out]
	if !ok {
		return location{}, fmt.Errorf("%w: %v", ErrUnallocatedOutput, out)
	}
	return lw.resolve(v)
}

// Lowerer walks a codegen.EBB tree and emits x86-64 bytes for every
// Schedule instruction and Ending onto a shared Assembler. Df is the
// Dataflow the whole tree (and all its sibling states) was built over.
// Globals is the ordered list of pool-resident Values every compiled
// state's entry and exit convention agrees on;
// LabelFor resolves a leaf's next-state Label to that state's entry Label,
// which may still be unbound if the target hasn't been compiled yet —
// Assembler.Jump/JumpIf record a patch and Bind fixes it up later.
type Lowerer[L any] struct {
	Asm        *Assembler
	Df         *ir.Dataflow
	Globals    []ir.Value
	LabelFor   func(L) *Label
	DivScratch DivisionScratch
}

// NewLowerer constructs a Lowerer sharing asm across every state compiled
// into it. divScratch names the four pool slots reserved for Division
// bookkeeping (see DivisionScratch) — the caller sizes them beyond the
// deepest spill slot any compiled state reaches, since they must never
// collide with a live spill.
func NewLowerer[L any](asm *Assembler, df *ir.Dataflow, globals []ir.Value, labelFor func(L) *Label, divScratch DivisionScratch) *Lowerer[L] {
	return &Lowerer[L]{Asm: asm, Df: df, Globals: globals, LabelFor: labelFor, DivScratch: divScratch}
}

// Lower emits ebb and every EBB reachable from it (its cold branches),
// depth-first: the hot-path EBB is
// collected inline as straight-line code, and each cold branch is
// recursively lowered as a separate patched target.
func (lw *Lowerer[L]) Lower(ebb *codegen.EBB[L]) error {
	if ebb == nil {
		return ErrNilEBB
	}
	if err := lw.lowerSchedule(ebb.Schedule); err != nil {
		return err
	}
	switch end := ebb.Ending.(type) {
	case codegen.Leaf[L]:
		return lw.lowerLeaf(ebb.Schedule, end)
	case codegen.Switch[L]:
		return lw.lowerSwitch(ebb.Schedule, end)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedOp, end)
	}
}

func (lw *Lowerer[L]) lowerSchedule(sched *schedule.Schedule) error {
	for _, instr := range sched.Order {
		if instr.Spill {
			if err := lw.lowerSpill(sched, instr); err != nil {
				return err
			}
			continue
		}
		if err := lw.LowerNode(sched, instr.Node); err != nil {
			return err
		}
	}
	return nil
}

// lowerSpill writes each evicted occupant from the register it held
// (Instruction.RegA/RegB) to the slot the allocator just assigned it
// (read back via the final Allocation map, since by construction that
// entry can only be a Slot for a just-spilled Out).
func (lw *Lowerer[L]) lowerSpill(sched *schedule.Schedule, instr schedule.Instruction) error {
	if err := lw.storeSpilled(sched, instr.A, instr.RegA); err != nil {
		return err
	}
	if instr.Paired {
		return lw.storeSpilled(sched, instr.B, instr.RegB)
	}
	return nil
}

func (lw *Lowerer[L]) storeSpilled(sched *schedule.Schedule, out ir.Out, reg schedule.Register) error {
	dst, err := lw.locationOf(sched, out)
	if err != nil {
		return err
	}
	src, err := Physical(reg)
	if err != nil {
		return err
	}
	lw.Asm.MovToMem(Pool, src, dst.disp, true)
	return nil
}

// lowerSwitch emits the guard's jcc, the hot EBB inline, and each cold EBB
// out of line, after the hot path's own Ending (so a leaf's unconditional
// jump or another nested Switch sits between the hot code and the cold
// code it branches away from).
func (lw *Lowerer[L]) lowerSwitch(sched *schedule.Schedule, sw codegen.Switch[L]) error {
	// A boolean TestOp guard produces exactly one cold branch (Cases has
	// one match arm, Default is "try the next guard"). An n-way Switch
	// would need a jump table this lowerer does not emit; reject it rather
	// than silently dropping the extra branches from the reachable code.
	if len(sw.Cold) != 1 {
		return fmt.Errorf("%w: switch with %d cold branches", ErrUnsupportedOp, len(sw.Cold))
	}

	guardIn := lw.Df.Ins(sw.Guard)[0]
	loc, err := lw.locationOf(sched, guardIn)
	if err != nil {
		return err
	}
	if loc.isMem {
		lw.Asm.CmpMemImm32(Pool, loc.disp, 0, true)
	} else {
		lw.Asm.TestRR(loc.reg, true)
	}

	falseLabel := lw.Asm.NewLabel()
	if err := lw.Asm.JumpIf(CondE, falseLabel); err != nil {
		return err
	}

	if err := lw.Lower(sw.Hot); err != nil {
		return err
	}

	if err := lw.Asm.Bind(falseLabel); err != nil {
		return err
	}
	return lw.Lower(sw.Cold[0])
}

// lowerLeaf arranges every global back into its canonical pool slot (the
// parallel-move swap-chain applied to the Convention boundary between this
// state's exit and the next state's entry) and branches to the target
// state's entry label.
func (lw *Lowerer[L]) lowerLeaf(sched *schedule.Schedule, leaf codegen.Leaf[L]) error {
	liveOut := lw.Df.Ins(leaf.Exit)
	if len(liveOut) != len(lw.Globals) {
		return fmt.Errorf("%w: leaf has %d live-outs, want %d globals", ErrUnsupportedOp, len(liveOut), len(lw.Globals))
	}

	current := make([]schedule.Variable, len(liveOut))
	target := make([]schedule.Variable, len(liveOut))
	for i, out := range liveOut {
		v, ok := sched.Allocation[out]
		if !ok {
			return fmt.Errorf("%w: %v", ErrUnallocatedOutput, out)
		}
		current[i] = v
		target[i] = schedule.SlotVar(lw.Globals[i].SlotIndex())
	}

	moves, err := codegen.ResolveMoves(current, target, schedule.RegisterVar(scratchRegisterIndex))
	if err != nil {
		return err
	}
	for _, m := range moves {
		if err := lw.lowerMove(m); err != nil {
			return err
		}
	}

	label := lw.LabelFor(leaf.Label)
	return lw.Asm.Jump(label)
}

// scratchRegisterIndex is a schedule.Register value ResolveMoves can use
// as a cycle-breaking scratch location; lowerMove recognizes it and emits
// TEMP instead of resolving it through the (12-entry) allocatable table.
const scratchRegisterIndex = schedule.Register(-1)

func (lw *Lowerer[L]) lowerMove(m codegen.Move) error {
	from, err := lw.moveLocation(m.From)
	if err != nil {
		return err
	}
	to, err := lw.moveLocation(m.To)
	if err != nil {
		return err
	}
	switch {
	case !from.isMem && !to.isMem:
		lw.Asm.MovRegReg(to.reg, from.reg, false)
	case from.isMem && !to.isMem:
		lw.Asm.MovFromMem(to.reg, Pool, from.disp, true)
	case !from.isMem && to.isMem:
		lw.Asm.MovToMem(Pool, from.reg, to.disp, true)
	default:
		// TEMP may hold a value ResolveMoves parked there to break a cycle,
		// so a slot-to-slot copy goes through a saved RCX instead.
		lw.Asm.Push(RCX)
		lw.Asm.MovFromMem(RCX, Pool, from.disp, true)
		lw.Asm.MovToMem(Pool, RCX, to.disp, true)
		lw.Asm.Pop(RCX)
	}
	return nil
}

func (lw *Lowerer[L]) moveLocation(v schedule.Variable) (location, error) {
	if v.IsRegister() && v.Register == scratchRegisterIndex {
		return location{reg: Temp}, nil
	}
	return lw.resolve(v)
}
