package x64

import (
	"fmt"
	"math"

	"github.com/fsmjit/fsmjit/ir"
	"github.com/fsmjit/fsmjit/schedule"
)

// DivisionScratch names the four pool slots a Lowerer reserves for Division
// bookkeeping: RAX and RDX are never excluded from the allocatable
// registers, so every Division
// unconditionally saves both around the idiv/div sequence and restores them
// from here afterward. QStage/RStage hold the quotient/remainder until they
// can be copied to their real destinations without risk of an alias with
// RAX/RDX clobbering a result before it is read (see lowerDivision).
type DivisionScratch struct {
	RAX, RDX, QStage, RStage int
}

// LowerNode emits the instruction(s) for a single scheduled node. Entry,
// Guard and Convention nodes carry no code of their own — Guard's test is
// emitted by lowerSwitch once its EBB's Ending is known, and Convention and
// Entry exist purely to anchor live ranges.
func (lw *Lowerer[L]) LowerNode(sched *schedule.Schedule, n ir.Node) error {
	switch op := lw.Df.Op(n).(type) {
	case ir.OpEntry, ir.OpGuard, ir.OpConvention:
		return nil
	case ir.OpConstant:
		return lw.lowerConstant(sched, n, op)
	case ir.OpUnary:
		return lw.lowerUnary(sched, n, op)
	case ir.OpBinary:
		return lw.lowerBinary(sched, n, op)
	case ir.OpDivision:
		return lw.lowerDivision(sched, n, op)
	case ir.OpLoad:
		return lw.lowerLoad(sched, n, op)
	case ir.OpStore:
		return lw.lowerStore(sched, n, op)
	case ir.OpDebug:
		return lw.lowerDebug(sched, n)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedOp, op)
	}
}

// work returns the register LowerNode should compute into for an Out: the
// Out's own register if it was allocated one, or Temp (spilled straight
// back out by the caller) if it lives in a pool slot.
func (lw *Lowerer[L]) work(sched *schedule.Schedule, out ir.Out) (Phys, location, error) {
	loc, err := lw.locationOf(sched, out)
	if err != nil {
		return 0, location{}, err
	}
	if loc.isMem {
		return Temp, loc, nil
	}
	return loc.reg, loc, nil
}

func (lw *Lowerer[L]) finish(work Phys, loc location, w64 bool) {
	if loc.isMem {
		lw.Asm.MovToMem(Pool, work, loc.disp, true)
	} else if work != loc.reg {
		lw.Asm.MovRegReg(loc.reg, work, !w64)
	}
}

// loadOperand materializes in's value into reg (the register a subsequent
// ALU instruction will treat as its destination operand).
func (lw *Lowerer[L]) loadOperand(sched *schedule.Schedule, in ir.Out, reg Phys, w64 bool) error {
	loc, err := lw.locationOf(sched, in)
	if err != nil {
		return err
	}
	if loc.isMem {
		lw.Asm.MovFromMem(reg, Pool, loc.disp, true)
	} else if loc.reg != reg {
		lw.Asm.MovRegReg(reg, loc.reg, !w64)
	}
	return nil
}

// applyRM applies an RM-form ALU opcode against in's current location,
// directly against memory when in is a slot (avoiding a redundant load).
func (lw *Lowerer[L]) applyRM(sched *schedule.Schedule, opcode byte, work Phys, in ir.Out, w64 bool) error {
	loc, err := lw.locationOf(sched, in)
	if err != nil {
		return err
	}
	if loc.isMem {
		lw.Asm.AluRM(opcode, work, Pool, loc.disp, w64)
	} else {
		lw.Asm.AluRR(opcode, work, loc.reg, w64)
	}
	return nil
}

func (lw *Lowerer[L]) lowerConstant(sched *schedule.Schedule, n ir.Node, op ir.OpConstant) error {
	out := lw.Df.Outs(n)[0]
	w, loc, err := lw.work(sched, out)
	if err != nil {
		return err
	}
	// MovImm32 zero-extends, so a negative immediate must take the 64-bit
	// form to keep its sign bits: mov r32, -1 would load 0x00000000FFFFFFFF.
	if op.Value >= 0 && op.Value <= math.MaxInt32 {
		lw.Asm.MovImm32(w, int32(op.Value))
	} else {
		lw.Asm.MovImm64(w, op.Value)
	}
	lw.finish(w, loc, true)
	return nil
}

func (lw *Lowerer[L]) lowerUnary(sched *schedule.Schedule, n ir.Node, op ir.OpUnary) error {
	ins := lw.Df.Ins(n)
	out := lw.Df.Outs(n)[0]
	w64 := op.Precision == ir.P64
	w, loc, err := lw.work(sched, out)
	if err != nil {
		return err
	}
	if err := lw.loadOperand(sched, ins[0], w, w64); err != nil {
		return err
	}
	switch op.Op {
	case ir.Negate:
		lw.Asm.NegNot(3, w, w64)
	case ir.Not:
		lw.Asm.NegNot(2, w, w64)
	case ir.Abs:
		if err := lw.lowerAbs(w, w64); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unary op %v", ErrUnsupportedOp, op.Op)
	}
	lw.finish(w, loc, w64)
	return nil
}

// lowerAbs computes abs(w) branch-free: mask = w>>63 (arithmetic, all sign
// bits), abs = (w^mask) - mask. mask lives in Temp unless w already is Temp
// (the value is in a pool slot), in which case RCX is borrowed via
// push/pop — always stack-neutral regardless of what else is live in RCX.
func (lw *Lowerer[L]) lowerAbs(w Phys, w64 bool) error {
	mask := Temp
	borrowed := false
	if w == Temp {
		mask = RCX
		borrowed = true
		lw.Asm.Push(RCX)
	}
	lw.Asm.MovRegReg(mask, w, !w64)
	lw.Asm.ShiftImm8(ShiftRightS, mask, 63, w64)
	lw.Asm.AluRR(aluXorRM, w, mask, w64)
	lw.Asm.AluRR(aluSubRM, w, mask, w64)
	if borrowed {
		lw.Asm.Pop(RCX)
	}
	return nil
}

func (lw *Lowerer[L]) lowerBinary(sched *schedule.Schedule, n ir.Node, op ir.OpBinary) error {
	ins := lw.Df.Ins(n)
	out := lw.Df.Outs(n)[0]
	w64 := op.Precision == ir.P64
	w, loc, err := lw.work(sched, out)
	if err != nil {
		return err
	}
	if op.Op.IsCompare() {
		if err := lw.lowerCompare(sched, op.Op, w, ins[0], ins[1], w64); err != nil {
			return err
		}
		lw.finish(w, loc, true)
		return nil
	}
	if err := lw.loadOperand(sched, ins[0], w, w64); err != nil {
		return err
	}
	switch op.Op {
	case ir.Add:
		if err := lw.applyRM(sched, aluAddRM, w, ins[1], w64); err != nil {
			return err
		}
	case ir.Sub:
		if err := lw.applyRM(sched, aluSubRM, w, ins[1], w64); err != nil {
			return err
		}
	case ir.And:
		if err := lw.applyRM(sched, aluAndRM, w, ins[1], w64); err != nil {
			return err
		}
	case ir.Or:
		if err := lw.applyRM(sched, aluOrRM, w, ins[1], w64); err != nil {
			return err
		}
	case ir.Xor:
		if err := lw.applyRM(sched, aluXorRM, w, ins[1], w64); err != nil {
			return err
		}
	case ir.Mul:
		if err := lw.lowerImul(sched, w, ins[1], w64); err != nil {
			return err
		}
	case ir.Lsl:
		if err := lw.lowerShift(sched, ShiftLeft, w, ins[1], w64); err != nil {
			return err
		}
	case ir.Lsr:
		if err := lw.lowerShift(sched, ShiftRightU, w, ins[1], w64); err != nil {
			return err
		}
	case ir.Asr:
		if err := lw.lowerShift(sched, ShiftRightS, w, ins[1], w64); err != nil {
			return err
		}
	case ir.Max:
		if err := lw.lowerMinMax(sched, CondGE, w, ins[1], w64); err != nil {
			return err
		}
	case ir.Min:
		if err := lw.lowerMinMax(sched, CondLE, w, ins[1], w64); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: binary op %v", ErrUnsupportedOp, op.Op)
	}
	lw.finish(w, loc, w64)
	return nil
}

func (lw *Lowerer[L]) lowerImul(sched *schedule.Schedule, w Phys, in ir.Out, w64 bool) error {
	loc, err := lw.locationOf(sched, in)
	if err != nil {
		return err
	}
	if loc.isMem {
		lw.Asm.ImulMem(w, Pool, loc.disp, w64)
	} else {
		lw.Asm.Imul(w, loc.reg, w64)
	}
	return nil
}

// lowerShift moves the count operand through RCX (the only GPR the shift
// encoding can read a variable count from), borrowing it with push/pop and
// routing the accumulator through Temp first if w itself is RCX. The
// hardware masks the count to the word width, so Lsl/Lsr additionally
// select the pool's slot-0 zero word whenever the count is width or more;
// Asr keeps the masked-shift result (sign fill saturates anyway).
func (lw *Lowerer[L]) lowerShift(sched *schedule.Schedule, ext byte, w Phys, count ir.Out, w64 bool) error {
	acc := w
	rerouted := acc == RCX
	if rerouted {
		lw.Asm.MovRegReg(Temp, RCX, !w64)
		acc = Temp
	}
	lw.Asm.Push(RCX)
	if err := lw.loadOperand(sched, count, RCX, false); err != nil {
		lw.Asm.Pop(RCX)
		return err
	}
	lw.Asm.ShiftCL(ext, acc, w64)
	if ext != ShiftRightS {
		width := int32(32)
		if w64 {
			width = 64
		}
		lw.Asm.CmpRegImm32(RCX, width, false)
		lw.Asm.CMovCCMem(CondAE, acc, Pool, 0)
	}
	lw.Asm.Pop(RCX)
	if rerouted {
		lw.Asm.MovRegReg(w, Temp, !w64)
	}
	return nil
}

// lowerCompare materializes a 64-bit all-ones/zero boolean into w per
// BinaryOp's documented compare encoding.
func (lw *Lowerer[L]) lowerCompare(sched *schedule.Schedule, op ir.BinaryOp, w Phys, a, b ir.Out, w64 bool) error {
	if err := lw.loadOperand(sched, a, w, w64); err != nil {
		return err
	}
	if err := lw.applyRM(sched, aluCmpRM, w, b, w64); err != nil {
		return err
	}
	var cond Condition
	switch op {
	case ir.Lt:
		cond = CondL
	case ir.Ult:
		cond = CondB
	case ir.Eq:
		cond = CondE
	default:
		return fmt.Errorf("%w: compare op %v", ErrUnsupportedOp, op)
	}
	// The all-ones source must live somewhere other than w. Temp serves
	// unless w itself is Temp (a slot-allocated boolean), in which case RCX
	// is borrowed with a push/pop — neither mov nor push/pop disturbs the
	// flags the cmov reads.
	ones := Temp
	borrowed := w == Temp
	if borrowed {
		ones = RCX
		lw.Asm.Push(RCX)
	}
	lw.Asm.MovImm64(ones, -1)
	lw.Asm.MovImm32(w, 0)
	lw.Asm.CMovCC(cond, w, ones)
	if borrowed {
		lw.Asm.Pop(RCX)
	}
	return nil
}

// lowerMinMax keeps a (the accumulator, in w) when aWins holds after
// cmp w,b, and otherwise copies b into w through Temp with a cmov on the
// inverted condition: for Max aWins is CondGE, so w becomes b when a < b;
// for Min it is CondLE, so w becomes b when a > b.
func (lw *Lowerer[L]) lowerMinMax(sched *schedule.Schedule, aWins Condition, w Phys, b ir.Out, w64 bool) error {
	if err := lw.applyRM(sched, aluCmpRM, w, b, w64); err != nil {
		return err
	}
	loc, err := lw.locationOf(sched, b)
	if err != nil {
		return err
	}
	if loc.isMem {
		lw.Asm.MovFromMem(Temp, Pool, loc.disp, true)
	} else {
		lw.Asm.MovRegReg(Temp, loc.reg, !w64)
	}
	lw.Asm.CMovCC(invert(aWins), w, Temp)
	return nil
}

func invert(c Condition) Condition {
	return c ^ 1
}

func (lw *Lowerer[L]) lowerLoad(sched *schedule.Schedule, n ir.Node, op ir.OpLoad) error {
	ins := lw.Df.Ins(n)
	out := lw.Df.Outs(n)[0]
	w, loc, err := lw.work(sched, out)
	if err != nil {
		return err
	}
	addrLoc, err := lw.locationOf(sched, ins[0])
	if err != nil {
		return err
	}
	index := addrLoc.reg
	if addrLoc.isMem {
		index = Temp
		lw.Asm.MovFromMem(index, Pool, addrLoc.disp, true)
	}
	lw.Asm.LoadIndexedZX(w, Pool, index, op.Width)
	lw.finish(w, loc, true)
	return nil
}

// lowerStore writes Src to [Pool+addr] and copies the address into the
// store node's output location.
func (lw *Lowerer[L]) lowerStore(sched *schedule.Schedule, n ir.Node, op ir.OpStore) error {
	ins := lw.Df.Ins(n) // [src, addr]
	out := lw.Df.Outs(n)[0]
	addrLoc, err := lw.locationOf(sched, ins[1])
	if err != nil {
		return err
	}
	index := addrLoc.reg
	if addrLoc.isMem {
		index = Temp
		lw.Asm.MovFromMem(index, Pool, addrLoc.disp, true)
	}
	srcLoc, err := lw.locationOf(sched, ins[0])
	if err != nil {
		return err
	}
	srcReg := srcLoc.reg
	if srcLoc.isMem {
		srcReg = RCX
		lw.Asm.Push(RCX)
		lw.Asm.MovFromMem(srcReg, Pool, srcLoc.disp, true)
	}
	lw.Asm.StoreIndexedWidth(Pool, index, srcReg, op.Width)
	if srcLoc.isMem {
		lw.Asm.Pop(RCX)
	}
	w, loc, err := lw.work(sched, out)
	if err != nil {
		return err
	}
	if addrLoc.isMem {
		lw.Asm.MovFromMem(w, Pool, addrLoc.disp, true)
	} else if w != addrLoc.reg {
		lw.Asm.MovRegReg(w, addrLoc.reg, false)
	}
	lw.finish(w, loc, true)
	return nil
}

// lowerDebug emits no code: Debug has no allocated output, and the
// generated code does not record or expose the value in any way.
func (lw *Lowerer[L]) lowerDebug(sched *schedule.Schedule, n ir.Node) error {
	return nil
}

// lowerDivision handles the RDX:RAX bookkeeping idiv/div demand. RAX and RDX are
// never excluded from the allocatable register file, so every Division
// unconditionally saves and restores them around the idiv/div sequence,
// and stages its two results through pool memory before restoring — sidestepping
// every possible alias between the destinations and RAX/RDX.
func (lw *Lowerer[L]) lowerDivision(sched *schedule.Schedule, n ir.Node, op ir.OpDivision) error {
	ins := lw.Df.Ins(n) // [dividend, divisor]
	outs := lw.Df.Outs(n)
	w64 := op.Precision == ir.P64

	lw.Asm.MovToMem(Pool, RAX, SlotDisp(lw.DivScratch.RAX), true)
	lw.Asm.MovToMem(Pool, RDX, SlotDisp(lw.DivScratch.RDX), true)

	// Capture the divisor before RAX/RDX are overwritten below — it may
	// itself live in one of them.
	divisorLoc, err := lw.locationOf(sched, ins[1])
	if err != nil {
		return err
	}
	divisor := Temp
	if !divisorLoc.isMem && divisorLoc.reg != RAX && divisorLoc.reg != RDX {
		divisor = divisorLoc.reg
	} else if divisorLoc.isMem {
		lw.Asm.MovFromMem(Temp, Pool, divisorLoc.disp, true)
	} else {
		lw.Asm.MovRegReg(Temp, divisorLoc.reg, !w64)
	}

	if err := lw.loadOperand(sched, ins[0], RAX, w64); err != nil {
		return err
	}

	if op.Kind == ir.Signed {
		lw.Asm.Cdq(w64)
		lw.Asm.Idiv(divisor, w64)
	} else {
		lw.Asm.Xor32(RDX)
		lw.Asm.Div(divisor, w64)
	}

	lw.Asm.MovToMem(Pool, RAX, SlotDisp(lw.DivScratch.QStage), true)
	lw.Asm.MovToMem(Pool, RDX, SlotDisp(lw.DivScratch.RStage), true)

	lw.Asm.MovFromMem(RAX, Pool, SlotDisp(lw.DivScratch.RAX), true)
	lw.Asm.MovFromMem(RDX, Pool, SlotDisp(lw.DivScratch.RDX), true)

	qLoc, err := lw.locationOf(sched, outs[0])
	if err != nil {
		return err
	}
	rLoc, err := lw.locationOf(sched, outs[1])
	if err != nil {
		return err
	}
	lw.copyStaged(lw.DivScratch.QStage, qLoc)
	lw.copyStaged(lw.DivScratch.RStage, rLoc)
	return nil
}

func (lw *Lowerer[L]) copyStaged(slot int, dst location) {
	if dst.isMem {
		lw.Asm.MovFromMem(Temp, Pool, SlotDisp(slot), true)
		lw.Asm.MovToMem(Pool, Temp, dst.disp, true)
	} else {
		lw.Asm.MovFromMem(dst.reg, Pool, SlotDisp(slot), true)
	}
}
