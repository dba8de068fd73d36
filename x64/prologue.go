package x64

// System V AMD64 argument and result registers: ARG0/ARG1 carry the pool
// base pointer and the initial state index into the generated function;
// Result carries the final state index back out. None of the three are
// reserved from allocation (Pool/Temp/StateIndex are) because the
// prologue/epilogue move their contents into the reserved set before the
// body runs and read them back out only after it finishes.
const (
	Arg0   = RDI
	Arg1   = RSI
	Result = RAX
)

// stackRealign is the padding the prologue subtracts (and the epilogue adds
// back) after pushing CalleeSaved, purely to land on a 16-byte boundary per
// the System V convention, even though the body never issues a CALL of its
// own and so never strictly needs it.
const stackRealign = 8

// group1Add and group1Sub are the group1-opcode /ext selectors
// shared with CmpRegImm32's encoding (0x81 /ext ib..id), reused here for
// the prologue/epilogue's stack-pointer adjustment.
const (
	group1Add = 0
	group1Sub = 5
)

func (a *Assembler) aluImm32(ext byte, dst Phys, imm int32, w64 bool) {
	a.emit(rex(w64, false, false, dst.Extended()), 0x81)
	a.emit(modrm(3, ext, dst.Low3()))
	a.emitImm32(imm)
}

// Prologue emits the System V AMD64 entry sequence: push CalleeSaved in
// order, realign the stack, then load Arg0 into Pool and Arg1 into
// StateIndex. Must be emitted exactly once, at the start of the buffer —
// every compiled state is entered only via the dispatch Prologue falls
// into, never by a bare indirect call to its own label.
func (a *Assembler) Prologue() {
	for _, r := range CalleeSaved {
		a.Push(r)
	}
	a.aluImm32(group1Sub, RSP, stackRealign, true)
	a.MovRegReg(Pool, Arg0, false)
	a.MovRegReg(StateIndex, Arg1, false)
}

// Epilogue emits the matching exit sequence: move StateIndex into Result,
// undo the realignment, pop CalleeSaved in reverse, and return. Every path
// out of the generated code — every Leaf whose target state was never
// compiled, so the host decides what happens next — ends here via
// a small per-terminal-state stub that sets StateIndex and jumps to this
// single shared label.
func (a *Assembler) Epilogue() {
	a.MovRegReg(Result, StateIndex, false)
	a.aluImm32(group1Add, RSP, stackRealign, true)
	for i := len(CalleeSaved) - 1; i >= 0; i-- {
		a.Pop(CalleeSaved[i])
	}
	a.Ret()
}
