package x64

import (
	"fmt"

	"github.com/fsmjit/fsmjit/schedule"
)

// Phys is a physical x86-64 general-purpose register, numbered the way the
// ModRM/SIB/REX encoding scheme numbers them: 0..7 are RAX..RDI, 8..15 are
// R8..R15 and require a REX prefix to address.
type Phys uint8

const (
	RAX Phys = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

var physNames = [...]string{
	"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

func (p Phys) String() string { return physNames[p&0xf] }

// Low3 is the register's 3-bit field for ModRM/SIB/opcode-extension
// purposes; bit 3 (whether p is 8..15) goes into the REX prefix instead.
func (p Phys) Low3() byte { return byte(p) & 0x7 }

// Extended reports whether addressing p requires REX.B/R/X set.
func (p Phys) Extended() bool { return p >= R8 }

// Reserved physical registers. The prologue copies the entry arguments into
// Pool and StateIndex once, and the epilogue copies StateIndex back out as
// the result; Temp is never live across a node boundary and exists purely
// as lowering scratch space for asymmetric two-operand instructions (e.g.
// Sub, RCX-gated shifts).
const (
	Pool       = R8
	Temp       = R12
	StateIndex = RBX
)

// CalleeSaved is the System V AMD64 callee-saved set the prologue/epilogue
// preserve verbatim around the generated body, in push order.
var CalleeSaved = []Phys{RBX, RBP, R12, R13, R14, R15}

// allocatable is AllocatableRegisters' backing array: every Phys except
// Pool, Temp, StateIndex and RSP, in ascending numeric order. RBP is free
// for the allocator like any other GPR (the prologue/epilogue push/pop it
// as part of CalleeSaved, so the body can clobber it between those two
// points without disturbing the caller's value). RSP cannot join it: unlike
// every other callee-saved register, RSP's *current* value, not just its
// eventual restored value, is load-bearing the whole way through — the
// epilogue's pop sequence and final ret address memory relative to
// whatever RSP holds at that point, so a body that treated RSP as a plain
// scratch register would make every pop after it read the wrong slot.
var allocatable = func() []Phys {
	reserved := map[Phys]bool{Pool: true, Temp: true, StateIndex: true, RSP: true}
	var regs []Phys
	for p := Phys(0); p < 16; p++ {
		if !reserved[p] {
			regs = append(regs, p)
		}
	}
	return regs
}()

// NumAllocatable is the register count schedule.Run should be configured
// with: 16 general-purpose registers minus the 4 reserved for Pool, Temp,
// StateIndex and RSP. RSP is reserved as well — see
// DESIGN.md for why treating RSP as an allocator-visible GPR is unsound
// regardless of that count).
const NumAllocatable = 12

// Physical maps a dense schedule.Register (0..NumAllocatable-1) onto the
// physical register the lowerer should emit.
func Physical(r schedule.Register) (Phys, error) {
	if r < 0 || int(r) >= len(allocatable) {
		return 0, fmt.Errorf("%w: %d", ErrRegisterOutOfRange, r)
	}
	return allocatable[r], nil
}
