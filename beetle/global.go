// Package beetle is a reference Machine: a small Forth-like virtual
// machine whose registers and opcode dispatch are expressed entirely as
// guarded transition lists, rather than through any native Go control
// flow. It exists to
// exercise engine.Machine end to end with a realistic, if deliberately
// trimmed, guest instruction set: a handful of stack-juggling opcodes, the
// arithmetic/logic ops, a couple of opcodes that delegate into helper
// states (Lshift/Rshift), and a conditional branch/loop family.
//
// Only a representative subset of Beetle's ~90-opcode dispatch table and
// its ALU/loop-unrolling states is implemented (opcode dispatch
// performance and exhaustive coverage are explicitly out of scope); every
// ir.Action kind the rest of this module knows how to compile, other than
// the test-only Debug probe, is exercised by at least one opcode.
package beetle

import "github.com/fsmjit/fsmjit/ir"

// Global names one of Beetle's pool-resident registers. Beetle's address
// space is unified (there is no separate register file at runtime), so
// every Global is just a pool slot the compiled machine reads and writes
// like any other global.
type Global int

const (
	BEP Global = iota
	BA
	BSP
	BRP
	BS0
	BR0
	BThrow
	BBad
	BNotAddress
	BMemory
	Opcode
	Stack0
	Stack1
	LoopFlag
	LoopStep
	LoopNew
	LoopOld
)

// NumGlobals is the size of Beetle's global register file.
const NumGlobals = int(LoopOld) + 1

// Value returns the pool slot Value this Global is bound to.
func (g Global) Value() ir.Value { return ir.Slot(int(g)) }

// AllRegisters are the globals live on entry to State Root: the registers
// a guest program can actually address, as opposed to Beetle's internal
// scratch globals (Opcode, Stack0/Stack1, the Loop family).
var AllRegisters = []Global{BEP, BA, BSP, BRP, BS0, BR0, BThrow, BBad, BNotAddress, BMemory}

// registerMask ORs together the bit for every entry in AllRegisters — the
// per-state register mask a Machine.GetCode call reports.
func registerMask() uint64 {
	var mask uint64
	for _, r := range AllRegisters {
		mask |= uint64(1) << uint(r)
	}
	return mask
}

// memory is the single AliasMask every Beetle Load/Store uses: Beetle's
// address space is unified, so every memory access can alias every other
// one.
const memory ir.AliasMask = 0x1

// cellBytes is the number of bytes in n Beetle cells (a cell is 4 bytes).
func cellBytes(n int64) int64 { return 4 * n }

// cellBits is the number of bits in one cell.
const cellBits = 32
