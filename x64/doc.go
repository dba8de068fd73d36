// Package x64 lowers a codegen.EBB tree into System V AMD64 machine code.
//
// Four reserved physical registers never participate in allocation: POOL
// (the base address of the persistent state pool, R8), TEMP (a scratch
// register the lowerer uses for asymmetric operations, R12), STATE_INDEX
// (the currently executing state's dense index, RBX), and RSP (the
// hardware stack pointer — its value stays load-bearing for the
// epilogue's pop/ret sequence the whole function through, unlike every
// other callee-saved register, so it cannot double as allocator scratch).
// The remaining 12 general-purpose registers are densely renumbered 0..11
// and handed to schedule.Run as its allocatable set; Physical maps the
// dense index back to the machine register.
//
// Lower walks an EBB depth-first, emitting a linear instruction stream:
// each Schedule.Order entry becomes either one or two stores into the pool
// (for Spill pseudo-instructions; reloads happen at the consuming
// instruction via [POOL+disp] operands) or a direct translation of the
// underlying ir.Op (LowerNode), and each Ending becomes either a jump to
// the next compiled
// state (Leaf) or a cmp/jcc pair bracketing a hot fallthrough and a patched
// cold branch (Switch). Label's patch list implements the forward-branch
// fixup every cold/guard jump needs, since the cold code's length isn't
// known until after it's been lowered.
//
// Errors:
//   - ErrUnallocatedOutput: a scheduled ir.Out has no Variable in the
//     Schedule's Allocation map.
//   - ErrUnsupportedOp: LowerNode was asked to lower an ir.Op it has no
//     rule for.
//   - ErrRegisterOutOfRange: a schedule.Register index has no physical
//     register mapping (only 0..11 are valid).
package x64
