package beetle

import (
	"github.com/fsmjit/fsmjit/engine"
	"github.com/fsmjit/fsmjit/ir"
)

// Machine implements engine.Machine[State], compiling the representative
// opcode subset this package documents.
type Machine struct{}

// NumGlobals reports the size of Beetle's register file.
func (Machine) NumGlobals() int { return NumGlobals }

// InitialStates starts execution at Root.
func (Machine) InitialStates() []State { return []State{Root} }

// build assembles one transition: a guard, an action routine run only if
// it matches, and the state to continue in. Every guard runs at 32-bit
// precision, Beetle's cell width.
func build(test ir.TestOp, next State, fn func(*builder)) engine.Transition[State] {
	b := newBuilder()
	if fn != nil {
		fn(b)
	}
	return engine.Transition[State]{Test: test, Precision: ir.P32, Actions: b.actions, Next: next}
}

// GetCode returns state's transition list.
func (Machine) GetCode(state State) (uint64, []engine.Transition[State]) {
	mask := registerMask()
	switch state {
	case Root:
		return mask, []engine.Transition[State]{
			build(ir.Always{}, Dispatch, func(b *builder) {
				b.move(Opcode.Value(), BA.Value())
				b.constBinary(ir.Asr, BA.Value(), BA.Value(), 8)
			}),
		}

	case Next:
		return mask, []engine.Transition[State]{
			build(ir.Always{}, Root, func(b *builder) {
				b.pop(BA.Value(), BEP.Value())
			}),
		}

	case Pick:
		transitions := make([]engine.Transition[State], 0, 4)
		for u := int32(0); u < 4; u++ {
			u := u
			transitions = append(transitions, build(eq(Stack0.Value(), u), Root, func(b *builder) {
				b.constBinary(ir.Add, regR2, BSP.Value(), cellBytes(int64(u)+1))
				b.load(regR2, regR2)
				b.store(regR2, BSP.Value())
			}))
		}
		// A pick deeper than the unrolled cases halts rather than reading
		// past the supported depth.
		transitions = append(transitions, build(ir.Always{}, Halt, nil))
		return mask, transitions

	case Qdup:
		return mask, []engine.Transition[State]{
			build(eq(Stack0.Value(), 0), Root, nil),
			// Complement of the guard above; Always keeps the chain
			// exhaustive under first-match-wins.
			build(ir.Always{}, Root, func(b *builder) {
				b.pushCell(Stack0.Value(), BSP.Value())
			}),
		}

	case Lshift:
		return mask, []engine.Transition[State]{
			build(ult(Stack1.Value(), cellBits), Root, func(b *builder) {
				b.binary(ir.Lsl, regR2, Stack0.Value(), Stack1.Value())
				b.store(regR2, BSP.Value())
			}),
			build(ir.Always{}, Root, func(b *builder) {
				b.constant(regR2, 0)
				b.store(regR2, BSP.Value())
			}),
		}

	case Rshift:
		return mask, []engine.Transition[State]{
			build(ult(Stack1.Value(), cellBits), Root, func(b *builder) {
				b.binary(ir.Lsr, regR2, Stack0.Value(), Stack1.Value())
				b.store(regR2, BSP.Value())
			}),
			build(ir.Always{}, Root, func(b *builder) {
				b.constant(regR2, 0)
				b.store(regR2, BSP.Value())
			}),
		}

	case Branch:
		return mask, []engine.Transition[State]{
			build(ir.Always{}, Next, func(b *builder) {
				b.load(BEP.Value(), BEP.Value())
			}),
		}

	case Branchi:
		return mask, []engine.Transition[State]{
			build(ir.Always{}, Next, func(b *builder) {
				b.constBinary(ir.Mul, regR2, BA.Value(), cellBytes(1))
				b.binary(ir.Add, BEP.Value(), BEP.Value(), regR2)
			}),
		}

	case Qbranch:
		return mask, []engine.Transition[State]{
			build(eq(Stack0.Value(), 0), Branch, nil),
			build(ir.Always{}, Root, func(b *builder) {
				b.constBinary(ir.Add, BEP.Value(), BEP.Value(), cellBytes(1))
			}),
		}

	case Loop:
		return mask, []engine.Transition[State]{
			build(eq(LoopFlag.Value(), 0), Root, func(b *builder) {
				b.constBinary(ir.Add, BRP.Value(), BRP.Value(), cellBytes(2))
				b.constBinary(ir.Add, BEP.Value(), BEP.Value(), cellBytes(1))
			}),
			build(ir.Always{}, Branch, nil),
		}

	case Halt:
		return mask, nil

	case Dispatch:
		return mask, dispatchTransitions()

	default:
		return mask, nil
	}
}

// dispatchTransitions is Root's decode step: one guarded case per opcode,
// first match wins — Beetle's dispatch table trimmed to a representative
// subset (every ir.Action kind this module compiles, bar the test-only
// Debug probe, is exercised by at least one case here).
func dispatchTransitions() []engine.Transition[State] {
	return []engine.Transition[State]{
		build(opcode(0x00), Next, nil), // NEXT

		build(opcode(0x01), Root, func(b *builder) { // DUP
			b.load(regR2, BSP.Value())
			b.pushCell(regR2, BSP.Value())
		}),

		build(opcode(0x02), Root, func(b *builder) { // DROP
			b.constBinary(ir.Add, BSP.Value(), BSP.Value(), cellBytes(1))
		}),

		build(opcode(0x03), Root, func(b *builder) { // SWAP
			b.pop(regR4, BSP.Value())
			b.load(regR3, BSP.Value())
			b.store(regR4, BSP.Value())
			b.pushCell(regR3, BSP.Value())
		}),

		build(opcode(0x04), Root, func(b *builder) { // OVER
			b.constBinary(ir.Add, regR2, BSP.Value(), cellBytes(1))
			b.load(regR3, regR2)
			b.pushCell(regR3, BSP.Value())
		}),

		build(opcode(0x09), Pick, func(b *builder) { // PICK
			b.load(Stack0.Value(), BSP.Value())
		}),

		build(opcode(0x0b), Qdup, func(b *builder) { // ?DUP
			b.load(Stack0.Value(), BSP.Value())
		}),

		build(opcode(0x0f), Root, func(b *builder) { // <
			b.pop(regR2, BSP.Value())
			b.load(regR4, BSP.Value())
			b.binary(ir.Lt, regR2, regR4, regR2)
			b.store(regR2, BSP.Value())
		}),

		build(opcode(0x11), Root, func(b *builder) { // =
			b.pop(regR2, BSP.Value())
			b.load(regR4, BSP.Value())
			b.binary(ir.Eq, regR2, regR2, regR4)
			b.store(regR2, BSP.Value())
		}),

		build(opcode(0x1e), Root, func(b *builder) { // +
			b.pop(regR2, BSP.Value())
			b.load(regR4, BSP.Value())
			b.binary(ir.Add, regR2, regR2, regR4)
			b.store(regR2, BSP.Value())
		}),

		build(opcode(0x1f), Root, func(b *builder) { // -
			b.pop(regR2, BSP.Value())
			b.load(regR4, BSP.Value())
			b.binary(ir.Sub, regR2, regR2, regR4)
			b.store(regR2, BSP.Value())
		}),

		build(opcode(0x25), Root, func(b *builder) { // *
			b.pop(regR2, BSP.Value())
			b.load(regR4, BSP.Value())
			b.binary(ir.Mul, regR2, regR2, regR4)
			b.store(regR2, BSP.Value())
		}),

		build(opcode(0x29), Root, func(b *builder) { // U/MOD
			b.pop(regR2, BSP.Value())
			b.load(regR1, BSP.Value())
			b.push(ir.Division{Kind: ir.Unsigned, Precision: ir.P32, QDest: regR1, RDest: regR2, Dividend: regR1, Divisor: regR2})
			b.store(regR2, BSP.Value())
			b.pushCell(regR1, BSP.Value())
		}),

		build(opcode(0x2b), Root, func(b *builder) { // 2/
			b.load(regR2, BSP.Value())
			b.constBinary(ir.Asr, regR2, regR2, 1)
			b.store(regR2, BSP.Value())
		}),

		build(opcode(0x2d), Root, func(b *builder) { // ABS
			b.load(regR2, BSP.Value())
			b.unary(ir.Abs, regR2, regR2)
			b.store(regR2, BSP.Value())
		}),

		build(opcode(0x31), Root, func(b *builder) { // INVERT
			b.load(regR2, BSP.Value())
			b.unary(ir.Not, regR2, regR2)
			b.store(regR2, BSP.Value())
		}),

		build(opcode(0x32), Root, func(b *builder) { // AND
			b.pop(regR2, BSP.Value())
			b.load(regR4, BSP.Value())
			b.binary(ir.And, regR2, regR2, regR4)
			b.store(regR2, BSP.Value())
		}),

		build(opcode(0x35), Lshift, func(b *builder) { // LSHIFT
			b.pop(Stack0.Value(), BSP.Value())
			b.load(Stack1.Value(), BSP.Value())
		}),

		build(opcode(0x36), Rshift, func(b *builder) { // RSHIFT
			b.pop(Stack0.Value(), BSP.Value())
			b.load(Stack1.Value(), BSP.Value())
		}),

		build(opcode(0x4c), Branch, nil), // BRANCH

		build(opcode(0x4d), Branchi, nil), // BRANCHI

		build(opcode(0x4e), Qbranch, func(b *builder) { // ?BRANCH
			b.pop(Stack0.Value(), BSP.Value())
		}),

		build(opcode(0x56), Loop, func(b *builder) { // (LOOP)
			b.pop(regR3, BRP.Value())
			b.load(regR4, BRP.Value())
			b.constBinary(ir.Add, regR3, regR3, cellBytes(1))
			b.pushCell(regR3, BRP.Value())
			b.binary(ir.Sub, LoopFlag.Value(), regR3, regR4)
		}),

		build(opcode(0x5f), Halt, nil), // HALT

		// Unknown opcodes halt the machine.
		build(ir.Always{}, Halt, nil),
	}
}
