package beetle

import "github.com/fsmjit/fsmjit/ir"

// opcode builds the guard a Dispatch case tests: the low byte of Opcode
// equals c.
func opcode(c byte) ir.TestOp {
	return ir.Bits{Value: Opcode.Value(), Mask: 0xff, Expected: int32(c)}
}

func eq(v ir.Value, c int32) ir.TestOp  { return ir.Eq32{Value: v, Immediate: c} }
func ult(v ir.Value, c int32) ir.TestOp { return ir.Ult32{Value: v, Immediate: c} }
