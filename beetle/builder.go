package beetle

import "github.com/fsmjit/fsmjit/ir"

// Scratch registers used while building one transition's action list. None
// of these survive past the leaf they're built in: they're synthetic names
// local to one simulate.Simulation run, a shared temporary plus numbered
// extras for the routines that need more than one live at once.
var (
	regTemp = ir.Reg(0)
	regR1   = ir.Reg(1)
	regR2   = ir.Reg(2)
	regR3   = ir.Reg(3)
	regR4   = ir.Reg(4)
)

// builder accumulates one transition's straight-line ir.Actions:
// move/const/unary/binary fill in the 32-bit default precision, and
// load/store map a Beetle address through BMemory before touching the
// unified address space memory represents.
type builder struct {
	actions []ir.Action
}

func newBuilder() *builder { return &builder{} }

func (b *builder) push(a ir.Action) *builder {
	b.actions = append(b.actions, a)
	return b
}

func (b *builder) move(dest, src ir.Value) *builder {
	return b.push(ir.Move{Dest: dest, Src: src})
}

func (b *builder) constant(dest ir.Value, imm int64) *builder {
	b.push(ir.Constant{Precision: ir.P32, Dest: regTemp, Immediate: imm})
	return b.move(dest, regTemp)
}

func (b *builder) unary(op ir.UnaryOp, dest, src ir.Value) *builder {
	b.push(ir.Unary{Op: op, Precision: ir.P32, Dest: regTemp, Src: src})
	return b.move(dest, regTemp)
}

func (b *builder) binary(op ir.BinaryOp, dest, src1, src2 ir.Value) *builder {
	b.push(ir.Binary{Op: op, Precision: ir.P32, Dest: regTemp, Src1: src1, Src2: src2})
	return b.move(dest, regTemp)
}

// constBinary applies op to src and an immediate, writing dest. TEMP holds
// the immediate and then the result in turn; reusing TEMP as both the
// Binary's Src2 and its Dest is safe since an ir.Binary reads its operands
// before its Dest rebinds the name.
func (b *builder) constBinary(op ir.BinaryOp, dest, src ir.Value, imm int64) *builder {
	b.push(ir.Constant{Precision: ir.P32, Dest: regTemp, Immediate: imm})
	b.push(ir.Binary{Op: op, Precision: ir.P32, Dest: regTemp, Src1: src, Src2: regTemp})
	return b.move(dest, regTemp)
}

// nativeAddress computes the native address corresponding to a Beetle
// address addr, Beetle's pool-relative memory being BMemory plus addr.
func (b *builder) nativeAddress(dest, addr ir.Value) *builder {
	return b.push(ir.Binary{Op: ir.Add, Precision: ir.P64, Dest: dest, Src1: BMemory.Value(), Src2: addr})
}

// load computes addr's native address and reads a 32-bit cell from it.
func (b *builder) load(dest, addr ir.Value) *builder {
	b.nativeAddress(regTemp, addr)
	b.push(ir.Load{Dest: regTemp, Addr: ir.Addr{Value: regTemp, Width: ir.Four}, Alias: memory})
	return b.move(dest, regTemp)
}

// store computes addr's native address and writes a 32-bit cell to it.
func (b *builder) store(src, addr ir.Value) *builder {
	b.nativeAddress(regTemp, addr)
	return b.push(ir.Store{DestReg: regTemp, Src: src, Addr: ir.Addr{Value: regTemp, Width: ir.Four}, Alias: memory})
}

// pop loads dest from addr, then advances addr past the cell just read.
func (b *builder) pop(dest, addr ir.Value) *builder {
	b.load(dest, addr)
	b.constBinary(ir.Add, regTemp, addr, cellBytes(1))
	return b.move(addr, regTemp)
}

// pushCell decrements addr by one cell, then stores src there. Named
// pushCell rather than push, which the raw-action helper above already
// takes.
func (b *builder) pushCell(src, addr ir.Value) *builder {
	b.constBinary(ir.Sub, regTemp, addr, cellBytes(1))
	b.move(addr, regTemp)
	return b.store(src, addr)
}
