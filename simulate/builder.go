package simulate

import "github.com/fsmjit/fsmjit/ir"

// Builder is a closure-friendly wrapper over Simulation for front ends
// (Beetle in particular) that assemble action lists fluently instead of
// hand-building []ir.Action slices. The first error encountered
// short-circuits every subsequent call; callers check Err() once at the
// end.
type Builder struct {
	sim *Simulation
	err error
}

// NewBuilder starts a Builder over the given live-in Values.
func NewBuilder(liveIn []ir.Value) *Builder {
	sim, err := NewSimulation(liveIn)
	return &Builder{sim: sim, err: err}
}

func (b *Builder) act(a ir.Action) *Builder {
	if b.err != nil {
		return b
	}
	b.err = b.sim.Action(a)
	return b
}

// Constant loads an immediate.
func (b *Builder) Constant(p ir.Precision, dest ir.Value, imm int64) *Builder {
	return b.act(ir.Constant{Precision: p, Dest: dest, Immediate: imm})
}

// Move copies src's binding into dest.
func (b *Builder) Move(dest, src ir.Value) *Builder {
	return b.act(ir.Move{Dest: dest, Src: src})
}

// Unary applies a unary operator.
func (b *Builder) Unary(op ir.UnaryOp, p ir.Precision, dest, src ir.Value) *Builder {
	return b.act(ir.Unary{Op: op, Precision: p, Dest: dest, Src: src})
}

// Binary applies a binary operator.
func (b *Builder) Binary(op ir.BinaryOp, p ir.Precision, dest, src1, src2 ir.Value) *Builder {
	return b.act(ir.Binary{Op: op, Precision: p, Dest: dest, Src1: src1, Src2: src2})
}

// Division computes quotient and remainder.
func (b *Builder) Division(kind ir.DivisionKind, p ir.Precision, qDest, rDest, dividend, divisor ir.Value) *Builder {
	return b.act(ir.Division{Kind: kind, Precision: p, QDest: qDest, RDest: rDest, Dividend: dividend, Divisor: divisor})
}

// Load reads from memory.
func (b *Builder) Load(dest ir.Value, addr ir.Value, width ir.Width, alias ir.AliasMask) *Builder {
	return b.act(ir.Load{Dest: dest, Addr: ir.Addr{Value: addr, Width: width}, Alias: alias})
}

// Store writes to memory.
func (b *Builder) Store(destReg, src, addr ir.Value, width ir.Width, alias ir.AliasMask) *Builder {
	return b.act(ir.Store{DestReg: destReg, Src: src, Addr: ir.Addr{Value: addr, Width: width}, Alias: alias})
}

// Debug records a side-effecting observation of src.
func (b *Builder) Debug(src ir.Value) *Builder {
	return b.act(ir.Debug{Src: src})
}

// Err returns the first error encountered, if any.
func (b *Builder) Err() error { return b.err }

// Finish appends the Convention exit node and returns the finished graph.
func (b *Builder) Finish(liveOut []ir.Value) (*ir.Dataflow, ir.Node, error) {
	if b.err != nil {
		return nil, 0, b.err
	}
	return b.sim.Finish(liveOut)
}
