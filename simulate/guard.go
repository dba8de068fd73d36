package simulate

import "github.com/fsmjit/fsmjit/ir"

// Fork returns an independent copy of s sharing the same underlying
// ir.Dataflow but with its own bindings, open-loads set, and most-recent
// Store/stack pointers. It lets a caller evaluate several guards in
// sequence against one starting binding state — as a Machine's
// first-match-wins transition list requires — by running each matched
// transition's action list on its own fork while the original continues
// unmodified into the next guard test.
func (s *Simulation) Fork() *Simulation {
	bindings := make(map[ir.Value]ir.Out, len(s.bindings))
	for k, v := range s.bindings {
		bindings[k] = v
	}
	return &Simulation{
		dataflow: s.dataflow,
		bindings: bindings,
		store:    s.store,
		loads:    append([]ir.Node(nil), s.loads...),
		stack:    s.stack,
	}
}

// scratch returns the n-th synthetic Value used while compiling one guard
// expression: a register numbered past any real allocatable index. Guard
// intermediates are never read again once CompileTestOp returns, so
// collisions with real register numbers used elsewhere in the program are
// harmless.
func scratch(n int) ir.Value { return ir.Reg(ir.Register(0xf0 + n)) }

// CompileTestOp emits the dataflow nodes evaluating a guard predicate
// against s's current bindings, terminating in an ir.OpGuard node whose
// single data input is the all-ones/all-zero boolean the TestOp variants
// are defined to compute. It never rebinds any Value the caller can still
// see — a guard reads values, it does not define new ones — so evaluating
// several TestOps in sequence against the same Simulation, as a
// first-match-wins transition chain requires, is safe without forking.
//
// Every TestOp maps onto the ir.Binary comparison set (Lt, Ult, Eq), which
// already produces the all-ones/all-zero boolean encoding;
// Ge/Uge/Ne are the bitwise complement (ir.Not) of Lt/Ult/Eq, since Not on
// an all-ones/all-zero value is exactly boolean negation.
func CompileTestOp(s *Simulation, t ir.TestOp, p ir.Precision) (ir.Node, error) {
	boolVal, err := compileBool(s, t, p)
	if err != nil {
		return 0, err
	}
	boolOut, err := s.lookup(boolVal)
	if err != nil {
		return 0, err
	}
	return s.dataflow.AddNode(ir.OpGuard{}, nil, []ir.Out{boolOut}), nil
}

// compileBool emits the nodes computing t's boolean result and returns the
// synthetic Value it was bound to.
func compileBool(s *Simulation, t ir.TestOp, p ir.Precision) (ir.Value, error) {
	n := 0
	fresh := func() ir.Value {
		n++
		return scratch(n)
	}
	constant := func(imm int64) (ir.Value, error) {
		v := fresh()
		if err := s.Action(ir.Constant{Precision: p, Dest: v, Immediate: imm}); err != nil {
			return ir.Value{}, err
		}
		return v, nil
	}
	binary := func(op ir.BinaryOp, src1, src2 ir.Value) (ir.Value, error) {
		v := fresh()
		if err := s.Action(ir.Binary{Op: op, Precision: p, Dest: v, Src1: src1, Src2: src2}); err != nil {
			return ir.Value{}, err
		}
		return v, nil
	}
	negate := func(src ir.Value) (ir.Value, error) {
		v := fresh()
		if err := s.Action(ir.Unary{Op: ir.Not, Precision: p, Dest: v, Src: src}); err != nil {
			return ir.Value{}, err
		}
		return v, nil
	}
	compare := func(op ir.BinaryOp, value ir.Value, imm int64, invert bool) (ir.Value, error) {
		immV, err := constant(imm)
		if err != nil {
			return ir.Value{}, err
		}
		cmpV, err := binary(op, value, immV)
		if err != nil {
			return ir.Value{}, err
		}
		if !invert {
			return cmpV, nil
		}
		return negate(cmpV)
	}

	switch test := t.(type) {
	case ir.Always:
		return constant(-1)

	case ir.Bits:
		maskV, err := constant(int64(test.Mask))
		if err != nil {
			return ir.Value{}, err
		}
		andV, err := binary(ir.And, test.Value, maskV)
		if err != nil {
			return ir.Value{}, err
		}
		expV, err := constant(int64(test.Expected))
		if err != nil {
			return ir.Value{}, err
		}
		return binary(ir.Eq, andV, expV)

	case ir.Lt32:
		return compare(ir.Lt, test.Value, int64(test.Immediate), false)
	case ir.Ge32:
		return compare(ir.Lt, test.Value, int64(test.Immediate), true)
	case ir.Ult32:
		return compare(ir.Ult, test.Value, int64(test.Immediate), false)
	case ir.Uge32:
		return compare(ir.Ult, test.Value, int64(test.Immediate), true)
	case ir.Eq32:
		return compare(ir.Eq, test.Value, int64(test.Immediate), false)
	case ir.Ne32:
		return compare(ir.Eq, test.Value, int64(test.Immediate), true)

	default:
		return ir.Value{}, ErrUnknownAction
	}
}
