package simulate

import (
	"fmt"

	"github.com/fsmjit/fsmjit/ir"
)

// Simulation executes a straight-line list of ir.Actions symbolically,
// building an ir.Dataflow graph as it goes.
type Simulation struct {
	dataflow *ir.Dataflow
	bindings map[ir.Value]ir.Out

	store ir.Node   // most recent Store, or the entry node
	loads []ir.Node // memory accesses since store, including store itself
	stack ir.Node   // most recent stack (Debug) operation, or the entry node
}

// NewSimulation constructs a Simulation of a basic block. On entry, only
// liveIn Values are bound (to the entry node's outputs, in order).
func NewSimulation(liveIn []ir.Value) (*Simulation, error) {
	if len(liveIn) == 0 {
		return nil, ErrEmptyLiveIn
	}
	df, err := ir.NewDataflow(len(liveIn))
	if err != nil {
		return nil, err
	}
	entry := df.EntryNode()
	bindings := make(map[ir.Value]ir.Out, len(liveIn))
	for v, out := range zip(liveIn, df.Outs(entry)) {
		bindings[v] = out
	}
	return &Simulation{
		dataflow: df,
		bindings: bindings,
		store:    entry,
		loads:    []ir.Node{entry},
		stack:    entry,
	}, nil
}

func zip(vs []ir.Value, outs []ir.Out) map[ir.Value]ir.Out {
	m := make(map[ir.Value]ir.Out, len(vs))
	for i, v := range vs {
		m[v] = outs[i]
	}
	return m
}

// lookup returns the Out currently bound to v.
func (s *Simulation) lookup(v ir.Value) (ir.Out, error) {
	out, ok := s.bindings[v]
	if !ok {
		return ir.Out{}, fmt.Errorf("%w: %v", ErrDeadValue, v)
	}
	return out, nil
}

// bind rebinds dest to out.
func (s *Simulation) bind(dest ir.Value, out ir.Out) {
	s.bindings[dest] = out
}

// emit resolves ins to Outs, appends a node computing op, and binds dests
// to its outputs in order.
func (s *Simulation) emit(op ir.Op, deps []ir.Node, ins []ir.Value, dests []ir.Value) (ir.Node, error) {
	resolved := make([]ir.Out, len(ins))
	for i, v := range ins {
		out, err := s.lookup(v)
		if err != nil {
			return 0, err
		}
		resolved[i] = out
	}
	node := s.dataflow.AddNode(op, deps, resolved)
	outs := s.dataflow.Outs(node)
	for i, dest := range dests {
		s.bind(dest, outs[i])
	}
	return node, nil
}

// Action simulates executing one ir.Action, mutating bindings and appending
// at most one node to the Dataflow under construction.
func (s *Simulation) Action(a ir.Action) error {
	switch act := a.(type) {
	case ir.Move:
		out, err := s.lookup(act.Src)
		if err != nil {
			return err
		}
		s.bind(act.Dest, out)
		return nil

	case ir.Constant:
		value := act.Immediate
		if act.Precision == ir.P32 {
			value &= 0xffffffff
		}
		_, err := s.emit(ir.OpConstant{Value: value}, nil, nil, []ir.Value{act.Dest})
		return err

	case ir.Unary:
		_, err := s.emit(ir.OpUnary{Op: act.Op, Precision: act.Precision}, nil, []ir.Value{act.Src}, []ir.Value{act.Dest})
		return err

	case ir.Binary:
		_, err := s.emit(ir.OpBinary{Op: act.Op, Precision: act.Precision}, nil, []ir.Value{act.Src1, act.Src2}, []ir.Value{act.Dest})
		return err

	case ir.Division:
		_, err := s.emit(ir.OpDivision{Kind: act.Kind, Precision: act.Precision}, nil,
			[]ir.Value{act.Dividend, act.Divisor}, []ir.Value{act.QDest, act.RDest})
		return err

	case ir.Load:
		node, err := s.emit(ir.OpLoad{Width: act.Addr.Width, Alias: act.Alias}, []ir.Node{s.store},
			[]ir.Value{act.Addr.Value}, []ir.Value{act.Dest})
		if err != nil {
			return err
		}
		s.loads = append(s.loads, node)
		return nil

	case ir.Store:
		deps := s.loads
		s.loads = nil
		node, err := s.emit(ir.OpStore{Width: act.Addr.Width, Alias: act.Alias}, deps,
			[]ir.Value{act.Src, act.Addr.Value}, []ir.Value{act.DestReg})
		if err != nil {
			return err
		}
		// The store "returns" a copy of the address, but the source value
		// remains the thing that's actually live for reuse.
		srcOut, err := s.lookup(act.Src)
		if err != nil {
			return err
		}
		s.bind(act.DestReg, srcOut)
		s.store = node
		s.loads = append(s.loads, node)
		return nil

	case ir.Debug:
		node, err := s.emit(ir.OpDebug{}, []ir.Node{s.stack}, []ir.Value{act.Src}, nil)
		if err != nil {
			return err
		}
		s.stack = node
		return nil

	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
}

// Finish appends a Convention exit node whose data inputs are liveOut
// (looked up in the current bindings) and whose dependency inputs are the
// most recent Store and stack nodes. Returns the finished Dataflow and the
// exit Node.
func (s *Simulation) Finish(liveOut []ir.Value) (*ir.Dataflow, ir.Node, error) {
	exit, err := s.emit(ir.OpConvention{}, []ir.Node{s.store, s.stack}, liveOut, nil)
	if err != nil {
		return nil, 0, err
	}
	return s.dataflow, exit, nil
}
