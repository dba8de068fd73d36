package ir

import (
	"fmt"
	"strings"
	"sync"
)

// Node is an arena index into a Dataflow's node list.
type Node int

// Out is a handle to a single output of a Node: the node that produced it,
// and which of that node's outputs this is.
type Out struct {
	node  Node
	index int
}

// Node returns the producing Node of this Out.
func (o Out) Node() Node { return o.node }

// Index returns which output of its producing Node this Out is.
func (o Out) Index() int { return o.index }

func (o Out) String() string { return fmt.Sprintf("Out(%d.%d)", o.node, o.index) }

type nodeData struct {
	op      Op
	dataIns []Out
	depIns  []Node
	numOuts int
}

// Dataflow is the arena-indexed dataflow graph built by simulate.Simulation
// for one action list and consumed once by the scheduler. Acyclicity and
// def-before-use are structural invariants: AddNode only accepts Out/Node
// handles that already exist in the arena, so every reference points
// strictly backwards.
//
// mu guards the arena during construction; a Dataflow is built by a single
// goroutine in practice (one simulate.Simulation per action list) but the
// lock lets callers share read access (Outs, Ins, Deps, ...) with an
// in-flight build, mirroring core.Graph's muVert/muEdgeAdj split.
type Dataflow struct {
	mu    sync.RWMutex
	nodes []nodeData
}

// NewDataflow creates a Dataflow whose entry node produces numLiveIns
// outputs (the live-in values).
func NewDataflow(numLiveIns int) (*Dataflow, error) {
	if numLiveIns <= 0 {
		return nil, ErrEmptyInputs
	}
	d := &Dataflow{}
	d.nodes = append(d.nodes, nodeData{
		op:      OpEntry{NumOuts: numLiveIns},
		numOuts: numLiveIns,
	})
	return d, nil
}

// EntryNode returns the graph's entry node, always Node(0).
func (d *Dataflow) EntryNode() Node { return 0 }

func (d *Dataflow) valid(n Node) bool {
	return n >= 0 && int(n) < len(d.nodes)
}

// Outs returns the Out handles produced by node.
func (d *Dataflow) Outs(node Node) []Out {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.valid(node) {
		panic(fmt.Sprintf("ir: %v: node %d", ErrUnknownNode, node))
	}
	n := d.nodes[node].numOuts
	outs := make([]Out, n)
	for i := range outs {
		outs[i] = Out{node: node, index: i}
	}
	return outs
}

// AddNode appends a new node computing op, depending on deps (ordering-only
// edges) and reading ins (data edges). Returns the new Node handle. Panics
// if any referenced Node or Out does not already exist in the arena — by
// construction this can only happen if the caller fabricates a handle from
// a different Dataflow, since every handle this Dataflow has ever returned
// refers to an index strictly less than len(d.nodes) at call time.
func (d *Dataflow) AddNode(op Op, deps []Node, ins []Out) Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, dep := range deps {
		if !d.valid(dep) {
			panic(fmt.Sprintf("ir: %v: dep node %d", ErrUnknownNode, dep))
		}
	}
	for _, in := range ins {
		if !d.valid(in.node) || in.index >= d.nodes[in.node].numOuts {
			panic(fmt.Sprintf("ir: %v: %v", ErrUnknownOut, in))
		}
	}
	node := Node(len(d.nodes))
	numOuts := op.numOuts()
	d.nodes = append(d.nodes, nodeData{
		op:      op,
		dataIns: append([]Out(nil), ins...),
		depIns:  append([]Node(nil), deps...),
		numOuts: numOuts,
	})
	return node
}

// AddNodeN is AddNode for ops whose output count isn't fixed by the Op type
// alone (only OpEntry needs this today; exposed for symmetry/future ops).
func (d *Dataflow) AddNodeN(op Op, deps []Node, ins []Out, numOuts int) Node {
	node := d.AddNode(op, deps, ins)
	d.mu.Lock()
	d.nodes[node].numOuts = numOuts
	d.mu.Unlock()
	return node
}

// Op returns the operation a node computes.
func (d *Dataflow) Op(node Node) Op {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.nodes[node].op
}

// Ins returns node's data inputs, in order.
func (d *Dataflow) Ins(node Node) []Out {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Out(nil), d.nodes[node].dataIns...)
}

// Deps returns node's dependency (ordering-only) inputs, in order.
func (d *Dataflow) Deps(node Node) []Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Node(nil), d.nodes[node].depIns...)
}

// NumNodes returns the number of nodes in the arena, including the entry
// node.
func (d *Dataflow) NumNodes() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.nodes)
}

// AllNodes returns every Node handle in arena (= definition) order.
func (d *Dataflow) AllNodes() []Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Node, len(d.nodes))
	for i := range out {
		out[i] = Node(i)
	}
	return out
}

// Validate checks two structural invariants: the graph is
// acyclic, and every Out is defined before it is used. Because AddNode
// rejects forward references at construction time, a Dataflow built solely
// through AddNode/AddNodeN cannot violate these — Validate exists as a
// cheap sanity check for tests and for any future direct arena
// manipulation.
func (d *Dataflow) Validate() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i, n := range d.nodes {
		for _, dep := range n.depIns {
			if int(dep) >= i {
				return fmt.Errorf("%w: node %d depends on node %d", ErrCyclicGraph, i, dep)
			}
		}
		for _, in := range n.dataIns {
			if int(in.node) >= i {
				return fmt.Errorf("%w: node %d reads %v", ErrUseBeforeDef, i, in)
			}
		}
	}
	return nil
}

// String renders the arena one node per line, for tests and debugging.
func (d *Dataflow) String() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var b strings.Builder
	for i, n := range d.nodes {
		fmt.Fprintf(&b, "n%d: %T", i, n.op)
		if len(n.dataIns) > 0 {
			fmt.Fprintf(&b, " ins=%v", n.dataIns)
		}
		if len(n.depIns) > 0 {
			fmt.Fprintf(&b, " deps=%v", n.depIns)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
