package engine

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/fsmjit/fsmjit/buffer"
	"github.com/fsmjit/fsmjit/codegen"
	"github.com/fsmjit/fsmjit/ir"
	"github.com/fsmjit/fsmjit/x64"
)

// Engine owns one compiled executable buffer and the pool every compiled
// state reads and writes its globals through.
type Engine[S comparable] struct {
	states     []S
	stateIndex map[S]int
	buf        *buffer.Buffer
	pool       []uint64
	mu         sync.Mutex
}

// New discovers every state reachable from machine's initial states,
// compiles each one, and links them into one executable buffer ready for
// Execute. Discovery and compilation happen once, eagerly, up front; there
// is no lazy/on-demand path.
func New[S comparable](machine Machine[S], opts ...Option) (*Engine[S], error) {
	return NewContext(context.Background(), machine, opts...)
}

// NewContext is New, but aborts discovery early if ctx is canceled before
// compilation starts. Compilation itself is not interruptible: a compile
// error aborts construction entirely, and mid-pipeline cancellation would
// leave no well-defined partial result.
func NewContext[S comparable](ctx context.Context, machine Machine[S], opts ...Option) (*Engine[S], error) {
	numGlobals := machine.NumGlobals()
	if numGlobals <= 0 {
		return nil, ErrNoGlobals
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	nodes, err := discover(ctx, machine)
	if err != nil {
		return nil, err
	}

	states := make([]S, len(nodes))
	stateIndex := make(map[S]int, len(nodes))
	for i, n := range nodes {
		states[i] = n.state
		stateIndex[n.state] = i
	}

	asm := x64.NewAssembler()
	entryLabels := make([]*x64.Label, len(nodes))
	for i := range entryLabels {
		entryLabels[i] = asm.NewLabel()
	}
	labelFor := func(s S) *x64.Label { return entryLabels[stateIndex[s]] }

	plans := make([]*statePlan[S], len(nodes))
	maxSlots := numGlobals
	for i, n := range nodes {
		if len(n.transitions) == 0 {
			continue
		}
		df, tree, err := buildState[S](numGlobals, n.transitions)
		if err != nil {
			return nil, fmt.Errorf("engine: compiling state %v: %w", n.state, err)
		}
		ebb, slots, err := compileState[S](df, tree, numGlobals, x64.NumAllocatable)
		if err != nil {
			return nil, fmt.Errorf("engine: compiling state %v: %w", n.state, err)
		}
		plans[i] = &statePlan[S]{df: df, ebb: ebb}
		if slots > maxSlots {
			maxSlots = slots
		}
	}

	divScratch := x64.DivisionScratch{
		RAX:    maxSlots,
		RDX:    maxSlots + 1,
		QStage: maxSlots + 2,
		RStage: maxSlots + 3,
	}
	poolSize := maxSlots + 4 + 1 // +1 for the reserved zero word ahead of slot 0

	globals := globalValues(numGlobals)
	epilogue := asm.NewLabel()

	asm.Prologue()
	for i := range nodes {
		asm.CmpRegImm32(x64.StateIndex, int32(i), true)
		if err := asm.JumpIf(x64.CondE, entryLabels[i]); err != nil {
			return nil, err
		}
	}
	if err := asm.Jump(epilogue); err != nil {
		return nil, err
	}

	for i, plan := range plans {
		if err := asm.Bind(entryLabels[i]); err != nil {
			return nil, err
		}
		if plan == nil {
			asm.MovImm32(x64.StateIndex, int32(i))
			if err := asm.Jump(epilogue); err != nil {
				return nil, err
			}
			continue
		}
		lw := x64.NewLowerer[S](asm, plan.df, globals, labelFor, divScratch)
		if err := lw.Lower(plan.ebb); err != nil {
			return nil, fmt.Errorf("engine: lowering state %v: %w", states[i], err)
		}
	}

	if err := asm.Bind(epilogue); err != nil {
		return nil, err
	}
	asm.Epilogue()

	buf, err := buffer.New(o.bufferCapacity)
	if err != nil {
		return nil, err
	}
	if err := buf.Write(0, asm.Bytes()); err != nil {
		buf.Close()
		return nil, err
	}

	return &Engine[S]{
		states:     states,
		stateIndex: stateIndex,
		buf:        buf,
		pool:       make([]uint64, poolSize),
	}, nil
}

// statePlan is the codegen output for one non-terminal discovered state,
// awaiting lowering once every state's entry Label exists.
type statePlan[S comparable] struct {
	df  *ir.Dataflow
	ebb *codegen.EBB[S]
}

// Execute runs the compiled machine starting from initial, returning the
// state execution halted in. initial must be a state New's discovery
// reached; every other state is unrepresentable in the compiled table and
// rejected before any code runs.
func (e *Engine[S]) Execute(initial S) (S, error) {
	idx, ok := e.stateIndex[initial]
	if !ok {
		var zero S
		return zero, ErrUnknownState
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pool := uintptr(unsafe.Pointer(&e.pool[0]))
	result, err := e.buf.Execute(0, uint64(pool), uint64(idx))
	if err != nil {
		var zero S
		return zero, err
	}
	if result >= uint64(len(e.states)) {
		var zero S
		return zero, ErrBadResultState
	}
	return e.states[result], nil
}

// Slot returns a pointer into the pool for the caller's own global number
// global (0..NumGlobals-1), letting a caller seed or read a global directly
// between or around Execute calls. Not safe to call concurrently with
// Execute: the pool is exclusively owned by whichever side currently holds
// it.
func (e *Engine[S]) Slot(global int) *uint64 {
	return &e.pool[global+1]
}

// Close releases the executable buffer. The Engine must not be used again
// afterward.
func (e *Engine[S]) Close() error {
	return e.buf.Close()
}
