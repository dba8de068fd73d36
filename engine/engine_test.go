package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fsmjit/fsmjit/engine"
	"github.com/fsmjit/fsmjit/ir"
)

// factorialState is a hand-built 3-state Machine computing n! by tail
// recursion: start seeds the accumulator, loop multiplies-and-decrements
// until the counter hits zero, done is terminal.
type factorialState int

const (
	stateStart factorialState = iota
	stateLoop
	stateDone
)

// global pool slots every state agrees on: 0 is the countdown, 1 the
// running product.
var (
	slotN   = ir.Slot(0)
	slotAcc = ir.Slot(1)
)

type factorialMachine struct{}

func (factorialMachine) NumGlobals() int { return 2 }

func (factorialMachine) InitialStates() []factorialState {
	return []factorialState{stateStart}
}

func (factorialMachine) GetCode(state factorialState) (uint64, []engine.Transition[factorialState]) {
	switch state {
	case stateStart:
		return 0, []engine.Transition[factorialState]{
			{
				Test:      ir.Always{},
				Precision: ir.P64,
				Actions: []ir.Action{
					ir.Constant{Precision: ir.P64, Dest: slotAcc, Immediate: 1},
				},
				Next: stateLoop,
			},
		}
	case stateLoop:
		one := ir.Reg(0)
		return 0, []engine.Transition[factorialState]{
			{
				Test:      ir.Eq32{Value: slotN, Immediate: 0},
				Precision: ir.P64,
				Next:      stateDone,
			},
			{
				Test:      ir.Always{},
				Precision: ir.P64,
				Actions: []ir.Action{
					ir.Constant{Precision: ir.P64, Dest: one, Immediate: 1},
					ir.Binary{Op: ir.Mul, Precision: ir.P64, Dest: slotAcc, Src1: slotAcc, Src2: slotN},
					ir.Binary{Op: ir.Sub, Precision: ir.P64, Dest: slotN, Src1: slotN, Src2: one},
				},
				Next: stateLoop,
			},
		}
	case stateDone:
		return 0, nil
	default:
		return 0, nil
	}
}

func TestEngineComputesFactorial(t *testing.T) {
	e, err := engine.New[factorialState](factorialMachine{})
	require.NoError(t, err)
	defer e.Close()

	*e.Slot(0) = 5

	final, err := e.Execute(stateStart)
	require.NoError(t, err)
	require.Equal(t, stateDone, final)
	require.Equal(t, uint64(120), *e.Slot(1))
}

func TestEngineRejectsUnknownState(t *testing.T) {
	e, err := engine.New[factorialState](factorialMachine{})
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Execute(factorialState(99))
	require.ErrorIs(t, err, engine.ErrUnknownState)
}

func TestEngineRejectsZeroGlobals(t *testing.T) {
	_, err := engine.New[factorialState](noGlobalsMachine{})
	require.ErrorIs(t, err, engine.ErrNoGlobals)
}

type noGlobalsMachine struct{}

func (noGlobalsMachine) NumGlobals() int { return 0 }
func (noGlobalsMachine) InitialStates() []factorialState {
	return []factorialState{stateStart}
}
func (noGlobalsMachine) GetCode(factorialState) (uint64, []engine.Transition[factorialState]) {
	return 0, nil
}
