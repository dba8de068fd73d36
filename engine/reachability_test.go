package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fsmjit/fsmjit/ir"
)

type cycleState int

const (
	cycleStart cycleState = iota
	cycleLoop
	cycleDone
)

type cycleMachine struct{}

func (cycleMachine) NumGlobals() int { return 1 }
func (cycleMachine) InitialStates() []cycleState {
	return []cycleState{cycleStart}
}
func (cycleMachine) GetCode(state cycleState) (uint64, []Transition[cycleState]) {
	switch state {
	case cycleStart:
		return 0, []Transition[cycleState]{{Test: ir.Always{}, Next: cycleLoop}}
	case cycleLoop:
		return 0, []Transition[cycleState]{
			{Test: ir.Eq32{Value: ir.Slot(0), Immediate: 0}, Next: cycleDone},
			{Test: ir.Always{}, Next: cycleStart},
		}
	case cycleDone:
		return 0, nil
	default:
		return 0, nil
	}
}

func TestDiscoverVisitsEachStateOnce(t *testing.T) {
	nodes, err := discover[cycleState](context.Background(), cycleMachine{})
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	seen := make(map[cycleState]bool)
	for _, n := range nodes {
		require.False(t, seen[n.state], "state %v visited twice", n.state)
		seen[n.state] = true
	}
	require.Equal(t, cycleStart, nodes[0].state)
}

type emptyInitialMachine struct{}

func (emptyInitialMachine) NumGlobals() int                 { return 1 }
func (emptyInitialMachine) InitialStates() []cycleState      { return nil }
func (emptyInitialMachine) GetCode(cycleState) (uint64, []Transition[cycleState]) {
	return 0, nil
}

func TestDiscoverRejectsNoInitialStates(t *testing.T) {
	_, err := discover[cycleState](context.Background(), emptyInitialMachine{})
	require.ErrorIs(t, err, ErrNoInitialStates)
}

func TestDiscoverRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := discover[cycleState](ctx, cycleMachine{})
	require.ErrorIs(t, err, context.Canceled)
}
