package simulate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fsmjit/fsmjit/ir"
	"github.com/fsmjit/fsmjit/simulate"
)

func TestMoveRebindsWithoutEmittingNode(t *testing.T) {
	x, y := ir.Reg(0), ir.Reg(1)
	sim, err := simulate.NewSimulation([]ir.Value{x})
	require.NoError(t, err)

	require.NoError(t, sim.Action(ir.Move{Dest: y, Src: x}))
	df, exit, err := sim.Finish([]ir.Value{y})
	require.NoError(t, err)

	// entry + convention only: Move never emits a node.
	require.Equal(t, 2, df.NumNodes())
	require.Equal(t, df.Outs(df.EntryNode())[0], df.Ins(exit)[0])
}

func TestBinaryEmitsOneNodeAndRebindsDest(t *testing.T) {
	x, dest := ir.Reg(0), ir.Reg(1)
	sim, err := simulate.NewSimulation([]ir.Value{x})
	require.NoError(t, err)

	require.NoError(t, sim.Action(ir.Binary{Op: ir.Mul, Precision: ir.P64, Dest: dest, Src1: x, Src2: x}))
	df, exit, err := sim.Finish([]ir.Value{dest})
	require.NoError(t, err)

	require.Equal(t, 3, df.NumNodes()) // entry, mul, convention
	mulNode := df.Ins(exit)[0].Node()
	require.IsType(t, ir.OpBinary{}, df.Op(mulNode))
}

func TestReadDeadValueIsAnError(t *testing.T) {
	x, ghost := ir.Reg(0), ir.Reg(9)
	sim, err := simulate.NewSimulation([]ir.Value{x})
	require.NoError(t, err)

	err = sim.Action(ir.Move{Dest: ir.Reg(1), Src: ghost})
	require.ErrorIs(t, err, simulate.ErrDeadValue)
}

func TestLoadDependsOnMostRecentStore(t *testing.T) {
	addr, val, dest := ir.Reg(0), ir.Reg(1), ir.Reg(2)
	sim, err := simulate.NewSimulation([]ir.Value{addr, val})
	require.NoError(t, err)

	require.NoError(t, sim.Action(ir.Store{DestReg: ir.Reg(3), Src: val, Addr: ir.Addr{Value: addr, Width: ir.Eight}, Alias: 1}))
	require.NoError(t, sim.Action(ir.Load{Dest: dest, Addr: ir.Addr{Value: addr, Width: ir.Eight}, Alias: 1}))
	df, exit, err := sim.Finish([]ir.Value{dest})
	require.NoError(t, err)

	loadNode := df.Ins(exit)[0].Node()
	require.IsType(t, ir.OpLoad{}, df.Op(loadNode))
	deps := df.Deps(loadNode)
	require.Len(t, deps, 1)
	require.IsType(t, ir.OpStore{}, df.Op(deps[0]))
}

func TestDebugChainsInProgramOrder(t *testing.T) {
	x := ir.Reg(0)
	sim, err := simulate.NewSimulation([]ir.Value{x})
	require.NoError(t, err)

	require.NoError(t, sim.Action(ir.Debug{Src: x}))
	require.NoError(t, sim.Action(ir.Debug{Src: x}))
	df, exit, err := sim.Finish([]ir.Value{x})
	require.NoError(t, err)

	// The second Debug depends on the first, and the exit depends on the
	// second: observations cannot be reordered against one another.
	second := df.Deps(exit)[1]
	require.IsType(t, ir.OpDebug{}, df.Op(second))
	first := df.Deps(second)[0]
	require.IsType(t, ir.OpDebug{}, df.Op(first))
	require.Equal(t, df.EntryNode(), df.Deps(first)[0])
}

func TestBuilderFluentMatchesAction(t *testing.T) {
	x := ir.Reg(0)
	df, exit, err := simulate.NewBuilder([]ir.Value{x}).
		Constant(ir.P64, ir.Reg(1), 41).
		Binary(ir.Add, ir.P64, ir.Reg(2), ir.Reg(1), x).
		Finish([]ir.Value{ir.Reg(2)})
	require.NoError(t, err)
	require.NoError(t, df.Validate())
	require.Equal(t, ir.OpConvention{}, df.Op(exit))
}
