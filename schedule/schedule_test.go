package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fsmjit/fsmjit/ir"
	"github.com/fsmjit/fsmjit/schedule"
)

func TestRunAllocatesASingleBinaryNode(t *testing.T) {
	df, err := ir.NewDataflow(2)
	require.NoError(t, err)
	entry := df.EntryNode()
	x, y := df.Outs(entry)[0], df.Outs(entry)[1]

	mul := df.AddNode(ir.OpBinary{Op: ir.Mul, Precision: ir.P64}, nil, []ir.Out{x, y})
	mulOut := df.Outs(mul)[0]

	sched, err := schedule.Run(df, []ir.Node{mul}, []ir.Out{mulOut}, nil, nil, 4, 0)
	require.NoError(t, err)

	require.Len(t, sched.Order, 1)
	require.Equal(t, mul, sched.Order[0].Node)
	require.False(t, sched.Order[0].Spill)

	v, ok := sched.Allocation[mulOut]
	require.True(t, ok)
	require.True(t, v.IsRegister())
	require.Equal(t, 0, sched.SlotsUsed)
}

func TestRunSpillsWhenLiveValuesExceedRegisters(t *testing.T) {
	const numConstants = 8
	const numRegisters = 5

	df, err := ir.NewDataflow(1)
	require.NoError(t, err)

	var roots []ir.Node
	var liveOut []ir.Out
	for i := 0; i < numConstants; i++ {
		n := df.AddNode(ir.OpConstant{Value: int64(i)}, nil, nil)
		roots = append(roots, n)
		liveOut = append(liveOut, df.Outs(n)[0])
	}

	sched, err := schedule.Run(df, roots, liveOut, nil, nil, numRegisters, 0)
	require.NoError(t, err)

	spills := 0
	for _, instr := range sched.Order {
		if instr.Spill {
			spills++
			if instr.Paired {
				spills++ // a paired instruction evicts two occupants
			}
		}
	}
	require.GreaterOrEqual(t, spills, numConstants-numRegisters)
	require.Equal(t, sched.SlotsUsed, spills)

	// Every constant must resolve to some Variable, register or slot.
	for _, out := range liveOut {
		_, ok := sched.Allocation[out]
		require.True(t, ok)
	}
}

// TestRunSpillStress keeps 20 Constants live simultaneously on
// x64.NumAllocatable (12) registers; expect at
// least 7 spills and a correct, distinct slot or register for every value.
func TestRunSpillStress(t *testing.T) {
	const numConstants = 20
	const numRegisters = 12

	df, err := ir.NewDataflow(1)
	require.NoError(t, err)

	var roots []ir.Node
	var liveOut []ir.Out
	for i := 0; i < numConstants; i++ {
		n := df.AddNode(ir.OpConstant{Value: int64(i)}, nil, nil)
		roots = append(roots, n)
		liveOut = append(liveOut, df.Outs(n)[0])
	}

	sched, err := schedule.Run(df, roots, liveOut, nil, nil, numRegisters, 0)
	require.NoError(t, err)

	evicted := 0
	for _, instr := range sched.Order {
		if instr.Spill {
			evicted++
			if instr.Paired {
				evicted++
			}
		}
	}
	require.GreaterOrEqual(t, evicted, 7)

	seen := make(map[schedule.Variable]ir.Out, numConstants)
	for _, out := range liveOut {
		v, ok := sched.Allocation[out]
		require.True(t, ok)
		seen[v] = out
	}
	require.Len(t, seen, numConstants)
}

func TestRunSkipsEntryNodeInOrder(t *testing.T) {
	df, err := ir.NewDataflow(1)
	require.NoError(t, err)
	entry := df.EntryNode()
	x := df.Outs(entry)[0]

	sched, err := schedule.Run(df, []ir.Node{entry}, []ir.Out{x}, nil, nil, 2, 0)
	require.NoError(t, err)
	require.Empty(t, sched.Order)

	v, ok := sched.Allocation[x]
	require.True(t, ok)
	require.True(t, v.IsRegister())
}

func TestRunRejectsInvalidArguments(t *testing.T) {
	df, err := ir.NewDataflow(1)
	require.NoError(t, err)

	_, err = schedule.Run(nil, []ir.Node{df.EntryNode()}, nil, nil, nil, 4, 0)
	require.ErrorIs(t, err, schedule.ErrNilDataflow)

	_, err = schedule.Run(df, nil, nil, nil, nil, 4, 0)
	require.ErrorIs(t, err, schedule.ErrNoRoots)

	_, err = schedule.Run(df, []ir.Node{df.EntryNode()}, nil, nil, nil, 0, 0)
	require.ErrorIs(t, err, schedule.ErrNoRegisters)
}

func TestRunPairsSimultaneousSpills(t *testing.T) {
	df, err := ir.NewDataflow(1)
	require.NoError(t, err)

	c1 := df.AddNode(ir.OpConstant{Value: 6}, nil, nil)
	c2 := df.AddNode(ir.OpConstant{Value: 3}, nil, nil)
	c1Out, c2Out := df.Outs(c1)[0], df.Outs(c2)[0]

	div := df.AddNode(ir.OpDivision{Kind: ir.Unsigned, Precision: ir.P64}, nil, []ir.Out{c1Out, c2Out})

	sched, err := schedule.Run(df, []ir.Node{c1, c2, div}, []ir.Out{c1Out, c2Out}, nil, nil, 2, 0)
	require.NoError(t, err)

	require.Len(t, sched.Order, 4) // c1, c2, one paired spill, div
	spill := sched.Order[2]
	require.True(t, spill.Spill)
	require.True(t, spill.Paired)
	require.ElementsMatch(t, []ir.Out{c1Out, c2Out}, []ir.Out{spill.A, spill.B})
	require.Equal(t, div, sched.Order[3].Node)
	require.Equal(t, 2, sched.SlotsUsed)
}

func TestRunIgnoresDeadReservedRegisters(t *testing.T) {
	df, err := ir.NewDataflow(1)
	require.NoError(t, err)

	// An enclosing schedule left a dead intermediate parked in every
	// register; this region never reads any of them, so they must all be
	// treated as free rather than starving the lone constant below.
	location := make(map[ir.Out]schedule.Variable)
	var ghosts []ir.Node
	for r := 0; r < 2; r++ {
		g := df.AddNode(ir.OpConstant{Value: int64(r)}, nil, nil)
		ghosts = append(ghosts, g)
		location[df.Outs(g)[0]] = schedule.RegisterVar(schedule.Register(r))
	}
	boundary := map[ir.Node]bool{ghosts[0]: true, ghosts[1]: true}

	c := df.AddNode(ir.OpConstant{Value: 7}, nil, nil)
	cOut := df.Outs(c)[0]

	sched, err := schedule.Run(df, []ir.Node{c}, []ir.Out{cOut},
		nil, &schedule.Reserved{Location: location, Boundary: boundary}, 2, 0)
	require.NoError(t, err)

	v, ok := sched.Allocation[cOut]
	require.True(t, ok)
	require.True(t, v.IsRegister())
	require.Zero(t, sched.SlotsUsed, "no spill should be needed for one live value")
}

func TestRunHonorsReservedBoundary(t *testing.T) {
	df, err := ir.NewDataflow(1)
	require.NoError(t, err)
	entry := df.EntryNode()
	x := df.Outs(entry)[0]

	c := df.AddNode(ir.OpConstant{Value: 41}, nil, nil)
	cOut := df.Outs(c)[0]
	add := df.AddNode(ir.OpBinary{Op: ir.Add, Precision: ir.P64}, nil, []ir.Out{cOut, x})
	addOut := df.Outs(add)[0]

	reserved := &schedule.Reserved{
		Location: map[ir.Out]schedule.Variable{cOut: schedule.RegisterVar(3)},
		Boundary: map[ir.Node]bool{c: true},
	}

	sched, err := schedule.Run(df, []ir.Node{add}, []ir.Out{addOut}, nil, reserved, 4, 0)
	require.NoError(t, err)

	// c was never (re)scheduled: only the add node appears.
	require.Len(t, sched.Order, 1)
	require.Equal(t, add, sched.Order[0].Node)
	require.Equal(t, schedule.RegisterVar(3), sched.Allocation[cOut])
}
