package x64_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fsmjit/fsmjit/cft"
	"github.com/fsmjit/fsmjit/codegen"
	"github.com/fsmjit/fsmjit/ir"
	"github.com/fsmjit/fsmjit/schedule"
	"github.com/fsmjit/fsmjit/x64"
)

func newLowerer(t *testing.T, df *ir.Dataflow, globals []ir.Value) *x64.Lowerer[string] {
	t.Helper()
	asm := x64.NewAssembler()
	labels := map[string]*x64.Label{}
	labelFor := func(s string) *x64.Label {
		if l, ok := labels[s]; ok {
			return l
		}
		l := asm.NewLabel()
		labels[s] = l
		return l
	}
	return x64.NewLowerer[string](asm, df, globals, labelFor, x64.DivisionScratch{RAX: 100, RDX: 101, QStage: 102, RStage: 103})
}

func TestLowerLeafEmitsMovesAndJump(t *testing.T) {
	df, err := ir.NewDataflow(1)
	require.NoError(t, err)
	entry := df.EntryNode()
	x := df.Outs(entry)[0]
	one := df.AddNode(ir.OpConstant{Value: 1}, nil, nil)
	sum := df.AddNode(ir.OpBinary{Op: ir.Add, Precision: ir.P64}, nil, []ir.Out{x, df.Outs(one)[0]})
	exit := df.AddNode(ir.OpConvention{}, []ir.Node{entry}, []ir.Out{df.Outs(sum)[0]})

	tree := cft.Merge[string]{Exit: exit, Label: "next"}
	hpt, err := cft.Analyze[string](df, tree)
	require.NoError(t, err)

	ebb, _, err := codegen.Compile[string](df, hpt, nil, x64.NumAllocatable, 4)
	require.NoError(t, err)

	globals := []ir.Value{ir.Slot(0)}
	lw := newLowerer(t, df, globals)
	require.NoError(t, lw.Lower(ebb))

	require.NotZero(t, lw.Asm.Len())
	require.NoError(t, lw.Asm.Bind(lw.LabelFor("next")))
}

func TestLowerSwitchEmitsGuardAndBothBranches(t *testing.T) {
	df, err := ir.NewDataflow(2)
	require.NoError(t, err)
	entry := df.EntryNode()
	x, y := df.Outs(entry)[0], df.Outs(entry)[1]

	guard := df.AddNode(ir.OpGuard{}, nil, []ir.Out{x})
	mul := df.AddNode(ir.OpBinary{Op: ir.Mul, Precision: ir.P64}, nil, []ir.Out{x, y})
	hotExit := df.AddNode(ir.OpConvention{}, []ir.Node{entry}, []ir.Out{y})
	coldExit := df.AddNode(ir.OpConvention{}, []ir.Node{entry}, []ir.Out{df.Outs(mul)[0]})

	tree := cft.Switch[string]{
		Guard:    guard,
		Cases:    []cft.CFT[string]{cft.Merge[string]{Exit: hotExit, Label: "hot"}},
		Default:  cft.Merge[string]{Exit: coldExit, Label: "cold"},
		HotIndex: 0,
	}
	hpt, err := cft.Analyze[string](df, tree)
	require.NoError(t, err)

	ebb, _, err := codegen.Compile[string](df, hpt, nil, x64.NumAllocatable, 4)
	require.NoError(t, err)

	globals := []ir.Value{ir.Slot(0)}
	lw := newLowerer(t, df, globals)
	require.NoError(t, lw.Lower(ebb))
	require.NoError(t, lw.Asm.Bind(lw.LabelFor("hot")))
	require.NoError(t, lw.Asm.Bind(lw.LabelFor("cold")))

	require.NotZero(t, lw.Asm.Len())
}

func TestLowerNodeConstant(t *testing.T) {
	df, err := ir.NewDataflow(1)
	require.NoError(t, err)
	node := df.AddNode(ir.OpConstant{Value: 42}, nil, nil)

	sched, err := schedule.Run(df, []ir.Node{node}, df.Outs(node), nil, nil, x64.NumAllocatable, 0)
	require.NoError(t, err)

	lw := newLowerer(t, df, nil)
	require.NoError(t, lw.LowerNode(sched, node))
	require.NotZero(t, lw.Asm.Len())
}

func TestLowerNodeConstantNegativeUses64BitForm(t *testing.T) {
	df, err := ir.NewDataflow(1)
	require.NoError(t, err)
	node := df.AddNode(ir.OpConstant{Value: -1}, nil, nil)

	sched, err := schedule.Run(df, []ir.Node{node}, df.Outs(node), nil, nil, x64.NumAllocatable, 0)
	require.NoError(t, err)

	lw := newLowerer(t, df, nil)
	require.NoError(t, lw.LowerNode(sched, node))

	// mov r32, imm32 zero-extends, so -1 must be emitted as the REX.W
	// B8+r imm64 form: 0x48 0xB8 followed by eight 0xFF bytes.
	want := []byte{0x48, 0xb8, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	require.Equal(t, want, lw.Asm.Bytes())
}

func TestLowerNodeShiftClampsOversizedCounts(t *testing.T) {
	lowerShift := func(op ir.BinaryOp) []byte {
		df, err := ir.NewDataflow(2)
		require.NoError(t, err)
		entry := df.EntryNode()
		val, count := df.Outs(entry)[0], df.Outs(entry)[1]
		node := df.AddNode(ir.OpBinary{Op: op, Precision: ir.P64}, nil, []ir.Out{val, count})

		sched, err := schedule.Run(df, []ir.Node{node}, df.Outs(node), nil, nil, x64.NumAllocatable, 0)
		require.NoError(t, err)

		lw := newLowerer(t, df, nil)
		require.NoError(t, lw.LowerNode(sched, node))
		return lw.Asm.Bytes()
	}

	// cmovae reading the pool's zero word encodes as 0F 43: present for
	// the logical shifts (count >= width must yield zero), absent for the
	// arithmetic shift (the hardware's masked result stands).
	require.Contains(t, string(lowerShift(ir.Lsl)), string([]byte{0x0f, 0x43}))
	require.Contains(t, string(lowerShift(ir.Lsr)), string([]byte{0x0f, 0x43}))
	require.NotContains(t, string(lowerShift(ir.Asr)), string([]byte{0x0f, 0x43}))
}

func TestLowerNodeDivisionSignedSavesAndRestoresScratch(t *testing.T) {
	df, err := ir.NewDataflow(2)
	require.NoError(t, err)
	entry := df.EntryNode()
	dividend, divisor := df.Outs(entry)[0], df.Outs(entry)[1]
	node := df.AddNode(ir.OpDivision{Kind: ir.Signed, Precision: ir.P64}, nil, []ir.Out{dividend, divisor})

	liveOut := df.Outs(node)
	sched, err := schedule.Run(df, []ir.Node{node}, liveOut, nil, nil, x64.NumAllocatable, 0)
	require.NoError(t, err)

	lw := newLowerer(t, df, nil)
	require.NoError(t, lw.LowerNode(sched, node))
	require.NotZero(t, lw.Asm.Len())
}

func TestLowerRejectsNilEBB(t *testing.T) {
	df, err := ir.NewDataflow(1)
	require.NoError(t, err)
	lw := newLowerer(t, df, nil)
	err = lw.Lower(nil)
	require.ErrorIs(t, err, x64.ErrNilEBB)
}
