package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fsmjit/fsmjit/ir"
)

func TestNewDataflowRejectsEmptyInputs(t *testing.T) {
	_, err := ir.NewDataflow(0)
	require.ErrorIs(t, err, ir.ErrEmptyInputs)
}

func TestEntryNodeProducesLiveIns(t *testing.T) {
	df, err := ir.NewDataflow(3)
	require.NoError(t, err)
	outs := df.Outs(df.EntryNode())
	require.Len(t, outs, 3)
	for i, o := range outs {
		require.Equal(t, df.EntryNode(), o.Node())
		require.Equal(t, i, o.Index())
	}
}

func TestAddNodeChainsAndValidates(t *testing.T) {
	df, err := ir.NewDataflow(2)
	require.NoError(t, err)
	entry := df.Outs(df.EntryNode())

	mulNode := df.AddNode(ir.OpBinary{Op: ir.Mul, Precision: ir.P64}, nil, []ir.Out{entry[0], entry[1]})
	mulOut := df.Outs(mulNode)[0]

	exit := df.AddNode(ir.OpConvention{}, []ir.Node{df.EntryNode()}, []ir.Out{mulOut})

	require.NoError(t, df.Validate())
	require.Equal(t, 3, df.NumNodes())
	require.Equal(t, []ir.Out{mulOut}, df.Ins(exit))
}

func TestAddNodePanicsOnForeignOut(t *testing.T) {
	df1, err := ir.NewDataflow(1)
	require.NoError(t, err)
	df2, err := ir.NewDataflow(3)
	require.NoError(t, err)
	// (node 0, index 2) is a real handle in df2 but out of range for df1,
	// whose entry node only has one output.
	foreign := df2.Outs(df2.EntryNode())[2]

	require.Panics(t, func() {
		df1.AddNode(ir.OpUnary{Op: ir.Negate, Precision: ir.P64}, nil, []ir.Out{foreign})
	})
}

func TestAliasMaskCanAlias(t *testing.T) {
	require.True(t, ir.AliasMask(0b0011).CanAlias(ir.AliasMask(0b0100|0b0001)))
	require.False(t, ir.AliasMask(0b0010).CanAlias(ir.AliasMask(0b0101)))
	require.False(t, ir.AliasMask(0).CanAlias(ir.AliasMask(0xffffffff)))
}

func TestDivisionHasTwoOutputs(t *testing.T) {
	df, err := ir.NewDataflow(2)
	require.NoError(t, err)
	entry := df.Outs(df.EntryNode())
	div := df.AddNode(ir.OpDivision{Kind: ir.Signed, Precision: ir.P64}, nil, entry)
	require.Len(t, df.Outs(div), 2)
}
