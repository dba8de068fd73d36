package ir_test

import (
	"fmt"

	"github.com/fsmjit/fsmjit/ir"
)

// Example builds the dataflow graph for `dest = (x * x)` where x is the
// sole live-in, and finishes with a Convention node marking dest live-out.
func Example() {
	df, err := ir.NewDataflow(1)
	if err != nil {
		panic(err)
	}
	x := df.Outs(df.EntryNode())[0]
	sq := df.AddNode(ir.OpBinary{Op: ir.Mul, Precision: ir.P64}, nil, []ir.Out{x, x})
	out := df.Outs(sq)[0]
	df.AddNode(ir.OpConvention{}, nil, []ir.Out{out})

	fmt.Println(df.NumNodes())
	fmt.Println(df.Validate())
	// Output:
	// 3
	// <nil>
}
