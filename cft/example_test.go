package cft_test

import (
	"fmt"

	"github.com/fsmjit/fsmjit/cft"
	"github.com/fsmjit/fsmjit/ir"
)

// ExampleAnalyze builds a one-guard CFT — a hot leaf that returns a live-in
// untouched, and a cold leaf that multiplies the two live-ins first — and
// prints the guard's keep-alive set.
func ExampleAnalyze() {
	df, _ := ir.NewDataflow(2)
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
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("keep-alives:", len(hpt.KeepAlives))
	// Output:
	// keep-alives: 3
}
