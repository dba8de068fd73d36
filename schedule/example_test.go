package schedule_test

import (
	"fmt"

	"github.com/fsmjit/fsmjit/ir"
	"github.com/fsmjit/fsmjit/schedule"
)

// ExampleRun schedules a single Add node over its two live-ins and reports
// where the result ends up.
func ExampleRun() {
	df, _ := ir.NewDataflow(2)
	entry := df.EntryNode()
	x, y := df.Outs(entry)[0], df.Outs(entry)[1]

	add := df.AddNode(ir.OpBinary{Op: ir.Add, Precision: ir.P64}, nil, []ir.Out{x, y})
	addOut := df.Outs(add)[0]

	sched, err := schedule.Run(df, []ir.Node{add}, []ir.Out{addOut}, nil, nil, 4, 0)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("instructions:", len(sched.Order))
	fmt.Println("result is a register:", sched.Allocation[addOut].IsRegister())
	// Output:
	// instructions: 1
	// result is a register: true
}
