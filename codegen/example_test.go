package codegen_test

import (
	"fmt"

	"github.com/fsmjit/fsmjit/codegen"
	"github.com/fsmjit/fsmjit/schedule"
)

// ExampleResolveMoves breaks a two-register swap using a scratch register.
func ExampleResolveMoves() {
	r0, r1, scratch := schedule.RegisterVar(0), schedule.RegisterVar(1), schedule.RegisterVar(15)

	moves, err := codegen.ResolveMoves(
		[]schedule.Variable{r0, r1},
		[]schedule.Variable{r1, r0},
		scratch,
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("moves:", len(moves))
	// Output:
	// moves: 3
}
