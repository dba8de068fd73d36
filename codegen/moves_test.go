package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fsmjit/fsmjit/codegen"
	"github.com/fsmjit/fsmjit/schedule"
)

func TestResolveMovesEmitsStraightChain(t *testing.T) {
	r0, r1, r2 := schedule.RegisterVar(0), schedule.RegisterVar(1), schedule.RegisterVar(2)
	// value A: r0 -> r1, value B: r1 -> r2 (a chain, no cycle).
	current := []schedule.Variable{r0, r1}
	target := []schedule.Variable{r1, r2}

	moves, err := codegen.ResolveMoves(current, target, schedule.RegisterVar(15))
	require.NoError(t, err)
	require.Len(t, moves, 2)

	// The chain must be resolved tail-first: r1->r2 before r0->r1,
	// otherwise the second move would read a clobbered r1.
	require.Equal(t, codegen.Move{From: r1, To: r2}, moves[0])
	require.Equal(t, codegen.Move{From: r0, To: r1}, moves[1])
}

func TestResolveMovesBreaksTwoCycle(t *testing.T) {
	r0, r1 := schedule.RegisterVar(0), schedule.RegisterVar(1)
	scratch := schedule.RegisterVar(15)
	// A swap: value at r0 must end at r1 and vice versa.
	current := []schedule.Variable{r0, r1}
	target := []schedule.Variable{r1, r0}

	moves, err := codegen.ResolveMoves(current, target, scratch)
	require.NoError(t, err)
	require.Len(t, moves, 3)

	// Simulate the moves against tagged contents and check the swap lands
	// correctly, rather than asserting one arbitrary choice of which
	// cycle member is evacuated first.
	contents := map[schedule.Variable]string{r0: "A", r1: "B"}
	for _, m := range moves {
		contents[m.To] = contents[m.From]
	}
	require.Equal(t, "A", contents[r1])
	require.Equal(t, "B", contents[r0])
}

func TestResolveMovesBreaksThreeCycle(t *testing.T) {
	r1, r2, r3 := schedule.RegisterVar(1), schedule.RegisterVar(2), schedule.RegisterVar(3)
	scratch := schedule.RegisterVar(15)
	// A full 3-cycle: {R1<-R2, R2<-R3, R3<-R1}.
	current := []schedule.Variable{r2, r3, r1}
	target := []schedule.Variable{r1, r2, r3}

	moves, err := codegen.ResolveMoves(current, target, scratch)
	require.NoError(t, err)

	scratchUses := 0
	for _, m := range moves {
		if m.From == scratch || m.To == scratch {
			scratchUses++
		}
	}
	require.Equal(t, 2, scratchUses, "exactly one value should pass through scratch (one write, one read)")

	contents := map[schedule.Variable]string{r1: "A", r2: "B", r3: "C"}
	for _, m := range moves {
		contents[m.To] = contents[m.From]
	}
	require.Equal(t, "B", contents[r1])
	require.Equal(t, "C", contents[r2])
	require.Equal(t, "A", contents[r3])
}

func TestResolveMovesSkipsNoOps(t *testing.T) {
	r0, r1 := schedule.RegisterVar(0), schedule.RegisterVar(1)
	current := []schedule.Variable{r0, r1}
	target := []schedule.Variable{r0, r1}

	moves, err := codegen.ResolveMoves(current, target, schedule.RegisterVar(15))
	require.NoError(t, err)
	require.Empty(t, moves)
}

func TestResolveMovesRejectsMismatchedLengths(t *testing.T) {
	_, err := codegen.ResolveMoves([]schedule.Variable{schedule.RegisterVar(0)}, nil, schedule.RegisterVar(15))
	require.ErrorIs(t, err, codegen.ErrLengthMismatch)
}

func TestResolveMovesRejectsConflictingDestination(t *testing.T) {
	r0, r1, r2 := schedule.RegisterVar(0), schedule.RegisterVar(1), schedule.RegisterVar(2)
	current := []schedule.Variable{r0, r1}
	target := []schedule.Variable{r2, r2}

	_, err := codegen.ResolveMoves(current, target, schedule.RegisterVar(15))
	require.ErrorIs(t, err, codegen.ErrConflictingDestination)
}
