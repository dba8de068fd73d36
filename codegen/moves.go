package codegen

import "github.com/fsmjit/fsmjit/schedule"

// ResolveMoves computes a sequence of Moves that rearranges values from
// their current locations to their target locations, given current[i] is
// where the i-th value lives now and target[i] is where it must end up.
// Entries where current[i] == target[i] are skipped. Chains (A->B->C with
// no value remaining at A) are emitted as straight copies, processed
// innermost-destination-first so no copy clobbers a value still awaiting
// its own move. A cycle (every member of a chain is also someone else's
// source) is broken by first copying one member out to scratch, then
// resuming the chain as if scratch were its source.
func ResolveMoves(current, target []schedule.Variable, scratch schedule.Variable) ([]Move, error) {
	if len(current) != len(target) {
		return nil, ErrLengthMismatch
	}

	pending := make(map[schedule.Variable]schedule.Variable)
	var destOrder []schedule.Variable
	for i := range current {
		if current[i] == target[i] {
			continue
		}
		if _, dup := pending[target[i]]; dup {
			return nil, ErrConflictingDestination
		}
		pending[target[i]] = current[i]
		destOrder = append(destOrder, target[i])
	}

	usedAsSource := make(map[schedule.Variable]int, len(pending))
	for _, src := range pending {
		usedAsSource[src]++
	}

	var moves []Move
	for len(pending) > 0 {
		dest, src, ok := firstReadyMove(destOrder, pending, usedAsSource)
		if ok {
			moves = append(moves, Move{From: src, To: dest})
			delete(pending, dest)
			usedAsSource[src]--
			continue
		}

		// Nothing is ready: every remaining destination is also some
		// other move's source, so we're looking at one or more cycles.
		// Break the first one (in original order) via scratch.
		start := firstPending(destOrder, pending)
		moves = append(moves, Move{From: start, To: scratch})
		for d, s := range pending {
			if s == start {
				pending[d] = scratch
			}
		}
		usedAsSource[start] = 0
	}

	return moves, nil
}

func firstReadyMove(order []schedule.Variable, pending map[schedule.Variable]schedule.Variable, usedAsSource map[schedule.Variable]int) (dest, src schedule.Variable, ok bool) {
	for _, dest := range order {
		src, present := pending[dest]
		if !present {
			continue
		}
		if usedAsSource[dest] == 0 {
			return dest, src, true
		}
	}
	return schedule.Variable{}, schedule.Variable{}, false
}

func firstPending(order []schedule.Variable, pending map[schedule.Variable]schedule.Variable) schedule.Variable {
	for _, dest := range order {
		if _, ok := pending[dest]; ok {
			return dest
		}
	}
	panic("codegen: firstPending called with nothing pending")
}
