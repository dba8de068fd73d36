package engine

import "context"

// node pairs a discovered state with its transition list, already fetched
// from Machine.GetCode so discover() only calls GetCode once per state.
type node[S comparable] struct {
	state       S
	transitions []Transition[S]
}

// discover walks every state reachable from m's initial states with a
// breadth-first search: a plain slice queue, a visited set seeded before
// enqueuing, and neighbors (here, a transition's Next state) enqueued only
// the first time they're seen. The "graph" is implicit in GetCode, so each
// visited state's edges are whatever transitions its own GetCode call
// returns, discovered lazily as the walk reaches it. The
// returned order is breadth-first from InitialStates and fixes the index
// every discovered state is assigned for the engine's dispatch table.
func discover[S comparable](ctx context.Context, m Machine[S]) ([]node[S], error) {
	initial := m.InitialStates()
	if len(initial) == 0 {
		return nil, ErrNoInitialStates
	}

	visited := make(map[S]bool, len(initial))
	queue := make([]S, 0, len(initial))
	for _, s := range initial {
		if !visited[s] {
			visited[s] = true
			queue = append(queue, s)
		}
	}

	order := make([]node[S], 0, len(queue))
	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		state := queue[0]
		queue = queue[1:]

		_, transitions := m.GetCode(state)
		order = append(order, node[S]{state: state, transitions: transitions})

		for _, t := range transitions {
			if !visited[t.Next] {
				visited[t.Next] = true
				queue = append(queue, t.Next)
			}
		}
	}
	return order, nil
}
