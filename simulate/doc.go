// Package simulate lifts a straight-line list of ir.Actions into an
// ir.Dataflow graph plus an exit ir.Node, the way a CPU's out-of-order
// front-end renames registers into a dataflow graph as it decodes a basic
// block.
//
// A Simulation tracks bindings — which ir.Out each Value currently holds —
// and two ordering chains: the most recent Store (for Load/Store memory
// ordering) and the most recent stack operation (for Debug). Move never
// emits a node; it just rebinds a Value. Everything else emits exactly one
// ir.Dataflow node and rebinds its destination(s).
//
// Fork and CompileTestOp extend this to a whole Machine state's
// first-match-wins transition list: CompileTestOp lowers one ir.TestOp into
// the dataflow nodes computing its boolean result and a terminating
// ir.OpGuard, without touching any Value the caller still needs; Fork
// clones the binding state so a matched transition's action list can run
// on its own copy while the original keeps evaluating the next guard.
//
// Errors:
//
//	ErrDeadValue   - an Action read a Value with no binding (used before set).
//	ErrEmptyLiveIn - NewSimulation was given zero live-in Values.
package simulate
