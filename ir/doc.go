// Package ir defines the data model compiled by fsmjit: Value, Action, and
// the Dataflow graph that the simulate package builds and the schedule
// package consumes.
//
// A Dataflow is an arena of Nodes, each producing zero or more Out handles.
// Nodes are never removed once added (a Dataflow is built once per
// action-list, consumed once by the scheduler, then discarded — see
// simulate.Simulation and schedule.Run). Out and Node are small integer
// handles indexing into the owning Dataflow; there are no back-pointers,
// so consumers that need a reverse view build their own auxiliary maps.
//
// Two kinds of edges connect Nodes:
//
//   - data inputs — ordered Out handles a Node reads values from.
//   - dependency inputs — Node handles that must be scheduled first without
//     carrying a value (memory ordering, stack ordering).
//
// Errors:
//
//	ErrEmptyInputs    - a Dataflow was asked to start with zero live-ins.
//	ErrUnknownOut     - an Out handle does not belong to this Dataflow.
//	ErrUnknownNode    - a Node handle does not belong to this Dataflow.
//	ErrCyclicGraph    - Validate found a cycle (arena invariant violated).
//	ErrUseBeforeDef   - Validate found a consumer scheduled before its def.
package ir
