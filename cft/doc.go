// Package cft is the control-flow tree that a Simulation's guards are
// assembled into, plus the keep-alive analysis that turns a CFT into a
// HotPathTree ready for scheduling.
//
// A CFT is rooted at the entry and has exactly two kinds of node:
//
//   - Switch(guard, cases, default, hotIndex) — tests guard's Node and
//     continues down whichever of cases/default hotIndex designates as
//     "hot" (expected to dominate execution); every other branch is cold.
//   - Merge(exit, label) — a leaf naming the exit Node and the next-state
//     label execution continues to.
//
// Analyze walks a CFT post-order: for every
// Switch it computes the transitive closure of Outs each cold branch reads,
// assigns that set to the guard as its keep-alives, and propagates the
// union of the hot branch's and the keep-alive sets' dependencies upward so
// an ancestor guard sees everything a descendant needs. The result is a
// HotPathTree mirroring the CFT, with keep-alive sets attached to every
// Switch.
//
// Errors:
//
//	ErrNilDataflow      - Analyze was given a nil *ir.Dataflow.
//	ErrNilTree          - Analyze was given a nil CFT root.
//	ErrInvalidHotIndex  - a Switch's hotIndex does not address a branch.
//	ErrUnknownCFTNode   - a CFT value is neither Switch nor Merge.
package cft
