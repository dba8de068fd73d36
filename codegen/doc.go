// Package codegen turns a cft.HotPathTree into an extended basic block
// (EBB): a Schedule followed by an Ending that is either a Leaf (fall
// through to a state label) or a Switch (branch on a Guard to a hot EBB or
// one of several cold ones).
//
// Compile walks the HotPathTree exactly as the tree is shaped: for a Merge
// leaf it schedules everything feeding the leaf's exit node; for a Switch
// it first schedules the guard's own prerequisite computation — keeping
// every descendant keep-alive materialized — then recurses into the hot
// branch and, independently, every cold branch, handing each the same
// Reserved boundary so none of them re-walk or re-allocate the nodes the
// guard prefix already placed.
//
// ResolveMoves solves the classical parallel-move ("swap-chain") problem at
// an EBB boundary: given where a set of values currently live and where
// they must live for the destination convention, it emits straight copies
// for non-conflicting chains and breaks any cycle with one spare scratch
// location.
//
// Errors:
//
//	ErrNilHotPathTree        - Compile was given a nil tree.
//	ErrLengthMismatch        - ResolveMoves got mismatched current/target.
//	ErrConflictingDestination - two values were asked to land in the same
//	                            final location.
package codegen
