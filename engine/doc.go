// Package engine eagerly compiles every state reachable from a Machine's
// initial states into one shared executable buffer and dispatches between
// them with a branch-linked jump table.
//
// A Machine describes its state graph as a plain Go value: GetCode returns
// a state's ordered, first-match-wins transition list, each transition
// pairing a guard with the straight-line ir.Actions to run and the state to
// continue in. Engine walks that graph with a breadth-first search rooted
// at InitialStates, compiles every discovered state through the same
// simulate -> cft -> schedule -> codegen -> x64 pipeline the rest of this
// module implements, and links every state's compiled entry point directly
// to the states it can transition into — a transition between two compiled
// states costs one jmp, never a trip back through Go.
//
// Every compiled state agrees on one Convention: a fixed ordered list of
// pool slots holding the machine's globals. A leaf's parallel-move
// swap-chain (codegen.ResolveMoves) rearranges whatever the outgoing
// state's scheduler chose into that canonical layout before jumping, so an
// incoming state can always find its globals at the slots it expects
// regardless of which predecessor reached it.
package engine
