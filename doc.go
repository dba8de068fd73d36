// Package fsmjit is a just-in-time compiler framework for finite-state
// virtual machines: it turns a small, explicit description of a VM (states,
// and per-state guarded transitions) into a contiguous block of native
// x86-64 machine code.
//
// 🚀 What is fsmjit?
//
//	A compiler pipeline, not a single black box:
//
//	  • ir        — dataflow graph: Value, Action, Op, the node/Out arena
//	  • simulate  — lifts a straight-line Action list into an ir.Dataflow
//	  • cft       — control-flow tree of guards + keep-alive liveness analysis
//	  • schedule  — instruction scheduler and register/spill allocator
//	  • codegen   — walks the schedule into extended basic blocks (EBBs)
//	  • x64       — lowers EBBs into x86-64 bytes (calling convention, pool,
//	                spill slots, branch patching)
//	  • buffer    — mmap'd executable memory the lowerer writes into
//	  • engine    — drives compilation of every reachable state and dispatches
//	                into the generated code
//	  • beetle    — a Forth-like reference Machine exercising the whole stack
//
// ✨ Why organize it this way?
//
//   - Each layer is independently testable — a dataflow graph, a CFT, a
//     schedule, and a byte buffer are all inspectable without running any
//     generated code.
//   - Narrow waists — schedule.Run and x64.Lowerer are the only places
//     that need to agree on what a Variable is.
//   - No global state — the persistent spill pool is owned by one Engine,
//     passed explicitly into every Execute call.
//
// Quick mental model:
//
//	states + transitions  →  ir.Dataflow + cft.CFT  →  schedule.Schedule
//	  →  codegen.EBB  →  x64 bytes  →  engine.Execute(state) → state
//
// See each package's doc.go for the full API, and the beetle package for a
// worked reference front-end.
package fsmjit
