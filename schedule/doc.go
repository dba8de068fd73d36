// Package schedule assigns every Out in a scheduled region of a Dataflow a
// Register or spill Slot, and fixes the execution order of the nodes that
// produce them.
//
// Run takes the set of root nodes a region must compute (typically a single
// Convention exit, or a Guard whose boolean input must be ready), walks
// their transitive dependencies, and produces an ordered Schedule plus a
// per-Out Variable allocation. Nodes already placed by an enclosing call —
// a Reserved — are treated as a boundary: Run neither re-walks nor
// re-allocates them, it only reads their fixed Variable, pinning the
// registers of the boundary values this region still reads and treating
// the rest as free.
//
// The allocator is restructured from the single backward-moving procedure
// of the textbook description into two passes, documented in DESIGN.md:
//
//  1. A topological pass fixes execution order and records, for every Out,
//     every position (in that order) at which it is read.
//  2. A forward linear-scan pass over that fixed order assigns registers,
//     evicting — on a miss — the occupant whose next read is furthest away
//     (Belady's MIN), spilling it to a monotonically increasing slot only
//     if it is still read again later. Evictions are paired two at a time
//     into a single Spill pseudo-instruction to amortize store-pair
//     encoding, with a lone trailing eviction left unpaired.
//
// Errors:
//
//	ErrNilDataflow  - Run was given a nil *ir.Dataflow.
//	ErrNoRoots      - Run was given zero root nodes.
//	ErrNoRegisters  - Run was given zero or negative allocatable registers.
//	ErrUnschedulable - a region could not be scheduled even after spilling
//	                   every dirty register (a node needs more live outputs
//	                   than registers exist).
package schedule
