package codegen

import (
	"github.com/fsmjit/fsmjit/cft"
	"github.com/fsmjit/fsmjit/ir"
	"github.com/fsmjit/fsmjit/schedule"
)

// Compile produces the EBB rooted at hpt. reserved carries the boundary and
// fixed locations of anything an enclosing call already scheduled;
// numRegisters is the allocatable register count; slotsUsedIn is the spill
// slot count already consumed on the path leading here. It returns the
// compiled EBB and the highest slot count reached along any path beneath
// it — the caller sizes the persistent pool from that maximum. slotsUsed
// is non-decreasing along any single path: the recursion threads it
// forward along Hot and restarts each Cold sibling from the same baseline
// (siblings are mutually exclusive at runtime, so they may reuse slot
// numbers independently of one another).
func Compile[L any](df *ir.Dataflow, hpt *cft.HotPathTree[L], reserved *schedule.Reserved, numRegisters, slotsUsedIn int) (*EBB[L], int, error) {
	if hpt == nil {
		return nil, 0, ErrNilHotPathTree
	}
	if reserved == nil {
		reserved = &schedule.Reserved{}
	}

	if !hpt.IsSwitch {
		liveOut := df.Ins(hpt.Exit)
		sched, err := schedule.Run(df, []ir.Node{hpt.Exit}, liveOut, nil, reserved, numRegisters, slotsUsedIn)
		if err != nil {
			return nil, 0, err
		}
		return &EBB[L]{Schedule: sched, Ending: Leaf[L]{Label: hpt.Label, Exit: hpt.Exit}}, sched.SlotsUsed, nil
	}

	keepAlives := hpt.SortedKeepAlives()
	guardIns := df.Ins(hpt.Guard)
	guardSched, err := schedule.Run(df, []ir.Node{hpt.Guard}, guardIns, keepAlives, reserved, numRegisters, slotsUsedIn)
	if err != nil {
		return nil, 0, err
	}

	descendantReserved := extendReserved(reserved, guardSched, hpt.Guard)

	hotEBB, slotsAfterHot, err := Compile(df, hpt.Hot, descendantReserved, numRegisters, guardSched.SlotsUsed)
	if err != nil {
		return nil, 0, err
	}

	maxSlots := slotsAfterHot
	coldEBBs := make([]*EBB[L], len(hpt.Cold))
	for i, c := range hpt.Cold {
		coldEBB, slotsAfterCold, err := Compile(df, c, descendantReserved, numRegisters, guardSched.SlotsUsed)
		if err != nil {
			return nil, 0, err
		}
		coldEBBs[i] = coldEBB
		if slotsAfterCold > maxSlots {
			maxSlots = slotsAfterCold
		}
	}

	ebb := &EBB[L]{
		Schedule: guardSched,
		Ending:   Switch[L]{Guard: hpt.Guard, Hot: hotEBB, Cold: coldEBBs},
	}
	return ebb, maxSlots, nil
}

// extendReserved folds a freshly computed Schedule's placements into
// reserved, so that a nested Compile call treats every node the guard
// schedule just placed as an already-scheduled boundary.
func extendReserved(reserved *schedule.Reserved, sched *schedule.Schedule, guard ir.Node) *schedule.Reserved {
	location := make(map[ir.Out]schedule.Variable, len(reserved.Location)+len(sched.Allocation))
	for o, v := range reserved.Location {
		location[o] = v
	}
	for o, v := range sched.Allocation {
		location[o] = v
	}

	boundary := make(map[ir.Node]bool, len(reserved.Boundary)+len(sched.Order)+1)
	for n := range reserved.Boundary {
		boundary[n] = true
	}
	boundary[guard] = true
	for _, instr := range sched.Order {
		if !instr.Spill {
			boundary[instr.Node] = true
		}
	}

	return &schedule.Reserved{Location: location, Boundary: boundary}
}
