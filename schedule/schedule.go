package schedule

import (
	"math"
	"sort"

	"github.com/fsmjit/fsmjit/ir"
)

// Run schedules the region of df transitively reachable from roots (over
// data and dependency edges), stopping at any node named in reserved's
// Boundary. liveOut and keepAlive name the Outs that must still be
// resolvable (in a register or slot) once this region finishes — liveOut
// because the caller reads them immediately after, keepAlive because a
// sibling cold branch, compiled separately, will need them later.
func Run(df *ir.Dataflow, roots []ir.Node, liveOut, keepAlive []ir.Out, reserved *Reserved, numRegisters, slotsUsedIn int) (*Schedule, error) {
	if df == nil {
		return nil, ErrNilDataflow
	}
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}
	if numRegisters <= 0 {
		return nil, ErrNoRegisters
	}
	if reserved == nil {
		reserved = &Reserved{}
	}

	order := topoOrder(df, roots, reserved.Boundary)
	usePositions := computeUsePositions(df, order, liveOut, keepAlive)

	a := &allocator{
		df:           df,
		usePositions: usePositions,
		numRegisters: numRegisters,
		occupied:     make([]bool, numRegisters),
		reservedRegs: make([]bool, numRegisters),
		occupant:     make([]ir.Out, numRegisters),
		allocation:   make(map[ir.Out]Variable, len(reserved.Location)+len(order)),
		slotsUsed:    slotsUsedIn,
	}
	for o, v := range reserved.Location {
		a.allocation[o] = v
		// Pin a register-resident boundary value only if this region still
		// reads it (directly, as a live-out, or as a keep-alive). A dead
		// intermediate from an enclosing schedule — a guard's spent boolean,
		// a consumed constant — would otherwise stay blocked through every
		// nested region and starve a long guard chain of registers.
		if v.Kind == VarRegister {
			if _, used := usePositions[o]; used {
				a.occupied[v.Register] = true
				a.reservedRegs[v.Register] = true
			}
		}
	}

	entry := df.EntryNode()
	for i, n := range order {
		outs := df.Outs(n)
		need := 0
		for _, out := range outs {
			if _, ok := a.allocation[out]; !ok {
				need++
			}
		}
		if need > 0 {
			spills, err := a.spillUntil(need, i)
			if err != nil {
				return nil, err
			}
			a.instructions = append(a.instructions, spills...)
			for _, out := range outs {
				if _, ok := a.allocation[out]; ok {
					continue
				}
				reg := a.takeFreeRegister()
				a.allocation[out] = RegisterVar(reg)
				a.occupied[reg] = true
				a.occupant[reg] = out
			}
		}
		if n != entry {
			a.instructions = append(a.instructions, Instruction{Node: n})
		}
		for _, in := range df.Ins(n) {
			if !a.hasFutureUse(in, i) {
				a.freeIfOccupant(in)
			}
		}
	}

	return &Schedule{
		Order:      a.instructions,
		Allocation: a.allocation,
		SlotsUsed:  a.slotsUsed,
	}, nil
}

// topoOrder returns the nodes transitively reachable from roots, in
// producer-before-consumer (topological) order, not descending into any
// node named in boundary.
func topoOrder(df *ir.Dataflow, roots []ir.Node, boundary map[ir.Node]bool) []ir.Node {
	visited := make(map[ir.Node]bool)
	var order []ir.Node
	var visit func(ir.Node)
	visit = func(n ir.Node) {
		if visited[n] || boundary[n] {
			return
		}
		visited[n] = true
		for _, dep := range df.Deps(n) {
			visit(dep)
		}
		for _, in := range df.Ins(n) {
			visit(in.Node())
		}
		order = append(order, n)
	}
	for _, r := range roots {
		visit(r)
	}
	return order
}

// computeUsePositions records, for every Out read within order, the sorted
// ascending list of positions (indices into order) at which it is read.
// liveOut and keepAlive Outs get a synthetic use at len(order), pinning
// them alive through the end of the region.
func computeUsePositions(df *ir.Dataflow, order []ir.Node, liveOut, keepAlive []ir.Out) map[ir.Out][]int {
	positions := make(map[ir.Out][]int)
	for i, n := range order {
		for _, in := range df.Ins(n) {
			positions[in] = append(positions[in], i)
		}
	}
	end := len(order)
	for _, out := range liveOut {
		positions[out] = append(positions[out], end)
	}
	for _, out := range keepAlive {
		positions[out] = append(positions[out], end)
	}
	for _, ps := range positions {
		sort.Ints(ps)
	}
	return positions
}

type allocator struct {
	df           *ir.Dataflow
	usePositions map[ir.Out][]int

	numRegisters int
	occupied     []bool
	reservedRegs []bool
	occupant     []ir.Out

	allocation map[ir.Out]Variable
	slotsUsed  int

	instructions []Instruction
}

// nextUse returns the smallest recorded position for out strictly greater
// than pos, or math.MaxInt if out has no later use.
func (a *allocator) nextUse(out ir.Out, pos int) int {
	ps := a.usePositions[out]
	for _, p := range ps {
		if p > pos {
			return p
		}
	}
	return math.MaxInt
}

func (a *allocator) hasFutureUse(out ir.Out, pos int) bool {
	return a.nextUse(out, pos) != math.MaxInt
}

// takeFreeRegister returns the lowest-indexed free, non-reserved register.
// Callers must have already ensured one exists via spillUntil.
func (a *allocator) takeFreeRegister() Register {
	for r := 0; r < a.numRegisters; r++ {
		if !a.occupied[r] && !a.reservedRegs[r] {
			return Register(r)
		}
	}
	panic("schedule: takeFreeRegister called with no free register")
}

// spillUntil ensures at least k registers are free (not reserved, not
// occupied) before pos, evicting dirty occupants by Belady's MIN — the
// occupant whose next use is furthest in the future, ties broken by lowest
// register index — and batching eviction Spill instructions two at a time.
func (a *allocator) spillUntil(k, pos int) ([]Instruction, error) {
	free := 0
	for r := 0; r < a.numRegisters; r++ {
		if !a.occupied[r] && !a.reservedRegs[r] {
			free++
		}
	}
	need := k - free
	if need <= 0 {
		return nil, nil
	}

	type candidate struct {
		reg     int
		nextUse int
	}
	var candidates []candidate
	for r := 0; r < a.numRegisters; r++ {
		if a.occupied[r] && !a.reservedRegs[r] {
			candidates = append(candidates, candidate{reg: r, nextUse: a.nextUse(a.occupant[r], pos)})
		}
	}
	if len(candidates) < need {
		return nil, ErrUnschedulable
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].nextUse != candidates[j].nextUse {
			return candidates[i].nextUse > candidates[j].nextUse // furthest first
		}
		return candidates[i].reg < candidates[j].reg // deterministic tie-break
	})

	var toSpill []ir.Out
	for i := 0; i < need; i++ {
		r := candidates[i].reg
		occ := a.occupant[r]
		if a.hasFutureUse(occ, pos) {
			toSpill = append(toSpill, occ)
		}
		a.occupied[r] = false
	}

	regOf := make(map[ir.Out]Register, len(toSpill))
	for i := 0; i < need; i++ {
		regOf[a.occupant[candidates[i].reg]] = Register(candidates[i].reg)
	}

	var instrs []Instruction
	i := 0
	for ; i+1 < len(toSpill); i += 2 {
		instrs = append(instrs, Instruction{Spill: true, A: toSpill[i], RegA: regOf[toSpill[i]], B: toSpill[i+1], RegB: regOf[toSpill[i+1]], Paired: true})
	}
	if i < len(toSpill) {
		instrs = append(instrs, Instruction{Spill: true, A: toSpill[i], RegA: regOf[toSpill[i]], Paired: false})
	}
	for _, occ := range toSpill {
		slot := a.slotsUsed
		a.slotsUsed++
		a.allocation[occ] = SlotVar(slot)
	}

	return instrs, nil
}

func (a *allocator) freeIfOccupant(out ir.Out) {
	v, ok := a.allocation[out]
	if !ok || v.Kind != VarRegister {
		return
	}
	r := int(v.Register)
	if a.reservedRegs[r] {
		return
	}
	if a.occupied[r] && a.occupant[r] == out {
		a.occupied[r] = false
	}
}
