package cft

import (
	"context"
	"fmt"
	"sort"

	"github.com/fsmjit/fsmjit/ir"
)

// Option configures Analyze.
type Option func(*options)

type options struct {
	ctx context.Context
}

func defaultOptions() options {
	return options{ctx: context.Background()}
}

// WithContext sets the context used to cancel a long keep-alive walk.
// Passing a nil context has no effect.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// HotPathTree mirrors a CFT after keep-alive analysis. Exactly one of the
// two shapes is populated: a Switch node has IsSwitch set, Guard,
// KeepAlives, Hot and Cold populated; a Merge node has Exit, Label and
// Weight populated.
type HotPathTree[L any] struct {
	IsSwitch bool

	// Switch fields.
	Guard      ir.Node
	KeepAlives map[ir.Out]struct{}
	Hot        *HotPathTree[L]
	Cold       []*HotPathTree[L] // one per cold branch, in Switch.Cold() order

	// Merge fields.
	Exit   ir.Node
	Label  L
	Weight int
}

// SortedKeepAlives returns KeepAlives as a slice ordered by (Node, Index),
// for deterministic iteration in tests and diagnostics.
func (h *HotPathTree[L]) SortedKeepAlives() []ir.Out {
	outs := make([]ir.Out, 0, len(h.KeepAlives))
	for o := range h.KeepAlives {
		outs = append(outs, o)
	}
	sort.Slice(outs, func(i, j int) bool {
		if outs[i].Node() != outs[j].Node() {
			return outs[i].Node() < outs[j].Node()
		}
		return outs[i].Index() < outs[j].Index()
	})
	return outs
}

// Analyze performs keep-alive analysis over tree, using df
// to resolve each node's data and dependency edges. It returns a
// HotPathTree mirroring tree, with every Switch's cold branches' transitive
// input sets assigned to its guard as KeepAlives.
//
// The keep-alive set computed here is a safe over-approximation of the
// minimal boundary set a flood-marking analysis would produce: rather than
// tracking which nodes belong uniquely to one branch, it takes the full
// transitive closure of each cold branch's exit node. This can keep a few
// more values alive than strictly necessary when branches share upstream
// computation, but it is never wrong — everything the minimal set would
// contain is a subset of this one.
func Analyze[L any](df *ir.Dataflow, tree CFT[L], opts ...Option) (*HotPathTree[L], error) {
	if df == nil {
		return nil, ErrNilDataflow
	}
	if tree == nil {
		return nil, ErrNilTree
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	a := &analyzer[L]{df: df, ctx: o.ctx}
	hpt, _, err := a.walk(tree)
	if err != nil {
		return nil, err
	}
	return hpt, nil
}

type analyzer[L any] struct {
	df  *ir.Dataflow
	ctx context.Context
}

// walk performs the post-order traversal described in doc.go, returning the
// annotated subtree rooted at node plus the full set of Outs it transitively
// depends on (used by the caller to compute its own keep-alives or, at the
// root, discarded).
func (a *analyzer[L]) walk(node CFT[L]) (*HotPathTree[L], map[ir.Out]struct{}, error) {
	select {
	case <-a.ctx.Done():
		return nil, nil, a.ctx.Err()
	default:
	}

	switch n := node.(type) {
	case Merge[L]:
		reads := transitiveReads(a.df, n.Exit)
		return &HotPathTree[L]{Exit: n.Exit, Label: n.Label, Weight: n.Weight}, reads, nil

	case Switch[L]:
		hot, err := n.Hot()
		if err != nil {
			return nil, nil, err
		}
		cold, err := n.Cold()
		if err != nil {
			return nil, nil, err
		}

		hotAnn, hotReads, err := a.walk(hot)
		if err != nil {
			return nil, nil, err
		}

		combined := cloneOutSet(hotReads)
		keepAlives := make(map[ir.Out]struct{})
		coldAnns := make([]*HotPathTree[L], 0, len(cold))
		for _, c := range cold {
			ann, reads, err := a.walk(c)
			if err != nil {
				return nil, nil, err
			}
			coldAnns = append(coldAnns, ann)
			for o := range reads {
				keepAlives[o] = struct{}{}
				combined[o] = struct{}{}
			}
		}

		return &HotPathTree[L]{
			IsSwitch:   true,
			Guard:      n.Guard,
			KeepAlives: keepAlives,
			Hot:        hotAnn,
			Cold:       coldAnns,
		}, combined, nil

	default:
		return nil, nil, fmt.Errorf("%w: %T", ErrUnknownCFTNode, node)
	}
}

// transitiveReads walks the Dataflow backward from start over data and
// dependency edges, collecting every Out any reached node reads.
func transitiveReads(df *ir.Dataflow, start ir.Node) map[ir.Out]struct{} {
	visited := make(map[ir.Node]bool)
	reads := make(map[ir.Out]struct{})
	var visit func(ir.Node)
	visit = func(n ir.Node) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, in := range df.Ins(n) {
			reads[in] = struct{}{}
			visit(in.Node())
		}
		for _, dep := range df.Deps(n) {
			visit(dep)
		}
	}
	visit(start)
	return reads
}

func cloneOutSet(m map[ir.Out]struct{}) map[ir.Out]struct{} {
	out := make(map[ir.Out]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
