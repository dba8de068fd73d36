package cft

import "github.com/fsmjit/fsmjit/ir"

// CFT is the sum type rooted at a Simulation's Convention exit: Switch for
// an internal guard branch, Merge for a leaf. L is the label type attached
// to a leaf — typically the next-state identifier of the caller's state
// machine.
type CFT[L any] interface {
	isCFT()
}

// Switch is an internal CFT node testing Guard and branching to whichever
// of Cases/Default HotIndex designates as hot. HotIndex in [0, len(Cases))
// selects Cases[HotIndex]; HotIndex == len(Cases) selects Default. Every
// branch other than the hot one is cold.
type Switch[L any] struct {
	Guard    ir.Node
	Cases    []CFT[L]
	Default  CFT[L]
	HotIndex int
}

// Merge is a CFT leaf: execution reaches Exit and continues to the state
// named by Label. Weight is an estimated execution frequency; it is carried
// into the HotPathTree, and no scheduling or layout decision reads it.
type Merge[L any] struct {
	Exit   ir.Node
	Label  L
	Weight int
}

func (Switch[L]) isCFT() {}
func (Merge[L]) isCFT()  {}

// branches returns Cases followed by Default, the order HotIndex addresses.
func (s Switch[L]) branches() []CFT[L] {
	all := make([]CFT[L], 0, len(s.Cases)+1)
	all = append(all, s.Cases...)
	all = append(all, s.Default)
	return all
}

// Hot returns the branch HotIndex designates as hot, or an error if
// HotIndex is out of range.
func (s Switch[L]) Hot() (CFT[L], error) {
	b := s.branches()
	if s.HotIndex < 0 || s.HotIndex >= len(b) {
		return nil, errHotIndex(s.HotIndex)
	}
	return b[s.HotIndex], nil
}

// Cold returns every branch other than the hot one, in branches() order.
func (s Switch[L]) Cold() ([]CFT[L], error) {
	b := s.branches()
	if s.HotIndex < 0 || s.HotIndex >= len(b) {
		return nil, errHotIndex(s.HotIndex)
	}
	cold := make([]CFT[L], 0, len(b)-1)
	for i, c := range b {
		if i != s.HotIndex {
			cold = append(cold, c)
		}
	}
	return cold, nil
}
