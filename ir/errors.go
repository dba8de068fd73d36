package ir

import "errors"

// Sentinel errors for Dataflow construction and validation.
var (
	// ErrEmptyInputs indicates a Dataflow was constructed with zero live-ins.
	ErrEmptyInputs = errors.New("ir: dataflow requires at least one live-in")

	// ErrUnknownOut indicates an Out handle does not belong to this Dataflow.
	ErrUnknownOut = errors.New("ir: out handle not from this dataflow")

	// ErrUnknownNode indicates a Node handle does not belong to this Dataflow.
	ErrUnknownNode = errors.New("ir: node handle not from this dataflow")

	// ErrCyclicGraph indicates Validate found a cycle in dependency edges.
	ErrCyclicGraph = errors.New("ir: cyclic dependency graph")

	// ErrUseBeforeDef indicates a data input referenced an Out produced
	// later in arena order than its consumer.
	ErrUseBeforeDef = errors.New("ir: use before definition")
)
