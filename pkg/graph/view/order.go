package view

import (
	"fmt"

	"github.com/tensorlab/opsched/pkg/graph"
)

// ExecutionOrder selects one of the cached orderings returned by
// [View.NodesInTopologicalOrder].
type ExecutionOrder int

const (
	// OrderDefault is the dependency order produced by reverse
	// depth-first traversal from the graph's leaves, tie-broken by node
	// index.
	OrderDefault ExecutionOrder = iota

	// OrderPriority is the priority-aware order. It respects the same
	// dependencies as OrderDefault but additionally honors operator
	// class, explicit node priorities, and the training forward/backward
	// split. Not available on views built with [WithMinimalBuild].
	OrderPriority
)

// String returns the order's name for logs and error messages.
func (o ExecutionOrder) String() string {
	switch o {
	case OrderDefault:
		return "default"
	case OrderPriority:
		return "priority"
	default:
		return fmt.Sprintf("ExecutionOrder(%d)", int(o))
	}
}

// isShapeIntrospection reports whether the node only reads structural
// metadata of its input tensor. Such nodes are cheap and unblock memory
// release, so the scheduler runs them as early as possible.
func isShapeIntrospection(n *graph.Node) bool {
	op := n.OpType()
	return op == graph.OpTypeShape || op == graph.OpTypeSize
}

// isForwardNode reports whether a node belongs to the forward pass of a
// training graph. Nodes without the backward marker attribute, or whose
// marker has an even value, run in the forward pass.
func isForwardNode(n *graph.Node) bool {
	v, ok := n.AttrInt(graph.AttrBackwardPass)
	return !ok || v%2 == 0
}

// recomputeImpact returns the node's recompute critical-path impact, or
// -1 when the attribute is absent.
func recomputeImpact(n *graph.Node) int64 {
	v, ok := n.AttrInt(graph.AttrRecomputeCriticalPathImpact)
	if !ok {
		return -1
	}
	return v
}

// PriorityLess returns the comparator that drives the priority-based
// order: it reports whether a should be emitted before b. Keys are
// applied in sequence, stopping at the first that differs:
//
//  1. Shape/Size nodes go before all other operators.
//  2. Lower explicit priority goes first.
//  3. Training only, both at [graph.PriorityDefault]: forward-pass nodes
//     go before backward-pass nodes (see [graph.AttrBackwardPass]).
//  4. Training only, both at [graph.PriorityLocalLow] and both carrying
//     [graph.AttrRecomputeCriticalPathImpact]: the larger impact goes
//     first.
//  5. Lower node index goes first.
//
// The final index key makes the comparator a total order, so any
// traversal driven by it is deterministic.
func PriorityLess(training bool) graph.Less {
	return func(a, b *graph.Node) bool {
		aShape, bShape := isShapeIntrospection(a), isShapeIntrospection(b)
		if aShape != bShape {
			return aShape
		}

		aPri, bPri := a.Priority(), b.Priority()
		if aPri != bPri {
			return aPri < bPri
		}

		if training {
			switch aPri {
			case graph.PriorityDefault:
				aFwd, bFwd := isForwardNode(a), isForwardNode(b)
				if aFwd != bFwd {
					return aFwd
				}
			case graph.PriorityLocalLow:
				aImp, bImp := recomputeImpact(a), recomputeImpact(b)
				if aImp >= 0 && bImp >= 0 && aImp != bImp {
					return aImp > bImp
				}
			}
		}

		return a.Index() < b.Index()
	}
}
