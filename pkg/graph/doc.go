// Package graph provides the dataflow computation graph consumed by the
// opsched scheduler: nodes are operator invocations, edges are typed
// value dependencies matched by name.
//
// # Overview
//
// A graph is built in two phases. First, nodes, initializers, and the
// declared input/output surface are added incrementally; then
// [Graph.Resolve] wires edges by matching each node input name to the
// node producing that value, validates that every read value has a
// source, and freezes the graph. A resolved graph is immutable and safe
// for concurrent readers, which is what the view layer
// (pkg/graph/view) relies on.
//
// # Basic Usage
//
// Create a graph with [New], add nodes with [Graph.AddNode], then
// resolve:
//
//	g := graph.New("demo")
//	g.SetInputs("x")
//	g.SetOutputs("y")
//	g.AddNode(graph.NodeSpec{OpType: "Relu", Inputs: []string{"x"}, Outputs: []string{"h"}})
//	g.AddNode(graph.NodeSpec{OpType: "Exp", Inputs: []string{"h"}, Outputs: []string{"y"}})
//	if err := g.Resolve(); err != nil {
//	    log.Fatal(err)
//	}
//
// Node indices are assigned in insertion order and never reused;
// [Graph.RemoveNode] leaves an addressable hole, so [Graph.MaxNodeIndex]
// may exceed [Graph.NumNodes].
//
// # Value Handles
//
// Every value name is interned to a single [NodeArg] per graph, so
// handles compare by pointer identity. An empty name in a node's input
// or output list is a skipped optional slot; it carries no edges and its
// handle reports Exists() == false.
//
// # Traversals
//
// The package ships the two traversal primitives the scheduler is built
// on: [Graph.ReverseDFSFrom], a backwards depth-first walk with
// enter/leave hooks, deterministic neighbor ordering, and edge
// filtering; and [Graph.KahnsTopologicalSort], a comparator-driven
// topological sort that reports cycles via [ErrGraphHasCycle].
//
// # Subgraphs
//
// [NewSubgraph] nests a graph under a node of a parent graph. Values the
// subgraph reads without a local source resolve against ancestor scopes
// during Resolve and are listed by [Graph.OuterScopeNames].
package graph
