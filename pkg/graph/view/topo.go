package view

import (
	"github.com/tensorlab/opsched/pkg/graph"
)

// shapeAnchors maps an anchor node to the Shape/Size nodes that read from
// it. The anchor of a shape-introspection node is its first producer (the
// input edge with the lowest source index); relocation moves the node
// directly behind that anchor so the producer's tensor can be released as
// soon as its metadata has been read.
type shapeAnchors map[graph.NodeIndex][]graph.NodeIndex

// collectShapeAnchors scans the graph once and records every
// shape-introspection node that has at least one producer. Nodes feeding
// only from graph inputs or initializers have nothing to relocate behind
// and are skipped.
func collectShapeAnchors(g *graph.Graph) shapeAnchors {
	anchors := make(shapeAnchors)
	for _, n := range g.Nodes() {
		if !isShapeIntrospection(n) {
			continue
		}
		edges := n.InputEdges()
		if len(edges) == 0 {
			continue
		}
		anchor := edges[0].Src
		anchors[anchor] = append(anchors[anchor], n.Index())
	}
	return anchors
}

// relocate walks a dependency-ordered sequence once and emits each node
// the first time it is seen; immediately after an anchor it emits that
// anchor's not-yet-seen Shape/Size children. Children absent from the
// input sequence are inserted, so the result may be longer than the
// input. Dependency order is preserved: a relocated child always follows
// its producer.
func (a shapeAnchors) relocate(order []graph.NodeIndex) []graph.NodeIndex {
	if len(a) == 0 {
		return order
	}
	out := make([]graph.NodeIndex, 0, len(order))
	seen := make(map[graph.NodeIndex]bool, len(order))
	for _, idx := range order {
		if seen[idx] {
			continue
		}
		out = append(out, idx)
		seen[idx] = true
		for _, child := range a[idx] {
			if !seen[child] {
				out = append(out, child)
				seen[child] = true
			}
		}
	}
	return out
}

// buildDefaultOrder produces the default topological order and the root
// node list. The order is a reverse depth-first traversal from the leaf
// nodes (no outgoing edges), appending on post-visit so every producer
// precedes its consumers; ties are broken by ascending node index. With
// training on, shape-introspection nodes are then relocated directly
// after their anchors.
func buildDefaultOrder(g *graph.Graph, anchors shapeAnchors) (order, roots []graph.NodeIndex) {
	var leaves []*graph.Node
	for _, n := range g.Nodes() {
		if len(n.OutputEdges()) == 0 {
			leaves = append(leaves, n)
		}
		if len(n.InputEdges()) == 0 {
			roots = append(roots, n.Index())
		}
	}

	order = make([]graph.NodeIndex, 0, g.NumNodes())
	g.ReverseDFSFrom(leaves, nil, func(n *graph.Node) {
		order = append(order, n.Index())
	}, graph.ByIndex, nil)

	if anchors != nil {
		order = anchors.relocate(order)
	}
	return order, roots
}
