package graph

import (
	"container/heap"
	"fmt"
	"sort"
)

// Less orders nodes for deterministic traversal and scheduling. It
// reports whether a should be scheduled before b. A Less must be a strict
// weak ordering over the nodes of one graph.
type Less func(a, b *Node) bool

// ByIndex orders nodes by ascending index. It is the stable tie-breaker
// used throughout the scheduler.
func ByIndex(a, b *Node) bool { return a.index < b.index }

// EdgeFilter decides whether a traversal should skip the edge from the
// current node to a neighbor. Returning true prunes the edge.
type EdgeFilter func(from, to *Node) bool

type workEntry struct {
	node  *Node
	leave bool
}

// ReverseDFSFrom walks the graph backwards along input edges starting at
// the seed nodes. enter fires when a node is first reached, leave fires
// after all of the node's producers have been left; appending nodes in
// leave order therefore yields a dependency-respecting sequence.
//
// When less is non-nil, each node's producers are visited in that order
// (the first producer by less is reached first). skip, when non-nil,
// prunes individual edges; the pruned producer may still be reached along
// another path.
func (g *Graph) ReverseDFSFrom(from []*Node, enter, leave func(*Node), less Less, skip EdgeFilter) {
	stack := make([]workEntry, 0, len(from))
	for _, n := range from {
		if n != nil {
			stack = append(stack, workEntry{node: n})
		}
	}

	visited := make([]bool, g.MaxNodeIndex())
	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if w.leave {
			leave(w.node)
			continue
		}
		if visited[w.node.index] {
			continue
		}
		visited[w.node.index] = true

		if enter != nil {
			enter(w.node)
		}
		if leave != nil {
			stack = append(stack, workEntry{node: w.node, leave: true})
		}

		producers := w.node.producerNodes(skip)
		if less != nil {
			sort.SliceStable(producers, func(i, j int) bool { return less(producers[i], producers[j]) })
		}
		// Push in reverse so the first producer by less is popped first.
		for i := len(producers) - 1; i >= 0; i-- {
			if !visited[producers[i].index] {
				stack = append(stack, workEntry{node: producers[i]})
			}
		}
	}
}

// producerNodes collects the distinct producers feeding n, honoring an
// optional edge filter. Input edges are sorted by source index, so the
// result is ascending and duplicates are adjacent.
func (n *Node) producerNodes(skip EdgeFilter) []*Node {
	var prev NodeIndex = -1
	var producers []*Node
	for _, e := range n.inputEdges {
		src := n.graph.Node(e.Src)
		if skip != nil && skip(n, src) {
			continue
		}
		if e.Src == prev {
			continue
		}
		prev = e.Src
		producers = append(producers, src)
	}
	return producers
}

// KahnsTopologicalSort visits every live node in a dependency-respecting
// order. Among the nodes whose producers have all been visited, the next
// one is chosen by less (ByIndex when nil), so the output is
// deterministic for a given comparator.
//
// Returns [ErrNotResolved] if the graph has no edge structure yet, or
// [ErrGraphHasCycle] when a directed cycle prevents visiting every node.
func (g *Graph) KahnsTopologicalSort(visit func(*Node), less Less) error {
	if !g.resolved {
		return ErrNotResolved
	}
	if less == nil {
		less = ByIndex
	}

	inDegree := make([]int, g.MaxNodeIndex())
	ready := &nodeHeap{less: less}
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		inDegree[n.index] = len(n.inputEdges)
		if inDegree[n.index] == 0 {
			heap.Push(ready, n)
		}
	}

	emitted := 0
	for ready.Len() > 0 {
		n := heap.Pop(ready).(*Node)
		visit(n)
		emitted++
		for _, e := range n.outputEdges {
			inDegree[e.Dst]--
			if inDegree[e.Dst] == 0 {
				heap.Push(ready, g.nodes[e.Dst])
			}
		}
	}

	if emitted != g.numNodes {
		return fmt.Errorf("visited %d of %d nodes: %w", emitted, g.numNodes, ErrGraphHasCycle)
	}
	return nil
}

// nodeHeap is a min-heap of nodes ordered by a Less comparator. The next
// node to schedule is always at the top.
type nodeHeap struct {
	nodes []*Node
	less  Less
}

func (h *nodeHeap) Len() int           { return len(h.nodes) }
func (h *nodeHeap) Less(i, j int) bool { return h.less(h.nodes[i], h.nodes[j]) }
func (h *nodeHeap) Swap(i, j int)      { h.nodes[i], h.nodes[j] = h.nodes[j], h.nodes[i] }

func (h *nodeHeap) Push(x any) {
	h.nodes = append(h.nodes, x.(*Node))
}

func (h *nodeHeap) Pop() any {
	old := h.nodes
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.nodes = old[:n-1]
	return item
}
