package view

import (
	"container/heap"
	"strconv"
	"strings"

	apperrors "github.com/tensorlab/opsched/pkg/errors"
	"github.com/tensorlab/opsched/pkg/graph"
)

// cluster is a group of branch-subgraph nodes that contribute to exactly
// the same set of external outputs. Clusters are emitted as a unit: when
// the priority queue demands any of a cluster's outputs, the whole
// cluster is realized before the demanding node runs.
type cluster struct {
	nodes   []*graph.Node    // discovery order; producers precede consumers
	inputs  []*graph.NodeArg // read by the cluster, produced elsewhere
	outputs []*graph.NodeArg // produced by the cluster, read anywhere
	state   clusterState
}

type clusterState int

const (
	clusterPending clusterState = iota
	clusterRealizing
	clusterDone
)

// prioritySorter carries the working state of the split-and-cluster pass
// for one graph. It is used once and discarded.
type prioritySorter struct {
	g       *graph.Graph
	less    graph.Less
	anchors shapeAnchors

	forward   []bool // node index -> in the forward set
	inBranch  []bool // node index -> in the branch subgraph
	remaining []int  // node index -> input edges not yet satisfied
	emitted   []bool
	ready     map[*graph.NodeArg]bool
	ownerOf   map[*graph.NodeArg]*cluster
	order     []graph.NodeIndex
	queue     *nodeQueue
}

// sortWithYield produces the priority order for a training graph that
// contains a synchronization node. The forward pass (ancestors of the
// yield node's inputs, plus relocated Shape/Size readers) is emitted
// first in reverse-DFS order; every other node is emitted by
// priority-queue iteration with cluster pull-in.
func sortWithYield(g *graph.Graph, yield *graph.Node, less graph.Less, anchors shapeAnchors) ([]graph.NodeIndex, error) {
	s := &prioritySorter{
		g:         g,
		less:      less,
		anchors:   anchors,
		forward:   make([]bool, g.MaxNodeIndex()),
		remaining: make([]int, g.MaxNodeIndex()),
		emitted:   make([]bool, g.MaxNodeIndex()),
		ready:     make(map[*graph.NodeArg]bool),
		ownerOf:   make(map[*graph.NodeArg]*cluster),
		queue:     &nodeQueue{less: less},
	}

	s.buildForwardPrefix(yield)
	seeds := s.discoverBranchSeeds(yield)
	branch := s.discoverBranchSubgraph(seeds)
	s.buildClusters(branch, yield)

	if err := s.emitByPriority(seeds); err != nil {
		return nil, err
	}

	if len(s.order) != g.NumNodes() {
		return nil, apperrors.New(apperrors.ErrCodeGraphCycle,
			"priority sort emitted %d of %d nodes; the graph has a cycle", len(s.order), g.NumNodes())
	}
	return s.order, nil
}

// buildForwardPrefix collects the forward set (every ancestor of the
// yield node's inputs) in reverse-DFS post-visit order, then relocates
// shape-introspection readers of forward nodes into the prefix. The
// relocated readers join the forward set even when they only feed the
// backward pass.
func (s *prioritySorter) buildForwardPrefix(yield *graph.Node) {
	var prefix []graph.NodeIndex
	s.g.ReverseDFSFrom(yield.InputNodes(), nil, func(n *graph.Node) {
		prefix = append(prefix, n.Index())
	}, graph.ByIndex, nil)

	prefix = s.anchors.relocate(prefix)

	for _, idx := range prefix {
		s.forward[idx] = true
		s.emitted[idx] = true
	}
	s.order = append(s.order, prefix...)
}

// discoverBranchSeeds computes, for every node outside the forward set,
// the number of input edges still unsatisfied once forward producers are
// treated as done. Values crossing from the forward set, the graph's
// declared inputs, all initializers, and outer-scope captures are marked
// ready. The seeds are the non-forward nodes with no unsatisfied edges,
// led by the yield node, whose producers are all forward by construction.
func (s *prioritySorter) discoverBranchSeeds(yield *graph.Node) []*graph.Node {
	g := s.g
	for _, arg := range g.InputsIncludingInitializers() {
		s.ready[arg] = true
	}
	for name := range g.Initializers() {
		if arg := g.NodeArg(name); arg != nil {
			s.ready[arg] = true
		}
	}
	for _, name := range g.OuterScopeNames() {
		if arg := g.NodeArg(name); arg != nil {
			s.ready[arg] = true
		}
	}

	seeds := []*graph.Node{yield}
	for _, n := range g.Nodes() {
		if s.forward[n.Index()] {
			continue
		}
		deg := 0
		for _, e := range n.InputEdges() {
			if s.forward[e.Src] {
				s.ready[n.InputAt(e.DstPort)] = true
				continue
			}
			deg++
		}
		if n == yield {
			continue
		}
		s.remaining[n.Index()] = deg
		if deg == 0 {
			seeds = append(seeds, n)
		}
	}
	return seeds
}

// discoverBranchSubgraph grows the branch subgraph from the seeds by BFS
// over output edges, admitting a node once all of its unsatisfied edges
// have been accounted for. The yield node does not participate: nodes
// that stay blocked behind it (the backward pass proper) are scheduled by
// the priority queue instead, and only demand clusters from this set.
func (s *prioritySorter) discoverBranchSubgraph(seeds []*graph.Node) []*graph.Node {
	s.inBranch = make([]bool, s.g.MaxNodeIndex())
	branch := make([]*graph.Node, 0, len(seeds))
	queue := make([]*graph.Node, 0, len(seeds))

	for _, n := range seeds[1:] { // seeds[0] is the yield node
		s.inBranch[n.Index()] = true
		branch = append(branch, n)
		queue = append(queue, n)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range cur.OutputEdges() {
			s.remaining[e.Dst]--
			if s.remaining[e.Dst] == 0 {
				n := s.g.Node(e.Dst)
				s.inBranch[e.Dst] = true
				branch = append(branch, n)
				queue = append(queue, n)
			}
		}
	}
	return branch
}

// buildClusters tags every branch node with the set of external outputs
// it contributes to, partitions the branch by exact tag set, and indexes
// each cluster's outputs so the emission loop can find the owning cluster
// of a demanded value in O(1).
func (s *prioritySorter) buildClusters(branch []*graph.Node, yield *graph.Node) {
	g := s.g

	// External outputs: values produced inside the branch subgraph and
	// read by a node outside it, in first-seen order.
	var external []*graph.NodeArg
	externalSeen := make(map[*graph.NodeArg]bool)
	for _, n := range branch {
		for _, e := range n.OutputEdges() {
			if s.inBranch[e.Dst] {
				continue
			}
			arg := g.Node(e.Dst).InputAt(e.DstPort)
			if !externalSeen[arg] {
				externalSeen[arg] = true
				external = append(external, arg)
			}
		}
	}

	// Tag each branch node with the ordinals of the external outputs it
	// feeds. The reverse DFS stays inside the branch: forward nodes and
	// the yield node are pruned. Tag lists come out ascending because
	// the loop runs in ordinal order.
	skip := func(_, to *graph.Node) bool {
		return s.forward[to.Index()] || to == yield
	}
	tags := make([][]int, g.MaxNodeIndex())
	for ord, arg := range external {
		producer := g.ProducerNode(arg.Name())
		g.ReverseDFSFrom([]*graph.Node{producer}, nil, func(n *graph.Node) {
			tags[n.Index()] = append(tags[n.Index()], ord)
		}, nil, skip)
	}

	byKey := make(map[string]*cluster)
	var clusters []*cluster
	for _, n := range branch {
		key := tagKey(tags[n.Index()])
		c, ok := byKey[key]
		if !ok {
			c = &cluster{}
			byKey[key] = c
			clusters = append(clusters, c)
		}
		c.nodes = append(c.nodes, n)
	}

	for _, c := range clusters {
		s.finalizeCluster(c)
	}
}

// finalizeCluster computes the cluster's input set (values its nodes read
// that it does not produce) and output set (values it produces that have
// at least one reader), and registers the outputs in the owner index.
func (s *prioritySorter) finalizeCluster(c *cluster) {
	produced := make(map[*graph.NodeArg]bool)
	for _, n := range c.nodes {
		for _, arg := range n.Outputs() {
			if arg.Exists() {
				produced[arg] = true
			}
		}
	}

	inputSeen := make(map[*graph.NodeArg]bool)
	for _, n := range c.nodes {
		for _, arg := range n.InputArgs() {
			if produced[arg] || inputSeen[arg] {
				continue
			}
			inputSeen[arg] = true
			c.inputs = append(c.inputs, arg)
		}
		for _, arg := range n.Outputs() {
			if arg.Exists() && len(s.g.ConsumerNodes(arg.Name())) > 0 {
				c.outputs = append(c.outputs, arg)
				s.ownerOf[arg] = c
			}
		}
	}
}

// emitByPriority drains a priority queue seeded with the yield node and
// the branch seeds. Popping a node first realizes any pending cluster
// that owns one of its unready inputs, then emits the node and marks its
// outputs ready, then re-evaluates each successor: fully ready successors
// are enqueued, as are successors whose only missing inputs are owned by
// clusters (they trigger pull-in when popped). A node already emitted via
// cluster realization is skipped when popped, but its successors are
// still examined.
func (s *prioritySorter) emitByPriority(seeds []*graph.Node) error {
	for _, n := range seeds {
		heap.Push(s.queue, n)
	}

	for s.queue.Len() > 0 {
		cur := heap.Pop(s.queue).(*graph.Node)
		if s.emitted[cur.Index()] {
			s.enqueueReadySuccessors(cur)
			continue
		}

		for _, e := range cur.InputEdges() {
			arg := cur.InputAt(e.DstPort)
			if s.ready[arg] {
				continue
			}
			if owner := s.ownerOf[arg]; owner != nil {
				if err := s.realize(owner); err != nil {
					return err
				}
			}
		}

		s.emit(cur)
		s.enqueueReadySuccessors(cur)
	}
	return nil
}

// emit appends a node to the priority order and marks its outputs ready.
func (s *prioritySorter) emit(n *graph.Node) {
	s.order = append(s.order, n.Index())
	s.emitted[n.Index()] = true
	for _, arg := range n.Outputs() {
		if arg.Exists() {
			s.ready[arg] = true
		}
	}
}

// realize emits a whole cluster, first recursively realizing any cluster
// that produces one of its inputs. The nodes are emitted in discovery
// order, which respects dependencies within the cluster. Re-entering a
// cluster that is already being realized means two clusters need each
// other's outputs, which only happens on a cyclic graph.
func (s *prioritySorter) realize(c *cluster) error {
	switch c.state {
	case clusterDone:
		return nil
	case clusterRealizing:
		return apperrors.New(apperrors.ErrCodeGraphCycle,
			"recompute clusters depend on each other; the graph has a cycle")
	}
	c.state = clusterRealizing

	for _, arg := range c.inputs {
		if s.ready[arg] {
			continue
		}
		owner := s.ownerOf[arg]
		if owner == nil {
			return apperrors.New(apperrors.ErrCodeInvariantViolation,
				"cluster input %q is neither ready nor produced by a cluster", arg.Name())
		}
		if owner == c {
			continue
		}
		if err := s.realize(owner); err != nil {
			return err
		}
	}

	for _, n := range c.nodes {
		if !s.emitted[n.Index()] {
			s.emit(n)
		}
	}
	for _, arg := range c.outputs {
		s.ready[arg] = true
	}
	c.state = clusterDone
	return nil
}

// enqueueReadySuccessors pushes every consumer of the node's outputs
// whose remaining inputs are either ready or owned by a cluster. A
// consumer with an unready, unowned input stays dormant; another producer
// will enqueue it later.
func (s *prioritySorter) enqueueReadySuccessors(n *graph.Node) {
	for _, e := range n.OutputEdges() {
		succ := s.g.Node(e.Dst)
		allReady := true
		pendingOwned := true
		for _, se := range succ.InputEdges() {
			arg := succ.InputAt(se.DstPort)
			if s.ready[arg] {
				continue
			}
			allReady = false
			if s.ownerOf[arg] == nil {
				pendingOwned = false
				break
			}
		}
		if allReady || pendingOwned {
			heap.Push(s.queue, succ)
		}
	}
}

// tagKey folds an ascending ordinal list into a map key so clusters can
// be grouped by exact tag set.
func tagKey(ordinals []int) string {
	if len(ordinals) == 0 {
		return ""
	}
	var b strings.Builder
	for i, ord := range ordinals {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(ord))
	}
	return b.String()
}

// nodeQueue is a max-style priority queue of nodes: the top is the next
// node to emit according to the comparator.
type nodeQueue struct {
	nodes []*graph.Node
	less  graph.Less
}

func (q *nodeQueue) Len() int           { return len(q.nodes) }
func (q *nodeQueue) Less(i, j int) bool { return q.less(q.nodes[i], q.nodes[j]) }
func (q *nodeQueue) Swap(i, j int)      { q.nodes[i], q.nodes[j] = q.nodes[j], q.nodes[i] }

func (q *nodeQueue) Push(x any) {
	q.nodes = append(q.nodes, x.(*graph.Node))
}

func (q *nodeQueue) Pop() any {
	old := q.nodes
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	q.nodes = old[:n-1]
	return item
}
