package view

import (
	apperrors "github.com/tensorlab/opsched/pkg/errors"
	"github.com/tensorlab/opsched/pkg/graph"
)

type options struct {
	filter   *IndexedSubGraph
	training bool
	minimal  bool
}

// Option configures view construction.
type Option func(*options)

// WithFilter restricts the view to the nodes selected by f. A nil f is
// accepted and leaves the view unfiltered.
func WithFilter(f *IndexedSubGraph) Option {
	return func(o *options) { o.filter = f }
}

// WithTraining toggles the training-only ordering behaviors:
// shape-introspection relocation, the forward/backward split around a
// YieldOp node, and the attribute tie-breakers of [PriorityLess].
func WithTraining(v bool) Option {
	return func(o *options) { o.training = v }
}

// WithMinimalBuild skips construction of the priority-based order.
// Requesting [OrderPriority] from a minimal view returns an error.
func WithMinimalBuild(v bool) Option {
	return func(o *options) { o.minimal = v }
}

// View is a read-only projection of a resolved [graph.Graph] with
// precomputed execution orders. See the package documentation for the
// ordering semantics and the concurrency contract.
type View struct {
	g        *graph.Graph
	training bool
	minimal  bool
	filter   *filterInfo

	defaultOrder  []graph.NodeIndex
	priorityOrder []graph.NodeIndex
	roots         []graph.NodeIndex
	nodes         []*graph.Node
	outputSet     map[*graph.NodeArg]bool
}

// New constructs a view of g. The graph must be resolved and acyclic;
// both conditions are checked and reported as errors, never panics.
func New(g *graph.Graph, opts ...Option) (*View, error) {
	if g == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidGraph, "cannot view a nil graph")
	}
	if !g.IsResolved() {
		return nil, apperrors.New(apperrors.ErrCodeInvalidGraph,
			"graph %q must be resolved before it can be viewed", g.Name())
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Reject cyclic graphs up front so every later pass can assume a
	// complete dependency order. The per-pass node counts below stay as
	// backstops.
	if err := g.KahnsTopologicalSort(func(*graph.Node) {}, nil); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeGraphCycle, err,
			"graph %q is not schedulable", g.Name())
	}

	v := &View{g: g, training: o.training, minimal: o.minimal}

	var anchors shapeAnchors
	if o.training {
		anchors = collectShapeAnchors(g)
	}
	v.defaultOrder, v.roots = buildDefaultOrder(g, anchors)

	if !o.minimal {
		order, err := buildPriorityOrder(g, o.training, anchors)
		if err != nil {
			return nil, err
		}
		v.priorityOrder = order
	}

	if o.filter != nil {
		fi, err := newFilterInfo(g, o.filter)
		if err != nil {
			return nil, err
		}
		v.filter = fi
		v.defaultOrder = fi.filterOrder(v.defaultOrder)
		if v.priorityOrder != nil {
			v.priorityOrder = fi.filterOrder(v.priorityOrder)
		}
	}

	for _, n := range g.Nodes() {
		if v.filter == nil || v.filter.nodeSet[n.Index()] {
			v.nodes = append(v.nodes, n)
		}
	}

	v.outputSet = make(map[*graph.NodeArg]bool, len(v.Outputs()))
	for _, arg := range v.Outputs() {
		v.outputSet[arg] = true
	}
	return v, nil
}

// buildPriorityOrder picks the sorting strategy: plain comparator-driven
// Kahn iteration, or the split-and-cluster pass when a training graph
// carries a synchronization node.
func buildPriorityOrder(g *graph.Graph, training bool, anchors shapeAnchors) ([]graph.NodeIndex, error) {
	less := PriorityLess(training)

	var yield *graph.Node
	if training {
		for _, n := range g.Nodes() {
			if n.OpType() != graph.OpTypeYield {
				continue
			}
			if yield != nil {
				return nil, apperrors.New(apperrors.ErrCodeInvariantViolation,
					"graph %q contains more than one %s node", g.Name(), graph.OpTypeYield)
			}
			yield = n
		}
	}
	if yield != nil {
		return sortWithYield(g, yield, less, anchors)
	}

	order := make([]graph.NodeIndex, 0, g.NumNodes())
	if err := g.KahnsTopologicalSort(func(n *graph.Node) {
		order = append(order, n.Index())
	}, less); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeGraphCycle, err,
			"priority order of graph %q", g.Name())
	}
	return order, nil
}

// Name returns the graph's name, or the filter's metadata name when the
// view is filtered.
func (v *View) Name() string {
	if v.filter != nil {
		return v.filter.meta.Name
	}
	return v.g.Name()
}

// Description returns the graph's description. A filtered view returns
// the filter's metadata description when it carries one.
func (v *View) Description() string {
	if v.filter != nil && v.filter.meta.Description != "" {
		return v.filter.meta.Description
	}
	return v.g.Description()
}

// Inputs returns the view's declared inputs, excluding values backed by
// an initializer. Filtered views report the filter's metadata inputs.
// The slice must not be modified.
func (v *View) Inputs() []*graph.NodeArg {
	if v.filter != nil {
		return v.filter.inputs
	}
	return v.g.Inputs()
}

// InputsIncludingInitializers returns the view's declared inputs with
// initializer-backed entries retained. The slice must not be modified.
func (v *View) InputsIncludingInitializers() []*graph.NodeArg {
	if v.filter != nil {
		return v.filter.inputsIncludingInit
	}
	return v.g.InputsIncludingInitializers()
}

// Outputs returns the view's declared outputs. Filtered views report the
// filter's metadata outputs. The slice must not be modified.
func (v *View) Outputs() []*graph.NodeArg {
	if v.filter != nil {
		return v.filter.outputs
	}
	return v.g.Outputs()
}

// Initializers returns the name-to-tensor map visible through the view.
// On a filtered view this contains exactly the initializers referenced by
// the filtered nodes' explicit and implicit inputs. The map must not be
// modified.
func (v *View) Initializers() map[string]*graph.TensorDesc {
	if v.filter != nil {
		return v.filter.initializers
	}
	return v.g.Initializers()
}

// Initializer returns the initializer tensor visible through the view
// under the given name. On a filtered view, names outside the filtered
// initializer map report false even when the graph holds them.
func (v *View) Initializer(name string) (*graph.TensorDesc, bool) {
	if v.filter != nil {
		td, ok := v.filter.initializers[name]
		return td, ok
	}
	return v.g.Initializer(name)
}

// IsInitializer reports whether name is an initializer of the underlying
// graph. The check ignores filtering; use [View.Initializer] to test
// visibility through a filtered view.
func (v *View) IsInitializer(name string) bool {
	return v.g.IsInitializer(name)
}

// IsConstantInitializer reports whether name is an initializer that a
// session cannot override. Delegates to the underlying graph.
func (v *View) IsConstantInitializer(name string, checkOuterScope bool) bool {
	return v.g.IsConstantInitializer(name, checkOuterScope)
}

// ConstantInitializer returns the constant initializer with the given
// name. Delegates to the underlying graph.
func (v *View) ConstantInitializer(name string, checkOuterScope bool) (*graph.TensorDesc, bool) {
	return v.g.ConstantInitializer(name, checkOuterScope)
}

// Node returns the node at the given index, or nil when the index is out
// of range, removed, or excluded by the view's filter.
func (v *View) Node(index graph.NodeIndex) *graph.Node {
	if v.filter != nil && !v.filter.nodeSet[index] {
		return nil
	}
	return v.g.Node(index)
}

// Nodes returns the view's nodes in ascending index order. The slice must
// not be modified.
func (v *View) Nodes() []*graph.Node { return v.nodes }

// NumNodes returns the number of nodes visible through the view.
func (v *View) NumNodes() int {
	if v.filter != nil {
		return len(v.filter.nodeSet)
	}
	return v.g.NumNodes()
}

// MaxNodeIndex returns the exclusive upper bound of the underlying
// graph's node indices. Filtering does not shrink it.
func (v *View) MaxNodeIndex() graph.NodeIndex { return v.g.MaxNodeIndex() }

// NodesInTopologicalOrder returns the requested cached ordering. The
// slice must not be modified.
func (v *View) NodesInTopologicalOrder(order ExecutionOrder) ([]graph.NodeIndex, error) {
	switch order {
	case OrderDefault:
		return v.defaultOrder, nil
	case OrderPriority:
		if v.minimal {
			return nil, apperrors.New(apperrors.ErrCodeUnsupported,
				"the priority order is not built on a minimal view")
		}
		return v.priorityOrder, nil
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvariantViolation,
			"unknown execution order %d", int(order))
	}
}

// RootNodes returns the indices of nodes with no incoming edges, in
// ascending order. Unsupported on filtered views. The slice must not be
// modified.
func (v *View) RootNodes() ([]graph.NodeIndex, error) {
	if v.filter != nil {
		return nil, apperrors.New(apperrors.ErrCodeUnsupported,
			"root nodes are not available on a filtered view")
	}
	return v.roots, nil
}

// ValueInfo returns the graph's declared value-info handles. The slice
// must not be modified.
func (v *View) ValueInfo() []*graph.NodeArg { return v.g.ValueInfo() }

// NodeArg returns the value handle with the given name, or nil.
func (v *View) NodeArg(name string) *graph.NodeArg { return v.g.NodeArg(name) }

// IsSubgraph reports whether the underlying graph is nested inside a
// parent node.
func (v *View) IsSubgraph() bool { return v.g.IsSubgraph() }

// NodeProducesGraphOutput reports whether any of the node's outputs is
// one of the view's declared outputs (the filter's outputs when
// filtered).
func (v *View) NodeProducesGraphOutput(n *graph.Node) bool {
	for _, arg := range n.Outputs() {
		if v.outputSet[arg] {
			return true
		}
	}
	return false
}

// OuterScopeNames returns the sorted outer-scope value names resolved
// during [graph.Graph.Resolve]. The slice must not be modified.
func (v *View) OuterScopeNames() []string { return v.g.OuterScopeNames() }

// CanOverrideInitializer reports whether the underlying graph allows
// initializers to be overridden by session inputs.
func (v *View) CanOverrideInitializer() bool { return v.g.CanOverrideInitializer() }

// DomainToVersionMap returns the operator-set versions of the underlying
// graph. The map must not be modified.
func (v *View) DomainToVersionMap() map[string]int { return v.g.DomainToVersionMap() }

// Graph returns the underlying graph. The graph is borrowed: mutating it
// invalidates the view.
func (v *View) Graph() *graph.Graph { return v.g }

// Training reports whether the view was built with [WithTraining].
func (v *View) Training() bool { return v.training }

// MinimalBuild reports whether the view was built with
// [WithMinimalBuild].
func (v *View) MinimalBuild() bool { return v.minimal }

// Filtered reports whether the view was built with a non-nil
// [WithFilter] descriptor.
func (v *View) Filtered() bool { return v.filter != nil }
