package graph

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrResolved is returned by mutating methods ([Graph.AddNode],
	// [Graph.RemoveNode], [Graph.AddInitializer], ...) once
	// [Graph.Resolve] has run. A resolved graph is immutable.
	ErrResolved = errors.New("graph is already resolved")

	// ErrNotResolved is returned by operations that need the edge
	// structure ([Graph.KahnsTopologicalSort], view construction) when
	// [Graph.Resolve] has not run yet.
	ErrNotResolved = errors.New("graph is not resolved")

	// ErrEmptyOpType is returned by [Graph.AddNode] when the spec has no
	// operator type. Every node must name its operator.
	ErrEmptyOpType = errors.New("node op type must not be empty")

	// ErrDuplicateProducer is returned by [Graph.AddNode] when an output
	// value name already has a producer. Values are single-assignment.
	ErrDuplicateProducer = errors.New("value already has a producer")

	// ErrDuplicateInitializer is returned by [Graph.AddInitializer] when
	// an initializer with the same name was already added.
	ErrDuplicateInitializer = errors.New("duplicate initializer")

	// ErrUnknownNode is returned by [Graph.RemoveNode] when the index
	// does not refer to a live node.
	ErrUnknownNode = errors.New("unknown node index")

	// ErrUnresolvedValue is returned by [Graph.Resolve] when a node reads
	// a value that has no producer, no initializer, is not a declared
	// graph input, and cannot be found in any ancestor scope.
	ErrUnresolvedValue = errors.New("value has no source")

	// ErrUnknownOutput is returned by [Graph.Resolve] when a declared
	// graph output is not produced by any node and is neither an
	// initializer nor a declared input.
	ErrUnknownOutput = errors.New("graph output has no producer")

	// ErrGraphHasCycle is returned by [Graph.KahnsTopologicalSort] when
	// the emitted node count disagrees with the live node count, which
	// means a directed cycle exists.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Graph is a dataflow computation graph: nodes are operator invocations,
// edges are typed value dependencies. A graph is built incrementally with
// [Graph.AddNode] and friends, then frozen with [Graph.Resolve], which
// wires edges by matching value names and validates that every read value
// has a source. After Resolve the graph is immutable and safe for any
// number of concurrent readers.
//
// The zero value is not usable - use [New] to create a graph.
type Graph struct {
	name        string
	description string

	nodes    []*Node // indexed by NodeIndex; removed slots are nil
	numNodes int
	numEdges int

	args map[string]*NodeArg // interned value handles

	initializers map[string]*TensorDesc

	declaredInputs  []string
	declaredOutputs []string
	valueInfoNames  []string

	inputsIncludingInitializers []*NodeArg
	inputs                      []*NodeArg // declared minus initializer-backed
	outputs                     []*NodeArg
	valueInfo                   []*NodeArg

	producer     map[string]NodeIndex // value name -> producing node
	producerPort map[string]int       // value name -> output slot on producer
	consumers    map[string][]NodeIndex

	outerScopeSet   map[string]bool
	outerScopeNames []string

	domainVersions map[string]int

	parentGraph *Graph
	parentNode  *Node

	overridableInitializers bool

	resolved bool
}

// Option configures a graph at construction time.
type Option func(*Graph)

// WithDescription sets the graph's description text.
func WithDescription(desc string) Option {
	return func(g *Graph) { g.description = desc }
}

// WithOverridableInitializers marks the graph's initializers as
// overridable: an initializer whose name is also a declared input is a
// default value the caller may replace, and therefore not constant.
func WithOverridableInitializers(v bool) Option {
	return func(g *Graph) { g.overridableInitializers = v }
}

// WithDomainVersion records the operator set version used for a domain.
// The empty domain is the default operator set.
func WithDomainVersion(domain string, version int) Option {
	return func(g *Graph) { g.domainVersions[domain] = version }
}

// New creates an empty graph with the given name.
func New(name string, opts ...Option) *Graph {
	g := &Graph{
		name:           name,
		args:           make(map[string]*NodeArg),
		initializers:   make(map[string]*TensorDesc),
		producer:       make(map[string]NodeIndex),
		producerPort:   make(map[string]int),
		consumers:      make(map[string][]NodeIndex),
		outerScopeSet:  make(map[string]bool),
		domainVersions: make(map[string]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewSubgraph creates an empty graph nested under a node of a parent
// graph, as the body of a control-flow operator. Values the subgraph
// reads without a local source resolve against the ancestor scopes
// during [Graph.Resolve].
func NewSubgraph(name string, parentNode *Node, opts ...Option) *Graph {
	g := New(name, opts...)
	g.parentNode = parentNode
	if parentNode != nil {
		g.parentGraph = parentNode.graph
	}
	return g
}

// NodeSpec describes a node for [Graph.AddNode]. Inputs, Outputs, and
// ImplicitInputs are value names; an empty string marks a skipped
// optional slot.
type NodeSpec struct {
	Name           string
	OpType         string
	Domain         string
	Inputs         []string
	Outputs        []string
	ImplicitInputs []string
	Attrs          map[string]Attr
	Priority       int
}

// AddNode appends a node to the graph and returns it. The node's index is
// the next free slot; indices are never reused. Output value names are
// claimed immediately, so two nodes cannot produce the same value.
func (g *Graph) AddNode(spec NodeSpec) (*Node, error) {
	if g.resolved {
		return nil, ErrResolved
	}
	if spec.OpType == "" {
		return nil, ErrEmptyOpType
	}
	for _, out := range spec.Outputs {
		if out == "" {
			continue
		}
		if _, taken := g.producer[out]; taken {
			return nil, fmt.Errorf("output %q: %w", out, ErrDuplicateProducer)
		}
	}

	n := &Node{
		index:    NodeIndex(len(g.nodes)),
		name:     spec.Name,
		opType:   spec.OpType,
		domain:   spec.Domain,
		priority: spec.Priority,
		attrs:    make(map[string]Attr, len(spec.Attrs)),
		graph:    g,
	}
	for k, v := range spec.Attrs {
		n.attrs[k] = v
	}
	for _, in := range spec.Inputs {
		n.inputs = append(n.inputs, g.internArg(in))
	}
	for _, in := range spec.ImplicitInputs {
		n.implicitInputs = append(n.implicitInputs, g.internArg(in))
	}
	for port, out := range spec.Outputs {
		arg := g.internArg(out)
		n.outputs = append(n.outputs, arg)
		if out != "" {
			g.producer[out] = n.index
			g.producerPort[out] = port
		}
	}

	g.nodes = append(g.nodes, n)
	g.numNodes++
	return n, nil
}

// RemoveNode removes a node before resolution, leaving an addressable
// hole: [Graph.Node] returns nil for the index and [Graph.MaxNodeIndex]
// is unchanged. The node's output values become producerless.
func (g *Graph) RemoveNode(index NodeIndex) error {
	if g.resolved {
		return ErrResolved
	}
	if index < 0 || int(index) >= len(g.nodes) || g.nodes[index] == nil {
		return ErrUnknownNode
	}
	for _, out := range g.nodes[index].outputs {
		if out.Exists() {
			delete(g.producer, out.name)
			delete(g.producerPort, out.name)
		}
	}
	g.nodes[index] = nil
	g.numNodes--
	return nil
}

// AddInitializer registers a constant tensor bound to a value name.
func (g *Graph) AddInitializer(td TensorDesc) error {
	if g.resolved {
		return ErrResolved
	}
	if td.Name == "" {
		return fmt.Errorf("initializer: %w", ErrUnresolvedValue)
	}
	if _, exists := g.initializers[td.Name]; exists {
		return fmt.Errorf("%q: %w", td.Name, ErrDuplicateInitializer)
	}
	copied := td
	g.initializers[td.Name] = &copied
	return nil
}

// SetInputs declares the graph's ordered input value names, including any
// inputs backed by overridable initializers.
func (g *Graph) SetInputs(names ...string) error {
	if g.resolved {
		return ErrResolved
	}
	g.declaredInputs = append([]string(nil), names...)
	return nil
}

// SetOutputs declares the graph's ordered output value names.
func (g *Graph) SetOutputs(names ...string) error {
	if g.resolved {
		return ErrResolved
	}
	g.declaredOutputs = append([]string(nil), names...)
	return nil
}

// AddValueInfo records type/shape metadata presence for an intermediate
// value name.
func (g *Graph) AddValueInfo(name string) error {
	if g.resolved {
		return ErrResolved
	}
	g.valueInfoNames = append(g.valueInfoNames, name)
	return nil
}

// SetArgType attaches element type and shape metadata to a value handle.
func (g *Graph) SetArgType(name, dtype string, dims []int64) {
	arg := g.internArg(name)
	arg.dtype = dtype
	arg.dims = append([]int64(nil), dims...)
}

func (g *Graph) internArg(name string) *NodeArg {
	if arg, ok := g.args[name]; ok {
		return arg
	}
	arg := &NodeArg{name: name}
	g.args[name] = arg
	return arg
}

// Resolve wires edges by matching producer outputs to consumer inputs,
// sorts all edge lists for deterministic iteration, resolves value reads
// against ancestor scopes, and freezes the graph. Resolve is idempotent:
// calling it on a resolved graph is a no-op.
//
// Every value read by a node must have a producer, be an initializer, be
// a declared graph input, or be resolvable in an ancestor scope;
// otherwise Resolve fails with [ErrUnresolvedValue]. Declared outputs
// must be produced, initializers, or declared inputs.
func (g *Graph) Resolve() error {
	if g.resolved {
		return nil
	}

	declaredInput := make(map[string]bool, len(g.declaredInputs))
	for _, name := range g.declaredInputs {
		declaredInput[name] = true
	}

	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		for port, arg := range n.inputs {
			if err := g.connect(n, arg, port, declaredInput); err != nil {
				return err
			}
		}
		for k, arg := range n.implicitInputs {
			if err := g.connect(n, arg, len(n.inputs)+k, declaredInput); err != nil {
				return err
			}
		}
	}

	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		sortEdgesBySrc(n.inputEdges)
		sortEdgesByDst(n.outputEdges)
	}

	for name, list := range g.consumers {
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		g.consumers[name] = dedupIndices(list)
	}

	for _, name := range g.declaredInputs {
		arg := g.internArg(name)
		g.inputsIncludingInitializers = append(g.inputsIncludingInitializers, arg)
		if _, isInit := g.initializers[name]; !isInit {
			g.inputs = append(g.inputs, arg)
		}
	}
	for _, name := range g.declaredOutputs {
		_, produced := g.producer[name]
		_, isInit := g.initializers[name]
		if !produced && !isInit && !declaredInput[name] {
			return fmt.Errorf("output %q: %w", name, ErrUnknownOutput)
		}
		g.outputs = append(g.outputs, g.internArg(name))
	}
	for _, name := range g.valueInfoNames {
		g.valueInfo = append(g.valueInfo, g.internArg(name))
	}

	g.outerScopeNames = make([]string, 0, len(g.outerScopeSet))
	for name := range g.outerScopeSet {
		g.outerScopeNames = append(g.outerScopeNames, name)
	}
	sort.Strings(g.outerScopeNames)

	g.resolved = true
	return nil
}

func (g *Graph) connect(n *Node, arg *NodeArg, dstPort int, declaredInput map[string]bool) error {
	if !arg.Exists() {
		return nil
	}
	if src, ok := g.producer[arg.name]; ok {
		e := Edge{Src: src, Dst: n.index, SrcPort: g.producerPort[arg.name], DstPort: dstPort}
		g.nodes[src].outputEdges = append(g.nodes[src].outputEdges, e)
		n.inputEdges = append(n.inputEdges, e)
		g.consumers[arg.name] = append(g.consumers[arg.name], n.index)
		g.numEdges++
		return nil
	}
	if _, ok := g.initializers[arg.name]; ok {
		g.consumers[arg.name] = append(g.consumers[arg.name], n.index)
		return nil
	}
	if declaredInput[arg.name] {
		g.consumers[arg.name] = append(g.consumers[arg.name], n.index)
		return nil
	}
	for anc := g.parentGraph; anc != nil; anc = anc.parentGraph {
		if anc.providesValue(arg.name) {
			g.outerScopeSet[arg.name] = true
			return nil
		}
	}
	return fmt.Errorf("value %q read by node %q: %w", arg.name, n.name, ErrUnresolvedValue)
}

// providesValue reports whether a value name has a source in this graph:
// a producing node, an initializer, or a declared input.
func (g *Graph) providesValue(name string) bool {
	if _, ok := g.producer[name]; ok {
		return true
	}
	if _, ok := g.initializers[name]; ok {
		return true
	}
	for _, in := range g.declaredInputs {
		if in == name {
			return true
		}
	}
	return false
}

func sortEdgesBySrc(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Src != edges[j].Src {
			return edges[i].Src < edges[j].Src
		}
		if edges[i].SrcPort != edges[j].SrcPort {
			return edges[i].SrcPort < edges[j].SrcPort
		}
		return edges[i].DstPort < edges[j].DstPort
	})
}

func sortEdgesByDst(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Dst != edges[j].Dst {
			return edges[i].Dst < edges[j].Dst
		}
		if edges[i].SrcPort != edges[j].SrcPort {
			return edges[i].SrcPort < edges[j].SrcPort
		}
		return edges[i].DstPort < edges[j].DstPort
	})
}

func dedupIndices(sorted []NodeIndex) []NodeIndex {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// Name returns the graph's name.
func (g *Graph) Name() string { return g.name }

// Description returns the graph's description text.
func (g *Graph) Description() string { return g.description }

// IsResolved reports whether [Graph.Resolve] has completed.
func (g *Graph) IsResolved() bool { return g.resolved }

// Node returns the node at the given index, or nil when the index is out
// of range or the slot was removed.
func (g *Graph) Node(index NodeIndex) *Node {
	if index < 0 || int(index) >= len(g.nodes) {
		return nil
	}
	return g.nodes[index]
}

// Nodes returns the live nodes in ascending index order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, g.numNodes)
	for _, n := range g.nodes {
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// NumNodes returns the number of live nodes.
func (g *Graph) NumNodes() int { return g.numNodes }

// NumEdges returns the number of edges. Zero until Resolve runs.
func (g *Graph) NumEdges() int { return g.numEdges }

// MaxNodeIndex returns one past the largest node index ever assigned.
// Valid indices are [0, MaxNodeIndex); some may refer to removed slots.
func (g *Graph) MaxNodeIndex() NodeIndex { return NodeIndex(len(g.nodes)) }

// Inputs returns the declared inputs that are not backed by initializers,
// in declaration order.
func (g *Graph) Inputs() []*NodeArg { return g.inputs }

// InputsIncludingInitializers returns all declared inputs in declaration
// order, including those backed by overridable initializers.
func (g *Graph) InputsIncludingInitializers() []*NodeArg { return g.inputsIncludingInitializers }

// Outputs returns the declared outputs in declaration order.
func (g *Graph) Outputs() []*NodeArg { return g.outputs }

// ValueInfo returns the value handles with recorded metadata.
func (g *Graph) ValueInfo() []*NodeArg { return g.valueInfo }

// Initializers returns the name to tensor descriptor map. The map must
// not be modified.
func (g *Graph) Initializers() map[string]*TensorDesc { return g.initializers }

// Initializer returns the initializer with the given name.
func (g *Graph) Initializer(name string) (*TensorDesc, bool) {
	td, ok := g.initializers[name]
	return td, ok
}

// IsInitializer reports whether the name is bound to an initializer.
func (g *Graph) IsInitializer(name string) bool {
	_, ok := g.initializers[name]
	return ok
}

// CanOverrideInitializer reports whether initializers double as default
// values for same-named declared inputs.
func (g *Graph) CanOverrideInitializer() bool { return g.overridableInitializers }

// IsConstantInitializer reports whether name is an initializer whose
// value cannot change at run time. When initializers are overridable, an
// initializer that is also a declared input is not constant. With
// checkOuterScope set, a subgraph consults its ancestors for names it
// does not bind locally.
func (g *Graph) IsConstantInitializer(name string, checkOuterScope bool) bool {
	_, ok := g.constantInitializer(name, checkOuterScope)
	return ok
}

// ConstantInitializer returns the constant initializer with the given
// name, applying the same rules as [Graph.IsConstantInitializer].
func (g *Graph) ConstantInitializer(name string, checkOuterScope bool) (*TensorDesc, bool) {
	return g.constantInitializer(name, checkOuterScope)
}

func (g *Graph) constantInitializer(name string, checkOuterScope bool) (*TensorDesc, bool) {
	if td, ok := g.initializers[name]; ok {
		if !g.overridableInitializers {
			return td, true
		}
		for _, in := range g.declaredInputs {
			if in == name {
				return nil, false
			}
		}
		return td, true
	}
	if checkOuterScope && g.parentGraph != nil && g.outerScopeSet[name] {
		return g.parentGraph.constantInitializer(name, true)
	}
	return nil, false
}

// NodeArg returns the interned value handle for a name, or nil when the
// name is unknown to this graph.
func (g *Graph) NodeArg(name string) *NodeArg {
	return g.args[name]
}

// ProducerNode returns the node producing the named value, or nil.
func (g *Graph) ProducerNode(name string) *Node {
	if idx, ok := g.producer[name]; ok {
		return g.Node(idx)
	}
	return nil
}

// ConsumerNodes returns the nodes reading the named value, in ascending
// index order. Populated by Resolve.
func (g *Graph) ConsumerNodes(name string) []*Node {
	indices := g.consumers[name]
	nodes := make([]*Node, 0, len(indices))
	for _, idx := range indices {
		if n := g.Node(idx); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// IsSubgraph reports whether this graph is nested under a parent node.
func (g *Graph) IsSubgraph() bool { return g.parentGraph != nil }

// ParentGraph returns the enclosing graph, or nil at the top level.
func (g *Graph) ParentGraph() *Graph { return g.parentGraph }

// ParentNode returns the node this graph is attached to, or nil.
func (g *Graph) ParentNode() *Node { return g.parentNode }

// OuterScopeNames returns the sorted value names this graph reads from
// ancestor scopes. Populated by Resolve.
func (g *Graph) OuterScopeNames() []string { return g.outerScopeNames }

// DomainToVersionMap returns the operator set version per domain. The map
// must not be modified.
func (g *Graph) DomainToVersionMap() map[string]int { return g.domainVersions }
