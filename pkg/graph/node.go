package graph

// Operator types with scheduling significance. Shape and Size read only
// structural metadata of their input tensor; YieldOp is the synchronization
// point between the forward and backward halves of a training graph.
const (
	OpTypeShape = "Shape"
	OpTypeSize  = "Size"
	OpTypeYield = "YieldOp"
)

// Attribute names recognized by the scheduler.
const (
	// AttrBackwardPass marks a node as belonging to the backward pass of a
	// training graph. The value is an integer; a low bit of 0 (or an absent
	// attribute) means the node runs in the forward pass.
	AttrBackwardPass = "__backwardpass"

	// AttrRecomputeCriticalPathImpact carries the estimated critical-path
	// cost of a recompute node. Larger values are scheduled earlier among
	// nodes of equal priority.
	AttrRecomputeCriticalPathImpact = "__recompute_critical_path_impact"
)

// Execution priorities. Lower values schedule earlier; PriorityDefault is
// the minimum. The scale is open-ended: callers may use any integer, these
// constants are the conventional tiers.
const (
	PriorityDefault   = 0
	PriorityLocalLow  = 10
	PriorityGlobalLow = 100
)

// NodeIndex identifies a node within its graph. Indices are assigned
// sequentially by [Graph.AddNode] and stay stable for the life of the
// graph; removing a node leaves a hole rather than renumbering.
type NodeIndex int

// NodeArg is the identity of a typed, named value flowing on an edge.
// Value handles are interned by the owning graph: two references to the
// same value name within one graph share one *NodeArg, so equality is
// pointer identity, not name comparison.
//
// An empty name denotes a skipped optional slot in a node's input or
// output list; such handles report Exists() == false and never carry
// edges.
type NodeArg struct {
	name  string
	dtype string
	dims  []int64
}

// Name returns the value's name. Empty for a skipped optional slot.
func (a *NodeArg) Name() string { return a.name }

// Type returns the element type name (e.g. "float32"), or "" if unknown.
func (a *NodeArg) Type() string { return a.dtype }

// Dims returns the declared shape, or nil if unknown. The returned slice
// must not be modified.
func (a *NodeArg) Dims() []int64 { return a.dims }

// Exists reports whether the handle names a real value. Optional node
// inputs and outputs that were left unset do not exist.
func (a *NodeArg) Exists() bool { return a.name != "" }

// Edge is a directed value dependency between two nodes: Src produces the
// value on its SrcPort output slot, Dst consumes it on its DstPort input
// slot. Implicit inputs occupy ports after the explicit inputs.
type Edge struct {
	Src     NodeIndex
	Dst     NodeIndex
	SrcPort int
	DstPort int
}

// AttrKind discriminates the value held by an [Attr].
type AttrKind int

const (
	// AttrKindInt holds a single integer.
	AttrKindInt AttrKind = iota + 1
	// AttrKindFloat holds a single float.
	AttrKindFloat
	// AttrKindString holds a string.
	AttrKindString
	// AttrKindInts holds an integer list.
	AttrKindInts
)

// Attr is a typed attribute value attached to a node. Use the IntAttr,
// FloatAttr, StringAttr, and IntsAttr constructors; the zero Attr has
// kind 0 and is treated as absent.
type Attr struct {
	Kind  AttrKind
	Int   int64
	Float float64
	Str   string
	Ints  []int64
}

// IntAttr returns an integer attribute value.
func IntAttr(v int64) Attr { return Attr{Kind: AttrKindInt, Int: v} }

// FloatAttr returns a float attribute value.
func FloatAttr(v float64) Attr { return Attr{Kind: AttrKindFloat, Float: v} }

// StringAttr returns a string attribute value.
func StringAttr(v string) Attr { return Attr{Kind: AttrKindString, Str: v} }

// IntsAttr returns an integer-list attribute value.
func IntsAttr(v ...int64) Attr { return Attr{Kind: AttrKindInts, Ints: v} }

// Node is an operator invocation in a dataflow graph. Nodes are created
// through [Graph.AddNode] and become fully connected (edges populated)
// once [Graph.Resolve] runs. All methods are read-only and safe for
// concurrent use after Resolve.
type Node struct {
	index    NodeIndex
	name     string
	opType   string
	domain   string
	priority int

	inputs         []*NodeArg
	outputs        []*NodeArg
	implicitInputs []*NodeArg

	attrs map[string]Attr

	// Populated by Resolve, sorted by (neighbor index, src port, dst port)
	// for deterministic iteration.
	inputEdges  []Edge
	outputEdges []Edge

	graph *Graph
}

// Index returns the node's stable index within its graph.
func (n *Node) Index() NodeIndex { return n.index }

// Name returns the node's display name. May be empty.
func (n *Node) Name() string { return n.name }

// OpType returns the operator type string.
func (n *Node) OpType() string { return n.opType }

// Domain returns the operator set domain. Empty means the default domain.
func (n *Node) Domain() string { return n.domain }

// Priority returns the node's execution priority. Lower schedules earlier.
func (n *Node) Priority() int { return n.priority }

// Inputs returns the ordered explicit input value handles. Slots left
// unset are present as non-existent handles. The slice must not be
// modified.
func (n *Node) Inputs() []*NodeArg { return n.inputs }

// Outputs returns the ordered output value handles. The slice must not be
// modified.
func (n *Node) Outputs() []*NodeArg { return n.outputs }

// ImplicitInputs returns values the node reads without a declared input
// slot, such as outer-scope captures of a subgraph-carrying operator.
func (n *Node) ImplicitInputs() []*NodeArg { return n.implicitInputs }

// Attrs returns the node's attributes. The map must not be modified.
func (n *Node) Attrs() map[string]Attr { return n.attrs }

// Attr returns the attribute with the given name.
func (n *Node) Attr(name string) (Attr, bool) {
	a, ok := n.attrs[name]
	return a, ok
}

// AttrInt returns the integer attribute with the given name. It reports
// false when the attribute is absent or not an integer.
func (n *Node) AttrInt(name string) (int64, bool) {
	a, ok := n.attrs[name]
	if !ok || a.Kind != AttrKindInt {
		return 0, false
	}
	return a.Int, true
}

// InputEdges returns the incoming edges sorted by (source index, source
// port, dest port). Empty until the graph is resolved. The slice must not
// be modified.
func (n *Node) InputEdges() []Edge { return n.inputEdges }

// OutputEdges returns the outgoing edges sorted by (dest index, source
// port, dest port). Empty until the graph is resolved. The slice must not
// be modified.
func (n *Node) OutputEdges() []Edge { return n.outputEdges }

// InputNodes returns the distinct producer nodes feeding this node, in
// ascending index order.
func (n *Node) InputNodes() []*Node {
	var prev NodeIndex = -1
	var nodes []*Node
	for _, e := range n.inputEdges {
		if e.Src == prev {
			continue
		}
		prev = e.Src
		nodes = append(nodes, n.graph.Node(e.Src))
	}
	return nodes
}

// OutputNodes returns the distinct consumer nodes fed by this node, in
// ascending index order.
func (n *Node) OutputNodes() []*Node {
	var prev NodeIndex = -1
	var nodes []*Node
	for _, e := range n.outputEdges {
		if e.Dst == prev {
			continue
		}
		prev = e.Dst
		nodes = append(nodes, n.graph.Node(e.Dst))
	}
	return nodes
}

// InputArgs returns the node's readable values: explicit inputs followed
// by implicit inputs, skipping non-existent slots.
func (n *Node) InputArgs() []*NodeArg {
	args := make([]*NodeArg, 0, len(n.inputs)+len(n.implicitInputs))
	for _, a := range n.inputs {
		if a.Exists() {
			args = append(args, a)
		}
	}
	for _, a := range n.implicitInputs {
		if a.Exists() {
			args = append(args, a)
		}
	}
	return args
}

// InputAt returns the value handle at an input port in the combined
// numbering used by [Edge.DstPort]: port p maps to Inputs()[p] for
// p < len(Inputs()) and to ImplicitInputs()[p-len(Inputs())] otherwise.
func (n *Node) InputAt(port int) *NodeArg {
	if port < len(n.inputs) {
		return n.inputs[port]
	}
	return n.implicitInputs[port-len(n.inputs)]
}

// TensorDesc describes an initializer tensor: a named constant bound to a
// value handle at graph construction time.
type TensorDesc struct {
	Name     string  `json:"name"`
	DataType string  `json:"data_type,omitempty"`
	Dims     []int64 `json:"dims,omitempty"`
}
