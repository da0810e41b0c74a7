package view

import (
	apperrors "github.com/tensorlab/opsched/pkg/errors"
	"github.com/tensorlab/opsched/pkg/graph"
)

// MetaDef describes the boundary of a filtered view: the sub-model's name
// and its ordered input and output value names. The names must resolve to
// values of the underlying graph.
type MetaDef struct {
	Name        string
	Description string
	Inputs      []string
	Outputs     []string
}

// IndexedSubGraph selects a subset of a graph's nodes by index, together
// with the metadata describing the subset's boundary. The node list is
// treated as a set; duplicates are tolerated.
type IndexedSubGraph struct {
	Nodes   []graph.NodeIndex
	MetaDef MetaDef
}

// filterInfo is the validated, resolved form of an IndexedSubGraph: O(1)
// membership plus the boundary values and initializers visible through
// the filter.
type filterInfo struct {
	meta    MetaDef
	nodeSet map[graph.NodeIndex]bool

	// inputs excludes names backed by an initializer;
	// inputsIncludingInit is the full metadata list.
	inputs              []*graph.NodeArg
	inputsIncludingInit []*graph.NodeArg
	outputs             []*graph.NodeArg

	// initializers referenced by the filtered nodes' explicit and
	// implicit inputs.
	initializers map[string]*graph.TensorDesc
}

// newFilterInfo validates the descriptor against the graph and resolves
// its metadata. Every index must address a live node and every metadata
// name must resolve to a known value.
func newFilterInfo(g *graph.Graph, f *IndexedSubGraph) (*filterInfo, error) {
	info := &filterInfo{
		meta:         f.MetaDef,
		nodeSet:      make(map[graph.NodeIndex]bool, len(f.Nodes)),
		initializers: make(map[string]*graph.TensorDesc),
	}

	for _, idx := range f.Nodes {
		if idx < 0 || idx >= g.MaxNodeIndex() || g.Node(idx) == nil {
			return nil, apperrors.New(apperrors.ErrCodeInvariantViolation,
				"filter references node index %d, which is not a node of graph %q", idx, g.Name())
		}
		info.nodeSet[idx] = true
	}

	var err error
	if info.inputsIncludingInit, err = resolveFilterArgs(g, f.MetaDef.Inputs, "input"); err != nil {
		return nil, err
	}
	if info.outputs, err = resolveFilterArgs(g, f.MetaDef.Outputs, "output"); err != nil {
		return nil, err
	}
	for _, arg := range info.inputsIncludingInit {
		if !g.IsInitializer(arg.Name()) {
			info.inputs = append(info.inputs, arg)
		}
	}

	for _, idx := range f.Nodes {
		for _, arg := range g.Node(idx).InputArgs() {
			if td, ok := g.Initializer(arg.Name()); ok {
				info.initializers[arg.Name()] = td
			}
		}
	}
	return info, nil
}

func resolveFilterArgs(g *graph.Graph, names []string, kind string) ([]*graph.NodeArg, error) {
	args := make([]*graph.NodeArg, 0, len(names))
	for _, name := range names {
		arg := g.NodeArg(name)
		if arg == nil {
			return nil, apperrors.New(apperrors.ErrCodeInvariantViolation,
				"filter %s %q does not name a value of graph %q", kind, name, g.Name())
		}
		args = append(args, arg)
	}
	return args, nil
}

// filterOrder keeps only the filter's members, preserving their relative
// order from the full ordering.
func (fi *filterInfo) filterOrder(order []graph.NodeIndex) []graph.NodeIndex {
	out := make([]graph.NodeIndex, 0, len(fi.nodeSet))
	for _, idx := range order {
		if fi.nodeSet[idx] {
			out = append(out, idx)
		}
	}
	return out
}
