package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tensorlab/opsched/pkg/graph"
	"github.com/tensorlab/opsched/pkg/graph/view"
	"github.com/tensorlab/opsched/pkg/pipeline"
)

// orderOpts collects the order command's flags.
type orderOpts struct {
	kinds      []string
	training   bool
	minimal    bool
	filterSpec string
	filterName string
	filterIns  []string
	filterOuts []string
	output     string
	asJSON     bool
	noCache    bool
	refresh    bool
}

func (c *CLI) orderCommand() *cobra.Command {
	opts := &orderOpts{}

	cmd := &cobra.Command{
		Use:   "order <graph.{json,toml}>",
		Short: "Compute execution orders for a graph",
		Long: `Order loads a graph document, builds a read-only view, and prints the
nodes in execution order. The default order is a deterministic reverse
DFS from the graph outputs; the priority order additionally honors node
priorities and, in training mode, schedules the forward pass before the
backward pass.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOrder(cmd.Context(), args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.kinds, "kind", "k", nil, `order kind: "default", "priority", or "both"`)
	flags.BoolVar(&opts.training, "training", false, "treat the graph as a training graph")
	flags.BoolVar(&opts.minimal, "minimal", false, "build a minimal view (default order only)")
	flags.StringVar(&opts.filterSpec, "filter", "", `restrict to a node subset, e.g. "nodes=0,2,5"`)
	flags.StringVar(&opts.filterName, "filter-name", "", "name for the filtered sub-model")
	flags.StringSliceVar(&opts.filterIns, "filter-inputs", nil, "input value names for the filter boundary")
	flags.StringSliceVar(&opts.filterOuts, "filter-outputs", nil, "output value names for the filter boundary")
	flags.StringVarP(&opts.output, "output", "o", "", "write results to a file instead of stdout")
	flags.BoolVar(&opts.asJSON, "json", false, "emit JSON instead of a text table")
	flags.BoolVar(&opts.noCache, "no-cache", false, "bypass the result cache")
	flags.BoolVar(&opts.refresh, "refresh", false, "recompute even when a cached result exists")

	return cmd
}

func (c *CLI) runOrder(ctx context.Context, input string, opts *orderOpts) error {
	kindValues := opts.kinds
	if len(kindValues) == 0 {
		kindValues = []string{c.Config.Order.Kind}
	}
	kinds, err := parseKinds(kindValues)
	if err != nil {
		return err
	}

	filter, err := parseFilter(opts.filterSpec, opts.filterName, opts.filterIns, opts.filterOuts)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := pipeline.Options{
		Path:     input,
		Training: opts.training || c.Config.Order.Training,
		Minimal:  opts.minimal,
		Filter:   filter,
		Kinds:    kinds,
		Refresh:  opts.refresh,
		Logger:   c.Logger,
	}

	sp := c.spin(ctx, "Computing execution order")
	result, err := runner.Execute(ctx, popts)
	sp.Stop()
	if err != nil {
		return err
	}

	if popts.Training && !hasYieldNode(result.View) {
		printWarning("training order requested but the graph has no yield node")
	}

	if opts.asJSON {
		return writeOrderJSON(result, kinds, popts.Training, opts.output)
	}

	var out strings.Builder
	for i, kind := range kinds {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(formatOrderText(result.View, kind, result.Orders[kind]))
	}
	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(out.String()), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.output, err)
		}
		printSuccess("Wrote %d order(s)", len(kinds))
		printFile(opts.output)
	} else {
		fmt.Print(out.String())
	}

	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.OrderHit)
	printNextStep("Render it", fmt.Sprintf("%s render %s -o graph.svg", appName, input))
	return nil
}

// orderDocument is the --json output shape.
type orderDocument struct {
	Graph     string                  `json:"graph"`
	GraphHash string                  `json:"graph_hash"`
	Training  bool                    `json:"training"`
	Orders    map[string][]orderEntry `json:"orders"`
}

type orderEntry struct {
	Index    int    `json:"index"`
	Op       string `json:"op"`
	Name     string `json:"name,omitempty"`
	Priority int    `json:"priority"`
}

func writeOrderJSON(result *pipeline.Result, kinds []string, training bool, output string) error {
	doc := orderDocument{
		Graph:     result.View.Name(),
		GraphHash: result.GraphHash,
		Training:  training,
		Orders:    make(map[string][]orderEntry, len(kinds)),
	}
	for _, kind := range kinds {
		nodes := result.Orders[kind]
		entries := make([]orderEntry, len(nodes))
		for i, idx := range nodes {
			n := result.View.Node(idx)
			entries[i] = orderEntry{
				Index:    int(idx),
				Op:       n.OpType(),
				Name:     n.Name(),
				Priority: n.Priority(),
			}
		}
		doc.Orders[kind] = entries
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printSuccess("Wrote %d order(s)", len(kinds))
	printFile(output)
	return nil
}

// formatOrderText renders one execution order as a plain text table.
func formatOrderText(v *view.View, kind string, nodes []graph.NodeIndex) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s order (%d nodes)\n", kind, len(nodes))
	for i, idx := range nodes {
		n := v.Node(idx)
		name := n.Name()
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(&b, "%4d  #%-4d %-16s p=%-3d %s\n", i, int(idx), n.OpType(), n.Priority(), name)
	}
	return b.String()
}

// parseFilter builds an indexed sub-graph from the --filter flags. An
// empty spec with no boundary names means no filter.
func parseFilter(spec, name string, inputs, outputs []string) (*view.IndexedSubGraph, error) {
	if spec == "" {
		if name != "" || len(inputs) > 0 || len(outputs) > 0 {
			return nil, fmt.Errorf("--filter-name/--filter-inputs/--filter-outputs require --filter")
		}
		return nil, nil
	}

	value, ok := strings.CutPrefix(spec, "nodes=")
	if !ok {
		return nil, fmt.Errorf(`invalid filter %q, expected "nodes=i,j,..."`, spec)
	}
	var indices []graph.NodeIndex
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("invalid node index %q in filter", part)
		}
		indices = append(indices, graph.NodeIndex(i))
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("filter %q selects no nodes", spec)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	return &view.IndexedSubGraph{
		Nodes: indices,
		MetaDef: view.MetaDef{
			Name:    name,
			Inputs:  inputs,
			Outputs: outputs,
		},
	}, nil
}

// hasYieldNode reports whether any node in the view is a yield op.
func hasYieldNode(v *view.View) bool {
	if v == nil {
		return false
	}
	for _, n := range v.Nodes() {
		if n.OpType() == graph.OpTypeYield {
			return true
		}
	}
	return false
}
