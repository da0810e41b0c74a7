package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tensorlab/opsched/pkg/graph"
	"github.com/tensorlab/opsched/pkg/graph/view"
	"github.com/tensorlab/opsched/pkg/pipeline"
)

func (c *CLI) inspectCommand() *cobra.Command {
	var (
		training    bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <graph.{json,toml}>",
		Short: "Summarize a graph document",
		Long: `Inspect loads a graph document and prints its declared surface: node and
edge counts, inputs, outputs, initializers, roots and leaves, and whether
the graph contains a yield node. With --interactive, inspect opens a
browser for stepping through the execution orders.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], training, interactive)
		},
	}

	cmd.Flags().BoolVar(&training, "training", false, "treat the graph as a training graph")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse execution orders interactively")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input string, training, interactive bool) error {
	runner, err := c.newRunner(ctx, false)
	if err != nil {
		return err
	}
	defer runner.Close()

	p := newProgress(c.Logger)
	opts := pipeline.Options{Path: input, Training: training, Logger: c.Logger}
	g, err := runner.Load(ctx, opts)
	if err != nil {
		return err
	}
	v, err := runner.Build(ctx, g, opts)
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Loaded %s", input))

	printGraphSummary(v, g)

	if !interactive {
		return nil
	}

	orders := make(map[string][]graph.NodeIndex)
	orderErrs := make(map[string]error)
	for _, kind := range []string{pipeline.KindDefault, pipeline.KindPriority} {
		nodes, err := runner.Order(ctx, v, kind, opts)
		if err != nil {
			orderErrs[kind] = err
			continue
		}
		orders[kind] = nodes
	}

	model := newOrderBrowser(v, orders, orderErrs)
	_, err = tea.NewProgram(model).Run()
	return err
}

func printGraphSummary(v *view.View, g *graph.Graph) {
	name := v.Name()
	if name == "" {
		name = "(unnamed graph)"
	}
	fmt.Println(StyleTitle.Render(name))
	if v.Description() != "" {
		printDetail("%s", v.Description())
	}
	printNewline()

	printKeyValue("Nodes", strconv.Itoa(v.NumNodes()))
	printKeyValue("Edges", strconv.Itoa(g.NumEdges()))
	printKeyValue("Inputs", joinArgNames(v.Inputs()))
	printKeyValue("Outputs", joinArgNames(v.Outputs()))
	printKeyValue("Initializers", joinInitializerNames(v.Initializers()))
	printKeyValue("Roots", joinNodeRefs(v, rootIndexes(v)))
	printKeyValue("Leaves", joinNodeRefs(v, leafIndexes(v)))

	yield := "no"
	if hasYieldNode(v) {
		yield = "yes"
	}
	printKeyValue("Yield node", yield)
}

func joinArgNames(args []*graph.NodeArg) string {
	if len(args) == 0 {
		return "-"
	}
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.Name()
	}
	return strings.Join(names, ", ")
}

func joinInitializerNames(inits map[string]*graph.TensorDesc) string {
	if len(inits) == 0 {
		return "-"
	}
	names := make([]string, 0, len(inits))
	for name := range inits {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// joinNodeRefs formats node indices as "index (op)" pairs.
func joinNodeRefs(v *view.View, indices []graph.NodeIndex) string {
	if len(indices) == 0 {
		return "-"
	}
	refs := make([]string, len(indices))
	for i, idx := range indices {
		refs[i] = fmt.Sprintf("%d (%s)", int(idx), v.Node(idx).OpType())
	}
	return strings.Join(refs, ", ")
}

// rootIndexes returns the nodes with no input edges. A filtered view has
// no root list; inspect shows a dash instead.
func rootIndexes(v *view.View) []graph.NodeIndex {
	roots, err := v.RootNodes()
	if err != nil {
		return nil
	}
	return roots
}

// leafIndexes returns the nodes whose outputs feed no other node.
func leafIndexes(v *view.View) []graph.NodeIndex {
	var leaves []graph.NodeIndex
	for _, n := range v.Nodes() {
		if len(n.OutputEdges()) == 0 {
			leaves = append(leaves, n.Index())
		}
	}
	return leaves
}
