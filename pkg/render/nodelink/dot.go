package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/tensorlab/opsched/pkg/graph"
	"github.com/tensorlab/opsched/pkg/graph/view"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes op type, priority, and node index in labels.
	// When false, only the display name and emission position are shown.
	Detailed bool
}

// ToDOT converts a view to Graphviz DOT format. When order is non-empty,
// each node's label is prefixed with its emission position. The resulting
// DOT string can be rendered with [RenderSVG].
//
// Under a filtered view, edges whose other end falls outside the filter
// are omitted; the diagram shows exactly the filtered subgraph.
func ToDOT(v *view.View, order []graph.NodeIndex, opts Options) string {
	position := make(map[graph.NodeIndex]int, len(order))
	for i, idx := range order {
		position[idx] = i
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range v.Nodes() {
		label := fmtLabel(n, position, opts.Detailed)
		attrs := fmtAttrs(v, n, label)
		fmt.Fprintf(&buf, "  n%d [%s];\n", n.Index(), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, n := range v.Nodes() {
		for _, consumer := range n.OutputNodes() {
			if v.Node(consumer.Index()) == nil {
				continue
			}
			fmt.Fprintf(&buf, "  n%d -> n%d;\n", n.Index(), consumer.Index())
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *graph.Node, position map[graph.NodeIndex]int, detailed bool) string {
	name := displayName(n)
	if pos, ok := position[n.Index()]; ok {
		name = fmt.Sprintf("%d: %s", pos, name)
	}
	if !detailed {
		return name
	}

	parts := []string{"op: " + n.OpType()}
	if n.Domain() != "" {
		parts = append(parts, "domain: "+n.Domain())
	}
	parts = append(parts,
		fmt.Sprintf("priority: %d", n.Priority()),
		fmt.Sprintf("index: %d", n.Index()),
	)
	return name + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(v *view.View, n *graph.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.OpType() == graph.OpTypeYield:
		attrs = append(attrs, "shape=doubleoctagon", "fillcolor=lightyellow")
	case n.OpType() == graph.OpTypeShape || n.OpType() == graph.OpTypeSize:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	case isBackward(n):
		attrs = append(attrs, "fillcolor=lightblue")
	}
	if v.NodeProducesGraphOutput(n) {
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

// displayName falls back to op type plus index for unnamed nodes.
func displayName(n *graph.Node) string {
	if n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("%s#%d", n.OpType(), n.Index())
}

func isBackward(n *graph.Node) bool {
	pass, ok := n.AttrInt(graph.AttrBackwardPass)
	return ok && pass%2 == 1
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or embedding.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the <svg> tag so the viewBox starts at the
// origin and explicit pixel dimensions are present; browsers scale the
// result predictably when it is embedded.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
