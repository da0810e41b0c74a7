// Package nodelink renders dataflow graph views as node-link diagrams.
//
// # Overview
//
// This package produces directed graph visualizations using Graphviz:
// operators appear as boxes connected by dependency arrows, and when an
// execution order is supplied each box carries its emission position, so
// the schedule can be read directly off the diagram.
//
// # Usage
//
// Convert a view to DOT format, then render to SVG:
//
//	order, _ := v.NodesInTopologicalOrder(view.OrderPriority)
//	dot := nodelink.ToDOT(v, order, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(dot)
//
// # Styling
//
// Scheduling-relevant structure is visible at a glance: yield nodes render
// as double octagons, shape-introspection nodes (Shape, Size) are dashed,
// backward-pass nodes are tinted, and producers of graph outputs get a
// heavier outline.
//
// # DOT Format
//
// The [ToDOT] function produces Graphviz DOT source that can be:
//
//   - Rendered directly via [RenderSVG]
//   - Saved and processed with external Graphviz tools
//   - Customized before rendering
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering (a WebAssembly build of Graphviz, no cgo or system install).
package nodelink
