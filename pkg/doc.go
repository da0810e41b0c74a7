// Package pkg provides the core libraries for opsched graph scheduling.
//
// # Overview
//
// Opsched computes deterministic execution orders for ML dataflow graphs:
// operator nodes connected by value edges, the shape ONNX-style runtimes
// schedule. The pkg directory is organized into four main areas:
//
//  1. [graph] - Graph structure (nodes, values, edges, resolution)
//  2. [graph/view] - Read-only views and execution order computation
//  3. [graphio] / [render/nodelink] - Serialization and visualization
//  4. [pipeline] - Orchestration (load → build → order → render)
//
// # Architecture
//
// The typical data flow through opsched:
//
//	Graph Document (JSON/TOML)
//	         ↓
//	    [graphio] package (decode + validate)
//	         ↓
//	    [graph] package (mutable construction, Resolve wires edges)
//	         ↓
//	    [graph/view] package (read-only view, default/priority orders)
//	         ↓
//	    [render/nodelink] package (DOT/SVG diagrams)
//
// # Quick Start
//
// Load a graph and compute its priority execution order:
//
//	import (
//	    "github.com/tensorlab/opsched/pkg/graphio"
//	    "github.com/tensorlab/opsched/pkg/graph/view"
//	)
//
//	// 1. Import and resolve the graph
//	g, _ := graphio.Import("model.json")
//	_ = g.Resolve()
//
//	// 2. Build a read-only view
//	v, _ := view.New(g)
//
//	// 3. Compute an execution order
//	order, _ := v.NodesInTopologicalOrder(view.OrderPriority)
//
// # Main Packages
//
// ## Core Domain Logic
//
// [graph] - Mutable graph construction. Nodes carry op types, priorities,
// and attributes; values connect producers to consumers. [graph.Graph.Resolve]
// freezes the graph and wires the edge lists the scheduler traverses.
//
// [graph/view] - Read-only scheduling views over resolved graphs. A view
// validates acyclicity up front and computes the default (reverse DFS) and
// priority (comparator-driven Kahn) execution orders. Filtered views expose
// an indexed subset of nodes for sub-model scheduling.
//
// ## Serialization and Visualization
//
// [graphio] - Graph document codecs (JSON and TOML import/export).
//
// [render/nodelink] - Node-link diagrams via Graphviz: DOT generation plus
// in-process SVG rendering, with execution positions on the node labels.
//
// ## Infrastructure
//
// [pipeline] - Complete scheduling pipeline (load → build → order → render)
// used by the CLI and the API server. Ensures consistent behavior across
// entry points, with content-addressed caching between stages.
//
// [cache] - Pipeline result cache with file, Redis, and null backends.
//
// [store] - Graph document storage for the API server, with in-memory and
// MongoDB backends and TTL-based expiry.
//
// [errors] - Coded errors shared across the CLI and server, mapping
// failures to stable machine-readable codes and user-facing messages.
//
// [observability] - Hook points the pipeline and server fire around
// operations; tests and embedders attach listeners.
//
// [buildinfo] - Version metadata injected at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                # All tests
//	go test ./pkg/graph/view/...     # Specific package
//	go test -run Example             # Examples only
//
// [graph]: https://pkg.go.dev/github.com/tensorlab/opsched/pkg/graph
// [graph/view]: https://pkg.go.dev/github.com/tensorlab/opsched/pkg/graph/view
// [graphio]: https://pkg.go.dev/github.com/tensorlab/opsched/pkg/graphio
// [render/nodelink]: https://pkg.go.dev/github.com/tensorlab/opsched/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/tensorlab/opsched/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/tensorlab/opsched/pkg/cache
// [store]: https://pkg.go.dev/github.com/tensorlab/opsched/pkg/store
// [errors]: https://pkg.go.dev/github.com/tensorlab/opsched/pkg/errors
// [observability]: https://pkg.go.dev/github.com/tensorlab/opsched/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/tensorlab/opsched/pkg/buildinfo
package pkg
