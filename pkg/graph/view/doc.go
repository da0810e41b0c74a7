// Package view provides read-only, priority-aware views over resolved
// dataflow graphs. A [View] is constructed once from a [graph.Graph],
// caches one or two linear execution orders, and then answers ordering,
// membership, and lookup queries without touching the graph again.
//
// # Orderings
//
// Every view carries the default topological order: a reverse depth-first
// traversal from the graph's leaves, tie-broken by node index, with
// shape-introspection operators (Shape, Size) relocated directly after
// their producers when training mode is on. Unless the view is built with
// [WithMinimalBuild], it also carries the priority-based order, which
// additionally honors each node's priority class and, in training mode,
// splits the graph around the YieldOp synchronization node: the forward
// pass is emitted first, then the remainder is emitted by priority-queue
// iteration that expands recompute clusters as a unit whenever one of
// their outputs is demanded.
//
// # Filtering
//
// Supplying [WithFilter] restricts the view to a subset of node indices.
// Both orderings keep only the filtered nodes (preserving relative
// order), the input/output surface is replaced by the filter's metadata,
// and the initializer map shrinks to the initializers the filtered nodes
// actually reference.
//
// # Concurrency
//
// Construction must complete on a single goroutine; afterwards a View is
// immutable and any number of goroutines may query it concurrently. The
// view borrows the graph, so the graph must stay alive and unmodified
// for as long as the view is in use.
package view
