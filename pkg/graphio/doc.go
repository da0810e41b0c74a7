// Package graphio provides JSON and TOML codecs for dataflow graph
// documents.
//
// # Overview
//
// A graph document is the interchange form of a [graph.Graph]: the declared
// surface (inputs, outputs, initializers) plus the node list. The format is
// designed for:
//
//   - Hand-written fixtures and exported model graphs alike
//   - Feeding the order/inspect/render commands and the serving API
//   - Round-trip preservation: import, schedule, export, re-import identically
//
// # JSON Format
//
// The document is a single object; "nodes" is the only required field:
//
//	{
//	  "name": "training_step",
//	  "inputs": ["x", "w"],
//	  "outputs": ["loss"],
//	  "initializers": [{"name": "w", "data_type": "float32", "dims": [4, 4]}],
//	  "nodes": [
//	    {"name": "mm", "op": "MatMul", "inputs": ["x", "w"], "outputs": ["h"]},
//	    {"name": "sm", "op": "SoftmaxCrossEntropy", "inputs": ["h"], "outputs": ["loss"]}
//	  ]
//	}
//
// # Node Fields
//
// Required:
//   - op: operator type string
//
// Optional:
//   - name: display name
//   - domain: operator set domain
//   - inputs/outputs: ordered value names ("" skips an optional slot)
//   - implicit_inputs: values read without a declared slot
//   - priority: execution priority (lower schedules earlier)
//   - attrs: attribute object; values may be integers, floats, strings,
//     or integer arrays
//
// Scheduling honors two attribute names: "__backwardpass" marks backward
// nodes of a training graph, and "__recompute_critical_path_impact" carries
// recompute cost estimates. Both are plain integer attributes here.
//
// # TOML Format
//
// The TOML form carries the same fields with [[initializers]] and [[nodes]]
// array tables; [nodes.attrs] holds the attribute table. [Import] and
// [Export] pick the codec from the file extension.
//
// # Import
//
// [ReadJSON] and [ReadTOML] decode from an io.Reader; [Import] reads a file
// path. The returned graph is built but not resolved: call
// [graph.Graph.Resolve] before constructing a view, which is also where
// dangling value references surface.
//
// # Export
//
// [WriteJSON] and [WriteTOML] encode a resolved graph; [Export] writes a
// file path. Output is deterministic (attribute and initializer keys are
// sorted), so exported bytes are stable cache-key material.
package graphio
