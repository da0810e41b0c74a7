package graphio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tensorlab/opsched/pkg/graph"
)

var (
	// ErrUnknownFormat reports a file extension no codec is registered for.
	ErrUnknownFormat = errors.New("unknown graph file format")

	// ErrUnsupportedAttr reports an attribute value that cannot be
	// represented: supported values are integers, floats, strings, and
	// integer arrays.
	ErrUnsupportedAttr = errors.New("unsupported attribute value")
)

type document struct {
	Name         string         `json:"name,omitempty" toml:"name,omitempty"`
	Description  string         `json:"description,omitempty" toml:"description,omitempty"`
	Inputs       []string       `json:"inputs,omitempty" toml:"inputs,omitempty"`
	Outputs      []string       `json:"outputs,omitempty" toml:"outputs,omitempty"`
	ValueInfo    []string       `json:"value_info,omitempty" toml:"value_info,omitempty"`
	Overridable  bool           `json:"overridable_initializers,omitempty" toml:"overridable_initializers,omitempty"`
	Domains      map[string]int `json:"domains,omitempty" toml:"domains,omitempty"`
	Initializers []tensor       `json:"initializers,omitempty" toml:"initializers,omitempty"`
	Nodes        []nodeDoc      `json:"nodes" toml:"nodes"`
}

type tensor struct {
	Name     string  `json:"name" toml:"name"`
	DataType string  `json:"data_type,omitempty" toml:"data_type,omitempty"`
	Dims     []int64 `json:"dims,omitempty" toml:"dims,omitempty"`
}

type nodeDoc struct {
	Name           string         `json:"name,omitempty" toml:"name,omitempty"`
	Op             string         `json:"op" toml:"op"`
	Domain         string         `json:"domain,omitempty" toml:"domain,omitempty"`
	Inputs         []string       `json:"inputs,omitempty" toml:"inputs,omitempty"`
	Outputs        []string       `json:"outputs,omitempty" toml:"outputs,omitempty"`
	ImplicitInputs []string       `json:"implicit_inputs,omitempty" toml:"implicit_inputs,omitempty"`
	Priority       int            `json:"priority,omitempty" toml:"priority,omitempty"`
	Attrs          map[string]any `json:"attrs,omitempty" toml:"attrs,omitempty"`
}

// ReadJSON decodes a JSON graph document from r.
//
// The returned graph is unresolved: node and value declarations are in
// place, but edges are not wired and references are not checked. Call
// [graph.Graph.Resolve] before scheduling. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*graph.Graph, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return build(&doc)
}

// ReadTOML decodes a TOML graph document from r. See [ReadJSON] for the
// contract on the returned graph.
func ReadTOML(r io.Reader) (*graph.Graph, error) {
	var doc document
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return build(&doc)
}

// Import reads the graph document at path, picking the codec from the file
// extension (.json or .toml).
func Import(path string) (*graph.Graph, error) {
	read, err := readerFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	g, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

func readerFor(path string) (func(io.Reader) (*graph.Graph, error), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ReadJSON, nil
	case ".toml":
		return ReadTOML, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

func build(doc *document) (*graph.Graph, error) {
	var opts []graph.Option
	if doc.Description != "" {
		opts = append(opts, graph.WithDescription(doc.Description))
	}
	if doc.Overridable {
		opts = append(opts, graph.WithOverridableInitializers(true))
	}
	for domain, version := range doc.Domains {
		opts = append(opts, graph.WithDomainVersion(domain, version))
	}

	g := graph.New(doc.Name, opts...)
	if err := g.SetInputs(doc.Inputs...); err != nil {
		return nil, err
	}
	if err := g.SetOutputs(doc.Outputs...); err != nil {
		return nil, err
	}
	for _, name := range doc.ValueInfo {
		if err := g.AddValueInfo(name); err != nil {
			return nil, err
		}
	}
	for _, td := range doc.Initializers {
		desc := graph.TensorDesc{Name: td.Name, DataType: td.DataType, Dims: td.Dims}
		if err := g.AddInitializer(desc); err != nil {
			return nil, fmt.Errorf("initializer %q: %w", td.Name, err)
		}
	}

	for i, nd := range doc.Nodes {
		spec := graph.NodeSpec{
			Name:           nd.Name,
			OpType:         nd.Op,
			Domain:         nd.Domain,
			Inputs:         nd.Inputs,
			Outputs:        nd.Outputs,
			ImplicitInputs: nd.ImplicitInputs,
			Priority:       nd.Priority,
		}
		if len(nd.Attrs) > 0 {
			spec.Attrs = make(map[string]graph.Attr, len(nd.Attrs))
			for name, v := range nd.Attrs {
				a, err := attrFromValue(v)
				if err != nil {
					return nil, fmt.Errorf("node %s, attr %q: %w", nodeLabel(nd, i), name, err)
				}
				spec.Attrs[name] = a
			}
		}
		if _, err := g.AddNode(spec); err != nil {
			return nil, fmt.Errorf("node %s: %w", nodeLabel(nd, i), err)
		}
	}
	return g, nil
}

// attrFromValue converts a decoded attribute value into a typed Attr.
// JSON numbers arrive as json.Number (UseNumber), TOML numbers as
// int64/float64.
func attrFromValue(v any) (graph.Attr, error) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return graph.IntAttr(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return graph.Attr{}, fmt.Errorf("%q: %w", t.String(), ErrUnsupportedAttr)
		}
		return graph.FloatAttr(f), nil
	case int64:
		return graph.IntAttr(t), nil
	case float64:
		return graph.FloatAttr(t), nil
	case string:
		return graph.StringAttr(t), nil
	case []any:
		ints := make([]int64, len(t))
		for i, el := range t {
			n, err := intElement(el)
			if err != nil {
				return graph.Attr{}, err
			}
			ints[i] = n
		}
		return graph.IntsAttr(ints...), nil
	}
	return graph.Attr{}, fmt.Errorf("%T: %w", v, ErrUnsupportedAttr)
}

func intElement(v any) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return 0, fmt.Errorf("list element %q: %w", t.String(), ErrUnsupportedAttr)
		}
		return i, nil
	case int64:
		return t, nil
	}
	return 0, fmt.Errorf("list element %T: %w", v, ErrUnsupportedAttr)
}

func nodeLabel(nd nodeDoc, i int) string {
	if nd.Name != "" {
		return fmt.Sprintf("%q", nd.Name)
	}
	return fmt.Sprintf("#%d", i)
}
