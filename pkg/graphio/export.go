package graphio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tensorlab/opsched/pkg/graph"
)

// WriteJSON encodes a resolved graph as a JSON document and writes it to w.
// The output can be re-imported with [ReadJSON] for round-trip processing.
// Returns [graph.ErrNotResolved] for an unresolved graph.
func WriteJSON(g *graph.Graph, w io.Writer) error {
	doc, err := toDocument(g)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteTOML encodes a resolved graph as a TOML document and writes it to w.
func WriteTOML(g *graph.Graph, w io.Writer) error {
	doc, err := toDocument(g)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Export writes the graph document to path, picking the codec from the file
// extension (.json or .toml).
func Export(g *graph.Graph, path string) error {
	var write func(*graph.Graph, io.Writer) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		write = WriteJSON
	case ".toml":
		write = WriteTOML
	default:
		return fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return write(g, f)
}

func toDocument(g *graph.Graph) (*document, error) {
	if !g.IsResolved() {
		return nil, graph.ErrNotResolved
	}

	doc := &document{
		Name:        g.Name(),
		Description: g.Description(),
		Inputs:      argNames(g.InputsIncludingInitializers()),
		Outputs:     argNames(g.Outputs()),
		ValueInfo:   argNames(g.ValueInfo()),
		Overridable: g.CanOverrideInitializer(),
	}
	if versions := g.DomainToVersionMap(); len(versions) > 0 {
		doc.Domains = make(map[string]int, len(versions))
		for domain, v := range versions {
			doc.Domains[domain] = v
		}
	}

	inits := g.Initializers()
	names := make([]string, 0, len(inits))
	for name := range inits {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		td := inits[name]
		doc.Initializers = append(doc.Initializers, tensor{Name: td.Name, DataType: td.DataType, Dims: td.Dims})
	}

	for _, n := range g.Nodes() {
		nd := nodeDoc{
			Name:           n.Name(),
			Op:             n.OpType(),
			Domain:         n.Domain(),
			Inputs:         argNames(n.Inputs()),
			Outputs:        argNames(n.Outputs()),
			ImplicitInputs: argNames(n.ImplicitInputs()),
			Priority:       n.Priority(),
		}
		if attrs := n.Attrs(); len(attrs) > 0 {
			nd.Attrs = make(map[string]any, len(attrs))
			for name, a := range attrs {
				nd.Attrs[name] = attrValue(a)
			}
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	return doc, nil
}

func attrValue(a graph.Attr) any {
	switch a.Kind {
	case graph.AttrKindInt:
		return a.Int
	case graph.AttrKindFloat:
		return a.Float
	case graph.AttrKindString:
		return a.Str
	case graph.AttrKindInts:
		return a.Ints
	}
	return nil
}

func argNames(args []*graph.NodeArg) []string {
	if len(args) == 0 {
		return nil
	}
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.Name()
	}
	return names
}
