package nodelink

import (
	"strings"
	"testing"

	"github.com/tensorlab/opsched/pkg/graph"
	"github.com/tensorlab/opsched/pkg/graph/view"
)

func trainingView(t *testing.T) *view.View {
	t.Helper()
	g := graph.New("train")
	g.SetInputs("x")
	g.SetOutputs("b1")
	g.AddNode(graph.NodeSpec{Name: "F1", OpType: "MatMul", Inputs: []string{"x"}, Outputs: []string{"f1"}})
	g.AddNode(graph.NodeSpec{Name: "Y", OpType: graph.OpTypeYield, Inputs: []string{"f1"}, Outputs: []string{"y"}})
	g.AddNode(graph.NodeSpec{
		Name: "B1", OpType: "ReluGrad", Inputs: []string{"y"}, Outputs: []string{"b1"},
		Attrs: map[string]graph.Attr{graph.AttrBackwardPass: graph.IntAttr(1)},
	})
	if err := g.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	v, err := view.New(g, view.WithTraining(true))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return v
}

func TestToDOT(t *testing.T) {
	v := trainingView(t)
	order, err := v.NodesInTopologicalOrder(view.OrderPriority)
	if err != nil {
		t.Fatalf("NodesInTopologicalOrder() error = %v", err)
	}

	dot := ToDOT(v, order, Options{})

	for _, want := range []string{
		`n0 [label="0: F1"];`,
		"shape=doubleoctagon",           // yield styling
		"fillcolor=lightblue",           // backward styling
		"penwidth=2",                    // B1 produces the graph output
		"n0 -> n1;",
		"n1 -> n2;",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTWithoutOrder(t *testing.T) {
	v := trainingView(t)
	dot := ToDOT(v, nil, Options{})
	if strings.Contains(dot, "0: F1") {
		t.Error("ToDOT() without order should not number nodes")
	}
	if !strings.Contains(dot, `label="F1"`) {
		t.Errorf("ToDOT() missing plain label:\n%s", dot)
	}
}

func TestToDOTDetailed(t *testing.T) {
	v := trainingView(t)
	dot := ToDOT(v, nil, Options{Detailed: true})
	for _, want := range []string{"op: MatMul", "priority: 0", "index: 2"} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() detailed missing %q", want)
		}
	}
}

func TestToDOTFiltered(t *testing.T) {
	g := graph.New("diamond")
	g.SetInputs("x")
	g.SetOutputs("d")
	g.AddNode(graph.NodeSpec{Name: "A", OpType: "MatMul", Inputs: []string{"x"}, Outputs: []string{"a"}})
	g.AddNode(graph.NodeSpec{Name: "B", OpType: "Relu", Inputs: []string{"a"}, Outputs: []string{"b"}})
	g.AddNode(graph.NodeSpec{Name: "C", OpType: "Exp", Inputs: []string{"a"}, Outputs: []string{"c"}})
	g.AddNode(graph.NodeSpec{Name: "D", OpType: "Add", Inputs: []string{"b", "c"}, Outputs: []string{"d"}})
	if err := g.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	v, err := view.New(g, view.WithFilter(&view.IndexedSubGraph{
		Nodes:   []graph.NodeIndex{1, 3},
		MetaDef: view.MetaDef{Name: "lower", Inputs: []string{"a", "c"}, Outputs: []string{"d"}},
	}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	dot := ToDOT(v, nil, Options{})
	if !strings.Contains(dot, "n1 -> n3;") {
		t.Errorf("ToDOT() missing in-filter edge:\n%s", dot)
	}
	if strings.Contains(dot, "n0") || strings.Contains(dot, "n2") {
		t.Errorf("ToDOT() leaked filtered-out nodes:\n%s", dot)
	}
}

func TestDisplayName(t *testing.T) {
	g := graph.New("anon")
	g.SetInputs("x")
	n, _ := g.AddNode(graph.NodeSpec{OpType: "Relu", Inputs: []string{"x"}, Outputs: []string{"y"}})
	if got := displayName(n); got != "Relu#0" {
		t.Errorf("displayName() = %q, want Relu#0", got)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<?xml version="1.0"?>` + "\n" +
		`<svg width="134pt" height="116pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg">`)
	out := string(normalizeViewBox(in))

	if !strings.Contains(out, `viewBox="0 0 100.00 50.00"`) {
		t.Errorf("normalizeViewBox() viewBox not rewritten: %s", out)
	}
	if !strings.Contains(out, `width="100" height="50"`) {
		t.Errorf("normalizeViewBox() dimensions not set: %s", out)
	}

	// No viewBox: left untouched.
	plain := []byte(`<svg xmlns="http://www.w3.org/2000/svg">`)
	if got := string(normalizeViewBox(plain)); got != string(plain) {
		t.Errorf("normalizeViewBox() modified tag without viewBox: %s", got)
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG("digraph G { a -> b; }")
	if err != nil {
		t.Fatalf("RenderSVG() error = %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("RenderSVG() output is not SVG")
	}
}

func TestRenderSVGBadDOT(t *testing.T) {
	if _, err := RenderSVG("not dot at all {"); err == nil {
		t.Error("RenderSVG() error = nil, want parse error")
	}
}
