package view

import (
	"testing"

	"github.com/tensorlab/opsched/pkg/graph"
)

func TestDefaultOrderDiamond(t *testing.T) {
	g := graph.New("diamond")
	g.SetInputs("x")
	g.SetOutputs("d")
	mustNode(t, g, graph.NodeSpec{Name: "A", OpType: "MatMul", Inputs: []string{"x"}, Outputs: []string{"a"}})
	mustNode(t, g, graph.NodeSpec{Name: "B", OpType: "Relu", Inputs: []string{"a"}, Outputs: []string{"b"}})
	mustNode(t, g, graph.NodeSpec{Name: "C", OpType: "Exp", Inputs: []string{"a"}, Outputs: []string{"c"}})
	mustNode(t, g, graph.NodeSpec{Name: "D", OpType: "Add", Inputs: []string{"b", "c"}, Outputs: []string{"d"}})
	resolve(t, g)

	v := newView(t, g)
	wantOrder(t, g, defaultOrder(t, v), "A", "B", "C", "D")

	// With no priorities and no yield node, the priority order agrees.
	wantOrder(t, g, priorityOrder(t, v), "A", "B", "C", "D")
}

func TestDefaultOrderShapeRelocation(t *testing.T) {
	build := func() *graph.Graph {
		g := graph.New("shapes")
		g.SetInputs("x")
		g.SetOutputs("c")
		mustNode(t, g, graph.NodeSpec{Name: "A", OpType: "MatMul", Inputs: []string{"x"}, Outputs: []string{"a"}})
		mustNode(t, g, graph.NodeSpec{Name: "B", OpType: "Relu", Inputs: []string{"a"}, Outputs: []string{"b"}})
		mustNode(t, g, graph.NodeSpec{Name: "S", OpType: graph.OpTypeShape, Inputs: []string{"a"}, Outputs: []string{"s"}})
		mustNode(t, g, graph.NodeSpec{Name: "C", OpType: "Exp", Inputs: []string{"b"}, Outputs: []string{"c"}})
		resolve(t, g)
		return g
	}

	// Training moves S directly behind its producer A.
	g := build()
	v := newView(t, g, WithTraining(true))
	wantOrder(t, g, defaultOrder(t, v), "A", "S", "B", "C")

	// Without training S stays where the traversal put it.
	g = build()
	v = newView(t, g)
	wantOrder(t, g, defaultOrder(t, v), "A", "B", "C", "S")
}

func TestDefaultOrderShapeRelocationSiblings(t *testing.T) {
	g := graph.New("siblings")
	g.SetInputs("x")
	g.SetOutputs("c")
	mustNode(t, g, graph.NodeSpec{Name: "A", OpType: "MatMul", Inputs: []string{"x"}, Outputs: []string{"a"}})
	mustNode(t, g, graph.NodeSpec{Name: "S1", OpType: graph.OpTypeShape, Inputs: []string{"a"}, Outputs: []string{"s1"}})
	mustNode(t, g, graph.NodeSpec{Name: "S2", OpType: graph.OpTypeSize, Inputs: []string{"a"}, Outputs: []string{"s2"}})
	mustNode(t, g, graph.NodeSpec{Name: "B", OpType: "Relu", Inputs: []string{"a"}, Outputs: []string{"b"}})
	mustNode(t, g, graph.NodeSpec{Name: "C", OpType: "Exp", Inputs: []string{"b"}, Outputs: []string{"c"}})
	resolve(t, g)

	v := newView(t, g, WithTraining(true))
	wantOrder(t, g, defaultOrder(t, v), "A", "S1", "S2", "B", "C")
}

func TestDefaultOrderShapeWithoutProducer(t *testing.T) {
	// S reads the declared input directly, so it has no anchor and is
	// not relocated.
	g := graph.New("no-anchor")
	g.SetInputs("x")
	g.SetOutputs("b")
	mustNode(t, g, graph.NodeSpec{Name: "S", OpType: graph.OpTypeShape, Inputs: []string{"x"}, Outputs: []string{"s"}})
	mustNode(t, g, graph.NodeSpec{Name: "A", OpType: "MatMul", Inputs: []string{"x"}, Outputs: []string{"a"}})
	mustNode(t, g, graph.NodeSpec{Name: "B", OpType: "Add", Inputs: []string{"a", "s"}, Outputs: []string{"b"}})
	resolve(t, g)

	v := newView(t, g, WithTraining(true))
	wantOrder(t, g, defaultOrder(t, v), "S", "A", "B")
}

func TestShapeClassSchedulesFirst(t *testing.T) {
	// A and S are both ready immediately. The priority order runs the
	// shape-introspection node first regardless of index; the default
	// order does not.
	g := graph.New("class")
	g.SetInputs("x")
	g.SetOutputs("c")
	mustNode(t, g, graph.NodeSpec{Name: "A", OpType: "MatMul", Inputs: []string{"x"}, Outputs: []string{"a"}})
	mustNode(t, g, graph.NodeSpec{Name: "S", OpType: graph.OpTypeShape, Inputs: []string{"x"}, Outputs: []string{"s"}})
	mustNode(t, g, graph.NodeSpec{Name: "C", OpType: "Add", Inputs: []string{"a", "s"}, Outputs: []string{"c"}})
	resolve(t, g)

	v := newView(t, g)
	wantOrder(t, g, defaultOrder(t, v), "A", "S", "C")
	wantOrder(t, g, priorityOrder(t, v), "S", "A", "C")
}

func TestRootNodes(t *testing.T) {
	g := graph.New("roots")
	g.SetInputs("x")
	g.SetOutputs("c")
	if err := g.AddInitializer(graph.TensorDesc{Name: "w"}); err != nil {
		t.Fatalf("AddInitializer() error = %v", err)
	}
	a := mustNode(t, g, graph.NodeSpec{Name: "A", OpType: "MatMul", Inputs: []string{"x"}, Outputs: []string{"a"}})
	b := mustNode(t, g, graph.NodeSpec{Name: "B", OpType: "Relu", Inputs: []string{"w"}, Outputs: []string{"b"}})
	mustNode(t, g, graph.NodeSpec{Name: "C", OpType: "Add", Inputs: []string{"a", "b"}, Outputs: []string{"c"}})
	resolve(t, g)

	v := newView(t, g)
	roots, err := v.RootNodes()
	if err != nil {
		t.Fatalf("RootNodes() error = %v", err)
	}
	want := []graph.NodeIndex{a.Index(), b.Index()}
	if len(roots) != len(want) {
		t.Fatalf("RootNodes() = %v, want %v", roots, want)
	}
	for i := range want {
		if roots[i] != want[i] {
			t.Fatalf("RootNodes() = %v, want %v", roots, want)
		}
	}
}

func TestRelocateInsertsMissingChildren(t *testing.T) {
	anchors := shapeAnchors{2: {5, 7}}
	got := anchors.relocate([]graph.NodeIndex{0, 2, 3, 5})
	want := []graph.NodeIndex{0, 2, 5, 7, 3}
	if len(got) != len(want) {
		t.Fatalf("relocate() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("relocate() = %v, want %v", got, want)
		}
	}
}
