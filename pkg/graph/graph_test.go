package graph

import (
	"errors"
	"testing"
)

func TestAddNode(t *testing.T) {
	g := New("test")

	a, err := g.AddNode(NodeSpec{Name: "a", OpType: "Relu", Inputs: []string{"x"}, Outputs: []string{"h"}})
	if err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}
	if a.Index() != 0 {
		t.Errorf("Index() = %d, want 0", a.Index())
	}

	b, err := g.AddNode(NodeSpec{Name: "b", OpType: "Exp", Inputs: []string{"h"}, Outputs: []string{"y"}})
	if err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}
	if b.Index() != 1 {
		t.Errorf("Index() = %d, want 1", b.Index())
	}

	if g.NumNodes() != 2 {
		t.Errorf("NumNodes() = %d, want 2", g.NumNodes())
	}
	if g.MaxNodeIndex() != 2 {
		t.Errorf("MaxNodeIndex() = %d, want 2", g.MaxNodeIndex())
	}
}

func TestAddNodeErrors(t *testing.T) {
	g := New("test")
	if _, err := g.AddNode(NodeSpec{Name: "no-op"}); !errors.Is(err, ErrEmptyOpType) {
		t.Errorf("AddNode() error = %v, want ErrEmptyOpType", err)
	}

	if _, err := g.AddNode(NodeSpec{OpType: "Relu", Outputs: []string{"y"}}); err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}
	if _, err := g.AddNode(NodeSpec{OpType: "Exp", Outputs: []string{"y"}}); !errors.Is(err, ErrDuplicateProducer) {
		t.Errorf("AddNode() error = %v, want ErrDuplicateProducer", err)
	}
}

func TestRemoveNode(t *testing.T) {
	g := New("test")
	g.AddNode(NodeSpec{OpType: "Relu", Outputs: []string{"a"}})
	n, _ := g.AddNode(NodeSpec{OpType: "Exp", Outputs: []string{"b"}})
	g.AddNode(NodeSpec{OpType: "Log", Outputs: []string{"c"}})

	if err := g.RemoveNode(n.Index()); err != nil {
		t.Fatalf("RemoveNode() error = %v", err)
	}
	if g.Node(n.Index()) != nil {
		t.Error("Node() after remove should be nil")
	}
	if g.NumNodes() != 2 {
		t.Errorf("NumNodes() = %d, want 2", g.NumNodes())
	}
	if g.MaxNodeIndex() != 3 {
		t.Errorf("MaxNodeIndex() = %d, want 3 (holes keep indices stable)", g.MaxNodeIndex())
	}
	if err := g.RemoveNode(n.Index()); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("RemoveNode() twice error = %v, want ErrUnknownNode", err)
	}

	// The removed node's output is claimable again.
	if _, err := g.AddNode(NodeSpec{OpType: "Exp", Outputs: []string{"b"}}); err != nil {
		t.Errorf("AddNode() reusing freed output error = %v", err)
	}
}

func TestResolveBuildsEdges(t *testing.T) {
	g := New("diamond")
	g.SetInputs("x")
	g.SetOutputs("d")
	a, _ := g.AddNode(NodeSpec{Name: "A", OpType: "MatMul", Inputs: []string{"x"}, Outputs: []string{"a"}})
	b, _ := g.AddNode(NodeSpec{Name: "B", OpType: "Relu", Inputs: []string{"a"}, Outputs: []string{"b"}})
	c, _ := g.AddNode(NodeSpec{Name: "C", OpType: "Exp", Inputs: []string{"a"}, Outputs: []string{"c"}})
	d, _ := g.AddNode(NodeSpec{Name: "D", OpType: "Add", Inputs: []string{"b", "c"}, Outputs: []string{"d"}})

	if err := g.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	wantOut := []Edge{
		{Src: a.Index(), Dst: b.Index(), SrcPort: 0, DstPort: 0},
		{Src: a.Index(), Dst: c.Index(), SrcPort: 0, DstPort: 0},
	}
	gotOut := a.OutputEdges()
	if len(gotOut) != len(wantOut) {
		t.Fatalf("OutputEdges() len = %d, want %d", len(gotOut), len(wantOut))
	}
	for i := range wantOut {
		if gotOut[i] != wantOut[i] {
			t.Errorf("OutputEdges()[%d] = %+v, want %+v", i, gotOut[i], wantOut[i])
		}
	}

	wantIn := []Edge{
		{Src: b.Index(), Dst: d.Index(), SrcPort: 0, DstPort: 0},
		{Src: c.Index(), Dst: d.Index(), SrcPort: 0, DstPort: 1},
	}
	gotIn := d.InputEdges()
	if len(gotIn) != len(wantIn) {
		t.Fatalf("InputEdges() len = %d, want %d", len(gotIn), len(wantIn))
	}
	for i := range wantIn {
		if gotIn[i] != wantIn[i] {
			t.Errorf("InputEdges()[%d] = %+v, want %+v", i, gotIn[i], wantIn[i])
		}
	}

	if g.NumEdges() != 4 {
		t.Errorf("NumEdges() = %d, want 4", g.NumEdges())
	}
}

func TestResolveEdgePorts(t *testing.T) {
	g := New("ports")
	g.SetInputs("x")
	p, _ := g.AddNode(NodeSpec{Name: "P", OpType: "Split", Inputs: []string{"x"}, Outputs: []string{"u", "v"}})
	q, _ := g.AddNode(NodeSpec{Name: "Q", OpType: "Concat", Inputs: []string{"v", "u"}, Outputs: []string{"w"}})

	if err := g.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// Both edges come from P; sorted by source port.
	want := []Edge{
		{Src: p.Index(), Dst: q.Index(), SrcPort: 0, DstPort: 1},
		{Src: p.Index(), Dst: q.Index(), SrcPort: 1, DstPort: 0},
	}
	got := q.InputEdges()
	if len(got) != 2 {
		t.Fatalf("InputEdges() len = %d, want 2", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("InputEdges()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	// Distinct producers only.
	if inputs := q.InputNodes(); len(inputs) != 1 || inputs[0] != p {
		t.Errorf("InputNodes() = %v, want [P]", inputs)
	}
}

func TestResolveImplicitInputs(t *testing.T) {
	g := New("implicit")
	g.SetInputs("x", "cond")
	p, _ := g.AddNode(NodeSpec{Name: "P", OpType: "Relu", Inputs: []string{"x"}, Outputs: []string{"h"}})
	q, _ := g.AddNode(NodeSpec{
		Name:           "Q",
		OpType:         "If",
		Inputs:         []string{"cond"},
		ImplicitInputs: []string{"h"},
		Outputs:        []string{"y"},
	})

	if err := g.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// Implicit inputs occupy ports after the explicit inputs.
	want := Edge{Src: p.Index(), Dst: q.Index(), SrcPort: 0, DstPort: 1}
	got := q.InputEdges()
	if len(got) != 1 || got[0] != want {
		t.Errorf("InputEdges() = %v, want [%+v]", got, want)
	}
}

func TestResolveUnresolvedValue(t *testing.T) {
	g := New("bad")
	g.AddNode(NodeSpec{Name: "A", OpType: "Relu", Inputs: []string{"ghost"}, Outputs: []string{"y"}})
	if err := g.Resolve(); !errors.Is(err, ErrUnresolvedValue) {
		t.Errorf("Resolve() error = %v, want ErrUnresolvedValue", err)
	}
}

func TestResolveUnknownOutput(t *testing.T) {
	g := New("bad")
	g.SetOutputs("nothing")
	g.AddNode(NodeSpec{OpType: "Relu", Outputs: []string{"y"}})
	if err := g.Resolve(); !errors.Is(err, ErrUnknownOutput) {
		t.Errorf("Resolve() error = %v, want ErrUnknownOutput", err)
	}
}

func TestResolveFreezes(t *testing.T) {
	g := New("frozen")
	g.AddNode(NodeSpec{OpType: "Relu", Outputs: []string{"y"}})
	if err := g.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if err := g.Resolve(); err != nil {
		t.Errorf("Resolve() twice error = %v, want nil (idempotent)", err)
	}

	if _, err := g.AddNode(NodeSpec{OpType: "Exp"}); !errors.Is(err, ErrResolved) {
		t.Errorf("AddNode() after resolve error = %v, want ErrResolved", err)
	}
	if err := g.RemoveNode(0); !errors.Is(err, ErrResolved) {
		t.Errorf("RemoveNode() after resolve error = %v, want ErrResolved", err)
	}
	if err := g.AddInitializer(TensorDesc{Name: "w"}); !errors.Is(err, ErrResolved) {
		t.Errorf("AddInitializer() after resolve error = %v, want ErrResolved", err)
	}
}

func TestInputsExcludeInitializers(t *testing.T) {
	g := New("init")
	g.SetInputs("x", "w")
	g.AddInitializer(TensorDesc{Name: "w", DataType: "float32", Dims: []int64{4, 4}})
	g.AddNode(NodeSpec{OpType: "MatMul", Inputs: []string{"x", "w"}, Outputs: []string{"y"}})

	if err := g.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if got := g.Inputs(); len(got) != 1 || got[0].Name() != "x" {
		t.Errorf("Inputs() = %v, want [x]", argNames(got))
	}
	if got := g.InputsIncludingInitializers(); len(got) != 2 {
		t.Errorf("InputsIncludingInitializers() = %v, want [x w]", argNames(got))
	}
}

func TestConstantInitializer(t *testing.T) {
	tests := []struct {
		name        string
		overridable bool
		initName    string
		declared    bool
		wantConst   bool
	}{
		{"plain initializer", false, "w", false, true},
		{"initializer also declared, not overridable", false, "w", true, true},
		{"initializer also declared, overridable", true, "w", true, false},
		{"overridable but not declared", true, "w", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []Option{}
			if tt.overridable {
				opts = append(opts, WithOverridableInitializers(true))
			}
			g := New("test", opts...)
			if tt.declared {
				g.SetInputs(tt.initName)
			}
			g.AddInitializer(TensorDesc{Name: tt.initName})
			g.AddNode(NodeSpec{OpType: "Relu", Inputs: []string{tt.initName}, Outputs: []string{"y"}})
			if err := g.Resolve(); err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}

			if got := g.IsConstantInitializer(tt.initName, false); got != tt.wantConst {
				t.Errorf("IsConstantInitializer(%q) = %v, want %v", tt.initName, got, tt.wantConst)
			}
		})
	}
}

func TestSubgraphOuterScope(t *testing.T) {
	parent := New("parent")
	parent.SetInputs("cond")
	parent.AddInitializer(TensorDesc{Name: "w"})
	ifNode, _ := parent.AddNode(NodeSpec{Name: "if", OpType: "If", Inputs: []string{"cond"}, Outputs: []string{"out"}})

	sub := NewSubgraph("then", ifNode)
	sub.SetOutputs("sub_out")
	sub.AddNode(NodeSpec{OpType: "Relu", Inputs: []string{"w"}, Outputs: []string{"sub_out"}})

	if err := sub.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if !sub.IsSubgraph() {
		t.Error("IsSubgraph() = false, want true")
	}
	if sub.ParentGraph() != parent {
		t.Error("ParentGraph() mismatch")
	}
	if sub.ParentNode() != ifNode {
		t.Error("ParentNode() mismatch")
	}
	if got := sub.OuterScopeNames(); len(got) != 1 || got[0] != "w" {
		t.Errorf("OuterScopeNames() = %v, want [w]", got)
	}
	if !sub.IsConstantInitializer("w", true) {
		t.Error("IsConstantInitializer(w, outer) = false, want true")
	}
	if sub.IsConstantInitializer("w", false) {
		t.Error("IsConstantInitializer(w, local) = true, want false")
	}
}

func TestNodeArgInterning(t *testing.T) {
	g := New("intern")
	g.SetInputs("x")
	a, _ := g.AddNode(NodeSpec{OpType: "Relu", Inputs: []string{"x"}, Outputs: []string{"h"}})
	b, _ := g.AddNode(NodeSpec{OpType: "Exp", Inputs: []string{"h"}, Outputs: []string{"y"}})

	if a.Outputs()[0] != b.Inputs()[0] {
		t.Error("value handle for h should be shared by identity")
	}
	if g.NodeArg("h") != a.Outputs()[0] {
		t.Error("NodeArg(h) should return the interned handle")
	}
	if g.NodeArg("missing") != nil {
		t.Error("NodeArg(missing) should be nil")
	}
}

func TestOptionalSlots(t *testing.T) {
	g := New("optional")
	g.SetInputs("x")
	n, _ := g.AddNode(NodeSpec{OpType: "Clip", Inputs: []string{"x", "", "max"}, Outputs: []string{"y"}})
	g.AddInitializer(TensorDesc{Name: "max"})

	if err := g.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if n.Inputs()[1].Exists() {
		t.Error("empty slot should not exist")
	}
	if len(n.InputEdges()) != 0 {
		t.Errorf("InputEdges() = %v, want none (inputs come from graph input and initializer)", n.InputEdges())
	}
}

func TestProducerConsumer(t *testing.T) {
	g := New("pc")
	g.SetInputs("x")
	a, _ := g.AddNode(NodeSpec{Name: "A", OpType: "Relu", Inputs: []string{"x"}, Outputs: []string{"h"}})
	b, _ := g.AddNode(NodeSpec{Name: "B", OpType: "Exp", Inputs: []string{"h"}, Outputs: []string{"y"}})
	c, _ := g.AddNode(NodeSpec{Name: "C", OpType: "Log", Inputs: []string{"h"}, Outputs: []string{"z"}})

	if err := g.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if got := g.ProducerNode("h"); got != a {
		t.Errorf("ProducerNode(h) = %v, want A", got)
	}
	if got := g.ProducerNode("x"); got != nil {
		t.Errorf("ProducerNode(x) = %v, want nil (graph input)", got)
	}
	consumers := g.ConsumerNodes("h")
	if len(consumers) != 2 || consumers[0] != b || consumers[1] != c {
		t.Errorf("ConsumerNodes(h) = %v, want [B C]", consumers)
	}
}

func argNames(args []*NodeArg) []string {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.Name()
	}
	return names
}
