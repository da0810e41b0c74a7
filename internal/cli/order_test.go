package cli

import (
	"reflect"
	"strings"
	"testing"

	"github.com/tensorlab/opsched/pkg/graph"
	"github.com/tensorlab/opsched/pkg/graph/view"
)

func mustNode(t *testing.T, g *graph.Graph, spec graph.NodeSpec) {
	t.Helper()
	if _, err := g.AddNode(spec); err != nil {
		t.Fatalf("AddNode(%q) error = %v", spec.Name, err)
	}
}

func mustView(t *testing.T, g *graph.Graph) *view.View {
	t.Helper()
	if err := g.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	v, err := view.New(g)
	if err != nil {
		t.Fatalf("view.New() error = %v", err)
	}
	return v
}

// buildBranchView builds a four-node diamond: A feeds both B and the
// Shape node C, and D concatenates the two sides.
func buildBranchView(t *testing.T) *view.View {
	t.Helper()
	g := graph.New("branch")
	g.SetInputs("x")
	g.SetOutputs("d")
	mustNode(t, g, graph.NodeSpec{Name: "A", OpType: "Gemm", Inputs: []string{"x"}, Outputs: []string{"a"}})
	mustNode(t, g, graph.NodeSpec{Name: "B", OpType: "Exp", Inputs: []string{"a"}, Outputs: []string{"b"}})
	mustNode(t, g, graph.NodeSpec{Name: "C", OpType: "Shape", Inputs: []string{"a"}, Outputs: []string{"c"}})
	mustNode(t, g, graph.NodeSpec{Name: "D", OpType: "Concat", Inputs: []string{"b", "c"}, Outputs: []string{"d"}})
	return mustView(t, g)
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []graph.NodeIndex
		wantErr bool
	}{
		{
			name: "no filter",
			spec: "",
			want: nil,
		},
		{
			name: "node list",
			spec: "nodes=0,2,5",
			want: []graph.NodeIndex{0, 2, 5},
		},
		{
			name: "unsorted input sorted",
			spec: "nodes=5,0,2",
			want: []graph.NodeIndex{0, 2, 5},
		},
		{
			name: "spaces tolerated",
			spec: "nodes=0, 2",
			want: []graph.NodeIndex{0, 2},
		},
		{
			name:    "missing prefix",
			spec:    "0,2,5",
			wantErr: true,
		},
		{
			name:    "non-numeric index",
			spec:    "nodes=0,a",
			wantErr: true,
		},
		{
			name:    "negative index",
			spec:    "nodes=-1",
			wantErr: true,
		},
		{
			name:    "empty selection",
			spec:    "nodes=",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFilter(tt.spec, "", nil, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFilter(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.want == nil {
				if got != nil {
					t.Fatalf("parseFilter(%q) = %v, want nil", tt.spec, got)
				}
				return
			}
			if !reflect.DeepEqual(got.Nodes, tt.want) {
				t.Errorf("parseFilter(%q).Nodes = %v, want %v", tt.spec, got.Nodes, tt.want)
			}
		})
	}
}

func TestParseFilterBoundary(t *testing.T) {
	got, err := parseFilter("nodes=1,2", "sub", []string{"a"}, []string{"c"})
	if err != nil {
		t.Fatalf("parseFilter() error = %v", err)
	}
	if got.MetaDef.Name != "sub" {
		t.Errorf("Name = %q, want %q", got.MetaDef.Name, "sub")
	}
	if !reflect.DeepEqual(got.MetaDef.Inputs, []string{"a"}) {
		t.Errorf("Inputs = %v, want [a]", got.MetaDef.Inputs)
	}
	if !reflect.DeepEqual(got.MetaDef.Outputs, []string{"c"}) {
		t.Errorf("Outputs = %v, want [c]", got.MetaDef.Outputs)
	}
}

func TestParseFilterBoundaryRequiresSpec(t *testing.T) {
	if _, err := parseFilter("", "sub", nil, nil); err == nil {
		t.Error("boundary flags without --filter should fail")
	}
	if _, err := parseFilter("", "", []string{"a"}, nil); err == nil {
		t.Error("filter inputs without --filter should fail")
	}
}

func TestFormatOrderText(t *testing.T) {
	v := buildBranchView(t)
	out := formatOrderText(v, "default", []graph.NodeIndex{0, 1, 2, 3})

	if !strings.HasPrefix(out, "default order (4 nodes)\n") {
		t.Errorf("unexpected header:\n%s", out)
	}
	for _, want := range []string{"Gemm", "Exp", "Shape", "Concat", "A", "D"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 5 {
		t.Errorf("got %d lines, want header + 4 rows", len(lines))
	}
}

func TestFormatOrderTextUnnamedNode(t *testing.T) {
	g := graph.New("anon")
	g.SetInputs("x")
	g.SetOutputs("y")
	mustNode(t, g, graph.NodeSpec{OpType: "Relu", Inputs: []string{"x"}, Outputs: []string{"y"}})
	v := mustView(t, g)

	out := formatOrderText(v, "default", []graph.NodeIndex{0})
	if !strings.HasSuffix(strings.TrimSuffix(out, "\n"), "-") {
		t.Errorf("unnamed node should render as '-':\n%s", out)
	}
}

func TestHasYieldNode(t *testing.T) {
	if hasYieldNode(nil) {
		t.Error("hasYieldNode(nil) = true, want false")
	}
	if hasYieldNode(buildBranchView(t)) {
		t.Error("branch graph should have no yield node")
	}

	g := graph.New("training")
	g.SetInputs("x")
	g.SetOutputs("b")
	mustNode(t, g, graph.NodeSpec{Name: "F", OpType: "MatMul", Inputs: []string{"x"}, Outputs: []string{"f"}})
	mustNode(t, g, graph.NodeSpec{Name: "Y", OpType: graph.OpTypeYield, Inputs: []string{"f"}, Outputs: []string{"y"}})
	mustNode(t, g, graph.NodeSpec{Name: "B", OpType: "MatMulGrad", Inputs: []string{"y"}, Outputs: []string{"b"}})
	if !hasYieldNode(mustView(t, g)) {
		t.Error("training graph should have a yield node")
	}
}
