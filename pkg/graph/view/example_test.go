package view_test

import (
	"fmt"

	"github.com/tensorlab/opsched/pkg/graph"
	"github.com/tensorlab/opsched/pkg/graph/view"
)

func ExampleNew() {
	// Build a diamond: A feeds B and C, which both feed D.
	g := graph.New("diamond")
	_ = g.SetInputs("x")
	_ = g.SetOutputs("d")
	_, _ = g.AddNode(graph.NodeSpec{Name: "A", OpType: "MatMul", Inputs: []string{"x"}, Outputs: []string{"a"}})
	_, _ = g.AddNode(graph.NodeSpec{Name: "B", OpType: "Relu", Inputs: []string{"a"}, Outputs: []string{"b"}})
	_, _ = g.AddNode(graph.NodeSpec{Name: "C", OpType: "Exp", Inputs: []string{"a"}, Outputs: []string{"c"}})
	_, _ = g.AddNode(graph.NodeSpec{Name: "D", OpType: "Add", Inputs: []string{"b", "c"}, Outputs: []string{"d"}})
	_ = g.Resolve()

	v, _ := view.New(g)
	order, _ := v.NodesInTopologicalOrder(view.OrderDefault)
	for _, idx := range order {
		fmt.Println(g.Node(idx).Name())
	}
	// Output:
	// A
	// B
	// C
	// D
}

func ExampleNew_training() {
	// A training graph: the YieldOp separates the forward pass from the
	// gradient nodes, and a skip connection feeds the backward pass.
	g := graph.New("training-step")
	_ = g.SetInputs("x")
	_ = g.SetOutputs("grad")
	_, _ = g.AddNode(graph.NodeSpec{Name: "matmul", OpType: "MatMul", Inputs: []string{"x"}, Outputs: []string{"h"}})
	_, _ = g.AddNode(graph.NodeSpec{Name: "relu", OpType: "Relu", Inputs: []string{"h"}, Outputs: []string{"act"}})
	_, _ = g.AddNode(graph.NodeSpec{Name: "yield", OpType: graph.OpTypeYield, Inputs: []string{"act"}, Outputs: []string{"dl"}})
	_, _ = g.AddNode(graph.NodeSpec{Name: "relu_grad", OpType: "ReluGrad", Inputs: []string{"dl", "h"}, Outputs: []string{"dh"}})
	_, _ = g.AddNode(graph.NodeSpec{Name: "matmul_grad", OpType: "MatMulGrad", Inputs: []string{"dh", "x"}, Outputs: []string{"grad"}})
	_ = g.Resolve()

	v, _ := view.New(g, view.WithTraining(true))
	order, _ := v.NodesInTopologicalOrder(view.OrderPriority)
	for _, idx := range order {
		fmt.Println(g.Node(idx).Name())
	}
	// Output:
	// matmul
	// relu
	// yield
	// relu_grad
	// matmul_grad
}

func ExampleWithFilter() {
	// View only the middle of a four-node chain.
	g := graph.New("chain")
	_ = g.SetInputs("x")
	_ = g.SetOutputs("d")
	_, _ = g.AddNode(graph.NodeSpec{Name: "A", OpType: "MatMul", Inputs: []string{"x"}, Outputs: []string{"a"}})
	b, _ := g.AddNode(graph.NodeSpec{Name: "B", OpType: "Relu", Inputs: []string{"a"}, Outputs: []string{"b"}})
	c, _ := g.AddNode(graph.NodeSpec{Name: "C", OpType: "Exp", Inputs: []string{"b"}, Outputs: []string{"c"}})
	_, _ = g.AddNode(graph.NodeSpec{Name: "D", OpType: "Add", Inputs: []string{"c", "x"}, Outputs: []string{"d"}})
	_ = g.Resolve()

	v, _ := view.New(g, view.WithFilter(&view.IndexedSubGraph{
		Nodes:   []graph.NodeIndex{b.Index(), c.Index()},
		MetaDef: view.MetaDef{Name: "middle", Inputs: []string{"a"}, Outputs: []string{"c"}},
	}))

	fmt.Println("name:", v.Name())
	fmt.Println("nodes:", v.NumNodes())
	order, _ := v.NodesInTopologicalOrder(view.OrderDefault)
	for _, idx := range order {
		fmt.Println(g.Node(idx).Name())
	}
	// Output:
	// name: middle
	// nodes: 2
	// B
	// C
}
