// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	g := New[string]()
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	t.Parallel()
	g := New[string]()
	// A -> B -> C (A must run first, then B, then C)
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"A", "B", "C"}) {
		t.Errorf("expected [A B C], got %v", order)
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	t.Parallel()
	g := New[string]()
	// A -> B, A -> C, B -> D, C -> D
	g.AddEdge("A", "B")
	g.AddEdge("A", "C")
	g.AddEdge("B", "D")
	g.AddEdge("C", "D")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"A", "B", "C", "D"}) {
		t.Errorf("expected [A B C D], got %v", order)
	}
}

func TestTopologicalSort_DeterministicAcrossRebuilds(t *testing.T) {
	t.Parallel()
	build := func() *Graph[string] {
		g := New[string]()
		g.AddNode("setup")
		g.AddNode("lint")
		g.AddEdge("setup", "build")
		g.AddEdge("build", "test")
		return g
	}
	first, err := build().TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := build().TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(first, second) {
		t.Errorf("orders differ: %v vs %v", first, second)
	}
}

func TestTopologicalSort_Cycle(t *testing.T) {
	t.Parallel()
	g := New[string]()
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	var cycleErr *CycleError[string]
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if len(cycleErr.Cycle) == 0 {
		t.Error("cycle error should name the nodes involved")
	}
}

func TestTopologicalSort_StructKeys(t *testing.T) {
	t.Parallel()
	type key struct {
		Name string
		Env  string
	}
	g := New[key]()
	g.AddEdge(key{"build", "default"}, key{"test", "default"})
	g.AddEdge(key{"build", "default"}, key{"test", "ci"})

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 3 || order[0] != (key{"build", "default"}) {
		t.Errorf("unexpected order %v", order)
	}
}
