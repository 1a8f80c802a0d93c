// SPDX-License-Identifier: MPL-2.0

// Package dag provides directed acyclic graph operations for topological
// sorting and cycle detection. The task scheduler uses it to order task
// nodes so that every dependency runs before its dependents.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing
	// topological ordering.
	CycleError[K comparable] struct {
		// Cycle contains nodes involved in the cycle (not necessarily all
		// of them, but enough to identify the problem).
		Cycle []K
	}

	// Graph is a directed graph over comparable node keys. An edge from A
	// to B means A must complete before B starts.
	Graph[K comparable] struct {
		// adjacency maps each node to its outgoing neighbors.
		adjacency map[K][]K
		// nodes tracks insertion order for deterministic output.
		nodes []K
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[K]bool
	}
)

func (e *CycleError[K]) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, n := range e.Cycle {
		parts[i] = fmt.Sprint(n)
	}
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(parts, " -> "))
}

// New creates an empty Graph.
func New[K comparable]() *Graph[K] {
	return &Graph[K]{
		adjacency: make(map[K][]K),
		nodeSet:   make(map[K]bool),
	}
}

// AddNode adds a node to the graph. Adding an existing node is a no-op.
func (g *Graph[K]) AddNode(key K) {
	if g.nodeSet[key] {
		return
	}
	g.nodeSet[key] = true
	g.nodes = append(g.nodes, key)
}

// AddEdge adds a directed edge from -> to, meaning "from" must run before
// "to". Both nodes are implicitly added if they don't exist.
func (g *Graph[K]) AddEdge(from, to K) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// TopologicalSort returns a valid execution order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle. The order is
// deterministic: nodes at the same topological level appear in the order
// they were first added to the graph.
func (g *Graph[K]) TopologicalSort() ([]K, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[K]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]K, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []K
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		// Remaining nodes with non-zero in-degree form the cycle.
		var cycleNodes []K
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError[K]{Cycle: cycleNodes}
	}

	return result, nil
}
