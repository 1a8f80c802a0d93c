// SPDX-License-Identifier: MPL-2.0

package task

import (
	"errors"

	"lockstep-cli/internal/dag"
	"lockstep-cli/internal/manifest"
)

type (
	// NodeID indexes a node inside one TaskGraph.
	NodeID int

	// Invocation is one requested task execution: the task name plus the
	// trailing literal arguments the caller supplied after "--". The
	// arguments reach only this task, never its transitive dependencies.
	Invocation struct {
		Name           string
		AdditionalArgs []string
	}

	// TaskNode is one resolved task inside the graph, identified by its
	// (name, run environment) pair. Nodes are built fresh per invocation
	// and never persisted.
	TaskNode struct {
		Name           string
		Task           manifest.Task
		RunEnv         RunEnvironment
		AdditionalArgs []string
		DependsOn      []NodeID
	}

	// TaskGraph is the dependency DAG over TaskNodes together with its
	// precomputed topological order. Built once per run, discarded after.
	TaskGraph struct {
		nodes []*TaskNode
		order []NodeID
	}

	nodeKey struct {
		name string
		env  RunEnvironment
	}

	graphBuilder struct {
		search  SearchEnvironments
		nodes   []*TaskNode
		index   map[nodeKey]NodeID
		onStack map[nodeKey]bool
		stack   []string
		graph   *dag.Graph[nodeKey]
	}
)

// BuildGraph expands the requested invocations into a task dependency graph.
// Dependencies are followed depth-first; a node already expanded (same task
// name and run environment) is shared, and a revisit of a node still on the
// expansion stack aborts with CycleError before any task is scheduled.
func BuildGraph(search SearchEnvironments, invocations []Invocation) (*TaskGraph, error) {
	b := &graphBuilder{
		search:  search,
		index:   make(map[nodeKey]NodeID),
		onStack: make(map[nodeKey]bool),
		graph:   dag.New[nodeKey](),
	}

	for _, inv := range invocations {
		def, runEnv, err := search.FindTask(inv.Name)
		if err != nil {
			return nil, err
		}
		if _, err := b.expand(inv.Name, def, runEnv, inv.AdditionalArgs); err != nil {
			return nil, err
		}
	}

	keyOrder, err := b.graph.TopologicalSort()
	if err != nil {
		// The DFS already rejects cycles; Kahn is the backstop.
		var cycleErr *dag.CycleError[nodeKey]
		if errors.As(err, &cycleErr) {
			names := make([]string, len(cycleErr.Cycle))
			for i, k := range cycleErr.Cycle {
				names[i] = k.name
			}
			return nil, &CycleError{Cycle: names}
		}
		return nil, err
	}

	order := make([]NodeID, len(keyOrder))
	for i, k := range keyOrder {
		order[i] = b.index[k]
	}
	return &TaskGraph{nodes: b.nodes, order: order}, nil
}

// expand adds a node for (name, runEnv), recursively expanding declared
// dependencies within the same run environment.
func (b *graphBuilder) expand(name string, def manifest.Task, runEnv RunEnvironment, args []string) (NodeID, error) {
	key := nodeKey{name: name, env: runEnv}
	if id, ok := b.index[key]; ok {
		if b.onStack[key] {
			cycle := append(append([]string{}, b.stack...), name)
			return 0, &CycleError{Cycle: cycle}
		}
		return id, nil
	}

	id := NodeID(len(b.nodes))
	node := &TaskNode{
		Name:           name,
		Task:           def,
		RunEnv:         runEnv,
		AdditionalArgs: args,
	}
	b.nodes = append(b.nodes, node)
	b.index[key] = id
	b.graph.AddNode(key)

	b.onStack[key] = true
	b.stack = append(b.stack, name)
	for _, depName := range def.DependsOn {
		depDef, err := b.search.findTaskIn(depName, runEnv)
		if err != nil {
			return 0, err
		}
		depID, err := b.expand(depName, depDef, runEnv, nil)
		if err != nil {
			return 0, err
		}
		node.DependsOn = append(node.DependsOn, depID)
		b.graph.AddEdge(nodeKey{name: depName, env: runEnv}, key)
	}
	b.stack = b.stack[:len(b.stack)-1]
	b.onStack[key] = false

	return id, nil
}

// TopologicalOrder returns the node IDs in execution order: dependencies
// before dependents, ties broken by discovery order so repeated builds of
// the same request agree.
func (g *TaskGraph) TopologicalOrder() []NodeID {
	out := make([]NodeID, len(g.order))
	copy(out, g.order)
	return out
}

// Node returns the node for an ID.
func (g *TaskGraph) Node(id NodeID) *TaskNode { return g.nodes[id] }

// Len returns the number of nodes in the graph.
func (g *TaskGraph) Len() int { return len(g.nodes) }
