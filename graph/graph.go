// Package graph runs a fixed workflow topology: named nodes executed one at
// a time, with condition nodes routing between them. Cycles are allowed and
// bounded by a per-node visit limit.
package graph

import (
	"context"
	"fmt"
)

// State represents the execution state passed between nodes
type State map[string]any

// NodeFunc is the function executed by a node
type NodeFunc func(context.Context, State) (State, error)

// ConditionFunc evaluates a branch and returns a route label
type ConditionFunc func(context.Context, State) (string, error)

// Node is one step of the workflow. Exactly one of Run or Decide is set:
// Run nodes do work and continue to Next, Decide nodes pick the next node
// from Routes by the returned label.
type Node struct {
	Name   string
	Run    NodeFunc
	Decide ConditionFunc
	Next   string
	Routes map[string]string
}

// Graph is a validated, executable workflow.
type Graph struct {
	nodes     map[string]*Node
	start     string
	end       string
	maxVisits int
}

// Execute walks the graph from the start node until the end node completes.
// The context is checked between nodes, so cancellation takes effect at the
// next step boundary. The state accumulated so far is returned alongside any
// error, letting callers salvage partial progress.
func (g *Graph) Execute(ctx context.Context, initial State) (State, error) {
	state := initial
	if state == nil {
		state = make(State)
	}

	visits := make(map[string]int)
	current := g.start

	for {
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		default:
		}

		node, exists := g.nodes[current]
		if !exists {
			return state, fmt.Errorf("node %s not found", current)
		}

		visits[current]++
		if visits[current] > g.maxVisits {
			return state, fmt.Errorf("infinite loop detected at node %s (visited %d times)", current, visits[current])
		}

		if node.Decide != nil {
			label, err := node.Decide(ctx, state)
			if err != nil {
				return state, fmt.Errorf("condition at node %s: %w", node.Name, err)
			}
			next, ok := node.Routes[label]
			if !ok {
				return state, fmt.Errorf("no route %q from node %s", label, node.Name)
			}
			current = next
			continue
		}

		var err error
		state, err = node.Run(ctx, state)
		if err != nil {
			return state, fmt.Errorf("node %s: %w", node.Name, err)
		}

		if current == g.end {
			return state, nil
		}
		current = node.Next
	}
}

// MaxVisits returns the configured per-node visit bound.
func (g *Graph) MaxVisits() int { return g.maxVisits }

// Builder assembles a graph fluently. Definition mistakes (duplicate or empty
// names) panic; structural problems are reported by Build.
type Builder struct {
	nodes     map[string]*Node
	order     []string
	start     string
	end       string
	maxVisits int
}

// NewBuilder creates a new graph builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:     make(map[string]*Node),
		maxVisits: 10,
	}
}

// AddNode adds a work node.
func (b *Builder) AddNode(name string, run NodeFunc) *Builder {
	b.add(&Node{Name: name, Run: run})
	return b
}

// AddConditionNode adds a branching node routing by the label condition returns.
func (b *Builder) AddConditionNode(name string, condition ConditionFunc, routes map[string]string) *Builder {
	b.add(&Node{Name: name, Decide: condition, Routes: routes})
	return b
}

// AddEdge connects a work node to its successor.
func (b *Builder) AddEdge(from, to string) *Builder {
	node, exists := b.nodes[from]
	if !exists {
		panic(fmt.Sprintf("node %s not found", from))
	}
	if node.Decide != nil {
		panic(fmt.Sprintf("node %s routes through its condition, not edges", from))
	}
	if node.Next != "" {
		panic(fmt.Sprintf("node %s already has an outgoing edge", from))
	}
	node.Next = to
	return b
}

// SetStart sets the entry node.
func (b *Builder) SetStart(name string) *Builder {
	b.start = name
	return b
}

// SetEnd sets the terminal node.
func (b *Builder) SetEnd(name string) *Builder {
	b.end = name
	return b
}

// SetMaxVisits sets the per-node visit bound guarding against runaway cycles.
func (b *Builder) SetMaxVisits(maxVisits int) *Builder {
	if maxVisits > 0 {
		b.maxVisits = maxVisits
	}
	return b
}

func (b *Builder) add(node *Node) {
	if node.Name == "" {
		panic("node name cannot be empty")
	}
	if _, exists := b.nodes[node.Name]; exists {
		panic(fmt.Sprintf("node %s already exists", node.Name))
	}
	b.nodes[node.Name] = node
	b.order = append(b.order, node.Name)
}

// Build validates the topology and returns the executable graph.
func (b *Builder) Build() (*Graph, error) {
	if b.start == "" {
		return nil, fmt.Errorf("start node not set")
	}
	if b.end == "" {
		return nil, fmt.Errorf("end node not set")
	}
	if _, ok := b.nodes[b.start]; !ok {
		return nil, fmt.Errorf("start node %s not found", b.start)
	}
	endNode, ok := b.nodes[b.end]
	if !ok {
		return nil, fmt.Errorf("end node %s not found", b.end)
	}
	if endNode.Decide != nil {
		return nil, fmt.Errorf("end node %s cannot be a condition node", b.end)
	}

	for _, name := range b.order {
		node := b.nodes[name]
		switch {
		case node.Decide != nil:
			if len(node.Routes) == 0 {
				return nil, fmt.Errorf("condition node %s has no routes", name)
			}
			for label, target := range node.Routes {
				if _, ok := b.nodes[target]; !ok {
					return nil, fmt.Errorf("node %s routes %q to unknown node %s", name, label, target)
				}
			}
		case node.Run == nil:
			return nil, fmt.Errorf("node %s has no run function", name)
		default:
			if name == b.end {
				continue
			}
			if node.Next == "" {
				return nil, fmt.Errorf("node %s has no outgoing edge", name)
			}
			if _, ok := b.nodes[node.Next]; !ok {
				return nil, fmt.Errorf("node %s points to unknown node %s", name, node.Next)
			}
		}
	}

	return &Graph{
		nodes:     b.nodes,
		start:     b.start,
		end:       b.end,
		maxVisits: b.maxVisits,
	}, nil
}
