// Package graph executes a fixed chain of typed stages. Each node receives the
// state produced by its predecessor; there are no branches and no loops.
package graph

import (
	"context"
	"fmt"
)

// NodeType represents the type of a node in the graph
type NodeType string

const (
	NodeTypeStart  NodeType = "start"
	NodeTypeEnd    NodeType = "end"
	NodeTypeCustom NodeType = "custom"
)

// NodeFunc is the function executed by a node
type NodeFunc[S any] func(context.Context, S) (S, error)

// Node represents a node in the execution graph
type Node[S any] struct {
	Name    string
	Type    NodeType
	Execute NodeFunc[S] // optional for end nodes
	Next    string      // empty only on the end node
}

// Graph is a linear execution flow over state S.
type Graph[S any] struct {
	nodes     map[string]*Node[S]
	startNode string
	endNode   string
}

// NewGraph creates a new graph
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{nodes: make(map[string]*Node[S])}
}

func (g *Graph[S]) validateNode(node *Node[S]) {
	if node.Name == "" {
		panic("node name cannot be empty")
	}
	if node.Execute == nil && node.Type != NodeTypeEnd {
		panic(fmt.Sprintf("node %s of type %s must have non-nil Execute function", node.Name, node.Type))
	}
}

// AddNode adds a node to the graph. Start and end nodes register themselves.
func (g *Graph[S]) AddNode(node *Node[S]) {
	if _, exists := g.nodes[node.Name]; exists {
		panic(fmt.Sprintf("node %s already exists", node.Name))
	}
	g.validateNode(node)
	g.nodes[node.Name] = node

	switch node.Type {
	case NodeTypeStart:
		g.startNode = node.Name
	case NodeTypeEnd:
		g.endNode = node.Name
	}
}

// Path returns the node names from start to end, or an error when an edge
// is dangling, the chain loops, or it never reaches the end node.
func (g *Graph[S]) Path() ([]string, error) {
	if g.startNode == "" {
		return nil, fmt.Errorf("start node not set")
	}
	if g.endNode == "" {
		return nil, fmt.Errorf("end node not set")
	}

	var path []string
	seen := make(map[string]bool, len(g.nodes))
	for name := g.startNode; ; {
		node, ok := g.nodes[name]
		if !ok {
			return nil, fmt.Errorf("node %s not found", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("cycle detected at node %s", name)
		}
		seen[name] = true
		path = append(path, name)

		if name == g.endNode {
			return path, nil
		}
		if node.Next == "" {
			return nil, fmt.Errorf("no next node specified for node %s", name)
		}
		name = node.Next
	}
}

// Execute runs every node from start to end, threading the state through.
// The first node error stops execution. Nodes observe ctx themselves, so a
// cancelled context does not skip the remaining nodes.
func (g *Graph[S]) Execute(ctx context.Context, state S) (S, error) {
	path, err := g.Path()
	if err != nil {
		return state, err
	}
	for _, name := range path {
		node := g.nodes[name]
		if node.Execute == nil {
			continue
		}
		state, err = node.Execute(ctx, state)
		if err != nil {
			return state, fmt.Errorf("error executing node %s: %w", name, err)
		}
	}
	return state, nil
}

// Builder helps build graphs fluently
type Builder[S any] struct {
	graph *Graph[S]
	last  string
}

// NewBuilder creates a new graph builder
func NewBuilder[S any]() *Builder[S] {
	return &Builder[S]{graph: NewGraph[S]()}
}

// AddNode adds a node to the graph
func (b *Builder[S]) AddNode(name string, nodeType NodeType, execute NodeFunc[S]) *Builder[S] {
	b.graph.AddNode(&Node[S]{Name: name, Type: nodeType, Execute: execute})
	return b
}

// Then appends a node and links it after the previously added one. The
// first call creates the start node.
func (b *Builder[S]) Then(name string, execute NodeFunc[S]) *Builder[S] {
	nodeType := NodeTypeCustom
	if b.last == "" {
		nodeType = NodeTypeStart
	}
	b.AddNode(name, nodeType, execute)
	if b.last != "" {
		b.AddEdge(b.last, name)
	}
	b.last = name
	return b
}

// AddEdge connects two nodes
func (b *Builder[S]) AddEdge(from, to string) *Builder[S] {
	node, exists := b.graph.nodes[from]
	if !exists {
		panic(fmt.Sprintf("node %s not found", from))
	}
	if node.Next != "" && node.Next != to {
		panic(fmt.Sprintf("node %s already continues to %s", from, node.Next))
	}
	node.Next = to
	return b
}

// Build validates and returns the graph. The last node added with Then
// becomes the end node unless an end node was added.
func (b *Builder[S]) Build() (*Graph[S], error) {
	if b.graph.endNode == "" && b.last != "" {
		b.graph.endNode = b.last
	}
	if _, err := b.graph.Path(); err != nil {
		return nil, err
	}
	return b.graph, nil
}
