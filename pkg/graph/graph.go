// Package graph builds the link graph over a project's knowledge nodes.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lorebookhq/lorebook/pkg/kb"
)

// Node is a vertex in the link graph.
type Node struct {
	ID    string      `json:"id"`
	Title string      `json:"title"`
	Kind  kb.NodeKind `json:"kind"`
	Tags  []string    `json:"tags,omitempty"`
}

// Edge is a directed link between two nodes.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the adjacency view over a set of knowledge nodes.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`

	adjacency map[string][]string
	index     map[string]Node
}

// Build constructs a graph from a project's nodes. Links pointing at IDs
// outside the set are dropped so the graph stays closed over its vertices.
func Build(nodes []*kb.Node) *Graph {
	g := &Graph{
		adjacency: make(map[string][]string, len(nodes)),
		index:     make(map[string]Node, len(nodes)),
	}

	for _, n := range nodes {
		g.index[n.ID] = Node{
			ID:    n.ID,
			Title: n.Title,
			Kind:  n.Kind,
			Tags:  n.Tags,
		}
	}

	for _, n := range nodes {
		g.Nodes = append(g.Nodes, g.index[n.ID])
		for _, target := range n.Links {
			if _, ok := g.index[target]; !ok {
				continue
			}
			g.Edges = append(g.Edges, Edge{From: n.ID, To: target})
			g.adjacency[n.ID] = append(g.adjacency[n.ID], target)
		}
	}

	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].Title < g.Nodes[j].Title })

	return g
}

// Lookup returns the node with the given ID.
func (g *Graph) Lookup(id string) (Node, bool) {
	n, ok := g.index[id]
	return n, ok
}

// Neighbors returns the IDs directly linked from the given node.
func (g *Graph) Neighbors(id string) []string {
	return g.adjacency[id]
}

// Neighborhood returns the IDs reachable from start within depth hops,
// including start itself. Traversal is breadth-first over outgoing links.
func (g *Graph) Neighborhood(start string, depth int) []string {
	if _, ok := g.index[start]; !ok {
		return nil
	}

	visited := map[string]bool{start: true}
	frontier := []string{start}
	order := []string{start}

	for hop := 0; hop < depth; hop++ {
		var next []string
		for _, id := range frontier {
			for _, target := range g.adjacency[id] {
				if visited[target] {
					continue
				}
				visited[target] = true
				next = append(next, target)
				order = append(order, target)
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	return order
}

// DOT renders the graph in Graphviz dot format.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph lorebook {\n")
	b.WriteString("\trankdir=LR;\n")

	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "\t%q [label=%q];\n", n.ID, n.Title)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "\t%q -> %q;\n", e.From, e.To)
	}

	b.WriteString("}\n")
	return b.String()
}
