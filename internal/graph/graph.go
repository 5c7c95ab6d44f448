// Package graph holds the module instantiation graph: one node per project
// module, one edge per parent-to-child instantiation. Nodes live in an
// index-addressed arena so cyclic designs need no shared ownership.
package graph

import (
	"slices"
	"sort"
)

// Graph is a directed instantiation graph keyed by module name.
type Graph struct {
	names    []string
	index    map[string]int
	children [][]int
	parents  [][]int
}

// New returns a graph with no nodes or edges.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddNode registers a module and returns its arena index. Duplicate calls
// return the existing index.
func (g *Graph) AddNode(name string) int {
	if id, ok := g.index[name]; ok {
		return id
	}
	id := len(g.names)
	g.names = append(g.names, name)
	g.index[name] = id
	g.children = append(g.children, nil)
	g.parents = append(g.parents, nil)
	return id
}

// AddEdge records that parent instantiates child. Missing nodes are
// created implicitly. Duplicate edges are ignored.
func (g *Graph) AddEdge(parent, child string) {
	p := g.AddNode(parent)
	c := g.AddNode(child)
	if slices.Contains(g.children[p], c) {
		return
	}
	g.children[p] = append(g.children[p], c)
	g.parents[c] = append(g.parents[c], p)
}

// HasNode reports whether the module exists in the graph.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.names) }

// Nodes returns all module names sorted.
func (g *Graph) Nodes() []string {
	out := slices.Clone(g.names)
	sort.Strings(out)
	return out
}

// Children returns the modules that name instantiates, sorted.
func (g *Graph) Children(name string) []string {
	id, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.namesOf(g.children[id])
}

// Parents returns the modules that instantiate name, sorted.
func (g *Graph) Parents(name string) []string {
	id, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.namesOf(g.parents[id])
}

// Roots returns the modules that no module instantiates, sorted. A module
// instantiating itself is not a root.
func (g *Graph) Roots() []string {
	var roots []string
	for id, name := range g.names {
		if len(g.parents[id]) == 0 {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)
	return roots
}

func (g *Graph) namesOf(ids []int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.names[id])
	}
	sort.Strings(out)
	return out
}
