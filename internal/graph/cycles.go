package graph

import (
	"slices"
	"sort"
)

// FindCycles returns every strongly connected component with more than one
// node, plus single nodes that instantiate themselves. Members of each
// cycle are sorted and the cycles are ordered by their first member.
func (g *Graph) FindCycles() [][]string {
	var (
		counter  int
		stack    []int
		onStack  = make([]bool, len(g.names))
		indices  = make([]int, len(g.names))
		lowlinks = make([]int, len(g.names))
		sccs     [][]string
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(v int)
	strongConnect = func(v int) {
		indices[v] = counter
		lowlinks[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.children[v] {
			if indices[w] < 0 {
				strongConnect(w)
				lowlinks[v] = min(lowlinks[v], lowlinks[w])
			} else if onStack[w] {
				lowlinks[v] = min(lowlinks[v], indices[w])
			}
		}

		if lowlinks[v] != indices[v] {
			return
		}
		var scc []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 || slices.Contains(g.children[scc[0]], scc[0]) {
			sccs = append(sccs, g.namesOf(scc))
		}
	}

	for _, name := range g.Nodes() {
		if id := g.index[name]; indices[id] < 0 {
			strongConnect(id)
		}
	}

	sort.Slice(sccs, func(i, j int) bool { return sccs[i][0] < sccs[j][0] })
	return sccs
}

// Reachable returns every module reachable from root, root included,
// sorted.
func (g *Graph) Reachable(root string) []string {
	id, ok := g.index[root]
	if !ok {
		return nil
	}
	seen := make([]bool, len(g.names))
	seen[id] = true
	queue := []int{id}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range g.children[v] {
			if !seen[w] {
				seen[w] = true
				queue = append(queue, w)
			}
		}
	}
	var out []string
	for i, ok := range seen {
		if ok {
			out = append(out, g.names[i])
		}
	}
	sort.Strings(out)
	return out
}
