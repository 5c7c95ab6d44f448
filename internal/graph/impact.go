package graph

import (
	"fmt"
	"sort"
	"strings"
)

// ImpactReport lists the modules affected by a change to Root, grouped by
// instantiation distance: Levels[0] holds Root's direct parents, Levels[1]
// their parents, and so on.
type ImpactReport struct {
	Root   string
	Levels [][]string
}

// Impact walks parent edges breadth-first from root.
func (g *Graph) Impact(root string) ImpactReport {
	report := ImpactReport{Root: root}
	id, ok := g.index[root]
	if !ok {
		return report
	}
	visited := map[int]bool{id: true}
	frontier := []int{id}

	for len(frontier) > 0 {
		var next []int
		for _, v := range frontier {
			for _, p := range g.parents[v] {
				if visited[p] {
					continue
				}
				visited[p] = true
				next = append(next, p)
			}
		}
		if len(next) == 0 {
			break
		}
		report.Levels = append(report.Levels, g.namesOf(next))
		frontier = next
	}
	return report
}

// Affected returns every module in the report, sorted.
func (r ImpactReport) Affected() []string {
	var out []string
	for _, level := range r.Levels {
		out = append(out, level...)
	}
	sort.Strings(out)
	return out
}

func (r ImpactReport) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("  %s\n", r.Root))
	for i, level := range r.Levels {
		b.WriteString(fmt.Sprintf("    level %d (%d): %s\n", i+1, len(level), strings.Join(level, ", ")))
	}
	return b.String()
}
