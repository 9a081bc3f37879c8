package tree

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// DetectCycles returns the sets of ids that form cycles in the parent map.
// Each cycle is sorted; cycles are ordered by their first id. Entries on a
// cycle are never placed by BuildForest, so callers surface them as a
// warning rather than silently losing rows.
func DetectCycles(entries []Entry, rel Relation) [][]string {
	parents := ParentMap(entries, rel)
	if len(parents) == 0 {
		return nil
	}

	ids := make(map[string]int64, len(entries))
	names := make([]string, 0, len(entries))
	node := func(id string) int64 {
		if n, ok := ids[id]; ok {
			return n
		}
		n := int64(len(names))
		ids[id] = n
		names = append(names, id)
		return n
	}

	g := simple.NewDirectedGraph()
	for child, parent := range parents {
		c, p := node(child), node(parent)
		if g.Node(c) == nil {
			g.AddNode(simple.Node(c))
		}
		if g.Node(p) == nil {
			g.AddNode(simple.Node(p))
		}
		g.SetEdge(simple.Edge{F: simple.Node(c), T: simple.Node(p)})
	}

	var cycles [][]string
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		cycle := make([]string, len(scc))
		for i, n := range scc {
			cycle[i] = names[n.ID()]
		}
		sort.Strings(cycle)
		cycles = append(cycles, cycle)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}
