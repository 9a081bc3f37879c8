package tree

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/lazytree/pkg/metrics"
)

// Relation selects which references define the hierarchy.
type Relation int

const (
	// RelationParent reads each entry's ParentID.
	RelationParent Relation = iota
	// RelationChildren reads ChildIDs lists and inverts them.
	RelationChildren
)

func (r Relation) String() string {
	switch r {
	case RelationParent:
		return "parent"
	case RelationChildren:
		return "children"
	}
	return fmt.Sprintf("relation(%d)", int(r))
}

// ParseRelation maps a config value to a Relation.
func ParseRelation(s string) (Relation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "parent":
		return RelationParent, nil
	case "children", "child":
		return RelationChildren, nil
	}
	return 0, fmt.Errorf("unknown relation %q (want parent or children)", s)
}

// Node is one placed entry in a Forest.
type Node struct {
	ID       string
	Entry    int // index into the slice the forest was built from
	Parent   int // -1 for roots
	Children []int
	Depth    int
}

// Forest is an arena: nodes reference each other by index. Nodes are laid
// out in pre-order, so iterating Nodes visits the tree depth first.
type Forest struct {
	Nodes []Node
	Roots []int
	index map[string]int
}

// Len returns the number of placed nodes.
func (f Forest) Len() int { return len(f.Nodes) }

// Lookup returns the node for id.
func (f Forest) Lookup(id string) (Node, bool) {
	i, ok := f.index[id]
	if !ok {
		return Node{}, false
	}
	return f.Nodes[i], true
}

// Contains reports whether id was placed in the forest.
func (f Forest) Contains(id string) bool {
	_, ok := f.index[id]
	return ok
}

// Path returns the ids from the root down to id, or nil if id is absent.
func (f Forest) Path(id string) []string {
	i, ok := f.index[id]
	if !ok {
		return nil
	}
	var path []string
	for ; i >= 0; i = f.Nodes[i].Parent {
		path = append(path, f.Nodes[i].ID)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// ParentMap returns child id -> parent id for every entry that names a
// parent. With RelationChildren the first entry listing a child wins and
// ParentID is the fallback for children nobody lists.
func ParentMap(entries []Entry, rel Relation) map[string]string {
	parents := make(map[string]string, len(entries))
	if rel == RelationChildren {
		for _, e := range entries {
			for _, c := range e.ChildIDs {
				if c == "" || c == e.ID {
					continue
				}
				if _, ok := parents[c]; !ok {
					parents[c] = e.ID
				}
			}
		}
	}
	for _, e := range entries {
		if e.ParentID == "" || e.ParentID == e.ID {
			continue
		}
		if _, ok := parents[e.ID]; !ok {
			parents[e.ID] = e.ParentID
		}
	}
	return parents
}

// BuildForest derives the hierarchy from a flat entry collection.
//
// Roots are entries without a parent reference, plus designated roots
// (IsRoot) whose parent is not in the collection. Any other entry whose
// parent cannot be resolved is an orphan and is left out. Children keep the
// order of the input slice. Entries reachable only through a cycle have no
// path from a root and are therefore never placed.
func BuildForest(entries []Entry, rel Relation) Forest {
	defer metrics.Timer(metrics.TreeBuild)()

	f := Forest{index: make(map[string]int, len(entries))}
	if len(entries) == 0 {
		return f
	}

	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		if _, dup := byID[e.ID]; !dup {
			byID[e.ID] = i
		}
	}

	parents := ParentMap(entries, rel)
	childrenOf := make(map[string][]int)
	var rootIdx []int
	for i, e := range entries {
		if byID[e.ID] != i {
			continue
		}
		p, hasParent := parents[e.ID]
		switch {
		case !hasParent:
			rootIdx = append(rootIdx, i)
		case resolvable(byID, p):
			childrenOf[p] = append(childrenOf[p], i)
		case e.IsRoot:
			rootIdx = append(rootIdx, i)
		}
	}

	f.Nodes = make([]Node, 0, len(entries))
	visited := make(map[string]bool, len(entries))

	var place func(ei, parent, depth int) int
	place = func(ei, parent, depth int) int {
		id := entries[ei].ID
		ni := len(f.Nodes)
		f.Nodes = append(f.Nodes, Node{ID: id, Entry: ei, Parent: parent, Depth: depth})
		f.index[id] = ni
		visited[id] = true
		for _, ci := range childrenOf[id] {
			if visited[entries[ci].ID] {
				continue
			}
			c := place(ci, ni, depth+1)
			f.Nodes[ni].Children = append(f.Nodes[ni].Children, c)
		}
		return ni
	}

	for _, ri := range rootIdx {
		if visited[entries[ri].ID] {
			continue
		}
		f.Roots = append(f.Roots, place(ri, -1, 0))
	}
	return f
}

func resolvable(byID map[string]int, id string) bool {
	_, ok := byID[id]
	return ok
}
