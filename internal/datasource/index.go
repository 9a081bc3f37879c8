package datasource

import (
	"sort"
	"strings"

	"github.com/vanderheijden86/lazytree/pkg/model"
)

// AllContext selects every top-level record as a root.
const AllContext = "*"

// recordIndex is an immutable lookup structure over one record set.
type recordIndex struct {
	records  []model.Record
	byID     map[string]int
	children map[string][]string // parent id -> child ids, in file order
}

func newRecordIndex(records []model.Record) *recordIndex {
	idx := &recordIndex{
		records:  records,
		byID:     make(map[string]int, len(records)),
		children: make(map[string][]string),
	}
	for i, r := range records {
		idx.byID[r.ID] = i
	}
	for _, r := range records {
		if r.ParentID != "" {
			idx.children[r.ParentID] = append(idx.children[r.ParentID], r.ID)
		}
	}
	return idx
}

func (idx *recordIndex) get(id string) (model.Record, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return model.Record{}, false
	}
	return idx.records[i], true
}

// childIDs prefers an explicit child list over parent back-references.
func (idx *recordIndex) childIDs(id string) []string {
	if r, ok := idx.get(id); ok && len(r.ChildIDs) > 0 {
		return r.ChildIDs
	}
	return idx.children[id]
}

// withChildState returns a copy with HasChildren filled from the index.
func (idx *recordIndex) withChildState(r model.Record) model.Record {
	out := r.Clone()
	if out.HasChildren == nil {
		has := false
		for _, c := range idx.childIDs(r.ID) {
			if _, ok := idx.byID[c]; ok {
				has = true
				break
			}
		}
		out.HasChildren = model.Bool(has)
	}
	return out
}

func (idx *recordIndex) topLevel() []model.Record {
	var out []model.Record
	for _, r := range idx.records {
		if r.ParentID == "" || r.Root {
			out = append(out, r)
		} else if _, ok := idx.byID[r.ParentID]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// roots returns the root records of a context, marked Root. With eager set,
// every descendant follows in depth-first order.
func (idx *recordIndex) roots(contextID string, eager bool) []model.Record {
	var top []model.Record
	if contextID == AllContext {
		top = idx.topLevel()
	} else {
		for _, id := range idx.childIDs(contextID) {
			if r, ok := idx.get(id); ok {
				top = append(top, r)
			}
		}
	}
	out := make([]model.Record, 0, len(top))
	seen := make(map[string]bool)
	for _, r := range top {
		root := idx.withChildState(r)
		root.Root = true
		out = append(out, root)
		seen[r.ID] = true
		if eager {
			out = idx.appendDescendants(out, r.ID, seen)
		}
	}
	return out
}

func (idx *recordIndex) appendDescendants(out []model.Record, id string, seen map[string]bool) []model.Record {
	for _, c := range idx.childIDs(id) {
		r, ok := idx.get(c)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, idx.withChildState(r))
		out = idx.appendDescendants(out, c, seen)
	}
	return out
}

func (idx *recordIndex) childrenOf(id string) []model.Record {
	ids := idx.childIDs(id)
	out := make([]model.Record, 0, len(ids))
	for _, c := range ids {
		if r, ok := idx.get(c); ok {
			out = append(out, idx.withChildState(r))
		}
	}
	return out
}

// matchText is the plain case-insensitive substring query used by text
// search and as the expression fallback.
func matchText(r model.Record, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	return strings.Contains(strings.ToLower(r.Title), q) || strings.Contains(strings.ToLower(r.ID), q)
}

func (idx *recordIndex) search(query string) []string {
	var ids []string
	for _, r := range idx.records {
		if matchText(r, query) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func sortedIDs(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
