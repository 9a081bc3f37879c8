package tree

import (
	"log"

	"github.com/vanderheijden86/lazytree/pkg/metrics"
	"github.com/vanderheijden86/lazytree/pkg/model"
)

// SelectEntry makes id the only selected entry and persists the change.
// No-op unless HoldSelection is set.
func (s *Store) SelectEntry(id string) {
	s.apply(func(tx *txn) {
		if s.disabledLocked() || !s.cfg.HoldSelection || s.getLocked(id) == nil {
			return
		}
		if s.selectLocked(tx, id) {
			s.persistLocked(tx)
		}
	})
}

// ToggleSelection flips id in multi-selection mode and behaves like
// SelectEntry in single-selection mode.
func (s *Store) ToggleSelection(id string) {
	s.apply(func(tx *txn) {
		if s.disabledLocked() || !s.cfg.HoldSelection {
			return
		}
		e := s.getLocked(id)
		if e == nil {
			return
		}
		changed := false
		if s.cfg.SingleSelection {
			changed = s.selectLocked(tx, id)
		} else {
			changed = s.setSelectedLocked(tx, id, !e.Selected)
		}
		if changed {
			s.persistLocked(tx)
		}
	})
}

// SetSelectedFromExternal reveals and selects id: expanded entries outside
// its ancestor chain are collapsed, ancestors are expanded (loading them if
// needed), and the resulting state is written once.
func (s *Store) SetSelectedFromExternal(id string) {
	s.apply(func(tx *txn) {
		if s.disabledLocked() || s.getLocked(id) == nil {
			return
		}
		chain := s.ancestorsLocked(id)
		onChain := make(map[string]bool, len(chain))
		for _, a := range chain {
			onChain[a] = true
		}
		for _, e := range s.entries {
			if e.Expanded && !onChain[e.ID] {
				eid := e.ID
				s.updateLocked(tx, eid, func(e *Entry) { e.Expanded = false })
				tx.emit(EventExpansion, eid)
			}
		}
		// Outermost ancestor first.
		for i := len(chain) - 1; i >= 0; i-- {
			s.expandLocked(tx, chain[i], true, false)
		}
		if s.cfg.HoldSelection {
			s.selectLocked(tx, id)
		}
		s.persistLocked(tx)
	})
}

// ExpandKey expands or collapses id. Expanding an entry whose children have
// not been fetched starts a child load instead; the entry becomes expanded
// once the load is merged. notify controls whether the change is persisted.
func (s *Store) ExpandKey(id string, expand, notify bool) {
	s.apply(func(tx *txn) {
		if s.disabledLocked() {
			return
		}
		s.expandLocked(tx, id, expand, notify)
	})
}

// ExpandAll expands every entry that has materialized children. Unloaded
// entries are not loaded.
func (s *Store) ExpandAll() {
	s.apply(func(tx *txn) {
		if s.disabledLocked() {
			return
		}
		if s.expandAllLocked(tx) {
			s.persistLocked(tx)
		}
	})
}

// CollapseAll collapses every expanded entry.
func (s *Store) CollapseAll() {
	s.apply(func(tx *txn) {
		if s.disabledLocked() {
			return
		}
		if s.collapseAllLocked(tx) {
			s.persistLocked(tx)
		}
	})
}

// selectLocked deselects every other entry and selects id.
func (s *Store) selectLocked(tx *txn, id string) bool {
	changed := false
	for _, e := range s.entries {
		if e.Selected && e.ID != id {
			eid := e.ID
			s.updateLocked(tx, eid, func(e *Entry) { e.Selected = false })
			tx.emit(EventSelection, eid)
			changed = true
		}
	}
	if s.setSelectedLocked(tx, id, true) {
		changed = true
	}
	return changed
}

func (s *Store) setSelectedLocked(tx *txn, id string, selected bool) bool {
	e := s.getLocked(id)
	if e == nil || e.Selected == selected {
		return false
	}
	s.updateLocked(tx, id, func(e *Entry) { e.Selected = selected })
	tx.emit(EventSelection, id)
	return true
}

func (s *Store) expandLocked(tx *txn, id string, expand, notify bool) {
	e := s.getLocked(id)
	if e == nil {
		return
	}
	if expand && !e.Loaded {
		if s.children == nil {
			s.updateLocked(tx, id, func(e *Entry) {
				e.Loaded = true
				e.Expanded = true
			})
			tx.emit(EventExpansion, id)
			if notify {
				s.persistLocked(tx)
			}
			return
		}
		if e.Loading {
			return
		}
		s.updateLocked(tx, id, func(e *Entry) { e.Loading = true })
		tx.emit(EventLoading, id)
		parent := e.detached()
		parent.Loading = true
		gen := s.generation
		tx.spawn(func() { s.loadChildren(parent, gen, notify) })
		return
	}
	if e.Expanded == expand {
		return
	}
	s.updateLocked(tx, id, func(e *Entry) { e.Expanded = expand })
	tx.emit(EventExpansion, id)
	if notify {
		s.persistLocked(tx)
	}
}

func (s *Store) loadChildren(parent Entry, gen uint64, notify bool) {
	ctx, cancel := s.opContext()
	defer cancel()

	done := metrics.Timer(metrics.ChildLoad)
	recs, err := s.children.LoadChildren(ctx, parent)
	done()
	if err != nil {
		log.Printf("warning: loading children of %s: %v", parent.ID, err)
		recs = nil
	}

	s.apply(func(tx *txn) {
		if s.generation != gen || s.getLocked(parent.ID) == nil {
			s.logStale("child load", parent.ID)
			return
		}
		found := false
		for _, r := range recs {
			if r.ID != parent.ID {
				found = true
				break
			}
		}
		if found {
			s.setEntriesLocked(tx, withParent(recs, parent, s.cfg.Relation), SetOptions{ExpandAfter: parent.ID})
		}
		s.updateLocked(tx, parent.ID, func(e *Entry) {
			e.Loading = false
			e.Loaded = true
			if found {
				e.HasChildren = ChildrenPresent
			} else {
				e.HasChildren = ChildrenAbsent
				e.Expanded = false
			}
		})
		tx.emit(EventLoading, parent.ID)
		if found && notify {
			s.persistLocked(tx)
		}
	})
}

// withParent fills in the parent reference of loaded children that did not
// carry one, so they attach to the entry that was expanded.
func withParent(recs []model.Record, parent Entry, rel Relation) []model.Record {
	if rel != RelationParent {
		return recs
	}
	out := make([]model.Record, len(recs))
	for i, r := range recs {
		if r.ParentID == "" && r.ID != parent.ID {
			r = r.Clone()
			r.ParentID = parent.ID
		}
		out[i] = r
	}
	return out
}

func (s *Store) expandAllLocked(tx *txn) bool {
	f := s.forestLocked()
	changed := false
	for _, n := range f.Nodes {
		if len(n.Children) == 0 {
			continue
		}
		e := s.entries[s.index[n.ID]]
		if e.Expanded {
			continue
		}
		s.updateLocked(tx, n.ID, func(e *Entry) { e.Expanded = true })
		tx.emit(EventExpansion, n.ID)
		changed = true
	}
	return changed
}

func (s *Store) collapseAllLocked(tx *txn) bool {
	changed := false
	for _, e := range s.entries {
		if !e.Expanded {
			continue
		}
		eid := e.ID
		s.updateLocked(tx, eid, func(e *Entry) { e.Expanded = false })
		tx.emit(EventExpansion, eid)
		changed = true
	}
	return changed
}

// ancestorsLocked returns id's ancestors, nearest first, stopping at a
// root, an unresolved parent or a revisit.
func (s *Store) ancestorsLocked(id string) []string {
	parents := ParentMap(s.valuesLocked(), s.cfg.Relation)
	var chain []string
	seen := map[string]bool{id: true}
	for cur := id; ; {
		p, ok := parents[cur]
		if !ok || s.getLocked(p) == nil || seen[p] {
			return chain
		}
		seen[p] = true
		chain = append(chain, p)
		cur = p
	}
}

// valuesLocked returns shallow entry values for pure derivations that do
// not escape the lock.
func (s *Store) valuesLocked() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
	}
	return out
}

func (s *Store) forestLocked() Forest {
	return BuildForest(s.valuesLocked(), s.cfg.Relation)
}
