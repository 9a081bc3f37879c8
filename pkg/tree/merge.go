package tree

import (
	"log"
	"strings"

	"github.com/vanderheijden86/lazytree/pkg/metrics"
	"github.com/vanderheijden86/lazytree/pkg/model"
)

// SetOptions controls how SetEntries merges a batch.
type SetOptions struct {
	// Clean replaces the whole collection and restores navigation state.
	Clean bool
	// ExpandAfter forces this id expanded once the merge is done.
	ExpandAfter string
}

// SetEntries ingests records. A clean set replaces the collection; otherwise
// records are merged by id, replacing existing entries at their position and
// appending new ones. Invalid records are skipped with a warning. No-op while
// the store is disabled.
func (s *Store) SetEntries(records []model.Record, opts SetOptions) {
	s.apply(func(tx *txn) {
		if s.disabledLocked() {
			return
		}
		s.setEntriesLocked(tx, records, opts)
	})
}

func (s *Store) setEntriesLocked(tx *txn, records []model.Record, opts SetOptions) {
	defer metrics.Timer(metrics.Merge)()

	var entries []*Entry
	var index map[string]int
	if opts.Clean {
		s.releaseAllLocked()
		entries = make([]*Entry, 0, len(records))
		index = make(map[string]int, len(records))
	} else {
		entries = append(make([]*Entry, 0, len(s.entries)+len(records)), s.entries...)
		index = make(map[string]int, len(s.index)+len(records))
		for id, i := range s.index {
			index[id] = i
		}
	}

	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			log.Printf("warning: skipping record %q: %v", rec.ID, err)
			continue
		}
		e := s.factory.New(rec)
		if i, ok := index[rec.ID]; ok {
			old := entries[i]
			carryState(e, old)
			s.factory.Release(old)
			entries[i] = e
			continue
		}
		index[rec.ID] = len(entries)
		entries = append(entries, e)
	}

	s.entries, s.index = entries, index
	tx.cow = true
	tx.emit(EventEntries, "")

	if opts.Clean {
		s.clearSearchLocked(tx)
		s.mergeGen++
		s.restoreLocked(tx)
	}
	if opts.ExpandAfter != "" {
		if s.updateLocked(tx, opts.ExpandAfter, func(e *Entry) { e.Expanded = true }) {
			tx.emit(EventExpansion, opts.ExpandAfter)
		}
	}
	s.checkCyclesLocked(tx)
}

// carryState moves UI state from a replaced entry onto its successor.
func carryState(e, old *Entry) {
	e.Expanded = old.Expanded
	e.Selected = old.Selected
	e.Loading = old.Loading
	e.Loaded = e.Loaded || old.Loaded
	// Refreshed records come back from a resolver without the root mark the
	// bulk load gave them; keep it unless the record moved.
	if old.IsRoot && e.ParentID == old.ParentID {
		e.IsRoot = true
	}
	if e.Record.HasChildren == nil && len(e.ChildIDs) == 0 {
		e.HasChildren = old.HasChildren
	}
}

func (s *Store) checkCyclesLocked(tx *txn) {
	cycles := DetectCycles(s.valuesLocked(), s.cfg.Relation)
	if len(cycles) == 0 {
		s.removeValidationLocked(tx, MsgRelationCycle)
		return
	}
	parts := make([]string, len(cycles))
	for i, c := range cycles {
		parts[i] = strings.Join(c, " -> ")
	}
	s.addValidationLocked(tx, Message{
		ID:   MsgRelationCycle,
		Text: "entries form a cycle and are hidden: " + strings.Join(parts, "; "),
	})
}

// RemoveEntry destroys the entry with id. Its descendants stay in the
// collection and drop out of the view as orphans.
func (s *Store) RemoveEntry(id string) {
	s.apply(func(tx *txn) {
		if s.disabledLocked() {
			return
		}
		s.removeLocked(tx, id)
	})
}

func (s *Store) removeLocked(tx *txn, id string) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	old := s.entries[i]
	s.factory.Release(old)

	entries := make([]*Entry, 0, len(s.entries)-1)
	entries = append(entries, s.entries[:i]...)
	entries = append(entries, s.entries[i+1:]...)
	index := make(map[string]int, len(entries))
	for j, e := range entries {
		index[e.ID] = j
	}
	s.entries, s.index = entries, index
	tx.cow = true
	tx.emit(EventEntries, id)
	if old.Selected {
		tx.emit(EventSelection, id)
	}
	s.checkCyclesLocked(tx)
}

// SetExpanded expands or collapses id without writing navigation state.
// Expanding an unloaded entry goes through the child loader.
func (s *Store) SetExpanded(id string, expanded bool) {
	s.ExpandKey(id, expanded, false)
}

// SetSelected sets the raw selection flag of id. Single-selection mode is
// still enforced.
func (s *Store) SetSelected(id string, selected bool) {
	s.apply(func(tx *txn) {
		if s.disabledLocked() || !s.cfg.HoldSelection {
			return
		}
		if selected && s.cfg.SingleSelection {
			s.selectLocked(tx, id)
			return
		}
		s.setSelectedLocked(tx, id, selected)
	})
}

// SetLoaded marks id as loaded (or not).
func (s *Store) SetLoaded(id string, loaded bool) {
	s.apply(func(tx *txn) {
		if s.disabledLocked() {
			return
		}
		e := s.getLocked(id)
		if e == nil || e.Loaded == loaded {
			return
		}
		s.updateLocked(tx, id, func(e *Entry) {
			e.Loaded = loaded
			if !loaded {
				e.Expanded = false
			}
		})
		tx.emit(EventLoading, id)
	})
}

// SetParent moves id under parentID ("" makes it a root).
func (s *Store) SetParent(id, parentID string) {
	s.apply(func(tx *txn) {
		if s.disabledLocked() || id == parentID {
			return
		}
		e := s.getLocked(id)
		if e == nil || e.ParentID == parentID {
			return
		}
		s.updateLocked(tx, id, func(e *Entry) {
			e.ParentID = parentID
			e.Record.ParentID = parentID
		})
		tx.emit(EventEntries, id)
		s.checkCyclesLocked(tx)
	})
}

// SetHasChildren overrides the tri-state child flag of id.
func (s *Store) SetHasChildren(id string, state ChildState) {
	s.apply(func(tx *txn) {
		if s.disabledLocked() {
			return
		}
		e := s.getLocked(id)
		if e == nil || e.HasChildren == state {
			return
		}
		s.updateLocked(tx, id, func(e *Entry) { e.HasChildren = state })
		tx.emit(EventEntries, id)
	})
}

// refreshEntry is the change-feed callback: re-resolve id asynchronously.
func (s *Store) refreshEntry(id string) {
	if s.resolver == nil {
		return
	}
	s.apply(func(tx *txn) {
		if s.getLocked(id) == nil {
			return
		}
		gen := s.generation
		tx.spawn(func() { s.resolveEntry(id, gen) })
	})
}

func (s *Store) resolveEntry(id string, gen uint64) {
	ctx, cancel := s.opContext()
	defer cancel()

	done := metrics.Timer(metrics.Resolve)
	rec, err := s.resolver.Resolve(ctx, id)
	done()
	if err != nil {
		log.Printf("warning: resolving %s: %v", id, err)
		return
	}

	s.apply(func(tx *txn) {
		if s.generation != gen || s.getLocked(id) == nil {
			s.logStale("resolve", id)
			return
		}
		if rec == nil {
			s.removeLocked(tx, id)
			return
		}
		if rec.ID != id {
			log.Printf("warning: resolver returned %q for %q", rec.ID, id)
			return
		}
		s.setEntriesLocked(tx, []model.Record{*rec}, SetOptions{})
	})
}
