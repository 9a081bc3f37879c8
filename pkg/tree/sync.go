package tree

import (
	"context"
	"log"

	"github.com/vanderheijden86/lazytree/pkg/debug"
	"github.com/vanderheijden86/lazytree/pkg/metrics"
	"github.com/vanderheijden86/lazytree/pkg/model"
	"github.com/vanderheijden86/lazytree/pkg/navstate"
)

// SetContext switches the store to contextID. Unless a search is active,
// the outgoing context's expansion is cached and persisted first. The
// collection is then released, search state cleared and the reset flag
// raised; with a RootLoader the new context is loaded in the background.
// Returns false when contextID is already active.
func (s *Store) SetContext(contextID string) bool {
	changed := false
	s.apply(func(tx *txn) {
		if contextID == s.contextID {
			return
		}
		changed = true
		if old := s.contextID; old != "" && !s.searchActiveLocked() {
			s.cache[old] = s.keysLocked(func(e *Entry) bool { return e.Expanded })
			s.persistLocked(tx)
		}
		s.releaseAllLocked()
		tx.cow = true
		s.clearSearchLocked(tx)
		s.contextID = contextID
		s.generation++
		s.rootLoading = false
		s.reset = true
		tx.emit(EventContextReset, "")
		if contextID != "" && s.roots != nil && !s.disabledLocked() {
			s.loadRootsLocked(tx, s.ctx)
		}
	})
	return changed
}

// Reload re-runs the bulk load for the current context. ctx bounds the
// loader call in addition to the store's own lifetime.
func (s *Store) Reload(ctx context.Context) {
	s.apply(func(tx *txn) {
		if s.disabledLocked() || s.roots == nil {
			return
		}
		s.loadRootsLocked(tx, ctx)
	})
}

func (s *Store) loadRootsLocked(tx *txn, parent context.Context) {
	s.rootLoading = true
	tx.emit(EventLoading, "")
	gen := s.generation
	contextID := s.contextID
	tx.spawn(func() {
		ctx, cancel := s.opContext()
		defer cancel()
		stop := context.AfterFunc(parent, cancel)
		defer stop()

		done := metrics.Timer(metrics.RootLoad)
		recs, err := s.roots.LoadRoots(ctx, contextID)
		done()
		if err != nil {
			log.Printf("warning: loading %s: %v", contextID, err)
			recs = nil
		}
		s.apply(func(tx *txn) {
			if s.generation != gen {
				s.logStale("root load", contextID)
				return
			}
			s.rootLoading = false
			tx.emit(EventLoading, "")
			if s.disabledLocked() {
				return
			}
			if recs == nil {
				recs = []model.Record{}
			}
			s.setEntriesLocked(tx, recs, SetOptions{Clean: true})
		})
	})
}

// persistLocked queues a write of the current navigation state.
func (s *Store) persistLocked(tx *txn) {
	if s.contextID == "" || s.persister == nil {
		return
	}
	state := navstate.New(
		s.contextID,
		s.keysLocked(func(e *Entry) bool { return e.Expanded }),
		s.keysLocked(func(e *Entry) bool { return e.Selected }),
	)
	seq := s.writeSeq.Add(1)
	tx.spawn(func() { s.writeState(state, seq) })
}

// writeState serializes writes; a write older than one already stored for
// the same context is dropped so the newest state wins.
func (s *Store) writeState(state navstate.NavState, seq uint64) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if seq < s.lastSeq[state.ContextID] {
		debug.Log("dropping superseded nav state write %d for %s", seq, state.ContextID)
		return
	}
	s.lastSeq[state.ContextID] = seq

	ctx, cancel := s.opContext()
	defer cancel()
	done := metrics.Timer(metrics.StateWrite)
	err := s.persister.Write(ctx, state)
	done()
	if err != nil {
		log.Printf("warning: saving tree state for %s: %v", state.ContextID, err)
	}
}

// restoreLocked restores selection, then expansion, after a clean merge.
func (s *Store) restoreLocked(tx *txn) {
	if s.contextID == "" {
		return
	}
	if s.persister == nil {
		if keys := s.cache[s.contextID]; len(keys) > 0 {
			s.applyRestoreLocked(tx, navstate.NavState{ContextID: s.contextID, ExpandedKeys: keys})
		}
		return
	}
	gen, merge, contextID := s.generation, s.mergeGen, s.contextID
	tx.spawn(func() {
		ctx, cancel := s.opContext()
		defer cancel()
		done := metrics.Timer(metrics.StateRead)
		st, err := s.persister.Read(ctx, contextID)
		done()
		if err != nil {
			log.Printf("warning: loading tree state for %s: %v", contextID, err)
			return
		}
		if st == nil {
			return
		}
		s.apply(func(tx *txn) {
			if s.generation != gen || s.mergeGen != merge {
				s.logStale("state restore", contextID)
				return
			}
			s.applyRestoreLocked(tx, *st)
		})
	})
}

// applyRestoreLocked applies a snapshot filtered to the ids present now.
// Unknown ids are ignored.
func (s *Store) applyRestoreLocked(tx *txn, st navstate.NavState) {
	st = st.Filter(func(id string) bool { return s.getLocked(id) != nil })
	if s.cfg.HoldSelection && len(st.SelectedKeys) > 0 {
		if s.cfg.SingleSelection {
			s.selectLocked(tx, st.SelectedKeys[0])
		} else {
			for _, id := range st.SelectedKeys {
				s.setSelectedLocked(tx, id, true)
			}
		}
	}
	for _, id := range st.ExpandedKeys {
		s.expandLocked(tx, id, true, false)
	}
}

func (s *Store) searchActiveLocked() bool {
	return s.searchQuery != "" || s.searching
}

func (s *Store) clearSearchLocked(tx *txn) {
	if !s.searchActiveLocked() && s.filterIDs == nil {
		return
	}
	s.searchQuery = ""
	s.searching = false
	s.filterIDs = nil
	s.searchSeq++
	tx.emit(EventSearch, "")
}
