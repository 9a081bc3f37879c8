package tree

import (
	"log"

	"github.com/vanderheijden86/lazytree/pkg/metrics"
)

// FilterEntries narrows entries to the search matches in filter plus their
// ancestors. Matches are returned in highlighted; ancestors pulled in only
// for context are included once and are not highlighted. The walk up the
// parent map stops at a root, at an unresolved parent, or on revisiting a
// node (a cycle). Input order is preserved.
func FilterEntries(entries []Entry, parents map[string]string, filter map[string]struct{}) (view []Entry, highlighted map[string]bool) {
	defer metrics.Timer(metrics.SearchView)()

	highlighted = make(map[string]bool, len(filter))
	if len(filter) == 0 {
		return nil, highlighted
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.ID] = true
	}

	include := make(map[string]bool, len(filter))
	for _, e := range entries {
		if _, ok := filter[e.ID]; !ok || highlighted[e.ID] {
			continue
		}
		highlighted[e.ID] = true
		include[e.ID] = true

		seen := map[string]bool{e.ID: true}
		cur := e.ID
		for {
			p, ok := parents[cur]
			if !ok || p == "" || !present[p] || seen[p] {
				break
			}
			seen[p] = true
			if include[p] {
				// Already walked from an earlier match.
				break
			}
			include[p] = true
			cur = p
		}
	}

	view = make([]Entry, 0, len(include))
	added := make(map[string]bool, len(include))
	for _, e := range entries {
		if include[e.ID] && !added[e.ID] {
			added[e.ID] = true
			view = append(view, e)
		}
	}
	return view, highlighted
}

// ContextRows returns the ids in view that are not highlighted.
func ContextRows(view []Entry, highlighted map[string]bool) []string {
	var out []string
	for _, e := range view {
		if !highlighted[e.ID] {
			out = append(out, e.ID)
		}
	}
	return out
}

// Search runs query through the configured Searcher. An empty query clears
// the filter and collapses everything without calling the searcher. A
// non-empty result expands all entries so matches are visible; neither
// outcome is persisted. No-op without a Searcher.
func (s *Store) Search(query string) {
	s.apply(func(tx *txn) {
		if s.disabledLocked() || s.searcher == nil {
			return
		}
		s.searchSeq++
		if query == "" {
			s.searchQuery = ""
			s.searching = false
			s.filterIDs = nil
			s.collapseAllLocked(tx)
			tx.emit(EventSearch, "")
			return
		}
		s.searching = true
		tx.emit(EventSearch, "")
		seq, gen := s.searchSeq, s.generation
		tx.spawn(func() { s.runSearch(query, seq, gen) })
	})
}

func (s *Store) runSearch(query string, seq, gen uint64) {
	ctx, cancel := s.opContext()
	defer cancel()
	ids, err := s.searcher.Search(ctx, query)

	s.apply(func(tx *txn) {
		if s.searchSeq != seq || s.generation != gen {
			s.logStale("search", query)
			return
		}
		s.searching = false
		tx.emit(EventSearch, "")
		if err != nil {
			log.Printf("warning: search %q: %v", query, err)
			return
		}
		s.searchQuery = query
		s.filterIDs = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			s.filterIDs[id] = struct{}{}
		}
		if len(ids) > 0 {
			s.expandAllLocked(tx)
		}
	})
}

// SearchQuery returns the query whose results are currently applied.
func (s *Store) SearchQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchQuery
}

// Searching reports whether a search is in flight.
func (s *Store) Searching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searching
}

// FilterIDs returns the ids matched by the current search, in collection
// order.
func (s *Store) FilterIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keysLocked(func(e *Entry) bool {
		_, ok := s.filterIDs[e.ID]
		return ok
	})
}
