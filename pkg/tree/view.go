package tree

// Row is one visible line of the tree.
type Row struct {
	ID          string
	Depth       int
	Display     Display
	Expanded    bool
	Selected    bool
	Loading     bool
	Expandable  bool
	Highlighted bool // search match
	Context     bool // ancestor shown only to give a match its path
}

// View is the derived, read-only picture of the store at one version.
// Callers must not modify its slices or maps.
type View struct {
	Version     uint64
	ContextID   string
	Query       string
	Searching   bool
	Loading     bool
	Entries     []Entry // the entries Forest indexes into
	Forest      Forest
	Rows        []Row
	Highlighted map[string]bool
}

// Lookup returns the entry for a forest node.
func (v View) Lookup(id string) (Entry, bool) {
	n, ok := v.Forest.Lookup(id)
	if !ok {
		return Entry{}, false
	}
	return v.Entries[n.Entry], true
}

// View derives the visible tree. With an active search only matches and
// their ancestors are included; context ancestors always show their
// children. Results are memoized per store version.
func (s *Store) View() View {
	s.mu.Lock()
	version := s.version
	s.mu.Unlock()

	s.viewMu.Lock()
	if s.view != nil && s.viewAtVers == version {
		v := *s.view
		s.viewMu.Unlock()
		return v
	}
	s.viewMu.Unlock()

	s.mu.Lock()
	version = s.version
	all := s.snapshotLocked()
	query := s.searchQuery
	filter := make(map[string]struct{}, len(s.filterIDs))
	for id := range s.filterIDs {
		filter[id] = struct{}{}
	}
	v := View{
		Version:   version,
		ContextID: s.contextID,
		Query:     query,
		Searching: s.searching,
		Loading:   s.rootLoading,
	}
	s.mu.Unlock()

	if query != "" {
		v.Entries, v.Highlighted = FilterEntries(all, ParentMap(all, s.cfg.Relation), filter)
	} else {
		v.Entries, v.Highlighted = all, map[string]bool{}
	}
	v.Forest = BuildForest(v.Entries, s.cfg.Relation)
	v.Rows = flatten(v.Entries, v.Forest, v.Highlighted, query != "")

	s.viewMu.Lock()
	if s.view == nil || s.viewAtVers <= version {
		cached := v
		s.view, s.viewAtVers = &cached, version
	}
	s.viewMu.Unlock()
	return v
}

// flatten walks the forest in pre-order, descending into expanded nodes.
func flatten(entries []Entry, f Forest, highlighted map[string]bool, filtered bool) []Row {
	rows := make([]Row, 0, len(f.Nodes))
	var visit func(ni int)
	visit = func(ni int) {
		n := f.Nodes[ni]
		e := entries[n.Entry]
		ctxRow := filtered && !highlighted[e.ID]
		rows = append(rows, Row{
			ID:          e.ID,
			Depth:       n.Depth,
			Display:     e.Display,
			Expanded:    e.Expanded,
			Selected:    e.Selected,
			Loading:     e.Loading,
			Expandable:  e.Expandable() || len(n.Children) > 0,
			Highlighted: highlighted[e.ID],
			Context:     ctxRow,
		})
		if !e.Expanded && !ctxRow {
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, r := range f.Roots {
		visit(r)
	}
	return rows
}
