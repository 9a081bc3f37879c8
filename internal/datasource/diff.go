package datasource

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/lazytree/pkg/model"
)

// RecordDiff lists the ids that differ between two snapshots of a source.
type RecordDiff struct {
	Added   []string
	Removed []string
	Changed []string
}

// DiffRecords compares two record sets by id and content.
func DiffRecords(old, next []model.Record) RecordDiff {
	before := make(map[string]model.Record, len(old))
	for _, r := range old {
		before[r.ID] = r
	}
	after := make(map[string]bool, len(next))
	added := make(map[string]bool)
	changed := make(map[string]bool)
	for _, r := range next {
		after[r.ID] = true
		prev, ok := before[r.ID]
		switch {
		case !ok:
			added[r.ID] = true
		case !prev.Equal(r):
			changed[r.ID] = true
		}
	}
	removed := make(map[string]bool)
	for id := range before {
		if !after[id] {
			removed[id] = true
		}
	}
	return RecordDiff{
		Added:   sortedIDs(added),
		Removed: sortedIDs(removed),
		Changed: sortedIDs(changed),
	}
}

// Empty reports whether nothing changed.
func (d RecordDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Stale returns the ids whose existing entries must be re-resolved.
func (d RecordDiff) Stale() []string {
	out := make([]string, 0, len(d.Changed)+len(d.Removed))
	out = append(out, d.Changed...)
	return append(out, d.Removed...)
}

// Summary returns a human-readable description.
func (d RecordDiff) Summary() string {
	if d.Empty() {
		return "no changes"
	}
	var parts []string
	add := func(n int, what string, ids []string) {
		if n == 0 {
			return
		}
		s := fmt.Sprintf("%d %s", n, what)
		if n <= 5 {
			s += " (" + strings.Join(ids, ", ") + ")"
		}
		parts = append(parts, s)
	}
	add(len(d.Added), "added", d.Added)
	add(len(d.Changed), "changed", d.Changed)
	add(len(d.Removed), "removed", d.Removed)
	return strings.Join(parts, "; ")
}
