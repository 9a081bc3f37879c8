// Package tree is a lazily-loaded, filterable tree node store.
//
// A Store holds a flat, ordered collection of Entries for one context (a
// tenant, workspace or project scope). The hierarchy is never stored; it is
// derived on demand by BuildForest from parent or child references, so the
// same collection can be viewed unfiltered or narrowed by a search. UI state
// (expanded, selected) lives on the entries and is persisted per context
// through a navstate.Persister.
package tree

import (
	"github.com/vanderheijden86/lazytree/pkg/model"
)

// ChildState is the tri-state "has children" flag. Unknown means the node
// has not been loaded yet and may or may not have children.
type ChildState int8

const (
	ChildrenUnknown ChildState = iota
	ChildrenPresent
	ChildrenAbsent
)

func (c ChildState) String() string {
	switch c {
	case ChildrenPresent:
		return "present"
	case ChildrenAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

func childStateOf(b *bool) ChildState {
	switch {
	case b == nil:
		return ChildrenUnknown
	case *b:
		return ChildrenPresent
	default:
		return ChildrenAbsent
	}
}

// Display carries the presentation fields computed by the factory.
type Display struct {
	Title string
	Icon  string
	Class string
}

// Entry wraps one record with its tree identity and UI state.
type Entry struct {
	ID          string
	ParentID    string
	ChildIDs    []string
	IsRoot      bool
	HasChildren ChildState

	Loaded   bool // children have been fetched (always true without a ChildLoader)
	Loading  bool // a child load is in flight
	Expanded bool
	Selected bool

	Display Display
	Record  model.Record

	sub Subscription
}

// Expandable reports whether the entry may show an expansion toggle.
func (e Entry) Expandable() bool {
	switch e.HasChildren {
	case ChildrenPresent:
		return true
	case ChildrenAbsent:
		return false
	}
	return !e.Loaded || len(e.ChildIDs) > 0
}

// detached returns a copy safe to hand to callers.
func (e Entry) detached() Entry {
	e.sub = nil
	if e.ChildIDs != nil {
		e.ChildIDs = append([]string(nil), e.ChildIDs...)
	}
	e.Record = e.Record.Clone()
	return e
}
