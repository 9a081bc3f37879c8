// Package model defines the record shape shared by data sources, the tree
// store and persistence backends.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Record is one hierarchical row as delivered by a data source.
//
// A record expresses its place in the hierarchy either through ParentID
// (parent reference) or through ChildIDs (child references); which one the
// tree honours is a store configuration switch.
type Record struct {
	ID          string            `json:"id"`
	ParentID    string            `json:"parent_id,omitempty"`
	ChildIDs    []string          `json:"child_ids,omitempty"`
	Root        bool              `json:"root,omitempty"`         // Designated root regardless of ParentID
	HasChildren *bool             `json:"has_children,omitempty"` // nil = unknown until loaded
	Title       string            `json:"title,omitempty"`
	Icon        string            `json:"icon,omitempty"`
	Class       string            `json:"class,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at,omitempty"`
}

// Validation errors returned by Record.Validate.
var (
	ErrEmptyID    = errors.New("record id is empty")
	ErrSelfParent = errors.New("record is its own parent")
)

// Validate checks the structural fields the tree depends on.
func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyID
	}
	if r.ParentID == r.ID {
		return fmt.Errorf("%w: %s", ErrSelfParent, r.ID)
	}
	for _, child := range r.ChildIDs {
		if child == r.ID {
			return fmt.Errorf("%w: %s lists itself as child", ErrSelfParent, r.ID)
		}
	}
	return nil
}

// Attr returns the named attribute. The well-known fields are reachable
// under their JSON names so mappings can address them uniformly.
func (r Record) Attr(name string) string {
	switch name {
	case "id":
		return r.ID
	case "parent_id":
		return r.ParentID
	case "title":
		return r.Title
	case "icon":
		return r.Icon
	case "class":
		return r.Class
	}
	return r.Attributes[name]
}

// Equal reports whether two records carry the same content.
func (r Record) Equal(o Record) bool {
	if r.ID != o.ID || r.ParentID != o.ParentID || r.Root != o.Root ||
		r.Title != o.Title || r.Icon != o.Icon || r.Class != o.Class ||
		!r.UpdatedAt.Equal(o.UpdatedAt) {
		return false
	}
	if (r.HasChildren == nil) != (o.HasChildren == nil) {
		return false
	}
	if r.HasChildren != nil && *r.HasChildren != *o.HasChildren {
		return false
	}
	if len(r.ChildIDs) != len(o.ChildIDs) || len(r.Attributes) != len(o.Attributes) {
		return false
	}
	for i := range r.ChildIDs {
		if r.ChildIDs[i] != o.ChildIDs[i] {
			return false
		}
	}
	for k, v := range r.Attributes {
		if ov, ok := o.Attributes[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (r Record) Clone() Record {
	out := r
	if r.ChildIDs != nil {
		out.ChildIDs = append([]string(nil), r.ChildIDs...)
	}
	if r.HasChildren != nil {
		v := *r.HasChildren
		out.HasChildren = &v
	}
	if r.Attributes != nil {
		out.Attributes = make(map[string]string, len(r.Attributes))
		for k, v := range r.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

// Bool is a small helper for populating HasChildren literals.
func Bool(v bool) *bool { return &v }
