package tree

import (
	"github.com/vanderheijden86/lazytree/pkg/model"
)

// TitleFunc computes an entry's display title from its record.
type TitleFunc func(model.Record) string

// Factory builds Entries from records. It applies the display strategy and
// wires each entry to the change feed; Release undoes the subscription.
type Factory struct {
	feed      ChangeFeed
	title     TitleFunc
	iconAttr  string
	classAttr string
	lazy      bool
	onChange  func(id string)
}

// NewFactory returns a factory for cfg. feed and onChange may be nil.
func NewFactory(cfg Config, feed ChangeFeed, lazy bool, onChange func(id string)) *Factory {
	title := cfg.Title
	if title == nil {
		attr := cfg.TitleAttribute
		title = func(r model.Record) string {
			if v := r.Attr(attr); v != "" {
				return v
			}
			return r.ID
		}
	}
	return &Factory{
		feed:      feed,
		title:     title,
		iconAttr:  cfg.IconAttribute,
		classAttr: cfg.ClassAttribute,
		lazy:      lazy,
		onChange:  onChange,
	}
}

// New creates an entry for rec and subscribes it to the change feed.
func (f *Factory) New(rec model.Record) *Entry {
	rec = rec.Clone()
	e := &Entry{
		ID:          rec.ID,
		ParentID:    rec.ParentID,
		ChildIDs:    rec.ChildIDs,
		IsRoot:      rec.Root,
		HasChildren: childStateOf(rec.HasChildren),
		Loaded:      !f.lazy,
		Record:      rec,
	}
	if e.HasChildren == ChildrenUnknown && len(rec.ChildIDs) > 0 {
		e.HasChildren = ChildrenPresent
	}
	e.Display = Display{Title: f.title(rec)}
	if f.iconAttr != "" {
		e.Display.Icon = rec.Attr(f.iconAttr)
	}
	if f.classAttr != "" {
		e.Display.Class = rec.Attr(f.classAttr)
	}
	if f.feed != nil && f.onChange != nil {
		id := rec.ID
		e.sub = f.feed.Subscribe(id, func() { f.onChange(id) })
	}
	return e
}

// Release drops the entry's change subscription. Safe to call twice.
func (f *Factory) Release(e *Entry) {
	if e == nil || e.sub == nil {
		return
	}
	e.sub.Release()
	e.sub = nil
}
