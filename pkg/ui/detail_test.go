package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/lazytree/pkg/model"
	"github.com/vanderheijden86/lazytree/pkg/tree"
)

func sampleEntry() tree.Entry {
	return tree.Entry{
		ID:          "TASK-1",
		ParentID:    "EPIC-1",
		ChildIDs:    []string{"TASK-2", "TASK-3"},
		HasChildren: tree.ChildrenPresent,
		Loaded:      true,
		Display:     tree.Display{Title: "Write parser", Class: "open"},
		Record: model.Record{
			ID:        "TASK-1",
			ParentID:  "EPIC-1",
			Title:     "Write parser",
			UpdatedAt: time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC),
			Attributes: map[string]string{
				"status": "open",
				"owner":  "sam",
				"expr":   "a|b",
			},
		},
	}
}

func TestEntryMarkdown(t *testing.T) {
	md := EntryMarkdown(sampleEntry())
	for _, want := range []string{
		"# Write parser",
		"| ID | `TASK-1` |",
		"| Parent | `EPIC-1` |",
		"| Class | open |",
		"| Children | 2 |",
		"| Updated | 2025-03-04 10:30 |",
		"## Attributes",
		`| expr | a\|b |`,
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	// Attributes are sorted by name.
	if strings.Index(md, "| expr |") > strings.Index(md, "| owner |") ||
		strings.Index(md, "| owner |") > strings.Index(md, "| status |") {
		t.Errorf("attributes not sorted:\n%s", md)
	}
}

func TestEntryMarkdownMinimal(t *testing.T) {
	md := EntryMarkdown(tree.Entry{ID: "bare"})
	if !strings.HasPrefix(md, "# bare\n") {
		t.Errorf("untitled entry should use its id as heading:\n%s", md)
	}
	if strings.Contains(md, "Parent") || strings.Contains(md, "Attributes") || strings.Contains(md, "Updated") {
		t.Errorf("empty fields rendered:\n%s", md)
	}
}

func TestChildSummary(t *testing.T) {
	tests := []struct {
		name  string
		entry tree.Entry
		want  string
	}{
		{"loading", tree.Entry{Loading: true}, "loading"},
		{"child ids", tree.Entry{ChildIDs: []string{"a"}}, "1"},
		{"leaf", tree.Entry{HasChildren: tree.ChildrenAbsent}, "none"},
		{"present unloaded", tree.Entry{HasChildren: tree.ChildrenPresent}, "not loaded"},
		{"present loaded", tree.Entry{HasChildren: tree.ChildrenPresent, Loaded: true}, "loaded"},
		{"unknown", tree.Entry{}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := childSummary(tt.entry); got != tt.want {
				t.Errorf("childSummary = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetailModelView(t *testing.T) {
	d := NewDetailModel(TestTheme(), "notty")
	if got := d.View(); !strings.Contains(got, "No entry selected") {
		t.Errorf("empty View() = %q", got)
	}

	d.SetSize(60, 40)
	d.SetEntry(sampleEntry(), true)
	if d.EntryID() != "TASK-1" {
		t.Errorf("EntryID = %q", d.EntryID())
	}
	out := d.View()
	if !strings.Contains(out, "Write parser") || !strings.Contains(out, "status") {
		t.Errorf("rendered detail missing content:\n%s", out)
	}

	d.SetSize(60, 2)
	d.SetEntry(sampleEntry(), true)
	if n := len(strings.Split(d.View(), "\n")); n > 2 {
		t.Errorf("View() has %d lines, want at most 2", n)
	}

	d.SetEntry(tree.Entry{}, false)
	if d.EntryID() != "" {
		t.Error("SetEntry(false) should clear the pane")
	}
}
