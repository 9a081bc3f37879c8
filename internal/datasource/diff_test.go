package datasource

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/lazytree/pkg/model"
)

func TestDiffRecords(t *testing.T) {
	old := []model.Record{{ID: "a", Title: "A"}, {ID: "b"}, {ID: "c", ParentID: "a"}}
	next := []model.Record{{ID: "a", Title: "A"}, {ID: "c", ParentID: "b"}, {ID: "d"}}

	d := DiffRecords(old, next)
	assertIDs(t, "added", d.Added, []string{"d"})
	assertIDs(t, "removed", d.Removed, []string{"b"})
	assertIDs(t, "changed", d.Changed, []string{"c"})
	assertIDs(t, "stale", d.Stale(), []string{"c", "b"})
	if d.Empty() {
		t.Fatal("diff should not be empty")
	}
	sum := d.Summary()
	for _, want := range []string{"1 added (d)", "1 changed (c)", "1 removed (b)"} {
		if !strings.Contains(sum, want) {
			t.Errorf("summary %q missing %q", sum, want)
		}
	}
}

func TestDiffRecordsIdentical(t *testing.T) {
	recs := []model.Record{{ID: "a", Attributes: map[string]string{"k": "v"}}}
	d := DiffRecords(recs, []model.Record{recs[0].Clone()})
	if !d.Empty() || d.Summary() != "no changes" {
		t.Fatalf("expected no changes, got %+v", d)
	}
}
