package testutil

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/lazytree/pkg/model"
)

func TestChain(t *testing.T) {
	gen := NewDefault()
	tests := []struct {
		size      int
		wantEdges int
		wantDepth int
	}{
		{1, 0, 0},
		{2, 1, 1},
		{5, 4, 4},
	}
	for _, tt := range tests {
		f := gen.Chain(tt.size)
		if len(f.Nodes) != tt.size || len(f.Edges) != tt.wantEdges {
			t.Errorf("Chain(%d): %d nodes, %d edges", tt.size, len(f.Nodes), len(f.Edges))
		}
		if f.Properties.ExpectedDepth != tt.wantDepth || f.Properties.Roots != 1 {
			t.Errorf("Chain(%d) properties = %+v", tt.size, f.Properties)
		}
		for i, e := range f.Edges {
			if e[0] != i || e[1] != i+1 {
				t.Errorf("edge %d: got %v, want [%d %d]", i, e, i, i+1)
			}
		}
	}
}

func TestTreeShape(t *testing.T) {
	recs := QuickTree(2, 3)
	AssertRecordCount(t, recs, 1+3+9)
	AssertNoDuplicateIDs(t, recs)
	AssertAllValid(t, recs)
	AssertNoCycles(t, recs)
	AssertParent(t, recs, RecordID("n1"), RecordID("n0"))
	AssertParent(t, recs, RecordID("n4"), RecordID("n1"))
	if recs[0].ParentID != "" {
		t.Errorf("root has parent %q", recs[0].ParentID)
	}
}

func TestStarAndForest(t *testing.T) {
	star := QuickStar(4)
	roots := 0
	for _, r := range star {
		if r.ParentID == "" {
			roots++
		}
	}
	if roots != 1 || len(star) != 5 {
		t.Errorf("star: %d records, %d roots", len(star), roots)
	}

	forest := NewDefault().Forest(3, 2)
	if forest.Properties.Roots != 3 || len(forest.Edges) != 3 {
		t.Errorf("forest: %+v", forest.Properties)
	}
	AssertNoCycles(t, QuickForest(3, 2))
}

func TestCycle(t *testing.T) {
	recs := QuickCycle(3)
	AssertHasCycle(t, recs)
	for _, r := range recs {
		if r.ParentID == "" {
			t.Errorf("%s has no parent in a cycle", r.ID)
		}
	}
}

func TestRandomIsDeterministic(t *testing.T) {
	a := GetIDs(QuickRandom(30, 0.2))
	b := QuickRandom(30, 0.2)
	if strings.Join(a, ",") != strings.Join(GetIDs(b), ",") {
		t.Fatal("ids differ between runs")
	}
	c := QuickRandom(30, 0.2)
	for i := range b {
		if b[i].ParentID != c[i].ParentID {
			t.Fatalf("parent of %s differs between runs", b[i].ID)
		}
	}
	AssertNoCycles(t, b)
}

func TestToRecordsOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChildIDs = true
	cfg.KnownLeaves = true
	cfg.ClassMix = []string{"folder"}
	cfg.IncludeAttrs = true
	gen := New(cfg)
	recs := gen.ToRecords(gen.Star(2))

	hub := FindRecord(recs, RecordID("hub"))
	if hub == nil || len(hub.ChildIDs) != 2 || !*hub.HasChildren {
		t.Fatalf("hub = %+v", hub)
	}
	leaf := BuildRecordMap(recs)[RecordID("spoke1")]
	if *leaf.HasChildren || leaf.Class != "folder" || leaf.Attributes["status"] == "" {
		t.Fatalf("leaf = %+v", leaf)
	}
}

func TestToJSONL(t *testing.T) {
	recs := QuickChain(3)
	lines := strings.Split(strings.TrimSpace(ToJSONL(recs)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	var back model.Record
	if err := json.Unmarshal([]byte(lines[1]), &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(recs[1]) {
		t.Fatalf("line 2 decodes to %+v, want %+v", back, recs[1])
	}
}

func TestGoldenFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GENERATE_GOLDEN", "1")
	NewGoldenFile(t, dir, "ids.golden").Assert("a\nb\n")

	t.Setenv("GENERATE_GOLDEN", "")
	g := NewGoldenFile(t, dir, "ids.golden")
	g.Assert("a\nb\n")
}

func TestWriteRecordsFile(t *testing.T) {
	path := WriteRecordsFile(t, t.TempDir()+"/sub/records.jsonl", QuickStar(1))
	if !strings.HasSuffix(path, "records.jsonl") {
		t.Fatalf("unexpected path %s", path)
	}
}
