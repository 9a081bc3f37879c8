package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/lazytree/pkg/model"
)

// AssertRecordCount verifies the expected number of records.
func AssertRecordCount(t *testing.T, records []model.Record, expected int) {
	t.Helper()
	if len(records) != expected {
		t.Errorf("expected %d records, got %d", expected, len(records))
	}
}

// AssertNoDuplicateIDs verifies all record IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, records []model.Record) {
	t.Helper()
	seen := make(map[string]bool)
	for _, r := range records {
		if seen[r.ID] {
			t.Errorf("duplicate record ID: %s", r.ID)
		}
		seen[r.ID] = true
	}
}

// AssertAllValid verifies all records pass validation.
func AssertAllValid(t *testing.T, records []model.Record) {
	t.Helper()
	for i, r := range records {
		if err := r.Validate(); err != nil {
			t.Errorf("record %d (%s) invalid: %v", i, r.ID, err)
		}
	}
}

// AssertParent verifies that childID names parentID as its parent.
func AssertParent(t *testing.T, records []model.Record, childID, parentID string) {
	t.Helper()
	r := FindRecord(records, childID)
	if r == nil {
		t.Errorf("record %s not found", childID)
		return
	}
	if r.ParentID != parentID {
		t.Errorf("expected %s parent %q, got %q", childID, parentID, r.ParentID)
	}
}

// hasParentCycle follows parent links from every record.
func hasParentCycle(records []model.Record) (string, bool) {
	parent := make(map[string]string, len(records))
	for _, r := range records {
		if r.ParentID != "" {
			parent[r.ID] = r.ParentID
		}
	}
	for _, r := range records {
		seen := map[string]bool{r.ID: true}
		for cur := parent[r.ID]; cur != ""; cur = parent[cur] {
			if seen[cur] {
				return r.ID, true
			}
			seen[cur] = true
		}
	}
	return "", false
}

// AssertNoCycles verifies the parent links form no cycle.
func AssertNoCycles(t *testing.T, records []model.Record) {
	t.Helper()
	if id, ok := hasParentCycle(records); ok {
		t.Errorf("cycle detected involving record %s", id)
	}
}

// AssertHasCycle verifies the parent links contain at least one cycle.
func AssertHasCycle(t *testing.T, records []model.Record) {
	t.Helper()
	if _, ok := hasParentCycle(records); !ok {
		t.Error("expected a parent cycle, found none")
	}
}

// Golden file helpers

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
// If GENERATE_GOLDEN is set, updates the golden file instead.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()

	path := g.Path()
	if g.update {
		if err := os.MkdirAll(g.dir, 0755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}

	if string(expected) != actual {
		expectedLines := strings.Split(string(expected), "\n")
		actualLines := strings.Split(actual, "\n")
		for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
			var expLine, actLine string
			if i < len(expectedLines) {
				expLine = expectedLines[i]
			}
			if i < len(actualLines) {
				actLine = actualLines[i]
			}
			if expLine != actLine {
				g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, expLine, actLine)
				return
			}
		}
		g.t.Errorf("golden file mismatch (length differs)")
	}
}

// AssertJSON compares actual value as JSON against the golden file.
func (g *GoldenFile) AssertJSON(actual any) {
	g.t.Helper()
	data, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		g.t.Fatalf("failed to marshal actual value: %v", err)
	}
	g.Assert(string(data))
}

// WriteRecordsFile writes records as JSONL to path and returns it.
func WriteRecordsFile(t *testing.T, path string, records []model.Record) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(ToJSONL(records)), 0644); err != nil {
		t.Fatalf("failed to write records file: %v", err)
	}
	return path
}

// BuildRecordMap indexes records by ID.
func BuildRecordMap(records []model.Record) map[string]*model.Record {
	m := make(map[string]*model.Record, len(records))
	for i := range records {
		m[records[i].ID] = &records[i]
	}
	return m
}

// FindRecord returns the record with the given ID, or nil.
func FindRecord(records []model.Record, id string) *model.Record {
	for i := range records {
		if records[i].ID == id {
			return &records[i]
		}
	}
	return nil
}

// GetIDs returns the IDs in order.
func GetIDs(records []model.Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
