package ui

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/lazytree/internal/datasource"
	"github.com/vanderheijden86/lazytree/pkg/testutil"
	"github.com/vanderheijden86/lazytree/pkg/tree"
)

// newTestStore serves testutil.QuickTree(2, 2) from a JSONL file:
//
//	n0
//	├── n1
//	│   ├── n3
//	│   └── n4
//	└── n2
//	    ├── n5
//	    └── n6
//
// All store work runs synchronously.
func newTestStore(t *testing.T, lazy bool) *tree.Store {
	t.Helper()
	path := testutil.WriteRecordsFile(t, filepath.Join(t.TempDir(), "records.jsonl"), testutil.QuickTree(2, 2))
	src, err := datasource.OpenJSONL(path, datasource.WithLazy(lazy))
	if err != nil {
		t.Fatalf("OpenJSONL: %v", err)
	}
	opts := []tree.Option{
		tree.WithRootLoader(src),
		tree.WithResolver(src),
		tree.WithSearcher(src),
		tree.WithExecutor(tree.SyncExecutor),
	}
	if lazy {
		opts = append(opts, tree.WithChildLoader(src))
	}
	s := tree.New(tree.DefaultConfig(), opts...)
	t.Cleanup(s.Close)
	s.SetContext(datasource.AllContext)
	return s
}

func newTestModel(t *testing.T, store *tree.Store, opts Options) Model {
	t.Helper()
	opts.Theme = TestTheme()
	if opts.DetailStyle == "" {
		opts.DetailStyle = "notty"
	}
	m := NewModel(store, opts)
	t.Cleanup(m.Close)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m
}

// typeText feeds s into an open input one rune at a time.
func typeText(m Model, s string) Model {
	for _, r := range s {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func rowIDs(m Model) []string {
	rows := m.tree.Snapshot().Rows
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func currentID(t *testing.T, m Model) string {
	t.Helper()
	row, ok := m.tree.CurrentRow()
	if !ok {
		t.Fatal("no row under cursor")
	}
	return row.ID
}

func assertRows(t *testing.T, m Model, nodes ...string) {
	t.Helper()
	got := rowIDs(m)
	if len(got) != len(nodes) {
		t.Fatalf("rows = %v, want nodes %v", got, nodes)
	}
	for i, n := range nodes {
		if got[i] != testutil.RecordID(n) {
			t.Fatalf("row %d = %s, want %s (rows %v)", i, got[i], testutil.RecordID(n), got)
		}
	}
}
