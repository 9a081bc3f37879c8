package ui

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/lazytree/internal/datasource"
	"github.com/vanderheijden86/lazytree/pkg/testutil"
	"github.com/vanderheijden86/lazytree/pkg/tree"
)

func TestModelInitialView(t *testing.T) {
	m := newTestModel(t, newTestStore(t, true), Options{})
	assertRows(t, m, "n0")

	out := m.View()
	if !strings.Contains(out, "Record n0") {
		t.Errorf("view missing root title:\n%s", out)
	}
	if !strings.Contains(out, datasource.AllContext) {
		t.Errorf("header missing context id:\n%s", out)
	}
}

func TestModelNotReadyBeforeSize(t *testing.T) {
	m := NewModel(newTestStore(t, true), Options{Theme: TestTheme()})
	defer m.Close()
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View() = %q, want Initializing...", got)
	}
	next, _ := m.Update(ReadyTimeoutMsg{})
	if got := next.(Model).View(); got == "Initializing..." {
		t.Error("ReadyTimeoutMsg should make the model ready")
	}
}

func TestModelExpandCollapseNavigation(t *testing.T) {
	store := newTestStore(t, true)
	m := newTestModel(t, store, Options{})

	m = press(m, "l")
	assertRows(t, m, "n0", "n1", "n2")
	if got := store.ExpandedKeys(); !reflect.DeepEqual(got, []string{testutil.RecordID("n0")}) {
		t.Errorf("ExpandedKeys = %v", got)
	}

	// l on an expanded row steps into its first child.
	m = press(m, "l")
	if got := currentID(t, m); got != testutil.RecordID("n1") {
		t.Fatalf("cursor on %s, want n1", got)
	}

	// h on a collapsed child jumps to the parent, then collapses it.
	m = press(m, "h")
	if got := currentID(t, m); got != testutil.RecordID("n0") {
		t.Fatalf("cursor on %s, want n0", got)
	}
	m = press(m, "h")
	assertRows(t, m, "n0")
}

func TestModelToggleWithEnter(t *testing.T) {
	m := newTestModel(t, newTestStore(t, true), Options{})
	m = press(m, "enter")
	assertRows(t, m, "n0", "n1", "n2")
	m = press(m, "j", "enter")
	assertRows(t, m, "n0", "n1", "n3", "n4", "n2")
	m = press(m, "G")
	if got := currentID(t, m); got != testutil.RecordID("n2") {
		t.Errorf("G moved to %s, want n2", got)
	}
	m = press(m, "g")
	if m.tree.Cursor() != 0 {
		t.Errorf("g left cursor at %d", m.tree.Cursor())
	}
}

func TestModelSelection(t *testing.T) {
	store := newTestStore(t, true)
	m := newTestModel(t, store, Options{})
	m = press(m, " ")
	if got := store.SelectedKeys(); !reflect.DeepEqual(got, []string{testutil.RecordID("n0")}) {
		t.Errorf("SelectedKeys = %v", got)
	}
	row, _ := m.tree.CurrentRow()
	if !row.Selected {
		t.Error("row should render as selected")
	}
}

func TestModelExpandAllCollapseAll(t *testing.T) {
	m := newTestModel(t, newTestStore(t, false), Options{})
	m = press(m, "E")
	assertRows(t, m, "n0", "n1", "n3", "n4", "n2", "n5", "n6")
	m = press(m, "C")
	assertRows(t, m, "n0")
}

func TestModelSearch(t *testing.T) {
	store := newTestStore(t, false)
	m := newTestModel(t, store, Options{})

	m = press(m, "/")
	if m.mode != inputSearch {
		t.Fatal("/ should open the search input")
	}
	m = typeText(m, "n5")
	m = press(m, "enter")

	if got := store.SearchQuery(); got != "n5" {
		t.Fatalf("SearchQuery = %q", got)
	}
	assertRows(t, m, "n0", "n2", "n5")
	rows := m.tree.Snapshot().Rows
	if !rows[0].Context || !rows[1].Context || !rows[2].Highlighted {
		t.Errorf("unexpected row flags: %+v", rows)
	}
	if !strings.Contains(m.View(), "1 matches") {
		t.Errorf("header should report match count:\n%s", m.View())
	}

	// Esc in a reopened input clears the search.
	m = press(m, "/", "esc")
	if got := store.SearchQuery(); got != "" {
		t.Errorf("SearchQuery after esc = %q", got)
	}
	assertRows(t, m, "n0")
}

func TestModelSearchNoMatches(t *testing.T) {
	m := newTestModel(t, newTestStore(t, false), Options{})
	m = press(m, "/")
	m = typeText(m, "zzz")
	m = press(m, "enter")
	if m.tree.Len() != 0 {
		t.Fatalf("rows = %v, want none", rowIDs(m))
	}
	if !strings.Contains(m.View(), `No matches for "zzz"`) {
		t.Errorf("missing empty-state text:\n%s", m.View())
	}
}

func TestModelGotoReveals(t *testing.T) {
	store := newTestStore(t, false)
	m := newTestModel(t, store, Options{})

	m = press(m, ":")
	m = typeText(m, testutil.RecordID("n6"))
	m = press(m, "enter")

	assertRows(t, m, "n0", "n1", "n2", "n5", "n6")
	if got := currentID(t, m); got != testutil.RecordID("n6") {
		t.Errorf("cursor on %s, want n6", got)
	}
	if got := store.SelectedKeys(); !reflect.DeepEqual(got, []string{testutil.RecordID("n6")}) {
		t.Errorf("SelectedKeys = %v", got)
	}

	m = press(m, ":")
	m = typeText(m, "missing")
	m = press(m, "enter")
	if !m.statusIsError || !strings.Contains(m.statusMsg, "missing is not loaded") {
		t.Errorf("status = %q (error=%v)", m.statusMsg, m.statusIsError)
	}
}

func TestModelYank(t *testing.T) {
	var copied string
	m := newTestModel(t, newTestStore(t, true), Options{
		Clipboard: func(s string) error { copied = s; return nil },
	})
	m = press(m, "y")
	if copied != testutil.RecordID("n0") {
		t.Errorf("copied %q", copied)
	}
	if !strings.Contains(m.statusMsg, "Copied") {
		t.Errorf("status = %q", m.statusMsg)
	}

	m.clipboard = func(string) error { return errors.New("no display") }
	m = press(m, "y")
	if !m.statusIsError || !strings.Contains(m.statusMsg, "no display") {
		t.Errorf("status = %q (error=%v)", m.statusMsg, m.statusIsError)
	}
}

func TestModelFavoriteSwitch(t *testing.T) {
	store := newTestStore(t, true)
	m := newTestModel(t, store, Options{Favorites: map[int]string{1: testutil.RecordID("n1")}})
	m = press(m, "l", "j")

	m = press(m, "1")
	if got := store.ContextID(); got != testutil.RecordID("n1") {
		t.Fatalf("ContextID = %q", got)
	}
	assertRows(t, m, "n3", "n4")
	if m.tree.Cursor() != 0 {
		t.Errorf("cursor = %d after context switch", m.tree.Cursor())
	}
	if !strings.Contains(m.View(), "[1]") {
		t.Errorf("header should show favorite number:\n%s", m.View())
	}

	m = press(m, "1")
	if !strings.Contains(m.statusMsg, "Already on") {
		t.Errorf("status = %q", m.statusMsg)
	}
	m = press(m, "2")
	if !strings.Contains(m.statusMsg, "No context assigned to 2") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestModelStoreEvents(t *testing.T) {
	store := newTestStore(t, true)
	m := newTestModel(t, store, Options{})

	store.ExpandKey(testutil.RecordID("n0"), true, false)
	next, cmd := m.Update(StoreEventMsg{Event: tree.Event{Kind: tree.EventExpansion}})
	m = next.(Model)
	assertRows(t, m, "n0", "n1", "n2")
	if cmd == nil {
		t.Error("StoreEventMsg should re-arm the event wait")
	}

	m = press(m, "G")
	store.SetContext(testutil.RecordID("n2"))
	next, _ = m.Update(StoreEventMsg{Event: tree.Event{Kind: tree.EventContextReset, ContextID: testutil.RecordID("n2")}})
	m = next.(Model)
	assertRows(t, m, "n5", "n6")
	if m.tree.Cursor() != 0 {
		t.Errorf("cursor = %d after reset", m.tree.Cursor())
	}
	if !strings.Contains(m.statusMsg, "Switched to") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestModelValidationStatus(t *testing.T) {
	store := newTestStore(t, true)
	m := newTestModel(t, store, Options{})
	store.AddValidation(tree.Message{ID: "x", Text: "broken mapping", Fatal: true})
	next, _ := m.Update(StoreEventMsg{Event: tree.Event{Kind: tree.EventValidation, ID: "x"}})
	m = next.(Model)
	if !m.statusIsError || m.statusMsg != "broken mapping" {
		t.Errorf("status = %q (error=%v)", m.statusMsg, m.statusIsError)
	}
	// Disabled stores ignore expansion.
	m = press(m, "l")
	assertRows(t, m, "n0")
}

func TestWaitForStoreEvent(t *testing.T) {
	ch := make(chan tree.Event, 1)
	ch <- tree.Event{Kind: tree.EventSearch}
	msg := WaitForStoreEvent(ch)()
	ev, ok := msg.(StoreEventMsg)
	if !ok || ev.Event.Kind != tree.EventSearch {
		t.Errorf("got %#v", msg)
	}
	close(ch)
	if msg := WaitForStoreEvent(ch)(); msg != nil {
		t.Errorf("closed channel returned %#v", msg)
	}
}

func TestModelSubscribesToStore(t *testing.T) {
	store := newTestStore(t, true)
	m := newTestModel(t, store, Options{})
	store.ExpandKey(testutil.RecordID("n0"), true, false)
	select {
	case <-m.events:
	default:
		t.Fatal("store events should reach the model channel")
	}
}

func TestModelDetailToggleAndHelp(t *testing.T) {
	m := newTestModel(t, newTestStore(t, true), Options{ShowDetail: true})
	if m.detail.EntryID() != testutil.RecordID("n0") {
		t.Errorf("detail shows %q", m.detail.EntryID())
	}
	m = press(m, "d")
	if m.showDetail {
		t.Error("d should hide the detail pane")
	}
	m = press(m, "?")
	if !strings.Contains(m.View(), "collapse all") {
		t.Errorf("help overlay missing bindings:\n%s", m.View())
	}
	m = press(m, "j")
	if m.showHelp {
		t.Error("any key should close help")
	}
}

func TestModelQuit(t *testing.T) {
	m := newTestModel(t, newTestStore(t, true), Options{})
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
