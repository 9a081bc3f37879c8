package tree

import (
	"context"
	"sync"
	"testing"

	"github.com/vanderheijden86/lazytree/pkg/model"
	"github.com/vanderheijden86/lazytree/pkg/navstate"
)

// recordingPersister wraps a MemoryStore and remembers every write.
type recordingPersister struct {
	*navstate.MemoryStore
	mu     sync.Mutex
	writes []navstate.NavState
	reads  int
}

func newRecordingPersister() *recordingPersister {
	return &recordingPersister{MemoryStore: navstate.NewMemoryStore()}
}

func (p *recordingPersister) Read(ctx context.Context, contextID string) (*navstate.NavState, error) {
	p.mu.Lock()
	p.reads++
	p.mu.Unlock()
	return p.MemoryStore.Read(ctx, contextID)
}

func (p *recordingPersister) Write(ctx context.Context, st navstate.NavState) error {
	p.mu.Lock()
	p.writes = append(p.writes, st)
	p.mu.Unlock()
	return p.MemoryStore.Write(ctx, st)
}

func (p *recordingPersister) writeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes)
}

func (p *recordingPersister) last(contextID string) *navstate.NavState {
	st, _ := p.MemoryStore.Read(context.Background(), contextID)
	return st
}

func TestRestoreFiltersStaleKeys(t *testing.T) {
	p := newRecordingPersister()
	_ = p.MemoryStore.Write(context.Background(), navstate.New("ctx", []string{"a", "b"}, []string{"a", "b"}))

	s := newTestStore(t, DefaultConfig(), WithPersister(p))
	s.SetEntries([]model.Record{rec("a", ""), rec("c", "a")}, SetOptions{Clean: true})

	assertIDs(t, "expanded", s.ExpandedKeys(), []string{"a"})
	assertIDs(t, "selected", s.SelectedKeys(), []string{"a"})
	if p.writeCount() != 0 {
		t.Fatal("restore must not write state back")
	}

	// The next write carries only the surviving keys.
	s.ExpandKey("c", true, true)
	st := p.last("ctx")
	assertIDs(t, "persisted expanded", st.ExpandedKeys, []string{"a", "c"})
	assertIDs(t, "persisted selected", st.SelectedKeys, []string{"a"})
}

func TestRestoreSkippedWhenSuperseded(t *testing.T) {
	q := &taskQueue{}
	p := newRecordingPersister()
	_ = p.MemoryStore.Write(context.Background(), navstate.New("ctx", []string{"a"}, nil))

	s := newTestStore(t, DefaultConfig(), WithPersister(p), WithExecutor(q.exec))
	s.SetEntries(sampleRecords(), SetOptions{Clean: true})
	s.SetEntries(sampleRecords(), SetOptions{Clean: true})
	q.runOne(t) // restore for the first merge: stale
	if len(s.ExpandedKeys()) != 0 {
		t.Fatal("superseded restore applied")
	}
	q.runOne(t)
	assertIDs(t, "expanded", s.ExpandedKeys(), []string{"a"})
}

func TestContextSwitchUsesExpansionCache(t *testing.T) {
	roots := rootLoaderFunc(func(_ context.Context, contextID string) ([]model.Record, error) {
		if contextID == "c2" {
			return []model.Record{rec("x", ""), rec("y", "x")}, nil
		}
		return sampleRecords(), nil
	})
	s := New(DefaultConfig(), WithExecutor(SyncExecutor), WithRootLoader(roots))
	t.Cleanup(s.Close)

	if !s.SetContext("c1") {
		t.Fatal("expected context change")
	}
	if !s.TakeReset() || s.TakeReset() {
		t.Fatal("reset flag should be raised once per switch")
	}
	assertIDs(t, "c1 entries", ids(s.Entries()), []string{"a", "b", "c", "d", "e"})
	s.ExpandKey("a", true, true)
	s.ExpandKey("b", true, true)

	s.SetContext("c2")
	assertIDs(t, "c2 entries", ids(s.Entries()), []string{"x", "y"})
	if len(s.ExpandedKeys()) != 0 {
		t.Fatal("expansion leaked across contexts")
	}

	s.SetContext("c1")
	assertIDs(t, "restored c1 expansion", s.ExpandedKeys(), []string{"a", "b"})

	if s.SetContext("c1") {
		t.Fatal("same context should report no change")
	}
}

func TestContextSwitchDuringSearchSkipsSnapshot(t *testing.T) {
	roots := rootLoaderFunc(func(context.Context, string) ([]model.Record, error) { return sampleRecords(), nil })
	searcher := searcherFunc(func(context.Context, string) ([]string, error) { return []string{"d"}, nil })
	p := newRecordingPersister()
	s := New(DefaultConfig(), WithExecutor(SyncExecutor), WithRootLoader(roots), WithSearcher(searcher), WithPersister(p))
	t.Cleanup(s.Close)

	s.SetContext("c1")
	s.ExpandKey("a", true, true)
	writes := p.writeCount()

	s.Search("d") // expands a and b without persisting
	s.SetContext("c2")
	if p.writeCount() != writes {
		t.Fatal("context switch during search persisted search expansion")
	}
	if s.SearchQuery() != "" {
		t.Fatal("context switch must clear search")
	}

	s.SetContext("c1")
	assertIDs(t, "restored", s.ExpandedKeys(), []string{"a"})
}

func TestContextSwitchPersistsOutgoingState(t *testing.T) {
	roots := rootLoaderFunc(func(context.Context, string) ([]model.Record, error) { return sampleRecords(), nil })
	p := newRecordingPersister()
	s := New(DefaultConfig(), WithExecutor(SyncExecutor), WithRootLoader(roots), WithPersister(p))
	t.Cleanup(s.Close)

	s.SetContext("c1")
	s.ExpandKey("a", true, false) // not persisted on its own
	s.SetContext("c2")

	st := p.last("c1")
	if st == nil {
		t.Fatal("expected c1 state written on switch")
	}
	assertIDs(t, "c1 expanded", st.ExpandedKeys, []string{"a"})

	s.SetContext("c1")
	assertIDs(t, "durable restore", s.ExpandedKeys(), []string{"a"})
}

func TestSetContextEmptyDisables(t *testing.T) {
	s := newTestStore(t, DefaultConfig())
	s.SetEntries(sampleRecords(), SetOptions{Clean: true})
	s.SetContext("")
	if !s.Disabled() || s.Len() != 0 {
		t.Fatal("expected empty context to disable and clear the store")
	}
}

func TestRootLoadFailureYieldsEmptySet(t *testing.T) {
	roots := rootLoaderFunc(func(context.Context, string) ([]model.Record, error) { return nil, errBoom })
	s := New(DefaultConfig(), WithExecutor(SyncExecutor), WithRootLoader(roots))
	t.Cleanup(s.Close)
	s.SetContext("c1")
	if s.Len() != 0 || s.Loading() {
		t.Fatalf("len=%d loading=%v", s.Len(), s.Loading())
	}
}

func TestReloadRefetches(t *testing.T) {
	calls := 0
	roots := rootLoaderFunc(func(context.Context, string) ([]model.Record, error) {
		calls++
		if calls > 1 {
			return append(sampleRecords(), rec("new", "")), nil
		}
		return sampleRecords(), nil
	})
	s := New(DefaultConfig(), WithExecutor(SyncExecutor), WithRootLoader(roots))
	t.Cleanup(s.Close)
	s.SetContext("c1")
	s.ExpandKey("a", true, false)
	s.SetContext("c1")
	s.Reload(context.Background())
	if _, ok := s.Entry("new"); !ok {
		t.Fatal("expected reload to pick up new record")
	}
}

func TestStaleRootLoadDiscarded(t *testing.T) {
	q := &taskQueue{}
	roots := rootLoaderFunc(func(_ context.Context, contextID string) ([]model.Record, error) {
		return []model.Record{rec(contextID+"-root", "")}, nil
	})
	s := New(DefaultConfig(), WithExecutor(q.exec), WithRootLoader(roots))
	t.Cleanup(s.Close)

	s.SetContext("c1")
	s.SetContext("c2")
	if !s.Loading() {
		t.Fatal("expected bulk load in flight")
	}
	q.drain()
	assertIDs(t, "entries", ids(s.Entries()), []string{"c2-root"})
}

func TestNewestWriteWins(t *testing.T) {
	q := &taskQueue{}
	p := newRecordingPersister()
	s := newTestStore(t, DefaultConfig(), WithPersister(p), WithExecutor(q.exec))
	s.SetEntries(sampleRecords(), SetOptions{Clean: true})
	q.drain() // restore read

	s.SelectEntry("a")
	s.SelectEntry("b")
	q.runLast(t) // newer write lands first
	q.runOne(t)  // older write is dropped
	st := p.last("ctx")
	assertIDs(t, "selected", st.SelectedKeys, []string{"b"})
	if p.writeCount() != 1 {
		t.Fatalf("expected superseded write dropped, got %d writes", p.writeCount())
	}
}

func TestOutgoingSnapshotSurvivesNewerWriteForOtherContext(t *testing.T) {
	q := &taskQueue{}
	roots := rootLoaderFunc(func(context.Context, string) ([]model.Record, error) { return sampleRecords(), nil })
	p := newRecordingPersister()
	s := New(DefaultConfig(), WithExecutor(q.exec), WithRootLoader(roots), WithPersister(p))
	t.Cleanup(s.Close)

	s.SetContext("c1")
	q.drain() // root load and restore read
	s.ExpandKey("a", true, false)

	s.SetContext("c2") // queues the c1 snapshot, then the c2 root load
	q.runLast(t)       // c2 root load
	q.runLast(t)       // c2 restore read
	s.ExpandKey("b", true, true)
	q.runLast(t) // c2 write lands before the c1 snapshot
	q.drain()

	c1 := p.last("c1")
	if c1 == nil {
		t.Fatalf("c1 snapshot dropped, %d writes", p.writeCount())
	}
	assertIDs(t, "c1 expanded", c1.ExpandedKeys, []string{"a"})
	c2 := p.last("c2")
	if c2 == nil {
		t.Fatal("expected c2 state written")
	}
	assertIDs(t, "c2 expanded", c2.ExpandedKeys, []string{"b"})

	s.SetContext("c1")
	q.drain()
	assertIDs(t, "restored", s.ExpandedKeys(), []string{"a"})
}
