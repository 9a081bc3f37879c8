package tree

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vanderheijden86/lazytree/pkg/debug"
	"github.com/vanderheijden86/lazytree/pkg/navstate"
)

// Store is the node store façade. All state is guarded by one mutex; each
// public operation runs as a single commit and dispatches its async work and
// events only after the lock is released.
type Store struct {
	cfg     Config
	factory *Factory

	roots     RootLoader
	children  ChildLoader
	resolver  Resolver
	searcher  Searcher
	feed      ChangeFeed
	persister navstate.Persister
	exec      Executor

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	entries     []*Entry // replaced, never edited in place
	index       map[string]int
	contextID   string
	generation  uint64 // bumped on context switch
	mergeGen    uint64 // bumped on clean merge
	filterIDs   map[string]struct{}
	searchQuery string
	searching   bool
	searchSeq   uint64
	rootLoading bool
	validation  []Message
	cache       map[string][]string // transient expansion cache per context
	reset       bool
	version     uint64
	listeners   map[int]Listener
	nextLn      int
	closed      bool

	viewMu     sync.Mutex
	view       *View
	viewAtVers uint64

	writeSeq atomic.Uint64
	writeMu  sync.Mutex        // serializes persister writes
	lastSeq  map[string]uint64 // newest write per context
}

// New creates a store. Configuration problems are attached as validation
// messages; fatal ones leave the store disabled.
func New(cfg Config, opts ...Option) *Store {
	s := &Store{
		cfg:       cfg,
		exec:      GoExecutor,
		index:     make(map[string]int),
		cache:     make(map[string][]string),
		listeners: make(map[int]Listener),
		lastSeq:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validation = append(s.validation, cfg.Validate()...)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.factory = NewFactory(cfg, s.feed, s.children != nil, s.refreshEntry)
	return s
}

// txn collects the side effects of one commit.
type txn struct {
	events []Event
	tasks  []func()
	cow    bool
}

func (tx *txn) emit(kind EventKind, id string) {
	tx.events = append(tx.events, Event{Kind: kind, ID: id})
}

func (tx *txn) spawn(task func()) {
	tx.tasks = append(tx.tasks, task)
}

// apply runs fn under the lock, then delivers events and dispatches tasks.
func (s *Store) apply(fn func(tx *txn)) {
	tx := &txn{}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn(tx)
	if len(tx.events) > 0 {
		s.version++
	}
	ctxID := s.contextID
	var ls []Listener
	if len(tx.events) > 0 {
		ls = make([]Listener, 0, len(s.listeners))
		for i := 0; i < s.nextLn; i++ {
			if l, ok := s.listeners[i]; ok {
				ls = append(ls, l)
			}
		}
	}
	s.mu.Unlock()

	for _, ev := range tx.events {
		ev.ContextID = ctxID
		for _, l := range ls {
			l(ev)
		}
	}
	for _, task := range tx.tasks {
		s.dispatch(task)
	}
}

func (s *Store) dispatch(task func()) {
	s.wg.Add(1)
	s.exec(func() {
		defer s.wg.Done()
		task()
	})
}

// opContext returns a context for one collaborator call.
func (s *Store) opContext() (context.Context, context.CancelFunc) {
	if s.cfg.LoadTimeout > 0 {
		return context.WithTimeout(s.ctx, s.cfg.LoadTimeout)
	}
	return context.WithCancel(s.ctx)
}

// Wait blocks until every dispatched task has finished, including tasks
// spawned by those tasks.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Close cancels in-flight collaborator calls and releases every entry
// subscription. Later operations are no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, e := range s.entries {
		s.factory.Release(e)
	}
	s.entries = nil
	s.index = make(map[string]int)
	s.listeners = make(map[int]Listener)
	s.mu.Unlock()
	s.cancel()
}

// Subscribe registers l for events; the returned func unregisters it.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextLn
	s.nextLn++
	s.listeners[id] = l
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Config returns the store configuration.
func (s *Store) Config() Config { return s.cfg }

// ContextID returns the active context.
func (s *Store) ContextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contextID
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns detached copies of all entries in collection order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Entry returns a detached copy of the entry with id.
func (s *Store) Entry(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i].detached(), true
}

// ExpandedKeys returns expanded entry ids in collection order.
func (s *Store) ExpandedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keysLocked(func(e *Entry) bool { return e.Expanded })
}

// SelectedKeys returns selected entry ids in collection order.
func (s *Store) SelectedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keysLocked(func(e *Entry) bool { return e.Selected })
}

// Loading reports whether a bulk load is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootLoading
}

// TakeReset reports whether the context was reset since the last call and
// clears the flag.
func (s *Store) TakeReset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.reset
	s.reset = false
	return r
}

func (s *Store) snapshotLocked() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.detached()
	}
	return out
}

func (s *Store) keysLocked(pred func(*Entry) bool) []string {
	var keys []string
	for _, e := range s.entries {
		if pred(e) {
			keys = append(keys, e.ID)
		}
	}
	return keys
}

func (s *Store) getLocked(id string) *Entry {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.entries[i]
}

// updateLocked replaces the entry for id with a modified copy. The entry
// slice is copied at most once per commit.
func (s *Store) updateLocked(tx *txn, id string, fn func(e *Entry)) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	if !tx.cow {
		s.entries = append([]*Entry(nil), s.entries...)
		tx.cow = true
	}
	cp := *s.entries[i]
	fn(&cp)
	s.entries[i] = &cp
	return true
}

func (s *Store) releaseAllLocked() {
	for _, e := range s.entries {
		s.factory.Release(e)
	}
	s.entries = nil
	s.index = make(map[string]int)
}

func (s *Store) logStale(what, id string) {
	debug.Log("discarding stale %s for %q", what, id)
}
