package tree

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/vanderheijden86/lazytree/pkg/model"
)

// taskQueue is an Executor that parks tasks until the test runs them, so
// interleavings of async completions can be scripted.
type taskQueue struct {
	mu    sync.Mutex
	tasks []func()
}

func (q *taskQueue) exec(task func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// runOne runs the oldest queued task.
func (q *taskQueue) runOne(t *testing.T) {
	t.Helper()
	q.mu.Lock()
	if len(q.tasks) == 0 {
		q.mu.Unlock()
		t.Fatal("no queued task")
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	q.mu.Unlock()
	task()
}

// runLast runs the newest queued task.
func (q *taskQueue) runLast(t *testing.T) {
	t.Helper()
	q.mu.Lock()
	n := len(q.tasks)
	if n == 0 {
		q.mu.Unlock()
		t.Fatal("no queued task")
	}
	task := q.tasks[n-1]
	q.tasks = q.tasks[:n-1]
	q.mu.Unlock()
	task()
}

func (q *taskQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()
		task()
	}
}

type childLoaderFunc func(ctx context.Context, parent Entry) ([]model.Record, error)

func (f childLoaderFunc) LoadChildren(ctx context.Context, parent Entry) ([]model.Record, error) {
	return f(ctx, parent)
}

type rootLoaderFunc func(ctx context.Context, contextID string) ([]model.Record, error)

func (f rootLoaderFunc) LoadRoots(ctx context.Context, contextID string) ([]model.Record, error) {
	return f(ctx, contextID)
}

type searcherFunc func(ctx context.Context, query string) ([]string, error)

func (f searcherFunc) Search(ctx context.Context, query string) ([]string, error) {
	return f(ctx, query)
}

type resolverFunc func(ctx context.Context, id string) (*model.Record, error)

func (f resolverFunc) Resolve(ctx context.Context, id string) (*model.Record, error) {
	return f(ctx, id)
}

var errBoom = errors.New("boom")

// newTestStore returns a store with a context set and a synchronous
// executor unless opts override it.
func newTestStore(t *testing.T, cfg Config, opts ...Option) *Store {
	t.Helper()
	base := []Option{WithExecutor(SyncExecutor), WithContext("ctx")}
	s := New(cfg, append(base, opts...)...)
	t.Cleanup(s.Close)
	return s
}

func rec(id, parent string) model.Record {
	return model.Record{ID: id, ParentID: parent, Title: "T-" + id}
}

// sampleRecords is:
//
//	a
//	├── b
//	│   └── d
//	└── c
//	e
func sampleRecords() []model.Record {
	return []model.Record{
		rec("a", ""),
		rec("b", "a"),
		rec("c", "a"),
		rec("d", "b"),
		rec("e", ""),
	}
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func rowIDs(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func assertIDs(t *testing.T, what string, got, want []string) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

func entriesOf(recs []model.Record) []Entry {
	f := NewFactory(DefaultConfig(), nil, false, nil)
	out := make([]Entry, len(recs))
	for i, r := range recs {
		out[i] = *f.New(r)
	}
	return out
}
