package tree

import (
	"context"
	"time"

	"github.com/vanderheijden86/lazytree/pkg/feed"
	"github.com/vanderheijden86/lazytree/pkg/model"
	"github.com/vanderheijden86/lazytree/pkg/navstate"
)

// RootLoader fetches the initial entry set for a context.
type RootLoader interface {
	LoadRoots(ctx context.Context, contextID string) ([]model.Record, error)
}

// ChildLoader fetches the children of one entry on expansion.
type ChildLoader interface {
	LoadChildren(ctx context.Context, parent Entry) ([]model.Record, error)
}

// Resolver re-fetches one record after a change notification. A nil record
// with a nil error means the record was deleted.
type Resolver interface {
	Resolve(ctx context.Context, id string) (*model.Record, error)
}

// Searcher maps a query to the ids of matching records.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// Subscription is an explicit change-feed registration.
type Subscription = feed.Subscription

// ChangeFeed delivers per-record change notifications.
type ChangeFeed interface {
	Subscribe(id string, fn func()) Subscription
}

// Executor runs asynchronous store work (loads, searches, persistence).
type Executor func(task func())

// GoExecutor runs every task on its own goroutine.
func GoExecutor(task func()) { go task() }

// SyncExecutor runs tasks inline on the dispatching goroutine. Tasks are
// always dispatched after the store lock is released.
func SyncExecutor(task func()) { task() }

// Config holds the behavioural switches of a store.
type Config struct {
	Relation        Relation
	TitleAttribute  string
	IconAttribute   string
	ClassAttribute  string
	Title           TitleFunc // overrides TitleAttribute when set
	SingleSelection bool
	HoldSelection   bool
	LoadTimeout     time.Duration
}

// DefaultConfig returns single-selection, parent-relation defaults.
func DefaultConfig() Config {
	return Config{
		Relation:        RelationParent,
		TitleAttribute:  "title",
		SingleSelection: true,
		HoldSelection:   true,
		LoadTimeout:     30 * time.Second,
	}
}

// Validate reports configuration problems as validation messages.
func (c Config) Validate() []Message {
	var msgs []Message
	if c.Relation != RelationParent && c.Relation != RelationChildren {
		msgs = append(msgs, Message{ID: MsgRelation, Text: "unknown relation type " + c.Relation.String(), Fatal: true})
	}
	if c.Title == nil && c.TitleAttribute == "" {
		msgs = append(msgs, Message{ID: MsgTitle, Text: "title attribute is required", Fatal: true})
	}
	return msgs
}

// Option configures a Store.
type Option func(*Store)

// WithRootLoader sets the bulk loader used on context switch and Reload.
func WithRootLoader(l RootLoader) Option {
	return func(s *Store) { s.roots = l }
}

// WithChildLoader enables lazy loading. Without it every entry is
// considered loaded on creation.
func WithChildLoader(l ChildLoader) Option {
	return func(s *Store) { s.children = l }
}

// WithResolver sets the per-entry resolver used after change notifications.
func WithResolver(r Resolver) Option {
	return func(s *Store) { s.resolver = r }
}

// WithSearcher enables Search.
func WithSearcher(q Searcher) Option {
	return func(s *Store) { s.searcher = q }
}

// WithChangeFeed subscribes every entry to cf.
func WithChangeFeed(cf ChangeFeed) Option {
	return func(s *Store) { s.feed = cf }
}

// WithPersister enables durable navigation state. Without it, expansion
// survives context switches only in an in-memory cache.
func WithPersister(p navstate.Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithExecutor replaces the default goroutine executor.
func WithExecutor(e Executor) Option {
	return func(s *Store) {
		if e != nil {
			s.exec = e
		}
	}
}

// WithValidation attaches messages at construction (e.g. configuration
// problems found by the caller).
func WithValidation(msgs ...Message) Option {
	return func(s *Store) { s.validation = append(s.validation, msgs...) }
}

// WithContext sets the initial context without triggering a load.
func WithContext(contextID string) Option {
	return func(s *Store) { s.contextID = contextID }
}
