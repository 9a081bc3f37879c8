package datasource

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/vanderheijden86/lazytree/pkg/model"
	"github.com/vanderheijden86/lazytree/pkg/tree"
)

// Source is a record source the tree store can be wired to.
type Source interface {
	tree.RootLoader
	tree.ChildLoader
	tree.Resolver
	tree.Searcher
	Lister
	Contexts(ctx context.Context) ([]model.Record, error)
	Close() error
}

var (
	_ Source = (*JSONLSource)(nil)
	_ Source = (*SQLiteSource)(nil)
)

// Option configures a source.
type Option func(*sourceOptions)

type sourceOptions struct {
	lazy    bool
	mapping Mapping
	warn    func(string)
}

// WithLazy selects lazy loading (roots only, children on expansion). When
// off, LoadRoots returns whole subtrees. Lazy is the default.
func WithLazy(lazy bool) Option {
	return func(o *sourceOptions) { o.lazy = lazy }
}

// WithMapping sets the table and column mapping.
func WithMapping(m Mapping) Option {
	return func(o *sourceOptions) { o.mapping = m }
}

// WithWarningHandler receives messages about skipped rows and lines.
func WithWarningHandler(fn func(string)) Option {
	return func(o *sourceOptions) {
		if fn != nil {
			o.warn = fn
		}
	}
}

func buildOptions(opts []Option) sourceOptions {
	o := sourceOptions{
		lazy:    true,
		mapping: DefaultMapping(),
		warn:    func(msg string) { log.Printf("warning: %s", msg) },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open dispatches to the reader for the source type.
func Open(ctx context.Context, ds DataSource, opts ...Option) (Source, error) {
	switch ds.Type {
	case SourceTypeSQLite:
		s, err := OpenSQLite(ctx, ds.Path, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", ds.Path, err)
		}
		return s, nil
	case SourceTypeJSONL:
		s, err := OpenJSONL(ds.Path, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open JSONL source %s: %w", ds.Path, err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSourceType, ds.Type)
}

// OpenPath opens a file directly, or for a directory discovers, validates
// and opens the best source inside it.
func OpenPath(ctx context.Context, path string, opts ...Option) (Source, DataSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, DataSource{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, DataSource{}, err
	}
	var ds DataSource
	if info.IsDir() {
		sources, err := DiscoverSources(path)
		if err != nil {
			return nil, DataSource{}, err
		}
		if err := ValidateSources(ctx, sources, opts...); err != nil {
			return nil, DataSource{}, err
		}
		if ds, err = SelectBestSource(sources); err != nil {
			return nil, DataSource{}, fmt.Errorf("%s: %w", path, err)
		}
	} else if ds, err = Detect(path); err != nil {
		return nil, DataSource{}, err
	}
	src, err := Open(ctx, ds, opts...)
	if err != nil {
		return nil, ds, err
	}
	return src, ds, nil
}
