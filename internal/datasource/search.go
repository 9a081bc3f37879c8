package datasource

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/vanderheijden86/lazytree/pkg/debug"
	"github.com/vanderheijden86/lazytree/pkg/model"
)

// Lister returns the full record set a searcher scans.
type Lister interface {
	All(ctx context.Context) ([]model.Record, error)
}

// ExprSearcher evaluates queries as boolean expr-lang expressions over each
// record, e.g. `status == "open" && title contains "db"`. Queries that do
// not compile, or never evaluate to a bool, fall back to substring matching.
//
// Environment: id, parent_id, title, icon, class, root, attrs (map) and
// every attribute under its own name.
type ExprSearcher struct {
	src Lister

	mu    sync.Mutex
	cache map[string]*vm.Program
}

const maxCachedPrograms = 64

// NewExprSearcher searches the records returned by src.
func NewExprSearcher(src Lister) *ExprSearcher {
	return &ExprSearcher{src: src, cache: make(map[string]*vm.Program)}
}

func (s *ExprSearcher) compile(query string) (*vm.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.cache[query]; ok {
		return p, nil
	}
	p, err := expr.Compile(query,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}
	if len(s.cache) >= maxCachedPrograms {
		clear(s.cache)
	}
	s.cache[query] = p
	return p, nil
}

func recordEnv(r model.Record) map[string]any {
	env := make(map[string]any, len(r.Attributes)+7)
	for k, v := range r.Attributes {
		env[k] = v
	}
	env["id"] = r.ID
	env["parent_id"] = r.ParentID
	env["title"] = r.Title
	env["icon"] = r.Icon
	env["class"] = r.Class
	env["root"] = r.Root
	env["attrs"] = r.Attributes
	return env
}

// Search returns the ids of matching records in source order.
func (s *ExprSearcher) Search(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	defer debug.LogEnterExit("ExprSearcher.Search")()
	records, err := s.src.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	program, err := s.compile(query)
	if err != nil {
		debug.Log("expr compile %q: %v; using text match", query, err)
		return textMatches(records, query), nil
	}

	var ids []string
	evaluated := false
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := expr.Run(program, recordEnv(r))
		if err != nil {
			continue
		}
		b, ok := out.(bool)
		if !ok {
			continue
		}
		evaluated = true
		if b {
			ids = append(ids, r.ID)
		}
	}
	if !evaluated {
		return textMatches(records, query), nil
	}
	return ids, nil
}

func textMatches(records []model.Record, query string) []string {
	var ids []string
	for _, r := range records {
		if matchText(r, query) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
