package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/lazytree/internal/datasource"
	"github.com/vanderheijden86/lazytree/pkg/config"
	"github.com/vanderheijden86/lazytree/pkg/model"
	"github.com/vanderheijden86/lazytree/pkg/navstate"
	"github.com/vanderheijden86/lazytree/pkg/tree"
)

// buildTreeConfig maps the config file onto store settings. Problems found
// by config validation come back as store validation messages so the UI can
// show them; fatal ones disable the store.
//
// Sources normalize the mapped columns onto the canonical record fields, so
// the store always reads title, icon and class.
func buildTreeConfig(cfg config.Config) (tree.Config, []tree.Message) {
	tc := tree.DefaultConfig()
	var msgs []tree.Message

	if rel, err := tree.ParseRelation(cfg.Tree.Relation); err == nil {
		tc.Relation = rel
	}
	if cfg.Tree.IconAttribute != "" {
		tc.IconAttribute = "icon"
	}
	if cfg.Tree.ClassAttribute != "" {
		tc.ClassAttribute = "class"
	}
	tc.SingleSelection = cfg.Tree.SingleSelection
	tc.HoldSelection = cfg.Tree.HoldSelection
	if cfg.Tree.LoadTimeout > 0 {
		tc.LoadTimeout = cfg.Tree.LoadTimeout
	}

	for _, p := range cfg.Validate() {
		msgs = append(msgs, tree.Message{ID: "config-" + p.ID, Text: p.Text, Fatal: p.Fatal})
	}
	return tc, msgs
}

// buildMapping derives the source column mapping from the tree attributes.
func buildMapping(cfg config.Config) datasource.Mapping {
	m := datasource.DefaultMapping()
	if cfg.Source.Table != "" {
		m.Table = cfg.Source.Table
	}
	m.TitleColumn = cfg.Tree.TitleAttribute
	m.IconColumn = cfg.Tree.IconAttribute
	m.ClassColumn = cfg.Tree.ClassAttribute
	switch cfg.Tree.Relation {
	case "children":
		m.ParentColumn = ""
		m.ChildrenColumn = cfg.Tree.ChildrenAttribute
	default:
		m.ParentColumn = cfg.Tree.ParentAttribute
	}
	m.Extra = append([]string(nil), cfg.Source.Extra...)
	return m
}

// openSource opens the configured source. An explicit source type skips
// detection and discovery.
func openSource(ctx context.Context, cfg config.Config, lazy bool, warn func(string)) (datasource.Source, datasource.DataSource, error) {
	opts := []datasource.Option{
		datasource.WithLazy(lazy),
		datasource.WithMapping(buildMapping(cfg)),
		datasource.WithWarningHandler(warn),
	}
	if cfg.Source.Type != "" {
		if info, err := os.Stat(cfg.Source.Path); err == nil && !info.IsDir() {
			ds := datasource.DataSource{Type: datasource.SourceType(cfg.Source.Type), Path: cfg.Source.Path}
			src, err := datasource.Open(ctx, ds, opts...)
			return src, ds, err
		}
	}
	return datasource.OpenPath(ctx, cfg.Source.Path, opts...)
}

// openState returns the configured persister, or nil for the none backend.
// The returned close func is always safe to call.
func openState(ctx context.Context, sc config.StateConfig) (navstate.Persister, func(), error) {
	noop := func() {}
	if sc.Backend == "none" {
		return nil, noop, nil
	}
	backend := sc.Backend
	switch backend {
	case "", navstate.BackendFile, navstate.BackendMemory, navstate.BackendSQLite,
		navstate.BackendPostgres, navstate.BackendDiskv:
	default:
		backend = navstate.BackendFile
	}
	if backend == navstate.BackendPostgres && sc.DSN == "" {
		return nil, noop, fmt.Errorf("postgres backend needs state.dsn")
	}
	loc := config.StateConfig{Backend: backend, Dir: sc.Dir, DSN: sc.DSN}.StateLocation()
	p, err := navstate.Open(ctx, backend, loc, navstate.WithTTL(sc.TTL))
	if err != nil {
		return nil, noop, err
	}
	if c, ok := p.(interface{ Close() error }); ok {
		return p, func() { _ = c.Close() }, nil
	}
	return p, noop, nil
}

// newSearcher picks the query engine for the search mode.
func newSearcher(mode string, src datasource.Source) tree.Searcher {
	if mode == "expr" {
		return datasource.NewExprSearcher(src)
	}
	return src
}

func contextNames(contexts []model.Record) map[string]string {
	names := map[string]string{datasource.AllContext: "All records"}
	for _, r := range contexts {
		if r.Title != "" {
			names[r.ID] = r.Title
		}
	}
	return names
}

// pickContext asks which context to open.
func pickContext(contexts []model.Record) (string, error) {
	options := []huh.Option[string]{huh.NewOption("All top-level records", datasource.AllContext)}
	for _, r := range contexts {
		label := r.ID
		if r.Title != "" {
			label = fmt.Sprintf("%s (%s)", r.Title, r.ID)
		}
		options = append(options, huh.NewOption(label, r.ID))
	}

	choice := datasource.AllContext
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which context do you want to browse?").
				Description("Children of the chosen record become the tree roots").
				Options(options...).
				Value(&choice),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		return "", err
	}
	return choice, nil
}
