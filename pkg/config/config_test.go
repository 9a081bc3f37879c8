package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Tree.Relation != "parent" {
		t.Errorf("expected relation 'parent', got %q", cfg.Tree.Relation)
	}
	if !cfg.Tree.SingleSelection || !cfg.Tree.LazyLoad {
		t.Error("expected single selection and lazy loading by default")
	}
	if cfg.Tree.LoadTimeout != 30*time.Second {
		t.Errorf("expected 30s load timeout, got %v", cfg.Tree.LoadTimeout)
	}
	if cfg.Favorites == nil {
		t.Error("expected favorites map to be initialized")
	}
	if problems := cfg.Validate(); len(problems) != 0 {
		t.Errorf("default config should validate cleanly, got %v", problems)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Tree.TitleAttribute != "title" {
		t.Errorf("expected default config, got title attribute %q", cfg.Tree.TitleAttribute)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
tree:
  relation: children
  children_attribute: kids
  title_attribute: name
  single_selection: false
  load_timeout: 5s

source:
  path: ~/data/records.db
  table: nodes
  search: expr

state:
  backend: sqlite
  dir: ~/state
  ttl: 72h

favorites:
  1: proj-1
  2: proj-2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Tree.Relation != "children" || cfg.Tree.ChildrenAttribute != "kids" {
		t.Errorf("tree mapping not loaded: %+v", cfg.Tree)
	}
	if cfg.Tree.SingleSelection {
		t.Error("single_selection override lost")
	}
	if !cfg.Tree.HoldSelection {
		t.Error("unset keys must keep their defaults")
	}
	if cfg.Tree.LoadTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Tree.LoadTimeout)
	}
	if cfg.State.TTL != 72*time.Hour {
		t.Errorf("expected 72h ttl, got %v", cfg.State.TTL)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "data/records.db"); cfg.Source.Path != want {
		t.Errorf("expected expanded path %q, got %q", want, cfg.Source.Path)
	}
	if want := filepath.Join(home, "state", "nav_state.db"); cfg.State.StateLocation() != want {
		t.Errorf("expected state location %q, got %q", want, cfg.State.StateLocation())
	}

	if id, ok := cfg.FavoriteContext(2); !ok || id != "proj-2" {
		t.Errorf("expected favorite 2 = proj-2, got %q", id)
	}
	if problems := cfg.Validate(); len(problems) != 0 {
		t.Errorf("unexpected problems: %v", problems)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Tree.IconAttribute = "kind"
	cfg.State.TTL = time.Hour
	cfg.SetFavorite(3, "ctx-3")

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Tree.IconAttribute != "kind" {
		t.Errorf("icon attribute lost: %q", loaded.Tree.IconAttribute)
	}
	if loaded.State.TTL != time.Hour {
		t.Errorf("ttl lost: %v", loaded.State.TTL)
	}
	if loaded.ContextFavoriteNumber("ctx-3") != 3 {
		t.Errorf("favorite lost: %v", loaded.Favorites)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantID    string
		wantFatal bool
	}{
		{"unknown relation", func(c *Config) { c.Tree.Relation = "sideways" }, "relation", true},
		{"missing parent attribute", func(c *Config) { c.Tree.ParentAttribute = "" }, "parent-attribute", true},
		{"missing children attribute", func(c *Config) {
			c.Tree.Relation = "children"
			c.Tree.ChildrenAttribute = ""
		}, "children-attribute", true},
		{"missing title", func(c *Config) { c.Tree.TitleAttribute = "" }, "title-attribute", true},
		{"bad source type", func(c *Config) { c.Source.Type = "csv" }, "source-type", true},
		{"bad search mode", func(c *Config) { c.Source.Search = "regex" }, "search-mode", false},
		{"bad backend", func(c *Config) { c.State.Backend = "redis" }, "state-backend", false},
		{"postgres without dsn", func(c *Config) { c.State.Backend = "postgres" }, "state-dsn", false},
		{"split ratio", func(c *Config) { c.UI.SplitRatio = 0.95 }, "split-ratio", false},
		{"favorite key", func(c *Config) { c.Favorites[12] = "x" }, "favorites", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			problems := cfg.Validate()
			if len(problems) != 1 {
				t.Fatalf("expected one problem, got %v", problems)
			}
			p := problems[0]
			if p.ID != tt.wantID || p.Fatal != tt.wantFatal {
				t.Fatalf("got %+v, want id %s fatal %v", p, tt.wantID, tt.wantFatal)
			}
			if HasFatal(problems) != tt.wantFatal {
				t.Fatal("HasFatal disagrees with the problem list")
			}
		})
	}
}

func TestSetFavorite(t *testing.T) {
	var cfg Config
	cfg.SetFavorite(1, "a")
	if n := cfg.ContextFavoriteNumber("a"); n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
	cfg.SetFavorite(1, "")
	if _, ok := cfg.FavoriteContext(1); ok {
		t.Fatal("expected favorite cleared")
	}
}

func TestXDGDirs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")
	if got := ConfigPath(); got != "/tmp/xdg-config/lazytree/config.yaml" {
		t.Errorf("ConfigPath() = %q", got)
	}
	if got := (StateConfig{Backend: "file"}).StateLocation(); got != "/tmp/xdg-state/lazytree/nav" {
		t.Errorf("StateLocation() = %q", got)
	}
	if got := (StateConfig{Backend: "postgres", DSN: "postgres://x"}).StateLocation(); got != "postgres://x" {
		t.Errorf("postgres location = %q", got)
	}
}
