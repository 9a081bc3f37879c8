// Package config handles loading and saving lazytree configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/lazytree/config.yaml
//   - State:   ~/.local/state/lazytree/ (navigation state per context)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "lazytree"

// TreeConfig maps record attributes onto the tree and sets store behaviour.
type TreeConfig struct {
	Relation          string        `yaml:"relation,omitempty"` // parent or children
	ParentAttribute   string        `yaml:"parent_attribute,omitempty"`
	ChildrenAttribute string        `yaml:"children_attribute,omitempty"`
	TitleAttribute    string        `yaml:"title_attribute,omitempty"`
	IconAttribute     string        `yaml:"icon_attribute,omitempty"`
	ClassAttribute    string        `yaml:"class_attribute,omitempty"`
	SingleSelection   bool          `yaml:"single_selection"`
	HoldSelection     bool          `yaml:"hold_selection"`
	LazyLoad          bool          `yaml:"lazy_load"`
	LoadTimeout       time.Duration `yaml:"load_timeout,omitempty"`
}

// SourceConfig points at the record source.
type SourceConfig struct {
	Type   string   `yaml:"type,omitempty"` // sqlite, jsonl; empty = detect
	Path   string   `yaml:"path,omitempty"` // file, or directory to discover in
	Table  string   `yaml:"table,omitempty"`
	Extra  []string `yaml:"extra_columns,omitempty"`
	Search string   `yaml:"search,omitempty"` // text or expr
	Watch  bool     `yaml:"watch,omitempty"`  // reload JSONL sources on change
}

// StateConfig selects where navigation state is persisted.
type StateConfig struct {
	Backend string        `yaml:"backend,omitempty"` // file, sqlite, postgres, diskv, memory, none
	Dir     string        `yaml:"dir,omitempty"`
	DSN     string        `yaml:"dsn,omitempty"`
	TTL     time.Duration `yaml:"ttl,omitempty"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	SplitRatio  float64 `yaml:"split_ratio,omitempty"`  // Tree pane width share (0.2-0.8)
	ShowDetail  bool    `yaml:"show_detail"`            // Render the detail pane
	DetailStyle string  `yaml:"detail_style,omitempty"` // glamour style: dark, light, notty
}

// Config is the top-level configuration for lazytree.
type Config struct {
	Tree      TreeConfig     `yaml:"tree"`
	Source    SourceConfig   `yaml:"source,omitempty"`
	State     StateConfig    `yaml:"state,omitempty"`
	UI        UIConfig       `yaml:"ui,omitempty"`
	Favorites map[int]string `yaml:"favorites,omitempty"` // Number key (1-9) -> context id
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Tree: TreeConfig{
			Relation:          "parent",
			ParentAttribute:   "parent_id",
			ChildrenAttribute: "child_ids",
			TitleAttribute:    "title",
			SingleSelection:   true,
			HoldSelection:     true,
			LazyLoad:          true,
			LoadTimeout:       30 * time.Second,
		},
		Source: SourceConfig{
			Table:  "records",
			Search: "text",
		},
		State: StateConfig{
			Backend: "file",
		},
		UI: UIConfig{
			SplitRatio:  0.5,
			ShowDetail:  true,
			DetailStyle: "dark",
		},
		Favorites: make(map[int]string),
	}
}

// Problem is one configuration finding. Fatal problems make the tree
// unusable until fixed.
type Problem struct {
	ID    string
	Text  string
	Fatal bool
}

func (p Problem) String() string {
	if p.Fatal {
		return "error: " + p.Text
	}
	return "warning: " + p.Text
}

// Validate reports missing mapping attributes and unknown enum values.
func (c Config) Validate() []Problem {
	var out []Problem
	add := func(id string, fatal bool, format string, args ...any) {
		out = append(out, Problem{ID: id, Text: fmt.Sprintf(format, args...), Fatal: fatal})
	}

	t := c.Tree
	switch t.Relation {
	case "parent":
		if t.ParentAttribute == "" {
			add("parent-attribute", true, "tree.parent_attribute is required for the parent relation")
		}
	case "children":
		if t.ChildrenAttribute == "" {
			add("children-attribute", true, "tree.children_attribute is required for the children relation")
		}
	default:
		add("relation", true, "tree.relation must be parent or children, got %q", t.Relation)
	}
	if t.TitleAttribute == "" {
		add("title-attribute", true, "tree.title_attribute is required")
	}
	if t.LoadTimeout < 0 {
		add("load-timeout", false, "tree.load_timeout is negative; loads will not time out")
	}

	switch c.Source.Type {
	case "", "sqlite", "jsonl":
	default:
		add("source-type", true, "source.type must be sqlite or jsonl, got %q", c.Source.Type)
	}
	switch c.Source.Search {
	case "", "text", "expr":
	default:
		add("search-mode", false, "source.search %q unknown; using text search", c.Source.Search)
	}

	switch c.State.Backend {
	case "", "file", "sqlite", "postgres", "diskv", "memory", "none":
	default:
		add("state-backend", false, "state.backend %q unknown; using file", c.State.Backend)
	}
	if c.State.Backend == "postgres" && c.State.DSN == "" {
		add("state-dsn", false, "state.dsn is required for the postgres backend; state will not persist")
	}

	if r := c.UI.SplitRatio; r != 0 && (r < 0.2 || r > 0.8) {
		add("split-ratio", false, "ui.split_ratio %.2f outside 0.2-0.8", r)
	}
	for n := range c.Favorites {
		if n < 1 || n > 9 {
			add("favorites", false, "favorite key %d outside 1-9", n)
		}
	}
	return out
}

// HasFatal reports whether any problem is fatal.
func HasFatal(problems []Problem) bool {
	for _, p := range problems {
		if p.Fatal {
			return true
		}
	}
	return false
}

// StateLocation resolves the backend location: a directory for file and
// diskv, a database path for sqlite and the DSN for postgres.
func (s StateConfig) StateLocation() string {
	dir := s.Dir
	if dir == "" {
		dir = filepath.Join(StateDir(), "nav")
	}
	switch s.Backend {
	case "postgres":
		return s.DSN
	case "sqlite":
		return filepath.Join(dir, "nav_state.db")
	}
	return dir
}

// ConfigDir returns the XDG config directory for lazytree.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the XDG state directory for lazytree.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Favorites == nil {
		cfg.Favorites = make(map[int]string)
	}
	cfg.Source.Path = expandHome(cfg.Source.Path)
	cfg.State.Dir = expandHome(cfg.State.Dir)

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FavoriteContext returns the context id assigned to number key n (1-9).
func (c Config) FavoriteContext(n int) (string, bool) {
	id, ok := c.Favorites[n]
	return id, ok && id != ""
}

// SetFavorite assigns a context id to a number key (1-9). An empty id
// clears the key.
func (c *Config) SetFavorite(n int, contextID string) {
	if c.Favorites == nil {
		c.Favorites = make(map[int]string)
	}
	if contextID == "" {
		delete(c.Favorites, n)
	} else {
		c.Favorites[n] = contextID
	}
}

// ContextFavoriteNumber returns the favorite number (1-9) for a context id, or 0 if not favorited.
func (c Config) ContextFavoriteNumber(contextID string) int {
	for n, id := range c.Favorites {
		if id == contextID {
			return n
		}
	}
	return 0
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
