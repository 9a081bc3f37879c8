// Package testutil provides deterministic hierarchy fixtures and assertion
// helpers for tree and data source tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/lazytree/pkg/model"
)

// Fixture is an abstract hierarchy. Edges are [parent_idx, child_idx].
type Fixture struct {
	Description string     `json:"description"`
	Nodes       []string   `json:"nodes"`
	Edges       [][2]int   `json:"edges"`
	Properties  Properties `json:"properties,omitempty"`
}

// Properties holds optional metadata about the fixture.
type Properties struct {
	HasCycles     bool `json:"has_cycles,omitempty"`
	Roots         int  `json:"roots,omitempty"`
	ExpectedDepth int  `json:"expected_depth,omitempty"`
}

// GeneratorConfig controls record generation.
type GeneratorConfig struct {
	Seed         int64     // Random seed for determinism (0 = use current time)
	IDPrefix     string    // Prefix for record IDs (default: "TEST")
	BaseTime     time.Time // Base time for timestamps (default: fixed time)
	ChildIDs     bool      // Also fill ChildIDs on parents
	KnownLeaves  bool      // Set HasChildren on every record
	ClassMix     []string  // Class distribution (nil = no class)
	IncludeAttrs bool      // Generate a random "status" attribute
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     42,
		IDPrefix: "TEST",
		BaseTime: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Generator creates fixtures with various shapes.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "TEST"
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Chain creates n0 > n1 > ... > n{size-1}, each the parent of the next.
func (g *Generator) Chain(size int) Fixture {
	nodes := make([]string, size)
	edges := make([][2]int, 0, size)
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 {
			edges = append(edges, [2]int{i - 1, i})
		}
	}
	return Fixture{
		Description: fmt.Sprintf("Chain of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{Roots: min(size, 1), ExpectedDepth: max(size-1, 0)},
	}
}

// Star creates one root with `spokes` leaf children.
func (g *Generator) Star(spokes int) Fixture {
	nodes := []string{"hub"}
	edges := make([][2]int, spokes)
	for i := 1; i <= spokes; i++ {
		nodes = append(nodes, fmt.Sprintf("spoke%d", i))
		edges[i-1] = [2]int{0, i}
	}
	return Fixture{
		Description: fmt.Sprintf("Hub with %d children", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{Roots: 1, ExpectedDepth: 1},
	}
}

// Tree creates a complete tree: every non-leaf has `breadth` children.
func (g *Generator) Tree(depth, breadth int) Fixture {
	if depth < 1 {
		depth = 1
	}
	if breadth < 1 {
		breadth = 1
	}

	nodes := []string{"n0"}
	var edges [][2]int
	nodeID := 1
	currentLevel := []int{0}
	for d := 0; d < depth; d++ {
		var nextLevel []int
		for _, parent := range currentLevel {
			for b := 0; b < breadth; b++ {
				nodes = append(nodes, fmt.Sprintf("n%d", nodeID))
				edges = append(edges, [2]int{parent, nodeID})
				nextLevel = append(nextLevel, nodeID)
				nodeID++
			}
		}
		currentLevel = nextLevel
	}
	return Fixture{
		Description: fmt.Sprintf("Tree with depth=%d, breadth=%d (%d nodes)", depth, breadth, len(nodes)),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{Roots: 1, ExpectedDepth: depth},
	}
}

// Forest creates `trees` independent chains of `size` nodes.
func (g *Generator) Forest(trees, size int) Fixture {
	var nodes []string
	var edges [][2]int
	for c := 0; c < trees; c++ {
		base := len(nodes)
		for i := 0; i < size; i++ {
			nodes = append(nodes, fmt.Sprintf("t%d_n%d", c, i))
			if i > 0 {
				edges = append(edges, [2]int{base + i - 1, base + i})
			}
		}
	}
	return Fixture{
		Description: fmt.Sprintf("%d chains of %d nodes", trees, size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{Roots: trees, ExpectedDepth: max(size-1, 0)},
	}
}

// Cycle creates n0 > n1 > ... > n{size-1} > n0. No node is a root.
func (g *Generator) Cycle(size int) Fixture {
	nodes := make([]string, size)
	edges := make([][2]int, size)
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		edges[i] = [2]int{i, (i + 1) % size}
	}
	return Fixture{
		Description: fmt.Sprintf("Parent cycle of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{HasCycles: true},
	}
}

// Random gives each node after the first a random earlier parent, or no
// parent with probability rootRate.
func (g *Generator) Random(size int, rootRate float64) Fixture {
	nodes := make([]string, size)
	var edges [][2]int
	roots := 0
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i == 0 || g.rng.Float64() < rootRate {
			roots++
			continue
		}
		edges = append(edges, [2]int{g.rng.Intn(i), i})
	}
	return Fixture{
		Description: fmt.Sprintf("Random forest of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{Roots: roots},
	}
}

// ToRecords converts a fixture into records. A node with several parents
// keeps the last edge.
func (g *Generator) ToRecords(f Fixture) []model.Record {
	parent := make(map[int]int)
	children := make(map[int][]int)
	for _, e := range f.Edges {
		parent[e[1]] = e[0]
		children[e[0]] = append(children[e[0]], e[1])
	}

	records := make([]model.Record, len(f.Nodes))
	for i, name := range f.Nodes {
		rec := model.Record{
			ID:        g.id(name),
			Title:     fmt.Sprintf("Record %s", name),
			UpdatedAt: g.cfg.BaseTime.Add(time.Duration(i) * time.Minute),
		}
		if p, ok := parent[i]; ok {
			rec.ParentID = g.id(f.Nodes[p])
		}
		if g.cfg.ChildIDs {
			for _, c := range children[i] {
				rec.ChildIDs = append(rec.ChildIDs, g.id(f.Nodes[c]))
			}
		}
		if g.cfg.KnownLeaves {
			rec.HasChildren = model.Bool(len(children[i]) > 0)
		}
		if len(g.cfg.ClassMix) > 0 {
			rec.Class = g.cfg.ClassMix[g.rng.Intn(len(g.cfg.ClassMix))]
		}
		if g.cfg.IncludeAttrs {
			rec.Attributes = map[string]string{"status": sampleStatuses[g.rng.Intn(len(sampleStatuses))]}
		}
		records[i] = rec
	}
	return records
}

var sampleStatuses = []string{"open", "in_progress", "blocked", "closed"}

func (g *Generator) id(node string) string {
	return fmt.Sprintf("%s-%s", g.cfg.IDPrefix, node)
}

// ToJSONL converts records to JSONL format (one JSON object per line).
func ToJSONL(records []model.Record) string {
	var sb strings.Builder
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			continue
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// QuickChain creates a chain fixture with default settings.
func QuickChain(size int) []model.Record {
	gen := NewDefault()
	return gen.ToRecords(gen.Chain(size))
}

// QuickStar creates a star fixture with default settings.
func QuickStar(spokes int) []model.Record {
	gen := NewDefault()
	return gen.ToRecords(gen.Star(spokes))
}

// QuickTree creates a tree fixture with default settings.
func QuickTree(depth, breadth int) []model.Record {
	gen := NewDefault()
	return gen.ToRecords(gen.Tree(depth, breadth))
}

// QuickForest creates independent chains with default settings.
func QuickForest(trees, size int) []model.Record {
	gen := NewDefault()
	return gen.ToRecords(gen.Forest(trees, size))
}

// QuickCycle creates a cycle fixture with default settings.
func QuickCycle(size int) []model.Record {
	gen := NewDefault()
	return gen.ToRecords(gen.Cycle(size))
}

// QuickRandom creates a random forest with default settings.
func QuickRandom(size int, rootRate float64) []model.Record {
	gen := NewDefault()
	return gen.ToRecords(gen.Random(size, rootRate))
}

// RecordID returns the default-config id of a generated node name.
func RecordID(node string) string {
	return NewDefault().id(node)
}
