// Package testutil provides test fixture generators for various graph topologies.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/kgview/pkg/model"
)

// GraphFixture represents an abstract graph for testing graph algorithms.
type GraphFixture struct {
	Description string     `json:"description"`
	Nodes       []string   `json:"nodes"`
	Edges       [][2]int   `json:"edges"` // [from_idx, to_idx]
	Properties  Properties `json:"properties,omitempty"`
}

// Properties holds optional metadata about the fixture.
type Properties struct {
	HasCycles   bool `json:"has_cycles,omitempty"`
	IsConnected bool `json:"is_connected,omitempty"`
}

// GeneratorConfig controls how fixtures are turned into model graphs.
type GeneratorConfig struct {
	Seed        int64    // Random seed for determinism (0 = fixed default)
	Groups      []string // Groups assigned round-robin (nil = "Algebra")
	Importance  float64  // Importance for every node (0 = random in [0,1))
	WithLayout  bool     // Assign positions on a horizontal line
	Spacing     float64  // Distance between positioned nodes (default 100)
	Description bool     // Attach a generated description to each node
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:       42, // Deterministic
		Groups:     []string{"Algebra", "Geometry", "Calculus"},
		Importance: 0.5,
		Spacing:    100,
	}
}

// Generator creates test fixtures with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = 42
	}
	if len(cfg.Groups) == 0 {
		cfg.Groups = []string{"Algebra"}
	}
	if cfg.Spacing <= 0 {
		cfg.Spacing = 100
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

// Chain creates a linear chain: n0 -> n1 -> ... -> n{size-1}.
// Each node is a prerequisite of the next.
func (g *Generator) Chain(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, 0, max(size-1, 0))
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 {
			edges = append(edges, [2]int{i - 1, i})
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Linear chain of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true},
	}
}

// Star creates a hub that is a prerequisite of every spoke.
func (g *Generator) Star(spokes int) GraphFixture {
	size := spokes + 1
	nodes := make([]string, size)
	edges := make([][2]int, spokes)
	nodes[0] = "hub"
	for i := 1; i < size; i++ {
		nodes[i] = fmt.Sprintf("spoke%d", i)
		edges[i-1] = [2]int{0, i}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Star with hub and %d spokes", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true},
	}
}

// Tree creates a tree with given depth and branching factor.
func (g *Generator) Tree(depth, breadth int) GraphFixture {
	if depth < 1 {
		depth = 1
	}
	if breadth < 1 {
		breadth = 1
	}
	nodes := []string{"root"}
	var edges [][2]int
	level := []int{0}
	for d := 1; d < depth; d++ {
		var next []int
		for _, parent := range level {
			for b := 0; b < breadth; b++ {
				id := len(nodes)
				nodes = append(nodes, fmt.Sprintf("t%d_%d", d, id))
				edges = append(edges, [2]int{parent, id})
				next = append(next, id)
			}
		}
		level = next
	}
	return GraphFixture{
		Description: fmt.Sprintf("Tree depth=%d breadth=%d (%d nodes)", depth, breadth, len(nodes)),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true},
	}
}

// Disconnected creates multiple isolated chains.
func (g *Generator) Disconnected(components, componentSize int) GraphFixture {
	var nodes []string
	var edges [][2]int
	for c := 0; c < components; c++ {
		for i := 0; i < componentSize; i++ {
			id := len(nodes)
			nodes = append(nodes, fmt.Sprintf("c%d_n%d", c, i))
			if i > 0 {
				edges = append(edges, [2]int{id - 1, id})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("%d disconnected chains of %d nodes", components, componentSize),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// RandomDAG creates a random directed acyclic graph.
// density is the probability of an edge existing (0.0 to 1.0).
func (g *Generator) RandomDAG(size int, density float64) GraphFixture {
	density = max(0, min(1, density))
	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
	}
	// Only lower -> higher index, so the result is acyclic.
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if g.rng.Float64() < density {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Random DAG with %d nodes, density=%.2f (%d edges)", size, density, len(edges)),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// ToGraph converts a fixture into a model graph using the generator config.
func (g *Generator) ToGraph(gf GraphFixture) *model.Graph {
	out := &model.Graph{
		Nodes: make([]*model.Node, len(gf.Nodes)),
		Edges: make([]model.Edge, 0, len(gf.Edges)),
	}
	for i, id := range gf.Nodes {
		imp := g.cfg.Importance
		if imp == 0 {
			imp = g.rng.Float64()
		}
		n := &model.Node{
			ID:         id,
			Label:      id,
			FullName:   "Topic " + id,
			Group:      g.cfg.Groups[i%len(g.cfg.Groups)],
			Importance: &imp,
		}
		if g.cfg.WithLayout {
			n.SetPos(float64(i)*g.cfg.Spacing, 0)
		}
		if g.cfg.Description {
			n.Title = fmt.Sprintf("Description of %s, node %d of %d.", id, i+1, len(gf.Nodes))
		}
		out.Nodes[i] = n
	}
	for _, e := range gf.Edges {
		out.Edges = append(out.Edges, model.Edge{From: gf.Nodes[e[0]], To: gf.Nodes[e[1]]})
	}
	return out
}

// ToDocument wraps ToGraph in a document without levels.
func (g *Generator) ToDocument(gf GraphFixture) *model.Document {
	gr := g.ToGraph(gf)
	return &model.Document{
		Graph: gr,
		Metadata: model.Metadata{
			TotalNodes: len(gr.Nodes),
			TotalEdges: len(gr.Edges),
			Strands:    g.cfg.Groups,
		},
	}
}

// QuickChain returns a positioned chain graph with uniform importance 0.5.
func QuickChain(size int) *model.Graph {
	cfg := DefaultConfig()
	cfg.WithLayout = true
	g := New(cfg)
	return g.ToGraph(g.Chain(size))
}

// QuickStar returns an unpositioned star graph.
func QuickStar(spokes int) *model.Graph {
	g := NewDefault()
	return g.ToGraph(g.Star(spokes))
}

// QuickRandom returns an unpositioned random DAG with random importance.
func QuickRandom(size int, density float64) *model.Graph {
	cfg := DefaultConfig()
	cfg.Importance = 0
	g := New(cfg)
	return g.ToGraph(g.RandomDAG(size, density))
}

// Empty returns a graph with no nodes.
func Empty() *model.Graph {
	return &model.Graph{}
}
