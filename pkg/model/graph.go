// Package model defines the knowledge-graph data types shared by the layout,
// level-of-detail, rendering and view packages.
package model

import (
	"fmt"
	"math"
	"strings"
)

// DefaultImportance is used for nodes that carry no importance weight.
const DefaultImportance = 0.5

// DefaultGroup is the palette key used when a node has no group.
const DefaultGroup = "Other"

// Node is a single topic in the knowledge graph.
type Node struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	FullName   string   `json:"full_name,omitempty"`
	Group      string   `json:"group,omitempty"`
	Importance *float64 `json:"importance,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	GradeLevel string   `json:"grade_level,omitempty"`
	// Title is the free-text description shown in the info panel.
	Title string `json:"title,omitempty"`
}

// Weight returns the node importance, defaulting to DefaultImportance.
// Out-of-range values are returned unchanged; callers that size nodes clamp
// the resulting radius instead.
func (n *Node) Weight() float64 {
	if n.Importance == nil || math.IsNaN(*n.Importance) {
		return DefaultImportance
	}
	return *n.Importance
}

// HasPosition reports whether both coordinates are present and finite.
func (n *Node) HasPosition() bool {
	if n.X == nil || n.Y == nil {
		return false
	}
	return !math.IsNaN(*n.X) && !math.IsNaN(*n.Y) && !math.IsInf(*n.X, 0) && !math.IsInf(*n.Y, 0)
}

// Pos returns the node position, treating missing coordinates as zero.
func (n *Node) Pos() (float64, float64) {
	var x, y float64
	if n.X != nil {
		x = *n.X
	}
	if n.Y != nil {
		y = *n.Y
	}
	return x, y
}

// SetPos stores a position on the node.
func (n *Node) SetPos(x, y float64) {
	n.X = &x
	n.Y = &y
}

// DisplayName returns the best human-readable name for the node.
func (n *Node) DisplayName() string {
	switch {
	case strings.TrimSpace(n.Label) != "":
		return n.Label
	case strings.TrimSpace(n.FullName) != "":
		return n.FullName
	default:
		return n.ID
	}
}

// GroupKey returns the palette key for the node.
func (n *Node) GroupKey() string {
	if strings.TrimSpace(n.Group) == "" {
		return DefaultGroup
	}
	return n.Group
}

// Edge is a directed prerequisite relation: From must be learned before To.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Title string `json:"title,omitempty"`
}

// Graph is a node/edge set. Node ids are unique within a graph.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []Edge  `json:"edges"`
}

// Validate checks node id uniqueness. Dangling edges are not an error; they
// are dropped at render time.
func (g *Graph) Validate() error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for i, n := range g.Nodes {
		if n == nil {
			return fmt.Errorf("node %d is nil", i)
		}
		if strings.TrimSpace(n.ID) == "" {
			return fmt.Errorf("node %d has empty id", i)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return nil
}

// NeedsLayout reports whether any node lacks a usable position.
func (g *Graph) NeedsLayout() bool {
	for _, n := range g.Nodes {
		if !n.HasPosition() {
			return true
		}
	}
	return false
}

// ValidEdges returns the edges whose endpoints both exist in idx, plus the
// number of edges dropped.
func (g *Graph) ValidEdges(idx Index) ([]Edge, int) {
	valid := make([]Edge, 0, len(g.Edges))
	dropped := 0
	for _, e := range g.Edges {
		if idx.Has(e.From) && idx.Has(e.To) {
			valid = append(valid, e)
			continue
		}
		dropped++
	}
	return valid, dropped
}

// Clone returns a deep copy so layout passes never touch the caller's data.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Nodes: make([]*Node, len(g.Nodes)),
		Edges: append([]Edge(nil), g.Edges...),
	}
	for i, n := range g.Nodes {
		c := *n
		if n.Importance != nil {
			v := *n.Importance
			c.Importance = &v
		}
		if n.X != nil {
			v := *n.X
			c.X = &v
		}
		if n.Y != nil {
			v := *n.Y
			c.Y = &v
		}
		out.Nodes[i] = &c
	}
	return out
}

// Index maps node ids to nodes. Built once per graph load.
type Index map[string]*Node

// NewIndex indexes the nodes of g. Later duplicates do not replace earlier ones.
func NewIndex(nodes []*Node) Index {
	idx := make(Index, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, ok := idx[n.ID]; !ok {
			idx[n.ID] = n
		}
	}
	return idx
}

// Has reports whether id is indexed.
func (idx Index) Has(id string) bool {
	_, ok := idx[id]
	return ok
}

// Get returns the node for id or nil.
func (idx Index) Get(id string) *Node {
	return idx[id]
}

// Bounds is an axis-aligned box in world coordinates.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the box width.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the box height.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Contains reports whether (x, y) lies inside b, edges included.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// BoundsOf returns the bounding box of node positions. ok is false for an
// empty slice.
func BoundsOf(nodes []*Node) (b Bounds, ok bool) {
	b = Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, n := range nodes {
		if n == nil {
			continue
		}
		x, y := n.Pos()
		b.MinX = math.Min(b.MinX, x)
		b.MinY = math.Min(b.MinY, y)
		b.MaxX = math.Max(b.MaxX, x)
		b.MaxY = math.Max(b.MaxY, y)
		ok = true
	}
	if !ok {
		return Bounds{}, false
	}
	return b, true
}
