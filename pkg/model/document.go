package model

import "fmt"

// Level names a level-of-detail subset.
type Level string

const (
	LevelOverview Level = "overview"
	LevelDetailed Level = "detailed"
	LevelComplete Level = "complete"
)

// Levels lists the levels from coarsest to finest.
var Levels = []Level{LevelOverview, LevelDetailed, LevelComplete}

// IsValid reports whether l is one of the known levels.
func (l Level) IsValid() bool {
	switch l {
	case LevelOverview, LevelDetailed, LevelComplete:
		return true
	}
	return false
}

// Metadata carries optional provenance about a graph document.
type Metadata struct {
	TotalNodes  int      `json:"total_nodes,omitempty"`
	TotalEdges  int      `json:"total_edges,omitempty"`
	Strands     []string `json:"strands,omitempty"`
	GeneratedAt string   `json:"generated_at,omitempty"`
	Version     string   `json:"version,omitempty"`
}

// Document is a loaded graph snapshot, optionally partitioned into levels.
// Graph holds the flat node/edge set; when only levels were supplied it is the
// finest level available.
type Document struct {
	Graph    *Graph
	Levels   map[Level]*Graph
	Metadata Metadata
}

// HasLevels reports whether the document carries level-of-detail subsets.
func (d *Document) HasLevels() bool {
	return len(d.Levels) > 0
}

// Level returns the subset for l, or nil.
func (d *Document) Level(l Level) *Graph {
	if d.Levels == nil {
		return nil
	}
	return d.Levels[l]
}

// Validate checks the flat graph and every level.
func (d *Document) Validate() error {
	if d.Graph == nil {
		return fmt.Errorf("document has no graph")
	}
	if err := d.Graph.Validate(); err != nil {
		return err
	}
	for name, g := range d.Levels {
		if !name.IsValid() {
			return fmt.Errorf("unknown level %q", name)
		}
		if g == nil {
			continue
		}
		if err := g.Validate(); err != nil {
			return fmt.Errorf("level %s: %w", name, err)
		}
	}
	return nil
}

// Finest returns the most detailed graph in the document.
func (d *Document) Finest() *Graph {
	for i := len(Levels) - 1; i >= 0; i-- {
		if g := d.Level(Levels[i]); g != nil {
			return g
		}
	}
	return d.Graph
}
