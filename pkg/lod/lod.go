// Package lod selects which precomputed node subset to draw at the current
// zoom level, and builds those subsets from a flat graph.
package lod

import (
	"github.com/vanderheijden86/kgview/pkg/debug"
	"github.com/vanderheijden86/kgview/pkg/model"
)

// Thresholds are the scale boundaries between levels. A scale strictly below
// Overview selects the overview; strictly below Detailed selects detailed;
// anything else is complete.
type Thresholds struct {
	Overview float64
	Detailed float64
}

// DefaultThresholds returns the standard 0.3 / 0.7 boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Overview: 0.3, Detailed: 0.7}
}

// Select maps a scale to a level.
func (th Thresholds) Select(scale float64) model.Level {
	switch {
	case scale < th.Overview:
		return model.LevelOverview
	case scale < th.Detailed:
		return model.LevelDetailed
	default:
		return model.LevelComplete
	}
}

// Select maps a scale to a level using the default thresholds.
func Select(scale float64) model.Level {
	return DefaultThresholds().Select(scale)
}

// Tracker holds the active level for a document and only switches to levels
// the document actually provides.
type Tracker struct {
	doc   *model.Document
	th    Thresholds
	level model.Level
}

// NewTracker creates a tracker positioned for the given initial scale.
func NewTracker(doc *model.Document, th Thresholds, scale float64) *Tracker {
	t := &Tracker{doc: doc, th: th, level: finestLevel(doc)}
	t.Update(scale)
	return t
}

func finestLevel(doc *model.Document) model.Level {
	if doc != nil {
		for i := len(model.Levels) - 1; i >= 0; i-- {
			if doc.Level(model.Levels[i]) != nil {
				return model.Levels[i]
			}
		}
	}
	return model.LevelComplete
}

// Level returns the active level.
func (t *Tracker) Level() model.Level { return t.level }

// Update re-selects the level for scale and reports whether it changed. A
// level the document does not carry leaves the active level unchanged.
func (t *Tracker) Update(scale float64) bool {
	if t.doc == nil || !t.doc.HasLevels() {
		return false
	}
	want := t.th.Select(scale)
	if want == t.level || t.doc.Level(want) == nil {
		return false
	}
	debug.Log("lod: %s -> %s at scale %.3f", t.level, want, scale)
	t.level = want
	return true
}

// Graph returns the subset to draw for the active level, falling back to the
// document's flat graph.
func (t *Tracker) Graph() *model.Graph {
	if t.doc == nil {
		return nil
	}
	if g := t.doc.Level(t.level); g != nil {
		return g
	}
	return t.doc.Graph
}

// SetDocument swaps the tracked document, keeping the active level when the
// new document provides it.
func (t *Tracker) SetDocument(doc *model.Document, scale float64) {
	t.doc = doc
	if doc == nil || doc.Level(t.level) == nil {
		t.level = finestLevel(doc)
	}
	t.Update(scale)
}
