// Package render draws a knowledge-graph scene onto a gg raster context (or
// an SVG document) and resolves pointer positions to nodes. Sizing is shared
// between drawing and hit-testing through Style.Radius.
package render

import (
	"math"

	"github.com/vanderheijden86/kgview/pkg/model"
)

// Style holds sizing and appearance parameters.
type Style struct {
	BaseRadius float64
	MinRadius  float64
	MaxRadius  float64

	EdgeWidth     float64
	ArrowLength   float64
	ArrowAngle    float64
	MinEdgeLength float64 // world units; shorter edges are skipped

	LabelMinScale float64 // labels drawn only when scale is above this
	LabelMaxRunes int

	Palette Palette
}

// DefaultStyle returns the standard appearance.
func DefaultStyle() Style {
	return Style{
		BaseRadius:    8,
		MinRadius:     4,
		MaxRadius:     20,
		EdgeWidth:     1,
		ArrowLength:   8,
		ArrowAngle:    math.Pi / 6,
		MinEdgeLength: 5,
		LabelMinScale: 0.5,
		LabelMaxRunes: 15,
		Palette:       DefaultPalette(),
	}
}

// ScreenRadius is the on-screen radius in pixels: base×(0.5+importance)
// clamped to [MinRadius, MaxRadius]. It does not depend on zoom.
func (s Style) ScreenRadius(n *model.Node) float64 {
	r := s.BaseRadius * (0.5 + n.Weight())
	return math.Max(s.MinRadius, math.Min(s.MaxRadius, r))
}

// Radius is the world-space radius at the given scale, so nodes keep a
// constant pixel size while zooming.
func (s Style) Radius(n *model.Node, scale float64) float64 {
	if scale <= 0 {
		scale = 1
	}
	return s.ScreenRadius(n) / scale
}
