package render

import (
	"image/color"

	"github.com/vanderheijden86/kgview/pkg/model"
)

// Scene is everything needed to draw one frame.
type Scene struct {
	Nodes []*model.Node
	Edges []model.Edge
	// Index resolves edge endpoints. Nil means build one from Nodes.
	Index model.Index

	Hovered  *model.Node
	Selected *model.Node

	Level     model.Level
	ShowLevel bool

	Mastery     model.Mastery
	ShowMastery bool

	// Error replaces the graph with a centred message when set.
	Error string

	// Caption lines are drawn bottom-right. Exports use it for a summary.
	Caption []string
}

// RenderStats summarizes one drawn frame.
type RenderStats struct {
	NodesDrawn   int
	EdgesDrawn   int
	EdgesDropped int // endpoint missing from the scene
	EdgesSkipped int // shorter than Style.MinEdgeLength
	LabelsDrawn  int
}

// NodeFill returns the fill colour for n: its group colour, tinted by
// mastery status when the overlay is on and a score exists.
func (s *Scene) NodeFill(n *model.Node, p Palette) color.RGBA {
	base := p.Color(n.GroupKey())
	if !s.ShowMastery {
		return base
	}
	st := s.Mastery.Status(n.ID)
	if st == model.MasteryUnknown {
		return base
	}
	return Blend(base, MasteryColor(st), MasteryBlend)
}

func (s *Scene) index() model.Index {
	if s.Index != nil {
		return s.Index
	}
	return model.NewIndex(s.Nodes)
}
