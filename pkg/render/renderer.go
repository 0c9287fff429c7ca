package render

import (
	"image/color"
	"math"

	"git.sr.ht/~sbinet/gg"
	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/kgview/pkg/metrics"
	"github.com/vanderheijden86/kgview/pkg/viewport"
)

var (
	colorBackdrop = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorEdge     = color.NRGBA{150, 150, 150, 77}
	colorStroke   = color.RGBA{0x33, 0x33, 0x33, 0xff}
	colorSelected = color.RGBA{0x00, 0x00, 0x00, 0xff}
	colorLabel    = color.RGBA{0x33, 0x33, 0x33, 0xff}
)

// Renderer draws scenes. The zero value is not usable; call NewRenderer.
type Renderer struct {
	Style      Style
	Face       font.Face
	Background color.Color
	// HideOverlays skips the info panel, level badge and mastery legend for
	// hosts that draw their own chrome.
	HideOverlays bool
}

// NewRenderer returns a renderer with the given style and the basic bitmap
// font.
func NewRenderer(style Style) *Renderer {
	if style.Palette == nil {
		style.Palette = DefaultPalette()
	}
	return &Renderer{Style: style, Face: basicfont.Face7x13, Background: colorBackdrop}
}

// Draw renders scene onto dc under transform vp. Geometry is drawn in world
// space; labels and overlays are drawn in screen space after the transform is
// restored.
func (r *Renderer) Draw(dc *gg.Context, scene *Scene, vp viewport.Transform) RenderStats {
	defer metrics.Timer(metrics.FrameRender)()
	metrics.FramesDrawn.Inc()

	var stats RenderStats
	dc.Identity()
	dc.SetColor(r.Background)
	dc.Clear()
	dc.SetFontFace(r.Face)

	if scene == nil {
		return stats
	}
	if scene.Error != "" {
		r.drawError(dc, scene.Error)
		return stats
	}
	if vp.Scale <= 0 {
		vp.Scale = 1
	}

	dc.Push()
	dc.Translate(vp.OffsetX, vp.OffsetY)
	dc.Scale(vp.Scale, vp.Scale)
	r.drawEdges(dc, scene, vp.Scale, &stats)
	r.drawNodes(dc, scene, vp.Scale, &stats)
	dc.Pop()

	if vp.Scale > r.Style.LabelMinScale {
		r.drawLabels(dc, scene, vp, &stats)
	}

	if !r.HideOverlays {
		if scene.Selected != nil {
			r.drawInfoPanel(dc, scene)
		}
		if scene.ShowLevel {
			r.drawLevelIndicator(dc, scene)
		}
		if scene.ShowMastery {
			r.drawMasteryLegend(dc)
		}
	}
	if len(scene.Caption) > 0 {
		r.drawCaption(dc, scene.Caption)
	}

	metrics.EdgesDropped.Add(int64(stats.EdgesDropped))
	return stats
}

func (r *Renderer) drawEdges(dc *gg.Context, scene *Scene, scale float64, stats *RenderStats) {
	idx := scene.index()
	dc.SetColor(colorEdge)
	dc.SetLineWidth(r.Style.EdgeWidth)
	dc.SetLineCapRound()

	for _, e := range scene.Edges {
		from, to := idx.Get(e.From), idx.Get(e.To)
		if from == nil || to == nil {
			stats.EdgesDropped++
			continue
		}
		x1, y1 := from.Pos()
		x2, y2 := to.Pos()
		if math.Hypot(x2-x1, y2-y1) < r.Style.MinEdgeLength {
			stats.EdgesSkipped++
			continue
		}
		angle := math.Atan2(y2-y1, x2-x1)
		// End on the target's rim so the arrowhead is not hidden by it.
		tr := r.Style.Radius(to, scale)
		tx, ty := x2-tr*math.Cos(angle), y2-tr*math.Sin(angle)

		dc.DrawLine(x1, y1, tx, ty)
		dc.Stroke()
		r.drawArrowhead(dc, tx, ty, angle, scale)
		stats.EdgesDrawn++
	}
}

func (r *Renderer) drawArrowhead(dc *gg.Context, x, y, angle, scale float64) {
	l := r.Style.ArrowLength / scale
	a := r.Style.ArrowAngle
	dc.MoveTo(x, y)
	dc.LineTo(x-l*math.Cos(angle-a), y-l*math.Sin(angle-a))
	dc.MoveTo(x, y)
	dc.LineTo(x-l*math.Cos(angle+a), y-l*math.Sin(angle+a))
	dc.Stroke()
}

func (r *Renderer) drawNodes(dc *gg.Context, scene *Scene, scale float64, stats *RenderStats) {
	for _, n := range scene.Nodes {
		if n == nil {
			continue
		}
		x, y := n.Pos()
		radius := r.Style.Radius(n, scale)

		fill := scene.NodeFill(n, r.Style.Palette)
		strokeW := 1.0
		var stroke color.Color = colorStroke
		if n == scene.Hovered {
			fill = Lighten(fill, 0.2)
			strokeW = 2
		}
		if n == scene.Selected {
			strokeW = 3
			stroke = colorSelected
		}

		dc.DrawCircle(x, y, radius)
		dc.SetColor(fill)
		dc.FillPreserve()
		dc.SetColor(stroke)
		dc.SetLineWidth(strokeW)
		dc.Stroke()
		stats.NodesDrawn++
	}
}

func (r *Renderer) drawLabels(dc *gg.Context, scene *Scene, vp viewport.Transform, stats *RenderStats) {
	dc.SetColor(colorLabel)
	for _, n := range scene.Nodes {
		if n == nil {
			continue
		}
		sx, sy := vp.WorldToScreen(n.Pos())
		label := TruncateLabel(n.DisplayName(), r.Style.LabelMaxRunes)
		dc.DrawStringAnchored(label, sx, sy+r.Style.ScreenRadius(n)+2, 0.5, 1)
		stats.LabelsDrawn++
	}
}

// CaptionLineHeight is the spacing between caption lines.
const CaptionLineHeight = 16.0

func (r *Renderer) drawCaption(dc *gg.Context, lines []string) {
	dc.SetColor(colorPanelSubtle)
	x := float64(dc.Width()) - 20
	y := float64(dc.Height()) - 20 - CaptionLineHeight*float64(len(lines)-1)
	for i, l := range lines {
		dc.DrawStringAnchored(l, x, y+CaptionLineHeight*float64(i), 1, 0)
	}
}

func (r *Renderer) drawError(dc *gg.Context, msg string) {
	dc.SetColor(ColorStruggling)
	w := float64(dc.Width())
	lines := dc.WordWrap(msg, math.Max(w-40, 40))
	lh := dc.FontHeight() * 1.4
	y := float64(dc.Height())/2 - lh*float64(len(lines)-1)/2
	for i, line := range lines {
		dc.DrawStringAnchored(line, w/2, y+float64(i)*lh, 0.5, 0.5)
	}
}

// TruncateLabel shortens s to max display columns followed by "...".
func TruncateLabel(s string, max int) string {
	if max <= 0 || runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "") + "..."
}
