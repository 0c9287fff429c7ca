package render

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/viewport"
)

// RenderSVG writes the same frame Draw would produce as an SVG document of
// the given pixel size. Coordinates are projected to screen space and rounded.
func (r *Renderer) RenderSVG(w io.Writer, scene *Scene, vp viewport.Transform, width, height int) (RenderStats, error) {
	var stats RenderStats
	if width <= 0 || height <= 0 {
		return stats, fmt.Errorf("invalid svg size %dx%d", width, height)
	}
	if vp.Scale <= 0 {
		vp.Scale = 1
	}

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	defer canvas.End()

	if scene == nil {
		return stats, nil
	}
	if scene.Error != "" {
		canvas.Text(width/2, height/2, scene.Error,
			fmt.Sprintf("fill:%s;font-size:16px;font-family:sans-serif;text-anchor:middle", css(ColorStruggling)))
		return stats, nil
	}

	idx := scene.index()
	edgeStyle := fmt.Sprintf("stroke:rgb(150,150,150);stroke-opacity:0.3;stroke-width:%g;stroke-linecap:round", r.Style.EdgeWidth)
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
		sx1, sy1 := vp.WorldToScreen(x1, y1)
		sx2, sy2 := vp.WorldToScreen(x2, y2)
		angle := math.Atan2(sy2-sy1, sx2-sx1)
		rim := r.Style.ScreenRadius(to)
		tx, ty := sx2-rim*math.Cos(angle), sy2-rim*math.Sin(angle)
		canvas.Line(px(sx1), px(sy1), px(tx), px(ty), edgeStyle)

		l, a := r.Style.ArrowLength, r.Style.ArrowAngle
		canvas.Polyline(
			[]int{px(tx - l*math.Cos(angle-a)), px(tx), px(tx - l*math.Cos(angle+a))},
			[]int{px(ty - l*math.Sin(angle-a)), px(ty), px(ty - l*math.Sin(angle+a))},
			edgeStyle+";fill:none",
		)
		stats.EdgesDrawn++
	}

	for _, n := range scene.Nodes {
		if n == nil {
			continue
		}
		sx, sy := vp.WorldToScreen(n.Pos())
		radius := r.Style.ScreenRadius(n)
		fill := scene.NodeFill(n, r.Style.Palette)
		strokeW := 1
		stroke := colorStroke
		if n == scene.Hovered {
			fill = Lighten(fill, 0.2)
			strokeW = 2
		}
		if n == scene.Selected {
			strokeW = 3
			stroke = colorSelected
		}
		canvas.Circle(px(sx), px(sy), px(radius),
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%d", css(fill), css(stroke), strokeW))
		stats.NodesDrawn++

		if vp.Scale > r.Style.LabelMinScale {
			canvas.Text(px(sx), px(sy+radius+14), TruncateLabel(n.DisplayName(), r.Style.LabelMaxRunes),
				fmt.Sprintf("fill:%s;font-size:12px;font-family:sans-serif;text-anchor:middle", css(colorLabel)))
			stats.LabelsDrawn++
		}
	}

	if scene.Selected != nil {
		r.infoPanelSVG(canvas, scene)
	}
	if scene.ShowLevel {
		b := LevelIndicatorRect(float64(width))
		canvas.Rect(px(b.X), px(b.Y), px(b.W), px(b.H), "fill:black;fill-opacity:0.7")
		level := scene.Level
		if level == "" {
			level = model.LevelComplete
		}
		textStyle := "fill:white;font-size:12px;font-family:sans-serif;text-anchor:middle"
		canvas.Text(px(b.X+b.W/2), px(b.Y+18), "Level: "+string(level), textStyle)
		canvas.Text(px(b.X+b.W/2), px(b.Y+33), fmt.Sprintf("%d nodes", len(scene.Nodes)), textStyle)
	}
	if scene.ShowMastery {
		h := 16 + 18*len(LegendRows)
		x, y := 20, height-20-h
		canvas.Roundrect(x, y, 160, h, 8, 8, fmt.Sprintf("fill:white;stroke:%s;stroke-width:1", css(colorPanelBorder)))
		for i, row := range LegendRows {
			cy := y + 8 + 18*i + 9
			canvas.Circle(x+16, cy, 6, fmt.Sprintf("fill:%s", css(MasteryColor(row.Status))))
			canvas.Text(x+28, cy+4, row.Label, fmt.Sprintf("fill:%s;font-size:12px;font-family:sans-serif", css(colorPanelText)))
		}
	}
	for i, l := range scene.Caption {
		y := float64(height) - 20 - CaptionLineHeight*float64(len(scene.Caption)-1-i)
		canvas.Text(width-20, px(y), l,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;text-anchor:end", css(colorPanelSubtle)))
	}
	return stats, nil
}

func (r *Renderer) infoPanelSVG(canvas *svg.SVG, scene *Scene) {
	// 6.5px per rune approximates a 11px sans-serif face.
	p := LayoutInfoPanel(scene.Selected, scene, r.Style.Palette, func(s string) float64 {
		return float64(len([]rune(s))) * 6.5
	})
	canvas.Rect(px(p.Rect.X), px(p.Rect.Y), px(p.Rect.W), px(p.Rect.H),
		fmt.Sprintf("fill:white;fill-opacity:0.95;stroke:%s;stroke-width:1", css(colorPanelBorder)))
	y := p.Rect.Y + 25
	for _, l := range p.Lines {
		weight := "normal"
		size := 11
		if l.Bold {
			weight, size = "bold", 16
		}
		canvas.Text(px(p.Rect.X+panelPad), px(y), l.Text,
			fmt.Sprintf("fill:%s;font-size:%dpx;font-weight:%s;font-family:sans-serif", css(l.Color), size, weight))
		y += panelLine
	}
	canvas.Rect(px(p.Close.X), px(p.Close.Y), px(p.Close.W), px(p.Close.H), fmt.Sprintf("fill:%s", css(colorClose)))
	canvas.Text(px(p.Close.X+p.Close.W/2), px(p.Close.Y+15), "x", "fill:white;font-size:14px;font-weight:bold;text-anchor:middle")
}

func px(v float64) int {
	return int(math.Round(v))
}
