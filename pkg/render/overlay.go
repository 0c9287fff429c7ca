package render

import (
	"fmt"
	"image/color"
	"strings"

	"git.sr.ht/~sbinet/gg"

	"github.com/vanderheijden86/kgview/pkg/model"
)

var (
	colorPanelBG     = color.NRGBA{0xff, 0xff, 0xff, 0xf2}
	colorPanelBorder = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	colorPanelText   = color.RGBA{0x33, 0x33, 0x33, 0xff}
	colorPanelSubtle = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorClose       = color.RGBA{0xe7, 0x4c, 0x3c, 0xff}
	colorIndicatorBG = color.NRGBA{0x00, 0x00, 0x00, 0xb3}
	colorWhite       = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// Rect is a screen-space rectangle.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// Info panel geometry.
const (
	PanelX         = 20.0
	PanelY         = 20.0
	PanelWidth     = 300.0
	PanelMinHeight = 150.0
	panelPad       = 15.0
	panelLine      = 15.0
)

// PanelLine is one line of info panel text.
type PanelLine struct {
	Text  string
	Color color.RGBA
	Bold  bool
}

// InfoPanel describes the selected-node panel: its lines, bounds and close
// button. Description text is wrapped by the measure function.
type InfoPanel struct {
	Rect  Rect
	Close Rect
	Lines []PanelLine
}

// LayoutInfoPanel computes the panel for n. measure returns the pixel width
// of a string; nil approximates 7px per rune.
func LayoutInfoPanel(n *model.Node, scene *Scene, p Palette, measure func(string) float64) InfoPanel {
	if measure == nil {
		measure = func(s string) float64 { return float64(len([]rune(s))) * 7 }
	}
	lines := []PanelLine{
		{Text: n.DisplayName(), Color: colorPanelText, Bold: true},
		{Text: "Strand: " + n.GroupKey(), Color: p.Color(n.GroupKey())},
	}
	if n.Difficulty != "" {
		lines = append(lines, PanelLine{Text: "Difficulty: " + n.Difficulty, Color: colorPanelSubtle})
	}
	if n.GradeLevel != "" {
		lines = append(lines, PanelLine{Text: "Grade level: " + n.GradeLevel, Color: colorPanelSubtle})
	}
	if scene != nil && scene.ShowMastery {
		if v, ok := scene.Mastery.Score(n.ID); ok {
			st := model.StatusFor(v, ok)
			lines = append(lines, PanelLine{
				Text:  fmt.Sprintf("Mastery: %.0f%% (%s)", v*100, st),
				Color: MasteryColor(st),
			})
		} else {
			lines = append(lines, PanelLine{Text: "Mastery: unknown", Color: ColorUnknown})
		}
	}
	for _, l := range WrapWords(n.Title, PanelWidth-2*panelPad, measure) {
		lines = append(lines, PanelLine{Text: l, Color: colorPanelSubtle})
	}

	h := 25 + float64(len(lines))*panelLine + 10
	if h < PanelMinHeight {
		h = PanelMinHeight
	}
	return InfoPanel{
		Rect:  Rect{X: PanelX, Y: PanelY, W: PanelWidth, H: h},
		Close: Rect{X: PanelX + PanelWidth - 30, Y: PanelY + 10, W: 20, H: 20},
		Lines: lines,
	}
}

// WrapWords greedily breaks s on spaces so that no line exceeds width. A
// single word wider than width gets a line of its own.
func WrapWords(s string, width float64, measure func(string) float64) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		test := line + " " + w
		if measure(test) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line = test
	}
	return append(lines, line)
}

func (r *Renderer) drawInfoPanel(dc *gg.Context, scene *Scene) {
	measure := func(s string) float64 {
		w, _ := dc.MeasureString(s)
		return w
	}
	p := LayoutInfoPanel(scene.Selected, scene, r.Style.Palette, measure)

	dc.SetColor(color.NRGBA{0, 0, 0, 0x1a})
	dc.DrawRectangle(p.Rect.X+2, p.Rect.Y+2, p.Rect.W, p.Rect.H)
	dc.Fill()
	dc.SetColor(colorPanelBG)
	dc.DrawRectangle(p.Rect.X, p.Rect.Y, p.Rect.W, p.Rect.H)
	dc.FillPreserve()
	dc.SetColor(colorPanelBorder)
	dc.SetLineWidth(1)
	dc.Stroke()

	y := p.Rect.Y + 25
	for _, l := range p.Lines {
		dc.SetColor(l.Color)
		dc.DrawString(l.Text, p.Rect.X+panelPad, y)
		if l.Bold {
			dc.DrawString(l.Text, p.Rect.X+panelPad+1, y)
		}
		y += panelLine
	}

	dc.SetColor(colorClose)
	dc.DrawRectangle(p.Close.X, p.Close.Y, p.Close.W, p.Close.H)
	dc.Fill()
	dc.SetColor(colorWhite)
	dc.DrawStringAnchored("x", p.Close.X+p.Close.W/2, p.Close.Y+p.Close.H/2, 0.5, 0.35)
}

// LevelIndicatorRect returns the level badge bounds for a canvas width.
func LevelIndicatorRect(canvasW float64) Rect {
	return Rect{X: canvasW - 120, Y: 20, W: 100, H: 40}
}

func (r *Renderer) drawLevelIndicator(dc *gg.Context, scene *Scene) {
	b := LevelIndicatorRect(float64(dc.Width()))
	dc.SetColor(colorIndicatorBG)
	dc.DrawRectangle(b.X, b.Y, b.W, b.H)
	dc.Fill()
	dc.SetColor(colorWhite)
	level := scene.Level
	if level == "" {
		level = model.LevelComplete
	}
	dc.DrawStringAnchored("Level: "+string(level), b.X+b.W/2, b.Y+15, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%d nodes", len(scene.Nodes)), b.X+b.W/2, b.Y+30, 0.5, 0.5)
}

// LegendRows lists the mastery legend entries in display order.
var LegendRows = []struct {
	Status model.MasteryStatus
	Label  string
}{
	{model.MasteryMastered, "Mastered (80%+)"},
	{model.MasteryLearning, "Learning (40-79%)"},
	{model.MasteryStruggling, "Struggling (0-39%)"},
	{model.MasteryUnknown, "Unknown"},
}

func (r *Renderer) drawMasteryLegend(dc *gg.Context) {
	const rowH = 18.0
	w := 160.0
	h := 16 + rowH*float64(len(LegendRows))
	x := 20.0
	y := float64(dc.Height()) - 20 - h

	dc.SetColor(colorPanelBG)
	dc.DrawRoundedRectangle(x, y, w, h, 8)
	dc.FillPreserve()
	dc.SetColor(colorPanelBorder)
	dc.SetLineWidth(1)
	dc.Stroke()

	for i, row := range LegendRows {
		cy := y + 8 + rowH*float64(i) + rowH/2
		dc.SetColor(MasteryColor(row.Status))
		dc.DrawCircle(x+16, cy, 6)
		dc.Fill()
		dc.SetColor(colorPanelText)
		dc.DrawStringAnchored(row.Label, x+28, cy, 0, 0.35)
	}
}
