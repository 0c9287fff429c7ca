package export

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.sr.ht/~sbinet/gg"

	"github.com/vanderheijden86/kgview/pkg/layout"
	"github.com/vanderheijden86/kgview/pkg/lod"
	"github.com/vanderheijden86/kgview/pkg/metrics"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/render"
	"github.com/vanderheijden86/kgview/pkg/viewport"
)

// Snapshot defaults.
const (
	DefaultWidth  = 1200
	DefaultHeight = 800
)

// ErrNoNodes is returned when there is nothing to draw.
var ErrNoNodes = errors.New("no nodes to export")

// SnapshotOptions controls graph snapshot export behaviour.
type SnapshotOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title  string // Optional title rendered in the summary caption

	Width  int // Pixel size; zero uses DefaultWidth x DefaultHeight
	Height int

	Document *model.Document
	// Level picks a level subset; empty or missing draws the flat graph.
	Level model.Level

	Mastery     model.Mastery
	ShowMastery bool

	Style   render.Style // zero BaseRadius means render.DefaultStyle
	Padding float64      // zero means viewport.DefaultPadding
	// NoSummary drops the caption with title, counts and top hub.
	NoSummary bool
	// Seed makes layout of unpositioned nodes reproducible.
	Seed int64
}

// SnapshotResult describes a written snapshot.
type SnapshotResult struct {
	Path    string
	Format  string
	Stats   render.RenderStats
	Summary SummaryInfo
}

// SummaryInfo is the caption content.
type SummaryInfo struct {
	Title     string
	Level     model.Level
	NodeCount int
	EdgeCount int
	TopHub    string
}

// Lines returns the caption text.
func (s SummaryInfo) Lines() []string {
	return []string{
		s.Title,
		fmt.Sprintf("level: %s  nodes: %d  edges: %d", s.Level, s.NodeCount, s.EdgeCount),
		fmt.Sprintf("top hub: %s", s.TopHub),
	}
}

// ResolveFormat infers the output format, appending ".svg" to an
// extensionless path.
func ResolveFormat(path, format string) (string, string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg"
			if path != "" && filepath.Ext(path) == "" {
				path += ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return path, "", fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	return path, format, nil
}

// SaveSnapshot renders the document fitted to the canvas and writes it as
// SVG or PNG.
func SaveSnapshot(opts SnapshotOptions) (SnapshotResult, error) {
	path, format, err := ResolveFormat(opts.Path, opts.Format)
	if err != nil {
		return SnapshotResult{}, err
	}
	if path == "" {
		return SnapshotResult{}, fmt.Errorf("output path is required")
	}
	opts.Path, opts.Format = path, format

	var buf bytes.Buffer
	res, err := WriteSnapshot(&buf, opts)
	if err != nil {
		return res, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return res, fmt.Errorf("create parent dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return res, fmt.Errorf("write snapshot: %w", err)
	}
	res.Path = path
	return res, nil
}

// WriteSnapshot renders to w in opts.Format ("svg" when empty).
func WriteSnapshot(w io.Writer, opts SnapshotOptions) (SnapshotResult, error) {
	defer metrics.Timer(metrics.Export)()

	_, format, err := ResolveFormat(opts.Path, opts.Format)
	if err != nil {
		return SnapshotResult{}, err
	}
	res := SnapshotResult{Format: format}

	plan, err := planSnapshot(opts)
	if err != nil {
		return res, err
	}
	res.Summary = plan.summary

	r := render.NewRenderer(plan.style)
	switch format {
	case "svg":
		res.Stats, err = r.RenderSVG(w, plan.scene, plan.vp, plan.width, plan.height)
	case "png":
		dc := gg.NewContext(plan.width, plan.height)
		res.Stats = r.Draw(dc, plan.scene, plan.vp)
		err = png.Encode(w, dc.Image())
	}
	return res, err
}

type snapshotPlan struct {
	scene         *render.Scene
	vp            viewport.Transform
	style         render.Style
	width, height int
	summary       SummaryInfo
}

func planSnapshot(opts SnapshotOptions) (snapshotPlan, error) {
	doc := opts.Document
	if doc == nil || doc.Graph == nil {
		return snapshotPlan{}, ErrNoNodes
	}
	if err := doc.Validate(); err != nil {
		return snapshotPlan{}, fmt.Errorf("invalid document: %w", err)
	}

	p := snapshotPlan{width: opts.Width, height: opts.Height, style: opts.Style}
	if p.width <= 0 || p.height <= 0 {
		p.width, p.height = DefaultWidth, DefaultHeight
	}
	if p.style.BaseRadius == 0 {
		p.style = render.DefaultStyle()
	}

	level := model.LevelComplete
	g := doc.Graph
	if opts.Level != "" {
		if lg := doc.Level(opts.Level); lg != nil {
			g, level = lg, opts.Level
		}
	}
	if len(g.Nodes) == 0 {
		return snapshotPlan{}, ErrNoNodes
	}

	// Exports never move the caller's nodes.
	if g.NeedsLayout() {
		g = g.Clone()
		engine := layout.Engine{Width: float64(p.width), Height: float64(p.height), OnlyMissing: true}
		if opts.Seed != 0 {
			engine.Rand = rand.New(rand.NewSource(opts.Seed))
		}
		engine.Run(g)
	}

	padding := opts.Padding
	if padding == 0 {
		padding = viewport.DefaultPadding
	}
	vp := viewport.New(viewport.Options{})
	vp.FitToView(g.Nodes, float64(p.width), float64(p.height), padding)
	p.vp = vp.Target()

	idx := model.NewIndex(g.Nodes)
	edges, _ := g.ValidEdges(idx)
	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Knowledge Graph"
	}
	p.summary = SummaryInfo{
		Title:     title,
		Level:     level,
		NodeCount: len(g.Nodes),
		EdgeCount: len(edges),
		TopHub:    topByMetricWithFallback(lod.Scores(g), ids(g)),
	}

	p.scene = &render.Scene{
		Nodes:       g.Nodes,
		Edges:       g.Edges,
		Index:       idx,
		Level:       level,
		ShowLevel:   doc.HasLevels(),
		Mastery:     opts.Mastery,
		ShowMastery: opts.ShowMastery,
	}
	if !opts.NoSummary {
		p.scene.Caption = p.summary.Lines()
	}
	return p, nil
}

func ids(g *model.Graph) []string {
	out := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		out = append(out, n.ID)
	}
	return out
}

func topByMetric(m map[string]float64) string {
	var bestID string
	var bestVal float64
	hasBest := false
	for id, v := range m {
		if !hasBest || v > bestVal || (v == bestVal && id < bestID) {
			bestID = id
			bestVal = v
			hasBest = true
		}
	}
	if !hasBest {
		return "n/a"
	}
	return fmt.Sprintf("%s (%.2f)", bestID, bestVal)
}

// topByMetricWithFallback returns the top entry from the metric map, or the
// alphabetically first id with a zero score when the map is empty.
func topByMetricWithFallback(m map[string]float64, fallbackIDs []string) string {
	result := topByMetric(m)
	if result != "n/a" {
		return result
	}
	if len(fallbackIDs) == 0 {
		return "n/a"
	}
	sorted := append([]string(nil), fallbackIDs...)
	sort.Strings(sorted)
	return fmt.Sprintf("%s (0.00)", sorted[0])
}
