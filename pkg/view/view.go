// Package view ties the layout, viewport, level-of-detail and rendering
// packages into one interactive graph view. A View owns all of its state;
// several can coexist in one process.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"git.sr.ht/~sbinet/gg"

	"github.com/vanderheijden86/kgview/pkg/debug"
	"github.com/vanderheijden86/kgview/pkg/layout"
	"github.com/vanderheijden86/kgview/pkg/lod"
	"github.com/vanderheijden86/kgview/pkg/metrics"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/render"
	"github.com/vanderheijden86/kgview/pkg/viewport"
)

// ErrNoCanvas is returned by Initialize when no drawing surface is given.
var ErrNoCanvas = errors.New("view: canvas is nil")

// Messages drawn in place of the graph.
const (
	MsgNoData     = "No graph data available"
	MsgLoadFailed = "Failed to load graph data"
)

// Options configures a View. The zero value disables every optional
// feature; DefaultOptions enables them.
type Options struct {
	EnableLOD            bool
	EnableAnimation      bool
	EnableMasteryOverlay bool
	// EnableLoop drives rendering from Scheduler. When false every state
	// change renders immediately and viewport changes are not animated.
	EnableLoop bool

	Style      render.Style   // zero BaseRadius means render.DefaultStyle
	Thresholds lod.Thresholds // zero means lod.DefaultThresholds
	Viewport   viewport.Options
	FitPadding float64 // zero means viewport.DefaultPadding

	// BuildLevels derives levels from the flat graph when the document has
	// none and LOD is enabled.
	BuildLevels bool
	Fractions   lod.Fractions

	// Layout places nodes that arrive without positions. Width and Height
	// default to the canvas size.
	Layout layout.Engine

	Mastery model.Mastery

	// HideOverlays leaves the info panel, level badge and legend to the host.
	// The close button is then not hit-tested either.
	HideOverlays bool

	// Scheduler delivers frames in loop mode. Nil starts a TickerScheduler
	// that the view stops on Destroy.
	Scheduler Scheduler
	Clock     viewport.Clock
}

// DefaultOptions enables LOD, animation, the frame loop and level building.
func DefaultOptions() Options {
	return Options{
		EnableLOD:       true,
		EnableAnimation: true,
		EnableLoop:      true,
		BuildLevels:     true,
		Fractions:       lod.DefaultFractions(),
	}
}

// View is one interactive knowledge-graph view bound to a canvas.
type View struct {
	mu sync.Mutex

	canvas   *gg.Context
	renderer *render.Renderer
	opts     Options

	doc     *model.Document
	tracker *lod.Tracker
	vp      *viewport.Controller
	indexes map[*model.Graph]model.Index
	full    model.Index
	mastery model.Mastery
	errMsg  string

	hovered  *model.Node
	selected *model.Node
	dragging bool
	lastX    float64
	lastY    float64

	sched     Scheduler
	ownsSched *TickerScheduler
	frame     FrameID
	lastFrame time.Time
	dirty     bool
	frames    uint64
	stats     render.RenderStats
	destroyed bool
}

// Initialize builds a view over doc and draws the first frame. The view takes
// ownership of doc: nodes without positions are laid out in place. A nil doc
// yields a view showing MsgNoData. Invalid documents are reported in-canvas,
// not returned.
func Initialize(canvas *gg.Context, doc *model.Document, opts Options) (*View, error) {
	if canvas == nil {
		debug.Log("view: initialize called without a canvas")
		return nil, ErrNoCanvas
	}
	if opts.Style.BaseRadius == 0 {
		opts.Style = render.DefaultStyle()
	}
	if opts.Thresholds == (lod.Thresholds{}) {
		opts.Thresholds = lod.DefaultThresholds()
	}
	if opts.Fractions == (lod.Fractions{}) {
		opts.Fractions = lod.DefaultFractions()
	}
	if opts.FitPadding == 0 {
		opts.FitPadding = viewport.DefaultPadding
	}
	vpOpts := opts.Viewport
	vpOpts.Animate = opts.EnableAnimation && opts.EnableLoop
	if opts.Clock != nil {
		vpOpts.Clock = opts.Clock
	}

	r := render.NewRenderer(opts.Style)
	r.HideOverlays = opts.HideOverlays
	v := &View{
		canvas:   canvas,
		renderer: r,
		opts:     opts,
		vp:       viewport.New(vpOpts),
		indexes:  make(map[*model.Graph]model.Index),
		mastery:  model.Mastery(nil).Merge(opts.Mastery),
		dirty:    true,
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if doc == nil {
		v.errMsg = MsgNoData
	} else if err := v.loadLocked(doc); err != nil {
		debug.Log("view: %v", err)
		v.errMsg = fmt.Sprintf("%s: %v", MsgLoadFailed, err)
	} else {
		v.fitLocked(true)
	}

	if opts.EnableLoop {
		v.sched = opts.Scheduler
		if v.sched == nil {
			v.ownsSched = NewTickerScheduler(context.Background(), FrameInterval)
			v.sched = v.ownsSched
		}
		v.requestFrameLocked()
	} else {
		v.renderLocked()
	}
	return v, nil
}

// loadLocked lays out and indexes doc and makes it current.
func (v *View) loadLocked(doc *model.Document) error {
	if doc.Graph == nil {
		return errors.New("document has no graph")
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	engine := v.opts.Layout
	if engine.Width == 0 || engine.Height == 0 {
		engine.Width, engine.Height = float64(v.canvas.Width()), float64(v.canvas.Height())
	}
	engine.OnlyMissing = true
	if doc.Graph.NeedsLayout() {
		res := engine.Run(doc.Graph)
		debug.Log("view: layout placed %d nodes in %d iterations", len(doc.Graph.Nodes), res.Iterations)
	}

	full := model.NewIndex(doc.Graph.Nodes)
	for _, g := range doc.Levels {
		if g == nil {
			continue
		}
		for _, n := range g.Nodes {
			if n.HasPosition() {
				continue
			}
			if src := full.Get(n.ID); src != nil && src.HasPosition() {
				n.SetPos(src.Pos())
			}
		}
		if g.NeedsLayout() {
			engine.Run(g)
		}
	}

	if v.opts.EnableLOD && v.opts.BuildLevels && !doc.HasLevels() && len(doc.Graph.Nodes) > 0 {
		doc.Levels = lod.Build(doc.Graph, v.opts.Fractions)
	}

	v.doc = doc
	v.full = full
	v.indexes = make(map[*model.Graph]model.Index)
	if v.tracker == nil {
		v.tracker = lod.NewTracker(doc, v.opts.Thresholds, v.vp.Scale())
	} else {
		v.tracker.SetDocument(doc, v.vp.Scale())
	}
	v.errMsg = ""
	v.remapLocked()
	return nil
}

// visibleLocked returns the graph drawn at the current level.
func (v *View) visibleLocked() *model.Graph {
	if v.doc == nil {
		return nil
	}
	if v.opts.EnableLOD {
		return v.tracker.Graph()
	}
	return v.doc.Graph
}

func (v *View) indexFor(g *model.Graph) model.Index {
	if g == nil {
		return nil
	}
	idx, ok := v.indexes[g]
	if !ok {
		idx = model.NewIndex(g.Nodes)
		v.indexes[g] = idx
	}
	return idx
}

// remapLocked points hovered and selected at the visible graph's copies of
// the same ids. A node missing from the visible level stays selected so its
// info panel survives zooming out.
func (v *View) remapLocked() {
	idx := v.indexFor(v.visibleLocked())
	if v.selected != nil {
		if n := idx.Get(v.selected.ID); n != nil {
			v.selected = n
		} else if n := v.full.Get(v.selected.ID); n != nil {
			v.selected = n
		}
	}
	if v.hovered != nil {
		v.hovered = idx.Get(v.hovered.ID)
	}
}

// syncLevelLocked re-selects the level for the current scale.
func (v *View) syncLevelLocked() {
	if v.doc == nil || !v.opts.EnableLOD {
		return
	}
	if v.tracker.Update(v.vp.Scale()) {
		v.remapLocked()
	}
}

func (v *View) fitLocked(immediate bool) {
	if v.doc == nil {
		return
	}
	v.vp.FitToView(v.doc.Graph.Nodes, float64(v.canvas.Width()), float64(v.canvas.Height()), v.opts.FitPadding)
	if immediate {
		v.vp.Set(v.vp.Target())
		v.syncLevelLocked()
	}
}

// invalidateLocked marks the frame stale. Outside loop mode it renders now.
func (v *View) invalidateLocked() {
	v.syncLevelLocked()
	v.dirty = true
	if !v.opts.EnableLoop {
		v.renderLocked()
	}
}

func (v *View) requestFrameLocked() {
	if v.destroyed || v.sched == nil || v.frame != 0 {
		return
	}
	v.frame = v.sched.RequestFrame(v.onFrame)
}

// onFrame is the loop body: throttle, advance animation, render when
// something changed, and request the next frame.
func (v *View) onFrame(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.frame = 0
	if v.destroyed {
		return
	}
	defer v.requestFrameLocked()

	if !v.lastFrame.IsZero() && now.Sub(v.lastFrame) < FrameInterval-frameSlack {
		metrics.FramesThrottled.Inc()
		return
	}
	if v.vp.Tick(now) {
		v.syncLevelLocked()
		v.dirty = true
	}
	if v.dirty {
		v.renderLocked()
		v.lastFrame = now
	}
}

func (v *View) sceneLocked() *render.Scene {
	s := &render.Scene{
		Hovered:     v.hovered,
		Selected:    v.selected,
		Mastery:     v.mastery,
		ShowMastery: v.opts.EnableMasteryOverlay,
		Error:       v.errMsg,
	}
	g := v.visibleLocked()
	if g == nil {
		if s.Error == "" {
			s.Error = MsgNoData
		}
		return s
	}
	s.Nodes = g.Nodes
	s.Edges = g.Edges
	s.Index = v.indexFor(g)
	if v.opts.EnableLOD && v.doc.HasLevels() {
		s.ShowLevel = true
		s.Level = v.tracker.Level()
	}
	return s
}

func (v *View) renderLocked() {
	if v.destroyed {
		return
	}
	v.stats = v.renderer.Draw(v.canvas, v.sceneLocked(), v.vp.Transform())
	v.dirty = false
	v.frames++
}

// Render draws the current state immediately and returns its statistics.
func (v *View) Render() render.RenderStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renderLocked()
	return v.stats
}

// ResetView returns to the identity transform.
func (v *View) ResetView() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.vp.Reset()
	v.invalidateLocked()
}

// FitToView frames every node of the document.
func (v *View) FitToView() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.fitLocked(false)
	v.invalidateLocked()
}

// FitNow frames every node without animating, for example after the host
// learns its real size.
func (v *View) FitNow() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.fitLocked(true)
	v.invalidateLocked()
}

// Pan moves the view by a screen-space delta.
func (v *View) Pan(dx, dy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.vp.Pan(dx, dy)
	v.invalidateLocked()
}

// ZoomAt zooms by factor around a screen point.
func (v *View) ZoomAt(px, py, factor float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.vp.Zoom(px, py, factor)
	v.invalidateLocked()
}

// SelectNode selects the node with id and reports whether it exists. An
// empty id clears the selection.
func (v *View) SelectNode(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return false
	}
	if id == "" {
		v.selected = nil
		v.invalidateLocked()
		return true
	}
	n := v.indexFor(v.visibleLocked()).Get(id)
	if n == nil {
		n = v.full.Get(id)
	}
	if n == nil {
		return false
	}
	v.selected = n
	v.invalidateLocked()
	return true
}

// UpdateMastery merges partial scores into a fresh copy of the current map.
// Scenes already handed out keep the scores they were built with.
func (v *View) UpdateMastery(partial model.Mastery) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.mastery = model.Mastery(nil).Merge(v.mastery).Merge(partial)
	v.invalidateLocked()
}

// SetDocument replaces the graph, keeping the viewport, and re-resolves the
// hovered and selected nodes by id. Used for live reload.
func (v *View) SetDocument(doc *model.Document) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return nil
	}
	if doc == nil {
		return errors.New("view: nil document")
	}
	first := v.doc == nil
	if err := v.loadLocked(doc); err != nil {
		return err
	}
	metrics.Reloads.Inc()
	if first {
		v.fitLocked(true)
	}
	v.invalidateLocked()
	return nil
}

// SetError replaces the graph with msg drawn in-canvas. An empty msg clears
// it.
func (v *View) SetError(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.errMsg = msg
	v.invalidateLocked()
}

// SetCanvas swaps the drawing surface, for example after a resize.
func (v *View) SetCanvas(canvas *gg.Context) error {
	if canvas == nil {
		return ErrNoCanvas
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.canvas = canvas
	v.invalidateLocked()
	return nil
}

// Destroy cancels the pending frame and stops an owned scheduler. Further
// calls on the view are no-ops.
func (v *View) Destroy() {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return
	}
	v.destroyed = true
	if v.frame != 0 {
		v.sched.CancelFrame(v.frame)
		v.frame = 0
	}
	owned := v.ownsSched
	v.mu.Unlock()

	// Stop waits for an in-flight frame, which needs the lock.
	if owned != nil {
		owned.Stop()
	}
}

// State accessors.

func (v *View) Selected() *model.Node {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

func (v *View) Hovered() *model.Node {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hovered
}

func (v *View) Dragging() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dragging
}

func (v *View) Transform() viewport.Transform {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.vp.Transform()
}

func (v *View) Level() model.Level {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.tracker == nil {
		return model.LevelComplete
	}
	return v.tracker.Level()
}

func (v *View) Error() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.errMsg
}

func (v *View) Stats() render.RenderStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}

// Frames returns how many frames have been drawn.
func (v *View) Frames() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames
}

func (v *View) Animating() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.vp.Animating()
}

func (v *View) Mastery() model.Mastery {
	v.mu.Lock()
	defer v.mu.Unlock()
	return model.Mastery(nil).Merge(v.mastery)
}

func (v *View) Destroyed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed
}

// Scene returns a snapshot of what the next frame would draw, for exporters.
func (v *View) Scene() *render.Scene {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sceneLocked()
}

// Renderer returns the renderer so exporters draw with the same style.
func (v *View) Renderer() *render.Renderer {
	return v.renderer
}

// Canvas returns the current drawing surface.
func (v *View) Canvas() *gg.Context {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.canvas
}
