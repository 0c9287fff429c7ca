package view

import (
	"errors"
	"math"
	"testing"
	"time"

	"git.sr.ht/~sbinet/gg"

	"github.com/vanderheijden86/kgview/pkg/metrics"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/testutil"
	"github.com/vanderheijden86/kgview/pkg/viewport"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// newStatic returns a view over a positioned three-node chain without the
// frame loop or LOD. After the initial fit the nodes sit at screen x = 200,
// 400 and 600 on y = 300.
func newStatic(t *testing.T) *View {
	t.Helper()
	v, err := Initialize(gg.NewContext(800, 600), &model.Document{Graph: testutil.QuickChain(3)}, Options{})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(v.Destroy)
	return v
}

func TestInitialize_NilCanvas(t *testing.T) {
	if _, err := Initialize(nil, nil, DefaultOptions()); !errors.Is(err, ErrNoCanvas) {
		t.Fatalf("expected ErrNoCanvas, got %v", err)
	}
}

func TestInitialize_FitsAndDraws(t *testing.T) {
	v := newStatic(t)

	want := viewport.Transform{Scale: 2, OffsetX: 200, OffsetY: 300}
	if got := v.Transform(); got != want {
		t.Fatalf("transform = %+v, want %+v", got, want)
	}
	if v.Frames() != 1 {
		t.Errorf("frames = %d, want 1", v.Frames())
	}
	st := v.Stats()
	if st.NodesDrawn != 3 || st.EdgesDrawn != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestInitialize_NilAndInvalidDocuments(t *testing.T) {
	v, err := Initialize(gg.NewContext(200, 200), nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Error() != MsgNoData {
		t.Errorf("error = %q", v.Error())
	}
	if v.Stats().NodesDrawn != 0 {
		t.Error("nothing should be drawn without data")
	}

	dup := &model.Graph{Nodes: []*model.Node{{ID: "a"}, {ID: "a"}}}
	v, err = Initialize(gg.NewContext(200, 200), &model.Document{Graph: dup}, Options{})
	if err != nil {
		t.Fatalf("invalid documents are reported in-canvas, got %v", err)
	}
	if v.Error() == "" || v.Scene().Error == "" {
		t.Error("expected an in-canvas error")
	}
	if v.Dispatch(Event{Type: PointerMove, X: 100, Y: 100}) {
		t.Error("no node can be hovered while the error is shown")
	}
}

func TestInitialize_LaysOutMissingPositions(t *testing.T) {
	g := testutil.QuickStar(5)
	v, err := Initialize(gg.NewContext(400, 400), &model.Document{Graph: g}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer v.Destroy()
	testutil.AssertAllPositioned(t, g)
	if v.Stats().NodesDrawn != len(g.Nodes) {
		t.Errorf("drew %d of %d nodes", v.Stats().NodesDrawn, len(g.Nodes))
	}
}

func TestClickSelectsAndCloseButtonDeselects(t *testing.T) {
	v := newStatic(t)

	if !v.Dispatch(Event{Type: PointerDown, X: 400, Y: 300}) {
		t.Fatal("press on a node should change state")
	}
	v.Dispatch(Event{Type: PointerUp, X: 400, Y: 300})
	if sel := v.Selected(); sel == nil || sel.ID != "n1" {
		t.Fatalf("selected = %v, want n1", sel)
	}
	if v.Dragging() {
		t.Error("pressing a node must not start a drag")
	}

	v.Dispatch(Event{Type: PointerDown, X: 300, Y: 40})
	if v.Selected() != nil {
		t.Error("close button should clear the selection")
	}
	if v.Dragging() {
		t.Error("close button must not start a drag")
	}
}

func TestEscapeClearsSelectionKeepsHover(t *testing.T) {
	v := newStatic(t)

	v.Dispatch(Event{Type: PointerMove, X: 400, Y: 300})
	if h := v.Hovered(); h == nil || h.ID != "n1" {
		t.Fatalf("hovered = %v, want n1", h)
	}
	if v.Cursor() != CursorPointer {
		t.Errorf("cursor = %s, want pointer", v.Cursor())
	}
	v.Dispatch(Event{Type: PointerDown, X: 400, Y: 300})
	v.Dispatch(Event{Type: PointerUp, X: 400, Y: 300})

	if !v.Dispatch(Event{Type: Key, Key: "Escape"}) {
		t.Fatal("escape with a selection should change state")
	}
	if v.Selected() != nil {
		t.Error("escape should clear the selection")
	}
	if h := v.Hovered(); h == nil || h.ID != "n1" {
		t.Errorf("hover should survive escape, got %v", h)
	}
	if v.Dispatch(Event{Type: Key, Key: "Escape"}) {
		t.Error("second escape is a no-op")
	}

	v.Dispatch(Event{Type: PointerLeave})
	if v.Hovered() != nil {
		t.Error("leaving the canvas clears hover")
	}
}

func TestDragPans(t *testing.T) {
	v := newStatic(t)

	v.Dispatch(Event{Type: PointerDown, X: 50, Y: 50})
	if !v.Dragging() || v.Cursor() != CursorGrabbing {
		t.Fatal("press on background should start a drag")
	}
	v.Dispatch(Event{Type: PointerMove, X: 70, Y: 80})
	v.Dispatch(Event{Type: PointerUp, X: 70, Y: 80})

	want := viewport.Transform{Scale: 2, OffsetX: 220, OffsetY: 330}
	if got := v.Transform(); got != want {
		t.Errorf("transform = %+v, want %+v", got, want)
	}
	if v.Dragging() || v.Cursor() != CursorGrab {
		t.Error("release should end the drag")
	}
}

func TestTouchIgnoresMultiTouch(t *testing.T) {
	v := newStatic(t)

	if v.Dispatch(Event{Type: TouchStart, X: 50, Y: 50, Touches: 2}) {
		t.Error("two-finger touch should be ignored")
	}
	v.Dispatch(Event{Type: TouchStart, X: 50, Y: 50, Touches: 1})
	v.Dispatch(Event{Type: TouchMove, X: 60, Y: 50, Touches: 1})
	v.Dispatch(Event{Type: TouchEnd})
	if got := v.Transform().OffsetX; got != 210 {
		t.Errorf("offsetX = %v, want 210", got)
	}
}

func TestWheelZoomClampsAndKeepsCursorPoint(t *testing.T) {
	v := newStatic(t)

	for i := 0; i < 30; i++ {
		v.Dispatch(Event{Type: Wheel, X: 400, Y: 300, DeltaY: -1})
	}
	tr := v.Transform()
	if tr.Scale != viewport.DefaultMaxScale {
		t.Errorf("scale = %v, want clamp at %v", tr.Scale, viewport.DefaultMaxScale)
	}
	wx, wy := tr.ScreenToWorld(400, 300)
	testutil.AssertClose(t, "world x under cursor", wx, 100, 1e-6)
	testutil.AssertClose(t, "world y under cursor", wy, 0, 1e-6)

	for i := 0; i < 60; i++ {
		v.Dispatch(Event{Type: Wheel, X: 400, Y: 300, DeltaY: 1})
	}
	if got := v.Transform().Scale; got != viewport.DefaultMinScale {
		t.Errorf("scale = %v, want clamp at %v", got, viewport.DefaultMinScale)
	}
}

func TestResetAndFit(t *testing.T) {
	v := newStatic(t)

	v.ResetView()
	if v.Transform() != viewport.Identity {
		t.Errorf("reset: %+v", v.Transform())
	}
	v.Dispatch(Event{Type: Key, Key: "r"})
	if got := v.Transform().Scale; got != 2 {
		t.Errorf("r should refit, scale = %v", got)
	}
	v.Pan(10, 0)
	v.FitToView()
	if got := v.Transform().OffsetX; got != 200 {
		t.Errorf("fit offsetX = %v, want 200", got)
	}
}

func TestSelectNode(t *testing.T) {
	v := newStatic(t)

	if !v.SelectNode("n2") || v.Selected().ID != "n2" {
		t.Fatal("expected n2 selected")
	}
	if v.SelectNode("missing") {
		t.Error("unknown id should report false")
	}
	if v.Selected().ID != "n2" {
		t.Error("failed lookup must keep the selection")
	}
	v.SelectNode("")
	if v.Selected() != nil {
		t.Error("empty id clears the selection")
	}
}

func TestUpdateMasteryMerges(t *testing.T) {
	initial := model.Mastery{"n0": 0.9}
	opts := Options{EnableMasteryOverlay: true, Mastery: initial}
	v, err := Initialize(gg.NewContext(800, 600), &model.Document{Graph: testutil.QuickChain(3)}, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Destroy()

	v.UpdateMastery(model.Mastery{"n1": 0.2, "n0": 0.5})
	m := v.Mastery()
	if m["n0"] != 0.5 || m["n1"] != 0.2 || len(m) != 2 {
		t.Errorf("mastery = %v", m)
	}
	if len(initial) != 1 || initial["n0"] != 0.9 {
		t.Error("caller's map must not be modified")
	}
	if !v.Scene().ShowMastery {
		t.Error("overlay flag should reach the scene")
	}
}

func TestSceneMasteryUnaffectedByLaterUpdate(t *testing.T) {
	opts := Options{EnableMasteryOverlay: true, Mastery: model.Mastery{"n0": 0.9}}
	v, err := Initialize(gg.NewContext(800, 600), &model.Document{Graph: testutil.QuickChain(3)}, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Destroy()

	s := v.Scene()
	v.UpdateMastery(model.Mastery{"n0": 0.1, "n2": 0.4})

	if s.Mastery["n0"] != 0.9 || len(s.Mastery) != 1 {
		t.Errorf("earlier scene saw the update: %v", s.Mastery)
	}
	if got := v.Scene().Mastery; got["n0"] != 0.1 || got["n2"] != 0.4 {
		t.Errorf("new scene mastery = %v", got)
	}
}

func TestSetDocumentKeepsSelectionByID(t *testing.T) {
	v := newStatic(t)
	v.SelectNode("n1")
	old := v.Selected()
	before := v.Transform()
	reloads := metrics.Reloads.Value()

	if err := v.SetDocument(&model.Document{Graph: testutil.QuickChain(4)}); err != nil {
		t.Fatal(err)
	}
	sel := v.Selected()
	if sel == nil || sel.ID != "n1" || sel == old {
		t.Errorf("selection should move to the reloaded n1, got %v", sel)
	}
	if v.Transform() != before {
		t.Error("reload must keep the viewport")
	}
	if metrics.Reloads.Value() != reloads+1 {
		t.Error("reload not counted")
	}
	if v.Stats().NodesDrawn != 4 {
		t.Errorf("drew %d nodes after reload", v.Stats().NodesDrawn)
	}
	if err := v.SetDocument(nil); err == nil {
		t.Error("nil document should be rejected")
	}
}

func TestLevelOfDetailSwitching(t *testing.T) {
	opts := Options{EnableLOD: true, BuildLevels: true}
	doc := &model.Document{Graph: testutil.QuickChain(10)}
	v, err := Initialize(gg.NewContext(800, 600), doc, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Destroy()

	if !doc.HasLevels() {
		t.Fatal("levels should be built")
	}
	// 700px of room for 900 world units.
	if v.Level() != model.LevelComplete {
		t.Fatalf("level at scale %.3f = %s", v.Transform().Scale, v.Level())
	}

	v.ZoomAt(400, 300, 0.5)
	if v.Level() != model.LevelDetailed {
		t.Errorf("level at scale %.3f = %s, want detailed", v.Transform().Scale, v.Level())
	}
	v.ZoomAt(400, 300, 0.5)
	if v.Level() != model.LevelOverview {
		t.Fatalf("level at scale %.3f = %s, want overview", v.Transform().Scale, v.Level())
	}
	s := v.Scene()
	if len(s.Nodes) != 2 || !s.ShowLevel || s.Level != model.LevelOverview {
		t.Errorf("overview scene: %d nodes, level %s", len(s.Nodes), s.Level)
	}

	id := s.Nodes[0].ID
	v.SelectNode(id)
	v.ZoomAt(400, 300, 4)
	if v.Level() != model.LevelComplete {
		t.Fatalf("level = %s after zooming back in", v.Level())
	}
	if got := v.Scene().Index.Get(id); got == nil || v.Selected() != got {
		t.Error("selection should follow the level switch by id")
	}
}

func TestBuiltLevelsKeepInputImportance(t *testing.T) {
	g := testutil.QuickChain(5)
	for _, n := range g.Nodes {
		one := 1.0
		n.Importance = &one
	}
	doc := &model.Document{Graph: g}
	opts := DefaultOptions()
	opts.EnableLoop = false
	v, err := Initialize(gg.NewContext(800, 600), doc, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Destroy()

	if !doc.HasLevels() {
		t.Fatal("levels should be built")
	}
	for _, l := range model.Levels {
		for _, n := range doc.Level(l).Nodes {
			if n.Weight() != 1.0 {
				t.Errorf("%s: node %s importance %v, want 1.0", l, n.ID, n.Weight())
			}
		}
	}
	style := v.Renderer().Style
	for _, n := range v.Scene().Nodes {
		if got, want := style.ScreenRadius(n), style.BaseRadius*1.5; got != want {
			t.Errorf("node %s drawn at radius %v, want %v", n.ID, got, want)
		}
	}
}

func TestFrameLoop_RendersEveryTickAtFrameRate(t *testing.T) {
	sched := NewManualScheduler()
	opts := Options{EnableLoop: true, Scheduler: sched, Clock: &fakeClock{now: t0}}
	v, err := Initialize(gg.NewContext(400, 300), &model.Document{Graph: testutil.QuickChain(3)}, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Destroy()

	// Ticker deliveries land slightly early or late around the interval.
	spacing := []time.Duration{
		FrameInterval,
		FrameInterval - 400*time.Microsecond,
		FrameInterval + 300*time.Microsecond,
		FrameInterval - 900*time.Microsecond,
		FrameInterval,
	}
	now := t0
	sched.Flush(now)
	for i, d := range spacing {
		now = now.Add(d)
		v.Pan(1, 0)
		sched.Flush(now)
		if got, want := v.Frames(), uint64(i+2); got != want {
			t.Fatalf("tick %d after %v: frames=%d, want %d", i, d, got, want)
		}
	}
}

func TestFrameLoop_ThrottlesAndRendersWhenDirty(t *testing.T) {
	sched := NewManualScheduler()
	clock := &fakeClock{now: t0}
	opts := Options{EnableLoop: true, Scheduler: sched, Clock: clock}
	v, err := Initialize(gg.NewContext(800, 600), &model.Document{Graph: testutil.QuickChain(3)}, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Destroy()

	if v.Frames() != 0 || sched.Pending() != 1 {
		t.Fatalf("loop mode defers drawing: frames=%d pending=%d", v.Frames(), sched.Pending())
	}
	sched.Flush(t0)
	if v.Frames() != 1 {
		t.Fatalf("first frame not drawn")
	}
	if sched.Pending() != 1 {
		t.Fatal("each frame requests the next")
	}

	throttled := metrics.FramesThrottled.Value()
	v.Pan(5, 0)
	sched.Flush(t0.Add(5 * time.Millisecond))
	if v.Frames() != 1 {
		t.Error("frame inside the interval should be throttled")
	}
	if metrics.FramesThrottled.Value() != throttled+1 {
		t.Error("throttled frame not counted")
	}

	sched.Flush(t0.Add(20 * time.Millisecond))
	if v.Frames() != 2 {
		t.Errorf("dirty frame after the interval should draw, frames=%d", v.Frames())
	}
	sched.Flush(t0.Add(40 * time.Millisecond))
	if v.Frames() != 2 {
		t.Error("clean frame should not redraw")
	}
}

func TestFrameLoop_AnimatesZoom(t *testing.T) {
	sched := NewManualScheduler()
	clock := &fakeClock{now: t0}
	opts := Options{EnableLoop: true, EnableAnimation: true, Scheduler: sched, Clock: clock}
	v, err := Initialize(gg.NewContext(800, 600), &model.Document{Graph: testutil.QuickChain(3)}, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Destroy()
	sched.Flush(t0)

	v.ZoomAt(400, 300, 1.1)
	if !v.Animating() || v.Transform().Scale != 2 {
		t.Fatal("zoom should animate from the current scale")
	}
	sched.Flush(t0.Add(100 * time.Millisecond))
	mid := v.Transform().Scale
	if mid <= 2 || mid >= 2.2 {
		t.Errorf("mid-animation scale = %v", mid)
	}
	sched.Flush(t0.Add(400 * time.Millisecond))
	if v.Animating() {
		t.Error("animation should have finished")
	}
	testutil.AssertClose(t, "final scale", v.Transform().Scale, 2.2, 1e-9)
}

func TestDestroyCancelsPendingFrame(t *testing.T) {
	sched := NewManualScheduler()
	v, err := Initialize(gg.NewContext(100, 100), nil, Options{EnableLoop: true, Scheduler: sched})
	if err != nil {
		t.Fatal(err)
	}
	v.Destroy()
	v.Destroy()

	if sched.Pending() != 0 {
		t.Errorf("pending = %d after destroy", sched.Pending())
	}
	if v.Dispatch(Event{Type: Wheel, DeltaY: 1}) {
		t.Error("destroyed view ignores events")
	}
	if !v.Destroyed() {
		t.Error("expected destroyed")
	}
}

func TestOwnedTickerScheduler(t *testing.T) {
	v, err := Initialize(gg.NewContext(100, 100), &model.Document{Graph: testutil.QuickChain(2)}, Options{EnableLoop: true})
	if err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for v.Frames() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if v.Frames() == 0 {
		t.Fatal("ticker never delivered a frame")
	}
	v.Destroy()
}

func TestNonLoopModeDisablesAnimation(t *testing.T) {
	v, err := Initialize(gg.NewContext(800, 600), &model.Document{Graph: testutil.QuickChain(3)}, Options{EnableAnimation: true})
	if err != nil {
		t.Fatal(err)
	}
	defer v.Destroy()
	v.ZoomAt(400, 300, 1.1)
	if v.Animating() {
		t.Error("without a frame loop nothing can advance an animation")
	}
	if math.Abs(v.Transform().Scale-2.2) > 1e-9 {
		t.Errorf("scale = %v", v.Transform().Scale)
	}
}
