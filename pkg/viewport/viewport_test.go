package viewport

import (
	"math"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/testutil"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time           { return f.now }
func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestZoomKeepsCursorPointFixed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := New(Options{})
		c.Set(Transform{
			Scale:   rapid.Float64Range(0.1, 5).Draw(t, "scale"),
			OffsetX: rapid.Float64Range(-2000, 2000).Draw(t, "ox"),
			OffsetY: rapid.Float64Range(-2000, 2000).Draw(t, "oy"),
		})
		px := rapid.Float64Range(0, 1200).Draw(t, "px")
		py := rapid.Float64Range(0, 800).Draw(t, "py")
		factor := rapid.SampledFrom([]float64{ZoomInFactor, ZoomOutFactor, 2, 0.5}).Draw(t, "factor")

		wx, wy := c.Transform().ScreenToWorld(px, py)
		c.Zoom(px, py, factor)
		gx, gy := c.Transform().ScreenToWorld(px, py)

		if math.Abs(gx-wx) > 1e-6*math.Max(1, math.Abs(wx)) || math.Abs(gy-wy) > 1e-6*math.Max(1, math.Abs(wy)) {
			t.Fatalf("world point drifted: (%v,%v) -> (%v,%v)", wx, wy, gx, gy)
		}
		if s := c.Scale(); s < DefaultMinScale || s > DefaultMaxScale {
			t.Fatalf("scale %v out of bounds", s)
		}
	})
}

func TestScreenWorldRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tr := Transform{
			Scale:   rapid.Float64Range(0.1, 5).Draw(t, "scale"),
			OffsetX: rapid.Float64Range(-1000, 1000).Draw(t, "ox"),
			OffsetY: rapid.Float64Range(-1000, 1000).Draw(t, "oy"),
		}
		wx := rapid.Float64Range(-5000, 5000).Draw(t, "wx")
		wy := rapid.Float64Range(-5000, 5000).Draw(t, "wy")
		sx, sy := tr.WorldToScreen(wx, wy)
		rx, ry := tr.ScreenToWorld(sx, sy)
		if math.Abs(rx-wx) > 1e-6 || math.Abs(ry-wy) > 1e-6 {
			t.Fatalf("round trip (%v,%v) -> (%v,%v)", wx, wy, rx, ry)
		}
	})
}

func TestWheelZoomOutClampsAtMinScale(t *testing.T) {
	c := New(Options{})
	for i := 0; i < 10; i++ {
		c.Zoom(600, 400, ZoomOutFactor)
	}
	// 0.9^10 ≈ 0.349, still above the floor.
	if !near(c.Scale(), math.Pow(0.9, 10)) {
		t.Fatalf("scale = %v", c.Scale())
	}
	for i := 0; i < 20; i++ {
		c.Zoom(600, 400, ZoomOutFactor)
	}
	if c.Scale() != DefaultMinScale {
		t.Fatalf("scale = %v, want clamp at %v", c.Scale(), DefaultMinScale)
	}
}

func TestWheelZoomOutFromMinStaysAtMin(t *testing.T) {
	c := New(Options{})
	c.Set(Transform{Scale: 0.11})
	for i := 0; i < 10; i++ {
		c.Zoom(0, 0, ZoomOutFactor)
		if c.Scale() < DefaultMinScale {
			t.Fatalf("tick %d underflowed: %v", i, c.Scale())
		}
	}
	if c.Scale() != DefaultMinScale {
		t.Fatalf("scale = %v", c.Scale())
	}
}

func TestZoomInClampsAtMaxScale(t *testing.T) {
	c := New(Options{})
	for i := 0; i < 100; i++ {
		c.Zoom(10, 10, ZoomInFactor)
	}
	if c.Scale() != DefaultMaxScale {
		t.Fatalf("scale = %v, want %v", c.Scale(), DefaultMaxScale)
	}
}

func TestPan(t *testing.T) {
	c := New(Options{})
	c.Pan(10, -5)
	c.Pan(2, 2)
	tr := c.Transform()
	if tr.OffsetX != 12 || tr.OffsetY != -3 || tr.Scale != 1 {
		t.Fatalf("unexpected transform %+v", tr)
	}
}

func TestFitToViewLineScenario(t *testing.T) {
	g := testutil.QuickChain(5) // x = 0..400, y = 0
	c := New(Options{})
	c.FitToView(g.Nodes, 1200, 800, DefaultPadding)

	tr := c.Transform()
	if tr.Scale > DefaultMaxFit {
		t.Fatalf("scale %v exceeds max fit", tr.Scale)
	}
	b, _ := model.BoundsOf(g.Nodes)
	cx, cy := tr.WorldToScreen((b.MinX+b.MaxX)/2, (b.MinY+b.MaxY)/2)
	if !near(cx, 600) || !near(cy, 400) {
		t.Fatalf("bbox centre at (%v,%v), want (600,400)", cx, cy)
	}
}

func TestFitToViewLargeGraphFitsCanvas(t *testing.T) {
	cfg := testutil.DefaultConfig()
	cfg.WithLayout = true
	cfg.Spacing = 1000
	gen := testutil.New(cfg)
	g := gen.ToGraph(gen.Chain(11)) // 10000 wide

	c := New(Options{})
	c.FitToView(g.Nodes, 1200, 800, 50)
	if !near(c.Scale(), 1100.0/10000.0) {
		t.Fatalf("scale = %v", c.Scale())
	}
	for _, n := range g.Nodes {
		sx, _ := c.Transform().WorldToScreen(n.Pos())
		if sx < 50-1e-6 || sx > 1150+1e-6 {
			t.Fatalf("node %s at screen x %v outside padding", n.ID, sx)
		}
	}
}

func TestFitToViewEmptyResets(t *testing.T) {
	c := New(Options{})
	c.Set(Transform{Scale: 3, OffsetX: 40})
	c.FitToView(nil, 1200, 800, 50)
	if c.Transform() != Identity {
		t.Fatalf("expected identity, got %+v", c.Transform())
	}
}

func TestAnimateToEasesAndSnaps(t *testing.T) {
	clk := newClock()
	c := New(Options{Animate: true, Clock: clk})
	target := Transform{Scale: 2, OffsetX: 100, OffsetY: -50}
	c.AnimateTo(target)

	if c.Transform() != Identity {
		t.Fatal("AnimateTo must not jump when animating")
	}
	clk.advance(150 * time.Millisecond)
	if !c.Tick(clk.Now()) {
		t.Fatal("Tick mid-animation should report change")
	}
	mid := c.Transform()
	want := 1 + EaseOutCubic(0.5)
	if !near(mid.Scale, want) {
		t.Fatalf("mid scale = %v, want %v", mid.Scale, want)
	}

	clk.advance(200 * time.Millisecond)
	c.Tick(clk.Now())
	if c.Transform() != target || c.Animating() {
		t.Fatalf("expected snap to target, got %+v animating=%v", c.Transform(), c.Animating())
	}
	if c.Tick(clk.Now()) {
		t.Fatal("Tick after completion should report no change")
	}
}

func TestAnimateToRetargetOverwrites(t *testing.T) {
	clk := newClock()
	c := New(Options{Animate: true, Clock: clk})
	c.AnimateTo(Transform{Scale: 4})
	clk.advance(100 * time.Millisecond)
	c.Tick(clk.Now())
	mid := c.Transform()

	second := Transform{Scale: 0.5, OffsetX: 10}
	c.AnimateTo(second)
	if c.Target() != second {
		t.Fatalf("target = %+v", c.Target())
	}
	clk.advance(time.Millisecond)
	c.Tick(clk.Now())
	// Retargeting starts from the interpolated state, so one millisecond in
	// we are still close to it.
	if math.Abs(c.Scale()-mid.Scale) > 0.1 {
		t.Fatalf("retarget jumped: %v -> %v", mid.Scale, c.Scale())
	}
	clk.advance(time.Second)
	c.Tick(clk.Now())
	if c.Transform() != second {
		t.Fatalf("final = %+v", c.Transform())
	}
}

func TestPanCancelsAnimation(t *testing.T) {
	clk := newClock()
	c := New(Options{Animate: true, Clock: clk})
	c.AnimateTo(Transform{Scale: 3})
	c.Pan(5, 5)
	if c.Animating() {
		t.Fatal("pan should cancel animation")
	}
}

func TestAnimatedZoomCompoundsOnTarget(t *testing.T) {
	clk := newClock()
	c := New(Options{Animate: true, Clock: clk})
	c.Zoom(0, 0, 2)
	c.Zoom(0, 0, 2)
	if c.Target().Scale != 4 {
		t.Fatalf("target scale = %v, want 4", c.Target().Scale)
	}
}

func TestZoomDuringAnimationAnchorsOnVisiblePoint(t *testing.T) {
	clk := newClock()
	c := New(Options{Animate: true, Clock: clk})
	c.AnimateTo(Transform{Scale: 2, OffsetX: -400, OffsetY: 120})
	clk.advance(60 * time.Millisecond)
	c.Tick(clk.Now())

	px, py := 320.0, 240.0
	wx, wy := c.Transform().ScreenToWorld(px, py)
	c.Zoom(px, py, 2)

	if got := c.Target().Scale; !near(got, 4) {
		t.Fatalf("target scale = %v, want 4", got)
	}
	gx, gy := c.Target().ScreenToWorld(px, py)
	if !near(gx, wx) || !near(gy, wy) {
		t.Fatalf("visible point (%v,%v) ended at (%v,%v)", wx, wy, gx, gy)
	}
}

func TestEaseOutCubicEndpoints(t *testing.T) {
	if EaseOutCubic(0) != 0 || EaseOutCubic(1) != 1 {
		t.Fatal("ease endpoints wrong")
	}
	prev := 0.0
	for p := 0.05; p <= 1; p += 0.05 {
		v := EaseOutCubic(p)
		if v < prev {
			t.Fatalf("ease not monotone at %v", p)
		}
		prev = v
	}
}
