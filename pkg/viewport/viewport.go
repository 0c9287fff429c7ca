// Package viewport owns the pan/zoom transform between world (graph)
// coordinates and screen (canvas pixel) coordinates, including smooth
// animated transitions.
package viewport

import (
	"math"
	"time"

	"github.com/vanderheijden86/kgview/pkg/model"
)

// Defaults for Options fields left at zero.
const (
	DefaultMinScale = 0.1
	DefaultMaxScale = 5.0
	DefaultMaxFit   = 2.0
	DefaultDuration = 300 * time.Millisecond
	DefaultPadding  = 50.0

	// Wheel factors for one notch.
	ZoomInFactor  = 1.1
	ZoomOutFactor = 0.9
)

// Transform maps world to screen: screen = world*Scale + Offset.
type Transform struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// Identity is the reset transform.
var Identity = Transform{Scale: 1}

// ScreenToWorld inverts the transform.
func (t Transform) ScreenToWorld(sx, sy float64) (float64, float64) {
	return (sx - t.OffsetX) / t.Scale, (sy - t.OffsetY) / t.Scale
}

// WorldToScreen applies the transform.
func (t Transform) WorldToScreen(wx, wy float64) (float64, float64) {
	return wx*t.Scale + t.OffsetX, wy*t.Scale + t.OffsetY
}

// Clock supplies wall-clock timestamps for animation.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real wall clock.
var SystemClock Clock = systemClock{}

// Options configures a Controller.
type Options struct {
	MinScale float64
	MaxScale float64
	MaxFit   float64
	Duration time.Duration
	Animate  bool
	Clock    Clock
}

type animation struct {
	from, to Transform
	start    time.Time
}

// Controller owns viewport state. It is not safe for concurrent use; the
// owning view mutates it from a single goroutine.
type Controller struct {
	opts  Options
	state Transform
	anim  *animation
}

// New creates a controller at the identity transform.
func New(opts Options) *Controller {
	if opts.MinScale <= 0 {
		opts.MinScale = DefaultMinScale
	}
	if opts.MaxScale <= 0 {
		opts.MaxScale = DefaultMaxScale
	}
	if opts.MaxScale < opts.MinScale {
		opts.MinScale, opts.MaxScale = opts.MaxScale, opts.MinScale
	}
	if opts.MaxFit <= 0 {
		opts.MaxFit = DefaultMaxFit
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	return &Controller{opts: opts, state: Identity}
}

// Transform returns the current (possibly mid-animation) transform.
func (c *Controller) Transform() Transform { return c.state }

// Target returns where the viewport is heading: the animation target when
// animating, the current transform otherwise.
func (c *Controller) Target() Transform {
	if c.anim != nil {
		return c.anim.to
	}
	return c.state
}

// Animating reports whether a transition is in flight.
func (c *Controller) Animating() bool { return c.anim != nil }

// Scale returns the current scale.
func (c *Controller) Scale() float64 { return c.state.Scale }

// ClampScale limits s to the configured bounds.
func (c *Controller) ClampScale(s float64) float64 {
	if math.IsNaN(s) {
		return c.state.Scale
	}
	return math.Max(c.opts.MinScale, math.Min(c.opts.MaxScale, s))
}

// Set jumps to t immediately, cancelling any animation.
func (c *Controller) Set(t Transform) {
	t.Scale = c.ClampScale(t.Scale)
	c.state = t
	c.anim = nil
}

// Pan translates by a screen-space delta and cancels any animation.
func (c *Controller) Pan(dx, dy float64) {
	c.anim = nil
	c.state.OffsetX += dx
	c.state.OffsetY += dy
}

// Zoom scales by factor around the screen point (px, py), keeping the world
// point under the cursor fixed. The anchor is what is on screen now; the scale
// compounds on the pending target so repeated wheel steps accumulate.
func (c *Controller) Zoom(px, py, factor float64) {
	next := c.ClampScale(c.Target().Scale * factor)
	wx, wy := c.state.ScreenToWorld(px, py)
	to := Transform{
		Scale:   next,
		OffsetX: px - wx*next,
		OffsetY: py - wy*next,
	}
	c.AnimateTo(to)
}

// AnimateTo transitions to t over the configured duration with an ease-out
// cubic curve. A call during an animation retargets from the current
// interpolated state. With animation disabled the jump is immediate.
func (c *Controller) AnimateTo(t Transform) {
	t.Scale = c.ClampScale(t.Scale)
	if !c.opts.Animate {
		c.state = t
		c.anim = nil
		return
	}
	c.anim = &animation{from: c.state, to: t, start: c.opts.Clock.Now()}
}

// Tick advances the animation to now and reports whether the transform
// changed. The final tick snaps exactly onto the target.
func (c *Controller) Tick(now time.Time) bool {
	a := c.anim
	if a == nil {
		return false
	}
	p := float64(now.Sub(a.start)) / float64(c.opts.Duration)
	if p >= 1 {
		c.state = a.to
		c.anim = nil
		return true
	}
	if p < 0 {
		p = 0
	}
	e := EaseOutCubic(p)
	c.state = Transform{
		Scale:   lerp(a.from.Scale, a.to.Scale, e),
		OffsetX: lerp(a.from.OffsetX, a.to.OffsetX, e),
		OffsetY: lerp(a.from.OffsetY, a.to.OffsetY, e),
	}
	return true
}

// FitToView frames the bounding box of nodes inside a w×h canvas with the
// given padding on every side. The scale never exceeds MaxFit. An empty node
// set resets the view.
func (c *Controller) FitToView(nodes []*model.Node, w, h, padding float64) {
	b, ok := model.BoundsOf(nodes)
	if !ok || w <= 0 || h <= 0 {
		c.Reset()
		return
	}
	if padding < 0 {
		padding = 0
	}
	availW := math.Max(w-2*padding, 1)
	availH := math.Max(h-2*padding, 1)

	scale := c.opts.MaxFit
	if gw := b.Width(); gw > 0 {
		scale = math.Min(scale, availW/gw)
	}
	if gh := b.Height(); gh > 0 {
		scale = math.Min(scale, availH/gh)
	}
	scale = c.ClampScale(scale)

	cx := (b.MinX + b.MaxX) / 2
	cy := (b.MinY + b.MaxY) / 2
	c.AnimateTo(Transform{
		Scale:   scale,
		OffsetX: w/2 - cx*scale,
		OffsetY: h/2 - cy*scale,
	})
}

// Reset returns to the identity transform.
func (c *Controller) Reset() {
	c.AnimateTo(Identity)
}

// EaseOutCubic maps linear progress p in [0,1] to eased progress.
func EaseOutCubic(p float64) float64 {
	q := 1 - p
	return 1 - q*q*q
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
