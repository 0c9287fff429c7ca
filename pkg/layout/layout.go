// Package layout assigns 2D positions to graph nodes with a force-directed
// simulation: pairwise repulsion keeps nodes apart and springs along edges
// pull prerequisites together.
//
// Cost is O(Iterations × N²) per run, which is fine up to the low hundreds of
// nodes. Larger graphs should ship precomputed coordinates.
package layout

import (
	"math"
	"math/rand"
	"time"

	"github.com/vanderheijden86/kgview/pkg/debug"
	"github.com/vanderheijden86/kgview/pkg/metrics"
	"github.com/vanderheijden86/kgview/pkg/model"
)

// Defaults for Engine fields left at zero.
const (
	DefaultIterations = 50
	DefaultDamping    = 0.9
	DefaultForce      = 0.1
	DefaultMargin     = 50.0
)

// Engine holds the simulation parameters. The zero value of each numeric
// field selects its default.
type Engine struct {
	Width, Height float64
	Iterations    int
	Damping       float64
	Force         float64
	Margin        float64

	// MaxStep caps per-iteration displacement. Zero means k, the
	// characteristic spring length.
	MaxStep float64

	// OnlyMissing keeps nodes that already carry a valid position fixed.
	// They still repel and attract the nodes being placed.
	OnlyMissing bool

	// Rand seeds the initial placement. Nil uses a time-seeded source.
	Rand *rand.Rand
}

// Result describes a finished run.
type Result struct {
	Iterations int
	// Energy[0] is the energy after random placement; Energy[i] after
	// iteration i.
	Energy []float64
}

// Final returns the last recorded energy.
func (r Result) Final() float64 {
	if len(r.Energy) == 0 {
		return 0
	}
	return r.Energy[len(r.Energy)-1]
}

type body struct {
	node   *model.Node
	x, y   float64
	vx, vy float64
	fixed  bool
}

// Run places the nodes of g in place. Edges that reference unknown nodes are
// ignored. An empty graph is a no-op.
func (e Engine) Run(g *model.Graph) Result {
	if g == nil || len(g.Nodes) == 0 {
		return Result{}
	}
	defer metrics.Timer(metrics.LayoutPass)()

	e = e.withDefaults()
	rng := e.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	bodies := make([]*body, 0, len(g.Nodes))
	byID := make(map[string]*body, len(g.Nodes))
	moving := 0
	for _, n := range g.Nodes {
		b := &body{node: n}
		if e.OnlyMissing && n.HasPosition() {
			b.x, b.y = n.Pos()
			b.fixed = true
		} else {
			b.x = rng.Float64() * e.Width
			b.y = rng.Float64() * e.Height
			moving++
		}
		bodies = append(bodies, b)
		if _, dup := byID[n.ID]; !dup {
			byID[n.ID] = b
		}
	}
	if moving == 0 {
		return Result{}
	}

	type spring struct{ a, b *body }
	springs := make([]spring, 0, len(g.Edges))
	for _, ed := range g.Edges {
		a, okA := byID[ed.From]
		b, okB := byID[ed.To]
		if !okA || !okB || a == b {
			continue
		}
		springs = append(springs, spring{a, b})
	}

	k := math.Sqrt(e.Width * e.Height / float64(len(bodies)))
	maxStep := e.MaxStep
	if maxStep <= 0 {
		maxStep = k
	}

	energy := func() float64 {
		var sum float64
		for _, s := range springs {
			dx, dy := s.b.x-s.a.x, s.b.y-s.a.y
			sum += dx*dx + dy*dy
		}
		return sum
	}

	res := Result{Iterations: e.Iterations, Energy: make([]float64, 0, e.Iterations+1)}
	res.Energy = append(res.Energy, energy())

	for it := 0; it < e.Iterations; it++ {
		for i := 0; i < len(bodies); i++ {
			bi := bodies[i]
			for j := i + 1; j < len(bodies); j++ {
				bj := bodies[j]
				dx, dy := bi.x-bj.x, bi.y-bj.y
				d := math.Hypot(dx, dy)
				if d == 0 {
					// Coincident nodes: nudge apart along a random direction.
					a := rng.Float64() * 2 * math.Pi
					dx, dy, d = math.Cos(a), math.Sin(a), 1
				}
				rep := k * k / d * e.Force
				fx, fy := dx/d*rep, dy/d*rep
				bi.vx += fx
				bi.vy += fy
				bj.vx -= fx
				bj.vy -= fy
			}
		}

		for _, s := range springs {
			dx, dy := s.b.x-s.a.x, s.b.y-s.a.y
			d := math.Hypot(dx, dy)
			if d == 0 {
				continue
			}
			att := d * d / k * e.Force
			fx, fy := dx/d*att, dy/d*att
			s.a.vx += fx
			s.a.vy += fy
			s.b.vx -= fx
			s.b.vy -= fy
		}

		for _, b := range bodies {
			if b.fixed {
				b.vx, b.vy = 0, 0
				continue
			}
			b.vx *= e.Damping
			b.vy *= e.Damping
			if sp := math.Hypot(b.vx, b.vy); sp > maxStep {
				b.vx *= maxStep / sp
				b.vy *= maxStep / sp
			}
			b.x = clamp(b.x+b.vx, e.Margin, e.Width-e.Margin)
			b.y = clamp(b.y+b.vy, e.Margin, e.Height-e.Margin)
		}
		res.Energy = append(res.Energy, energy())
	}

	for _, b := range bodies {
		if !b.fixed {
			b.node.SetPos(b.x, b.y)
		}
	}
	debug.Log("layout: placed %d/%d nodes, %d springs, energy %.0f -> %.0f",
		moving, len(bodies), len(springs), res.Energy[0], res.Final())
	return res
}

// Energy returns the total squared edge length of g using current positions.
func Energy(g *model.Graph) float64 {
	idx := model.NewIndex(g.Nodes)
	var sum float64
	for _, e := range g.Edges {
		a, b := idx.Get(e.From), idx.Get(e.To)
		if a == nil || b == nil {
			continue
		}
		ax, ay := a.Pos()
		bx, by := b.Pos()
		sum += (bx-ax)*(bx-ax) + (by-ay)*(by-ay)
	}
	return sum
}

func (e Engine) withDefaults() Engine {
	if e.Iterations <= 0 {
		e.Iterations = DefaultIterations
	}
	if e.Damping <= 0 || e.Damping > 1 {
		e.Damping = DefaultDamping
	}
	if e.Force <= 0 {
		e.Force = DefaultForce
	}
	if e.Margin < 0 {
		e.Margin = 0
	} else if e.Margin == 0 {
		e.Margin = DefaultMargin
	}
	if e.Width <= 0 {
		e.Width = 800
	}
	if e.Height <= 0 {
		e.Height = 600
	}
	// A canvas narrower than twice the margin would invert the clamp range.
	if 2*e.Margin > e.Width || 2*e.Margin > e.Height {
		e.Margin = math.Min(e.Width, e.Height) / 2
	}
	return e
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
