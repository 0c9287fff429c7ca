package render

import (
	"github.com/vanderheijden86/kgview/pkg/metrics"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/viewport"
)

// HitTest returns the topmost node under screen point (sx, sy), or nil.
// Nodes are drawn in slice order, so the search runs in reverse.
func HitTest(sx, sy float64, nodes []*model.Node, vp viewport.Transform, style Style) *model.Node {
	defer metrics.Timer(metrics.HitTest)()

	wx, wy := vp.ScreenToWorld(sx, sy)
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n == nil {
			continue
		}
		x, y := n.Pos()
		r := style.Radius(n, vp.Scale)
		dx, dy := wx-x, wy-y
		if dx*dx+dy*dy <= r*r {
			return n
		}
	}
	return nil
}
