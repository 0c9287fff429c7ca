package lod

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/vanderheijden86/kgview/pkg/metrics"
	"github.com/vanderheijden86/kgview/pkg/model"
)

// Fractions gives the share of nodes, ranked by importance, kept per level.
type Fractions struct {
	Overview float64
	Detailed float64
	Complete float64
}

// DefaultFractions keeps the top 20% for the overview, the top 50% for the
// detailed level and everything for complete.
func DefaultFractions() Fractions {
	return Fractions{Overview: 0.2, Detailed: 0.5, Complete: 1.0}
}

func (f Fractions) of(l model.Level) float64 {
	switch l {
	case model.LevelOverview:
		return f.Overview
	case model.LevelDetailed:
		return f.Detailed
	default:
		return f.Complete
	}
}

// Scores computes a structural importance per node id. It blends degree
// connectivity with PageRank and normalized betweenness, scaled so the
// highest-scoring node gets 1.
func Scores(g *model.Graph) map[string]float64 {
	scores := make(map[string]float64, len(g.Nodes))
	if len(g.Nodes) == 0 {
		return scores
	}

	dg := simple.NewDirectedGraph()
	idToNode := make(map[string]int64, len(g.Nodes))
	nodeToID := make(map[int64]string, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := idToNode[n.ID]; dup {
			continue
		}
		gn := dg.NewNode()
		dg.AddNode(gn)
		idToNode[n.ID] = gn.ID()
		nodeToID[gn.ID()] = n.ID
	}

	in := make(map[string]int, len(g.Nodes))
	out := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		u, okU := idToNode[e.From]
		v, okV := idToNode[e.To]
		// simple graphs reject self edges
		if !okU || !okV || u == v {
			continue
		}
		if dg.HasEdgeFromTo(u, v) {
			continue
		}
		dg.SetEdge(dg.NewEdge(dg.Node(u), dg.Node(v)))
		out[e.From]++
		in[e.To]++
	}

	pr := network.PageRank(dg, 0.85, 1e-6)
	bc := network.Betweenness(dg)

	n := float64(len(idToNode))
	norm := 1.0
	if n > 2 {
		norm = 1 / ((n - 1) * (n - 2))
	}

	raw := make(map[string]float64, len(idToNode))
	peak := 0.0
	for id, gid := range idToNode {
		connectivity := float64(in[id]+out[id]) / 2
		centrality := (pr[gid] + bc[gid]*norm) / 2
		s := connectivity*0.3 + centrality*0.7
		if math.IsNaN(s) || s < 0 {
			s = 0
		}
		// gonum accumulates over map-ordered nodes; round away the last
		// bits so rankings are stable across runs.
		s = math.Round(s*1e9) / 1e9
		raw[id] = s
		peak = math.Max(peak, s)
	}
	for id, s := range raw {
		if peak > 0 {
			s /= peak
		}
		scores[id] = math.Round(s*1e6) / 1e6
	}
	return scores
}

// Build partitions g into overview/detailed/complete subsets. Nodes are
// ranked by structural score (ties broken by id) and each level keeps the top
// fraction plus the edges induced between its nodes. Node copies keep their
// own importance; only nodes without one take the computed score. g itself
// is not modified.
func Build(g *model.Graph, f Fractions) map[model.Level]*model.Graph {
	defer metrics.Timer(metrics.LevelBuild)()

	scores := Scores(g)
	ranked := make([]*model.Node, 0, len(g.Nodes))
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		ranked = append(ranked, n)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i].ID], scores[ranked[j].ID]
		if si != sj {
			return si > sj
		}
		return ranked[i].ID < ranked[j].ID
	})

	levels := make(map[model.Level]*model.Graph, len(model.Levels))
	for _, l := range model.Levels {
		frac := math.Max(0, math.Min(1, f.of(l)))
		count := int(float64(len(ranked)) * frac)
		if count == 0 && len(ranked) > 0 && frac > 0 {
			count = 1
		}
		keep := make(map[string]bool, count)
		sub := &model.Graph{Nodes: make([]*model.Node, 0, count)}
		for _, n := range ranked[:count] {
			c := *n
			imp := scores[n.ID]
			if n.Importance != nil {
				imp = *n.Importance
			}
			c.Importance = &imp
			if n.X != nil {
				x := *n.X
				c.X = &x
			}
			if n.Y != nil {
				y := *n.Y
				c.Y = &y
			}
			sub.Nodes = append(sub.Nodes, &c)
			keep[n.ID] = true
		}
		for _, e := range g.Edges {
			if keep[e.From] && keep[e.To] {
				sub.Edges = append(sub.Edges, e)
			}
		}
		levels[l] = sub
	}
	return levels
}
