package lod

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/testutil"
)

func TestSelectBoundaries(t *testing.T) {
	cases := []struct {
		scale float64
		want  model.Level
	}{
		{0.1, model.LevelOverview},
		{0.29, model.LevelOverview},
		{0.3, model.LevelDetailed},
		{0.5, model.LevelDetailed},
		{0.69, model.LevelDetailed},
		{0.7, model.LevelComplete},
		{5, model.LevelComplete},
	}
	for _, tc := range cases {
		if got := Select(tc.scale); got != tc.want {
			t.Errorf("Select(%v) = %s, want %s", tc.scale, got, tc.want)
		}
	}
}

func TestSelectIsDeterministicAndMonotone(t *testing.T) {
	rank := map[model.Level]int{model.LevelOverview: 0, model.LevelDetailed: 1, model.LevelComplete: 2}
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Float64Range(0.1, 5).Draw(t, "a")
		b := rapid.Float64Range(0.1, 5).Draw(t, "b")
		if Select(a) != Select(a) {
			t.Fatalf("Select(%v) not deterministic", a)
		}
		if a <= b && rank[Select(a)] > rank[Select(b)] {
			t.Fatalf("Select not monotone: %v->%s, %v->%s", a, Select(a), b, Select(b))
		}
	})
}

func levelsDoc() *model.Document {
	g := testutil.QuickRandom(20, 0.15)
	return &model.Document{Graph: g, Levels: Build(g, DefaultFractions())}
}

func TestTrackerSwitchesOnlyToPresentLevels(t *testing.T) {
	doc := levelsDoc()
	delete(doc.Levels, model.LevelOverview)

	tr := NewTracker(doc, DefaultThresholds(), 1)
	if tr.Level() != model.LevelComplete {
		t.Fatalf("initial level = %s", tr.Level())
	}
	if !tr.Update(0.5) || tr.Level() != model.LevelDetailed {
		t.Fatalf("expected switch to detailed, got %s", tr.Level())
	}
	if tr.Update(0.1) {
		t.Fatal("switched to a missing level")
	}
	if tr.Level() != model.LevelDetailed {
		t.Fatalf("level = %s, want detailed retained", tr.Level())
	}
	if tr.Graph() != doc.Levels[model.LevelDetailed] {
		t.Fatal("Graph() does not return active level")
	}
}

func TestTrackerWithoutLevels(t *testing.T) {
	g := testutil.QuickChain(3)
	doc := &model.Document{Graph: g}
	tr := NewTracker(doc, DefaultThresholds(), 0.1)
	if tr.Update(0.2) {
		t.Fatal("no levels: must never switch")
	}
	if tr.Graph() != g {
		t.Fatal("expected flat graph")
	}
}

func TestTrackerSetDocument(t *testing.T) {
	tr := NewTracker(levelsDoc(), DefaultThresholds(), 0.5)
	if tr.Level() != model.LevelDetailed {
		t.Fatalf("level = %s", tr.Level())
	}
	flat := &model.Document{Graph: testutil.QuickChain(2)}
	tr.SetDocument(flat, 0.5)
	if tr.Level() != model.LevelComplete || tr.Graph() != flat.Graph {
		t.Fatalf("after swap: level=%s", tr.Level())
	}
}

func TestBuildFractionsAndInducedEdges(t *testing.T) {
	g := testutil.QuickRandom(20, 0.2)
	levels := Build(g, DefaultFractions())

	want := map[model.Level]int{model.LevelOverview: 4, model.LevelDetailed: 10, model.LevelComplete: 20}
	for l, n := range want {
		if got := len(levels[l].Nodes); got != n {
			t.Errorf("%s: %d nodes, want %d", l, got, n)
		}
		idx := model.NewIndex(levels[l].Nodes)
		for _, e := range levels[l].Edges {
			if !idx.Has(e.From) || !idx.Has(e.To) {
				t.Errorf("%s: edge %s->%s not induced", l, e.From, e.To)
			}
		}
	}
	if len(levels[model.LevelComplete].Edges) != len(g.Edges) {
		t.Errorf("complete level lost edges: %d vs %d", len(levels[model.LevelComplete].Edges), len(g.Edges))
	}

	// Coarser levels are subsets of finer ones.
	det := model.NewIndex(levels[model.LevelDetailed].Nodes)
	for _, n := range levels[model.LevelOverview].Nodes {
		if !det.Has(n.ID) {
			t.Errorf("overview node %s missing from detailed", n.ID)
		}
	}
}

func TestBuildRanksHubFirst(t *testing.T) {
	g := testutil.QuickStar(9)
	levels := Build(g, DefaultFractions())
	over := levels[model.LevelOverview]
	if len(over.Nodes) != 2 || over.Nodes[0].ID != "hub" {
		t.Fatalf("overview = %v, want hub first", testutil.IDs(over))
	}
	if w := over.Nodes[0].Weight(); w <= 0 || w > 1 {
		t.Fatalf("hub importance %v out of range", w)
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	g := testutil.QuickChain(5)
	before := g.Nodes[0].Weight()
	Build(g, DefaultFractions())
	if g.Nodes[0].Weight() != before {
		t.Fatal("Build modified the input graph")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	a := Build(testutil.QuickRandom(30, 0.1), DefaultFractions())
	b := Build(testutil.QuickRandom(30, 0.1), DefaultFractions())
	for _, l := range model.Levels {
		ia, ib := testutil.IDs(a[l]), testutil.IDs(b[l])
		if len(ia) != len(ib) {
			t.Fatalf("%s: size differs", l)
		}
		for i := range ia {
			if ia[i] != ib[i] {
				t.Fatalf("%s: order differs at %d", l, i)
			}
		}
	}
}

func TestBuildSelfLoopAndEmpty(t *testing.T) {
	g := testutil.QuickChain(3)
	g.Edges = append(g.Edges, model.Edge{From: "n1", To: "n1"}, model.Edge{From: "n0", To: "ghost"})
	levels := Build(g, DefaultFractions())
	if len(levels[model.LevelComplete].Nodes) != 3 {
		t.Fatal("unexpected node count")
	}
	empty := Build(testutil.Empty(), DefaultFractions())
	if len(empty[model.LevelOverview].Nodes) != 0 {
		t.Fatal("empty graph should give empty levels")
	}
}

func TestBuildKeepsInputImportance(t *testing.T) {
	g := testutil.QuickStar(9)
	one := 1.0
	for _, n := range g.Nodes {
		v := one
		n.Importance = &v
	}
	levels := Build(g, DefaultFractions())
	for _, l := range model.Levels {
		for _, n := range levels[l].Nodes {
			if n.Weight() != 1.0 {
				t.Errorf("%s: node %s importance %v, want 1.0", l, n.ID, n.Weight())
			}
		}
	}
	c := levels[model.LevelComplete].Nodes[0]
	*c.Importance = 0
	if *testutil.NodeByID(g, c.ID).Importance != 1.0 {
		t.Error("level copies share importance with the input")
	}
}

func TestBuildFillsMissingImportanceFromScore(t *testing.T) {
	g := testutil.QuickStar(9)
	for _, n := range g.Nodes {
		n.Importance = nil
	}
	levels := Build(g, DefaultFractions())
	idx := model.NewIndex(levels[model.LevelComplete].Nodes)
	if w := idx.Get("hub").Weight(); w != 1 {
		t.Errorf("hub importance = %v, want 1", w)
	}
	for _, n := range levels[model.LevelComplete].Nodes {
		if n.Importance == nil || *n.Importance < 0 || *n.Importance > 1 {
			t.Errorf("node %s importance %v outside [0,1]", n.ID, n.Importance)
		}
	}
}

func TestScoresPeakAtOne(t *testing.T) {
	scores := Scores(testutil.QuickRandom(25, 0.15))
	peak := 0.0
	for _, s := range scores {
		if s < 0 || s > 1 {
			t.Fatalf("score %v outside [0,1]", s)
		}
		peak = max(peak, s)
	}
	if peak != 1 {
		t.Errorf("highest score = %v, want 1", peak)
	}
}
