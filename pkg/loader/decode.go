package loader

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/kgview/pkg/model"
)

// flexString accepts a JSON string, number or null. Generated graph files
// carry difficulty and grade level in either shape.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(b)
	return nil
}

// wireNode is the on-disk node shape. Field aliases cover the lightweight
// export format (name, strand, full_name, explanation).
type wireNode struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Name        string     `json:"name"`
	FullName    string     `json:"full_name"`
	Group       string     `json:"group"`
	Strand      string     `json:"strand"`
	Importance  *float64   `json:"importance"`
	X           *float64   `json:"x"`
	Y           *float64   `json:"y"`
	Difficulty  flexString `json:"difficulty"`
	GradeLevel  flexString `json:"grade_level"`
	Title       string     `json:"title"`
	Explanation string     `json:"explanation"`
	Description string     `json:"description"`
}

type wireEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Source string `json:"source"`
	Target string `json:"target"`
	Title  string `json:"title"`
}

type wireGraph struct {
	Nodes []wireNode `json:"nodes"`
	Edges []wireEdge `json:"edges"`
}

type wireDocument struct {
	wireGraph
	Levels   map[string]*wireGraph `json:"levels"`
	Metadata model.Metadata        `json:"metadata"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (w wireNode) node() *model.Node {
	return &model.Node{
		ID:         strings.TrimSpace(w.ID),
		Label:      firstNonEmpty(w.Label, w.Name),
		FullName:   w.FullName,
		Group:      firstNonEmpty(w.Group, w.Strand),
		Importance: w.Importance,
		X:          w.X,
		Y:          w.Y,
		Difficulty: string(w.Difficulty),
		GradeLevel: string(w.GradeLevel),
		Title:      firstNonEmpty(w.Title, w.Explanation, w.Description),
	}
}

func (w *wireGraph) graph() *model.Graph {
	g := &model.Graph{
		Nodes: make([]*model.Node, 0, len(w.Nodes)),
		Edges: make([]model.Edge, 0, len(w.Edges)),
	}
	for _, n := range w.Nodes {
		g.Nodes = append(g.Nodes, n.node())
	}
	for _, e := range w.Edges {
		g.Edges = append(g.Edges, model.Edge{
			From:  firstNonEmpty(e.From, e.Source),
			To:    firstNonEmpty(e.To, e.Target),
			Title: e.Title,
		})
	}
	return g
}

// Decode parses a graph document. When the document has only levels, the
// flat graph is the finest level present.
func Decode(r io.Reader) (*model.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading graph document: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(data []byte) (*model.Document, error) {
	data = stripBOM(data)
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding graph document: %w", err)
	}

	doc := &model.Document{Metadata: w.Metadata}
	for name, lg := range w.Levels {
		level := model.Level(strings.ToLower(strings.TrimSpace(name)))
		if !level.IsValid() {
			return nil, fmt.Errorf("unknown level %q", name)
		}
		if lg == nil {
			continue
		}
		if doc.Levels == nil {
			doc.Levels = make(map[model.Level]*model.Graph, len(w.Levels))
		}
		doc.Levels[level] = lg.graph()
	}

	if len(w.Nodes) > 0 || !doc.HasLevels() {
		doc.Graph = w.graph()
	} else {
		doc.Graph = doc.Finest()
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph document: %w", err)
	}
	return doc, nil
}

// DecodeMastery parses a {nodeId: score} map.
func DecodeMastery(data []byte) (model.Mastery, error) {
	data = stripBOM(data)
	var m model.Mastery
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding mastery: %w", err)
	}
	if m == nil {
		m = model.Mastery{}
	}
	return m, nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
