package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/vanderheijden86/kgview/pkg/model"
)

// Palette maps node groups to fill colours. Unknown groups use the
// model.DefaultGroup entry.
type Palette map[string]color.RGBA

// DefaultPalette returns the built-in strand colours.
func DefaultPalette() Palette {
	return Palette{
		"Algebra":                  mustHex("#e74c3c"),
		"Geometry":                 mustHex("#3498db"),
		"Trigonometry":             mustHex("#9b59b6"),
		"Calculus":                 mustHex("#e67e22"),
		"Number":                   mustHex("#2ecc71"),
		"Statistics":               mustHex("#f39c12"),
		"Probability":              mustHex("#e91e63"),
		"Coordinate Geometry":      mustHex("#673ab7"),
		"Functions":                mustHex("#ff5722"),
		"Sequences and Series":     mustHex("#00bcd4"),
		"Complex Numbers":          mustHex("#795548"),
		"Measurement":              mustHex("#607d8b"),
		"Synthetic geometry":       mustHex("#2196f3"),
		"Transformation geometry":  mustHex("#3f51b5"),
		"Differential Calculus":    mustHex("#ff9800"),
		"Integral Calculus":        mustHex("#4caf50"),
		"Counting and Probability": mustHex("#f44336"),
		model.DefaultGroup:         mustHex("#95a5a6"),
	}
}

// Color returns the fill for a group.
func (p Palette) Color(group string) color.RGBA {
	if c, ok := p[group]; ok {
		return c
	}
	if c, ok := p[model.DefaultGroup]; ok {
		return c
	}
	return mustHex("#95a5a6")
}

// WithOverrides returns a copy of p with hex colour overrides applied.
// Malformed entries are reported and skipped.
func (p Palette) WithOverrides(overrides map[string]string) (Palette, error) {
	out := make(Palette, len(p)+len(overrides))
	for k, v := range p {
		out[k] = v
	}
	var bad []string
	for group, h := range overrides {
		c, err := ParseHex(h)
		if err != nil {
			bad = append(bad, group)
			continue
		}
		out[group] = c
	}
	if len(bad) > 0 {
		return out, fmt.Errorf("invalid palette colours for %s", strings.Join(bad, ", "))
	}
	return out, nil
}

// Mastery status colours.
var (
	ColorMastered   = mustHex("#00b894")
	ColorLearning   = mustHex("#fdcb6e")
	ColorStruggling = mustHex("#e17055")
	ColorUnknown    = mustHex("#636e72")
)

// MasteryColor returns the colour for a status.
func MasteryColor(s model.MasteryStatus) color.RGBA {
	switch s {
	case model.MasteryMastered:
		return ColorMastered
	case model.MasteryLearning:
		return ColorLearning
	case model.MasteryStruggling:
		return ColorStruggling
	default:
		return ColorUnknown
	}
}

// MasteryBlend is the share of the status colour mixed into the group colour.
const MasteryBlend = 0.3

// ParseHex parses "#rrggbb" or "rrggbb".
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("bad hex colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("bad hex colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func mustHex(s string) color.RGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Lighten adds amount×255 to each channel, saturating at 255.
func Lighten(c color.RGBA, amount float64) color.RGBA {
	d := int(math.Round(255 * amount))
	ch := func(v uint8) uint8 {
		return uint8(max(0, min(255, int(v)+d)))
	}
	return color.RGBA{R: ch(c.R), G: ch(c.G), B: ch(c.B), A: c.A}
}

// Blend mixes b into a by ratio (0 = a, 1 = b).
func Blend(a, b color.RGBA, ratio float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x)*(1-ratio) + float64(y)*ratio))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
