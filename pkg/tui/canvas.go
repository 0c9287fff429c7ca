package tui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// DefaultSupersample is the number of canvas pixels per half-cell on each
// axis. A terminal cell shows two vertically stacked half-cells.
const DefaultSupersample = 4

const halfBlock = "▀"

// CanvasSize returns the pixel size of a canvas shown in cols x rows cells.
func CanvasSize(cols, rows, ss int) (int, int) {
	return cols * ss, rows * 2 * ss
}

// CellToPixel maps the centre of a terminal cell to canvas pixels.
func CellToPixel(col, row, ss int) (float64, float64) {
	return (float64(col) + 0.5) * float64(ss), (float64(row) + 0.5) * float64(2*ss)
}

// HalfBlocks draws img as rows of upper-half-block cells: the foreground is
// the averaged top half, the background the bottom half. Runs of identical
// cells share one style.
func HalfBlocks(img image.Image, cols, rows, ss int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}
	if ss <= 0 {
		ss = 1
	}
	var b strings.Builder
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		var run int
		var cur [2]color.RGBA
		flush := func() {
			if run == 0 {
				return
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(hex(cur[0]))).
				Background(lipgloss.Color(hex(cur[1])))
			b.WriteString(style.Render(strings.Repeat(halfBlock, run)))
			run = 0
		}
		for c := 0; c < cols; c++ {
			x0 := c * ss
			top := average(img, x0, 2*r*ss, x0+ss, (2*r+1)*ss)
			bottom := average(img, x0, (2*r+1)*ss, x0+ss, (2*r+2)*ss)
			cell := [2]color.RGBA{top, bottom}
			if run > 0 && cell != cur {
				flush()
			}
			cur = cell
			run++
		}
		flush()
	}
	return b.String()
}

// average box-filters the pixels of [x0,x1)x[y0,y1) clipped to img.
func average(img image.Image, x0, y0, x1, y1 int) color.RGBA {
	r := image.Rect(x0, y0, x1, y1).Intersect(img.Bounds())
	if r.Empty() {
		return color.RGBA{0xff, 0xff, 0xff, 0xff}
	}
	var sr, sg, sb, n uint32
	if rgba, ok := img.(*image.RGBA); ok {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			i := rgba.PixOffset(r.Min.X, y)
			for x := r.Min.X; x < r.Max.X; x++ {
				sr += uint32(rgba.Pix[i])
				sg += uint32(rgba.Pix[i+1])
				sb += uint32(rgba.Pix[i+2])
				i += 4
				n++
			}
		}
	} else {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
				sr += uint32(c.R)
				sg += uint32(c.G)
				sb += uint32(c.B)
				n++
			}
		}
	}
	return color.RGBA{uint8(sr / n), uint8(sg / n), uint8(sb / n), 0xff}
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
