package view

import (
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/render"
	"github.com/vanderheijden86/kgview/pkg/viewport"
)

// EventType classifies an input event.
type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
	PointerLeave
	Wheel
	TouchStart
	TouchMove
	TouchEnd
	Key
)

func (t EventType) String() string {
	switch t {
	case PointerDown:
		return "pointer-down"
	case PointerMove:
		return "pointer-move"
	case PointerUp:
		return "pointer-up"
	case PointerLeave:
		return "pointer-leave"
	case Wheel:
		return "wheel"
	case TouchStart:
		return "touch-start"
	case TouchMove:
		return "touch-move"
	case TouchEnd:
		return "touch-end"
	case Key:
		return "key"
	default:
		return "unknown"
	}
}

// Event is a host input event in canvas coordinates.
type Event struct {
	Type   EventType
	X, Y   float64
	DeltaY float64 // wheel: positive scrolls down (zoom out)
	Key    string  // key events: "Escape", "r", ...
	// Touches is the number of active touch points. Multi-touch gestures are
	// ignored.
	Touches int
}

// Cursor is the pointer shape the host should display.
type Cursor int

const (
	CursorGrab Cursor = iota
	CursorGrabbing
	CursorPointer
)

func (c Cursor) String() string {
	switch c {
	case CursorGrabbing:
		return "grabbing"
	case CursorPointer:
		return "pointer"
	default:
		return "grab"
	}
}

// Dispatch applies e to the view and reports whether it changed any state.
func (v *View) Dispatch(e Event) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return false
	}

	var changed bool
	switch e.Type {
	case PointerDown:
		changed = v.pressLocked(e.X, e.Y)
	case PointerMove:
		changed = v.moveLocked(e.X, e.Y)
	case PointerUp:
		changed = v.dragging
		v.dragging = false
	case PointerLeave:
		changed = v.dragging || v.hovered != nil
		v.dragging = false
		v.hovered = nil
	case Wheel:
		factor := viewport.ZoomInFactor
		if e.DeltaY > 0 {
			factor = viewport.ZoomOutFactor
		}
		v.vp.Zoom(e.X, e.Y, factor)
		changed = true
	case TouchStart:
		if e.Touches <= 1 {
			changed = v.pressLocked(e.X, e.Y)
		}
	case TouchMove:
		if e.Touches <= 1 && v.dragging {
			changed = v.moveLocked(e.X, e.Y)
		}
	case TouchEnd:
		changed = v.dragging
		v.dragging = false
	case Key:
		changed = v.keyLocked(e.Key)
	}

	if changed {
		v.invalidateLocked()
	}
	return changed
}

// pressLocked handles a primary press: the info panel close button first,
// then nodes, then the background which starts a drag.
func (v *View) pressLocked(x, y float64) bool {
	if v.selected != nil && !v.renderer.HideOverlays && v.closeButtonLocked().Contains(x, y) {
		v.selected = nil
		return true
	}
	if n := v.hitLocked(x, y); n != nil {
		v.selected = n
		return true
	}
	v.dragging = true
	v.lastX, v.lastY = x, y
	return true
}

func (v *View) moveLocked(x, y float64) bool {
	if v.dragging {
		dx, dy := x-v.lastX, y-v.lastY
		v.lastX, v.lastY = x, y
		if dx == 0 && dy == 0 {
			return false
		}
		v.vp.Pan(dx, dy)
		return true
	}
	n := v.hitLocked(x, y)
	if n == v.hovered {
		return false
	}
	v.hovered = n
	return true
}

func (v *View) keyLocked(key string) bool {
	switch key {
	case "Escape", "esc":
		if v.selected == nil {
			return false
		}
		v.selected = nil
		return true
	case "r", "R":
		v.fitLocked(false)
		return true
	}
	return false
}

func (v *View) hitLocked(x, y float64) *model.Node {
	g := v.visibleLocked()
	if g == nil || v.errMsg != "" {
		return nil
	}
	return render.HitTest(x, y, g.Nodes, v.vp.Transform(), v.renderer.Style)
}

func (v *View) closeButtonLocked() render.Rect {
	return render.LayoutInfoPanel(v.selected, nil, v.renderer.Style.Palette, nil).Close
}

// Cursor reports the pointer shape for the current interaction.
func (v *View) Cursor() Cursor {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case v.dragging:
		return CursorGrabbing
	case v.hovered != nil:
		return CursorPointer
	default:
		return CursorGrab
	}
}
