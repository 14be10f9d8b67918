// internal/humanoid/types.go
package humanoid

// MouseEventType mirrors the CDP Input.dispatchMouseEvent type strings.
type MouseEventType string

const (
	MouseMove    MouseEventType = "mouseMoved"
	MousePress   MouseEventType = "mousePressed"
	MouseRelease MouseEventType = "mouseReleased"
)

// MouseButton defines the mouse button.
type MouseButton string

const (
	ButtonNone MouseButton = "none"
	ButtonLeft MouseButton = "left"
)

// MouseEventData is the driver-agnostic description of one mouse event.
type MouseEventData struct {
	Type       MouseEventType
	X          float64
	Y          float64
	Button     MouseButton
	ClickCount int
	// Buttons is the pressed-button bitfield (1 = left).
	Buttons int64
}

// ElementGeometry is the content box of an element in viewport coordinates.
type ElementGeometry struct {
	// Vertices are [x0, y0, x1, y1, x2, y2, x3, y3], clockwise from top-left.
	Vertices []float64
	Width    int64
	Height   int64
}

// Center returns the centroid of the box, or false if the geometry is unusable.
func (g *ElementGeometry) Center() (Vector2D, bool) {
	if g == nil || len(g.Vertices) < 8 || g.Width <= 0 || g.Height <= 0 {
		return Vector2D{}, false
	}
	v := g.Vertices
	return Vector2D{
		X: (v[0] + v[2] + v[4] + v[6]) / 4,
		Y: (v[1] + v[3] + v[5] + v[7]) / 4,
	}, true
}
