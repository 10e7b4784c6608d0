package region

import (
	"image"
	"math"
)

// Mapper rescales canvas coordinates to source pixels.
type Mapper struct {
	scaleX float64
	scaleY float64
}

// NewMapper builds a mapper from canvas to a source of srcW x srcH. A zero
// canvas yields the identity.
func NewMapper(canvas Canvas, srcW, srcH int) Mapper {
	if canvas.IsZero() {
		return Mapper{scaleX: 1, scaleY: 1}
	}
	return Mapper{
		scaleX: float64(srcW) / canvas.Width,
		scaleY: float64(srcH) / canvas.Height,
	}
}

// Identity reports whether the mapper leaves coordinates unchanged.
func (m Mapper) Identity() bool {
	return m.scaleX == 1 && m.scaleY == 1
}

// Scale returns the per-axis factors.
func (m Mapper) Scale() (float64, float64) {
	return m.scaleX, m.scaleY
}

// Point maps a canvas point.
func (m Mapper) Point(p Point) Point {
	return Point{X: p.X * m.scaleX, Y: p.Y * m.scaleY}
}

// Rect maps a canvas rectangle.
func (m Mapper) Rect(r Rect) Rect {
	return Rect{X: r.X * m.scaleX, Y: r.Y * m.scaleY, W: r.W * m.scaleX, H: r.H * m.scaleY}
}

// Clamp rounds r to whole pixels and clips it to a width x height frame.
// The result may be empty.
func Clamp(r Rect, width, height int) image.Rectangle {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	x1 := int(math.Round(r.X + r.W))
	y1 := int(math.Round(r.Y + r.H))
	// Negative sizes collapse to empty rather than flipping.
	x1 = max(x1, x0)
	y1 = max(y1, y0)
	return image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, width, height))
}

// ClampTime clips t into [0, duration].
func ClampTime(t, duration float64) float64 {
	if t < 0 {
		return 0
	}
	if duration > 0 && t > duration {
		return duration
	}
	return t
}
