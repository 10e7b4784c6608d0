package region

import (
	"fmt"
	"strings"
)

// Kind names a Spec variant as it appears in the JSON "type" field.
type Kind string

const (
	KindBox      Kind = "box"
	KindSegments Kind = "segments"
	KindMask     Kind = "mask"
)

// DefaultBrushWidth is used for strokes that omit brushWidth.
const DefaultBrushWidth = 30

// Spec is the closed set of region descriptions: Box, Segments, Freehand.
type Spec interface {
	Kind() Kind
	// Describe renders a short human summary for logs and job history.
	Describe() string
	isSpec()
}

// Rect is an axis-aligned rectangle in canvas or source coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Canvas is the size of the preview surface coordinates were captured on.
// A zero Canvas means coordinates are already in source pixels.
type Canvas struct {
	Width  float64 `json:"canvasWidth,omitempty"`
	Height float64 `json:"canvasHeight,omitempty"`
}

// IsZero reports whether no canvas was given.
func (c Canvas) IsZero() bool {
	return c.Width <= 0 || c.Height <= 0
}

// Box covers one rectangle for the whole duration.
type Box struct {
	Rect
	Canvas Canvas
}

func (Box) Kind() Kind { return KindBox }

func (b Box) Describe() string {
	return fmt.Sprintf("box %gx%g at (%g,%g)", b.W, b.H, b.X, b.Y)
}

func (Box) isSpec() {}

// Segment is a rectangle active during the closed interval [Start, End].
type Segment struct {
	Start    float64
	End      float64
	Position Position
}

// Segments is a list of independently timed rectangles. Overlapping
// segments combine by union.
type Segments struct {
	List   []Segment
	Canvas Canvas
}

func (Segments) Kind() Kind { return KindSegments }

func (s Segments) Describe() string {
	return fmt.Sprintf("%d segment(s)", len(s.List))
}

func (Segments) isSpec() {}

// Point is a canvas coordinate.
type Point struct {
	X float64
	Y float64
}

// Stroke is a brush path. A single point stamps one disc.
type Stroke struct {
	Points     []Point
	BrushWidth float64
}

// Freehand is a drawing made over one reference frame and applied to every
// frame. Image, when set, names a PNG whose painted pixels add to the strokes.
type Freehand struct {
	Canvas             Canvas
	ReferenceTimestamp float64
	Strokes            []Stroke
	Image              string
}

func (Freehand) Kind() Kind { return KindMask }

func (f Freehand) Describe() string {
	parts := []string{fmt.Sprintf("freehand %gx%g canvas", f.Canvas.Width, f.Canvas.Height), fmt.Sprintf("%d stroke(s)", len(f.Strokes))}
	if f.Image != "" {
		parts = append(parts, "image "+f.Image)
	}
	return strings.Join(parts, ", ")
}

func (Freehand) isSpec() {}
