package mask

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"

	"eraser/internal/region"
)

// Rasterize draws a freehand spec at canvas resolution and resizes the
// raster to srcW x srcH. Any coverage left after bilinear resampling counts
// as set.
func Rasterize(fh region.Freehand, srcW, srcH int) (*Mask, error) {
	cw := int(math.Ceil(fh.Canvas.Width))
	ch := int(math.Ceil(fh.Canvas.Height))
	if cw <= 0 || ch <= 0 {
		return nil, fmt.Errorf("invalid canvas %gx%g", fh.Canvas.Width, fh.Canvas.Height)
	}
	coverage := image.NewGray(image.Rect(0, 0, cw, ch))
	for _, stroke := range fh.Strokes {
		stampStroke(coverage, stroke)
	}

	if fh.Image != "" {
		drawn, err := imgio.Open(fh.Image)
		if err != nil {
			return nil, fmt.Errorf("open mask image: %w", err)
		}
		if b := drawn.Bounds(); b.Dx() != cw || b.Dy() != ch {
			drawn = transform.Resize(drawn, cw, ch, transform.NearestNeighbor)
		}
		painted := FromImage(drawn)
		for i, v := range painted.Pix {
			if v != 0 {
				coverage.Pix[i] = 0xff
			}
		}
	}

	if cw == srcW && ch == srcH {
		return threshold(coverage), nil
	}
	resized := transform.Resize(coverage, srcW, srcH, transform.Linear)
	out := New(srcW, srcH)
	for i := range out.Pix {
		if resized.Pix[i*4] > 0 {
			out.Pix[i] = 1
		}
	}
	return out, nil
}

func threshold(g *image.Gray) *Mask {
	b := g.Bounds()
	m := New(b.Dx(), b.Dy())
	for i, v := range g.Pix {
		if v > 0 {
			m.Pix[i] = 1
		}
	}
	return m
}

// stampStroke stamps a disc at every point and along each joining segment,
// at spacing no larger than half the brush radius.
func stampStroke(dst *image.Gray, stroke region.Stroke) {
	radius := stroke.BrushWidth / 2
	if len(stroke.Points) == 0 {
		return
	}
	step := math.Max(radius/2, 0.5)
	prev := stroke.Points[0]
	stampDisc(dst, prev, radius)
	for _, p := range stroke.Points[1:] {
		dx, dy := p.X-prev.X, p.Y-prev.Y
		dist := math.Hypot(dx, dy)
		steps := int(math.Ceil(dist / step))
		for i := 1; i <= steps; i++ {
			t := float64(i) / float64(steps)
			stampDisc(dst, region.Point{X: prev.X + dx*t, Y: prev.Y + dy*t}, radius)
		}
		prev = p
	}
}

// stampDisc sets every pixel whose center lies within radius of c. A disc
// smaller than a pixel still marks the pixel containing c.
func stampDisc(dst *image.Gray, c region.Point, radius float64) {
	b := dst.Bounds()
	x0 := max(int(math.Floor(c.X-radius)), b.Min.X)
	y0 := max(int(math.Floor(c.Y-radius)), b.Min.Y)
	x1 := min(int(math.Ceil(c.X+radius)), b.Max.X-1)
	y1 := min(int(math.Ceil(c.Y+radius)), b.Max.Y-1)
	r2 := radius * radius
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx, dy := float64(x)+0.5-c.X, float64(y)+0.5-c.Y
			if dx*dx+dy*dy <= r2 {
				dst.Pix[y*dst.Stride+x] = 0xff
			}
		}
	}
	cx, cy := int(math.Floor(c.X)), int(math.Floor(c.Y))
	if image.Pt(cx, cy).In(b) {
		dst.Pix[cy*dst.Stride+cx] = 0xff
	}
}
