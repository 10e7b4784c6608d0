package mask

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blend"
)

// HighlightColor matches the translucent red brush used when drawing regions.
var HighlightColor = color.NRGBA{R: 255, A: 153}

// Overlay paints m over base in c and returns the composited image.
func Overlay(base image.Image, m *Mask, c color.NRGBA) *image.RGBA {
	b := base.Bounds()
	fg := image.NewNRGBA(b)
	for y := 0; y < m.Height && y < b.Dy(); y++ {
		for x := 0; x < m.Width && x < b.Dx(); x++ {
			if m.Pix[y*m.Width+x] != 0 {
				fg.SetNRGBA(b.Min.X+x, b.Min.Y+y, c)
			}
		}
	}
	return blend.Normal(base, fg)
}
