package mask

import (
	"image"
	"image/color"
)

// Mask is a binary buffer; each byte is 0 or 1. Masks are never mutated
// after construction by this package.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// New returns an all-zero mask.
func New(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// FromRect returns a mask with r set. r is clipped to the frame.
func FromRect(width, height int, r image.Rectangle) *Mask {
	m := New(width, height)
	r = r.Intersect(image.Rect(0, 0, width, height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.Pix[y*width : (y+1)*width]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = 1
		}
	}
	return m
}

// At reports whether (x, y) is set.
func (m *Mask) At(x, y int) bool {
	return m.Pix[y*m.Width+x] != 0
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Empty reports whether no pixel is set.
func (m *Mask) Empty() bool {
	for _, v := range m.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

// Bounds returns the smallest rectangle containing every set pixel, or the
// zero rectangle for an empty mask.
func (m *Mask) Bounds() image.Rectangle {
	minX, minY, maxX, maxY := m.Width, m.Height, -1, -1
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x, v := range row {
			if v == 0 {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	return &Mask{Width: m.Width, Height: m.Height, Pix: append([]uint8(nil), m.Pix...)}
}

// Equal reports whether both masks have the same size and pixels.
func (m *Mask) Equal(o *Mask) bool {
	if m.Width != o.Width || m.Height != o.Height {
		return false
	}
	for i := range m.Pix {
		if (m.Pix[i] != 0) != (o.Pix[i] != 0) {
			return false
		}
	}
	return true
}

// Union returns the pixel-wise OR of masks, all of which must be
// width x height. With no masks it returns an all-zero mask.
func Union(width, height int, masks ...*Mask) *Mask {
	out := New(width, height)
	for _, m := range masks {
		for i, v := range m.Pix {
			if v != 0 {
				out.Pix[i] = 1
			}
		}
	}
	return out
}

// Gray renders the mask as an 8-bit image with set pixels at 255.
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v != 0 {
			img.Pix[i] = 0xff
		}
	}
	return img
}

// FromImage thresholds an image into a mask: a pixel is set when it is
// painted, meaning alpha above 1 for translucent images or any non-black
// color for opaque ones.
func FromImage(img image.Image) *Mask {
	b := img.Bounds()
	m := New(b.Dx(), b.Dy())
	opaque := isOpaque(img)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			painted := c.A > 1
			if opaque {
				painted = c.R > 0 || c.G > 0 || c.B > 0
			}
			if painted {
				m.Pix[(y-b.Min.Y)*m.Width+(x-b.Min.X)] = 1
			}
		}
	}
	return m
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}
