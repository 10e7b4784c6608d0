// Package frame defines the packed RGB frame exchanged between the decoder,
// the inpainting engines, and the encoder.
package frame

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// BytesPerPixel is the packed rgb24 pixel stride.
const BytesPerPixel = 3

// Frame is one decoded video frame in packed rgb24 layout.
type Frame struct {
	Width     int
	Height    int
	Index     int
	Timestamp float64
	Pix       []byte
}

// New allocates a zeroed frame.
func New(width, height int) *Frame {
	return &Frame{Width: width, Height: height, Pix: make([]byte, Size(width, height))}
}

// Size returns the byte length of a width x height rgb24 frame.
func Size(width, height int) int {
	return width * height * BytesPerPixel
}

// Validate reports whether the pixel buffer matches the dimensions.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("frame: nil")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame: invalid dimensions %dx%d", f.Width, f.Height)
	}
	if len(f.Pix) != Size(f.Width, f.Height) {
		return fmt.Errorf("frame: buffer holds %d bytes, want %d", len(f.Pix), Size(f.Width, f.Height))
	}
	return nil
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := *f
	out.Pix = append([]byte(nil), f.Pix...)
	return &out
}

// Offset returns the index of the red byte at (x, y).
func (f *Frame) Offset(x, y int) int {
	return (y*f.Width + x) * BytesPerPixel
}

// RGBA converts the frame to an image for PNG export and blending.
func (f *Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+4 {
		img.Pix[j] = f.Pix[i]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// FromImage packs any image into an rgb24 frame, discarding alpha.
func FromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	f := New(bounds.Dx(), bounds.Dy())
	for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+4 {
		f.Pix[i] = rgba.Pix[j]
		f.Pix[i+1] = rgba.Pix[j+1]
		f.Pix[i+2] = rgba.Pix[j+2]
	}
	return f
}

// At returns the pixel at (x, y).
func (f *Frame) At(x, y int) color.RGBA {
	o := f.Offset(x, y)
	return color.RGBA{R: f.Pix[o], G: f.Pix[o+1], B: f.Pix[o+2], A: 0xff}
}

// Set writes the pixel at (x, y).
func (f *Frame) Set(x, y int, c color.RGBA) {
	o := f.Offset(x, y)
	f.Pix[o], f.Pix[o+1], f.Pix[o+2] = c.R, c.G, c.B
}
