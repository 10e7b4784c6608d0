//go:build with_cv

package inpaint

import (
	"gocv.io/x/gocv"

	"eraser/internal/mask"
	"eraser/internal/media/frame"
	"eraser/internal/services"
)

func init() {
	register(EngineOpenCV, func(radius int) Engine { return &OpenCV{radius: radius} })
}

// OpenCV delegates reconstruction to cv::inpaint with the Telea method.
type OpenCV struct {
	radius int
}

// Name returns EngineOpenCV.
func (e *OpenCV) Name() string { return EngineOpenCV }

// Inpaint returns a copy of f with the masked pixels reconstructed. An empty
// mask returns f itself.
func (e *OpenCV) Inpaint(f *frame.Frame, m *mask.Mask) (*frame.Frame, error) {
	if err := checkInputs(f, m); err != nil {
		return nil, err
	}
	if m.Empty() {
		return f, nil
	}

	src, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Pix)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "inpaint", "wrap frame", "", err)
	}
	defer src.Close()

	region, err := gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8UC1, m.Pix)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "inpaint", "wrap mask", "", err)
	}
	defer region.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Inpaint(src, region, &dst, float32(e.radius), gocv.Telea)

	data := dst.ToBytes()
	if len(data) != len(f.Pix) {
		return nil, services.Wrap(services.ErrExternalTool, "inpaint", "read result", "unexpected output size", nil)
	}
	out := f.Clone()
	for i, v := range m.Pix {
		if v == 0 {
			continue
		}
		o := i * frame.BytesPerPixel
		copy(out.Pix[o:o+frame.BytesPerPixel], data[o:o+frame.BytesPerPixel])
	}
	return out, nil
}
