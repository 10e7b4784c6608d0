package mask

// Dilate grows m with a kernel x kernel square structuring element applied
// iterations times, returning a new mask.
//
// Repeated square dilation composes into a single square of side
// (kernel-1)*iterations+1, so the result is computed directly with two
// separable running-window passes. This makes Dilate(Dilate(m, k, a), k, b)
// equal Dilate(m, k, a+b). Even kernels behave like the next smaller odd one.
func Dilate(m *Mask, kernel, iterations int) *Mask {
	radius := (kernel - 1) / 2 * iterations
	if radius <= 0 {
		return m.Clone()
	}
	tmp := New(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		windowMax(m.Pix, tmp.Pix, y*m.Width, 1, m.Width, radius)
	}
	out := New(m.Width, m.Height)
	for x := 0; x < m.Width; x++ {
		windowMax(tmp.Pix, out.Pix, x, m.Width, m.Height, radius)
	}
	return out
}

// windowMax walks n elements of src starting at start with the given stride
// and sets dst wherever a set element lies within radius steps.
func windowMax(src, dst []uint8, start, stride, n, radius int) {
	last := -radius - 1
	for i := 0; i < n; i++ {
		idx := start + i*stride
		if src[idx] != 0 {
			last = i
		}
		if i-last <= radius {
			dst[idx] = 1
		}
	}
	next := n + radius
	for i := n - 1; i >= 0; i-- {
		idx := start + i*stride
		if src[idx] != 0 {
			next = i
		}
		if next-i <= radius {
			dst[idx] = 1
		}
	}
}

// Postprocessor applies the configured dilation.
type Postprocessor struct {
	Kernel     int
	Iterations int
}

// Apply returns the dilated copy of m.
func (p Postprocessor) Apply(m *Mask) *Mask {
	return Dilate(m, p.Kernel, p.Iterations)
}

// Margin returns how many pixels Apply grows a mask in each direction.
func (p Postprocessor) Margin() int {
	if p.Kernel < 2 || p.Iterations <= 0 {
		return 0
	}
	return (p.Kernel - 1) / 2 * p.Iterations
}
