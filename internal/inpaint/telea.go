package inpaint

import (
	"container/heap"
	"image"
	"math"

	"eraser/internal/mask"
	"eraser/internal/media/frame"
)

const (
	flagKnown uint8 = iota
	flagBand
	flagInside
)

const unreached = 1e6

// Telea fills masked pixels in order of their distance from the mask
// boundary, each from a weighted average of already-known neighbours within
// the radius.
type Telea struct {
	radius int
}

// NewTelea returns a fast marching engine.
func NewTelea(radius int) *Telea {
	if radius <= 0 {
		radius = DefaultRadius
	}
	return &Telea{radius: radius}
}

// Name returns EngineTelea.
func (t *Telea) Name() string { return EngineTelea }

// Radius returns the neighbourhood radius in pixels.
func (t *Telea) Radius() int { return t.radius }

// Inpaint returns a copy of f with the masked pixels reconstructed. An empty
// mask returns f itself.
func (t *Telea) Inpaint(f *frame.Frame, m *mask.Mask) (*frame.Frame, error) {
	if err := checkInputs(f, m); err != nil {
		return nil, err
	}
	bounds := m.Bounds()
	if bounds.Empty() {
		return f, nil
	}
	roi := bounds.Inset(-(t.radius + 1)).Intersect(image.Rect(0, 0, f.Width, f.Height))
	out := f.Clone()
	g := newGrid(out, m, roi)
	g.march(t.radius)
	return out, nil
}

// grid holds the marching state for the region of interest. Coordinates are
// relative to the ROI origin; pixel writes go straight to the output frame.
type grid struct {
	w, h   int
	ox, oy int
	stride int
	pix    []byte
	flags  []uint8
	dist   []float64
	queue  bandQueue
	seq    int
}

var neighbours4 = [4]image.Point{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}

func newGrid(f *frame.Frame, m *mask.Mask, roi image.Rectangle) *grid {
	w, h := roi.Dx(), roi.Dy()
	g := &grid{
		w:      w,
		h:      h,
		ox:     roi.Min.X,
		oy:     roi.Min.Y,
		stride: f.Width,
		pix:    f.Pix,
		flags:  make([]uint8, w*h),
		dist:   make([]float64, w*h),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if m.At(g.ox+x, g.oy+y) {
				i := y*w + x
				g.flags[i] = flagInside
				g.dist[i] = unreached
			}
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if g.flags[i] != flagKnown || !g.touchesInside(x, y) {
				continue
			}
			g.flags[i] = flagBand
			g.queue = append(g.queue, bandItem{idx: i, seq: g.seq})
			g.seq++
		}
	}
	heap.Init(&g.queue)
	return g
}

func (g *grid) contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.w && y < g.h
}

func (g *grid) touchesInside(x, y int) bool {
	for _, d := range neighbours4 {
		nx, ny := x+d.X, y+d.Y
		if g.contains(nx, ny) && g.flags[ny*g.w+nx] == flagInside {
			return true
		}
	}
	return false
}

func (g *grid) march(radius int) {
	for g.queue.Len() > 0 {
		item := heap.Pop(&g.queue).(bandItem)
		g.flags[item.idx] = flagKnown
		x, y := item.idx%g.w, item.idx/g.w
		for _, d := range neighbours4 {
			nx, ny := x+d.X, y+d.Y
			if !g.contains(nx, ny) {
				continue
			}
			j := ny*g.w + nx
			if g.flags[j] != flagInside {
				continue
			}
			t := min(
				g.solve(nx-1, ny, nx, ny-1),
				g.solve(nx+1, ny, nx, ny-1),
				g.solve(nx-1, ny, nx, ny+1),
				g.solve(nx+1, ny, nx, ny+1),
			)
			g.dist[j] = t
			g.fill(nx, ny, radius)
			g.flags[j] = flagBand
			heap.Push(&g.queue, bandItem{idx: j, t: t, seq: g.seq})
			g.seq++
		}
	}
}

// sample returns the arrival time at (x, y) and whether it is settled.
func (g *grid) sample(x, y int) (float64, bool) {
	if !g.contains(x, y) {
		return unreached, false
	}
	i := y*g.w + x
	return g.dist[i], g.flags[i] != flagInside
}

// solve is the upwind eikonal update from one horizontal and one vertical
// neighbour.
func (g *grid) solve(x1, y1, x2, y2 int) float64 {
	a, aok := g.sample(x1, y1)
	b, bok := g.sample(x2, y2)
	switch {
	case aok && bok:
		if math.Abs(a-b) >= 1 {
			return 1 + min(a, b)
		}
		return (a + b + math.Sqrt(2-(a-b)*(a-b))) * 0.5
	case aok:
		return 1 + a
	case bok:
		return 1 + b
	default:
		return 1 + unreached
	}
}

func (g *grid) gradient(x, y, dx, dy int) float64 {
	t := g.dist[y*g.w+x]
	next, nok := g.sample(x+dx, y+dy)
	prev, pok := g.sample(x-dx, y-dy)
	switch {
	case nok && pok:
		return (next - prev) * 0.5
	case nok:
		return next - t
	case pok:
		return t - prev
	default:
		return 0
	}
}

func (g *grid) fill(x, y, radius int) {
	t0 := g.dist[y*g.w+x]
	gx, gy := g.gradient(x, y, 1, 0), g.gradient(x, y, 0, 1)
	r2 := float64(radius * radius)

	var sum [3]float64
	var total float64
	for ky := max(0, y-radius); ky <= min(g.h-1, y+radius); ky++ {
		for kx := max(0, x-radius); kx <= min(g.w-1, x+radius); kx++ {
			k := ky*g.w + kx
			if g.flags[k] == flagInside {
				continue
			}
			rx, ry := float64(x-kx), float64(y-ky)
			d2 := rx*rx + ry*ry
			if d2 > r2 {
				continue
			}
			dst := 1 / (d2 * math.Sqrt(d2))
			lev := 1 / (1 + math.Abs(g.dist[k]-t0))
			dir := rx*gx + ry*gy
			if math.Abs(dir) <= 0.01 {
				dir = 1e-6
			}
			w := math.Abs(dst * lev * dir)
			o := g.offset(kx, ky)
			sum[0] += w * float64(g.pix[o])
			sum[1] += w * float64(g.pix[o+1])
			sum[2] += w * float64(g.pix[o+2])
			total += w
		}
	}
	if total == 0 {
		return
	}
	o := g.offset(x, y)
	for c := range sum {
		g.pix[o+c] = uint8(math.Min(255, math.Max(0, math.Round(sum[c]/total))))
	}
}

func (g *grid) offset(x, y int) int {
	return ((g.oy+y)*g.stride + g.ox + x) * frame.BytesPerPixel
}

type bandItem struct {
	idx int
	t   float64
	seq int
}

// bandQueue orders the narrow band by arrival time, then insertion order.
type bandQueue []bandItem

func (q bandQueue) Len() int { return len(q) }

func (q bandQueue) Less(i, j int) bool {
	if q[i].t != q[j].t {
		return q[i].t < q[j].t
	}
	return q[i].seq < q[j].seq
}

func (q bandQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *bandQueue) Push(x any) { *q = append(*q, x.(bandItem)) }

func (q *bandQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
