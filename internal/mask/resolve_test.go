package mask

import (
	"image"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eraser/internal/config"
	"eraser/internal/region"
	"eraser/internal/services"
)

func testResolver() Resolver {
	cfg := config.Default()
	return NewResolver(&cfg)
}

var hd = Geometry{Width: 1280, Height: 720, Duration: 10}

func TestResolveBoxCoversWholeDuration(t *testing.T) {
	tl, err := testResolver().Resolve(region.Box{Rect: region.Rect{X: 900, Y: 20, W: 300, H: 100}}, hd)
	require.NoError(t, err)

	raw := tl.Raw(0)
	assert.Equal(t, image.Rect(900, 20, 1200, 120), raw.Bounds())
	assert.Equal(t, 300*100, raw.Count())

	for _, ts := range []float64{0, 5, 10, 42} {
		m := tl.At(ts)
		// 7x7 kernel, 3 iterations: 9px margin on every side.
		assert.Equal(t, image.Rect(891, 11, 1209, 129), m.Bounds())
	}
	assert.Same(t, tl.At(1), tl.At(2), "dilated mask should be cached")
	assert.Equal(t, []string{"0"}, tl.Distinct())
}

func TestResolveBoxFromCanvas(t *testing.T) {
	spec := region.Box{Rect: region.Rect{X: 450, Y: 10, W: 150, H: 50}, Canvas: region.Canvas{Width: 640, Height: 360}}
	tl, err := testResolver().Resolve(spec, hd)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(900, 20, 1200, 120), tl.Raw(0).Bounds())
}

func TestResolveEmptyBoxIsMaskError(t *testing.T) {
	for name, rect := range map[string]region.Rect{
		"zero":       {},
		"offscreen":  {X: 5000, Y: 5000, W: 10, H: 10},
		"negative w": {X: 10, Y: 10, W: -10, H: 10},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := testResolver().Resolve(region.Box{Rect: rect}, hd)
			assert.ErrorIs(t, err, services.ErrMask)
		})
	}
}

func TestResolveClampsPartiallyOffscreenBox(t *testing.T) {
	tl, err := testResolver().Resolve(region.Box{Rect: region.Rect{X: 1200, Y: -50, W: 500, H: 100}}, hd)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(1200, 0, 1280, 50), tl.Raw(0).Bounds())
}

func seg(start, end float64, pos string) region.Segment {
	return region.Segment{Start: start, End: end, Position: region.Position{Name: pos}}
}

func TestOverlappingSegmentsCollapseToSingleSegment(t *testing.T) {
	r := testResolver()
	split, err := r.Resolve(region.Segments{List: []region.Segment{seg(0, 5, region.TopLeft), seg(3, 8, region.TopLeft)}}, hd)
	require.NoError(t, err)
	single, err := r.Resolve(region.Segments{List: []region.Segment{seg(0, 8, region.TopLeft)}}, hd)
	require.NoError(t, err)

	for _, ts := range []float64{0, 2.9, 3, 4, 5, 7.5, 8} {
		assert.True(t, split.At(ts).Equal(single.At(ts)), "t=%v", ts)
	}
	assert.Equal(t, "0,1", split.ActiveSet(4))
	assert.True(t, split.At(8.5).Empty())
	assert.True(t, single.At(9).Empty())
}

func TestActiveMaskIsUnionOfContainingSegments(t *testing.T) {
	tl, err := testResolver().Resolve(region.Segments{List: []region.Segment{
		seg(0, 5, region.TopLeft),
		seg(3, 8, region.BottomRight),
		seg(6, 10, region.Center),
	}}, hd)
	require.NoError(t, err)

	topLeft := tl.Raw(1)
	bottomRight := tl.Raw(5.5)
	assert.Equal(t, "1", tl.ActiveSet(5.5))

	overlap := tl.Raw(4)
	assert.True(t, overlap.Equal(Union(1280, 720, topLeft, bottomRight)))
	assert.Equal(t, topLeft.Count()+bottomRight.Count(), overlap.Count())
	assert.Equal(t, "1,2", tl.ActiveSet(7))

	// Closed interval: both ends active.
	assert.Equal(t, "0,1", tl.ActiveSet(3))
	assert.Equal(t, "0,1", tl.ActiveSet(5))
}

func TestSegmentsWithExplicitCoordinatesAndCanvas(t *testing.T) {
	spec := region.Segments{
		Canvas: region.Canvas{Width: 640, Height: 360},
		List:   []region.Segment{{Start: 0, End: 10, Position: region.Position{X: 450, Y: 10, W: 150, H: 50}}},
	}
	tl, err := testResolver().Resolve(spec, hd)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(900, 20, 1200, 120), tl.Raw(1).Bounds())
}

func TestSegmentErrors(t *testing.T) {
	r := testResolver()
	_, err := r.Resolve(region.Segments{}, hd)
	assert.ErrorIs(t, err, services.ErrMask)

	_, err = r.Resolve(region.Segments{List: []region.Segment{seg(5, 3, region.Center)}}, hd)
	assert.ErrorIs(t, err, services.ErrMask)

	_, err = r.Resolve(region.Segments{List: []region.Segment{{Start: 0, End: 1, Position: region.Position{X: 2000, Y: 0, W: 10, H: 10}}}}, hd)
	assert.ErrorIs(t, err, services.ErrMask)
}

func TestSegmentTimesAreClampedToDuration(t *testing.T) {
	tl, err := testResolver().Resolve(region.Segments{List: []region.Segment{seg(-3, 50, region.Center)}}, hd)
	require.NoError(t, err)
	assert.Equal(t, "0", tl.ActiveSet(0))
	assert.Equal(t, "0", tl.ActiveSet(10))
	assert.Equal(t, "", tl.ActiveSet(10.5))
}

func relativeStroke(canvasW, canvasH float64) region.Freehand {
	return region.Freehand{
		Canvas:  region.Canvas{Width: canvasW, Height: canvasH},
		Strokes: []region.Stroke{{
			BrushWidth: 0.03 * canvasW,
			Points: []region.Point{
				{X: 0.70 * canvasW, Y: 0.05 * canvasH},
				{X: 0.80 * canvasW, Y: 0.08 * canvasH},
				{X: 0.92 * canvasW, Y: 0.06 * canvasH},
			},
		}},
	}
}

// Same relative drawing on different canvases covers the same source
// pixels within one 7x7 kernel of tolerance.
func TestFreehandIsScaleInvariant(t *testing.T) {
	geo := Geometry{Width: 1400, Height: 788, Duration: 5}
	r := testResolver()
	small, err := r.Resolve(relativeStroke(700, 394), geo)
	require.NoError(t, err)
	large, err := r.Resolve(relativeStroke(1400, 788), geo)
	require.NoError(t, err)

	a, b := small.Raw(0), large.Raw(0)
	require.False(t, a.Empty())
	require.False(t, b.Empty())
	assert.True(t, containedIn(a, Dilate(b, 7, 1)), "small-canvas mask exceeds tolerance")
	assert.True(t, containedIn(b, Dilate(a, 7, 1)), "large-canvas mask exceeds tolerance")

	fa := float64(a.Count()) / float64(len(a.Pix))
	fb := float64(b.Count()) / float64(len(b.Pix))
	assert.InDelta(t, fb, fa, 0.2*fb)
}

func containedIn(inner, outer *Mask) bool {
	for i, v := range inner.Pix {
		if v != 0 && outer.Pix[i] == 0 {
			return false
		}
	}
	return true
}

func TestFreehandSinglePointAndEmpty(t *testing.T) {
	geo := Geometry{Width: 200, Height: 100, Duration: 1}
	dot := region.Freehand{
		Canvas:  region.Canvas{Width: 200, Height: 100},
		Strokes: []region.Stroke{{BrushWidth: 10, Points: []region.Point{{X: 50, Y: 50}}}},
	}
	tl, err := testResolver().Resolve(dot, geo)
	require.NoError(t, err)
	m := tl.Raw(0)
	assert.InDelta(t, math.Pi*25, float64(m.Count()), 12)
	assert.True(t, m.At(50, 50))

	_, err = testResolver().Resolve(region.Freehand{Canvas: region.Canvas{Width: 200, Height: 100}}, geo)
	assert.ErrorIs(t, err, services.ErrMask)
}

func TestFreehandImageIsMergedWithStrokes(t *testing.T) {
	dir := t.TempDir()
	drawn := image.NewNRGBA(image.Rect(0, 0, 100, 50))
	for y := 10; y < 20; y++ {
		for x := 60; x < 90; x++ {
			drawn.Pix[drawn.PixOffset(x, y)] = 255
			drawn.Pix[drawn.PixOffset(x, y)+3] = 153
		}
	}
	path := filepath.Join(dir, "drawn.png")
	require.NoError(t, imgio.Save(path, drawn, imgio.PNGEncoder()))

	spec := region.Freehand{Canvas: region.Canvas{Width: 100, Height: 50}, Image: path}
	tl, err := testResolver().Resolve(spec, Geometry{Width: 200, Height: 100, Duration: 1})
	require.NoError(t, err)
	b := tl.Raw(0).Bounds()
	assert.InDelta(t, 120, b.Min.X, 2)
	assert.InDelta(t, 180, b.Max.X, 2)
	assert.InDelta(t, 20, b.Min.Y, 2)
	assert.InDelta(t, 40, b.Max.Y, 2)

	_, err = testResolver().Resolve(region.Freehand{Canvas: spec.Canvas, Image: filepath.Join(dir, "missing.png")}, hd)
	assert.ErrorIs(t, err, services.ErrMask)
}

func TestTimelineIsSafeForConcurrentLookups(t *testing.T) {
	tl, err := testResolver().Resolve(region.Segments{List: []region.Segment{seg(0, 5, region.TopLeft), seg(3, 8, region.TopRight)}}, hd)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = tl.At(float64(i % 9))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, []string{"0", "0,1", "1"}, tl.Distinct())
}

func TestCachedSetIsServedWhileAnotherSetDilates(t *testing.T) {
	tl, err := testResolver().Resolve(region.Segments{List: []region.Segment{seg(0, 5, region.TopLeft), seg(3, 8, region.TopRight)}}, hd)
	require.NoError(t, err)
	first := tl.At(1)

	overlap := tl.slot("0,1")
	started := make(chan struct{})
	release := make(chan struct{})
	go overlap.once.Do(func() {
		close(started)
		<-release
		overlap.mask = tl.post.Apply(tl.Raw(4))
	})
	<-started

	got := make(chan *Mask, 1)
	go func() { got <- tl.At(2) }()
	select {
	case m := <-got:
		assert.Same(t, first, m)
	case <-time.After(2 * time.Second):
		t.Fatal("lookup of a cached set waited on another set's dilation")
	}

	close(release)
	assert.False(t, tl.At(4).Empty())
	assert.Same(t, tl.At(4), tl.At(4.5))
}

func TestResolveRejectsInvalidGeometry(t *testing.T) {
	_, err := testResolver().Resolve(region.Box{Rect: region.Rect{W: 1, H: 1}}, Geometry{})
	assert.ErrorIs(t, err, services.ErrValidation)
}
