package mask

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"eraser/internal/config"
	"eraser/internal/region"
	"eraser/internal/services"
)

// Geometry is the part of the source a mask depends on.
type Geometry struct {
	Width    int
	Height   int
	Duration float64
}

// Resolver turns region specs into timelines.
type Resolver struct {
	Layout region.Layout
	Post   Postprocessor
}

// NewResolver reads the segment layout and dilation settings from cfg.
func NewResolver(cfg *config.Config) Resolver {
	return Resolver{
		Layout: region.Layout{
			WidthRatio:  cfg.Mask.SegmentWidthRatio,
			HeightRatio: cfg.Mask.SegmentHeightRatio,
			MarginRatio: cfg.Mask.SegmentMarginRatio,
		},
		Post: Postprocessor{Kernel: cfg.Mask.DilateKernel, Iterations: cfg.Mask.DilateIterations},
	}
}

// Resolve builds the mask timeline for spec. Every resolved mask must cover
// at least one pixel; otherwise the error wraps services.ErrMask.
func (r Resolver) Resolve(spec region.Spec, geo Geometry) (*Timeline, error) {
	if geo.Width <= 0 || geo.Height <= 0 {
		return nil, services.Wrap(services.ErrValidation, "resolving", "resolve mask", fmt.Sprintf("invalid frame size %dx%d", geo.Width, geo.Height), nil)
	}
	var entries []entry
	switch s := spec.(type) {
	case region.Box:
		mapper := region.NewMapper(s.Canvas, geo.Width, geo.Height)
		rect := region.Clamp(mapper.Rect(s.Rect), geo.Width, geo.Height)
		if rect.Empty() {
			return nil, maskError(fmt.Sprintf("box %s covers no pixels", s.Describe()))
		}
		entries = append(entries, entry{start: 0, end: math.Inf(1), mask: FromRect(geo.Width, geo.Height, rect)})

	case region.Segments:
		if len(s.List) == 0 {
			return nil, maskError("segment list is empty")
		}
		mapper := region.NewMapper(s.Canvas, geo.Width, geo.Height)
		frameW, frameH := float64(geo.Width), float64(geo.Height)
		if !s.Canvas.IsZero() {
			frameW, frameH = s.Canvas.Width, s.Canvas.Height
		}
		for i, seg := range s.List {
			if seg.End < seg.Start {
				return nil, maskError(fmt.Sprintf("segment %d ends (%gs) before it starts (%gs)", i, seg.End, seg.Start))
			}
			placed, err := seg.Position.Rect(r.Layout, frameW, frameH)
			if err != nil {
				return nil, maskError(fmt.Sprintf("segment %d: %v", i, err))
			}
			rect := region.Clamp(mapper.Rect(placed), geo.Width, geo.Height)
			if rect.Empty() {
				return nil, maskError(fmt.Sprintf("segment %d covers no pixels", i))
			}
			entries = append(entries, entry{
				start: region.ClampTime(seg.Start, geo.Duration),
				end:   region.ClampTime(seg.End, geo.Duration),
				mask:  FromRect(geo.Width, geo.Height, rect),
			})
		}

	case region.Freehand:
		m, err := Rasterize(s, geo.Width, geo.Height)
		if err != nil {
			return nil, services.Wrap(services.ErrMask, "resolving", "rasterize mask", "", err)
		}
		if m.Empty() {
			return nil, maskError("freehand drawing covers no pixels")
		}
		entries = append(entries, entry{start: 0, end: math.Inf(1), mask: m})

	default:
		return nil, services.Wrap(services.ErrValidation, "resolving", "resolve mask", fmt.Sprintf("unsupported region %T", spec), nil)
	}

	return &Timeline{
		width:   geo.Width,
		height:  geo.Height,
		entries: entries,
		post:    r.Post,
		empty:   New(geo.Width, geo.Height),
		cache:   make(map[string]*dilated),
	}, nil
}

func maskError(message string) error {
	return services.Wrap(services.ErrMask, "resolving", "resolve mask", message, nil)
}

type entry struct {
	start float64
	end   float64
	mask  *Mask
}

// Timeline maps timestamps to dilated masks. It is safe for concurrent use.
type Timeline struct {
	width   int
	height  int
	entries []entry
	post    Postprocessor
	empty   *Mask

	mu    sync.Mutex
	cache map[string]*dilated
}

// dilated is one cached active set, computed once outside the timeline lock.
type dilated struct {
	once sync.Once
	mask *Mask
}

// ActiveSet returns the indexes of entries whose closed interval contains t,
// joined into a cache key. The key is empty when nothing is active.
func (t *Timeline) ActiveSet(ts float64) string {
	var active []string
	for i, e := range t.entries {
		if ts >= e.start && ts <= e.end {
			active = append(active, strconv.Itoa(i))
		}
	}
	return strings.Join(active, ",")
}

// Raw returns the undilated union of masks active at ts.
func (t *Timeline) Raw(ts float64) *Mask {
	var masks []*Mask
	for _, e := range t.entries {
		if ts >= e.start && ts <= e.end {
			masks = append(masks, e.mask)
		}
	}
	return Union(t.width, t.height, masks...)
}

// At returns the dilated mask active at ts. When nothing is active the
// shared all-zero mask is returned. Callers must not modify the result.
func (t *Timeline) At(ts float64) *Mask {
	key := t.ActiveSet(ts)
	if key == "" {
		return t.empty
	}
	d := t.slot(key)
	d.once.Do(func() { d.mask = t.post.Apply(t.Raw(ts)) })
	return d.mask
}

func (t *Timeline) slot(key string) *dilated {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.cache[key]
	if !ok {
		d = &dilated{}
		t.cache[key] = d
	}
	return d
}

// Entries returns the number of resolved masks.
func (t *Timeline) Entries() int {
	return len(t.entries)
}

// Distinct returns the active-set keys computed so far, sorted.
func (t *Timeline) Distinct() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]string, 0, len(t.cache))
	for k := range t.cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size returns the frame dimensions every mask shares.
func (t *Timeline) Size() (int, int) {
	return t.width, t.height
}
