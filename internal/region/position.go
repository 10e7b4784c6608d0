package region

import (
	"fmt"
	"sort"
	"strings"
)

// Named anchor positions for segments.
const (
	TopLeft      = "top-left"
	TopCenter    = "top-center"
	TopRight     = "top-right"
	CenterLeft   = "center-left"
	Center       = "center"
	CenterRight  = "center-right"
	BottomLeft   = "bottom-left"
	BottomCenter = "bottom-center"
	BottomRight  = "bottom-right"
)

// anchors maps a position name to its horizontal and vertical alignment,
// each 0 (start), 1 (center) or 2 (end).
var anchors = map[string][2]int{
	TopLeft:      {0, 0},
	TopCenter:    {1, 0},
	TopRight:     {2, 0},
	CenterLeft:   {0, 1},
	Center:       {1, 1},
	CenterRight:  {2, 1},
	BottomLeft:   {0, 2},
	BottomCenter: {1, 2},
	BottomRight:  {2, 2},
}

// PositionNames lists the accepted anchor names in a stable order.
func PositionNames() []string {
	names := make([]string, 0, len(anchors))
	for name := range anchors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Position is either a named anchor or explicit coordinates. W and H are
// optional for both; zero means the configured default size.
type Position struct {
	Name string
	X    float64
	Y    float64
	W    float64
	H    float64
}

// Named reports whether the position refers to an anchor.
func (p Position) Named() bool {
	return p.Name != ""
}

// Layout holds the default segment size and edge margin as fractions of
// the frame.
type Layout struct {
	WidthRatio  float64
	HeightRatio float64
	MarginRatio float64
}

// Rect places the position within a frame of the given size. Explicit
// coordinates are returned as given; callers map and clamp afterwards.
func (p Position) Rect(layout Layout, frameW, frameH float64) (Rect, error) {
	w, h := p.W, p.H
	if w <= 0 {
		w = layout.WidthRatio * frameW
	}
	if h <= 0 {
		h = layout.HeightRatio * frameH
	}
	if !p.Named() {
		return Rect{X: p.X, Y: p.Y, W: w, H: h}, nil
	}
	anchor, ok := anchors[p.Name]
	if !ok {
		return Rect{}, fmt.Errorf("unknown position %q", p.Name)
	}
	mx, my := layout.MarginRatio*frameW, layout.MarginRatio*frameH
	return Rect{
		X: align(anchor[0], frameW, w, mx),
		Y: align(anchor[1], frameH, h, my),
		W: w,
		H: h,
	}, nil
}

func align(mode int, total, size, margin float64) float64 {
	switch mode {
	case 0:
		return margin
	case 1:
		return (total - size) / 2
	default:
		return total - size - margin
	}
}

func normalizePositionName(name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	// camel-case forms such as TopLeft
	if _, ok := anchors[key]; !ok {
		key = camelToKebab(strings.TrimSpace(name))
	}
	if key == "middle" {
		key = Center
	}
	if _, ok := anchors[key]; !ok {
		return "", fmt.Errorf("unknown position %q (want one of %s)", name, strings.Join(PositionNames(), ", "))
	}
	return key, nil
}

func camelToKebab(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
