package region

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"eraser/internal/services"
)

type envelope struct {
	Type string `json:"type"`
}

type boxJSON struct {
	X            *float64 `json:"x"`
	Y            *float64 `json:"y"`
	W            *float64 `json:"w"`
	H            *float64 `json:"h"`
	CanvasWidth  float64  `json:"canvasWidth"`
	CanvasHeight float64  `json:"canvasHeight"`
}

type segmentJSON struct {
	Start    *float64        `json:"start"`
	End      *float64        `json:"end"`
	Position json.RawMessage `json:"position"`
	W        float64         `json:"w"`
	H        float64         `json:"h"`
}

type segmentsJSON struct {
	List         []segmentJSON `json:"list"`
	CanvasWidth  float64       `json:"canvasWidth"`
	CanvasHeight float64       `json:"canvasHeight"`
}

type strokeJSON struct {
	Points     []json.RawMessage `json:"points"`
	BrushWidth float64           `json:"brushWidth"`
}

type freehandJSON struct {
	CanvasWidth        float64      `json:"canvasWidth"`
	CanvasHeight       float64      `json:"canvasHeight"`
	ReferenceTimestamp float64      `json:"referenceTimestamp"`
	Strokes            []strokeJSON `json:"strokes"`
	Image              string       `json:"image"`
}

// Load accepts either inline JSON or a path to a JSON file.
func Load(value string) (Spec, error) {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "{") {
		return Parse([]byte(trimmed))
	}
	data, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "validating", "read region", trimmed, err)
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, err
	}
	// Relative mask images resolve against the region file.
	if fh, ok := spec.(Freehand); ok && fh.Image != "" && !filepath.IsAbs(fh.Image) {
		fh.Image = filepath.Join(filepath.Dir(trimmed), fh.Image)
		return fh, nil
	}
	return spec, nil
}

// Parse decodes a region description. Structural problems are validation
// errors; emptiness is detected later when the mask is resolved.
func Parse(data []byte) (Spec, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, invalid("decode region", err)
	}
	switch Kind(strings.ToLower(strings.TrimSpace(env.Type))) {
	case KindBox:
		return parseBox(data)
	case KindSegments:
		return parseSegments(data)
	case KindMask:
		return parseFreehand(data)
	case "":
		return nil, invalid("missing \"type\" (want box, segments or mask)", nil)
	default:
		return nil, invalid(fmt.Sprintf("unknown region type %q", env.Type), nil)
	}
}

func parseBox(data []byte) (Spec, error) {
	var raw boxJSON
	if err := strictUnmarshal(data, &raw); err != nil {
		return nil, invalid("decode box", err)
	}
	if raw.X == nil || raw.Y == nil || raw.W == nil || raw.H == nil {
		return nil, invalid("box requires x, y, w and h", nil)
	}
	return Box{
		Rect:   Rect{X: *raw.X, Y: *raw.Y, W: *raw.W, H: *raw.H},
		Canvas: Canvas{Width: raw.CanvasWidth, Height: raw.CanvasHeight},
	}, nil
}

func parseSegments(data []byte) (Spec, error) {
	var raw segmentsJSON
	if err := strictUnmarshal(data, &raw); err != nil {
		return nil, invalid("decode segments", err)
	}
	out := Segments{Canvas: Canvas{Width: raw.CanvasWidth, Height: raw.CanvasHeight}}
	for i, seg := range raw.List {
		if seg.Start == nil || seg.End == nil {
			return nil, invalid(fmt.Sprintf("segment %d requires start and end", i), nil)
		}
		pos, err := parsePosition(seg.Position)
		if err != nil {
			return nil, invalid(fmt.Sprintf("segment %d", i), err)
		}
		if seg.W > 0 {
			pos.W = seg.W
		}
		if seg.H > 0 {
			pos.H = seg.H
		}
		out.List = append(out.List, Segment{Start: *seg.Start, End: *seg.End, Position: pos})
	}
	return out, nil
}

func parsePosition(raw json.RawMessage) (Position, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Position{}, fmt.Errorf("missing position")
	}
	if raw[0] == '"' {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return Position{}, err
		}
		key, err := normalizePositionName(name)
		if err != nil {
			return Position{}, err
		}
		return Position{Name: key}, nil
	}
	var coords struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
		W float64  `json:"w"`
		H float64  `json:"h"`
	}
	if err := strictUnmarshal(raw, &coords); err != nil {
		return Position{}, err
	}
	if coords.X == nil || coords.Y == nil {
		return Position{}, fmt.Errorf("explicit position requires x and y")
	}
	return Position{X: *coords.X, Y: *coords.Y, W: coords.W, H: coords.H}, nil
}

func parseFreehand(data []byte) (Spec, error) {
	var raw freehandJSON
	if err := strictUnmarshal(data, &raw); err != nil {
		return nil, invalid("decode mask", err)
	}
	if raw.CanvasWidth <= 0 || raw.CanvasHeight <= 0 {
		return nil, invalid("mask requires positive canvasWidth and canvasHeight", nil)
	}
	out := Freehand{
		Canvas:             Canvas{Width: raw.CanvasWidth, Height: raw.CanvasHeight},
		ReferenceTimestamp: raw.ReferenceTimestamp,
		Image:              strings.TrimSpace(raw.Image),
	}
	for i, s := range raw.Strokes {
		width := s.BrushWidth
		switch {
		case width == 0:
			width = DefaultBrushWidth
		case width < 0:
			return nil, invalid(fmt.Sprintf("stroke %d has negative brushWidth", i), nil)
		}
		stroke := Stroke{BrushWidth: width}
		for j, p := range s.Points {
			pt, err := parsePoint(p)
			if err != nil {
				return nil, invalid(fmt.Sprintf("stroke %d point %d", i, j), err)
			}
			stroke.Points = append(stroke.Points, pt)
		}
		out.Strokes = append(out.Strokes, stroke)
	}
	return out, nil
}

// parsePoint accepts [x, y] or {"x": .., "y": ..}.
func parsePoint(raw json.RawMessage) (Point, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var pair []float64
		if err := json.Unmarshal(raw, &pair); err != nil {
			return Point{}, err
		}
		if len(pair) != 2 {
			return Point{}, fmt.Errorf("point needs 2 coordinates, got %d", len(pair))
		}
		return Point{X: pair[0], Y: pair[1]}, nil
	}
	var obj struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Point{}, err
	}
	if obj.X == nil || obj.Y == nil {
		return Point{}, fmt.Errorf("point requires x and y")
	}
	return Point{X: *obj.X, Y: *obj.Y}, nil
}

// strictUnmarshal rejects unknown fields so typos like "widht" surface.
// The "type" discriminator is always allowed.
func strictUnmarshal(data []byte, v any) error {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	delete(generic, "type")
	cleaned, err := json.Marshal(generic)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(cleaned))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func invalid(message string, err error) error {
	return services.Wrap(services.ErrValidation, "validating", "parse region", message, err)
}
