package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// probeArgs asks for every stream plus container metadata as JSON.
var probeArgs = []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json"}

// Result is the decoded ffprobe report for one file.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream holds the per-stream fields eraser reads. Numeric fields that
// ffprobe reports as strings stay strings and are parsed by accessors.
type Stream struct {
	Index        int               `json:"index"`
	CodecName    string            `json:"codec_name"`
	CodecType    string            `json:"codec_type"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	PixFmt       string            `json:"pix_fmt"`
	RFrameRate   string            `json:"r_frame_rate"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	NBFrames     string            `json:"nb_frames"`
	Duration     string            `json:"duration"`
	SampleRate   string            `json:"sample_rate"`
	Channels     int               `json:"channels"`
	Tags         map[string]string `json:"tags"`
	SideData     []SideData        `json:"side_data_list"`
}

// SideData is a stream side-data entry. Only the display matrix rotation is
// decoded.
type SideData struct {
	Type     string  `json:"side_data_type"`
	Rotation float64 `json:"rotation"`
}

// Format is the container section.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

// Inspect runs binary (default "ffprobe") on path.
func Inspect(ctx context.Context, binary, path string) (Result, error) {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	if path = strings.TrimSpace(path); path == "" {
		return Result{}, errors.New("ffprobe: empty path")
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, append(append([]string(nil), probeArgs...), "--", path)...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return Result{}, fmt.Errorf("ffprobe: %w: %s", err, detail)
		}
		return Result{}, fmt.Errorf("ffprobe: %w", err)
	}
	return Parse(out)
}

// Parse decodes a captured ffprobe JSON report.
func Parse(payload []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe: decode report: %w", err)
	}
	return result, nil
}

// VideoStream returns the first video stream.
func (r Result) VideoStream() (Stream, bool) {
	for _, s := range r.Streams {
		if s.is("video") {
			return s, true
		}
	}
	return Stream{}, false
}

// AudioStreamCount reports how many audio streams the container holds.
func (r Result) AudioStreamCount() int {
	n := 0
	for _, s := range r.Streams {
		if s.is("audio") {
			n++
		}
	}
	return n
}

// DurationSeconds is the container duration: 0 when absent, NaN when
// unparsable.
func (r Result) DurationSeconds() float64 {
	return number(r.Format.Duration)
}

// SizeBytes is the container size, or 0 when absent or invalid.
func (r Result) SizeBytes() int64 {
	size := number(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

func (s Stream) is(kind string) bool {
	return strings.EqualFold(s.CodecType, kind)
}

// FrameRate prefers r_frame_rate and falls back to avg_frame_rate.
func (s Stream) FrameRate() (Rational, bool) {
	for _, candidate := range [...]string{s.RFrameRate, s.AvgFrameRate} {
		if rate, err := ParseRational(candidate); err == nil && rate.Valid() {
			return rate, true
		}
	}
	return Rational{}, false
}

// FrameCount is nb_frames, or 0 when the container does not record it.
func (s Stream) FrameCount() int {
	n, err := strconv.Atoi(strings.TrimSpace(s.NBFrames))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// DurationSeconds is the stream duration, or 0 when absent or invalid.
func (s Stream) DurationSeconds() float64 {
	d := number(s.Duration)
	if math.IsNaN(d) || d < 0 {
		return 0
	}
	return d
}

// Rotation returns the display rotation in degrees normalized to [0, 360).
// Newer ffprobe builds report it as display matrix side data; older ones as
// a "rotate" tag.
func (s Stream) Rotation() int {
	degrees := 0.0
	for _, sd := range s.SideData {
		if strings.EqualFold(sd.Type, "Display Matrix") {
			degrees = sd.Rotation
			break
		}
	}
	if degrees == 0 {
		if tag, ok := s.Tags["rotate"]; ok {
			if v, err := strconv.ParseFloat(strings.TrimSpace(tag), 64); err == nil {
				degrees = v
			}
		}
	}
	normalized := int(math.Round(degrees)) % 360
	if normalized < 0 {
		normalized += 360
	}
	return normalized
}

func number(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
