package source

import (
	"fmt"
	"math"

	"eraser/internal/media/ffprobe"
)

// Info describes the opened video. It is read-only for the lifetime of a job.
type Info struct {
	Path            string
	Width           int
	Height          int
	FrameRate       ffprobe.Rational
	DurationSeconds float64
	FrameCount      int
	HasAudio        bool
	Codec           string
	SizeBytes       int64
	// Rotation is the display rotation in degrees. Frames are decoded in
	// stored orientation, so region coordinates apply before rotation.
	Rotation int
}

// FPS returns the frame rate as a float.
func (i Info) FPS() float64 {
	return i.FrameRate.Float64()
}

// Timestamp returns the nominal presentation time of frame index.
func (i Info) Timestamp(index int) float64 {
	if !i.FrameRate.Valid() {
		return 0
	}
	return float64(index) * float64(i.FrameRate.Den) / float64(i.FrameRate.Num)
}

// IndexAt returns the frame index nearest to t, clamped into the stream.
func (i Info) IndexAt(t float64) int {
	idx := int(math.Round(t * i.FPS()))
	if idx >= i.FrameCount {
		idx = i.FrameCount - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// InfoFromProbe derives stream metadata from an ffprobe result.
func InfoFromProbe(path string, result ffprobe.Result) (Info, error) {
	video, ok := result.VideoStream()
	if !ok {
		return Info{}, fmt.Errorf("no video stream")
	}
	if video.Width <= 0 || video.Height <= 0 {
		return Info{}, fmt.Errorf("invalid video dimensions %dx%d", video.Width, video.Height)
	}
	rate, ok := video.FrameRate()
	if !ok {
		return Info{}, fmt.Errorf("unknown frame rate (r_frame_rate=%q avg_frame_rate=%q)", video.RFrameRate, video.AvgFrameRate)
	}

	duration := video.DurationSeconds()
	if duration <= 0 {
		if d := result.DurationSeconds(); !math.IsNaN(d) && d > 0 {
			duration = d
		}
	}

	frames := video.FrameCount()
	if frames <= 0 && duration > 0 {
		frames = int(math.Round(duration * rate.Float64()))
	}
	if frames <= 0 {
		return Info{}, fmt.Errorf("cannot determine frame count")
	}
	if duration <= 0 {
		duration = float64(frames) / rate.Float64()
	}

	return Info{
		Path:            path,
		Width:           video.Width,
		Height:          video.Height,
		FrameRate:       rate,
		DurationSeconds: duration,
		FrameCount:      frames,
		HasAudio:        result.AudioStreamCount() > 0,
		Codec:           video.CodecName,
		SizeBytes:       result.SizeBytes(),
		Rotation:        video.Rotation(),
	}, nil
}
