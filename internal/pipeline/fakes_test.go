package pipeline_test

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"eraser/internal/mask"
	"eraser/internal/media/encode"
	"eraser/internal/media/ffprobe"
	"eraser/internal/media/frame"
	"eraser/internal/media/source"
	"eraser/internal/pipeline"
	"eraser/internal/services"
)

// sourcePixel is the deterministic content of fake frames.
func sourcePixel(index, x, y int) (byte, byte, byte) {
	return byte(x + index), byte(y), byte(x ^ y)
}

type fakeSource struct {
	info   source.Info
	failAt int
	stopAt int
	next   int
	reads  int
	closed bool
}

func newFakeSource(width, height, frames int) *fakeSource {
	return &fakeSource{
		failAt: -1,
		stopAt: -1,
		info: source.Info{
			Path:            "/videos/input.mp4",
			Width:           width,
			Height:          height,
			FrameRate:       ffprobe.Rational{Num: 30, Den: 1},
			DurationSeconds: float64(frames) / 30,
			FrameCount:      frames,
			HasAudio:        true,
			Codec:           "h264",
		},
	}
}

func (s *fakeSource) Info() source.Info { return s.info }

func (s *fakeSource) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= s.info.FrameCount || s.next == s.stopAt {
		return nil, io.EOF
	}
	index := s.next
	ts := s.info.Timestamp(index)
	if index == s.failAt {
		return nil, services.DecodeFailure(index, ts, io.ErrUnexpectedEOF)
	}
	s.reads++
	f := frame.New(s.info.Width, s.info.Height)
	f.Index = index
	f.Timestamp = ts
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			o := f.Offset(x, y)
			f.Pix[o], f.Pix[o+1], f.Pix[o+2] = sourcePixel(index, x, y)
		}
	}
	s.next++
	return f, nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func openerFor(src *fakeSource) pipeline.Opener {
	return func(context.Context, string) (pipeline.FrameSource, error) {
		return src, nil
	}
}

// fakeSink checks each frame as it arrives instead of retaining it.
type fakeSink struct {
	mu       sync.Mutex
	req      encode.Request
	check    func(f *frame.Frame)
	indexes  []int
	started  bool
	finished bool
	aborted  bool
}

func (s *fakeSink) factory() pipeline.EncoderFactory {
	return func(_ context.Context, req encode.Request) (pipeline.FrameSink, error) {
		s.mu.Lock()
		s.req = req
		s.started = true
		s.mu.Unlock()
		return s, nil
	}
}

func (s *fakeSink) WriteFrame(ctx context.Context, f *frame.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes = append(s.indexes, f.Index)
	if s.check != nil {
		s.check(f)
	}
	return nil
}

func (s *fakeSink) Finish(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
	if err := os.WriteFile(s.req.OutputPath, []byte("video"), 0o644); err != nil {
		return "", err
	}
	return s.req.OutputPath, nil
}

func (s *fakeSink) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
}

// paintEngine marks every masked pixel magenta so tests can see exactly
// which pixels were reconstructed.
type paintEngine struct {
	delay func(index int) time.Duration
}

func (paintEngine) Name() string { return "paint" }

func (e paintEngine) Inpaint(f *frame.Frame, m *mask.Mask) (*frame.Frame, error) {
	if e.delay != nil {
		time.Sleep(e.delay(f.Index))
	}
	if m.Empty() {
		return f, nil
	}
	out := f.Clone()
	for i, v := range m.Pix {
		if v != 0 {
			o := i * frame.BytesPerPixel
			out.Pix[o], out.Pix[o+1], out.Pix[o+2] = 255, 0, 255
		}
	}
	return out, nil
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions []pipeline.Transition
	progress    []int
	onProgress  func(done int)
}

func (o *recordingObserver) StateChanged(_ context.Context, t pipeline.Transition) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, t)
}

func (o *recordingObserver) Progress(_ context.Context, done, _ int) {
	o.mu.Lock()
	o.progress = append(o.progress, done)
	o.mu.Unlock()
	if o.onProgress != nil {
		o.onProgress(done)
	}
}

func (o *recordingObserver) states() []pipeline.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	states := make([]pipeline.State, 0, len(o.transitions))
	for _, t := range o.transitions {
		states = append(states, t.To)
	}
	return states
}
