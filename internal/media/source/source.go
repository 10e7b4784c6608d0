package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"eraser/internal/logging"
	"eraser/internal/media/ffprobe"
	"eraser/internal/media/frame"
	"eraser/internal/services"
)

// waitDelay bounds how long Close waits for a killed decoder's output pipes.
const waitDelay = 5 * time.Second

// Options configures the external binaries used to read media.
type Options struct {
	FFmpegBinary  string
	FFprobeBinary string
	Logger        *slog.Logger
}

// Source is an opened video. Callers must Close it.
type Source struct {
	opts   Options
	info   Info
	logger *slog.Logger

	cmd     *exec.Cmd
	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	reader  *bufio.Reader
	pending *frame.Frame
	next    int
	done    bool
}

// Open probes path and returns a handle ready for sequential decoding.
func Open(ctx context.Context, path string, opts Options) (*Source, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrInput, "validating", "open source", "empty path", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "validating", "open source", path, err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrInput, "validating", "open source", path+" is a directory", nil)
	}

	result, err := ffprobe.Inspect(ctx, opts.FFprobeBinary, path)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "validating", "probe source", path, err)
	}
	meta, err := InfoFromProbe(path, result)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "validating", "probe source", path, err)
	}

	logger := logging.NewComponentLogger(opts.Logger, "source")
	logger.Debug("source opened",
		logging.String("path", path),
		logging.Int("width", meta.Width),
		logging.Int("height", meta.Height),
		logging.String("frame_rate", meta.FrameRate.String()),
		logging.Int("frames", meta.FrameCount),
		logging.Bool("audio", meta.HasAudio),
	)
	return &Source{opts: opts, info: meta, logger: logger}, nil
}

// Info returns the probed metadata.
func (s *Source) Info() Info {
	return s.info
}

// Prime starts the decoder and pulls the first frame, which the next call to
// Next returns. A stream ffprobe accepts but ffmpeg cannot decode fails here
// as an input error.
func (s *Source) Prime(ctx context.Context) error {
	if s.pending != nil || s.next > 0 || s.info.FrameCount == 0 {
		return nil
	}
	f, err := s.Next(ctx)
	if err != nil {
		var frameErr *services.FrameError
		switch {
		case errors.Is(err, io.EOF):
			err = errors.New("decoder produced no frames")
		case errors.As(err, &frameErr):
			err = frameErr.Err
		}
		return services.Wrap(services.ErrInput, "validating", "decode first frame", s.info.Path, err)
	}
	s.pending = f
	return nil
}

// Next returns the next frame in presentation order, or io.EOF once every
// frame has been delivered. A decoder that stops more than one frame short of
// the probed count is a decode error at the first missing frame.
func (s *Source) Next(ctx context.Context) (*frame.Frame, error) {
	if f := s.pending; f != nil {
		s.pending = nil
		return f, nil
	}
	if s.done || s.next >= s.info.FrameCount {
		return nil, s.finish()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.cmd == nil {
		if err := s.start(ctx); err != nil {
			return nil, err
		}
	}

	index := s.next
	timestamp := s.info.Timestamp(index)
	f := frame.New(s.info.Width, s.info.Height)
	f.Index = index
	f.Timestamp = timestamp

	if _, err := io.ReadFull(s.reader, f.Pix); err != nil {
		if errors.Is(err, io.EOF) {
			if waitErr := s.wait(); waitErr != nil {
				return nil, services.DecodeFailure(index, timestamp, waitErr)
			}
			if missing := s.info.FrameCount - index; missing > 1 {
				return nil, services.DecodeFailure(index, timestamp,
					fmt.Errorf("decoder ended after %d of %d frames", index, s.info.FrameCount))
			}
			// Container frame counts can overstate by one.
			logging.WarnWithContext(s.logger, "decoder ended one frame before reported count", "short_stream",
				logging.Int("expected_frames", s.info.FrameCount),
				logging.Int("decoded_frames", index),
				logging.String(logging.FieldImpact, "output will be one frame shorter than the container reports"),
			)
			return nil, io.EOF
		}
		waitErr := s.wait()
		if waitErr != nil {
			err = fmt.Errorf("%w (%v)", err, waitErr)
		}
		return nil, services.DecodeFailure(index, timestamp, err)
	}
	s.next++
	return f, nil
}

// Seek decodes the single frame nearest to t seconds. It does not affect the
// sequential position.
func (s *Source) Seek(ctx context.Context, t float64) (*frame.Frame, error) {
	if t < 0 {
		t = 0
	}
	if t > s.info.DurationSeconds {
		t = s.info.DurationSeconds
	}
	index := s.info.IndexAt(t)
	// Seeking to the exact end lands past the last decodable frame.
	t = s.info.Timestamp(index)

	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-noautorotate",
		"-ss", strconv.FormatFloat(t, 'f', 6, 64),
		"-i", s.info.Path,
		"-map", "0:v:0",
		"-frames:v", "1",
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, ffmpegBinary(s.opts), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, services.DecodeFailure(index, t, fmt.Errorf("ffmpeg seek: %w: %s", err, strings.TrimSpace(stderr.String())))
	}
	want := frame.Size(s.info.Width, s.info.Height)
	if len(out) != want {
		return nil, services.DecodeFailure(index, t, fmt.Errorf("ffmpeg seek: got %d bytes, want %d", len(out), want))
	}
	return &frame.Frame{Width: s.info.Width, Height: s.info.Height, Index: index, Timestamp: t, Pix: out}, nil
}

// Close stops the decoder. It is safe on a nil or partially opened Source and
// may be called more than once.
func (s *Source) Close() error {
	if s == nil || s.cmd == nil || s.done {
		return nil
	}
	s.done = true
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}

func (s *Source) start(ctx context.Context) error {
	args := DecodeArgs(s.info)
	cmd := exec.CommandContext(ctx, ffmpegBinary(s.opts), args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrDecode, "streaming", "start decoder", "", err)
	}
	s.stderr = &bytes.Buffer{}
	cmd.Stderr = s.stderr
	cmd.WaitDelay = waitDelay
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrDecode, "streaming", "start decoder", ffmpegBinary(s.opts), err)
	}
	s.logger.Debug("decoder started", logging.String("args", strings.Join(args, " ")))
	s.cmd = cmd
	s.stdout = stdout
	s.reader = bufio.NewReaderSize(stdout, frame.Size(s.info.Width, s.info.Height))
	return nil
}

// finish reaps the decoder after the final frame.
func (s *Source) finish() error {
	if s.cmd != nil && !s.done {
		if err := s.wait(); err != nil {
			return services.DecodeFailure(s.next, s.info.Timestamp(s.next), err)
		}
	}
	s.done = true
	return io.EOF
}

func (s *Source) wait() error {
	s.done = true
	// Drain so ffmpeg is not blocked writing frames beyond the cap.
	_, _ = io.Copy(io.Discard, s.stdout)
	if err := s.cmd.Wait(); err != nil {
		if detail := strings.TrimSpace(s.stderr.String()); detail != "" {
			return fmt.Errorf("ffmpeg decode: %w: %s", err, detail)
		}
		return fmt.Errorf("ffmpeg decode: %w", err)
	}
	return nil
}

// DecodeArgs builds the ffmpeg arguments for sequential rgb24 decoding.
func DecodeArgs(info Info) []string {
	rate := info.FrameRate.String()
	return []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-noautorotate",
		"-i", info.Path,
		"-map", "0:v:0",
		"-fps_mode", "cfr", "-r", rate,
		"-frames:v", strconv.Itoa(info.FrameCount),
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"pipe:1",
	}
}

func ffmpegBinary(opts Options) string {
	if b := strings.TrimSpace(opts.FFmpegBinary); b != "" {
		return b
	}
	return "ffmpeg"
}
