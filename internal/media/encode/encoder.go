package encode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"eraser/internal/logging"
	"eraser/internal/media/ffprobe"
	"eraser/internal/media/frame"
	"eraser/internal/services"
)

// Request describes one output file.
type Request struct {
	OutputPath   string
	SourcePath   string
	Width        int
	Height       int
	FrameRate    ffprobe.Rational
	HasAudio     bool
	Profile      Profile
	FFmpegBinary string
	Logger       *slog.Logger
}

// Encoder streams rgb24 frames into an ffmpeg process writing a hidden temp
// file beside the final output.
type Encoder struct {
	req      Request
	tempPath string
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stderr   *bytes.Buffer
	logger   *slog.Logger
	frames   int
	closed   bool
}

// TempPath returns the in-progress path used for output.
func TempPath(output string) string {
	return filepath.Join(filepath.Dir(output), ".partial-"+filepath.Base(output))
}

// Start launches ffmpeg for req.
func Start(ctx context.Context, req Request) (*Encoder, error) {
	if req.Width <= 0 || req.Height <= 0 || !req.FrameRate.Valid() {
		return nil, services.Wrap(services.ErrEncode, "streaming", "start encoder", fmt.Sprintf("invalid geometry %dx%d@%s", req.Width, req.Height, req.FrameRate), nil)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return nil, services.Wrap(services.ErrEncode, "streaming", "start encoder", "empty output path", nil)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return nil, services.Wrap(services.ErrEncode, "streaming", "start encoder", "create output directory", err)
	}

	tempPath := TempPath(req.OutputPath)
	args := Args(req, tempPath)
	binary := strings.TrimSpace(req.FFmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrEncode, "streaming", "start encoder", "", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrEncode, "streaming", "start encoder", binary, err)
	}

	logger := logging.NewComponentLogger(req.Logger, "encoder")
	logger.Debug("encoder started",
		logging.String("temp_path", tempPath),
		logging.String("tier", req.Profile.Name),
		logging.String("args", strings.Join(args, " ")),
	)
	return &Encoder{req: req, tempPath: tempPath, cmd: cmd, stdin: stdin, stderr: stderr, logger: logger}, nil
}

// WriteFrame sends one frame to the encoder. Frames must arrive in order.
func (e *Encoder) WriteFrame(ctx context.Context, f *frame.Frame) error {
	if e.closed {
		return services.Wrap(services.ErrEncode, "streaming", "write frame", "encoder closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.Width != e.req.Width || f.Height != e.req.Height {
		return services.Wrap(services.ErrEncode, "streaming", "write frame",
			fmt.Sprintf("frame %d is %dx%d, encoder expects %dx%d", f.Index, f.Width, f.Height, e.req.Width, e.req.Height), nil)
	}
	if _, err := e.stdin.Write(f.Pix); err != nil {
		return services.Wrap(services.ErrEncode, "streaming", "write frame", e.detail(), err)
	}
	e.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (e *Encoder) Frames() int {
	return e.frames
}

// Finish flushes the encoder, waits for ffmpeg, and moves the temp file into
// place. On any failure the temp file is removed.
func (e *Encoder) Finish(ctx context.Context) (string, error) {
	if e.closed {
		return "", services.Wrap(services.ErrEncode, "finalizing", "finish encoder", "encoder closed", nil)
	}
	e.closed = true

	if err := e.stdin.Close(); err != nil {
		e.cleanup()
		return "", services.Wrap(services.ErrEncode, "finalizing", "close encoder input", "", err)
	}
	if err := e.cmd.Wait(); err != nil {
		e.cleanup()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", services.Wrap(services.ErrEncode, "finalizing", "ffmpeg", e.detail(), err)
	}
	info, err := os.Stat(e.tempPath)
	if err != nil {
		return "", services.Wrap(services.ErrEncode, "finalizing", "ffmpeg", "no output produced", err)
	}
	if info.Size() == 0 {
		e.cleanup()
		return "", services.Wrap(services.ErrEncode, "finalizing", "ffmpeg", "empty output", nil)
	}
	if err := os.Rename(e.tempPath, e.req.OutputPath); err != nil {
		e.cleanup()
		return "", services.Wrap(services.ErrEncode, "finalizing", "move output", e.req.OutputPath, err)
	}

	e.logger.Debug("encoder finished",
		logging.String("output", e.req.OutputPath),
		logging.Int("frames", e.frames),
		logging.Int64("bytes", info.Size()),
	)
	return e.req.OutputPath, nil
}

// Abort stops ffmpeg and removes any partial output. Safe to call after
// Finish or on a nil Encoder.
func (e *Encoder) Abort() {
	if e == nil || e.closed {
		return
	}
	e.closed = true
	_ = e.stdin.Close()
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	_ = e.cmd.Wait()
	e.cleanup()
}

func (e *Encoder) cleanup() {
	if err := os.Remove(e.tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.logger.Debug("remove partial output failed", logging.String("path", e.tempPath), logging.Error(err))
	}
}

func (e *Encoder) detail() string {
	msg := strings.TrimSpace(e.stderr.String())
	if len(msg) > 512 {
		msg = msg[len(msg)-512:]
	}
	return msg
}

// Args builds the ffmpeg command line that encodes rawvideo from stdin into
// tempPath, copying audio from the source when present.
func Args(req Request, tempPath string) []string {
	rate := req.FrameRate.String()
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"-s", strconv.Itoa(req.Width) + "x" + strconv.Itoa(req.Height),
		"-framerate", rate,
		"-i", "pipe:0",
	}
	if req.HasAudio {
		args = append(args, "-i", req.SourcePath)
	}
	args = append(args, "-map", "0:v:0")
	if req.HasAudio {
		args = append(args, "-map", "1:a?")
	}
	args = append(args, "-c:v", req.Profile.Codec)
	if req.Profile.Bitrate != "" {
		args = append(args, "-b:v", req.Profile.Bitrate)
	}
	if req.Profile.Preset != "" {
		args = append(args, "-preset", req.Profile.Preset)
	}
	args = append(args, "-pix_fmt", "yuv420p", "-r", rate)
	if req.HasAudio {
		audio := req.Profile.AudioCodec
		if audio == "" {
			audio = "copy"
		}
		args = append(args, "-c:a", audio)
	}
	switch strings.ToLower(filepath.Ext(tempPath)) {
	case ".mp4", ".mov", ".m4v":
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, tempPath)
}
