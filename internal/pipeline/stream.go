package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"eraser/internal/logging"
	"eraser/internal/media/encode"
	"eraser/internal/media/frame"
	"eraser/internal/services"
)

// stream decodes, reconstructs and encodes every frame. Frames are handled
// in windows of j.workers; within a window reconstruction runs concurrently
// and results are written back in decode order. Cancellation is checked
// between windows.
func (j *job) stream(ctx context.Context) error {
	info := j.src.Info()
	sink, err := j.o.newEncoder(ctx, encode.Request{
		OutputPath:   j.result.OutputPath,
		SourcePath:   info.Path,
		Width:        info.Width,
		Height:       info.Height,
		FrameRate:    info.FrameRate,
		HasAudio:     info.HasAudio,
		Profile:      j.profile,
		FFmpegBinary: j.o.cfg.FFmpeg.FFmpegBinary,
		Logger:       j.logger,
	})
	if err != nil {
		return err
	}
	j.sink = sink

	sampler := logging.NewProgressSampler(10)
	window := make([]*frame.Frame, 0, j.workers)
	out := make([]*frame.Frame, j.workers)
	total := info.FrameCount
	done := 0

	for {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrCanceled, "streaming", "stream frames", "", err)
		}

		window = window[:0]
		eof := false
		for len(window) < j.workers {
			f, err := j.src.Next(ctx)
			if errors.Is(err, io.EOF) {
				eof = true
				break
			}
			if err != nil {
				return err
			}
			window = append(window, f)
		}

		if len(window) > 0 {
			if err := j.reconstruct(window, out[:len(window)]); err != nil {
				return err
			}
			for i := range window {
				if err := j.sink.WriteFrame(ctx, out[i]); err != nil {
					return err
				}
				out[i] = nil
			}
			done += len(window)
			j.result.Frames = done
			j.record.FramesDone = done
			if total = j.src.Info().FrameCount; total < done {
				total = done
			}
			j.o.observer.Progress(ctx, done, total)
			if sampler.ShouldLog(done, total) {
				j.logger.Info("streaming progress",
					logging.String(logging.FieldEventType, "stream_progress"),
					logging.Int("frames_done", done),
					logging.Int("frames_total", total),
					logging.Int("mask_sets", len(j.timeline.Distinct())),
				)
				j.record.FramesTotal = total
				j.persist(ctx)
			}
		}
		if eof {
			break
		}
	}

	if done == 0 {
		return services.Wrap(services.ErrDecode, "streaming", "decode", "source produced no frames", nil)
	}
	if missing := info.FrameCount - done; missing > 1 {
		return services.DecodeFailure(done, info.Timestamp(done),
			fmt.Errorf("source ended after %d of %d frames", done, info.FrameCount))
	}
	j.record.FramesTotal = total
	return nil
}

// reconstruct fills out[i] with the reconstruction of window[i].
func (j *job) reconstruct(window, out []*frame.Frame) error {
	var g errgroup.Group
	g.SetLimit(j.workers)
	for i, f := range window {
		g.Go(func() error {
			m := j.timeline.At(f.Timestamp)
			res, err := j.o.engine.Inpaint(f, m)
			if err != nil {
				return services.Wrap(services.ErrExternalTool, "streaming", "inpaint", j.o.engine.Name(),
					&services.FrameError{Index: f.Index, Timestamp: f.Timestamp, Err: err})
			}
			out[i] = res
			return nil
		})
	}
	return g.Wait()
}
