package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"eraser/internal/access"
	"eraser/internal/config"
	"eraser/internal/inpaint"
	"eraser/internal/jobstore"
	"eraser/internal/logging"
	"eraser/internal/mask"
	"eraser/internal/media/encode"
	"eraser/internal/media/frame"
	"eraser/internal/media/source"
	"eraser/internal/region"
	"eraser/internal/services"
)

// FrameSource is an opened video delivering frames in presentation order.
type FrameSource interface {
	Info() source.Info
	Next(ctx context.Context) (*frame.Frame, error)
	Close() error
}

// FrameSink receives reconstructed frames in order.
type FrameSink interface {
	WriteFrame(ctx context.Context, f *frame.Frame) error
	Finish(ctx context.Context) (string, error)
	Abort()
}

// Opener opens the source video for a job.
type Opener func(ctx context.Context, path string) (FrameSource, error)

// EncoderFactory starts the output encoder for a job.
type EncoderFactory func(ctx context.Context, req encode.Request) (FrameSink, error)

// Orchestrator runs jobs. It holds no per-job state and may run several jobs
// concurrently against different outputs.
type Orchestrator struct {
	cfg        *config.Config
	logger     *slog.Logger
	auth       access.Authorizer
	resolver   mask.Resolver
	engine     inpaint.Engine
	open       Opener
	newEncoder EncoderFactory
	recorder   Recorder
	observer   Observer
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithAuthorizer sets the access check run before each job.
func WithAuthorizer(auth access.Authorizer) Option {
	return func(o *Orchestrator) { o.auth = auth }
}

// WithEngine replaces the configured inpainting engine.
func WithEngine(engine inpaint.Engine) Option {
	return func(o *Orchestrator) { o.engine = engine }
}

// WithOpener replaces the ffmpeg-backed source.
func WithOpener(open Opener) Option {
	return func(o *Orchestrator) { o.open = open }
}

// WithEncoderFactory replaces the ffmpeg-backed encoder.
func WithEncoderFactory(factory EncoderFactory) Option {
	return func(o *Orchestrator) { o.newEncoder = factory }
}

// WithRecorder persists job history.
func WithRecorder(recorder Recorder) Option {
	return func(o *Orchestrator) { o.recorder = recorder }
}

// WithObserver receives state transitions and progress.
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) { o.observer = observer }
}

// New builds an orchestrator from cfg.
func New(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "config is required", nil)
	}
	o := &Orchestrator{
		cfg:      cfg,
		resolver: mask.NewResolver(cfg),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.auth == nil {
		o.auth = access.AllowAll{}
	}
	if o.observer == nil {
		o.observer = NopObserver{}
	}
	if o.engine == nil {
		engine, err := inpaint.New(cfg.Inpaint.Engine, cfg.Inpaint.Radius)
		if err != nil {
			return nil, err
		}
		o.engine = engine
	}
	if o.open == nil {
		o.open = ffmpegOpener(cfg, o.logger)
	}
	if o.newEncoder == nil {
		o.newEncoder = ffmpegEncoder
	}
	return o, nil
}

func ffmpegOpener(cfg *config.Config, logger *slog.Logger) Opener {
	return func(ctx context.Context, path string) (FrameSource, error) {
		src, err := source.Open(ctx, path, source.Options{
			FFmpegBinary:  cfg.FFmpeg.FFmpegBinary,
			FFprobeBinary: cfg.FFmpeg.FFprobeBinary,
			Logger:        logging.WithContext(ctx, logger),
		})
		if err != nil {
			return nil, err
		}
		if err := src.Prime(ctx); err != nil {
			_ = src.Close()
			return nil, err
		}
		return src, nil
	}
}

func ffmpegEncoder(ctx context.Context, req encode.Request) (FrameSink, error) {
	enc, err := encode.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

// job is the per-run state threaded through the states.
type job struct {
	o       *Orchestrator
	req     Request
	record  *jobstore.Job
	result  *Result
	state   State
	logger  *slog.Logger
	started time.Time

	lock     *outputLock
	src      FrameSource
	sink     FrameSink
	timeline *mask.Timeline
	profile  encode.Profile
	workers  int
}

// Run executes req to completion. Validation failures return before any
// frame is decoded; streaming failures discard the partial output.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	id := uuid.NewString()
	ctx = services.WithJobID(ctx, id)
	j := &job{
		o:       o,
		req:     req,
		state:   StateIdle,
		started: time.Now(),
		result:  &Result{JobID: id, State: StateIdle},
		record: &jobstore.Job{
			ID:        id,
			InputPath: strings.TrimSpace(req.InputPath),
			Quality:   strings.ToLower(strings.TrimSpace(req.Quality)),
			User:      strings.TrimSpace(req.Credentials.User),
			State:     jobstore.StateValidating,
		},
	}
	if req.Region != nil {
		j.record.RegionKind = string(req.Region.Kind())
	}
	defer j.release()

	ctx = j.enter(ctx, StateValidating, nil)
	if o.recorder != nil {
		if err := o.recorder.CreateJob(ctx, j.record); err != nil {
			logging.WarnWithContext(j.logger, "job history unavailable", "job_record_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "job will not appear in history"),
			)
		}
	}

	steps := []struct {
		state State
		run   func(context.Context) error
	}{
		{StateValidating, j.validate},
		{StateResolving, j.resolve},
		{StateStreaming, j.stream},
		{StateFinalizing, j.finalize},
	}
	for _, step := range steps {
		if step.state != j.state {
			ctx = j.enter(ctx, step.state, nil)
		}
		if err := step.run(ctx); err != nil {
			return j.fail(ctx, err)
		}
	}

	ctx = j.enter(ctx, StateDone, nil)
	j.result.Elapsed = time.Since(j.started)
	j.logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("output", j.result.OutputPath),
		logging.Int("frames", j.result.Frames),
		logging.Int("mask_sets", j.result.MaskSets),
		logging.Duration("elapsed", j.result.Elapsed),
	)
	return j.result, nil
}

// enter moves the job to state, reporting the transition everywhere.
func (j *job) enter(ctx context.Context, to State, cause error) context.Context {
	from := j.state
	j.state = to
	j.result.State = to
	ctx = services.WithStage(ctx, string(to))
	j.logger = logging.WithContext(ctx, logging.NewComponentLogger(j.o.logger, "pipeline"))
	j.logger.Debug("state changed",
		logging.String(logging.FieldEventType, "state_transition"),
		logging.String("from", string(from)),
		logging.String("to", string(to)),
	)
	j.o.observer.StateChanged(ctx, Transition{JobID: j.result.JobID, From: from, To: to, At: time.Now(), Err: cause})
	if from != StateIdle {
		j.record.State = to.persisted()
		j.persist(ctx)
	}
	return ctx
}

func (j *job) persist(ctx context.Context) {
	if j.o.recorder == nil {
		return
	}
	if err := j.o.recorder.UpdateJob(context.WithoutCancel(ctx), j.record); err != nil {
		j.logger.Debug("job history update failed", logging.Error(err))
	}
}

func (j *job) fail(ctx context.Context, err error) (*Result, error) {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, services.ErrCanceled) {
		err = services.Wrap(services.ErrCanceled, string(j.state), "run job", "", err)
	}
	failedIn := j.state
	j.abortOutput()
	j.record.ErrorKind = services.Classify(err)
	if errors.Is(err, services.ErrCanceled) {
		j.record.ErrorKind = "canceled"
	}
	j.record.ErrorMessage = err.Error()
	j.enter(ctx, StateFailed, err)
	j.result.Elapsed = time.Since(j.started)

	attrs := []logging.Attr{
		logging.String("failed_state", string(failedIn)),
		logging.String("error_kind", j.record.ErrorKind),
		logging.Error(err),
	}
	var frameErr *services.FrameError
	if errors.As(err, &frameErr) {
		attrs = append(attrs, logging.Int(logging.FieldFrame, frameErr.Index))
	}
	if services.IsValidationPhase(err) {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, "check the input, region and credentials"))
	}
	if errors.Is(err, services.ErrCanceled) {
		attrs = append(attrs, logging.String(logging.FieldEventType, "job_canceled"))
		j.logger.Warn("job canceled", logging.Args(attrs...)...)
	} else {
		logging.ErrorWithContext(j.logger, "job failed", "job_failure", attrs...)
	}
	return j.result, err
}

func (j *job) validate(ctx context.Context) error {
	if err := j.o.auth.Authorize(ctx, j.req.Credentials); err != nil {
		return err
	}
	if j.req.Region == nil {
		return services.Wrap(services.ErrValidation, "validating", "check region", "region is required", nil)
	}
	if strings.TrimSpace(j.req.InputPath) == "" {
		return services.Wrap(services.ErrInput, "validating", "open source", "input path is required", nil)
	}
	profile, err := encode.ProfileFor(j.o.cfg, j.req.Quality)
	if err != nil {
		return err
	}
	j.profile = profile
	j.record.Quality = profile.Name

	output, err := resolveOutputPath(j.o.cfg, j.req)
	if err != nil {
		return err
	}
	j.result.OutputPath = output
	j.record.OutputPath = output

	lock, err := lockOutput(j.o.cfg, output)
	if err != nil {
		return err
	}
	j.lock = lock

	src, err := j.o.open(ctx, j.req.InputPath)
	if err != nil {
		return err
	}
	j.src = src
	info := src.Info()
	j.record.FramesTotal = info.FrameCount
	j.checkCompatibility(info)

	j.workers = j.req.Workers
	if j.workers <= 0 {
		j.workers = j.o.cfg.Pipeline.Workers
	}
	j.workers = max(1, j.workers)

	j.logger.Info("job validated",
		logging.String(logging.FieldEventType, "job_validated"),
		logging.String("input", info.Path),
		logging.String("output", output),
		logging.String("region", j.req.Region.Describe()),
		logging.String("tier", profile.Name),
		logging.String("resolution", fmt.Sprintf("%dx%d", info.Width, info.Height)),
		logging.String("frame_rate", info.FrameRate.String()),
		logging.Int("frames", info.FrameCount),
		logging.Int("workers", j.workers),
		logging.String("engine", j.o.engine.Name()),
	)
	return nil
}

// checkCompatibility warns when canvas coordinates were captured on a
// surface whose aspect ratio differs from the source.
func (j *job) checkCompatibility(info source.Info) {
	var canvas region.Canvas
	switch s := j.req.Region.(type) {
	case region.Box:
		canvas = s.Canvas
	case region.Segments:
		canvas = s.Canvas
	case region.Freehand:
		canvas = s.Canvas
		if s.ReferenceTimestamp > info.DurationSeconds && info.DurationSeconds > 0 {
			logging.WarnWithContext(j.logger, "reference frame lies beyond the end of the video", "reference_out_of_range",
				logging.Float64("reference_timestamp", s.ReferenceTimestamp),
				logging.Float64("duration", info.DurationSeconds),
			)
		}
	}
	if info.Rotation != 0 {
		logging.WarnWithContext(j.logger, "source carries display rotation", "rotated_source",
			logging.Int("rotation", info.Rotation),
			logging.String(logging.FieldImpact, "region coordinates apply to the stored, unrotated frame"),
		)
	}
	if canvas.IsZero() || info.Height == 0 {
		return
	}
	canvasAspect := canvas.Width / canvas.Height
	sourceAspect := float64(info.Width) / float64(info.Height)
	if math.Abs(canvasAspect/sourceAspect-1) > 0.01 {
		logging.WarnWithContext(j.logger, "canvas aspect ratio differs from source", "aspect_mismatch",
			logging.String("canvas", fmt.Sprintf("%gx%g", canvas.Width, canvas.Height)),
			logging.String("source", fmt.Sprintf("%dx%d", info.Width, info.Height)),
			logging.String(logging.FieldImpact, "region is stretched independently on each axis"),
		)
	}
}

func (j *job) resolve(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info := j.src.Info()
	timeline, err := j.o.resolver.Resolve(j.req.Region, mask.Geometry{
		Width:    info.Width,
		Height:   info.Height,
		Duration: info.DurationSeconds,
	})
	if err != nil {
		return err
	}
	j.timeline = timeline
	if j.logger.Enabled(ctx, slog.LevelDebug) {
		j.logger.Debug("mask timeline resolved",
			logging.Int("entries", timeline.Entries()),
			logging.Int("dilate_margin", j.o.resolver.Post.Margin()),
			logging.Rect("first_mask", timeline.Raw(0).Bounds()),
		)
	}
	return nil
}

func (j *job) finalize(ctx context.Context) error {
	output, err := j.sink.Finish(ctx)
	j.sink = nil
	if err != nil {
		return err
	}
	j.result.OutputPath = output
	j.record.OutputPath = output
	j.result.MaskSets = len(j.timeline.Distinct())

	if expected := j.src.Info().FrameCount; j.result.Frames != expected {
		logging.WarnWithContext(j.logger, "output frame count differs from source", "frame_count_mismatch",
			logging.Int("source_frames", expected),
			logging.Int("output_frames", j.result.Frames),
			logging.String(logging.FieldImpact, "within the one-frame tolerance"),
		)
	}
	return nil
}

func (j *job) abortOutput() {
	if j.sink != nil {
		j.sink.Abort()
		j.sink = nil
	}
}

// release frees everything the job holds. It runs on every exit path.
func (j *job) release() {
	j.abortOutput()
	if j.src != nil {
		if err := j.src.Close(); err != nil && j.logger != nil {
			j.logger.Debug("source close failed", logging.Error(err))
		}
		j.src = nil
	}
	if err := j.lock.release(); err != nil && j.logger != nil {
		j.logger.Debug("output lock release failed", logging.Error(err))
	}
}
