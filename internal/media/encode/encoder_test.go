package encode_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eraser/internal/config"
	"eraser/internal/media/encode"
	"eraser/internal/media/ffprobe"
	"eraser/internal/media/frame"
	"eraser/internal/services"
	"eraser/internal/testsupport"
)

// Copies stdin to the last argument, the output path.
const catToOutput = `for last; do :; done
cat > "$last"`

func newRequest(t *testing.T, cfg *config.Config, hasAudio bool) encode.Request {
	t.Helper()
	profile, err := encode.ProfileFor(cfg, "standard")
	require.NoError(t, err)
	return encode.Request{
		OutputPath:   filepath.Join(cfg.Paths.OutputDir, "clip_erased.mp4"),
		SourcePath:   filepath.Join(testsupport.BaseDir(cfg), "clip.mp4"),
		Width:        2,
		Height:       2,
		FrameRate:    ffprobe.Rational{Num: 30000, Den: 1001},
		HasAudio:     hasAudio,
		Profile:      profile,
		FFmpegBinary: cfg.FFmpeg.FFmpegBinary,
	}
}

func TestEncoderFinishRenamesTempIntoPlace(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFFmpegScript(catToOutput))
	req := newRequest(t, cfg, true)

	enc, err := encode.Start(context.Background(), req)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		f := frame.New(2, 2)
		f.Index = i
		require.NoError(t, enc.WriteFrame(context.Background(), f))
	}
	assert.Equal(t, 3, enc.Frames())

	out, err := enc.Finish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, req.OutputPath, out)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.EqualValues(t, 36, info.Size())
	assert.NoFileExists(t, encode.TempPath(req.OutputPath))

	enc.Abort()
	assert.FileExists(t, out, "Abort after Finish must not touch the output")
}

func TestEncoderFailureRemovesPartialOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFFmpegScript(`for last; do :; done
cat > "$last"
echo 'Unknown encoder libx264' >&2
exit 1`))
	req := newRequest(t, cfg, false)

	enc, err := encode.Start(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, enc.WriteFrame(context.Background(), frame.New(2, 2)))

	_, err = enc.Finish(context.Background())
	require.ErrorIs(t, err, services.ErrEncode)
	assert.Contains(t, err.Error(), "Unknown encoder")
	assert.NoFileExists(t, encode.TempPath(req.OutputPath))
	assert.NoFileExists(t, req.OutputPath)
}

func TestEncoderAbortRemovesPartialOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFFmpegScript(catToOutput))
	req := newRequest(t, cfg, false)

	enc, err := encode.Start(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, enc.WriteFrame(context.Background(), frame.New(2, 2)))
	enc.Abort()

	assert.NoFileExists(t, encode.TempPath(req.OutputPath))
	assert.NoFileExists(t, req.OutputPath)
	assert.ErrorIs(t, enc.WriteFrame(context.Background(), frame.New(2, 2)), services.ErrEncode)

	var nilEncoder *encode.Encoder
	nilEncoder.Abort()
}

func TestEncoderRejectsMismatchedFrame(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFFmpegScript(catToOutput))
	enc, err := encode.Start(context.Background(), newRequest(t, cfg, false))
	require.NoError(t, err)
	defer enc.Abort()

	err = enc.WriteFrame(context.Background(), frame.New(4, 4))
	assert.ErrorIs(t, err, services.ErrEncode)
}

func TestEncoderEmptyOutputIsEncodeError(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFFmpegScript(`for last; do :; done
cat > /dev/null
: > "$last"`))
	req := newRequest(t, cfg, false)
	enc, err := encode.Start(context.Background(), req)
	require.NoError(t, err)

	_, err = enc.Finish(context.Background())
	assert.ErrorIs(t, err, services.ErrEncode)
	assert.NoFileExists(t, encode.TempPath(req.OutputPath))
}

func TestStartRejectsInvalidGeometry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t, cfg, false)
	req.FrameRate = ffprobe.Rational{}
	_, err := encode.Start(context.Background(), req)
	assert.ErrorIs(t, err, services.ErrEncode)
}

func TestArgsPreserveRateAndAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t, cfg, true)
	args := encode.Args(req, "/out/.partial-clip_erased.mp4")
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-f rawvideo -pix_fmt rgb24 -s 2x2 -framerate 30000/1001 -i pipe:0")
	assert.Contains(t, joined, "-map 0:v:0 -map 1:a?")
	assert.Contains(t, joined, "-c:v libx264 -b:v 3000k -preset ultrafast")
	assert.Contains(t, joined, "-r 30000/1001")
	assert.Contains(t, joined, "-c:a copy")
	assert.Contains(t, joined, "-movflags +faststart")
	assert.Equal(t, "/out/.partial-clip_erased.mp4", args[len(args)-1])

	req.HasAudio = false
	joined = strings.Join(encode.Args(req, "/out/.partial-clip.mkv"), " ")
	assert.NotContains(t, joined, "1:a")
	assert.NotContains(t, joined, "-c:a")
	assert.NotContains(t, joined, "faststart")
}

func TestProfileFor(t *testing.T) {
	cfg := config.Default()

	high, err := encode.ProfileFor(&cfg, "HIGH")
	require.NoError(t, err)
	assert.Equal(t, encode.Profile{Name: "high", Codec: "libx264", Bitrate: "8000k", Preset: "medium", AudioCodec: "copy"}, high)

	def, err := encode.ProfileFor(&cfg, "")
	require.NoError(t, err)
	assert.Equal(t, encode.TierStandard, def.Name)
	assert.Equal(t, "ultrafast", def.Preset)

	_, err = encode.ProfileFor(&cfg, "ultra")
	assert.ErrorIs(t, err, services.ErrValidation)
}
