package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeMask()
	c.normalizeInpaint()
	c.normalizePipeline()
	c.normalizeQuality()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.FFmpegBinary = strings.TrimSpace(c.FFmpeg.FFmpegBinary)
	if value, ok := os.LookupEnv("ERASER_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.FFmpeg.FFmpegBinary = strings.TrimSpace(value)
	}
	if c.FFmpeg.FFmpegBinary == "" {
		c.FFmpeg.FFmpegBinary = defaultFFmpegBinary
	}
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if value, ok := os.LookupEnv("ERASER_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.FFmpeg.FFprobeBinary = strings.TrimSpace(value)
	}
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeMask() {
	if c.Mask.DilateKernel <= 0 {
		c.Mask.DilateKernel = defaultDilateKernel
	}
	// Even kernels have no center pixel; round up to keep dilation symmetric.
	if c.Mask.DilateKernel%2 == 0 {
		c.Mask.DilateKernel++
	}
	if c.Mask.DilateIterations < 0 {
		c.Mask.DilateIterations = 0
	}
	if c.Mask.SegmentWidthRatio <= 0 {
		c.Mask.SegmentWidthRatio = defaultSegmentWidthRatio
	}
	if c.Mask.SegmentHeightRatio <= 0 {
		c.Mask.SegmentHeightRatio = defaultSegmentHeightRatio
	}
	if c.Mask.SegmentMarginRatio < 0 {
		c.Mask.SegmentMarginRatio = 0
	}
}

func (c *Config) normalizeInpaint() {
	c.Inpaint.Engine = strings.ToLower(strings.TrimSpace(c.Inpaint.Engine))
	if c.Inpaint.Engine == "" {
		c.Inpaint.Engine = defaultInpaintEngine
	}
	if c.Inpaint.Radius <= 0 {
		c.Inpaint.Radius = defaultInpaintRadius
	}
}

func (c *Config) normalizePipeline() {
	if value, ok := os.LookupEnv("ERASER_WORKERS"); ok {
		var workers int
		if _, err := fmt.Sscanf(strings.TrimSpace(value), "%d", &workers); err == nil && workers > 0 {
			c.Pipeline.Workers = workers
		}
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = runtime.NumCPU()
	}
}

func (c *Config) normalizeQuality() {
	c.Quality.Default = strings.ToLower(strings.TrimSpace(c.Quality.Default))
	if c.Quality.Default == "" {
		c.Quality.Default = defaultQuality
	}
	normalizeTier(&c.Quality.Standard, defaultStandardBitrate, defaultStandardPreset)
	normalizeTier(&c.Quality.High, defaultHighBitrate, defaultHighPreset)
}

func normalizeTier(t *Tier, bitrate, preset string) {
	t.Codec = strings.TrimSpace(t.Codec)
	if t.Codec == "" {
		t.Codec = defaultCodec
	}
	t.Bitrate = strings.ToLower(strings.TrimSpace(t.Bitrate))
	if t.Bitrate == "" {
		t.Bitrate = bitrate
	}
	t.Preset = strings.ToLower(strings.TrimSpace(t.Preset))
	if t.Preset == "" {
		t.Preset = preset
	}
	t.AudioCodec = strings.TrimSpace(t.AudioCodec)
	if t.AudioCodec == "" {
		t.AudioCodec = defaultAudioCodec
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
