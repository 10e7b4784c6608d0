package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var validPresets = map[string]struct{}{
	"ultrafast": {}, "superfast": {}, "veryfast": {}, "faster": {}, "fast": {},
	"medium": {}, "slow": {}, "slower": {}, "veryslow": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMask(); err != nil {
		return err
	}
	if err := c.validateInpaint(); err != nil {
		return err
	}
	if err := c.validateQuality(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMask() error {
	if c.Mask.DilateKernel < 1 {
		return errors.New("mask.dilate_kernel must be positive")
	}
	if c.Mask.SegmentWidthRatio > 1 || c.Mask.SegmentHeightRatio > 1 {
		return errors.New("mask.segment_width_ratio and mask.segment_height_ratio must not exceed 1")
	}
	if c.Mask.SegmentMarginRatio >= 0.5 {
		return errors.New("mask.segment_margin_ratio must be below 0.5")
	}
	return nil
}

func (c *Config) validateInpaint() error {
	switch c.Inpaint.Engine {
	case "telea", "opencv":
	default:
		return fmt.Errorf("inpaint.engine: unsupported value %q (use telea or opencv)", c.Inpaint.Engine)
	}
	if c.Inpaint.Radius > 64 {
		return errors.New("inpaint.radius must be at most 64 pixels")
	}
	return nil
}

func (c *Config) validateQuality() error {
	if _, ok := c.TierFor(c.Quality.Default); !ok {
		return fmt.Errorf("quality.default: unknown tier %q", c.Quality.Default)
	}
	for name, tier := range map[string]Tier{"standard": c.Quality.Standard, "high": c.Quality.High} {
		if _, ok := validPresets[tier.Preset]; !ok {
			return fmt.Errorf("quality.%s.preset: unsupported value %q", name, tier.Preset)
		}
		if _, err := ParseBitrate(tier.Bitrate); err != nil {
			return fmt.Errorf("quality.%s.bitrate: %w", name, err)
		}
	}
	standard, _ := ParseBitrate(c.Quality.Standard.Bitrate)
	high, _ := ParseBitrate(c.Quality.High.Bitrate)
	if high <= standard {
		return errors.New("quality.high.bitrate must exceed quality.standard.bitrate")
	}
	return nil
}

// ParseBitrate converts an ffmpeg-style bitrate ("3000k", "8M", "640000") to bits per second.
func ParseBitrate(value string) (int64, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return 0, errors.New("empty bitrate")
	}
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(trimmed, "k"):
		multiplier = 1_000
		trimmed = strings.TrimSuffix(trimmed, "k")
	case strings.HasSuffix(trimmed, "m"):
		multiplier = 1_000_000
		trimmed = strings.TrimSuffix(trimmed, "m")
	}
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid bitrate %q", value)
	}
	return int64(n * float64(multiplier)), nil
}
