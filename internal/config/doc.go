// Package config loads, normalizes, and validates eraser configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ERASER_FFMPEG and ERASER_WORKERS. The Config type centralizes every knob the
// CLI and pipeline need: mask dilation, inpainting radius, worker counts, and
// the standard/high encode tiers.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
