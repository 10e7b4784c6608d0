// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Rational: exact frame rates such as 30000/1001
//
// Inspect executes ffprobe and returns the parsed Result. Parse decodes a
// payload captured elsewhere.
package ffprobe
