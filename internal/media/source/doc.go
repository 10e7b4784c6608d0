// Package source opens video files and streams their frames as packed rgb24.
//
// Metadata comes from ffprobe. Sequential decoding runs a single ffmpeg
// process in constant-frame-rate mode, capped at the probed frame count, and
// reads fixed-size frames from its stdout. Seek runs a separate one-shot
// ffmpeg invocation and does not disturb the sequential stream.
package source
