// Package logging assembles structured slog loggers for the eraser CLI.
//
// It owns the console and JSON handlers, a tee that mirrors console output
// into the JSON log file, and context-aware helpers so pipeline code tags
// every record with the job ID and current state. A no-op logger is provided
// for tests and wiring code that cannot fail.
package logging
