// Package preflight provides readiness checks for the directories, binaries,
// and encoders the eraser pipeline depends on.
//
// The "eraser doctor" command prints every result; "eraser run" executes the
// same checks up front and refuses to start a job when a required check fails,
// so a missing encoder surfaces before any frame is decoded.
package preflight
