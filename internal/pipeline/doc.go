// Package pipeline runs one reconstruction job from source to output.
//
// An Orchestrator walks each job through idle, validating, resolving,
// streaming, finalizing and done, or failed from any state. Validation
// authorizes the caller, selects the quality profile, locks the output path,
// opens the source and resolves nothing yet, so a rejected job never touches
// a frame. Streaming decodes frames in order, reconstructs them in bounded
// windows of pipeline.workers frames and writes them back in order.
package pipeline
