package preflight

import (
	"context"

	"eraser/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every readiness check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	binaries := CheckBinaries(cfg)
	results = append(results, binaries...)

	// Encoder listing needs a runnable ffmpeg.
	if len(binaries) > 0 && binaries[0].Passed {
		results = append(results, CheckEncoders(ctx, cfg)...)
	}

	results = append(results, CheckInpaintEngine(cfg))
	return results
}

// RunQuick executes the checks that do not spawn external processes. It
// gates each job; RunAll additionally lists the ffmpeg encoders.
func RunQuick(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}
	results = append(results, CheckBinaries(cfg)...)
	return append(results, CheckInpaintEngine(cfg))
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
