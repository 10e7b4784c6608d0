package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"eraser/internal/config"
	"eraser/internal/deps"
	"eraser/internal/inpaint"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBinaries converts dependency statuses into preflight results.
func CheckBinaries(cfg *config.Config) []Result {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		results = append(results, fromStatus(status))
	}
	return results
}

// CheckEncoders verifies every distinct codec referenced by a quality tier.
func CheckEncoders(ctx context.Context, cfg *config.Config) []Result {
	seen := map[string]struct{}{}
	var results []Result
	for _, tier := range []config.Tier{cfg.Quality.Standard, cfg.Quality.High} {
		if _, ok := seen[tier.Codec]; ok {
			continue
		}
		seen[tier.Codec] = struct{}{}
		results = append(results, fromStatus(deps.CheckEncoder(ctx, cfg.FFmpeg.FFmpegBinary, tier.Codec)))
	}
	return results
}

// CheckInpaintEngine reports whether the configured engine is compiled in.
func CheckInpaintEngine(cfg *config.Config) Result {
	const name = "Inpaint engine"
	if err := inpaint.Available(cfg.Inpaint.Engine); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (radius %d)", cfg.Inpaint.Engine, cfg.Inpaint.Radius)}
}

func fromStatus(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
	if result.Passed {
		result.Detail = status.Command
	}
	if !result.Passed && status.Optional {
		result.Detail += " (optional)"
	}
	return result
}
