package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"eraser/internal/access"
	"eraser/internal/config"
	"eraser/internal/region"
	"eraser/internal/services"
)

// OutputSuffix is appended to the input stem for default output names.
const OutputSuffix = "_erased"

// Request describes one job.
type Request struct {
	InputPath string
	// OutputPath defaults to <output_dir>/<stem>_erased.mp4.
	OutputPath  string
	Region      region.Spec
	Quality     string
	Credentials access.Credentials
	// Workers overrides pipeline.workers when positive.
	Workers int
}

// Result summarises a job. Run returns a non-nil Result even on failure so
// callers can report the job id.
type Result struct {
	JobID      string
	State      State
	OutputPath string
	Frames     int
	// MaskSets counts the distinct active mask sets that were dilated.
	MaskSets int
	Elapsed  time.Duration
}

// DefaultOutputPath derives the output location for input.
func DefaultOutputPath(cfg *config.Config, input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(cfg.Paths.OutputDir, stem+OutputSuffix+".mp4")
}

func resolveOutputPath(cfg *config.Config, req Request) (string, error) {
	output := strings.TrimSpace(req.OutputPath)
	if output == "" {
		output = DefaultOutputPath(cfg, req.InputPath)
	}
	expanded, err := config.ExpandPath(output)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "validating", "resolve output", "", err)
	}
	output, err = filepath.Abs(expanded)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "validating", "resolve output", "", err)
	}
	input, err := filepath.Abs(req.InputPath)
	if err == nil && input == output {
		return "", services.Wrap(services.ErrValidation, "validating", "resolve output", "output would overwrite the input", nil)
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "validating", "resolve output", output+" is a directory", nil)
	}
	return output, nil
}

// outputLock serialises jobs writing the same output path.
type outputLock struct {
	path string
	lock *flock.Flock
}

func lockOutput(cfg *config.Config, output string) (*outputLock, error) {
	dir := filepath.Join(cfg.Paths.WorkDir, "locks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "validating", "lock output", "create lock directory", err)
	}
	name := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+output)).String() + ".lock"
	path := filepath.Join(dir, name)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "validating", "lock output", path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "validating", "lock output",
			fmt.Sprintf("another job is writing %s", output), nil)
	}
	return &outputLock{path: path, lock: lock}, nil
}

func (l *outputLock) release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
