package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"eraser/internal/config"
	"eraser/internal/jobstore"
	"eraser/internal/testsupport"
)

const (
	stubWidth  = 16
	stubHeight = 12
	stubFrames = 12
)

// stubDecoder emits blank rgb24 frames for decode calls and copies stdin to
// the last argument for encode calls.
var stubDecoder = strings.Join([]string{
	`case "$*" in`,
	`*pipe:1*) head -c ` + strconv.Itoa(testsupport.RawVideoBytes(stubWidth, stubHeight, stubFrames)) + ` /dev/zero ;;`,
	`*) for last; do :; done; cat > "$last" ;;`,
	`esac`,
}, "\n")

const boxRegion = `{"type":"box","x":2,"y":2,"w":6,"h":4}`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	input      string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))

	opts = append([]testsupport.ConfigOption{
		testsupport.WithFFprobeScript(testsupport.EchoScript(testsupport.ProbeJSON(stubWidth, stubHeight, "30/1", stubFrames, 0.4, false))),
		testsupport.WithFFmpegScript(stubDecoder),
		testsupport.WithWorkers(2),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"

	configPath := filepath.Join(base, "eraser.toml")
	writeTestConfig(t, configPath, cfg)

	input := filepath.Join(base, "clip.mp4")
	testsupport.WriteFile(t, input, 1024)

	return &cliTestEnv{cfg: cfg, configPath: configPath, input: input}
}

func runCLI(t *testing.T, args []string, configPath string, stdin io.Reader) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitShowAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration OK")
	requireContains(t, out, env.configPath)

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[quality.high]")
	requireContains(t, out, env.cfg.Paths.WorkDir)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", nil)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", nil); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", nil); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestProbeCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"probe", env.input}, env.configPath, nil)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	requireContains(t, out, "16x12")
	requireContains(t, out, "30/1")
	requireContains(t, out, "h264")
}

func TestProbeMissingInput(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"probe", filepath.Join(t.TempDir(), "missing.mp4")}, env.configPath, nil)
	if err == nil {
		t.Fatal("expected error for missing input")
	}
	requireContains(t, err.Error(), "input error")
}

func TestRunCommandWritesOutputAndRecordsJob(t *testing.T) {
	env := setupCLITestEnv(t)

	out, errOut, err := runCLI(t, []string{"run", env.input, "--region", boxRegion}, env.configPath, nil)
	if err != nil {
		t.Fatalf("run: %v (stderr: %s)", err, errOut)
	}
	requireContains(t, out, "clip_erased.mp4")
	requireContains(t, out, "12 frames")
	requireContains(t, errOut, "Done")

	output := filepath.Join(env.cfg.Paths.OutputDir, "clip_erased.mp4")
	info, err := os.Stat(output)
	if err != nil {
		t.Fatalf("expected output at %s: %v", output, err)
	}
	if want := int64(testsupport.RawVideoBytes(stubWidth, stubHeight, stubFrames)); info.Size() != want {
		t.Fatalf("output size = %d, want %d", info.Size(), want)
	}

	out, _, err = runCLI(t, []string{"jobs", "list"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "Done")
	requireContains(t, out, "12/12")

	store := testsupport.MustOpenStore(t, env.cfg)
	jobs, err := store.ListJobs(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	store.Close()

	out, _, err = runCLI(t, []string{"jobs", "show", jobs[0].ID[:8]}, env.configPath, nil)
	if err != nil {
		t.Fatalf("jobs show: %v", err)
	}
	requireContains(t, out, jobs[0].ID)
	requireContains(t, out, "box")
}

func TestRunCommandRejectsEmptyRegion(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"run", env.input, "--region", `{"type":"box","x":2,"y":2,"w":0,"h":4}`}, env.configPath, nil)
	if err == nil {
		t.Fatal("expected empty box to fail")
	}
	requireContains(t, err.Error(), "mask error")

	if _, statErr := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, "clip_erased.mp4")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output, stat err = %v", statErr)
	}

	out, _, err := runCLI(t, []string{"jobs", "list", "--state", "failed"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "Failed")
}

func TestRunCommandRequiresRegion(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"run", env.input}, env.configPath, nil); err == nil {
		t.Fatal("expected missing --region to fail")
	}
}

func TestRunWithAccessControl(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithAccess(true))

	t.Setenv(passwordEnv, "hunter2")
	out, _, err := runCLI(t, []string{"users", "add", "alice"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("users add: %v", err)
	}
	requireContains(t, out, "User alice saved")

	out, _, err = runCLI(t, []string{"users", "list"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("users list: %v", err)
	}
	requireContains(t, out, "alice")

	if _, _, err := runCLI(t, []string{"run", env.input, "--region", boxRegion}, env.configPath, nil); err == nil {
		t.Fatal("expected run without --user to fail")
	}

	t.Setenv(passwordEnv, "wrong")
	_, _, err = runCLI(t, []string{"run", env.input, "--region", boxRegion, "--user", "alice"}, env.configPath, nil)
	if err == nil {
		t.Fatal("expected wrong password to fail")
	}
	requireContains(t, err.Error(), "unauthorized")

	t.Setenv(passwordEnv, "hunter2")
	if _, errOut, err := runCLI(t, []string{"run", env.input, "--region", boxRegion, "--user", "alice"}, env.configPath, nil); err != nil {
		t.Fatalf("authorized run: %v (stderr: %s)", err, errOut)
	}

	store := testsupport.MustOpenStore(t, env.cfg)
	done, err := store.ListJobs(context.Background(), 0, jobstore.StateDone)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(done) != 1 || done[0].User != "alice" {
		t.Fatalf("expected one finished job for alice, got %+v", done)
	}
}

func TestUsersAddReadsPasswordFromStdin(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv(passwordEnv, "")
	os.Unsetenv(passwordEnv)

	out, _, err := runCLI(t, []string{"users", "add", "bob"}, env.configPath, strings.NewReader("s3cret\n"))
	if err != nil {
		t.Fatalf("users add: %v", err)
	}
	requireContains(t, out, "User bob saved")

	if _, _, err := runCLI(t, []string{"users", "add", "carol"}, env.configPath, strings.NewReader("")); err == nil {
		t.Fatal("expected empty stdin to fail")
	}

	out, _, err = runCLI(t, []string{"users", "remove", "bob"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("users remove: %v", err)
	}
	requireContains(t, out, "User bob removed")

	if _, _, err := runCLI(t, []string{"users", "remove", "bob"}, env.configPath, nil); err == nil {
		t.Fatal("expected removing a missing user to fail")
	}
}

func TestJobsListEmptyAndBadState(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"jobs", "list"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "No jobs found")

	if _, _, err := runCLI(t, []string{"jobs", "list", "--state", "bogus"}, env.configPath, nil); err == nil {
		t.Fatal("expected unknown state to fail")
	}
	if _, _, err := runCLI(t, []string{"jobs", "show", "deadbeef"}, env.configPath, nil); err == nil {
		t.Fatal("expected unknown job to fail")
	}
}

func TestFrameAndPreviewCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	// Seek decodes exactly one frame.
	env.cfg.FFmpeg.FFmpegBinary = testsupport.StubBinary(t, filepath.Join(testsupport.BaseDir(env.cfg), "bin"), "ffmpeg-seek",
		"head -c "+strconv.Itoa(testsupport.RawVideoBytes(stubWidth, stubHeight, 1))+" /dev/zero")
	writeTestConfig(t, env.configPath, env.cfg)

	dir := t.TempDir()
	framePath := filepath.Join(dir, "frame.png")
	out, _, err := runCLI(t, []string{"frame", env.input, "--at", "0.2", "-o", framePath}, env.configPath, nil)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	requireContains(t, out, "Frame 6")
	if _, err := os.Stat(framePath); err != nil {
		t.Fatalf("expected frame png: %v", err)
	}

	previewPath := filepath.Join(dir, "preview.png")
	out, _, err = runCLI(t, []string{"preview", env.input, "--region", boxRegion, "-o", previewPath}, env.configPath, nil)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	requireContains(t, out, "written to "+previewPath)
	if _, err := os.Stat(previewPath); err != nil {
		t.Fatalf("expected preview png: %v", err)
	}
}

func TestDoctorReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.FFmpeg.FFmpegBinary = filepath.Join(t.TempDir(), "missing-ffmpeg")
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath, nil)
	if err == nil {
		t.Fatal("expected doctor to fail with a missing ffmpeg")
	}
	requireContains(t, out, "FAIL")
	requireContains(t, out, "Work directory")
}

func TestLogsCommandFiltersByJob(t *testing.T) {
	env := setupCLITestEnv(t)
	content := `{"ts":"2026-03-01T10:00:00Z","level":"info","msg":"job started","component":"pipeline","job_id":"aaaa1111"}
{"ts":"2026-03-01T10:00:01Z","level":"warn","msg":"short stream","component":"source","job_id":"bbbb2222"}
`
	if err := os.WriteFile(env.cfg.LogFilePath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--job", "bbbb"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "short stream")
	if strings.Contains(out, "job started") {
		t.Fatalf("expected other job to be filtered out: %q", out)
	}

	if _, _, err := runCLI(t, []string{"logs", "--level", "loud"}, env.configPath, nil); err == nil {
		t.Fatal("expected invalid level to fail")
	}
}
