package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working, output, and log directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// FFmpeg names the external media binaries.
type FFmpeg struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Mask contains region resolution and dilation settings.
type Mask struct {
	DilateKernel       int     `toml:"dilate_kernel"`
	DilateIterations   int     `toml:"dilate_iterations"`
	SegmentWidthRatio  float64 `toml:"segment_width_ratio"`
	SegmentHeightRatio float64 `toml:"segment_height_ratio"`
	SegmentMarginRatio float64 `toml:"segment_margin_ratio"`
}

// Inpaint selects the reconstruction engine.
type Inpaint struct {
	// Engine is "telea" (pure Go) or "opencv" (requires the with_cv build tag).
	Engine string `toml:"engine"`
	Radius int    `toml:"radius"`
}

// Pipeline contains streaming settings.
type Pipeline struct {
	// Workers bounds the number of frames reconstructed concurrently.
	Workers int `toml:"workers"`
}

// Tier is one named encode preset.
type Tier struct {
	Codec      string `toml:"codec"`
	Bitrate    string `toml:"bitrate"`
	Preset     string `toml:"preset"`
	AudioCodec string `toml:"audio_codec"`
}

// Quality holds the two output tiers.
type Quality struct {
	Default  string `toml:"default"`
	Standard Tier   `toml:"standard"`
	High     Tier   `toml:"high"`
}

// Access controls whether jobs require an authenticated user.
type Access struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for eraser.
//
// Configuration sections by subsystem:
//   - Paths: working, output, and log directories
//   - FFmpeg: external binaries for probing, decoding, and encoding
//   - Mask: segment box sizing and dilation
//   - Inpaint: reconstruction engine and radius
//   - Pipeline: worker pool size
//   - Quality: standard/high encode tiers
//   - Access: user authorization before jobs start
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	FFmpeg   FFmpeg   `toml:"ffmpeg"`
	Mask     Mask     `toml:"mask"`
	Inpaint  Inpaint  `toml:"inpaint"`
	Pipeline Pipeline `toml:"pipeline"`
	Quality  Quality  `toml:"quality"`
	Access   Access   `toml:"access"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath is ~/.config/eraser/config.toml, expanded.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/eraser/config.toml")
}

// Load reads the configuration at path, or the first existing default location
// when path is empty, on top of Default. It reports the file it settled on and
// whether that file existed. Missing files yield the defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	source, found, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}
	if found {
		if err := decodeFile(source, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, source, found, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// locate resolves an explicit path, or searches the user config location and
// then ./eraser.toml.
func locate(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		found, err := isFile(expanded)
		return expanded, found, err
	}

	userPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	localPath, err := filepath.Abs("eraser.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, localPath} {
		if found, _ := isFile(candidate); found {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	default:
		return !info.IsDir(), nil
	}
}

// EnsureDirectories creates the directories jobs write into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the job history database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.LogDir, "jobs.db")
}

// LogFilePath returns the persistent log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "eraser.log")
}

// TierFor returns the tier settings for a quality name. Unknown names report false.
func (c *Config) TierFor(name string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard":
		return c.Quality.Standard, true
	case "high":
		return c.Quality.High, true
	default:
		return Tier{}, false
	}
}

// expandPath resolves a leading ~ and returns an absolute, cleaned path. Empty
// stays empty.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimLeft(value[1:], `/\`))
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath applies the same expansion the loader uses for configured paths.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// CreateSample writes the annotated sample configuration to path, creating
// parent directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
