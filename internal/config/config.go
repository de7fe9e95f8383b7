package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"storyreel/internal/policy"
	"storyreel/internal/textutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// StoriesDir holds descriptors at <stories_dir>/<batch>/<story>.yaml.
	StoriesDir string `toml:"stories_dir"`
	// OutputDir holds raw clips, story videos, the bumper, and final videos.
	OutputDir string `toml:"output_dir"`
	// AssetsDir holds static inputs such as the background track.
	AssetsDir  string `toml:"assets_dir"`
	StagingDir string `toml:"staging_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// Output selects the governing format policy and encode settings.
type Output struct {
	Format     string `toml:"format"`
	FPS        int    `toml:"fps"`
	VideoCodec string `toml:"video_codec"`
	AudioCodec string `toml:"audio_codec"`
}

// Audio configures background music handling for the mixer.
type Audio struct {
	// BackgroundTrack is the looping background source. Empty falls back to
	// <assets_dir>/music/bg.mp3.
	BackgroundTrack    string  `toml:"background_track"`
	BackgroundVolumeDB float64 `toml:"background_volume_db"`
	MasterVolumeDB     float64 `toml:"master_volume_db"`
	// AllowSilent permits assembling a story when the background track is
	// missing. Off by default: silence is not a substitute for the
	// configured track.
	AllowSilent bool `toml:"allow_silent"`
}

// Bumper configures the cached subscribe bumper.
type Bumper struct {
	// Source is the static clip the bumper is built from.
	Source string `toml:"source"`
	// Output is the cached bumper path shared by all aggregations.
	Output string `toml:"output"`
}

// Tools names the external media binaries.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Pipeline tunes batch processing behavior.
type Pipeline struct {
	// Parallelism bounds how many stories are assembled concurrently.
	Parallelism int `toml:"parallelism"`
	// DurationToleranceSeconds is the per-clip drift allowed before the
	// trim/pad correction applies.
	DurationToleranceSeconds float64 `toml:"duration_tolerance_seconds"`
	// WaitTimeoutSeconds bounds how long `resolve --wait` blocks for the
	// external generators to finish writing clips. 0 means no timeout.
	WaitTimeoutSeconds int `toml:"wait_timeout_seconds"`
}

// Logging controls log output format and verbosity.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Storyreel.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Output   Output   `toml:"output"`
	Audio    Audio    `toml:"audio"`
	Bumper   Bumper   `toml:"bumper"`
	Tools    Tools    `toml:"tools"`
	Pipeline Pipeline `toml:"pipeline"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/storyreel/config.toml")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized, and environment
// overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("storyreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StagingDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FormatPolicy builds the governing format policy from configuration.
func (c *Config) FormatPolicy() (policy.Format, error) {
	f, err := policy.ByName(c.Output.Format)
	if err != nil {
		return policy.Format{}, err
	}
	if c.Output.FPS > 0 {
		f.FPS = c.Output.FPS
	}
	if c.Pipeline.DurationToleranceSeconds > 0 {
		f.DurationTolerance = c.Pipeline.DurationToleranceSeconds
	}
	f.BackgroundGain = policy.GainFromDB(c.Audio.BackgroundVolumeDB)
	f.MasterGain = policy.GainFromDB(c.Audio.MasterVolumeDB)
	if err := f.Validate(); err != nil {
		return policy.Format{}, err
	}
	return f, nil
}

// Batch and story names come from descriptor filenames and CLI arguments;
// sanitizing them here keeps every derived path a single segment under its
// configured directory.

// DescriptorPath returns the story descriptor path for a batch/story pair.
func (c *Config) DescriptorPath(batch, name string) string {
	return filepath.Join(c.Paths.StoriesDir, textutil.SanitizeFileName(batch), textutil.SanitizeFileName(name)+".yaml")
}

// ClipsDir returns the raw clip directory the external generator writes into.
func (c *Config) ClipsDir(batch, name string) string {
	return filepath.Join(c.Paths.OutputDir, textutil.SanitizeFileName(batch), "raw_clips", textutil.SanitizeFileName(name))
}

// StoryVideoPath returns the deterministic story video output path.
func (c *Config) StoryVideoPath(batch, name string) string {
	return filepath.Join(c.Paths.OutputDir, textutil.SanitizeFileName(batch), textutil.SanitizeFileName(name)+".mp4")
}

// FinalVideoPath returns the default aggregated output path for a batch.
func (c *Config) FinalVideoPath(batch string) string {
	return filepath.Join(c.Paths.OutputDir, textutil.SanitizeFileName(batch), "final.mp4")
}

// MixPath returns the staging path of a story's mixed audio track.
func (c *Config) MixPath(batch, name string) string {
	return filepath.Join(c.StoryStagingDir(batch, name), "mix.m4a")
}

// StoryStagingDir returns the per-story scratch directory.
func (c *Config) StoryStagingDir(batch, name string) string {
	return filepath.Join(c.Paths.StagingDir, textutil.SanitizeFileName(batch), textutil.SanitizeFileName(name))
}

// ManifestPath returns the SQLite artifact manifest location.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Paths.StateDir, "manifest.db")
}

// BackgroundTrack returns the configured background track path.
func (c *Config) BackgroundTrack() string {
	return c.Audio.BackgroundTrack
}

// FFmpegBinary returns the ffmpeg executable.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.Tools.FFmpeg) != "" {
		return c.Tools.FFmpeg
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable.
func (c *Config) FFprobeBinary() string {
	if strings.TrimSpace(c.Tools.FFprobe) != "" {
		return c.Tools.FFprobe
	}
	return "ffprobe"
}

// ExpandPath resolves a leading ~ and relative segments to an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// CreateSample writes the embedded sample configuration to target.
func CreateSample(target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(target, []byte(sampleConfig), 0o644)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

func parseEnvInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return parsed, true
}
