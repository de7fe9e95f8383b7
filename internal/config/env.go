package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// applyEnvOverrides layers STORYREEL_* environment variables over the parsed
// file. A .env in the working directory is loaded first (without clobbering
// variables already set in the environment), matching how the upstream
// generator scripts are configured.
func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load()

	if v, ok := lookup("STORYREEL_STORIES_DIR"); ok {
		cfg.Paths.StoriesDir = v
	}
	if v, ok := lookup("STORYREEL_OUTPUT_DIR"); ok {
		cfg.Paths.OutputDir = v
	}
	if v, ok := lookup("STORYREEL_ASSETS_DIR"); ok {
		cfg.Paths.AssetsDir = v
	}
	if v, ok := lookup("STORYREEL_STAGING_DIR"); ok {
		cfg.Paths.StagingDir = v
	}
	if v, ok := lookup("STORYREEL_STATE_DIR"); ok {
		cfg.Paths.StateDir = v
	}
	if v, ok := lookup("STORYREEL_LOG_DIR"); ok {
		cfg.Paths.LogDir = v
	}
	if v, ok := lookup("STORYREEL_FORMAT"); ok {
		cfg.Output.Format = v
	}
	if v, ok := lookup("STORYREEL_BACKGROUND_TRACK"); ok {
		cfg.Audio.BackgroundTrack = v
	}
	if v, ok := lookup("STORYREEL_FFMPEG"); ok {
		cfg.Tools.FFmpeg = v
	}
	if v, ok := lookup("STORYREEL_FFPROBE"); ok {
		cfg.Tools.FFprobe = v
	}
	if v, ok := lookup("STORYREEL_LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := lookup("STORYREEL_LOG_FORMAT"); ok {
		cfg.Logging.Format = v
	}
	if v, ok := lookup("STORYREEL_PARALLELISM"); ok {
		if parsed, valid := parseEnvInt(v); valid && parsed > 0 {
			cfg.Pipeline.Parallelism = parsed
		}
	}
}

func lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}
