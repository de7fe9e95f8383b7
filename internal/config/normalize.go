package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeAudio(); err != nil {
		return err
	}
	if err := c.normalizeBumper(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StoriesDir, err = expandPath(c.Paths.StoriesDir); err != nil {
		return fmt.Errorf("paths.stories_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.AssetsDir, err = expandPath(c.Paths.AssetsDir); err != nil {
		return fmt.Errorf("paths.assets_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAudio() error {
	if strings.TrimSpace(c.Audio.BackgroundTrack) == "" {
		c.Audio.BackgroundTrack = filepath.Join(c.Paths.AssetsDir, "music", "bg.mp3")
	}
	expanded, err := expandPath(c.Audio.BackgroundTrack)
	if err != nil {
		return fmt.Errorf("audio.background_track: %w", err)
	}
	c.Audio.BackgroundTrack = expanded
	return nil
}

func (c *Config) normalizeBumper() error {
	if strings.TrimSpace(c.Bumper.Source) == "" {
		c.Bumper.Source = filepath.Join(c.Paths.AssetsDir, "bumper", "subscribe.mp4")
	}
	if strings.TrimSpace(c.Bumper.Output) == "" {
		c.Bumper.Output = filepath.Join(c.Paths.OutputDir, "subscribe.mp4")
	}
	var err error
	if c.Bumper.Source, err = expandPath(c.Bumper.Source); err != nil {
		return fmt.Errorf("bumper.source: %w", err)
	}
	if c.Bumper.Output, err = expandPath(c.Bumper.Output); err != nil {
		return fmt.Errorf("bumper.output: %w", err)
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Parallelism <= 0 {
		c.Pipeline.Parallelism = defaultParallelism
	}
	if c.Pipeline.DurationToleranceSeconds <= 0 {
		c.Pipeline.DurationToleranceSeconds = defaultDurationTolerance
	}
	if c.Pipeline.WaitTimeoutSeconds < 0 {
		c.Pipeline.WaitTimeoutSeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
