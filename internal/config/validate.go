package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if _, err := c.FormatPolicy(); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	return nil
}

func (c *Config) validateOutput() error {
	if strings.TrimSpace(c.Output.VideoCodec) == "" {
		return fmt.Errorf("output.video_codec must not be empty")
	}
	if strings.TrimSpace(c.Output.AudioCodec) == "" {
		return fmt.Errorf("output.audio_codec must not be empty")
	}
	if c.Output.FPS < 0 {
		return fmt.Errorf("output.fps must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
