// Package config loads, normalizes, and validates Storyreel configuration.
//
// Configuration comes from a TOML file (~/.config/storyreel/config.toml or
// ./storyreel.toml), with a small set of STORYREEL_* environment overrides
// applied afterwards (a .env file in the working directory is honored).
// Loaded configuration is passed into components as an explicit value.
package config
