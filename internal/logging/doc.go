// Package logging builds the slog loggers used across the pipeline and
// provides attr helpers plus context-derived structured fields
// (story, shot, stage, run id).
package logging
