package services

import "context"

type contextKey string

const (
	storyKey contextKey = "story"
	shotKey  contextKey = "shot"
	stageKey contextKey = "stage"
	runIDKey contextKey = "run_id"
)

// WithStory annotates context with the story identifier (batch/name).
func WithStory(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, storyKey, id)
}

// StoryFromContext extracts the story identifier if present.
func StoryFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(storyKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithShot annotates context with a shot id.
func WithShot(ctx context.Context, id int) context.Context {
	if id <= 0 {
		return ctx
	}
	return context.WithValue(ctx, shotKey, id)
}

// ShotFromContext extracts the shot id if present.
func ShotFromContext(ctx context.Context) (int, bool) {
	if id, ok := ctx.Value(shotKey).(int); ok && id > 0 {
		return id, true
	}
	return 0, false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(stageKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRunID annotates context with a correlation identifier for one CLI run.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(runIDKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}
