package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"storyreel/internal/services"
)

func TestConsoleHandlerRendersAttrs(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("assembling story", String(FieldStory, "1/story1"), Int("clips", 15))

	line := buf.String()
	if !strings.Contains(line, "INFO") {
		t.Fatalf("missing level in %q", line)
	}
	if !strings.Contains(line, "assembling story") {
		t.Fatalf("missing message in %q", line)
	}
	if !strings.Contains(line, "story=1/story1") || !strings.Contains(line, "clips=15") {
		t.Fatalf("missing attrs in %q", line)
	}
}

func TestConsoleHandlerOrdersIdentityFieldsFirst(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar)).With(String("detail", "x"))

	logger.Info("msg", String(FieldStory, "1/a"))

	line := buf.String()
	if strings.Index(line, "story=") > strings.Index(line, "detail=") {
		t.Fatalf("identity field not first in %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("hidden")
	logger.Warn("visible")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatal("info line should be filtered")
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Fatal("warn line missing")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	base := slog.New(newConsoleHandler(&buf, levelVar))

	ctx := services.WithStory(context.Background(), "1/story1")
	ctx = services.WithStage(ctx, "mix")
	WithContext(ctx, base).Info("mixing")

	line := buf.String()
	if !strings.Contains(line, "story=1/story1") || !strings.Contains(line, "stage=mix") {
		t.Fatalf("context fields missing in %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("nothing happens")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop logger should report disabled")
	}
}
