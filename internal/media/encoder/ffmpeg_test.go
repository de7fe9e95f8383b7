package encoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/internal/services"
)

func TestBuildMixArgsLoopsBackground(t *testing.T) {
	spec := MixSpec{
		Background:     "/assets/bg.mp3",
		LoopCopies:     3,
		BackgroundGain: 0.6,
		MasterGain:     0.85,
		Duration:       12,
	}
	args, err := buildMixArgs(spec, "/out/mix.m4a")
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-stream_loop 2 -i /assets/bg.mp3") {
		t.Fatalf("expected two extra background loops in %q", joined)
	}
	if !strings.Contains(joined, "-t 12.000") {
		t.Fatalf("expected exact duration cut in %q", joined)
	}
	if !strings.Contains(joined, "volume=0.600000[bg]") {
		t.Fatalf("expected background gain in %q", joined)
	}
	if !strings.Contains(joined, "[bg]volume=0.850000[mix]") {
		t.Fatalf("expected master gain chain in %q", joined)
	}
}

func TestBuildMixArgsOverlays(t *testing.T) {
	spec := MixSpec{
		Background:     "/assets/bg.mp3",
		LoopCopies:     1,
		BackgroundGain: 0.6,
		MasterGain:     0.85,
		Duration:       120,
		Overlays: []OverlaySpec{
			{Path: "/clips/1.sfx.m4a", OffsetSeconds: 0, LimitSeconds: 8},
			{Path: "/clips/3.sfx.m4a", OffsetSeconds: 16, LimitSeconds: 8},
		},
	}
	args, err := buildMixArgs(spec, "/out/mix.m4a")
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "[1:a]atrim=0:8.000,adelay=0:all=1[ov1]") {
		t.Fatalf("first overlay chain missing in %q", joined)
	}
	if !strings.Contains(joined, "[2:a]atrim=0:8.000,adelay=16000:all=1[ov2]") {
		t.Fatalf("second overlay chain missing in %q", joined)
	}
	if !strings.Contains(joined, "[bg][ov1][ov2]amix=inputs=3:duration=first:normalize=0,volume=0.850000[mix]") {
		t.Fatalf("amix chain missing in %q", joined)
	}
}

func TestBuildMixArgsSilenceBed(t *testing.T) {
	spec := MixSpec{Duration: 60, MasterGain: 0.85, BackgroundGain: 0.6}
	args, err := buildMixArgs(spec, "/out/mix.m4a")
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "anullsrc=channel_layout=stereo:sample_rate=48000") {
		t.Fatalf("expected silence bed in %q", joined)
	}
	if strings.Contains(joined, "-stream_loop") {
		t.Fatalf("silence bed must not loop in %q", joined)
	}
}

func TestBuildMixArgsRejectsZeroDuration(t *testing.T) {
	if _, err := buildMixArgs(MixSpec{}, "/out/mix.m4a"); err == nil {
		t.Fatal("expected error for zero duration")
	}
}

func TestBuildConcatArgsReplacesAudio(t *testing.T) {
	spec := ConcatSpec{
		Inputs:     []string{"/c/1.mp4", "/c/2.mp4"},
		AudioTrack: "/staging/mix.m4a",
		Duration:   120,
		FPS:        24,
		VideoCodec: "libx264",
		AudioCodec: "aac",
	}
	args := buildConcatArgs(spec, "/tmp/list.txt", "/out/story.mp4")
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-f concat -safe 0 -i /tmp/list.txt") {
		t.Fatalf("concat demuxer missing in %q", joined)
	}
	if !strings.Contains(joined, "-i /staging/mix.m4a -map 0:v:0 -map 1:a:0") {
		t.Fatalf("audio replacement mapping missing in %q", joined)
	}
	if !strings.Contains(joined, "tpad=stop_mode=clone:stop_duration=120.000") {
		t.Fatalf("hold-last-frame pad missing in %q", joined)
	}
	if !strings.Contains(joined, "-t 120.000") {
		t.Fatalf("exact duration cut missing in %q", joined)
	}
}

func TestBuildConcatArgsKeepsPerInputAudio(t *testing.T) {
	spec := ConcatSpec{Inputs: []string{"/a.mp4", "/b.mp4"}}
	args := buildConcatArgs(spec, "/tmp/list.txt", "/out/final.mp4")
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "-map") {
		t.Fatalf("no explicit mapping expected in %q", joined)
	}
	if strings.Contains(joined, "-t ") {
		t.Fatalf("no duration cut expected in %q", joined)
	}
}

func TestBuildNormalizeArgsModes(t *testing.T) {
	base := NormalizeSpec{Input: "/c/7.mp4", Duration: 8, FPS: 24}

	drop := base
	drop.Audio = AudioDrop
	args, err := buildNormalizeArgs(drop, "/out/7.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.Join(args, " "), "-an") {
		t.Fatal("expected -an for AudioDrop")
	}

	silence := base
	silence.Audio = AudioSilence
	args, err = buildNormalizeArgs(silence, "/out/7.mp4")
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "anullsrc") || !strings.Contains(joined, "-map 1:a:0") {
		t.Fatalf("expected silent bed mapping in %q", joined)
	}

	scaled := base
	scaled.Width = 1920
	scaled.Height = 1080
	args, err = buildNormalizeArgs(scaled, "/out/7.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.Join(args, " "), "scale=1920:1080") {
		t.Fatal("expected rescale filter")
	}
}

// A clip can run arbitrarily short of the policy duration; the clone pad must
// cover the whole target so the duration cut never lands past the end of the
// stream. A 5s clip conformed to 8s would otherwise come out at 7s.
func TestBuildNormalizeArgsPadCoversAnyShortfall(t *testing.T) {
	spec := NormalizeSpec{Input: "/c/3.mp4", Duration: 8, FPS: 24, Audio: AudioDrop}
	args, err := buildNormalizeArgs(spec, "/out/3.mp4")
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "tpad=stop_mode=clone:stop_duration=8.000") {
		t.Fatalf("pad shorter than the target duration in %q", joined)
	}
	if !strings.Contains(joined, "-t 8.000") {
		t.Fatalf("exact duration cut missing in %q", joined)
	}
}

func TestConcatWritesAndCleansListFile(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "story.mp4")

	var gotList string
	enc := NewFFmpeg("ffmpeg", nil)
	enc.run = func(_ context.Context, _ string, args []string) ([]byte, error) {
		for i, arg := range args {
			if arg == "-i" && strings.HasSuffix(args[i+1], ".txt") {
				gotList = args[i+1]
			}
		}
		content, err := os.ReadFile(gotList)
		if err != nil {
			t.Errorf("list file unreadable during run: %v", err)
		}
		if !strings.Contains(string(content), "file '/c/1.mp4'") {
			t.Errorf("list content = %q", content)
		}
		return nil, nil
	}

	spec := ConcatSpec{Inputs: []string{"/c/1.mp4", "/c/2.mp4"}}
	if err := enc.Concat(context.Background(), spec, output); err != nil {
		t.Fatal(err)
	}
	if gotList == "" {
		t.Fatal("run never saw a list file")
	}
	if _, err := os.Stat(gotList); !os.IsNotExist(err) {
		t.Fatalf("list file not cleaned up: %v", err)
	}
}

func TestInvokeWrapsFailures(t *testing.T) {
	enc := NewFFmpeg("ffmpeg", nil)
	enc.run = func(context.Context, string, []string) ([]byte, error) {
		return []byte("line1\nconversion failed"), errors.New("exit status 1")
	}

	err := enc.MixAudio(context.Background(), MixSpec{Background: "/bg.mp3", Duration: 10}, "/out/mix.m4a")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "conversion failed") {
		t.Fatalf("expected ffmpeg output tail in %q", err)
	}
}
