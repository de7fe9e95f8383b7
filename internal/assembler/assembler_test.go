package assembler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"storyreel/internal/assets"
	"storyreel/internal/config"
	"storyreel/internal/manifest"
	"storyreel/internal/media/encoder"
	"storyreel/internal/policy"
	"storyreel/internal/story"
)

type fakeEncoder struct {
	concatCalls    int
	normalizeCalls int
	lastConcat     encoder.ConcatSpec
	normalized     []string
}

func (f *fakeEncoder) MixAudio(context.Context, encoder.MixSpec, string) error { return nil }

func (f *fakeEncoder) Concat(_ context.Context, spec encoder.ConcatSpec, output string) error {
	f.concatCalls++
	f.lastConcat = spec
	return os.WriteFile(output, []byte("story video"), 0o644)
}

func (f *fakeEncoder) Normalize(_ context.Context, spec encoder.NormalizeSpec, output string) error {
	f.normalizeCalls++
	f.normalized = append(f.normalized, spec.Input)
	return os.WriteFile(output, []byte("conformed clip"), 0o644)
}

func newAssembler(t *testing.T) (*Assembler, *fakeEncoder, *config.Config) {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.StateDir = filepath.Join(base, "state")

	store, err := manifest.Open(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	enc := &fakeEncoder{}
	return New(&cfg, store, enc, nil), enc, &cfg
}

// testBundle builds a three-shot bundle. Clip paths are synthetic; the fake
// encoder never opens them.
func testBundle() *assets.Bundle {
	pol := policy.Landscape()
	pol.ShotCount = 3
	bundle := &assets.Bundle{
		Story:    &story.Story{Batch: "1", Name: "story1"},
		Policy:   pol,
		Diegetic: map[int]assets.AudioAsset{},
	}
	for id := 1; id <= 3; id++ {
		bundle.Clips = append(bundle.Clips, assets.ClipAsset{
			ShotID:   id,
			Path:     filepath.Join("/clips", "story1", (map[int]string{1: "1.mp4", 2: "2.mp4", 3: "3.mp4"})[id]),
			Duration: 8,
		})
	}
	return bundle
}

func TestAssembleConcatenatesInShotOrder(t *testing.T) {
	asm, enc, cfg := newAssembler(t)
	bundle := testBundle()
	mixPath := cfg.MixPath("1", "story1")

	video, err := asm.Assemble(context.Background(), bundle, mixPath, false)
	if err != nil {
		t.Fatal(err)
	}
	if video.Path != cfg.StoryVideoPath("1", "story1") || video.Duration != 24 {
		t.Fatalf("video = %+v", video)
	}
	if _, err := os.Stat(video.Path); err != nil {
		t.Fatal(err)
	}

	spec := enc.lastConcat
	if len(spec.Inputs) != 3 {
		t.Fatalf("inputs = %v", spec.Inputs)
	}
	for i, input := range spec.Inputs {
		want := (map[int]string{0: "1.mp4", 1: "2.mp4", 2: "3.mp4"})[i]
		if filepath.Base(input) != want {
			t.Fatalf("input %d = %s, want %s", i, input, want)
		}
	}
	if spec.AudioTrack != mixPath {
		t.Fatalf("audio track = %s", spec.AudioTrack)
	}
	if spec.Duration != 24 {
		t.Fatalf("duration = %v", spec.Duration)
	}
}

func TestAssembleSkipsWhenUpToDate(t *testing.T) {
	asm, enc, cfg := newAssembler(t)
	bundle := testBundle()
	ctx := context.Background()

	if _, err := asm.Assemble(ctx, bundle, cfg.MixPath("1", "story1"), false); err != nil {
		t.Fatal(err)
	}
	video, err := asm.Assemble(ctx, bundle, cfg.MixPath("1", "story1"), false)
	if err != nil {
		t.Fatal(err)
	}
	if enc.concatCalls != 1 {
		t.Fatalf("concat calls = %d, rerun should not re-encode", enc.concatCalls)
	}
	if video.Path != cfg.StoryVideoPath("1", "story1") {
		t.Fatalf("video = %+v", video)
	}
}

func TestAssembleForceRebuilds(t *testing.T) {
	asm, enc, cfg := newAssembler(t)
	bundle := testBundle()
	ctx := context.Background()

	if _, err := asm.Assemble(ctx, bundle, cfg.MixPath("1", "story1"), false); err != nil {
		t.Fatal(err)
	}
	if _, err := asm.Assemble(ctx, bundle, cfg.MixPath("1", "story1"), true); err != nil {
		t.Fatal(err)
	}
	if enc.concatCalls != 2 {
		t.Fatalf("concat calls = %d", enc.concatCalls)
	}
}

func TestAssembleConformsDriftedClips(t *testing.T) {
	asm, enc, cfg := newAssembler(t)
	bundle := testBundle()
	bundle.Clips[1].Duration = 8.7
	bundle.Clips[1].Drift = 0.7
	bundle.Clips[1].Correction = assets.CorrectionTrim

	if _, err := asm.Assemble(context.Background(), bundle, cfg.MixPath("1", "story1"), false); err != nil {
		t.Fatal(err)
	}
	if enc.normalizeCalls != 1 {
		t.Fatalf("normalize calls = %d", enc.normalizeCalls)
	}
	if filepath.Base(enc.normalized[0]) != "2.mp4" {
		t.Fatalf("normalized = %v", enc.normalized)
	}

	// The drifted clip is replaced by its conformed copy in the concat list.
	if got := filepath.Base(enc.lastConcat.Inputs[1]); got != "shot-02.mp4" {
		t.Fatalf("input 1 = %s", got)
	}
	// Intermediates are cleaned up after promotion.
	if _, err := os.Stat(filepath.Join(cfg.StoryStagingDir("1", "story1"), "shot-02.mp4")); !os.IsNotExist(err) {
		t.Fatalf("staged intermediate still present: %v", err)
	}
}

func TestAssembleRecordsManifest(t *testing.T) {
	asm, _, cfg := newAssembler(t)
	bundle := testBundle()

	if _, err := asm.Assemble(context.Background(), bundle, cfg.MixPath("1", "story1"), false); err != nil {
		t.Fatal(err)
	}
	artifact, ok := asm.store.Valid(context.Background(), ManifestKey("1", "story1"), 24, 0.25)
	if !ok || artifact.Checksum == "" {
		t.Fatalf("artifact = %+v ok = %v", artifact, ok)
	}
}
