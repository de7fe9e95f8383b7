package bumper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"storyreel/internal/config"
	"storyreel/internal/manifest"
	"storyreel/internal/media/encoder"
	"storyreel/internal/media/ffprobe"
	"storyreel/internal/policy"
	"storyreel/internal/services"
)

type fakeEncoder struct {
	normalizeCalls atomic.Int64
	lastSpec       encoder.NormalizeSpec
}

func (f *fakeEncoder) MixAudio(context.Context, encoder.MixSpec, string) error { return nil }

func (f *fakeEncoder) Concat(context.Context, encoder.ConcatSpec, string) error { return nil }

func (f *fakeEncoder) Normalize(_ context.Context, spec encoder.NormalizeSpec, output string) error {
	f.normalizeCalls.Add(1)
	f.lastSpec = spec
	return os.WriteFile(output, []byte("bumper video"), 0o644)
}

func sourceProbe(withAudio bool) ffprobe.Func {
	return func(context.Context, string, string) (ffprobe.Result, error) {
		streams := []ffprobe.Stream{{CodecType: "video", CodecName: "h264", Width: 1280, Height: 720}}
		if withAudio {
			streams = append(streams, ffprobe.Stream{CodecType: "audio", CodecName: "aac", Channels: 2})
		}
		return ffprobe.Result{
			Streams: streams,
			Format:  ffprobe.Format{Duration: "6.500"},
		}, nil
	}
}

func newProvider(t *testing.T) (*Provider, *fakeEncoder, *config.Config) {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.AssetsDir = filepath.Join(base, "assets")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Bumper.Source = filepath.Join(base, "assets", "bumper", "subscribe.mp4")
	cfg.Bumper.Output = filepath.Join(base, "output", "subscribe.mp4")

	store, err := manifest.Open(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	enc := &fakeEncoder{}
	provider := NewProvider(&cfg, policy.Landscape(), store, enc, nil)
	provider.Probe = sourceProbe(true)
	return provider, enc, &cfg
}

func writeSource(t *testing.T, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(cfg.Bumper.Source), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.Bumper.Source, []byte("source clip"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGetOrCreateBuildsOnce(t *testing.T) {
	provider, enc, cfg := newProvider(t)
	writeSource(t, cfg)
	ctx := context.Background()

	path, err := provider.GetOrCreate(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if path != cfg.Bumper.Output {
		t.Fatalf("path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}

	if _, err := provider.GetOrCreate(ctx, false); err != nil {
		t.Fatal(err)
	}
	if got := enc.normalizeCalls.Load(); got != 1 {
		t.Fatalf("normalize calls = %d", got)
	}
}

func TestGetOrCreateCleansUpLockFile(t *testing.T) {
	provider, _, cfg := newProvider(t)
	writeSource(t, cfg)

	if _, err := provider.GetOrCreate(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.Bumper.Output + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("lock file left behind: %v", err)
	}
}

func TestGetOrCreateConformsToPolicy(t *testing.T) {
	provider, enc, cfg := newProvider(t)
	writeSource(t, cfg)

	if _, err := provider.GetOrCreate(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	spec := enc.lastSpec
	if spec.Width != 1920 || spec.Height != 1080 || spec.FPS != 24 {
		t.Fatalf("spec = %+v", spec)
	}
	if spec.Duration != 6.5 {
		t.Fatalf("duration = %v", spec.Duration)
	}
	if spec.Audio != encoder.AudioKeep {
		t.Fatalf("audio policy = %v", spec.Audio)
	}
}

func TestGetOrCreateSilentSourceGetsSilenceBed(t *testing.T) {
	provider, enc, cfg := newProvider(t)
	writeSource(t, cfg)
	provider.Probe = sourceProbe(false)

	if _, err := provider.GetOrCreate(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if enc.lastSpec.Audio != encoder.AudioSilence {
		t.Fatalf("audio policy = %v", enc.lastSpec.Audio)
	}
}

func TestGetOrCreateMissingSource(t *testing.T) {
	provider, _, _ := newProvider(t)

	_, err := provider.GetOrCreate(context.Background(), false)
	if !errors.Is(err, services.ErrMissingAsset) {
		t.Fatalf("err = %v", err)
	}
	var missing *MissingSourceError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %T", err)
	}
}

func TestGetOrCreateForceRebuilds(t *testing.T) {
	provider, enc, cfg := newProvider(t)
	writeSource(t, cfg)
	ctx := context.Background()

	if _, err := provider.GetOrCreate(ctx, false); err != nil {
		t.Fatal(err)
	}
	if _, err := provider.GetOrCreate(ctx, true); err != nil {
		t.Fatal(err)
	}
	if got := enc.normalizeCalls.Load(); got != 2 {
		t.Fatalf("normalize calls = %d", got)
	}
}

func TestConcurrentCallersCreateExactlyOnce(t *testing.T) {
	provider, enc, cfg := newProvider(t)
	writeSource(t, cfg)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = provider.GetOrCreate(ctx, false)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if got := enc.normalizeCalls.Load(); got != 1 {
		t.Fatalf("normalize calls = %d, want exactly one creation", got)
	}
}

func TestGetOrCreateRebuildsWhenFileRemoved(t *testing.T) {
	provider, enc, cfg := newProvider(t)
	writeSource(t, cfg)
	ctx := context.Background()

	path, err := provider.GetOrCreate(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := provider.GetOrCreate(ctx, false); err != nil {
		t.Fatal(err)
	}
	if got := enc.normalizeCalls.Load(); got != 2 {
		t.Fatalf("normalize calls = %d", got)
	}
}
