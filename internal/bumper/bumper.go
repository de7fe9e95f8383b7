// Package bumper maintains the cached subscribe bumper that aggregation
// interleaves between story videos. The bumper is built once from a static
// source clip and shared by every aggregation; concurrent callers coordinate
// through a file lock so exactly one of them creates it.
package bumper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"storyreel/internal/config"
	"storyreel/internal/fileutil"
	"storyreel/internal/logging"
	"storyreel/internal/manifest"
	"storyreel/internal/media/encoder"
	"storyreel/internal/media/ffprobe"
	"storyreel/internal/policy"
	"storyreel/internal/services"
)

// ManifestKey identifies the shared bumper artifact.
const ManifestKey = "bumper"

const lockRetryDelay = 100 * time.Millisecond

// MissingSourceError reports an absent bumper source clip.
type MissingSourceError struct {
	Path string
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("bumper source missing at %s", e.Path)
}

func (e *MissingSourceError) Unwrap() error { return services.ErrMissingAsset }

// Provider builds and caches the bumper video.
type Provider struct {
	cfg    *config.Config
	pol    policy.Format
	store  *manifest.Store
	enc    encoder.Encoder
	logger *slog.Logger

	// Probe is swappable so tests run without ffprobe installed.
	Probe ffprobe.Func
}

// NewProvider wires the provider's dependencies.
func NewProvider(cfg *config.Config, pol policy.Format, store *manifest.Store, enc encoder.Encoder, logger *slog.Logger) *Provider {
	return &Provider{
		cfg:    cfg,
		pol:    pol,
		store:  store,
		enc:    enc,
		logger: logging.NewComponentLogger(logger, "bumper"),
		Probe:  ffprobe.Inspect,
	}
}

// GetOrCreate returns the cached bumper path, creating it under a file lock
// when absent. Concurrent callers block on the lock; whoever wins creates
// the bumper and the rest find it ready after the re-check.
func (p *Provider) GetOrCreate(ctx context.Context, force bool) (string, error) {
	ctx = services.WithStage(ctx, "bumper")
	output := p.cfg.Bumper.Output

	if !force {
		if artifact, ok := p.store.Valid(ctx, ManifestKey, 0, 0); ok {
			return artifact.Path, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "bumper", "ensure output directory", output, err)
	}

	lock := flock.New(output + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "bumper", "acquire lock", lock.Path(), err)
	}
	if !locked {
		return "", services.Wrap(services.ErrTransient, "bumper", "acquire lock", lock.Path(), nil)
	}
	defer func() {
		_ = lock.Unlock()
		// The lock file is only a rendezvous point; drop it once released.
		// Late arrivals that raced the removal still land on the manifest
		// re-check below.
		_ = os.Remove(lock.Path())
	}()

	// Another process may have finished the build while this one waited.
	if !force {
		if artifact, ok := p.store.Valid(ctx, ManifestKey, 0, 0); ok {
			logging.WithContext(ctx, p.logger).Info("bumper created concurrently, reusing",
				logging.String("path", artifact.Path))
			return artifact.Path, nil
		}
	} else if err := p.store.Delete(ctx, ManifestKey); err != nil {
		return "", err
	}

	return p.create(ctx, output)
}

func (p *Provider) create(ctx context.Context, output string) (string, error) {
	source := p.cfg.Bumper.Source
	if info, err := os.Stat(source); err != nil || info.IsDir() {
		return "", &MissingSourceError{Path: source}
	}

	result, err := p.Probe(ctx, p.cfg.FFprobeBinary(), source)
	if err != nil {
		return "", services.Wrap(services.ErrUnreadableAsset, "bumper", "probe source", source, err)
	}
	duration := result.DurationSeconds()
	if duration <= 0 {
		return "", services.Wrap(services.ErrUnreadableAsset, "bumper", "probe source",
			fmt.Sprintf("%s has no duration", source), nil)
	}

	// Silent sources get a silence bed so the aggregate concat always has an
	// audio stream to carry through.
	audio := encoder.AudioKeep
	if result.AudioStreamCount() == 0 {
		audio = encoder.AudioSilence
	}

	logging.WithContext(ctx, p.logger).Info("creating bumper",
		logging.String("source", source),
		logging.String("path", output),
		logging.Float64("duration", duration),
	)

	temp := fileutil.TempSibling(output) + filepath.Ext(output)
	defer fileutil.RemoveQuiet(temp)

	spec := encoder.NormalizeSpec{
		Input:      source,
		Duration:   duration,
		Width:      p.pol.Width,
		Height:     p.pol.Height,
		FPS:        p.pol.FPS,
		VideoCodec: p.cfg.Output.VideoCodec,
		AudioCodec: p.cfg.Output.AudioCodec,
		Audio:      audio,
	}
	if err := p.enc.Normalize(ctx, spec, temp); err != nil {
		return "", err
	}
	if err := fileutil.Promote(temp, output); err != nil {
		return "", services.Wrap(services.ErrTransient, "bumper", "promote bumper", output, err)
	}

	checksum, err := fileutil.Checksum(output)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "bumper", "checksum bumper", output, err)
	}
	if err := p.store.Record(ctx, manifest.Artifact{
		Key:             ManifestKey,
		Path:            output,
		DurationSeconds: duration,
		Checksum:        checksum,
	}); err != nil {
		return "", err
	}
	return output, nil
}
