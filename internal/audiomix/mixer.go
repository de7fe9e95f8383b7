package audiomix

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"storyreel/internal/assets"
	"storyreel/internal/config"
	"storyreel/internal/fileutil"
	"storyreel/internal/logging"
	"storyreel/internal/manifest"
	"storyreel/internal/media/encoder"
	"storyreel/internal/services"
)

// Mixer renders story mixes and records them in the artifact manifest so
// reruns skip work that already succeeded.
type Mixer struct {
	cfg    *config.Config
	store  *manifest.Store
	enc    encoder.Encoder
	logger *slog.Logger
}

// NewMixer wires the mixer's dependencies.
func NewMixer(cfg *config.Config, store *manifest.Store, enc encoder.Encoder, logger *slog.Logger) *Mixer {
	return &Mixer{
		cfg:    cfg,
		store:  store,
		enc:    enc,
		logger: logging.NewComponentLogger(logger, "audiomix"),
	}
}

// ManifestKey identifies a story's mix artifact.
func ManifestKey(batch, name string) string {
	return "mix/" + batch + "/" + name
}

// Mix renders the story's audio track and returns its path. A promoted mix
// that still matches on disk is reused unless force is set.
func (m *Mixer) Mix(ctx context.Context, bundle *assets.Bundle, force bool) (string, error) {
	st := bundle.Story
	ctx = services.WithStage(services.WithStory(ctx, st.ID()), "mix")
	log := logging.WithContext(ctx, m.logger)

	plan, err := BuildPlan(bundle)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "audiomix", "plan mix", err.Error(), nil)
	}

	key := ManifestKey(st.Batch, st.Name)
	output := m.cfg.MixPath(st.Batch, st.Name)

	if !force {
		if artifact, ok := m.store.Valid(ctx, key, plan.Target, bundle.Policy.DurationTolerance); ok {
			log.Info("mix up to date", logging.String("path", artifact.Path))
			return artifact.Path, nil
		}
	} else if err := m.store.Delete(ctx, key); err != nil {
		return "", err
	}

	log.Info("rendering mix",
		logging.Float64("duration", plan.Target),
		logging.Int("loop_copies", plan.LoopCopies),
		logging.Int("overlays", len(plan.Overlays)),
		logging.Bool("silent", plan.Background == ""),
	)

	temp, err := tempOutput(output)
	if err != nil {
		return "", err
	}
	defer fileutil.RemoveQuiet(temp)

	if err := m.enc.MixAudio(ctx, plan.Spec(m.cfg.Output.AudioCodec), temp); err != nil {
		return "", err
	}
	if err := fileutil.Promote(temp, output); err != nil {
		return "", services.Wrap(services.ErrTransient, "audiomix", "promote mix", output, err)
	}

	checksum, err := fileutil.Checksum(output)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "audiomix", "checksum mix", output, err)
	}
	if err := m.store.Record(ctx, manifest.Artifact{
		Key:             key,
		Path:            output,
		DurationSeconds: plan.Target,
		Checksum:        checksum,
	}); err != nil {
		return "", err
	}
	return output, nil
}

// tempOutput builds a hidden sibling path that keeps the real extension, so
// ffmpeg still picks the right muxer. The destination directory is created
// up front because the encoder writes the temp file straight into it.
func tempOutput(output string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", fmt.Errorf("ensure output directory: %w", err)
	}
	return fileutil.TempSibling(output) + filepath.Ext(output), nil
}
