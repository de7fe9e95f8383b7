// Package assembler turns a resolved clip bundle and a rendered mix into one
// story video of exact policy duration, promoted atomically and recorded in
// the artifact manifest.
package assembler

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

// StoryVideo is one promoted per-story output.
type StoryVideo struct {
	StoryID  string
	Path     string
	Duration float64
}

// Assembler renders story videos.
type Assembler struct {
	cfg    *config.Config
	store  *manifest.Store
	enc    encoder.Encoder
	logger *slog.Logger
}

// New wires the assembler's dependencies.
func New(cfg *config.Config, store *manifest.Store, enc encoder.Encoder, logger *slog.Logger) *Assembler {
	return &Assembler{
		cfg:    cfg,
		store:  store,
		enc:    enc,
		logger: logging.NewComponentLogger(logger, "assembler"),
	}
}

// ManifestKey identifies a story video artifact.
func ManifestKey(batch, name string) string {
	return "story/" + batch + "/" + name
}

// Assemble concatenates the bundle's clips in shot order with the mixed audio
// replacing all embedded sound, producing exactly the policy's total
// duration. A promoted story video that still matches on disk is reused
// unless force is set; reuse never touches the encoder.
func (a *Assembler) Assemble(ctx context.Context, bundle *assets.Bundle, mixPath string, force bool) (StoryVideo, error) {
	st := bundle.Story
	pol := bundle.Policy
	ctx = services.WithStage(services.WithStory(ctx, st.ID()), "assemble")
	log := logging.WithContext(ctx, a.logger)
	output := a.cfg.StoryVideoPath(st.Batch, st.Name)
	key := ManifestKey(st.Batch, st.Name)
	target := pol.TotalDuration()

	if !force {
		if artifact, ok := a.store.Valid(ctx, key, target, pol.DurationTolerance); ok {
			log.Info("story video up to date", logging.String("path", artifact.Path))
			return StoryVideo{StoryID: st.ID(), Path: artifact.Path, Duration: artifact.DurationSeconds}, nil
		}
	} else if err := a.store.Delete(ctx, key); err != nil {
		return StoryVideo{}, err
	}

	inputs, cleanup, err := a.prepareInputs(ctx, bundle)
	if err != nil {
		return StoryVideo{}, err
	}
	defer cleanup()

	log.Info("assembling story video",
		logging.Int("clips", len(inputs)),
		logging.Float64("duration", target),
	)

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return StoryVideo{}, services.Wrap(services.ErrTransient, "assembler", "ensure output directory", output, err)
	}
	temp := fileutil.TempSibling(output) + filepath.Ext(output)
	defer fileutil.RemoveQuiet(temp)

	spec := encoder.ConcatSpec{
		Inputs:     inputs,
		AudioTrack: mixPath,
		Duration:   target,
		FPS:        pol.FPS,
		VideoCodec: a.cfg.Output.VideoCodec,
		AudioCodec: a.cfg.Output.AudioCodec,
	}
	if err := a.enc.Concat(ctx, spec, temp); err != nil {
		return StoryVideo{}, err
	}
	if err := fileutil.Promote(temp, output); err != nil {
		return StoryVideo{}, services.Wrap(services.ErrTransient, "assembler", "promote story video", output, err)
	}

	checksum, err := fileutil.Checksum(output)
	if err != nil {
		return StoryVideo{}, services.Wrap(services.ErrTransient, "assembler", "checksum story video", output, err)
	}
	if err := a.store.Record(ctx, manifest.Artifact{
		Key:             key,
		Path:            output,
		DurationSeconds: target,
		Checksum:        checksum,
	}); err != nil {
		return StoryVideo{}, err
	}
	return StoryVideo{StoryID: st.ID(), Path: output, Duration: target}, nil
}

// prepareInputs returns the concat input list in shot order. Clips whose
// duration drifted beyond tolerance are first conformed in staging; the
// returned cleanup removes those intermediates.
func (a *Assembler) prepareInputs(ctx context.Context, bundle *assets.Bundle) ([]string, func(), error) {
	st := bundle.Story
	pol := bundle.Policy
	stagingDir := a.cfg.StoryStagingDir(st.Batch, st.Name)

	inputs := make([]string, 0, len(bundle.Clips))
	var staged []string
	cleanup := func() {
		for _, path := range staged {
			fileutil.RemoveQuiet(path)
		}
	}

	for _, clip := range bundle.Clips {
		if clip.Correction == assets.CorrectionNone {
			inputs = append(inputs, clip.Path)
			continue
		}

		if err := os.MkdirAll(stagingDir, 0o755); err != nil {
			cleanup()
			return nil, nil, services.Wrap(services.ErrTransient, "assembler", "ensure staging directory", stagingDir, err)
		}
		shotCtx := services.WithShot(ctx, clip.ShotID)
		conformed := filepath.Join(stagingDir, fmt.Sprintf("shot-%02d.mp4", clip.ShotID))
		logging.WithContext(shotCtx, a.logger).Info("conforming drifted clip",
			logging.Float64("drift", clip.Drift),
			logging.String("correction", clip.Correction.String()),
		)
		spec := encoder.NormalizeSpec{
			Input:    clip.Path,
			Duration: pol.ShotDuration,
			FPS:      pol.FPS,
			// Embedded audio is replaced wholesale by the mix downstream.
			Audio:      encoder.AudioDrop,
			VideoCodec: a.cfg.Output.VideoCodec,
		}
		if err := a.enc.Normalize(shotCtx, spec, conformed); err != nil {
			cleanup()
			return nil, nil, err
		}
		staged = append(staged, conformed)
		inputs = append(inputs, conformed)
	}
	return inputs, cleanup, nil
}
