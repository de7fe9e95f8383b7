// Package aggregate joins a batch's story videos into one final video with
// the subscribe bumper interleaved strictly between consecutive stories.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"storyreel/internal/assembler"
	"storyreel/internal/bumper"
	"storyreel/internal/config"
	"storyreel/internal/fileutil"
	"storyreel/internal/logging"
	"storyreel/internal/manifest"
	"storyreel/internal/media/encoder"
	"storyreel/internal/media/ffprobe"
	"storyreel/internal/policy"
	"storyreel/internal/services"
)

// MissingStoryVideosError names every story in the batch whose video is
// absent, so one rerun can rebuild them all.
type MissingStoryVideosError struct {
	Batch string
	Names []string
}

func (e *MissingStoryVideosError) Error() string {
	return fmt.Sprintf("batch %s: missing story video(s) %s", e.Batch, strings.Join(e.Names, ", "))
}

func (e *MissingStoryVideosError) Unwrap() error { return services.ErrNotFound }

// Aggregator builds final batch videos.
type Aggregator struct {
	cfg     *config.Config
	pol     policy.Format
	store   *manifest.Store
	enc     encoder.Encoder
	bumpers *bumper.Provider
	logger  *slog.Logger

	// Probe is swappable so tests run without ffprobe installed.
	Probe ffprobe.Func
}

// New wires the aggregator's dependencies.
func New(cfg *config.Config, pol policy.Format, store *manifest.Store, enc encoder.Encoder, bumpers *bumper.Provider, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		cfg:     cfg,
		pol:     pol,
		store:   store,
		enc:     enc,
		bumpers: bumpers,
		logger:  logging.NewComponentLogger(logger, "aggregate"),
		Probe:   ffprobe.Inspect,
	}
}

// ManifestKey identifies a batch's final video artifact.
func ManifestKey(batch string) string {
	return "final/" + batch
}

// Aggregate concatenates the named stories' videos in order, bumper between
// each consecutive pair, and promotes the result to output (empty output
// uses the configured default). Every story video is validated before any
// encoding starts; a single-story batch gets no bumper at all.
func (a *Aggregator) Aggregate(ctx context.Context, batch string, names []string, output string, force bool) (string, error) {
	if len(names) == 0 {
		return "", services.Wrap(services.ErrValidation, "aggregate", "collect stories",
			fmt.Sprintf("Batch %s has no stories to aggregate", batch), nil)
	}
	ctx = services.WithStage(ctx, "aggregate")
	log := logging.WithContext(ctx, a.logger)
	if output == "" {
		output = a.cfg.FinalVideoPath(batch)
	}
	key := ManifestKey(batch)

	videos, missing, err := a.collect(ctx, batch, names)
	if err != nil {
		return "", err
	}
	if len(missing) > 0 {
		return "", &MissingStoryVideosError{Batch: batch, Names: missing}
	}

	expected := float64(len(names)) * a.pol.TotalDuration()
	var bumperPath string
	if len(names) > 1 {
		path, bumperDuration, err := a.bumperFor(ctx)
		if err != nil {
			return "", err
		}
		bumperPath = path
		expected += float64(len(names)-1) * bumperDuration
	}

	if !force {
		if artifact, ok := a.store.Valid(ctx, key, expected, a.pol.DurationTolerance); ok {
			log.Info("final video up to date",
				logging.String("batch", batch),
				logging.String("path", artifact.Path))
			return artifact.Path, nil
		}
	} else if err := a.store.Delete(ctx, key); err != nil {
		return "", err
	}

	inputs := make([]string, 0, 2*len(videos)-1)
	for i, video := range videos {
		if i > 0 && bumperPath != "" {
			inputs = append(inputs, bumperPath)
		}
		inputs = append(inputs, video)
	}

	log.Info("aggregating batch",
		logging.String("batch", batch),
		logging.Int("stories", len(names)),
		logging.Float64("duration", expected),
		logging.String("path", output),
	)

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "aggregate", "ensure output directory", output, err)
	}
	temp := fileutil.TempSibling(output) + filepath.Ext(output)
	defer fileutil.RemoveQuiet(temp)

	// Each input keeps its own audio: story videos carry their mixes, the
	// bumper carries its own track.
	spec := encoder.ConcatSpec{
		Inputs:     inputs,
		FPS:        a.pol.FPS,
		VideoCodec: a.cfg.Output.VideoCodec,
		AudioCodec: a.cfg.Output.AudioCodec,
	}
	if err := a.enc.Concat(ctx, spec, temp); err != nil {
		return "", err
	}
	if err := fileutil.Promote(temp, output); err != nil {
		return "", services.Wrap(services.ErrTransient, "aggregate", "promote final video", output, err)
	}

	checksum, err := fileutil.Checksum(output)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "aggregate", "checksum final video", output, err)
	}
	if err := a.store.Record(ctx, manifest.Artifact{
		Key:             key,
		Path:            output,
		DurationSeconds: expected,
		Checksum:        checksum,
	}); err != nil {
		return "", err
	}
	return output, nil
}

// collect validates every story video up front and returns their paths in
// input order plus the names of all absentees. Validation prefers the
// manifest; a video present on disk but unknown to the manifest (state wiped
// or built elsewhere) is probed and must run the policy's total duration,
// otherwise its story counts as missing.
func (a *Aggregator) collect(ctx context.Context, batch string, names []string) ([]string, []string, error) {
	videos := make([]string, 0, len(names))
	var missing []string
	for _, name := range names {
		if artifact, ok := a.store.Valid(ctx, assembler.ManifestKey(batch, name), a.pol.TotalDuration(), a.pol.DurationTolerance); ok {
			videos = append(videos, artifact.Path)
			continue
		}
		path := a.cfg.StoryVideoPath(batch, name)
		if a.verifyOnDisk(ctx, batch+"/"+name, path) {
			videos = append(videos, path)
			continue
		}
		missing = append(missing, name)
	}
	return videos, missing, nil
}

// verifyOnDisk probes a story video the manifest does not vouch for and
// accepts it only at the policy's total duration, within tolerance.
func (a *Aggregator) verifyOnDisk(ctx context.Context, storyID, path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return false
	}
	result, err := a.Probe(ctx, a.cfg.FFprobeBinary(), path)
	if err != nil {
		a.logger.Warn("story video not in manifest and unreadable, treating as missing",
			logging.String(logging.FieldStory, storyID),
			logging.String("path", path),
			logging.Error(err))
		return false
	}
	duration := result.DurationSeconds()
	if math.Abs(duration-a.pol.TotalDuration()) > a.pol.DurationTolerance {
		a.logger.Warn("story video not in manifest and off target duration, treating as missing",
			logging.String(logging.FieldStory, storyID),
			logging.String("path", path),
			logging.Float64("duration", duration),
			logging.Float64("expected", a.pol.TotalDuration()))
		return false
	}
	a.logger.Warn("story video not in manifest, verified file on disk",
		logging.String(logging.FieldStory, storyID),
		logging.String("path", path))
	return true
}

func (a *Aggregator) bumperFor(ctx context.Context) (string, float64, error) {
	path, err := a.bumpers.GetOrCreate(ctx, false)
	if err != nil {
		return "", 0, err
	}
	artifact, err := a.store.Get(ctx, bumper.ManifestKey)
	if err != nil {
		return "", 0, err
	}
	if artifact == nil {
		return "", 0, services.Wrap(services.ErrNotFound, "aggregate", "load bumper artifact", path, nil)
	}
	return path, artifact.DurationSeconds, nil
}
