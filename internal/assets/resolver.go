package assets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/media/ffprobe"
	"storyreel/internal/policy"
	"storyreel/internal/services"
	"storyreel/internal/story"
)

// sidecar extensions checked, in priority order, for per-shot diegetic audio
// at <clips_dir>/<shot_id>.sfx.<ext>.
var diegeticExtensions = []string{".m4a", ".wav", ".mp3"}

// Resolver locates and validates every input a story needs before any
// encoding starts.
type Resolver struct {
	cfg    *config.Config
	pol    policy.Format
	logger *slog.Logger

	// Probe is swappable so tests run without ffprobe installed.
	Probe ffprobe.Func
}

// NewResolver builds a resolver governed by the given format policy.
func NewResolver(cfg *config.Config, pol policy.Format, logger *slog.Logger) *Resolver {
	return &Resolver{
		cfg:    cfg,
		pol:    pol,
		logger: logging.NewComponentLogger(logger, "assets"),
		Probe:  ffprobe.Inspect,
	}
}

// Resolve discovers the clip set, background track, and diegetic sidecars for
// a story. Discovery order on disk is irrelevant; the returned bundle lists
// clips by ascending shot id. Any gap or undecodable file fails the whole
// story before a single frame is encoded.
func (r *Resolver) Resolve(ctx context.Context, st *story.Story) (*Bundle, error) {
	ctx = services.WithStage(services.WithStory(ctx, st.ID()), "resolve")
	clipsDir := r.cfg.ClipsDir(st.Batch, st.Name)
	found, err := discoverClips(clipsDir, r.pol.ShotCount)
	if err != nil {
		return nil, err
	}

	var missing []int
	for id := 1; id <= r.pol.ShotCount; id++ {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingShotsError{StoryID: st.ID(), ShotIDs: missing}
	}

	bundle := &Bundle{
		Story:    st,
		Policy:   r.pol,
		Clips:    make([]ClipAsset, 0, r.pol.ShotCount),
		Diegetic: make(map[int]AudioAsset),
	}

	for id := 1; id <= r.pol.ShotCount; id++ {
		clip, err := r.inspectClip(ctx, st, id, found[id])
		if err != nil {
			return nil, err
		}
		bundle.Clips = append(bundle.Clips, clip)

		if audio, ok, err := r.resolveDiegetic(ctx, st, clipsDir, id); err != nil {
			return nil, err
		} else if ok {
			bundle.Diegetic[id] = audio
		}
	}

	background, err := r.resolveBackground(ctx, st)
	if err != nil {
		return nil, err
	}
	bundle.Background = background

	logging.WithContext(ctx, r.logger).Info("story assets resolved",
		logging.Int("clips", len(bundle.Clips)),
		logging.Int("diegetic", len(bundle.Diegetic)),
		logging.Int("corrections", len(bundle.CorrectionsNeeded())),
		logging.Bool("background", bundle.Background != nil),
	)
	return bundle, nil
}

func (r *Resolver) inspectClip(ctx context.Context, st *story.Story, shotID int, path string) (ClipAsset, error) {
	ctx = services.WithShot(ctx, shotID)
	result, err := r.Probe(ctx, r.cfg.FFprobeBinary(), path)
	if err != nil {
		return ClipAsset{}, &UnreadableAssetError{StoryID: st.ID(), Path: path, Err: err}
	}
	video, ok := result.VideoStream()
	if !ok {
		return ClipAsset{}, &UnreadableAssetError{StoryID: st.ID(), Path: path,
			Err: fmt.Errorf("no video stream")}
	}

	clip := ClipAsset{
		ShotID:   shotID,
		Path:     path,
		Duration: result.DurationSeconds(),
		Width:    video.Width,
		Height:   video.Height,
		Codec:    video.CodecName,
	}
	clip.Drift = clip.Duration - r.pol.ShotDuration
	if !r.pol.WithinTolerance(clip.Duration) {
		if clip.Drift > 0 {
			clip.Correction = CorrectionTrim
		} else {
			clip.Correction = CorrectionPad
		}
		logging.WithContext(ctx, r.logger).Warn("clip duration drifted",
			logging.Float64("duration", clip.Duration),
			logging.Float64("expected", r.pol.ShotDuration),
			logging.String("correction", clip.Correction.String()),
		)
	}
	return clip, nil
}

func (r *Resolver) resolveDiegetic(ctx context.Context, st *story.Story, clipsDir string, shotID int) (AudioAsset, bool, error) {
	for _, ext := range diegeticExtensions {
		path := filepath.Join(clipsDir, fmt.Sprintf("%d.sfx%s", shotID, ext))
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		result, err := r.Probe(ctx, r.cfg.FFprobeBinary(), path)
		if err != nil {
			return AudioAsset{}, false, &UnreadableAssetError{StoryID: st.ID(), Path: path, Err: err}
		}
		return AudioAsset{Path: path, Duration: result.DurationSeconds()}, true, nil
	}
	return AudioAsset{}, false, nil
}

func (r *Resolver) resolveBackground(ctx context.Context, st *story.Story) (*AudioAsset, error) {
	path := r.cfg.BackgroundTrack()
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		if r.cfg.Audio.AllowSilent {
			logging.WithContext(ctx, r.logger).Warn("background track missing, assembling without music",
				logging.String("path", path))
			return nil, nil
		}
		return nil, &BackgroundMissingError{Path: path}
	}
	result, err := r.Probe(ctx, r.cfg.FFprobeBinary(), path)
	if err != nil {
		return nil, &UnreadableAssetError{StoryID: st.ID(), Path: path, Err: err}
	}
	duration := result.DurationSeconds()
	if duration <= 0 {
		return nil, &UnreadableAssetError{StoryID: st.ID(), Path: path,
			Err: fmt.Errorf("zero duration")}
	}
	return &AudioAsset{Path: path, Duration: duration, Loop: true}, nil
}

// discoverClips maps shot ids to clip paths found in dir. Only files named
// <digits>.mp4 count; anything else in the directory is ignored.
func discoverClips(dir string, shotCount int) (map[int]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			// An absent directory reads the same as an empty one: every
			// shot is missing, and the caller reports them all.
			return map[int]string{}, nil
		}
		return nil, fmt.Errorf("read clips directory %s: %w", dir, err)
	}

	found := make(map[int]string, shotCount)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".mp4") {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		id, err := strconv.Atoi(stem)
		if err != nil || id < 1 || id > shotCount {
			continue
		}
		found[id] = filepath.Join(dir, name)
	}
	return found, nil
}

// PresentShots lists the shot ids whose clips currently exist, sorted. Used
// by the waiter to report progress.
func PresentShots(dir string, shotCount int) ([]int, error) {
	found, err := discoverClips(dir, shotCount)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}
