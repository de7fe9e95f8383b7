// Package pipeline orchestrates the per-story stages over a whole batch:
// resolve assets, render the mix, assemble the story video, and optionally
// aggregate the batch. Stories are independent; one story's failure never
// stops its siblings.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"storyreel/internal/aggregate"
	"storyreel/internal/assembler"
	"storyreel/internal/assets"
	"storyreel/internal/audiomix"
	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/policy"
	"storyreel/internal/services"
	"storyreel/internal/story"
)

// StoryResult is the outcome of one story's run.
type StoryResult struct {
	StoryID string
	Path    string
	Err     error
}

// Summary is the outcome of a batch run.
type Summary struct {
	Batch     string
	Results   []StoryResult
	FinalPath string
	// Err carries the aggregation failure, if any. Per-story failures live
	// in Results.
	Err error
}

// Succeeded counts the stories that produced a video.
func (s *Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts the stories that did not.
func (s *Summary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

// FirstErr returns the aggregation error or the first story failure, so the
// CLI can pick an exit status for the whole run.
func (s *Summary) FirstErr() error {
	if s.Err != nil {
		return s.Err
	}
	for _, r := range s.Results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// Runner drives the batch pipeline.
type Runner struct {
	cfg        *config.Config
	pol        policy.Format
	resolver   *assets.Resolver
	mixer      *audiomix.Mixer
	assembler  *assembler.Assembler
	aggregator *aggregate.Aggregator
	logger     *slog.Logger
}

// NewRunner wires the runner's stages. aggregator may be nil when the caller
// never aggregates.
func NewRunner(cfg *config.Config, pol policy.Format, resolver *assets.Resolver, mixer *audiomix.Mixer, asm *assembler.Assembler, aggregator *aggregate.Aggregator, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		pol:        pol,
		resolver:   resolver,
		mixer:      mixer,
		assembler:  asm,
		aggregator: aggregator,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// RunStory takes one story through resolve, mix, and assemble. Every log
// line under it carries the story id and a run correlation id.
func (r *Runner) RunStory(ctx context.Context, st *story.Story, force bool) (string, error) {
	ctx = ensureRunID(ctx)
	ctx = services.WithStory(ctx, st.ID())

	bundle, err := r.resolver.Resolve(ctx, st)
	if err != nil {
		return "", err
	}
	mixPath, err := r.mixer.Mix(ctx, bundle, force)
	if err != nil {
		return "", err
	}
	video, err := r.assembler.Assemble(ctx, bundle, mixPath, force)
	if err != nil {
		return "", err
	}
	return video.Path, nil
}

// RunBatch processes every story in the batch with bounded parallelism, then
// aggregates the survivors when doAggregate is set. Results keep the
// discovery order of the descriptors.
func (r *Runner) RunBatch(ctx context.Context, batch string, force, doAggregate bool) (*Summary, error) {
	ctx = ensureRunID(ctx)
	batchDir := filepath.Join(r.cfg.Paths.StoriesDir, batch)
	paths, err := story.DiscoverBatch(batchDir)
	if err != nil {
		return nil, err
	}

	stories := make([]*story.Story, 0, len(paths))
	summary := &Summary{Batch: batch}
	for _, path := range paths {
		st, err := story.Load(path, r.pol.ShotCount)
		if err != nil {
			// A malformed descriptor fails its story, not the batch.
			summary.Results = append(summary.Results, StoryResult{StoryID: batch + "/" + storyNameOf(path), Err: err})
			continue
		}
		stories = append(stories, st)
		summary.Results = append(summary.Results, StoryResult{StoryID: st.ID()})
	}

	parallelism := r.cfg.Pipeline.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

	slots := make(map[string]*StoryResult, len(summary.Results))
	for i := range summary.Results {
		slots[summary.Results[i].StoryID] = &summary.Results[i]
	}

	for _, st := range stories {
		wg.Add(1)
		go func(st *story.Story) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			path, err := r.RunStory(ctx, st, force)
			slot := slots[st.ID()]
			slot.Path = path
			slot.Err = err
			if err != nil {
				r.logger.Error("story failed",
					logging.String(logging.FieldStory, st.ID()),
					logging.Error(err))
			}
		}(st)
	}
	wg.Wait()

	r.logger.Info("batch complete",
		logging.String("batch", batch),
		logging.Int("succeeded", summary.Succeeded()),
		logging.Int("failed", summary.Failed()),
	)

	if doAggregate && r.aggregator != nil {
		names := make([]string, 0, len(summary.Results))
		for _, result := range summary.Results {
			if result.Err == nil {
				names = append(names, storyNameOf(result.StoryID))
			}
		}
		finalPath, err := r.aggregator.Aggregate(ctx, batch, names, "", force)
		if err != nil {
			summary.Err = err
		} else {
			summary.FinalPath = finalPath
		}
	}
	return summary, nil
}

// ensureRunID gives the run a correlation id when the caller did not mint
// one, so stories processed together can be tied back to one invocation.
func ensureRunID(ctx context.Context) context.Context {
	if _, ok := services.RunIDFromContext(ctx); ok {
		return ctx
	}
	return services.WithRunID(ctx, uuid.NewString())
}

// storyNameOf extracts the bare story name from a descriptor path or a
// batch/name id.
func storyNameOf(s string) string {
	base := filepath.Base(strings.ReplaceAll(s, "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
