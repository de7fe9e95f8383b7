package main

import (
	"context"
	"log/slog"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"storyreel/internal/aggregate"
	"storyreel/internal/assembler"
	"storyreel/internal/assets"
	"storyreel/internal/audiomix"
	"storyreel/internal/bumper"
	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/manifest"
	"storyreel/internal/media/encoder"
	"storyreel/internal/pipeline"
	"storyreel/internal/policy"
	"storyreel/internal/services"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime bundles the wired pipeline stages for one command invocation.
type runtime struct {
	cfg        *config.Config
	pol        policy.Format
	logger     *slog.Logger
	store      *manifest.Store
	resolver   *assets.Resolver
	mixer      *audiomix.Mixer
	assembler  *assembler.Assembler
	bumpers    *bumper.Provider
	aggregator *aggregate.Aggregator
	runner     *pipeline.Runner
}

// openRuntime wires every stage against the loaded configuration. The
// returned closer releases the manifest store.
func (c *commandContext) openRuntime() (*runtime, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	pol, err := cfg.FormatPolicy()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := manifest.Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	enc := encoder.NewFFmpeg(cfg.FFmpegBinary(), logger)
	resolver := assets.NewResolver(cfg, pol, logger)
	mixer := audiomix.NewMixer(cfg, store, enc, logger)
	asm := assembler.New(cfg, store, enc, logger)
	bumpers := bumper.NewProvider(cfg, pol, store, enc, logger)
	aggregator := aggregate.New(cfg, pol, store, enc, bumpers, logger)

	rt := &runtime{
		cfg:        cfg,
		pol:        pol,
		logger:     logger,
		store:      store,
		resolver:   resolver,
		mixer:      mixer,
		assembler:  asm,
		bumpers:    bumpers,
		aggregator: aggregator,
		runner:     pipeline.NewRunner(cfg, pol, resolver, mixer, asm, aggregator, logger),
	}
	return rt, func() { _ = store.Close() }, nil
}

// commandSignalContext cancels on SIGINT/SIGTERM so ffmpeg children are
// reaped instead of orphaned, and tags the invocation with a run id that
// shows up on every log line under it.
func commandSignalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	return services.WithRunID(ctx, uuid.NewString()), cancel
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
