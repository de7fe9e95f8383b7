package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"storyreel/internal/assets"
	"storyreel/internal/config"
	"storyreel/internal/story"
)

func loadStoryArg(rt *runtime, arg string) (*story.Story, error) {
	path, err := config.ExpandPath(arg)
	if err != nil {
		return nil, err
	}
	return story.Load(path, rt.pol.ShotCount)
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "resolve <descriptor.yaml>",
		Short: "Validate a story's clips and audio assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, closeRuntime, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer closeRuntime()

			runCtx, cancel := commandSignalContext(cmd)
			defer cancel()

			st, err := loadStoryArg(rt, args[0])
			if err != nil {
				return err
			}

			if wait {
				waitCtx := runCtx
				if timeout := rt.cfg.Pipeline.WaitTimeoutSeconds; timeout > 0 {
					var cancelWait context.CancelFunc
					waitCtx, cancelWait = context.WithTimeout(runCtx, time.Duration(timeout)*time.Second)
					defer cancelWait()
				}
				clipsDir := rt.cfg.ClipsDir(st.Batch, st.Name)
				if err := assets.AwaitClips(waitCtx, clipsDir, rt.pol.ShotCount, rt.logger); err != nil {
					return err
				}
			}

			bundle, err := rt.resolver.Resolve(runCtx, st)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Story %s (%s)\n", st.ID(), st.DisplayTitle())
			fmt.Fprintln(out, renderTable(
				[]string{"Shot", "Clip", "Duration", "Drift", "Correction", "Diegetic"},
				bundle.ReportRows(),
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			background := "none (silent fallback)"
			if bundle.Background != nil {
				background = fmt.Sprintf("%s (%.2fs, looped)", bundle.Background.Path, bundle.Background.Duration)
			}
			fmt.Fprintf(out, "Background: %s\n", background)
			fmt.Fprintf(out, "Corrections needed: %d\n", len(bundle.CorrectionsNeeded()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Block until every expected clip exists")
	return cmd
}

func newMixCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "mix <descriptor.yaml>",
		Short: "Render a story's mixed audio track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, closeRuntime, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer closeRuntime()

			runCtx, cancel := commandSignalContext(cmd)
			defer cancel()

			st, err := loadStoryArg(rt, args[0])
			if err != nil {
				return err
			}
			bundle, err := rt.resolver.Resolve(runCtx, st)
			if err != nil {
				return err
			}
			path, err := rt.mixer.Mix(runCtx, bundle, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Mixed audio: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even when the mix is up to date")
	return cmd
}

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "assemble <descriptor.yaml>",
		Short: "Build a story video from its clips and mix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, closeRuntime, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer closeRuntime()

			runCtx, cancel := commandSignalContext(cmd)
			defer cancel()

			st, err := loadStoryArg(rt, args[0])
			if err != nil {
				return err
			}
			path, err := rt.runner.RunStory(runCtx, st, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Story video: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even when the story video is up to date")
	return cmd
}
