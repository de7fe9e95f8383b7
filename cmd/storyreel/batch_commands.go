package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"storyreel/internal/config"
	"storyreel/internal/services"
)

func newBumperCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "bumper",
		Short: "Get or create the shared subscribe bumper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, closeRuntime, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer closeRuntime()

			runCtx, cancel := commandSignalContext(cmd)
			defer cancel()

			path, err := rt.bumpers.GetOrCreate(runCtx, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bumper: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even when the bumper is cached")
	return cmd
}

func newAggregateCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var output string

	cmd := &cobra.Command{
		Use:   "aggregate <descriptor.yaml>...",
		Short: "Join story videos into one final video, bumper between each",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, closeRuntime, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer closeRuntime()

			runCtx, cancel := commandSignalContext(cmd)
			defer cancel()

			batch := ""
			names := make([]string, 0, len(args))
			for _, arg := range args {
				st, err := loadStoryArg(rt, arg)
				if err != nil {
					return err
				}
				if batch == "" {
					batch = st.Batch
				} else if st.Batch != batch {
					return services.Wrap(services.ErrValidation, "aggregate", "collect stories",
						fmt.Sprintf("Stories span batches %s and %s; aggregate one batch at a time", batch, st.Batch), nil)
				}
				names = append(names, st.Name)
			}

			target := strings.TrimSpace(output)
			if target != "" {
				if target, err = config.ExpandPath(target); err != nil {
					return err
				}
			}
			path, err := rt.aggregator.Aggregate(runCtx, batch, names, target, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Final video: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even when the final video is up to date")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Final video path (default <output_dir>/<batch>/final.mp4)")
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var doAggregate bool
	var parallel int

	cmd := &cobra.Command{
		Use:   "run <batch-dir>",
		Short: "Assemble every story in a batch, optionally aggregating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, closeRuntime, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer closeRuntime()

			runCtx, cancel := commandSignalContext(cmd)
			defer cancel()

			if parallel > 0 {
				rt.cfg.Pipeline.Parallelism = parallel
			}
			batch, err := batchNameOf(rt.cfg, args[0])
			if err != nil {
				return err
			}

			summary, err := rt.runner.RunBatch(runCtx, batch, force, doAggregate)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(summary.Results))
			for _, result := range summary.Results {
				status, detail := "ok", result.Path
				if result.Err != nil {
					status, detail = "failed", result.Err.Error()
				}
				rows = append(rows, []string{result.StoryID, status, detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Story", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "Succeeded: %d  Failed: %d\n", summary.Succeeded(), summary.Failed())
			if summary.FinalPath != "" {
				fmt.Fprintf(out, "Final video: %s\n", summary.FinalPath)
			}
			return summary.FirstErr()
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild artifacts that are already up to date")
	cmd.Flags().BoolVar(&doAggregate, "aggregate", false, "Aggregate successful stories into the final video")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Max stories assembled concurrently (default from config)")
	return cmd
}

// batchNameOf accepts either a bare batch name or the path of a batch
// directory under the configured stories dir. A path anywhere else is
// rejected rather than silently re-rooted under the stories dir.
func batchNameOf(cfg *config.Config, arg string) (string, error) {
	if !strings.ContainsAny(arg, `/\`) {
		return arg, nil
	}
	expanded, err := config.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	storiesDir, err := config.ExpandPath(cfg.Paths.StoriesDir)
	if err != nil {
		return "", err
	}
	if filepath.Dir(expanded) != storiesDir {
		return "", services.Wrap(services.ErrValidation, "run", "resolve batch",
			fmt.Sprintf("%s is not a batch directory under %s", arg, storiesDir), nil)
	}
	return filepath.Base(expanded), nil
}
