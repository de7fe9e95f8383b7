package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the artifact manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, closeRuntime, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer closeRuntime()

			runCtx, cancel := commandSignalContext(cmd)
			defer cancel()

			artifacts, err := rt.store.List(runCtx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(artifacts) == 0 {
				fmt.Fprintln(out, "No artifacts recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(artifacts))
			for _, artifact := range artifacts {
				rows = append(rows, []string{
					artifact.Key,
					fmt.Sprintf("%.2fs", artifact.DurationSeconds),
					string(artifact.Status),
					artifact.UpdatedAt.Local().Format(time.DateTime),
					artifact.Path,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Artifact", "Duration", "Status", "Updated", "Path"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
