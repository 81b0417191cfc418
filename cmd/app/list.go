package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arumata/genback/internal/usecase"
)

func newListCmd(global *globalFlags, depsFactory depsFactoryFunc, exitCode *int) *cobra.Command {
	var scan bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List snapshots at the destination, most recent first",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			state, logger, cleanup, err := prepareCommand(cmd, global, depsFactory)
			defer cleanup()
			if err != nil {
				handleCmdError(exitCode, err)
				return
			}
			opts := usecase.ListOptions{Scan: scan, HomeDir: state.homeDir}
			report, err := usecase.ListSnapshots(cmd.Context(), state.runtimeCfg, state.deps, opts, logger)
			if err != nil {
				handleCmdError(exitCode, err)
				return
			}
			out := usecase.FormatSnapshotList(report, opts, shouldUseColor(os.Stdout))
			if _, err := fmt.Fprint(cmd.OutOrStdout(), out); err != nil {
				handleCmdError(exitCode, err)
				return
			}
			*exitCode = exitSuccess
		},
	}

	cmd.Flags().BoolVar(&scan, "scan", false, "count files and bytes in every snapshot")

	return cmd
}
