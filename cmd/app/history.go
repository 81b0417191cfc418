package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arumata/genback/internal/app"
	"github.com/arumata/genback/internal/usecase"
)

func newHistoryCmd(global *globalFlags, depsFactory depsFactoryFunc, exitCode *int) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent backup runs from the run journal",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			state, logger, cleanup, err := prepareCommand(cmd, global, depsFactory)
			defer cleanup()
			if err != nil {
				handleCmdError(exitCode, err)
				return
			}
			closeJournal, err := app.OpenJournal(cmd.Context(), state.deps, state.runtimeCfg.JournalPath, logger)
			if err != nil {
				handleCmdError(exitCode, fmt.Errorf("open journal: %v: %w", err, usecase.ErrCritical))
				return
			}
			defer closeJournal()

			records, err := usecase.History(cmd.Context(), state.deps, limit, logger)
			if err != nil {
				handleCmdError(exitCode, err)
				return
			}
			if _, err := fmt.Fprint(cmd.OutOrStdout(), usecase.FormatHistory(records, shouldUseColor(os.Stdout))); err != nil {
				handleCmdError(exitCode, err)
				return
			}
			*exitCode = exitSuccess
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")

	return cmd
}
