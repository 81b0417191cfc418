package main

import (
	"github.com/spf13/cobra"

	"github.com/arumata/genback/internal/app"
	"github.com/arumata/genback/internal/usecase"
)

func newServeCmd(global *globalFlags, depsFactory depsFactoryFunc, exitCode *int) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run backups on the schedule.cron schedule until interrupted",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			state, logger, cleanup, err := prepareCommand(cmd, global, depsFactory)
			defer cleanup()
			if err != nil {
				handleCmdError(exitCode, err)
				return
			}
			cfg := state.runtimeCfg
			if schedule != "" {
				cfg.Schedule = schedule
			}
			app.ApplyRunMode(state.deps, logger, app.RunMode{Unattended: true})
			closeJournal, err := app.OpenJournal(cmd.Context(), state.deps, cfg.JournalPath, logger)
			if err != nil {
				logger.Warn("Run journal unavailable, history will not be recorded", "path", cfg.JournalPath, "error", err)
			}
			defer closeJournal()

			handleCmdError(exitCode, usecase.Serve(cmd.Context(), cfg, state.deps, logger))
		},
	}

	cmd.Flags().StringVar(&schedule, "cron", "", "cron expression (overrides schedule.cron), e.g. \"0 3 * * *\"")

	return cmd
}
