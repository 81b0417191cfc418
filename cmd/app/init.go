package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arumata/genback/internal/usecase"
)

func newInitCmd(global *globalFlags, depsFactory depsFactoryFunc, exitCode *int) *cobra.Command {
	var (
		destination string
		sources     []string
		force       bool
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			logger := setupLogger(global.verbose)
			deps := depsFactory(logger)
			homeDir, err := os.UserHomeDir()
			if err != nil {
				handleCmdError(exitCode, fmt.Errorf("resolve home dir: %w", usecase.ErrCritical))
				return
			}
			opts := usecase.InitOptions{
				Destination: destination,
				Sources:     sources,
				Force:       force,
				DryRun:      dryRun,
				HomeDir:     homeDir,
				ConfigPath:  global.configPath,
			}
			path, err := usecase.Init(cmd.Context(), opts, deps, logger)
			if err != nil {
				handleCmdError(exitCode, err)
				return
			}
			if !dryRun {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
			}
			*exitCode = exitSuccess
		},
	}

	cmd.Flags().StringVar(
		&destination, "dest", "",
		"backup destination directory (e.g. "+usecase.SuggestedDestination+")",
	)
	cmd.Flags().StringArrayVar(&sources, "source", nil, "directory to back up (repeatable)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config (the old one is kept as .bak)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan changes without writing to disk")

	for _, name := range []string{"dest", "source"} {
		_ = cmd.RegisterFlagCompletionFunc(name,
			func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
				return nil, cobra.ShellCompDirectiveFilterDirs
			},
		)
	}

	return cmd
}
