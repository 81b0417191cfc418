package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/spf13/cobra"

	"github.com/arumata/genback/internal/adapters/loghandler"
	"github.com/arumata/genback/internal/app"
	"github.com/arumata/genback/internal/usecase"
)

func main() {
	os.Exit(runMain())
}

func runMain() int {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
		syscall.SIGHUP,
	)
	defer stop()

	cmd, exitCode := newRootCmd(
		app.NewDefaultDependencies,
		func(ctx context.Context, cfg *usecase.Config, deps *usecase.Dependencies, logger *slog.Logger) (*usecase.RunReport, error) {
			return usecase.Backup(ctx, cfg, deps, logger)
		},
	)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsageError
	}
	return *exitCode
}

type depsFactoryFunc func(*slog.Logger) *usecase.Dependencies

type backupFunc func(context.Context, *usecase.Config, *usecase.Dependencies, *slog.Logger) (*usecase.RunReport, error)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
}

// rootFlags override config file values for one run.
type rootFlags struct {
	dryRun         bool
	sources        []string
	destination    string
	keep           int
	workers        int
	nonInteractive bool
	quiet          bool
}

func newRootCmd(depsFactory depsFactoryFunc, run backupFunc) (*cobra.Command, *int) {
	exitCode := 0
	global := &globalFlags{}
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "genback",
		Short:         "Incremental snapshot backups to a local or network destination",
		SilenceUsage:  false,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			exitCode = runRootCommand(cmd, global, flags, depsFactory, run)
		},
	}
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().BoolVarP(&global.verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&global.configPath, "config", "", "config file (default ~/.config/genback/config.toml)")

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "show what would be copied and removed without writing")
	cmd.Flags().StringArrayVar(&flags.sources, "source", nil, "source directory (repeatable, replaces backup.sources)")
	cmd.Flags().StringVar(&flags.destination, "dest", "", "destination directory (overrides backup.destination)")
	cmd.Flags().IntVar(&flags.keep, "keep", 0, "number of snapshots to keep (overrides backup.keep)")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "parallel copy workers (overrides backup.workers)")
	cmd.Flags().BoolVar(&flags.nonInteractive, "non-interactive", false, "never prompt; abort when the destination stays unreachable")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "hide the progress bar")

	cmd.AddCommand(newInitCmd(global, depsFactory, &exitCode))
	cmd.AddCommand(newListCmd(global, depsFactory, &exitCode))
	cmd.AddCommand(newHistoryCmd(global, depsFactory, &exitCode))
	cmd.AddCommand(newServeCmd(global, depsFactory, &exitCode))
	cmd.AddCommand(newVersionCmd())

	return cmd, &exitCode
}

func runRootCommand(
	cmd *cobra.Command,
	global *globalFlags,
	flags *rootFlags,
	depsFactory depsFactoryFunc,
	run backupFunc,
) int {
	ctx := cmd.Context()
	logger := setupLogger(global.verbose)

	state, err := initRootState(ctx, depsFactory, logger, global.configPath)
	if err != nil {
		return mapExitCodeWithLog(err)
	}
	cfg := state.runtimeCfg
	if err := applyFlagOverrides(cmd, cfg, flags, state.homeDir); err != nil {
		return mapExitCodeWithLog(err)
	}
	cfg.Verbose = global.verbose

	fileLogger, cleanup := withFileLogging(logger, state.configFile.Logging, global.verbose)
	defer cleanup()
	logger = fileLogger
	logger.Info("Starting genback", "config", state.configPath, "config_found", state.configExists)

	if cfg.Destination == "" {
		fmt.Fprintln(os.Stderr, "backup.destination not configured (run: genback init --dest <path>)")
		return exitUsageError
	}

	app.ApplyRunMode(state.deps, logger, app.RunMode{
		NonInteractive: flags.nonInteractive,
		Quiet:          flags.quiet,
	})
	if !cfg.DryRun {
		closeJournal, err := app.OpenJournal(ctx, state.deps, cfg.JournalPath, logger)
		if err != nil {
			logger.Warn("Run journal unavailable, history will not be recorded", "path", cfg.JournalPath, "error", err)
		}
		defer closeJournal()
	}

	report, err := run(ctx, cfg, state.deps, logger)
	if report != nil {
		_, _ = fmt.Fprint(os.Stdout, "\n"+usecase.FormatRunReport(report, state.homeDir, shouldUseColor(os.Stdout)))
	}
	return runExitCode(report, err)
}

// runExitCode maps a finished run to the process exit code.
func runExitCode(report *usecase.RunReport, err error) int {
	if err != nil {
		return mapExitCode(err)
	}
	if report != nil && (report.Replication.Failed > 0 || len(report.Retention.Failures) > 0) {
		return exitPartial
	}
	return exitSuccess
}

type rootState struct {
	deps         *usecase.Dependencies
	configFile   usecase.ConfigFile
	runtimeCfg   *usecase.Config
	configPath   string
	configExists bool
	homeDir      string
}

func initRootState(
	ctx context.Context,
	depsFactory depsFactoryFunc,
	logger *slog.Logger,
	configPath string,
) (rootState, error) {
	deps := depsFactory(logger)
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return rootState{}, fmt.Errorf("resolve home dir: %v: %w", err, usecase.ErrCritical)
	}
	if strings.TrimSpace(configPath) == "" {
		configPath = usecase.DefaultConfigPath(deps.FileSystem, homeDir)
	} else {
		configPath = usecase.ExpandHomeDirPublic(configPath, homeDir)
	}
	configFile, configExists, err := loadConfigFile(ctx, deps, configPath)
	if err != nil {
		return rootState{}, err
	}
	runtimeCfg, err := usecase.RuntimeConfigFromFile(configFile, homeDir)
	if err != nil {
		return rootState{}, err
	}
	return rootState{
		deps:         deps,
		configFile:   configFile,
		runtimeCfg:   runtimeCfg,
		configPath:   configPath,
		configExists: configExists,
		homeDir:      homeDir,
	}, nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *usecase.Config, flags *rootFlags, homeDir string) error {
	cfg.DryRun = flags.dryRun
	if len(flags.sources) > 0 {
		cfg.Sources = cfg.Sources[:0:0]
		for _, src := range flags.sources {
			cfg.Sources = append(cfg.Sources, usecase.ExpandHomeDirPublic(src, homeDir))
		}
	}
	if flags.destination != "" {
		cfg.Destination = usecase.ExpandHomeDirPublic(flags.destination, homeDir)
	}
	if cmd.Flags().Changed("keep") {
		if flags.keep < 1 {
			return fmt.Errorf("--keep must be at least 1, got %d: %w", flags.keep, usecase.ErrUsage)
		}
		cfg.Keep = flags.keep
	}
	if cmd.Flags().Changed("workers") {
		if flags.workers < 1 {
			return fmt.Errorf("--workers must be at least 1, got %d: %w", flags.workers, usecase.ErrUsage)
		}
		cfg.Workers = flags.workers
	}
	return nil
}

func mapExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	switch {
	case errors.Is(err, usecase.ErrUsage):
		return exitUsageError
	case errors.Is(err, usecase.ErrUnavailable):
		return exitUnavailable
	case errors.Is(err, usecase.ErrInterrupted), errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitCriticalError
	}
}

func loadConfigFile(
	ctx context.Context,
	deps *usecase.Dependencies,
	configPath string,
) (usecase.ConfigFile, bool, error) {
	if deps == nil || deps.Config == nil || deps.FileSystem == nil {
		return usecase.ConfigFile{}, false, fmt.Errorf("dependencies not available: %w", usecase.ErrCritical)
	}
	info, err := deps.FileSystem.Stat(ctx, configPath)
	exists := false
	if err == nil {
		if info != nil && info.IsDir() {
			return usecase.ConfigFile{}, false, fmt.Errorf("config path is a directory: %w", usecase.ErrUsage)
		}
		exists = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return usecase.ConfigFile{}, false, fmt.Errorf("stat config: %w", usecase.ErrCritical)
	}
	cfg, err := deps.Config.Load(ctx, configPath)
	if err != nil {
		return usecase.ConfigFile{}, false, fmt.Errorf("load config %s: %v: %w", configPath, err, usecase.ErrUsage)
	}
	return cfg, exists, nil
}

func setupLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	home, _ := os.UserHomeDir()
	handler := loghandler.NewHandler(os.Stderr, &loghandler.Options{
		Level:    level,
		UseColor: shouldUseColor(os.Stderr),
		HomeDir:  home,
	})
	return slog.New(handler)
}

func withFileLogging(
	logger *slog.Logger,
	logCfg usecase.LoggingConfig,
	verbose bool,
) (*slog.Logger, func()) {
	dir := strings.TrimSpace(logCfg.Dir)
	if dir == "" {
		return logger, func() {}
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Warn("Cannot resolve home dir for log file", "error", err)
		return logger, func() {}
	}
	expanded := usecase.ExpandHomeDirPublic(dir, homeDir)
	if err := os.MkdirAll(expanded, 0o750); err != nil {
		logger.Warn("Cannot create log directory", "path", expanded, "error", err)
		return logger, func() {}
	}
	filename := "genback-" + time.Now().Format("2006-01-02") + ".log"
	logPath := filepath.Join(expanded, filename)

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path from config
	if err != nil {
		logger.Warn("Cannot open log file", "path", logPath, "error", err)
		return logger, func() {}
	}

	fileLevel := parseLogLevel(logCfg.Level)
	if verbose && fileLevel > slog.LevelDebug {
		fileLevel = slog.LevelDebug
	}
	fileHandler := loghandler.NewHandler(f, &loghandler.Options{
		Level:      fileLevel,
		UseColor:   false,
		TimeLayout: loghandler.FileTimeLayout,
	})

	stderrHandler := logger.Handler()
	combined := loghandler.NewMultiHandler(stderrHandler, fileHandler)
	return slog.New(combined), func() { _ = f.Close() }
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func shouldUseColor(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// prepareCommand loads config for a subcommand and sets up file logging.
// The returned cleanup must be called when the command finishes.
func prepareCommand(
	cmd *cobra.Command,
	global *globalFlags,
	depsFactory depsFactoryFunc,
) (rootState, *slog.Logger, func(), error) {
	logger := setupLogger(global.verbose)
	state, err := initRootState(cmd.Context(), depsFactory, logger, global.configPath)
	if err != nil {
		return rootState{}, logger, func() {}, err
	}
	state.runtimeCfg.Verbose = global.verbose
	fileLogger, cleanup := withFileLogging(logger, state.configFile.Logging, global.verbose)
	return state, fileLogger, cleanup, nil
}
