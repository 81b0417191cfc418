package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const initBackupTimeFormat = "20060102-150405"

// SuggestedDestination is the example shown when --dest is missing.
const SuggestedDestination = "/mnt/backup/genback"

// InitOptions describes init behavior.
type InitOptions struct {
	Destination string
	Sources     []string
	Force       bool
	DryRun      bool
	HomeDir     string
	// ConfigPath overrides the default config location.
	ConfigPath string
}

// DefaultConfigPath returns the default config file location under homeDir.
func DefaultConfigPath(fs FileSystemPort, homeDir string) string {
	return fs.Join(homeDir, ".config", "genback", "config.toml")
}

// Init writes a configuration file with the given destination and sources.
// It returns the path of the written (or, with DryRun, planned) config.
func Init(ctx context.Context, opts InitOptions, deps *Dependencies, logger *slog.Logger) (string, error) {
	if logger == nil {
		panic("logger is required")
	}
	if ctx.Err() != nil {
		return "", ErrInterrupted
	}
	if err := validateInitDependencies(deps); err != nil {
		return "", err
	}
	homeDir := strings.TrimSpace(opts.HomeDir)
	if homeDir == "" {
		return "", fmt.Errorf("home directory is empty: %w", ErrCritical)
	}
	if strings.TrimSpace(opts.Destination) == "" {
		return "", fmt.Errorf("--dest flag is required (e.g. %s): %w", SuggestedDestination, ErrUsage)
	}

	configPath := strings.TrimSpace(opts.ConfigPath)
	if configPath == "" {
		configPath = DefaultConfigPath(deps.FileSystem, homeDir)
	} else {
		configPath = expandHomeDir(configPath, homeDir)
	}

	cfg := DefaultConfigFile()
	cfg.Backup.Destination = strings.TrimSpace(opts.Destination)
	for _, src := range opts.Sources {
		if clean := strings.TrimSpace(src); clean != "" {
			cfg.Backup.Sources = append(cfg.Backup.Sources, clean)
		}
	}
	if len(cfg.Backup.Sources) == 0 {
		logger.WarnContext(ctx, "No sources given, edit backup.sources before the first run", "config", configPath)
	}

	if err := ensureConfig(ctx, opts, deps, configPath, cfg); err != nil {
		return "", err
	}
	if err := ensureLogDir(ctx, deps, homeDir, cfg, opts.DryRun); err != nil {
		return "", err
	}

	if opts.DryRun {
		logger.InfoContext(ctx, "Dry run: would write config", "path", configPath)
	} else {
		logger.InfoContext(ctx, "Init completed", "config", configPath)
	}
	return configPath, nil
}

func validateInitDependencies(deps *Dependencies) error {
	if deps == nil {
		return fmt.Errorf("dependencies are required: %w", ErrCritical)
	}
	if deps.FileSystem == nil {
		return fmt.Errorf("filesystem adapter not available: %w", ErrCritical)
	}
	if deps.Config == nil {
		return fmt.Errorf("config adapter not available: %w", ErrCritical)
	}
	if deps.Clock == nil {
		return fmt.Errorf("clock adapter not available: %w", ErrCritical)
	}
	return nil
}

func ensureConfig(ctx context.Context, opts InitOptions, deps *Dependencies, configPath string, cfg ConfigFile) error {
	exists, err := pathExists(ctx, deps.FileSystem, configPath)
	if err != nil {
		return fmt.Errorf("check config path: %w", ErrCritical)
	}
	if exists {
		info, err := deps.FileSystem.Stat(ctx, configPath)
		if err != nil {
			return fmt.Errorf("stat config: %w", ErrCritical)
		}
		if info.IsDir() {
			return fmt.Errorf("config path is a directory: %w", ErrUsage)
		}
		if !opts.Force {
			return fmt.Errorf("config already exists at %s (use --force): %w", configPath, ErrUsage)
		}
	}
	if opts.DryRun {
		return nil
	}
	if exists {
		backupPath := configPath + ".bak." + deps.Clock.Now().Format(initBackupTimeFormat)
		if err := deps.FileSystem.Move(ctx, configPath, backupPath); err != nil {
			return fmt.Errorf("backup config: %w", ErrCritical)
		}
	}
	if err := deps.FileSystem.CreateDir(ctx, deps.FileSystem.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", ErrCritical)
	}
	if err := deps.Config.Save(ctx, configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", ErrCritical)
	}
	return nil
}

func ensureLogDir(ctx context.Context, deps *Dependencies, homeDir string, cfg ConfigFile, dryRun bool) error {
	if dryRun {
		return nil
	}
	if dir := strings.TrimSpace(cfg.Logging.Dir); dir != "" {
		expanded := deps.FileSystem.Clean(expandHomeDir(dir, homeDir))
		if err := deps.FileSystem.CreateDir(ctx, expanded, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", ErrCritical)
		}
	}
	return nil
}

func pathExists(ctx context.Context, fs FileSystemPort, path string) (bool, error) {
	info, err := fs.Stat(ctx, path)
	if err != nil {
		if fs.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info != nil, nil
}
