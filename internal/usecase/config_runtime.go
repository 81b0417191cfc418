package usecase

import (
	"fmt"
	"strings"
	"time"
)

// RuntimeConfigFromFile converts file config into runtime config for backup execution.
func RuntimeConfigFromFile(cfg ConfigFile, homeDir string) (*Config, error) {
	cleanHome := strings.TrimSpace(homeDir)
	if cleanHome == "" {
		return nil, fmt.Errorf("home directory is empty: %w", ErrCritical)
	}

	sources := make([]string, 0, len(cfg.Backup.Sources))
	for _, src := range cfg.Backup.Sources {
		if expanded := expandHomeDir(src, cleanHome); expanded != "" {
			sources = append(sources, expanded)
		}
	}

	keep := cfg.Backup.Keep
	if keep == 0 {
		keep = defaultKeep
	}
	retries := cfg.Availability.Retries
	if retries == 0 {
		retries = defaultRetries
	}
	workers := cfg.Backup.Workers
	if workers == 0 {
		workers = 1
	}

	out := &Config{
		Sources:        sources,
		Destination:    expandHomeDir(cfg.Backup.Destination, cleanHome),
		Keep:           keep,
		Retries:        retries,
		RetryDelay:     time.Duration(cfg.Availability.RetryDelaySeconds) * time.Second,
		LinkUnchanged:  cfg.Backup.LinkUnchanged,
		Workers:        workers,
		MtimeTolerance: time.Duration(cfg.Backup.MtimeToleranceMS) * time.Millisecond,
		RequireMount:   cfg.Availability.RequireMount,
		Notify:         cfg.Notifications.Enabled,
		NotifySound:    strings.TrimSpace(cfg.Notifications.Sound),
		JournalPath:    expandHomeDir(cfg.Journal.Path, cleanHome),
		Schedule:       strings.TrimSpace(cfg.Schedule.Cron),
	}
	if err := out.validateLimits(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks that cfg describes a runnable backup.
func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("no source directories configured: %w", ErrUsage)
	}
	if strings.TrimSpace(c.Destination) == "" {
		return fmt.Errorf("backup.destination not configured: %w", ErrUsage)
	}
	return c.validateLimits()
}

func (c Config) validateLimits() error {
	if c.Keep < 1 {
		return fmt.Errorf("keep must be at least 1, got %d: %w", c.Keep, ErrUsage)
	}
	if c.Retries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d: %w", c.Retries, ErrUsage)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative: %w", ErrUsage)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d: %w", c.Workers, ErrUsage)
	}
	if c.MtimeTolerance < 0 {
		return fmt.Errorf("mtime tolerance must not be negative: %w", ErrUsage)
	}
	return nil
}
