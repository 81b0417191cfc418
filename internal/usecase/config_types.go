package usecase

// ConfigFile describes the on-disk configuration structure (TOML or YAML).
type ConfigFile struct {
	Backup        BackupConfig        `toml:"backup" yaml:"backup"`
	Availability  AvailabilityConfig  `toml:"availability" yaml:"availability"`
	Notifications NotificationsConfig `toml:"notifications" yaml:"notifications"`
	Logging       LoggingConfig       `toml:"logging" yaml:"logging"`
	Journal       JournalConfig       `toml:"journal" yaml:"journal"`
	Schedule      ScheduleConfig      `toml:"schedule" yaml:"schedule"`
}

// BackupConfig holds backup-related settings.
type BackupConfig struct {
	Sources          []string `toml:"sources" yaml:"sources"`
	Destination      string   `toml:"destination" yaml:"destination"`
	Keep             int      `toml:"keep" yaml:"keep"`
	LinkUnchanged    bool     `toml:"link_unchanged" yaml:"link_unchanged"`
	Workers          int      `toml:"workers" yaml:"workers"`
	MtimeToleranceMS int      `toml:"mtime_tolerance_ms" yaml:"mtime_tolerance_ms"`
}

// AvailabilityConfig holds destination probing settings.
type AvailabilityConfig struct {
	Retries           int  `toml:"retries" yaml:"retries"`
	RetryDelaySeconds int  `toml:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	RequireMount      bool `toml:"require_mount" yaml:"require_mount"`
}

// NotificationsConfig holds notification settings.
type NotificationsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Sound   string `toml:"sound" yaml:"sound"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Dir   string `toml:"dir" yaml:"dir"`
	Level string `toml:"level" yaml:"level"`
}

// JournalConfig holds run history settings.
type JournalConfig struct {
	// Path of the sqlite database. Empty disables the journal.
	Path string `toml:"path" yaml:"path"`
}

// ScheduleConfig holds settings for the serve command.
type ScheduleConfig struct {
	Cron string `toml:"cron" yaml:"cron"`
}

const (
	defaultKeep              = 2
	defaultRetries           = 5
	defaultRetryDelaySeconds = 30
)

// DefaultConfigFile returns default configuration.
func DefaultConfigFile() ConfigFile {
	return ConfigFile{
		Backup: BackupConfig{
			Sources:          nil,
			Destination:      "",
			Keep:             defaultKeep,
			LinkUnchanged:    true,
			Workers:          1,
			MtimeToleranceMS: 0,
		},
		Availability: AvailabilityConfig{
			Retries:           defaultRetries,
			RetryDelaySeconds: defaultRetryDelaySeconds,
			RequireMount:      false,
		},
		Notifications: NotificationsConfig{
			Enabled: false,
			Sound:   "default",
		},
		Logging: LoggingConfig{
			Dir:   "~/.local/state/genback/logs",
			Level: "info",
		},
		Journal: JournalConfig{
			Path: "~/.local/state/genback/journal.db",
		},
		Schedule: ScheduleConfig{
			Cron: "",
		},
	}
}
