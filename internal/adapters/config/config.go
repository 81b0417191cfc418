package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/arumata/genback/internal/usecase"
)

// Adapter implements ConfigPort using TOML or YAML files on disk.
// The format is chosen by extension: .yaml and .yml are YAML, anything
// else is TOML.
type Adapter struct {
	logger *slog.Logger
}

// New creates a new config adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("config adapter requires logger")
	}
	return &Adapter{logger: logger}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Load reads config from path or returns defaults when file is missing.
// Keys missing from the file keep their default values.
func (a *Adapter) Load(ctx context.Context, path string) (usecase.ConfigFile, error) {
	_ = ctx
	if strings.TrimSpace(path) == "" {
		return usecase.ConfigFile{}, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is controlled by usecase
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return usecase.DefaultConfigFile(), nil
		}
		return usecase.ConfigFile{}, err
	}

	cfg := usecase.DefaultConfigFile()
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return usecase.ConfigFile{}, fmt.Errorf("parse config yaml: %w", err)
		}
		return cfg, nil
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return usecase.ConfigFile{}, fmt.Errorf("parse config toml: %w", err)
	}
	for _, key := range md.Undecoded() {
		a.logger.Warn("Unknown config key ignored", "key", key.String(), "path", path)
	}
	return cfg, nil
}

// Save writes config to path: commented TOML, or plain YAML for .yaml/.yml.
func (a *Adapter) Save(ctx context.Context, path string, cfg usecase.ConfigFile) error {
	_ = ctx
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is empty")
	}

	var content []byte
	if isYAML(path) {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config yaml: %w", err)
		}
		content = append([]byte("# genback configuration\n"), data...)
	} else {
		rendered, err := renderCommentedTOML(cfg)
		if err != nil {
			return err
		}
		content = []byte(rendered)
	}

	// #nosec G306 G304 - config is not secret, path is controlled by usecase.
	return os.WriteFile(path, content, 0o644)
}

// tomlValue encodes v the way it appears on the right of "key = ".
func tomlValue(v any) (string, error) {
	var b bytes.Buffer
	if err := toml.NewEncoder(&b).Encode(map[string]any{"v": v}); err != nil {
		return "", fmt.Errorf("encode config toml: %w", err)
	}
	return strings.TrimSpace(strings.TrimPrefix(b.String(), "v = ")), nil
}

//nolint:lll // template readability is more important than line length.
func renderCommentedTOML(cfg usecase.ConfigFile) (string, error) {
	sources := cfg.Backup.Sources
	if sources == nil {
		sources = []string{}
	}
	sourcesValue, err := tomlValue(sources)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`# genback configuration

# ── Backup Settings ──────────────────────────────────────────────
[backup]

# Directories to back up. Each one becomes a subdirectory of every
# snapshot, named after its last path element.
# Supports ~, $HOME, ${HOME}.
sources = %[1]s

# Directory that holds the backup_YYYY_MM_DD__HHMMSS snapshots (required).
# Set via: genback init --dest <path>
destination = %[2]q

# Number of most recent snapshots to keep (at least 1).
keep = %[3]d

# Hard-link unchanged files to the previous snapshot so every snapshot
# is complete. When false, unchanged files are left out.
link_unchanged = %[4]t

# Parallel copy workers.
workers = %[5]d

# Modification times closer than this are treated as equal (FAT, SMB).
mtime_tolerance_ms = %[6]d

# ── Destination Availability ─────────────────────────────────────
[availability]

# Probe attempts before asking whether to keep waiting.
retries = %[7]d

# Pause between probe attempts.
retry_delay_seconds = %[8]d

# Refuse a destination that sits on the system disk (unmounted volume).
require_mount = %[9]t

# ── Desktop Notifications ────────────────────────────────────────
[notifications]

# Enable notifications after backup completion.
enabled = %[10]t

# Notification sound ("default" = system default).
sound = %[11]q

# ── Logging ──────────────────────────────────────────────────────
[logging]

# Log directory. Supports ~, $HOME, ${HOME}. Created automatically.
dir = %[12]q

# Minimum log level: debug, info, warn, error.
level = %[13]q

# ── Run History ──────────────────────────────────────────────────
[journal]

# SQLite database recording every run. Empty disables history.
path = %[14]q

# ── Schedule ─────────────────────────────────────────────────────
[schedule]

# Cron expression used by "genback serve", e.g. "0 3 * * *" or "@daily".
cron = %[15]q
`,
		sourcesValue,
		cfg.Backup.Destination,
		cfg.Backup.Keep,
		cfg.Backup.LinkUnchanged,
		cfg.Backup.Workers,
		cfg.Backup.MtimeToleranceMS,
		cfg.Availability.Retries,
		cfg.Availability.RetryDelaySeconds,
		cfg.Availability.RequireMount,
		cfg.Notifications.Enabled,
		cfg.Notifications.Sound,
		cfg.Logging.Dir,
		cfg.Logging.Level,
		cfg.Journal.Path,
		cfg.Schedule.Cron,
	), nil
}
