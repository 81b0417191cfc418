// Package probe checks whether a backup destination can be written to.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/arumata/genback/internal/usecase"
)

// ErrGhostMount reports a destination that resolves to the system disk
// although a mounted volume was expected.
var ErrGhostMount = errors.New("destination is on the root filesystem, volume not mounted")

// Adapter implements usecase.ProbePort.
type Adapter struct {
	logger  *slog.Logger
	homeDir string
}

// New creates a probe adapter. Destinations below homeDir are exempt from
// the mount requirement.
func New(logger *slog.Logger, homeDir string) *Adapter {
	if logger == nil {
		panic("probe adapter requires logger")
	}
	return &Adapter{logger: logger, homeDir: homeDir}
}

// Probe returns nil when root is a usable directory. With AllowMissingRoot
// a missing root passes when the parent it will be created in is usable.
func (a *Adapter) Probe(ctx context.Context, root string, opts usecase.ProbeOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if root == "" {
		return errors.New("destination path is empty")
	}

	target := root
	info, err := os.Stat(root)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("destination %s is not a directory", root)
		}
	case os.IsNotExist(err):
		if !opts.AllowMissingRoot {
			return fmt.Errorf("destination %s is missing: %w", root, err)
		}
		parent := filepath.Dir(root)
		pinfo, perr := os.Stat(parent)
		if perr != nil {
			return fmt.Errorf("destination parent %s: %w", parent, perr)
		}
		if !pinfo.IsDir() {
			return fmt.Errorf("destination parent %s is not a directory", parent)
		}
		target = parent
	default:
		return fmt.Errorf("cannot access destination: %w", err)
	}

	if err := checkWritable(target); err != nil {
		return fmt.Errorf("destination %s is not writable: %w", target, err)
	}
	if opts.RequireMount {
		if err := a.checkMounted(deepestExisting(root)); err != nil {
			return err
		}
	}
	a.logger.Debug("Destination probe ok", "root", root)
	return nil
}

func (a *Adapter) checkMounted(path string) error {
	if a.homeDir != "" && withinDir(path, a.homeDir) {
		return nil
	}
	return checkMountedVolume(path)
}

func deepestExisting(path string) string {
	current := filepath.Clean(path)
	for {
		if _, err := os.Stat(current); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return current
		}
		current = parent
	}
}

func withinDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
