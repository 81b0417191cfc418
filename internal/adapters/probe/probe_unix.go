//go:build !windows

package probe

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func checkWritable(dir string) error {
	return unix.Access(dir, unix.W_OK|unix.X_OK)
}

// checkMountedVolume fails when path shares its device with "/".
func checkMountedVolume(path string) error {
	if path == "/" {
		return nil
	}
	var rootStat, pathStat unix.Stat_t
	if err := unix.Stat("/", &rootStat); err != nil {
		return fmt.Errorf("stat /: %w", err)
	}
	if err := unix.Stat(path, &pathStat); err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if pathStat.Dev == rootStat.Dev {
		return fmt.Errorf("%s: %w", path, ErrGhostMount)
	}
	return nil
}
