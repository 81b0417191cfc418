//go:build windows

package probe

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".genback-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// checkMountedVolume fails when the volume holding path is not present.
func checkMountedVolume(path string) error {
	volume := filepath.VolumeName(path) + `\`
	ptr, err := windows.UTF16PtrFromString(volume)
	if err != nil {
		return err
	}
	var free, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &free, &total, &totalFree); err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrGhostMount, err)
	}
	return nil
}
