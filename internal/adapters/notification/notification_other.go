//go:build !linux && !darwin && !windows

package notification

import (
	"context"
	"os/exec"
)

func buildCommand(context.Context, string, string, string) (*exec.Cmd, error) {
	return nil, errNoBackend
}
