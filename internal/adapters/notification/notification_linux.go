//go:build linux

package notification

import (
	"context"
	"os/exec"
	"strings"
)

func buildCommand(ctx context.Context, title, message, sound string) (*exec.Cmd, error) {
	path, err := lookPath("notify-send")
	if err != nil {
		return nil, err
	}
	args := []string{"--app-name=" + appName}
	if strings.Contains(strings.ToLower(title), "failed") {
		args = append(args, "--urgency=critical")
	}
	if sound != "" {
		args = append(args, "--hint=string:sound-name:"+sound)
	}
	args = append(args, title, message)
	return exec.CommandContext(ctx, path, args...), nil
}
