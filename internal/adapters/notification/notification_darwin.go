//go:build darwin

package notification

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

func buildCommand(ctx context.Context, title, message, sound string) (*exec.Cmd, error) {
	if path, err := lookPath("terminal-notifier"); err == nil {
		// -group replaces the previous run's notification instead of stacking.
		args := []string{"-title", title, "-message", message, "-group", appName}
		if sound != "" {
			args = append(args, "-sound", sound)
		}
		return exec.CommandContext(ctx, path, args...), nil
	}
	path, err := lookPath("osascript")
	if err != nil {
		return nil, err
	}
	return exec.CommandContext(ctx, path, "-e", appleScript(title, message, sound)), nil
}

func appleScript(title, message, sound string) string {
	script := fmt.Sprintf("display notification %s with title %s", quoteAppleScript(message), quoteAppleScript(title))
	if sound != "" {
		script += " sound name " + quoteAppleScript(sound)
	}
	return script
}

func quoteAppleScript(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", " ", "\r", " ", "\t", " ")
	return `"` + r.Replace(value) + `"`
}
