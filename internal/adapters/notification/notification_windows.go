//go:build windows

package notification

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// balloonScript shows a tray balloon tip through Windows Forms, which is
// available on every desktop Windows without extra modules.
const balloonScript = `Add-Type -AssemblyName System.Windows.Forms
$n = New-Object System.Windows.Forms.NotifyIcon
$n.Icon = [System.Drawing.SystemIcons]::Information
$n.Visible = $true
$n.ShowBalloonTip(5000, %s, %s, [System.Windows.Forms.ToolTipIcon]::%s)
Start-Sleep -Seconds 6
$n.Dispose()`

func buildCommand(ctx context.Context, title, message, _ string) (*exec.Cmd, error) {
	path, err := lookPath("powershell.exe", "pwsh.exe")
	if err != nil {
		return nil, err
	}
	icon := "Info"
	if strings.Contains(strings.ToLower(title), "failed") {
		icon = "Error"
	}
	script := fmt.Sprintf(balloonScript, quotePowerShell(title), quotePowerShell(message), icon)
	return exec.CommandContext(ctx, path, "-NoProfile", "-NonInteractive", "-Command", script), nil
}

func quotePowerShell(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
