package usecase

import (
	"fmt"
	"strings"
	"time"
)

const notSet = "(not set)"

// palette holds ANSI escape sequences for colorized output.
// When useColor is false, all fields are empty strings (no-op coloring).
type palette struct {
	reset    string
	bold     string
	dim      string
	green    string
	red      string
	yellow   string
	boldCyan string
}

func newPalette(useColor bool) palette {
	if !useColor {
		return palette{}
	}
	return palette{
		reset:    "\033[0m",
		bold:     "\033[1m",
		dim:      "\033[2m",
		green:    "\033[32m",
		red:      "\033[31m",
		yellow:   "\033[33m",
		boldCyan: "\033[1;36m",
	}
}

func appendLine(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %-18s %s\n", label, value)
}

func writeTitle(b *strings.Builder, title string, p palette) {
	fmt.Fprintf(b, "%s%s%s\n", p.bold, title, p.reset)
	b.WriteString(strings.Repeat("─", 54))
	b.WriteString("\n")
}

// FormatRunReport renders the end-of-run summary.
func FormatRunReport(report *RunReport, homeDir string, useColor bool) string {
	p := newPalette(useColor)
	var b strings.Builder

	switch {
	case report.DryRun:
		writeTitle(&b, "Backup Plan (dry run)", p)
	case report.Final == StateDone:
		writeTitle(&b, "Backup Completed", p)
	default:
		writeTitle(&b, "Backup Failed", p)
	}

	if report.Snapshot != nil {
		label := "New snapshot:"
		if report.DryRun {
			label = "Would create:"
		}
		appendLine(&b, label, contractHomeDir(report.Snapshot.Path, homeDir))
	}
	if report.Prior != nil {
		appendLine(&b, "Compared with:", report.Prior.Name)
	} else {
		appendLine(&b, "Compared with:", fmt.Sprintf("%s(none, full copy)%s", p.dim, p.reset))
	}

	res := report.Replication
	if report.DryRun {
		appendLine(&b, "Would copy:", fmt.Sprintf("%d files (%s)", res.Copied, humanBytes(res.BytesCopied)))
		appendLine(&b, "Unchanged:", fmt.Sprintf("%d files", res.Skipped))
	} else {
		appendLine(&b, "Copied:", fmt.Sprintf("%d files (%s)", res.Copied, humanBytes(res.BytesCopied)))
		unchanged := fmt.Sprintf("%d files", res.Skipped)
		if res.Linked > 0 {
			unchanged += fmt.Sprintf(" %s(%d linked)%s", p.dim, res.Linked, p.reset)
		}
		appendLine(&b, "Unchanged:", unchanged)
		if res.Failed > 0 {
			appendLine(&b, "Failed:", fmt.Sprintf("%s%d files%s", p.red, res.Failed, p.reset))
		}
	}

	removedLabel := "Removed:"
	if report.DryRun {
		removedLabel = "Would remove:"
	}
	appendLine(&b, removedLabel, fmt.Sprintf("%d old snapshot(s)", len(report.Retention.Removed)))
	for _, be := range report.Retention.Failures {
		appendLine(&b, "Not removed:", fmt.Sprintf("%s%s%s", p.yellow, be.Path, p.reset))
	}
	if len(report.Retention.Retained) > 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%sCurrent snapshots:%s\n", p.boldCyan, p.reset)
		for _, snap := range report.Retention.Retained {
			fmt.Fprintf(&b, "  - %s\n", snap.Name)
		}
	}

	if report.Err != nil {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s✗%s %v\n", p.red, p.reset, report.Err)
	}
	if !report.FinishedAt.IsZero() && !report.StartedAt.IsZero() {
		appendLine(&b, "Duration:", report.FinishedAt.Sub(report.StartedAt).Round(time.Second).String())
	}
	return b.String()
}

func humanBytes(n int64) string {
	const (
		kib = 1024
		mib = kib * 1024
		gib = mib * 1024
	)
	switch {
	case n >= gib:
		return fmt.Sprintf("%.2f GiB", float64(n)/float64(gib))
	case n >= mib:
		return fmt.Sprintf("%.2f MiB", float64(n)/float64(mib))
	case n >= kib:
		return fmt.Sprintf("%.2f KiB", float64(n)/float64(kib))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func formatTime(value time.Time, p palette) string {
	if value.IsZero() {
		return fmt.Sprintf("%s–%s %s%s%s", p.yellow, p.reset, p.dim, notSet, p.reset)
	}
	return value.Format("2006-01-02 15:04:05")
}
