package loghandler

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedTime() time.Time {
	return time.Date(2025, 1, 15, 14, 32, 5, 0, time.UTC)
}

func newTestHandler(buf *bytes.Buffer, color bool) *Handler {
	return NewHandler(buf, &Options{
		Level:    slog.LevelDebug,
		UseColor: color,
		HomeDir:  "/home/ann",
	})
}

// handle writes one record at fixedTime and returns everything in buf.
func handle(t *testing.T, h slog.Handler, buf *bytes.Buffer, level slog.Level, msg string, attrs ...slog.Attr) string {
	t.Helper()
	r := slog.NewRecord(fixedTime(), level, msg, 0)
	r.AddAttrs(attrs...)
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestHandle_BackupLines(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Level
		msg   string
		attrs []slog.Attr
		want  string
	}{
		{
			name:  "plain message",
			level: slog.LevelInfo,
			msg:   "Starting genback",
			want:  "14:32:05 INF Starting genback\n",
		},
		{
			name:  "snapshot created",
			level: slog.LevelInfo,
			msg:   "Snapshot created",
			attrs: []slog.Attr{
				slog.String("snapshot", "backup_2025_01_15__143205"),
				slog.Int("files", 10),
				slog.Bool("dry_run", false),
			},
			want: "14:32:05 INF Snapshot created snapshot=backup_2025_01_15__143205 files=10 dry_run=false\n",
		},
		{
			name:  "retry delay and attempt",
			level: slog.LevelWarn,
			msg:   "Destination unreachable",
			attrs: []slog.Attr{
				slog.String("path", "/mnt/nas/backups"),
				slog.Int("attempt", 2),
				slog.Duration("delay", 90*time.Second),
			},
			want: "14:32:05 WRN Destination unreachable path=/mnt/nas/backups attempt=2 delay=1m30s\n",
		},
		{
			name:  "path error under home",
			level: slog.LevelError,
			msg:   "Copy failed",
			attrs: []slog.Attr{
				slog.String("path", "/home/ann/docs/report.txt"),
				slog.String("cause", "permission"),
				slog.Any("error", &fs.PathError{Op: "open", Path: "/home/ann/docs/report.txt", Err: fs.ErrPermission}),
			},
			want: `14:32:05 ERR Copy failed path=~/docs/report.txt cause=permission error="open ~/docs/report.txt: permission denied"` + "\n",
		},
		{
			name:  "wrapped error",
			level: slog.LevelError,
			msg:   "Backup failed",
			attrs: []slog.Attr{slog.Any("error", fmt.Errorf("create snapshot: %w", fs.ErrExist))},
			want:  `14:32:05 ERR Backup failed error="create snapshot: file already exists"` + "\n",
		},
		{
			name:  "empty reason",
			level: slog.LevelDebug,
			msg:   "Unchanged",
			attrs: []slog.Attr{slog.String("reason", "")},
			want:  `14:32:05 DBG Unchanged reason=""` + "\n",
		},
		{
			name:  "retention group",
			level: slog.LevelInfo,
			msg:   "Retention enforced",
			attrs: []slog.Attr{slog.Group("retention", slog.Int("kept", 2), slog.Int("deleted", 1))},
			want:  "14:32:05 INF Retention enforced retention.kept=2 retention.deleted=1\n",
		},
		{
			name:  "snapshot time",
			level: slog.LevelInfo,
			msg:   "Previous snapshot",
			attrs: []slog.Attr{slog.Time("created", fixedTime())},
			want:  "14:32:05 INF Previous snapshot created=2025-01-15T14:32:05\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			got := handle(t, newTestHandler(&buf, false), &buf, tt.level, tt.msg, tt.attrs...)
			if got != tt.want {
				t.Errorf("got  %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestContractHome(t *testing.T) {
	tests := []struct {
		home  string
		value string
		want  string
	}{
		{"/home/ann", "/home/ann/docs/report.txt", "~/docs/report.txt"},
		{"/home/ann/", "/home/ann", "~"},
		{"/home/ann", "/home/anna/docs", "/home/anna/docs"},
		{"/home/ann", "/home/ann.bak/docs", "/home/ann.bak/docs"},
		{"/home/ann", "/srv/home/ann/docs", "/srv/home/ann/docs"},
		{"/home/ann", "link /home/ann/a -> /home/ann/b", "link ~/a -> ~/b"},
		{"/home/ann", "/mnt/nas", "/mnt/nas"},
		{`C:\Users\ann`, `C:\Users\ann\Documents`, `~\Documents`},
		{"", "/home/ann/docs", "/home/ann/docs"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			h := NewHandler(&bytes.Buffer{}, &Options{HomeDir: tt.home})
			if got := h.contractHome(tt.value); got != tt.want {
				t.Errorf("contractHome(%q) with home %q = %q, want %q", tt.value, tt.home, got, tt.want)
			}
		})
	}
}

func TestHandle_Levels(t *testing.T) {
	for level, label := range map[slog.Level]string{
		slog.LevelDebug: "DBG",
		slog.LevelInfo:  "INF",
		slog.LevelWarn:  "WRN",
		slog.LevelError: "ERR",
	} {
		var buf bytes.Buffer
		got := handle(t, newTestHandler(&buf, false), &buf, level, "msg")
		if want := "14:32:05 " + label + " msg\n"; got != want {
			t.Errorf("level %v: got %q, want %q", level, got, want)
		}
	}

	h := NewHandler(&bytes.Buffer{}, &Options{Level: slog.LevelWarn})
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("INFO should not be enabled at WARN level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("ERROR should be enabled at WARN level")
	}
}

func TestHandle_Color(t *testing.T) {
	var buf bytes.Buffer
	got := handle(t, newTestHandler(&buf, true), &buf, slog.LevelError, "Backup failed", slog.String("state", "failed"))

	for _, code := range []string{colorDim, colorBoldRed, colorReset} {
		if !strings.Contains(got, code) {
			t.Errorf("expected %q in colored output %q", code, got)
		}
	}

	buf.Reset()
	got = handle(t, newTestHandler(&buf, false), &buf, slog.LevelError, "Backup failed")
	if strings.Contains(got, "\033[") {
		t.Errorf("no-color output contains ANSI escape codes: %q", got)
	}
}

func TestHandle_TimeLayout(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, &Options{Level: slog.LevelInfo, TimeLayout: FileTimeLayout})

	r := slog.NewRecord(fixedTime().Add(250*time.Millisecond), slog.LevelWarn, "Destination unreachable", 0)
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatal(err)
	}

	want := "2025-01-15 14:32:05.250 WRN Destination unreachable\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWithGroupAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestHandler(&buf, false)).With("run", "nightly").WithGroup("replicate").With("workers", 4)

	got := handle(t, logger.Handler(), &buf, slog.LevelInfo, "Copied", slog.String("path", "/home/ann/a.txt"))
	want := "14:32:05 INF Copied run=nightly replicate.workers=4 replicate.path=~/a.txt\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	h := newTestHandler(&buf, false)
	if h.WithAttrs(nil) != slog.Handler(h) || h.WithGroup("") != slog.Handler(h) {
		t.Error("empty WithAttrs/WithGroup should return the same handler")
	}
}

func TestConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestHandler(&buf, false))

	var wg sync.WaitGroup
	const workers = 8
	const perWorker = 25
	wg.Add(workers)
	for w := range workers {
		go func() {
			defer wg.Done()
			for i := range perWorker {
				logger.Debug("Copied", "worker", w, "file", i)
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != workers*perWorker {
		t.Fatalf("expected %d lines, got %d", workers*perWorker, len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, " DBG Copied worker=") {
			t.Fatalf("interleaved line %q", line)
		}
	}
}
