package loghandler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestMultiHandler_FansOutByLevel(t *testing.T) {
	var term, file bytes.Buffer
	termHandler := NewHandler(&term, &Options{Level: slog.LevelInfo})
	fileHandler := NewHandler(&file, &Options{Level: slog.LevelDebug, TimeLayout: FileTimeLayout})
	logger := slog.New(NewMultiHandler(termHandler, nil, fileHandler)).With("run", 1)

	logger.Debug("Unchanged, linked", "path", "docs/a.txt")
	logger.Info("Created snapshot")

	if strings.Contains(term.String(), "Unchanged") {
		t.Errorf("debug record reached info handler: %q", term.String())
	}
	if !strings.Contains(term.String(), "Created snapshot") || !strings.Contains(term.String(), "run=1") {
		t.Errorf("info record missing from terminal output: %q", term.String())
	}
	if !strings.Contains(file.String(), "Unchanged, linked") || !strings.Contains(file.String(), "Created snapshot") {
		t.Errorf("file handler missed records: %q", file.String())
	}
}

func TestMultiHandler_ContinuesAfterError(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(failingHandler{}, NewHandler(&buf, nil))
	r := slog.NewRecord(time.Now(), slog.LevelWarn, "Destination unreachable", 0)

	err := h.Handle(context.Background(), r)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !strings.Contains(buf.String(), "Destination unreachable") {
		t.Fatalf("second handler did not receive record: %q", buf.String())
	}
}

func TestMultiHandler_EmptyGroupIsNoop(t *testing.T) {
	h := NewMultiHandler(NewHandler(&bytes.Buffer{}, nil))
	if got := h.WithGroup(""); got != h {
		t.Fatal("WithGroup(\"\") should return the receiver")
	}
}
