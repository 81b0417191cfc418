package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestHistory_NewestFirst(t *testing.T) {
	env := newTestEnv()
	start := time.Date(2024, 3, 1, 2, 0, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		_ = env.journal.Record(context.Background(), RunRecord{
			StartedAt: start.Add(time.Duration(i) * time.Hour),
			State:     StateDone.String(),
			Copied:    i,
		})
	}
	records, err := History(context.Background(), env.deps, 2, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 || records[0].Copied != 2 || records[1].Copied != 1 {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestHistory_JournalDisabled(t *testing.T) {
	env := newTestEnv()
	env.deps.Journal = nil
	if _, err := History(context.Background(), env.deps, 0, newTestLogger()); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected ErrUsage, got %v", err)
	}
}

func TestHistory_ReadFailure(t *testing.T) {
	env := newTestEnv()
	env.journal.err = errors.New("disk I/O error")
	if _, err := History(context.Background(), env.deps, 5, newTestLogger()); !errors.Is(err, ErrCritical) {
		t.Fatalf("expected ErrCritical, got %v", err)
	}
}

func TestFormatHistory(t *testing.T) {
	records := []RunRecord{
		{
			StartedAt: time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local),
			State:     "failed",
			Error:     "unavailable: /mnt/nas: aborted by operator",
		},
		{
			StartedAt: time.Date(2024, 3, 8, 14, 5, 7, 0, time.Local),
			State:     "done",
			Snapshot:  "/mnt/nas/backup_2024_03_08__140507",
			Copied:    4,
			Skipped:   10,
		},
	}
	out := FormatHistory(records, false)
	for _, want := range []string{
		"2024-03-09 14:05:07",
		"└ unavailable: /mnt/nas: aborted by operator",
		"backup_2024_03_08__140507",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if empty := FormatHistory(nil, false); !strings.Contains(empty, "no runs recorded") {
		t.Fatalf("unexpected empty output:\n%s", empty)
	}
}
