package usecase

import (
	"context"
	"errors"
	"testing"
)

func TestServe_RunsBackupPerTick(t *testing.T) {
	env, src, dest := newBackupFixture(t)
	sched := &fakeScheduler{ticks: 3}
	env.deps.Scheduler = sched
	cfg := testConfig(src, dest)
	cfg.Schedule = "@hourly"

	if err := Serve(context.Background(), &cfg, env.deps, newTestLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sched.spec != "@hourly" {
		t.Fatalf("unexpected spec %q", sched.spec)
	}
	if len(env.journal.records) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(env.journal.records))
	}
	if got := snapshotNames(t, dest); len(got) != 2 {
		t.Fatalf("retention not applied across ticks: %v", got)
	}
}

func TestServe_FailedRunDoesNotStopScheduler(t *testing.T) {
	env, src, dest := newBackupFixture(t)
	env.probe.failures = -1
	env.deps.Scheduler = &fakeScheduler{ticks: 2}
	cfg := testConfig(src, dest)
	cfg.Schedule = "0 3 * * *"

	if err := Serve(context.Background(), &cfg, env.deps, newTestLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.journal.records) != 2 {
		t.Fatalf("expected 2 recorded runs, got %d", len(env.journal.records))
	}
	for _, rec := range env.journal.records {
		if rec.State != "failed" {
			t.Fatalf("unexpected state %s", rec.State)
		}
	}
}

func TestServe_RequiresSchedule(t *testing.T) {
	env := newTestEnv()
	env.deps.Scheduler = &fakeScheduler{}
	cfg := testConfig("/src", "/dest")
	if err := Serve(context.Background(), &cfg, env.deps, newTestLogger()); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected ErrUsage, got %v", err)
	}
}

func TestServe_RequiresScheduler(t *testing.T) {
	env := newTestEnv()
	cfg := testConfig("/src", "/dest")
	cfg.Schedule = "@daily"
	if err := Serve(context.Background(), &cfg, env.deps, newTestLogger()); !errors.Is(err, ErrCritical) {
		t.Fatalf("expected ErrCritical, got %v", err)
	}
}
