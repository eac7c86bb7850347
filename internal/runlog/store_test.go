package runlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "state", "runs.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestRunLifecycle(t *testing.T) {
	store := openTestStore(t)
	store.now = steppingClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	run, err := store.StartRun(ctx, "run-1", KindCombinations, "gramosynth_v3x_2", "/tmp/out.csv")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if run.Status != StatusRunning || run.FinishedAt != nil {
		t.Fatalf("unexpected started run: %+v", run)
	}

	outcomes := []TrackOutcome{
		{RunID: "run-1", TrackID: "1", TrackPath: "s3://b/F/a.wav", Outcome: OutcomeProcessed, Candidates: 3, Proposals: 2},
		{RunID: "run-1", TrackID: "2", Outcome: OutcomeSkipped, Reason: "missing_key"},
		{RunID: "run-1", TrackID: "3", Outcome: OutcomeSkipped, Reason: "missing_key"},
		{RunID: "run-1", TrackID: "4", Outcome: OutcomeSkipped, Reason: "no_stems"},
	}
	for _, o := range outcomes {
		if err := store.RecordTrack(ctx, o); err != nil {
			t.Fatalf("RecordTrack: %v", err)
		}
	}

	if err := store.FinishRun(ctx, "run-1", Summary{
		Status:          StatusCompleted,
		TracksSeen:      4,
		TracksProcessed: 1,
		TracksSkipped:   3,
		Proposals:       2,
	}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil || got == nil {
		t.Fatalf("GetRun: %v %v", got, err)
	}
	if got.Status != StatusCompleted || got.TracksSkipped != 3 || got.Proposals != 2 {
		t.Fatalf("unexpected finished run: %+v", got)
	}
	if got.FinishedAt == nil || got.Duration() <= 0 {
		t.Fatalf("expected finish time after start: %+v", got)
	}

	stored, err := store.TrackOutcomes(ctx, "run-1")
	if err != nil {
		t.Fatalf("TrackOutcomes: %v", err)
	}
	if len(stored) != 4 || stored[0].TrackPath != "s3://b/F/a.wav" || stored[0].Proposals != 2 {
		t.Fatalf("unexpected outcomes: %+v", stored)
	}

	reasons, err := store.SkipReasons(ctx, "run-1")
	if err != nil {
		t.Fatalf("SkipReasons: %v", err)
	}
	if reasons["missing_key"] != 2 || reasons["no_stems"] != 1 {
		t.Fatalf("unexpected skip reasons: %v", reasons)
	}
}

func TestFinishRunRejectsRunningAndUnknown(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.FinishRun(ctx, "missing", Summary{Status: StatusCompleted}); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := store.StartRun(ctx, "r", KindMetadata, "", ""); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := store.FinishRun(ctx, "r", Summary{Status: StatusRunning}); err == nil {
		t.Fatal("expected error for non-terminal status")
	}
}

func TestListRunsNewestFirstAndFindByPrefix(t *testing.T) {
	store := openTestStore(t)
	store.now = steppingClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for _, id := range []string{"aaaa-1111", "aaaa-2222", "bbbb-3333"} {
		if _, err := store.StartRun(ctx, id, KindCombinations, "c", ""); err != nil {
			t.Fatalf("StartRun %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "bbbb-3333" || runs[1].ID != "aaaa-2222" {
		t.Fatalf("unexpected run order: %+v", runs)
	}

	run, err := store.FindRun(ctx, "bbbb")
	if err != nil || run.ID != "bbbb-3333" {
		t.Fatalf("expected prefix match, got %v %v", run, err)
	}
	if _, err := store.FindRun(ctx, "aaaa"); !errors.Is(err, ErrAmbiguousRun) {
		t.Fatalf("expected ambiguous prefix, got %v", err)
	}
	if _, err := store.FindRun(ctx, "zzzz"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkInterrupted(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if _, err := store.StartRun(ctx, "stale", KindCombinations, "c", ""); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	n, err := store.MarkInterrupted(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one interrupted run, got %d %v", n, err)
	}
	run, err := store.GetRun(ctx, "stale")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != StatusInterrupted || run.ErrorMessage == "" {
		t.Fatalf("unexpected interrupted run: %+v", run)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if _, err := store.StartRun(context.Background(), "keep", KindMetadata, "", ""); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	_ = store.Close()

	reopened, err := OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	run, err := reopened.GetRun(context.Background(), "keep")
	if err != nil || run == nil {
		t.Fatalf("expected run to survive reopen, got %v %v", run, err)
	}
}
