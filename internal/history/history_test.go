package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := store.RecordRun(ctx, Run{
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
			OutputDir:  "run_" + string(rune('a'+i)),
			Targets:    10,
			Success:    9,
			Failed:     1,
			High:       2,
			New:        1,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].OutputDir != "run_c" || runs[1].OutputDir != "run_b" {
		t.Errorf("runs not newest first: %q, %q", runs[0].OutputDir, runs[1].OutputDir)
	}
	if !runs[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("started_at = %v, want %v", runs[0].StartedAt, base.Add(2*time.Hour))
	}
	if runs[0].Targets != 10 || runs[0].Success != 9 || runs[0].Failed != 1 {
		t.Errorf("counts round-trip failed: %+v", runs[0])
	}
	if runs[0].High != 2 || runs[0].New != 1 {
		t.Errorf("severity counts round-trip failed: %+v", runs[0])
	}
	if !runs[0].FinishedAt.After(runs[0].StartedAt) {
		t.Errorf("finished_at not after started_at: %+v", runs[0])
	}
}

func TestRecentRunsEmpty(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs, want 0", len(runs))
	}
}
