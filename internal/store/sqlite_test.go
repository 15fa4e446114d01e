package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "store.db")
	st, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func testRun(id string, start time.Time) *RunRecord {
	return &RunRecord{
		ID:         id,
		Type:       "retrieval",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Minute),
		Total:      10,
		Failed:     1,
		Workers:    4,
		LogPath:    "data/retrieval_results.json",
	}
}

func TestSQLiteStore_SaveRunGetRun(t *testing.T) {
	t.Parallel()

	st := newTestSQLiteStore(t)
	ctx := context.Background()

	start := time.Unix(1_700_000_000, 0).UTC()
	run := testRun("run_1", start)
	if err := st.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := st.GetRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ID != run.ID || got.Type != run.Type {
		t.Fatalf("run: got %+v want %+v", got, run)
	}
	if !got.StartedAt.Equal(run.StartedAt) || !got.FinishedAt.Equal(run.FinishedAt) {
		t.Fatalf("timestamps: got %v/%v", got.StartedAt, got.FinishedAt)
	}
	if got.Total != 10 || got.Failed != 1 || got.Workers != 4 {
		t.Fatalf("counters: got %+v", got)
	}
	if got.LogPath != run.LogPath {
		t.Fatalf("LogPath: got %q want %q", got.LogPath, run.LogPath)
	}
}

func TestSQLiteStore_GetRunNotFound(t *testing.T) {
	t.Parallel()

	st := newTestSQLiteStore(t)
	_, err := st.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetRun: got %v want ErrNotFound", err)
	}
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	t.Parallel()

	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0).UTC()
	for i, typ := range []string{"retrieval", "faithfulness", "retrieval"} {
		run := testRun("run_"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour))
		run.Type = typ
		if err := st.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	runs, err := st.ListRuns(ctx, RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	// Newest first.
	if runs[0].ID != "run_c" || runs[2].ID != "run_a" {
		t.Fatalf("order: %q, %q, %q", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	runs, err = st.ListRuns(ctx, RunFilter{Type: "faithfulness"})
	if err != nil {
		t.Fatalf("ListRuns(type): %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run_b" {
		t.Fatalf("type filter: %+v", runs)
	}

	runs, err = st.ListRuns(ctx, RunFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListRuns(limit): %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("limit: got %d runs, want 2", len(runs))
	}

	runs, err = st.ListRuns(ctx, RunFilter{Since: base.Add(90 * time.Minute)})
	if err != nil {
		t.Fatalf("ListRuns(since): %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run_c" {
		t.Fatalf("since filter: %+v", runs)
	}
}

func TestSQLiteStore_SaveRunValidation(t *testing.T) {
	t.Parallel()

	st := newTestSQLiteStore(t)
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0).UTC()

	tests := []struct {
		name string
		run  *RunRecord
	}{
		{"nil run", nil},
		{"empty id", &RunRecord{Type: "retrieval", StartedAt: start, FinishedAt: start}},
		{"empty type", &RunRecord{ID: "r", StartedAt: start, FinishedAt: start}},
		{"zero timestamps", &RunRecord{ID: "r", Type: "retrieval"}},
	}
	for _, tt := range tests {
		if err := st.SaveRun(ctx, tt.run); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}

	run := testRun("dup", start)
	if err := st.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := st.SaveRun(ctx, run); err == nil {
		t.Errorf("duplicate id: expected error")
	}

	var snil *SQLiteStore
	if err := snil.SaveRun(ctx, run); err == nil {
		t.Errorf("nil store: expected error")
	}
	if _, err := snil.GetRun(ctx, "x"); err == nil {
		t.Errorf("nil store get: expected error")
	}
	if _, err := snil.ListRuns(ctx, RunFilter{}); err == nil {
		t.Errorf("nil store list: expected error")
	}
}

func TestNewSQLiteStore_EmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := NewSQLiteStore("   "); err == nil {
		t.Fatalf("empty path: expected error")
	}
}
