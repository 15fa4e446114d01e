package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/craftlore/ragcheck/internal/config"
	"github.com/craftlore/ragcheck/internal/evallog"
	"github.com/craftlore/ragcheck/internal/store"
	"github.com/spf13/cobra"
)

func writeDataset(t *testing.T, dir string, body string) string {
	t.Helper()
	path := filepath.Join(dir, "ground_truth_qna.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func newBatchTestState(t *testing.T) *cliState {
	t.Helper()
	dir := t.TempDir()
	dataset := writeDataset(t, dir, `[
  {"question": "how to craft a table", "answer": "Place four planks in a 2x2 grid."},
  {"question": "how to tame a wolf", "answer": "Feed it bones until hearts appear."}
]`)

	cfg := &config.Config{}
	cfg.Evaluation.Dataset = dataset
	cfg.Evaluation.LogDir = dir
	cfg.Storage.Type = "sqlite"
	cfg.Storage.Path = filepath.Join(dir, "ragcheck.db")
	return &cliState{cfg: cfg}
}

func TestNewRunID(t *testing.T) {
	t.Parallel()

	id, err := newRunID()
	if err != nil {
		t.Fatalf("newRunID: %v", err)
	}
	if !regexp.MustCompile(`^run_\d{8}T\d{6}Z_[0-9a-f]{16}$`).MatchString(id) {
		t.Fatalf("unexpected run id %q", id)
	}

	other, err := newRunID()
	if err != nil {
		t.Fatalf("newRunID: %v", err)
	}
	if id == other {
		t.Fatalf("run ids collided: %q", id)
	}
}

// No embedding credentials are configured, so every worker's collaborator
// factory fails and the batch records one error per entry. The run still
// completes, logs, and lands in the store.
func TestRunBatch_FactoryFailuresStillComplete(t *testing.T) {
	t.Parallel()

	st := newBatchTestState(t)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())

	if err := runBatch(cmd, st, &runOptions{evalType: "retrieval", workers: 2}); err != nil {
		t.Fatalf("runBatch: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Evaluating 2 entries (retrieval, 2 workers)") {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(out, "Done: 2 evaluated, 2 failed") {
		t.Fatalf("unexpected output: %q", out)
	}

	logger := evallog.New(st.cfg.LogPath("retrieval"))
	records, err := logger.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}
	for _, rec := range records {
		if _, ok := rec["error"]; !ok {
			t.Fatalf("expected error record, got %v", rec)
		}
	}

	stor, err := store.Open(st.cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stor.Close()
	runs, err := stor.ListRuns(context.Background(), store.RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Type != "retrieval" || runs[0].Total != 2 || runs[0].Failed != 2 || runs[0].Workers != 2 {
		t.Fatalf("runs = %+v", runs)
	}
}

func TestRunBatch_Limit(t *testing.T) {
	t.Parallel()

	st := newBatchTestState(t)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())

	if err := runBatch(cmd, st, &runOptions{evalType: "faithfulness", workers: 1, limit: 1}); err != nil {
		t.Fatalf("runBatch: %v", err)
	}
	if !strings.Contains(buf.String(), "Done: 1 evaluated, 1 failed") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestRunBatch_Errors(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	st := newBatchTestState(t)
	if err := runBatch(cmd, st, &runOptions{evalType: "ragas"}); err == nil {
		t.Fatalf("expected error for unknown eval type")
	}

	st.cfg.Evaluation.Dataset = filepath.Join(t.TempDir(), "missing.json")
	err := runBatch(cmd, st, &runOptions{evalType: "retrieval"})
	if err == nil || !strings.Contains(err.Error(), "dataset") {
		t.Fatalf("expected dataset error, got %v", err)
	}

	if err := runBatch(cmd, nil, &runOptions{evalType: "retrieval"}); err == nil {
		t.Fatalf("expected error for nil state")
	}
}
