package evallog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempLogger(t *testing.T) *Logger {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "retrieval_results.json"))
}

func TestLog_AppendAndMerge(t *testing.T) {
	t.Parallel()

	l := tempLogger(t)
	if err := l.Log(Record{"query": "how to craft a table", "context_recall": 7.5}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := l.Log(Record{"query": "how to tame a wolf", "context_recall": 4.0}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	// Same query again: overlapping fields replaced, new fields unioned,
	// position preserved.
	if err := l.Log(Record{"query": "how to craft a table", "context_recall": 8.0, "retrieval_precision": 6.0}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	records, err := l.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Query() != "how to craft a table" || records[1].Query() != "how to tame a wolf" {
		t.Fatalf("order not preserved: %q, %q", records[0].Query(), records[1].Query())
	}
	if got := records[0]["context_recall"]; got != 8.0 {
		t.Fatalf("merged context_recall = %v, want 8", got)
	}
	if got := records[0]["retrieval_precision"]; got != 6.0 {
		t.Fatalf("merged retrieval_precision = %v, want 6", got)
	}
}

func TestLog_PersistsAcrossLoggers(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.json")
	l := New(path)
	if err := l.Log(Record{"query": "q1", "score": 5.0}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	// A fresh Logger over the same file sees the record and merges into it.
	l2 := New(path)
	if err := l2.Log(Record{"query": "q1", "score": 9.0}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	records, err := l2.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 1 || records[0]["score"] != 9.0 {
		t.Fatalf("records = %v", records)
	}

	// The file itself is a plain JSON array.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var arr []map[string]any
	if err := json.Unmarshal(data, &arr); err != nil {
		t.Fatalf("persisted file is not a JSON array: %v", err)
	}
}

func TestLog_CorruptedFileResets(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	l := New(path)
	if err := l.Log(Record{"query": "q1", "score": 5.0}); err != nil {
		t.Fatalf("Log after corruption: %v", err)
	}
	if l.LoadError() == nil {
		t.Fatalf("LoadError: want recorded decode error")
	}
	records, err := l.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
}

func TestLog_MissingQuery(t *testing.T) {
	t.Parallel()

	l := tempLogger(t)
	if err := l.Log(Record{"score": 5.0}); err == nil {
		t.Fatalf("Log without query: want error")
	}
	if err := l.Log(nil); err == nil {
		t.Fatalf("Log(nil): want error")
	}
	var lnil *Logger
	if err := lnil.Log(Record{"query": "q"}); err == nil {
		t.Fatalf("nil logger: want error")
	}
}

func TestLast(t *testing.T) {
	t.Parallel()

	l := tempLogger(t)
	if _, ok := l.Last(); ok {
		t.Fatalf("Last on empty log: want ok=false")
	}
	if err := l.Log(Record{"query": "q1"}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := l.Log(Record{"query": "q2"}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	last, ok := l.Last()
	if !ok || last.Query() != "q2" {
		t.Fatalf("Last = %v, %v", last, ok)
	}
}

func TestExportCSV_FlattensNestedScores(t *testing.T) {
	t.Parallel()

	l := tempLogger(t)
	err := l.Log(Record{
		"query": "how to craft a table",
		"context_precision": map[string]any{
			"cosine_score":             9.1,
			"bm25_score":               10.0,
			"combined_precision_score": 9.55,
		},
		"context_recall": 7.5,
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	err = l.Log(Record{
		"query":              "how to tame a wolf",
		"context_recall":     4.0,
		"llm_context_recall": "FDTKE",
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	var buf bytes.Buffer
	if err := l.ExportCSV(&buf); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}

	wantHeader := "query,context_precision.bm25_score,context_precision.combined_precision_score,context_precision.cosine_score,context_recall,llm_context_recall"
	if lines[0] != wantHeader {
		t.Fatalf("header:\n got %s\nwant %s", lines[0], wantHeader)
	}
	if lines[1] != "how to craft a table,10,9.55,9.1,7.5," {
		t.Fatalf("row 1: %s", lines[1])
	}
	if lines[2] != "how to tame a wolf,,,,4,FDTKE" {
		t.Fatalf("row 2: %s", lines[2])
	}
}

func TestExportCSV_EmptyLog(t *testing.T) {
	t.Parallel()

	l := tempLogger(t)
	var buf bytes.Buffer
	if err := l.ExportCSV(&buf); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "query" {
		t.Fatalf("empty export = %q", got)
	}
}
