package store

import (
	"context"
	"time"
)

// RunWriter defines persistence for batch run summaries.
type RunWriter interface {
	SaveRun(ctx context.Context, run *RunRecord) error
}

// RunReader defines read access to run history.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error)
}

// Store defines persistence for batch run history.
type Store interface {
	RunWriter
	RunReader
	Close() error
}

// RunRecord stores the summary of one batch evaluation run.
type RunRecord struct {
	ID         string
	Type       string // "retrieval" or "faithfulness"
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Failed     int
	Workers    int
	LogPath    string
}

// RunFilter filters run listings.
type RunFilter struct {
	Type  string
	Since time.Time
	Limit int
}
