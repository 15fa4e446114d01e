package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/craftlore/ragcheck/internal/batch"
	"github.com/craftlore/ragcheck/internal/dataset"
	"github.com/craftlore/ragcheck/internal/evallog"
	"github.com/craftlore/ragcheck/internal/store"
	"github.com/spf13/cobra"
)

type runOptions struct {
	evalType string
	workers  int
	limit    int
}

func newRunCmd(st *cliState) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run a batch evaluation over the ground-truth QnA set",
		Args:    cobra.NoArgs,
		PreRunE: loadConfigPreRun(st),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, st, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.evalType, "type", "retrieval", "evaluation type: retrieval|faithfulness")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "worker pool size (overrides config)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "evaluate only the first N entries")

	return cmd
}

func runBatch(cmd *cobra.Command, st *cliState, opts *runOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("run: missing config (internal error)")
	}
	if opts == nil {
		return fmt.Errorf("run: nil options")
	}

	evalType, err := batch.ParseType(opts.evalType)
	if err != nil {
		return err
	}

	entries, err := dataset.LoadFromFile(st.cfg.Evaluation.Dataset)
	if err != nil {
		return err
	}

	workers := st.cfg.Evaluation.Workers
	if opts.workers > 0 {
		workers = opts.workers
	}
	limit := st.cfg.Evaluation.Limit
	if opts.limit > 0 {
		limit = opts.limit
	}

	logPath := st.cfg.LogPath(string(evalType))
	logger := evallog.New(logPath)

	runner, err := batch.NewRunner(newCollaboratorFactory(st.cfg, evalType), logger, batch.Config{
		Workers: workers,
		TopK:    st.cfg.Retrieval.TopK,
		Limit:   limit,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Evaluating %d entries (%s, %d workers)...\n", len(entries), evalType, workers)

	startedAt := time.Now().UTC()
	sum, err := runner.Run(ctx, evalType, entries)
	if err != nil {
		return err
	}
	finishedAt := time.Now().UTC()

	if loadErr := logger.LoadError(); loadErr != nil {
		fmt.Fprintf(out, "warning: previous log was corrupted and has been reset: %v\n", loadErr)
	}
	fmt.Fprintf(out, "Done: %d evaluated, %d failed in %s\n", sum.Total, sum.Failed, sum.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Results written to %s\n", logPath)

	return saveRunToStore(ctx, st, sum, startedAt, finishedAt, workers, logPath)
}

func saveRunToStore(ctx context.Context, st *cliState, sum *batch.Summary, startedAt, finishedAt time.Time, workers int, logPath string) error {
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}

	stor, err := store.Open(st.cfg)
	if err != nil {
		return fmt.Errorf("run: open store: %w", err)
	}
	defer stor.Close()

	runID, err := newRunID()
	if err != nil {
		return fmt.Errorf("run: generate run id: %w", err)
	}

	var writer store.RunWriter = stor
	err = writer.SaveRun(ctx, &store.RunRecord{
		ID:         runID,
		Type:       string(sum.Type),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Total:      sum.Total,
		Failed:     sum.Failed,
		Workers:    workers,
		LogPath:    logPath,
	})
	if err != nil {
		return fmt.Errorf("run: save run: %w", err)
	}
	return nil
}

func newRunID() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("run_%s_%x", time.Now().UTC().Format("20060102T150405Z"), buf), nil
}
