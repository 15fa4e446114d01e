// Package batch drives a full evaluation pass over the ground-truth dataset
// with a fixed worker pool. Workers build their own collaborators, evaluate
// entries independently, and hand self-contained records back to the parent,
// which is the only writer to the evaluation log.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/craftlore/ragcheck/internal/dataset"
	"github.com/craftlore/ragcheck/internal/evallog"
	"github.com/craftlore/ragcheck/internal/judge"
	"github.com/craftlore/ragcheck/internal/metrics"
	"github.com/craftlore/ragcheck/internal/rag"
)

// Type selects which evaluation suite a batch run executes.
type Type string

const (
	TypeRetrieval    Type = "retrieval"
	TypeFaithfulness Type = "faithfulness"
)

// ParseType validates an evaluation type string.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeRetrieval:
		return TypeRetrieval, nil
	case TypeFaithfulness:
		return TypeFaithfulness, nil
	default:
		return "", fmt.Errorf("batch: unknown eval type %q (want retrieval or faithfulness)", s)
	}
}

const (
	defaultWorkers = 4
	defaultTopK    = 5
)

// Collaborators is the per-worker set of clients used to evaluate entries.
// Judge is optional; without it the LLM-judged fields are skipped.
type Collaborators struct {
	Retriever rag.Retriever
	Generator rag.Generator
	Scorer    *metrics.Scorer
	Judge     *judge.Judge
}

// Factory builds a fresh collaborator set. It is called once per worker so
// workers never share clients.
type Factory func() (*Collaborators, error)

// Config tunes a batch run.
type Config struct {
	Workers int // worker pool size, default 4
	TopK    int // chunks retrieved per query, default 5
	Limit   int // evaluate only the first N entries, 0 means all
}

// Summary aggregates the outcome of one batch run.
type Summary struct {
	Type     Type
	Total    int
	Failed   int
	Duration time.Duration
}

// Runner executes batch evaluations.
type Runner struct {
	factory Factory
	logger  *evallog.Logger
	cfg     Config
}

// NewRunner creates a Runner with defaults applied.
func NewRunner(factory Factory, logger *evallog.Logger, cfg Config) (*Runner, error) {
	if factory == nil {
		return nil, errors.New("batch: nil factory")
	}
	if logger == nil {
		return nil, errors.New("batch: nil logger")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	return &Runner{factory: factory, logger: logger, cfg: cfg}, nil
}

// Run evaluates entries with the configured worker pool and writes one record
// per entry to the log. A failure inside one entry produces an error record
// keyed by its query; it never halts the batch. Cancelling ctx stops
// scheduling new entries; entries already in flight still complete and are
// logged.
func (r *Runner) Run(ctx context.Context, evalType Type, entries []dataset.Entry) (*Summary, error) {
	if r == nil {
		return nil, errors.New("batch: nil runner")
	}
	if ctx == nil {
		return nil, errors.New("batch: nil context")
	}
	if _, err := ParseType(string(evalType)); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("batch: no entries")
	}
	if r.cfg.Limit > 0 && len(entries) > r.cfg.Limit {
		entries = entries[:r.cfg.Limit]
	}

	start := time.Now()
	jobs := make(chan dataset.Entry)
	results := make(chan evallog.Record)

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx, evalType, jobs, results)
		}()
	}

	go func() {
		defer close(jobs)
		for _, e := range entries {
			select {
			case jobs <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	sum := &Summary{Type: evalType}
	var logErr error
	for rec := range results {
		sum.Total++
		if _, ok := rec["error"]; ok {
			sum.Failed++
		}
		if err := r.logger.Log(rec); err != nil && logErr == nil {
			logErr = err
		}
	}
	sum.Duration = time.Since(start)
	return sum, logErr
}

func (r *Runner) worker(ctx context.Context, evalType Type, jobs <-chan dataset.Entry, results chan<- evallog.Record) {
	collabs, err := r.factory()
	if err != nil {
		for entry := range jobs {
			results <- errorRecord(entry.Question, fmt.Errorf("batch: build collaborators: %w", err))
		}
		return
	}
	for entry := range jobs {
		results <- evaluateEntry(ctx, collabs, evalType, entry, r.cfg.TopK)
	}
}

func errorRecord(query string, err error) evallog.Record {
	return evallog.Record{"query": query, "error": err.Error()}
}

// errNoChunks marks LLM-judged fields that were skipped because the
// retriever came back empty.
var errNoChunks = errors.New("batch: no retrieved chunks to judge")

// unionWarnings joins distinct non-empty warnings in first-seen order.
func unionWarnings(ws ...string) string {
	var out []string
	seen := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return strings.Join(out, "; ")
}

func evaluateEntry(ctx context.Context, c *Collaborators, evalType Type, entry dataset.Entry, topK int) evallog.Record {
	if c == nil || c.Retriever == nil || c.Scorer == nil {
		return errorRecord(entry.Question, errors.New("batch: incomplete collaborators"))
	}

	res, err := c.Retriever.Query(ctx, entry.Question, topK)
	if err != nil {
		return errorRecord(entry.Question, fmt.Errorf("retrieve: %w", err))
	}

	switch evalType {
	case TypeFaithfulness:
		return evaluateFaithfulness(ctx, c, entry, res)
	default:
		return evaluateRetrieval(ctx, c, entry, res)
	}
}

func evaluateRetrieval(ctx context.Context, c *Collaborators, entry dataset.Entry, res rag.Result) evallog.Record {
	q, gt, chunks := entry.Question, entry.Answer, res.Chunks

	cp, err := c.Scorer.ContextPrecision(ctx, q, chunks)
	if err != nil {
		return errorRecord(q, fmt.Errorf("context precision: %w", err))
	}
	cr, err := c.Scorer.ContextRecall(ctx, gt, chunks)
	if err != nil {
		return errorRecord(q, fmt.Errorf("context recall: %w", err))
	}
	cwp, err := c.Scorer.ChunkwisePrecision(ctx, q, chunks)
	if err != nil {
		return errorRecord(q, fmt.Errorf("chunkwise precision: %w", err))
	}
	cwr, err := c.Scorer.ChunkwiseRecall(ctx, gt, chunks)
	if err != nil {
		return errorRecord(q, fmt.Errorf("chunkwise recall: %w", err))
	}
	neg, err := c.Scorer.NegativeRetrieval(ctx, q, chunks)
	if err != nil {
		return errorRecord(q, fmt.Errorf("negative retrieval: %w", err))
	}

	rec := evallog.Record{
		"query":               q,
		"ground_truth_answer": gt,
		"context_precision": map[string]any{
			"cosine_score":             cp.CosineScore,
			"bm25_score":               cp.BM25Score,
			"combined_precision_score": cp.CombinedScore,
		},
		"context_recall": cr.Score,
		"chunkwise_precision": map[string]any{
			"chunkwise_cosine_precision": cwp.CosinePrecision,
			"chunkwise_bm25_precision":   cwp.BM25Precision,
			"combined_precision_score":   cwp.CombinedScore,
		},
		"chunkwise_recall":   cwr.Score,
		"negative_retrieval": neg.Score,
	}
	if w := unionWarnings(cp.Warning, cr.Warning, cwp.Warning, cwr.Warning, neg.Warning); w != "" {
		rec["warning"] = w
	}

	if c.Judge != nil {
		if len(chunks) == 0 {
			// Nothing for a judge to read; persist the failure sentinel the
			// same way an errored invocation would.
			noChunks := judge.Transient(errNoChunks).Field()
			rec["context_precision_llm"] = noChunks
			rec["context_recall_llm"] = noChunks
			rec["retrieval_precision_llm"] = noChunks
			rec["negative_retrieval_llm"] = noChunks
		} else {
			rec["context_precision_llm"] = c.Judge.Score(ctx, judge.ContextPrecisionPrompt(q, chunks)).Field()
			rec["context_recall_llm"] = c.Judge.Score(ctx, judge.ContextRecallPrompt(gt, chunks)).Field()
			rec["retrieval_precision_llm"] = c.Judge.Score(ctx, judge.RetrievalPrecisionPrompt(q, chunks)).Field()
			rec["negative_retrieval_llm"] = c.Judge.Score(ctx, judge.NegativeRetrievalPrompt(q, chunks)).Field()
		}
	}
	return rec
}

func evaluateFaithfulness(ctx context.Context, c *Collaborators, entry dataset.Entry, res rag.Result) evallog.Record {
	if c.Generator == nil {
		return errorRecord(entry.Question, errors.New("batch: faithfulness run needs a generator"))
	}
	q, gt, chunks := entry.Question, entry.Answer, res.Chunks

	answer, err := c.Generator.Generate(ctx, q, chunks, res.Sources)
	if err != nil {
		return errorRecord(q, fmt.Errorf("generate: %w", err))
	}

	blob, err := c.Scorer.BlobwiseSimilarity(ctx, answer, chunks)
	if err != nil {
		return errorRecord(q, fmt.Errorf("blobwise similarity: %w", err))
	}
	cw, err := c.Scorer.ChunkwiseSimilarity(ctx, answer, chunks)
	if err != nil {
		return errorRecord(q, fmt.Errorf("chunkwise similarity: %w", err))
	}
	cov, err := c.Scorer.FaithfulCoverage(ctx, gt, answer)
	if err != nil {
		return errorRecord(q, fmt.Errorf("faithful coverage: %w", err))
	}

	rec := evallog.Record{
		"query":                           q,
		"ground_truth_answer":             gt,
		"generated_answer":                answer,
		"blobwise_answer_similarity":      blob.Score,
		"avg_chunkwise_answer_similarity": cw.Avg,
		"max_chunkwise_answer_similarity": cw.Max,
		"faithful_coverage":               cov.Score,
	}
	if w := unionWarnings(blob.Warning, cw.Warning, cov.Warning); w != "" {
		rec["warning"] = w
	}

	if c.Judge != nil {
		if len(chunks) == 0 {
			noChunks := judge.Transient(errNoChunks).Field()
			rec["faithfulness_score_llm"] = noChunks
			rec["faithful_coverage_llm"] = noChunks
		} else {
			rec["faithfulness_score_llm"] = c.Judge.Score(ctx, judge.FaithfulnessPrompt(chunks, answer)).Field()
			rec["faithful_coverage_llm"] = c.Judge.Score(ctx, judge.FaithfulCoveragePrompt(gt, answer)).Field()
		}
	}
	return rec
}
