package metrics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/craftlore/ragcheck/internal/embed"
	"github.com/craftlore/ragcheck/internal/textmetric"
)

// Score thresholds for the chunkwise and negative-retrieval metrics.
const (
	chunkCosineThreshold    = 0.3
	bm25RelevantFraction    = 0.5
	negativeCosineThreshold = 0.2
	negativeBM25Threshold   = 0.1
)

const emptyChunksWarning = "no retrieved chunks"

// Scorer computes the embedding and lexical evaluation metrics. All scores
// land on a 0-10 scale; an empty chunk list yields the zero score with a
// warning, never an error.
type Scorer struct {
	Embedder embed.Embedder
}

func NewScorer(e embed.Embedder) *Scorer {
	return &Scorer{Embedder: e}
}

// Scalar is a single score with an optional warning.
type Scalar struct {
	Score   float64
	Warning string
}

// ContextPrecisionScores breaks context precision into its two signals.
type ContextPrecisionScores struct {
	CosineScore   float64
	BM25Score     float64
	CombinedScore float64
	Warning       string
}

// ChunkwisePrecisionScores breaks chunk-level precision into its two signals.
type ChunkwisePrecisionScores struct {
	CosinePrecision float64
	BM25Precision   float64
	CombinedScore   float64
	Warning         string
}

// ChunkwiseSimilarityScores carries the per-chunk answer similarity summary.
type ChunkwiseSimilarityScores struct {
	Avg     float64
	Max     float64
	Warning string
}

// ContextPrecision scores how relevant the retrieved chunks are to the query:
// cosine of query vs the joined chunks, plus the mean of min-max normalized
// BM25 chunk scores, averaged.
func (s *Scorer) ContextPrecision(ctx context.Context, query string, chunks []string) (ContextPrecisionScores, error) {
	if err := s.check(); err != nil {
		return ContextPrecisionScores{}, err
	}
	if len(chunks) == 0 {
		return ContextPrecisionScores{Warning: emptyChunksWarning}, nil
	}

	vecs, err := s.Embedder.Embed(ctx, []string{query, joinChunks(chunks)})
	if err != nil {
		return ContextPrecisionScores{}, fmt.Errorf("metrics: context precision: %w", err)
	}
	cosineScore := embed.Cosine(vecs[0], vecs[1]) * 10

	bm25 := textmetric.NewBM25(tokenizeChunks(chunks))
	normalized := textmetric.MinMaxScale(bm25.Scores(textmetric.Fields(query)), 10)
	bm25Score := mean(normalized)

	return ContextPrecisionScores{
		CosineScore:   round2(cosineScore),
		BM25Score:     round2(bm25Score),
		CombinedScore: round2((cosineScore + bm25Score) / 2),
	}, nil
}

// ContextRecall scores whether the chunks contain the ground truth's details:
// mean of cosine, ROUGE-1 F1, and BERTScore F1 between the ground truth and
// the joined chunks.
func (s *Scorer) ContextRecall(ctx context.Context, groundTruth string, chunks []string) (Scalar, error) {
	if err := s.check(); err != nil {
		return Scalar{}, err
	}
	if len(chunks) == 0 {
		return Scalar{Warning: emptyChunksWarning}, nil
	}

	joined := joinChunks(chunks)
	vecs, err := s.Embedder.Embed(ctx, []string{groundTruth, joined})
	if err != nil {
		return Scalar{}, fmt.Errorf("metrics: context recall: %w", err)
	}
	cosineScore := embed.Cosine(vecs[0], vecs[1]) * 10

	rougeScore := textmetric.RougeN(groundTruth, joined, 1) * 10

	bertScore, err := embed.BERTScoreF1(ctx, s.Embedder, groundTruth, joined)
	if err != nil {
		return Scalar{}, fmt.Errorf("metrics: context recall: %w", err)
	}

	return Scalar{Score: (cosineScore + rougeScore + bertScore*10) / 3}, nil
}

// ChunkwisePrecision scores per-chunk relevance: the fraction of chunks whose
// cosine similarity to the query clears the threshold, and the fraction whose
// BM25 score is at least half the maximum. All-zero BM25 means no chunk is
// lexically relevant.
func (s *Scorer) ChunkwisePrecision(ctx context.Context, query string, chunks []string) (ChunkwisePrecisionScores, error) {
	if err := s.check(); err != nil {
		return ChunkwisePrecisionScores{}, err
	}
	if len(chunks) == 0 {
		return ChunkwisePrecisionScores{Warning: emptyChunksWarning}, nil
	}

	vecs, err := s.Embedder.Embed(ctx, append([]string{query}, chunks...))
	if err != nil {
		return ChunkwisePrecisionScores{}, fmt.Errorf("metrics: chunkwise precision: %w", err)
	}
	queryVec, chunkVecs := vecs[0], vecs[1:]

	relevantCosine := 0
	for _, cv := range chunkVecs {
		if embed.Cosine(queryVec, cv) >= chunkCosineThreshold {
			relevantCosine++
		}
	}
	cosineFraction := float64(relevantCosine) / float64(len(chunks))

	bm25 := textmetric.NewBM25(tokenizeChunks(chunks))
	scores := bm25.Scores(textmetric.Fields(query))
	maxScore := 0.0
	for _, v := range scores {
		if v > maxScore {
			maxScore = v
		}
	}
	bm25Fraction := 0.0
	if maxScore > 0 {
		relevantBM25 := 0
		for _, v := range scores {
			if v >= bm25RelevantFraction*maxScore {
				relevantBM25++
			}
		}
		bm25Fraction = float64(relevantBM25) / float64(len(scores))
	}

	return ChunkwisePrecisionScores{
		CosinePrecision: round2(cosineFraction * 10),
		BM25Precision:   round2(bm25Fraction * 10),
		CombinedScore:   round2((cosineFraction + bm25Fraction) / 2 * 10),
	}, nil
}

// ChunkwiseRecall scores coverage as the mean cosine similarity between the
// ground truth and each chunk.
func (s *Scorer) ChunkwiseRecall(ctx context.Context, groundTruth string, chunks []string) (Scalar, error) {
	if err := s.check(); err != nil {
		return Scalar{}, err
	}
	if len(chunks) == 0 {
		return Scalar{Warning: emptyChunksWarning}, nil
	}

	vecs, err := s.Embedder.Embed(ctx, append([]string{groundTruth}, chunks...))
	if err != nil {
		return Scalar{}, fmt.Errorf("metrics: chunkwise recall: %w", err)
	}
	gtVec, chunkVecs := vecs[0], vecs[1:]

	var sum float64
	for _, cv := range chunkVecs {
		sum += embed.Cosine(gtVec, cv)
	}
	return Scalar{Score: sum / float64(len(chunkVecs)) * 10}, nil
}

// FaithfulCoverage scores how much of the ground truth the generated answer
// carries: mean of ROUGE-L F1 and BERTScore F1.
func (s *Scorer) FaithfulCoverage(ctx context.Context, groundTruth, generated string) (Scalar, error) {
	if err := s.check(); err != nil {
		return Scalar{}, err
	}
	if strings.TrimSpace(groundTruth) == "" || strings.TrimSpace(generated) == "" {
		return Scalar{Warning: "empty ground truth or generated answer"}, nil
	}

	rougeL := textmetric.RougeL(groundTruth, generated) * 10

	bertScore, err := embed.BERTScoreF1(ctx, s.Embedder, groundTruth, generated)
	if err != nil {
		return Scalar{}, fmt.Errorf("metrics: faithful coverage: %w", err)
	}

	return Scalar{Score: round2((rougeL + bertScore*10) / 2)}, nil
}

// BlobwiseSimilarity scores the generated answer against the joined chunks.
func (s *Scorer) BlobwiseSimilarity(ctx context.Context, answer string, chunks []string) (Scalar, error) {
	if err := s.check(); err != nil {
		return Scalar{}, err
	}
	if len(chunks) == 0 {
		return Scalar{Warning: emptyChunksWarning}, nil
	}

	vecs, err := s.Embedder.Embed(ctx, []string{answer, joinChunks(chunks)})
	if err != nil {
		return Scalar{}, fmt.Errorf("metrics: blobwise similarity: %w", err)
	}
	return Scalar{Score: embed.Cosine(vecs[0], vecs[1]) * 10}, nil
}

// ChunkwiseSimilarity scores the generated answer against each chunk and
// reports the average and maximum.
func (s *Scorer) ChunkwiseSimilarity(ctx context.Context, answer string, chunks []string) (ChunkwiseSimilarityScores, error) {
	if err := s.check(); err != nil {
		return ChunkwiseSimilarityScores{}, err
	}
	if len(chunks) == 0 {
		return ChunkwiseSimilarityScores{Warning: emptyChunksWarning}, nil
	}

	vecs, err := s.Embedder.Embed(ctx, append([]string{answer}, chunks...))
	if err != nil {
		return ChunkwiseSimilarityScores{}, fmt.Errorf("metrics: chunkwise similarity: %w", err)
	}
	answerVec, chunkVecs := vecs[0], vecs[1:]

	var sum, maxSim float64
	maxSim = math.Inf(-1)
	for _, cv := range chunkVecs {
		sim := embed.Cosine(answerVec, cv) * 10
		sum += sim
		if sim > maxSim {
			maxSim = sim
		}
	}
	return ChunkwiseSimilarityScores{
		Avg: round2(sum / float64(len(chunkVecs))),
		Max: round2(maxSim),
	}, nil
}

// NegativeRetrieval scores the fraction of chunks that fail both the cosine
// and the raw-BM25 relevance tests. Higher means more junk retrieved.
func (s *Scorer) NegativeRetrieval(ctx context.Context, query string, chunks []string) (Scalar, error) {
	if err := s.check(); err != nil {
		return Scalar{}, err
	}
	if len(chunks) == 0 {
		return Scalar{Warning: emptyChunksWarning}, nil
	}

	vecs, err := s.Embedder.Embed(ctx, append([]string{query}, chunks...))
	if err != nil {
		return Scalar{}, fmt.Errorf("metrics: negative retrieval: %w", err)
	}
	queryVec, chunkVecs := vecs[0], vecs[1:]

	bm25 := textmetric.NewBM25(tokenizeChunks(chunks))
	scores := bm25.Scores(textmetric.Fields(query))

	irrelevant := 0
	for i, cv := range chunkVecs {
		if embed.Cosine(queryVec, cv) < negativeCosineThreshold && scores[i] < negativeBM25Threshold {
			irrelevant++
		}
	}
	return Scalar{Score: round2(float64(irrelevant) / float64(len(chunks)) * 10)}, nil
}

func (s *Scorer) check() error {
	if s == nil {
		return errors.New("metrics: nil scorer")
	}
	if s.Embedder == nil {
		return errors.New("metrics: nil embedder")
	}
	return nil
}

func joinChunks(chunks []string) string {
	return strings.Join(chunks, " ")
}

func tokenizeChunks(chunks []string) [][]string {
	out := make([][]string, len(chunks))
	for i, c := range chunks {
		out[i] = textmetric.Fields(c)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
