package textmetric

import "math"

const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// BM25 scores a fixed corpus of tokenized documents against queries using
// the Okapi weighting scheme. Negative IDF values (terms appearing in more
// than half the corpus) are replaced with a small positive floor so common
// terms still contribute.
type BM25 struct {
	docFreqs  []map[string]int
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
}

// NewBM25 indexes a corpus of tokenized documents.
func NewBM25(corpus [][]string) *BM25 {
	b := &BM25{
		docFreqs: make([]map[string]int, len(corpus)),
		docLens:  make([]int, len(corpus)),
		idf:      make(map[string]float64),
	}

	df := make(map[string]int)
	totalLen := 0
	for i, doc := range corpus {
		freqs := make(map[string]int, len(doc))
		for _, tok := range doc {
			freqs[tok]++
		}
		b.docFreqs[i] = freqs
		b.docLens[i] = len(doc)
		totalLen += len(doc)
		for tok := range freqs {
			df[tok]++
		}
	}
	if len(corpus) > 0 {
		b.avgDocLen = float64(totalLen) / float64(len(corpus))
	}

	n := float64(len(corpus))
	idfSum := 0.0
	var negative []string
	for tok, freq := range df {
		idf := math.Log((n - float64(freq) + 0.5) / (float64(freq) + 0.5))
		b.idf[tok] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, tok)
		}
	}
	if len(df) > 0 {
		floor := bm25Epsilon * idfSum / float64(len(df))
		for _, tok := range negative {
			b.idf[tok] = floor
		}
	}

	return b
}

// Scores returns one raw BM25 score per indexed document for the query.
func (b *BM25) Scores(query []string) []float64 {
	if b == nil {
		return nil
	}
	out := make([]float64, len(b.docFreqs))
	for i := range b.docFreqs {
		out[i] = b.scoreDoc(query, i)
	}
	return out
}

func (b *BM25) scoreDoc(query []string, i int) float64 {
	freqs := b.docFreqs[i]
	docLen := float64(b.docLens[i])

	score := 0.0
	for _, tok := range query {
		f := float64(freqs[tok])
		if f == 0 {
			continue
		}
		idf, ok := b.idf[tok]
		if !ok {
			continue
		}
		norm := bm25K1 * (1 - bm25B + bm25B*docLen/b.avgDocLen)
		score += idf * f * (bm25K1 + 1) / (f + norm)
	}
	return score
}

// MinMaxScale normalizes scores into [0, scale]. When every raw score is
// equal, including the all-zero case, every normalized score is the full
// scale value; the candidates are indistinguishable, not worthless.
func MinMaxScale(scores []float64, scale float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}

	out := make([]float64, len(scores))
	if hi == lo {
		for i := range out {
			out[i] = scale
		}
		return out
	}
	for i, s := range scores {
		out[i] = scale * (s - lo) / (hi - lo)
	}
	return out
}
