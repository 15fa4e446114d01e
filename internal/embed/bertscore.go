package embed

import (
	"context"
	"errors"

	"github.com/craftlore/ragcheck/internal/textmetric"
)

// BERTScoreF1 computes a BERTScore-style F1 in [0, 1] between a reference and
// a hypothesis: greedy max-cosine alignment over per-token embeddings,
// precision over hypothesis tokens, recall over reference tokens. Both texts
// are embedded in a single Embedder call.
func BERTScoreF1(ctx context.Context, e Embedder, reference, hypothesis string) (float64, error) {
	if e == nil {
		return 0, errors.New("embed: nil embedder")
	}

	refTokens := textmetric.Tokenize(reference)
	hypTokens := textmetric.Tokenize(hypothesis)
	if len(refTokens) == 0 || len(hypTokens) == 0 {
		return 0, nil
	}

	texts := make([]string, 0, len(refTokens)+len(hypTokens))
	texts = append(texts, refTokens...)
	texts = append(texts, hypTokens...)

	vecs, err := e.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vecs) != len(texts) {
		return 0, errors.New("embed: token embedding count mismatch")
	}

	refVecs := vecs[:len(refTokens)]
	hypVecs := vecs[len(refTokens):]

	precision := meanMaxCosine(hypVecs, refVecs)
	recall := meanMaxCosine(refVecs, hypVecs)
	if precision+recall == 0 {
		return 0, nil
	}
	return 2 * precision * recall / (precision + recall), nil
}

// meanMaxCosine averages, over each vector in from, its best cosine match in
// to. Negative best matches clamp to 0 so the score stays in [0, 1].
func meanMaxCosine(from, to [][]float64) float64 {
	if len(from) == 0 || len(to) == 0 {
		return 0
	}

	var sum float64
	for _, f := range from {
		best := 0.0
		for _, t := range to {
			if sim := Cosine(f, t); sim > best {
				best = sim
			}
		}
		sum += best
	}
	return sum / float64(len(from))
}
