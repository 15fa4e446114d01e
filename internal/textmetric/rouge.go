package textmetric

import "strings"

// RougeN computes the ROUGE-N F1 overlap between a reference and a
// hypothesis, in [0,1]. Tokens are clipped: each reference n-gram only
// matches as many hypothesis occurrences as it has itself.
func RougeN(reference, hypothesis string, n int) float64 {
	if n <= 0 {
		return 0
	}
	refTokens := Tokenize(reference)
	hypTokens := Tokenize(hypothesis)
	if len(refTokens) < n || len(hypTokens) < n {
		return 0
	}

	refGrams := ngrams(refTokens, n)
	hypGrams := ngrams(hypTokens, n)

	overlap := 0
	refTotal := 0
	for gram, cnt := range refGrams {
		refTotal += cnt
		if hc, ok := hypGrams[gram]; ok {
			if hc < cnt {
				overlap += hc
			} else {
				overlap += cnt
			}
		}
	}
	hypTotal := 0
	for _, cnt := range hypGrams {
		hypTotal += cnt
	}

	precision := float64(overlap) / float64(hypTotal)
	recall := float64(overlap) / float64(refTotal)
	return fMeasure(precision, recall)
}

// RougeL computes the ROUGE-L F1 between a reference and a hypothesis using
// the longest common subsequence of their tokens, in [0,1].
func RougeL(reference, hypothesis string) float64 {
	refTokens := Tokenize(reference)
	hypTokens := Tokenize(hypothesis)
	if len(refTokens) == 0 || len(hypTokens) == 0 {
		return 0
	}

	lcs := lcsLength(refTokens, hypTokens)
	precision := float64(lcs) / float64(len(hypTokens))
	recall := float64(lcs) / float64(len(refTokens))
	return fMeasure(precision, recall)
}

func fMeasure(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

func ngrams(tokens []string, n int) map[string]int {
	if n <= 0 || len(tokens) < n {
		return map[string]int{}
	}
	out := make(map[string]int, len(tokens)-n+1)
	for i := 0; i <= len(tokens)-n; i++ {
		out[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return out
}

// lcsLength computes the longest common subsequence length with two rolling
// rows instead of the full table.
func lcsLength(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		curr[0] = 0
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
