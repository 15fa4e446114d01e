package textmetric

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	got := Tokenize("A Crafting Table, made from 4 wood-planks!")
	want := []string{"a", "crafting", "table", "made", "from", "4", "wood", "planks"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tokenize[%d]: got %q want %q", i, got[i], want[i])
		}
	}

	if got := Tokenize("   "); len(got) != 0 {
		t.Fatalf("Tokenize(blank): got %v", got)
	}
}

func TestBM25Ordering(t *testing.T) {
	t.Parallel()

	corpus := [][]string{
		Fields("crafting table requires four wood planks"),
		Fields("furnace requires eight cobblestone"),
		Fields("the nether is a dangerous dimension"),
	}
	b := NewBM25(corpus)

	scores := b.Scores(Fields("crafting table wood planks"))
	if len(scores) != 3 {
		t.Fatalf("Scores: got %d scores", len(scores))
	}
	if scores[0] <= scores[1] || scores[0] <= scores[2] {
		t.Fatalf("expected first doc to dominate: %v", scores)
	}
}

func TestBM25NoMatches(t *testing.T) {
	t.Parallel()

	corpus := [][]string{
		Fields("one two three"),
		Fields("four five six"),
	}
	b := NewBM25(corpus)
	scores := b.Scores(Fields("zebra"))
	for i, s := range scores {
		if s != 0 {
			t.Fatalf("Scores[%d]: got %v want 0", i, s)
		}
	}
}

func TestMinMaxScaleIdenticalScores(t *testing.T) {
	t.Parallel()

	// Indistinguishable candidates normalize to the full scale value, not
	// zero, including the degenerate all-zero case.
	tests := []struct {
		name   string
		scores []float64
	}{
		{"all zero", []float64{0, 0, 0}},
		{"all equal nonzero", []float64{3.2, 3.2, 3.2}},
		{"single", []float64{1.7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := MinMaxScale(tt.scores, 10)
			for i, v := range got {
				if v != 10 {
					t.Fatalf("MinMaxScale[%d]: got %v want 10", i, v)
				}
			}
		})
	}
}

func TestMinMaxScaleSpread(t *testing.T) {
	t.Parallel()

	got := MinMaxScale([]float64{1, 2, 3}, 10)
	want := []float64{0, 5, 10}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("MinMaxScale[%d]: got %v want %v", i, got[i], want[i])
		}
	}

	if got := MinMaxScale(nil, 10); got != nil {
		t.Fatalf("MinMaxScale(nil): got %v", got)
	}
}

func TestRougeL(t *testing.T) {
	t.Parallel()

	if got := RougeL("a b c d", "a b c d"); !almostEqual(got, 1) {
		t.Fatalf("identical texts: got %v", got)
	}
	if got := RougeL("a b c d", "x y z"); got != 0 {
		t.Fatalf("disjoint texts: got %v", got)
	}
	if got := RougeL("", "anything"); got != 0 {
		t.Fatalf("empty reference: got %v", got)
	}

	// LCS of "the cat sat" vs "the cat ran" is 2 tokens out of 3, F1 = 2/3.
	if got := RougeL("the cat sat", "the cat ran"); !almostEqual(got, 2.0/3.0) {
		t.Fatalf("partial overlap: got %v", got)
	}
}

func TestRougeN(t *testing.T) {
	t.Parallel()

	if got := RougeN("a b c", "a b c", 1); !almostEqual(got, 1) {
		t.Fatalf("identical unigrams: got %v", got)
	}
	if got := RougeN("a b c", "a b c", 2); !almostEqual(got, 1) {
		t.Fatalf("identical bigrams: got %v", got)
	}
	if got := RougeN("a a b", "a c d", 1); got <= 0 {
		t.Fatalf("expected partial overlap, got %v", got)
	}
	if got := RougeN("a b", "a b", 3); got != 0 {
		t.Fatalf("n longer than text: got %v", got)
	}
	if got := RougeN("a b", "a b", 0); got != 0 {
		t.Fatalf("n=0: got %v", got)
	}
}

func TestRougeNClipping(t *testing.T) {
	t.Parallel()

	// The hypothesis repeats "wood" but the reference has it once, so only
	// one occurrence counts toward overlap.
	ref := "wood planks"
	hyp := "wood wood wood planks"
	got := RougeN(ref, hyp, 1)
	precision := 2.0 / 4.0
	recall := 2.0 / 2.0
	want := 2 * precision * recall / (precision + recall)
	if !almostEqual(got, want) {
		t.Fatalf("clipped overlap: got %v want %v", got, want)
	}
}

func TestCraftingTableRecallOrdering(t *testing.T) {
	t.Parallel()

	groundTruth := "A crafting table is made from 4 wood planks."
	relevant := "Crafting table: requires 4 planks of any wood type."
	irrelevant := "Furnace: requires 8 cobblestone."

	withRelevant := RougeN(groundTruth, relevant+" "+irrelevant, 1)
	withoutRelevant := RougeN(groundTruth, irrelevant, 1)
	if withRelevant <= withoutRelevant {
		t.Fatalf("expected relevant chunk to raise ROUGE-1: %v vs %v", withRelevant, withoutRelevant)
	}
}
