package judge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/craftlore/ragcheck/internal/llm"
)

// fakeProvider returns a scripted sequence of responses/errors, one per call.
type fakeProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, _ *llm.Request) (*llm.Response, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return &llm.Response{Text: f.responses[i]}, nil
	}
	return nil, errors.New("fake: no scripted response")
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestParseScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		wantState State
		wantValue float64
	}{
		{name: "CleanInteger", raw: "7", wantState: StateOK, wantValue: 7},
		{name: "CleanFloat", raw: " 7.5 \n", wantState: StateOK, wantValue: 7.5},
		{name: "EmbeddedNumber", raw: "Score: 8 out of 10", wantState: StateOK, wantValue: 8},
		{name: "EmbeddedFloat", raw: "I'd say 6.5, roughly", wantState: StateOK, wantValue: 6.5},
		{name: "NoNumber", raw: "cannot evaluate this", wantState: StateParseFailure, wantValue: -1},
		{name: "Empty", raw: "", wantState: StateParseFailure, wantValue: -1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseScore(tt.raw)
			if got.State != tt.wantState {
				t.Fatalf("State: got %v want %v", got.State, tt.wantState)
			}
			if got.Value != tt.wantValue {
				t.Fatalf("Value: got %v want %v", got.Value, tt.wantValue)
			}
		})
	}
}

func TestScore_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{
		errs:      []error{errors.New("boom"), errors.New("boom again"), nil},
		responses: []string{"", "", "9"},
	}
	j := New(f)
	j.sleep = noSleep

	got := j.Score(context.Background(), "rate this")
	if got.State != StateOK || got.Value != 9 {
		t.Fatalf("Score: got %#v", got)
	}
	if f.calls != 3 {
		t.Fatalf("calls: got %d want 3", f.calls)
	}
}

func TestScore_ExhaustsToTransient(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{
		errs: []error{errors.New("a"), errors.New("b"), errors.New("c")},
	}
	j := New(f)
	j.sleep = noSleep

	got := j.Score(context.Background(), "rate this")
	if got.State != StateTransient {
		t.Fatalf("State: got %v want %v", got.State, StateTransient)
	}
	if got.Label() != "Error" {
		t.Fatalf("Label: got %q want %q", got.Label(), "Error")
	}
	if f.calls != 3 {
		t.Fatalf("calls: got %d want 3", f.calls)
	}
}

func TestScore_QuotaExhaustion(t *testing.T) {
	t.Parallel()

	quotaErr := errors.New("429: Resource has been exhausted (e.g. check quota)")
	f := &fakeProvider{errs: []error{quotaErr, quotaErr, quotaErr}}
	j := New(f)
	j.sleep = noSleep

	got := j.Score(context.Background(), "rate this")
	if got.State != StateExhausted {
		t.Fatalf("State: got %v want %v", got.State, StateExhausted)
	}
	if got.Label() != "FDTKE" {
		t.Fatalf("Label: got %q want %q", got.Label(), "FDTKE")
	}
	if got.Field() != "FDTKE" {
		t.Fatalf("Field: got %v want %q", got.Field(), "FDTKE")
	}
}

func TestScore_BackoffDoubles(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	f := &fakeProvider{
		errs: []error{errors.New("a"), errors.New("b"), errors.New("c")},
	}
	j := New(f)
	j.BaseDelay = 2 * time.Second
	j.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_ = j.Score(context.Background(), "rate this")
	if len(delays) != 2 {
		t.Fatalf("len(delays): got %d want 2", len(delays))
	}
	if delays[0] != 2*time.Second || delays[1] != 4*time.Second {
		t.Fatalf("delays: got %v", delays)
	}
}

func TestScore_CancellationDuringBackoff(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{errs: []error{errors.New("a"), errors.New("b")}}
	j := New(f)
	j.sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	got := j.Score(context.Background(), "rate this")
	if got.State != StateTransient {
		t.Fatalf("State: got %v want %v", got.State, StateTransient)
	}
	if f.calls != 1 {
		t.Fatalf("calls: got %d want 1", f.calls)
	}
}

func TestScore_NilProvider(t *testing.T) {
	t.Parallel()

	var j *Judge
	if got := j.Score(context.Background(), "x"); got.State != StateTransient {
		t.Fatalf("Score(nil judge): got %#v", got)
	}
	if got := (&Judge{}).Score(context.Background(), "x"); got.State != StateTransient {
		t.Fatalf("Score(nil provider): got %#v", got)
	}
}

func TestScoreLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		score     Score
		wantLabel string
		wantField any
	}{
		{name: "OK", score: OK(7.5, "7.5"), wantLabel: "7.5", wantField: 7.5},
		{name: "OKInteger", score: OK(10, "10"), wantLabel: "10", wantField: 10.0},
		{name: "ParseFailure", score: ParseFailure("???"), wantLabel: "-1", wantField: -1.0},
		{name: "Transient", score: Transient(errors.New("x")), wantLabel: "Error", wantField: "Error"},
		{name: "Exhausted", score: Exhausted(errors.New("x")), wantLabel: "FDTKE", wantField: "FDTKE"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.score.Label(); got != tt.wantLabel {
				t.Fatalf("Label: got %q want %q", got, tt.wantLabel)
			}
			if got := tt.score.Field(); got != tt.wantField {
				t.Fatalf("Field: got %v (%T) want %v (%T)", got, got, tt.wantField, tt.wantField)
			}
		})
	}
}

func TestPrompts(t *testing.T) {
	t.Parallel()

	chunks := []string{"A crafting table is made from four planks.", "Furnaces smelt ore."}

	p := ContextPrecisionPrompt("How do I craft a table?", chunks)
	if !strings.Contains(p, "How do I craft a table?") {
		t.Fatalf("ContextPrecisionPrompt: missing query:\n%s", p)
	}
	if !strings.Contains(p, "[1] A crafting table is made from four planks.") {
		t.Fatalf("ContextPrecisionPrompt: missing chunk:\n%s", p)
	}
	if !strings.Contains(p, "single integer between 0 and 10") {
		t.Fatalf("ContextPrecisionPrompt: missing instruction:\n%s", p)
	}

	p = ContextRecallPrompt("Four planks in a square.", chunks)
	if !strings.Contains(p, "Four planks in a square.") || !strings.Contains(p, "ground truth answer") {
		t.Fatalf("ContextRecallPrompt:\n%s", p)
	}

	p = RetrievalPrecisionPrompt("q", chunks)
	if !strings.Contains(p, "strictly focused") {
		t.Fatalf("RetrievalPrecisionPrompt:\n%s", p)
	}

	p = NegativeRetrievalPrompt("q", nil)
	if !strings.Contains(p, "(none)") {
		t.Fatalf("NegativeRetrievalPrompt(empty chunks):\n%s", p)
	}

	p = FaithfulnessPrompt(chunks, "You need four planks.")
	if !strings.Contains(p, "You need four planks.") || !strings.Contains(p, "faithful") {
		t.Fatalf("FaithfulnessPrompt:\n%s", p)
	}

	p = FaithfulCoveragePrompt("gt", "gen")
	if !strings.Contains(p, `"gt"`) || !strings.Contains(p, "gen") {
		t.Fatalf("FaithfulCoveragePrompt:\n%s", p)
	}
}
