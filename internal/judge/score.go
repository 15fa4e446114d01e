package judge

import "strconv"

// State classifies the outcome of a judge invocation.
type State int

const (
	// StateOK means the judge returned a parseable score.
	StateOK State = iota
	// StateParseFailure means the judge responded but no number could be
	// extracted.
	StateParseFailure
	// StateTransient means every attempt failed with a non-quota error.
	StateTransient
	// StateExhausted means every attempt failed with quota exhaustion.
	StateExhausted
)

// Score is the tagged result of a judge invocation. A failed invocation is a
// value, not a Go error: the batch driver persists the sentinel and moves on.
type Score struct {
	State State
	Value float64 // valid only when State == StateOK
	Raw   string  // raw model output, when there was one
	Err   error   // terminal error, when there was one
}

func OK(value float64, raw string) Score {
	return Score{State: StateOK, Value: value, Raw: raw}
}

func ParseFailure(raw string) Score {
	return Score{State: StateParseFailure, Value: -1, Raw: raw}
}

func Transient(err error) Score {
	return Score{State: StateTransient, Err: err}
}

func Exhausted(err error) Score {
	return Score{State: StateExhausted, Err: err}
}

// Label renders the historical persistence sentinels: the numeric value for a
// parsed score, "-1" for a parse failure, "Error" for a transient failure,
// "FDTKE" for quota exhaustion.
func (s Score) Label() string {
	switch s.State {
	case StateOK:
		return strconv.FormatFloat(s.Value, 'f', -1, 64)
	case StateParseFailure:
		return "-1"
	case StateExhausted:
		return "FDTKE"
	default:
		return "Error"
	}
}

// Field returns the value to place in a log record: float64 for parsed scores
// and the parse sentinel, a string sentinel otherwise.
func (s Score) Field() any {
	switch s.State {
	case StateOK:
		return s.Value
	case StateParseFailure:
		return float64(-1)
	case StateExhausted:
		return "FDTKE"
	default:
		return "Error"
	}
}
