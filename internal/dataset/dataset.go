// Package dataset loads the ground-truth question/answer set used to drive
// batch evaluations.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Entry is one ground-truth question with its reference answer.
type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// LoadFromFile loads and validates a ground-truth QnA set from a JSON file.
// The file is a JSON array of {"question", "answer"} objects.
func LoadFromFile(path string) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %q: %w", path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("dataset: parse %q: %w", path, err)
	}
	if err := Validate(entries); err != nil {
		return nil, fmt.Errorf("dataset: validate %q: %w", path, err)
	}
	return entries, nil
}

// Validate checks the entries for consistency. Questions must be non-empty
// and unique; answers must be non-empty.
func Validate(entries []Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("no entries")
	}
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		q := strings.TrimSpace(e.Question)
		if q == "" {
			return fmt.Errorf("entries[%d]: missing question", i)
		}
		if _, ok := seen[q]; ok {
			return fmt.Errorf("entries[%d] (%s): duplicate question", i, q)
		}
		seen[q] = struct{}{}
		if strings.TrimSpace(e.Answer) == "" {
			return fmt.Errorf("entries[%d] (%s): missing answer", i, q)
		}
	}
	return nil
}
