package textmetric

import (
	"strings"
	"unicode"
)

// Fields splits text on whitespace. BM25 candidate sets are tokenized this
// way to keep lexical scores sensitive to exact surface forms.
func Fields(text string) []string {
	return strings.Fields(text)
}

// Tokenize lowercases text and splits it into alphanumeric runs. ROUGE and
// BERTScore comparisons use this normalization so punctuation and casing do
// not count as overlap.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
